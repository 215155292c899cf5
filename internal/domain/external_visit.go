package domain

import (
	"regexp"
	"strings"
	"time"
)

// ExternalVisit is a scheduled visit by an outside party, tied to an
// articulation (partner program).
type ExternalVisit struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Responsible  string    `json:"responsible"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Articulation string    `json:"articulation"`
	Headcount    int       `json:"headcount"`
	Date         DateOnly  `json:"date"`
	Time         TimeOnly  `json:"time"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ExternalVisitRequest struct {
	Name         string   `json:"name"`
	Responsible  string   `json:"responsible"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	Articulation string   `json:"articulation"`
	Headcount    int      `json:"headcount"`
	Date         DateOnly `json:"date"`
	Time         TimeOnly `json:"time"`
}

var visitPhoneRegex = regexp.MustCompile(`^[0-9]{10}$`)

// IsValidVisitPhone accepts exactly 10 decimal digits.
func IsValidVisitPhone(phone string) bool {
	return visitPhoneRegex.MatchString(phone)
}

func (r *ExternalVisitRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Responsible = strings.TrimSpace(r.Responsible)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Articulation = strings.TrimSpace(r.Articulation)
}

// Validate checks an external visit submission. The date floor applies
// only when enforceDateFloor is set: creation always enforces it, edits
// enforce it only for a changed date.
func (r *ExternalVisitRequest) Validate(enforceDateFloor bool) error {
	errs := FieldErrors{}
	if r.Name == "" {
		errs.Add("name", "name is required")
	}
	if r.Responsible == "" {
		errs.Add("responsible", "responsible is required")
	}
	if r.Email == "" {
		errs.Add("email", "email is required")
	} else if !IsValidEmail(r.Email) {
		errs.Add("email", "enter a valid email address")
	}
	if r.Phone == "" {
		errs.Add("phone", "phone is required")
	} else if !IsValidVisitPhone(r.Phone) {
		errs.Add("phone", "phone must be exactly 10 digits")
	}
	if r.Articulation == "" {
		errs.Add("articulation", "articulation is required")
	}
	if r.Headcount < 1 {
		errs.Add("headcount", "headcount must be a positive number greater than 0")
	}
	if r.Date.IsZero() {
		errs.Add("date", "date is required")
	} else if enforceDateFloor && r.Date.Before(Today()) {
		errs.Add("date", "date cannot be before today")
	}
	if r.Time.IsZero() {
		errs.Add("time", "time is required")
	}
	return errs.OrNil()
}
