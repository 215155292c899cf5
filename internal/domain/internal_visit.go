package domain

import (
	"strings"
	"time"
)

type VisitStatus string

const (
	VisitPending   VisitStatus = "pending"
	VisitConfirmed VisitStatus = "confirmed"
	VisitDone      VisitStatus = "done"
	VisitCancelled VisitStatus = "cancelled"
)

func ParseVisitStatus(s string) (VisitStatus, bool) {
	switch VisitStatus(s) {
	case VisitPending, VisitConfirmed, VisitDone, VisitCancelled:
		return VisitStatus(s), true
	default:
		return "", false
	}
}

// InternalVisit is a scheduled visit by staff or members. Unlike
// external visits it carries a status and may be backdated for
// record-keeping, so there is no date floor.
type InternalVisit struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Responsible string      `json:"responsible"`
	Phone       string      `json:"phone"`
	Headcount   int         `json:"headcount"`
	Date        DateOnly    `json:"date"`
	Status      VisitStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type InternalVisitRequest struct {
	Name        string      `json:"name"`
	Responsible string      `json:"responsible"`
	Phone       string      `json:"phone"`
	Headcount   int         `json:"headcount"`
	Date        DateOnly    `json:"date"`
	Status      VisitStatus `json:"status,omitempty"`
}

func (r *InternalVisitRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Responsible = strings.TrimSpace(r.Responsible)
	r.Phone = strings.TrimSpace(r.Phone)
	if r.Status == "" {
		r.Status = VisitPending
	}
}

func (r *InternalVisitRequest) Validate() error {
	errs := FieldErrors{}
	if r.Name == "" {
		errs.Add("name", "name is required")
	}
	if r.Responsible == "" {
		errs.Add("responsible", "responsible is required")
	}
	if r.Phone == "" {
		errs.Add("phone", "phone is required")
	} else if !IsValidVisitPhone(r.Phone) {
		errs.Add("phone", "phone must be exactly 10 digits")
	}
	if r.Headcount < 1 {
		errs.Add("headcount", "headcount must be a positive number greater than 0")
	}
	if r.Date.IsZero() {
		errs.Add("date", "date is required")
	}
	if _, ok := ParseVisitStatus(string(r.Status)); !ok {
		errs.Add("status", "status must be one of pending, confirmed, done, cancelled")
	}
	return errs.OrNil()
}
