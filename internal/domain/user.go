package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// User is an account. The document number doubles as the login
// identifier, so it lives on the user as well as on the profile.
type User struct {
	ID           int64     `json:"id"`
	Document     string    `json:"document"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsStaff      bool      `json:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Document
	}
	return name
}

type RegisterRequest struct {
	Document        string `json:"document"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Phone           string `json:"phone,omitempty"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type LoginRequest struct {
	Document string `json:"document"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	ExpiresIn    int64     `json:"expires_in"`
	WelcomeToken string    `json:"welcome_token"`
	User         *UserInfo `json:"user"`
}

type UserInfo struct {
	ID          int64  `json:"id"`
	Document    string `json:"document"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsActive    bool   `json:"is_active"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		ID:          u.ID,
		Document:    u.Document,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsActive:    u.IsActive,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
	}
}

// UpdateUserRequest is the staff edit form: identity fields plus the
// active/staff flags, with the profile contact fields alongside.
type UpdateUserRequest struct {
	FirstName *string   `json:"first_name,omitempty"`
	LastName  *string   `json:"last_name,omitempty"`
	Email     *string   `json:"email,omitempty"`
	IsActive  *bool     `json:"is_active,omitempty"`
	IsStaff   *bool     `json:"is_staff,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	PhotoURL  *string   `json:"photo_url,omitempty"`
	BirthDate *DateOnly `json:"birth_date,omitempty"`
}

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nameRegex     = regexp.MustCompile(`^[a-zA-ZáéíóúÁÉÍÓÚñÑüÜ\s]+$`)
	documentRegex = regexp.MustCompile(`^[0-9]+$`)
)

// passwordSymbols is the punctuation set a password must draw at least
// one character from.
const passwordSymbols = "!@#$%^&*(),.?\":{}|<>_-+=[]\\;'`~"

// TitleCaseName lowercases then title-cases each word, so "juan PÉREZ"
// becomes "Juan Pérez". The caser is built per call because
// cases.Caser carries state and is not safe for concurrent use.
func TitleCaseName(name string) string {
	return cases.Title(language.Spanish).String(strings.ToLower(strings.TrimSpace(name)))
}

// ValidatePassword applies the account password policy: at least 8
// characters with an uppercase letter, a lowercase letter, a digit and
// a symbol from passwordSymbols.
func ValidatePassword(password string) []string {
	var problems []string
	if utf8.RuneCountInString(password) < 8 {
		problems = append(problems, "password must be at least 8 characters")
	}
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}
	if !hasUpper {
		problems = append(problems, "password must contain an uppercase letter")
	}
	if !hasLower {
		problems = append(problems, "password must contain a lowercase letter")
	}
	if !hasDigit {
		problems = append(problems, "password must contain a digit")
	}
	if !hasSymbol {
		problems = append(problems, "password must contain a special character (!@#$%^&*...)")
	}
	return problems
}

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func IsValidDocument(document string) bool {
	return documentRegex.MatchString(document)
}

func IsValidName(name string) bool {
	return nameRegex.MatchString(name)
}

func (r *RegisterRequest) Normalize() {
	r.Document = strings.TrimSpace(r.Document)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FirstName = TitleCaseName(r.FirstName)
	r.LastName = TitleCaseName(r.LastName)
	r.Phone = strings.TrimSpace(r.Phone)
}

// Validate covers everything except uniqueness, which belongs to the
// repository (database constraints decide under concurrency).
func (r *RegisterRequest) Validate() error {
	errs := FieldErrors{}
	if r.Document == "" {
		errs.Add("document", "document number is required")
	} else if !IsValidDocument(r.Document) {
		errs.Add("document", "document must contain only numbers")
	}
	if r.Email == "" {
		errs.Add("email", "email is required")
	} else if !IsValidEmail(r.Email) {
		errs.Add("email", "enter a valid email address")
	}
	if r.FirstName == "" {
		errs.Add("first_name", "first name is required")
	} else if !IsValidName(r.FirstName) {
		errs.Add("first_name", "first name must contain only letters")
	}
	if r.LastName == "" {
		errs.Add("last_name", "last name is required")
	} else if !IsValidName(r.LastName) {
		errs.Add("last_name", "last name must contain only letters")
	}
	if r.Password == "" {
		errs.Add("password", "password is required")
	} else if problems := ValidatePassword(r.Password); len(problems) > 0 {
		errs.Add("password", strings.Join(problems, "; "))
	}
	if r.PasswordConfirm == "" {
		errs.Add("password_confirm", "password confirmation is required")
	} else if r.Password != "" && r.Password != r.PasswordConfirm {
		errs.Add("password_confirm", "passwords do not match")
	}
	return errs.OrNil()
}

func (r *LoginRequest) Normalize() {
	r.Document = strings.TrimSpace(r.Document)
}

func (r *LoginRequest) Validate() error {
	errs := FieldErrors{}
	if r.Document == "" {
		errs.Add("document", "enter your document number")
	}
	if r.Password == "" {
		errs.Add("password", "enter your password")
	}
	return errs.OrNil()
}

func (r *UpdateUserRequest) Validate() error {
	errs := FieldErrors{}
	if r.Email != nil && !IsValidEmail(*r.Email) {
		errs.Add("email", "enter a valid email address")
	}
	if r.FirstName != nil && !IsValidName(strings.TrimSpace(*r.FirstName)) {
		errs.Add("first_name", "first name must contain only letters")
	}
	if r.LastName != nil && !IsValidName(strings.TrimSpace(*r.LastName)) {
		errs.Add("last_name", "last name must contain only letters")
	}
	return errs.OrNil()
}
