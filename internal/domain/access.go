package domain

import "errors"

// Login failures are distinct on purpose: the original flow tells the
// user which step failed instead of a generic "invalid credentials".
var (
	ErrDocumentNotRegistered = errors.New("this document number is not registered")
	ErrIncorrectPassword     = errors.New("incorrect password")
	ErrAccountDeactivated    = errors.New("this account has been deactivated, contact the administrator")
	ErrPendingApproval       = errors.New("your account is pending approval, the administrator will review your request soon")
)

// AccessRejectedError carries the administrator's rejection reason back
// to the login form.
type AccessRejectedError struct {
	Reason string
}

func (e *AccessRejectedError) Error() string {
	return "your access was rejected: " + e.Reason
}
