package domain

import "time"

// Profile extends a user one-to-one with contact data and the approval
// state that gates login for non-superusers.
type Profile struct {
	UserID          int64      `json:"user_id"`
	Document        string     `json:"document"`
	Phone           string     `json:"phone"`
	Address         string     `json:"address"`
	PhotoURL        *string    `json:"photo_url,omitempty"`
	BirthDate       *DateOnly  `json:"birth_date,omitempty"`
	Approved        bool       `json:"approved"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

// State classifies the profile. Exactly one of the three states holds:
// approved, rejected (not approved with a reason on file), or pending.
func (p *Profile) State() ApprovalState {
	if p.Approved {
		return ApprovalApproved
	}
	if p.RejectionReason != nil && *p.RejectionReason != "" {
		return ApprovalRejected
	}
	return ApprovalPending
}

// ProfileWithUser is the admin permissions-panel row.
type ProfileWithUser struct {
	Profile Profile       `json:"profile"`
	User    UserInfo      `json:"user"`
	State   ApprovalState `json:"state"`
}

// ApprovalCounts is the stats block on the permissions panel.
type ApprovalCounts struct {
	Total    int64 `json:"total"`
	Approved int64 `json:"approved"`
	Pending  int64 `json:"pending"`
	Rejected int64 `json:"rejected"`
}
