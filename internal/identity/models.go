package identity

import (
	"time"

	"github.com/google/uuid"
)

// AccountType distinguishes personal from business accounts.
type AccountType string

const (
	AccountTypeStandard AccountType = "standard"
	AccountTypeBusiness AccountType = "business"
)

// Profile is the slice of a user record the trust engine needs.
type Profile struct {
	ID               uuid.UUID   `json:"id"`
	Email            string      `json:"email"`
	Phone            string      `json:"phone,omitempty"`
	DisplayName      string      `json:"display_name"`
	AccountType      AccountType `json:"account_type"`
	IdentityVerified bool        `json:"identity_verified"`
	BusinessVerified bool        `json:"business_verified"`
	Flagged          bool        `json:"flagged"`
	FlaggedReason    string      `json:"flagged_reason,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// AccountAge returns how long the account has existed as of now.
func (p *Profile) AccountAge(now time.Time) time.Duration {
	return now.Sub(p.CreatedAt)
}
