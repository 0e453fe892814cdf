package reviews

import (
	"time"

	"github.com/google/uuid"
)

// Review is a revealed, weight-bearing review. Concealed submissions live
// in the blind-review store until reveal and never appear here.
type Review struct {
	ID            uuid.UUID  `json:"id"`
	TransactionID uuid.UUID  `json:"transaction_id"`
	ReviewerID    uuid.UUID  `json:"reviewer_id"`
	TargetUserID  uuid.UUID  `json:"target_user_id"`
	Rating        int        `json:"rating"`
	ReviewText    string     `json:"review_text,omitempty"`
	Weight        float64    `json:"weight"`
	IsVisible     bool       `json:"is_visible"`
	IsVerified    bool       `json:"is_verified"`
	SubmittedAt   time.Time  `json:"submitted_at"`
	RevealedAt    *time.Time `json:"revealed_at,omitempty"`
}

// WeightedRating is the review's contribution to a reputation average.
func (r *Review) WeightedRating() float64 {
	return float64(r.Rating) * r.Weight
}

// SetVisibilityRequest is the moderator override payload.
type SetVisibilityRequest struct {
	Visible bool   `json:"visible"`
	Reason  string `json:"reason" binding:"required"`
}
