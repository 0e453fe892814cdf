package blindreview

import (
	"time"

	"github.com/google/uuid"
)

// PairState is the review state of one transaction.
type PairState string

const (
	StateAwaitingFirst      PairState = "AWAITING_FIRST"
	StateAwaitingSecond     PairState = "AWAITING_SECOND"
	StateRevealed           PairState = "REVEALED"
	StateRevealedByDeadline PairState = "REVEALED_BY_DEADLINE"
)

// PendingReview is one concealed submission. The rating and text exist only
// inside Ciphertext until reveal.
type PendingReview struct {
	TransactionID  uuid.UUID  `json:"transaction_id"`
	ReviewerID     uuid.UUID  `json:"reviewer_id"`
	TargetUserID   uuid.UUID  `json:"target_user_id"`
	Ciphertext     []byte     `json:"-"`
	Nonce          []byte     `json:"-"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	RevealDeadline time.Time  `json:"reveal_deadline"`
	Revealed       bool       `json:"revealed"`
	RevealedAt     *time.Time `json:"revealed_at,omitempty"`
}

// keyRecord is the wrapped per-pair data key row.
type keyRecord struct {
	TransactionID uuid.UUID
	WrappedKey    []byte
	WrapNonce     []byte
}

// payload is the plaintext review content, serialized before encryption.
// The weight is fixed at submission time so later profile changes cannot
// retroactively move a concealed review.
type payload struct {
	Rating     int     `json:"rating"`
	ReviewText string  `json:"review_text,omitempty"`
	Weight     float64 `json:"weight"`
	IsVerified bool    `json:"is_verified"`
}

// SubmitReviewRequest is the concealed-submission payload.
type SubmitReviewRequest struct {
	ReviewerID uuid.UUID `json:"reviewer_id" binding:"required"`
	Rating     int       `json:"rating" binding:"required" validate:"rating"`
	ReviewText string    `json:"review_text" validate:"max=4000"`
}

// SubmitResult reports what a submission did.
type SubmitResult struct {
	State          PairState `json:"state"`
	RevealDeadline time.Time `json:"reveal_deadline"`
}
