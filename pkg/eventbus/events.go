package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// Subjects used by the trust engine. Payloads carry identifiers and the
// minimum context a consumer needs; full records are fetched over the API.
const (
	SubjectTransactionCompleted = "trust.transaction.completed"
	SubjectReviewSubmitted      = "trust.review.submitted"
	SubjectReviewsRevealed      = "trust.review.revealed"
	SubjectRiskFlagged          = "trust.risk.flagged"
	SubjectModerationRequired   = "trust.moderation.required"
	SubjectReputationUpdated    = "trust.reputation.updated"
)

// TransactionCompletedData announces that a transaction reached a terminal
// state and is eligible for review.
type TransactionCompletedData struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	PartyA        uuid.UUID `json:"party_a"`
	PartyB        uuid.UUID `json:"party_b"`
	Status        string    `json:"status"`
	CompletedAt   time.Time `json:"completed_at"`
}

// ReviewSubmittedData announces a new concealed review. Concealed reviews
// have no id of their own until reveal, so only the parties are carried.
type ReviewSubmittedData struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	AuthorID      uuid.UUID `json:"author_id"`
	SubjectID     uuid.UUID `json:"subject_id"`
}

// ReviewsRevealedData announces that the reviews for a transaction became
// visible, either mutually or by deadline expiry.
type ReviewsRevealedData struct {
	TransactionID uuid.UUID   `json:"transaction_id"`
	ReviewIDs     []uuid.UUID `json:"review_ids"`
	Reason        string      `json:"reason"` // mutual | deadline
	RevealedAt    time.Time   `json:"revealed_at"`
}

// RiskFlaggedData announces that a user's aggregated risk crossed a
// threshold worth acting on.
type RiskFlaggedData struct {
	UserID    uuid.UUID `json:"user_id"`
	RiskScore float64   `json:"risk_score"`
	RiskLevel string    `json:"risk_level"`
}

// ModerationRequiredData announces a detected pattern that needs a human
// decision.
type ModerationRequiredData struct {
	PatternID   uuid.UUID   `json:"pattern_id"`
	PatternType string      `json:"pattern_type"`
	Severity    string      `json:"severity"`
	UserIDs     []uuid.UUID `json:"user_ids"`
}

// ReputationUpdatedData announces a recomputed reputation score.
type ReputationUpdatedData struct {
	UserID     uuid.UUID `json:"user_id"`
	Score      float64   `json:"score"`
	TrustLevel string    `json:"trust_level"`
	UpdatedAt  time.Time `json:"updated_at"`
}
