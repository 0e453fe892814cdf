package blindreview

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/swapgrid/trust-engine/internal/eligibility"
	"github.com/swapgrid/trust-engine/internal/reviews"
	"github.com/swapgrid/trust-engine/internal/risk"
	"github.com/swapgrid/trust-engine/internal/transactions"
	"github.com/swapgrid/trust-engine/internal/weighting"
)

// PendingStore is the storage surface for concealed reviews and their
// wrapped keys. Reveal is a single transaction on the storage side.
type PendingStore interface {
	GetKey(ctx context.Context, transactionID uuid.UUID) (*keyRecord, error)
	CreateKey(ctx context.Context, record *keyRecord) error
	CreatePending(ctx context.Context, pending *PendingReview) error
	GetPair(ctx context.Context, transactionID uuid.UUID) ([]*PendingReview, error)
	// MarkRevealedAndInsert flips the unrevealed pending rows of a
	// transaction and inserts the revealed reviews atomically. Returns
	// ErrAlreadyRevealed when another caller won the race.
	MarkRevealedAndInsert(ctx context.Context, transactionID uuid.UUID, revealed []*reviews.Review, at time.Time) error
	// ListExpiredTransactions returns transaction ids with at least one
	// unrevealed pending review past its deadline.
	ListExpiredTransactions(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	HasPending(ctx context.Context, reviewerID, transactionID uuid.UUID) (bool, error)
}

// EligibilityChecker gates submissions.
type EligibilityChecker interface {
	CheckEligibility(ctx context.Context, reviewerID, targetUserID, transactionID uuid.UUID) (*eligibility.Result, error)
}

// RiskAnalyzer scores the transaction before a review is accepted.
type RiskAnalyzer interface {
	AnalyzeTransactionRisk(ctx context.Context, transactionID, userA, userB uuid.UUID) (*risk.Report, error)
}

// WeightSource computes the submission-time weight input for a reviewer.
type WeightSource interface {
	WeightInput(ctx context.Context, reviewerID uuid.UUID, txn *transactions.Transaction) (weighting.Input, error)
}

// TransactionLookup resolves the transaction under review.
type TransactionLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*transactions.Transaction, error)
}

// ModerationQueue receives reviews that could not be decrypted.
type ModerationQueue interface {
	Enqueue(ctx context.Context, priority int, evidence map[string]interface{}, relatedAccounts []uuid.UUID) error
}

// Publisher emits fire-and-forget domain events.
type Publisher interface {
	Publish(ctx context.Context, subject, eventType string, data interface{}) error
}
