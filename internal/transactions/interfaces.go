package transactions

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TransactionRepository is the storage surface the service and the trust
// components depend on.
type TransactionRepository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, completedAt *time.Time) error
	ConfirmLocation(ctx context.Context, id uuid.UUID) error
	SetRiskScore(ctx context.Context, id uuid.UUID, score float64) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, int64, error)
	CountCompletedByUser(ctx context.Context, userID uuid.UUID) (int, error)
	GetTradingPartners(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	GetCompletedEdges(ctx context.Context, since time.Time) ([]Edge, error)
}
