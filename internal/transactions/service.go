package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/pkg/eventbus"
	"github.com/swapgrid/trust-engine/pkg/logger"
)

// Publisher emits fire-and-forget domain events.
type Publisher interface {
	Publish(ctx context.Context, subject, eventType string, data interface{}) error
}

// Service owns the transaction lifecycle. State changes go through here so
// the completion event is published exactly when a transaction turns
// terminal.
type Service struct {
	repo      TransactionRepository
	publisher Publisher
	now       func() time.Time
}

// NewService creates a transaction service.
func NewService(repo TransactionRepository, publisher Publisher) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
}

// Create opens a new pending transaction between the two parties.
func (s *Service) Create(ctx context.Context, req *CreateTransactionRequest) (*Transaction, error) {
	if req.PartyA == req.PartyB {
		return nil, fmt.Errorf("a transaction needs two distinct parties")
	}

	txn := &Transaction{
		ID:             uuid.New(),
		PartyA:         req.PartyA,
		PartyB:         req.PartyB,
		Status:         StatusPending,
		EstimatedValue: req.EstimatedValue,
		InitiatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Get returns one transaction.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByUser returns a user's transactions newest first.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, int64, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// UpdateStatus moves the transaction to a new status. Reaching a terminal
// status stamps completed_at and announces the completion on the bus.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Transaction, error) {
	var completedAt *time.Time
	if status.Terminal() {
		now := s.now().UTC()
		completedAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, id, status, completedAt); err != nil {
		return nil, err
	}

	txn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if status.Terminal() {
		event := eventbus.TransactionCompletedData{
			TransactionID: txn.ID,
			PartyA:        txn.PartyA,
			PartyB:        txn.PartyB,
			Status:        string(txn.Status),
			CompletedAt:   *completedAt,
		}
		if err := s.publisher.Publish(ctx, eventbus.SubjectTransactionCompleted, "transaction.completed", event); err != nil {
			logger.WithContext(ctx).Warn("failed to publish transaction completion",
				zap.String("transaction_id", txn.ID.String()),
				zap.Error(err))
		}
	}

	return txn, nil
}

// ConfirmLocation records that both parties confirmed presence at the
// meeting point. Confirmed transactions carry more review weight.
func (s *Service) ConfirmLocation(ctx context.Context, id uuid.UUID) error {
	return s.repo.ConfirmLocation(ctx, id)
}
