package reputation

import (
	"context"

	"github.com/google/uuid"

	"github.com/swapgrid/trust-engine/internal/identity"
	"github.com/swapgrid/trust-engine/internal/reviews"
)

// ScoreStore is the persistence surface the service needs.
type ScoreStore interface {
	Upsert(ctx context.Context, score *Score) error
	Get(ctx context.Context, userID uuid.UUID) (*Score, error)
	TradeStats(ctx context.Context, userID uuid.UUID) (TradeStats, error)
	ListUserIDsAfter(ctx context.Context, cursor uuid.UUID, limit int) ([]uuid.UUID, error)
}

// ReviewSource supplies the visible reviews about a user.
type ReviewSource interface {
	GetAllVisibleByTarget(ctx context.Context, targetID uuid.UUID) ([]*reviews.Review, error)
}

// ProfileSource resolves the profile flags the calculator and badges read.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*identity.Profile, error)
}

// Publisher emits fire-and-forget domain events.
type Publisher interface {
	Publish(ctx context.Context, subject, eventType string, data interface{}) error
}

var _ ScoreStore = (*Repository)(nil)
