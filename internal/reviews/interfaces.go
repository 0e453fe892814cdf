package reviews

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReviewRepository is the storage surface for revealed reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)
	ListVisibleByTarget(ctx context.Context, targetID uuid.UUID, limit, offset int) ([]*Review, int64, error)
	GetAllVisibleByTarget(ctx context.Context, targetID uuid.UUID) ([]*Review, error)
	HasReview(ctx context.Context, reviewerID, transactionID uuid.UUID) (bool, error)
	CountByReviewerSince(ctx context.Context, reviewerID uuid.UUID, since time.Time) (int, error)
	SetVisibility(ctx context.Context, id uuid.UUID, visible bool) error
	ReviewerStats(ctx context.Context, reviewerID uuid.UUID) (avgRating float64, count int, err error)
}
