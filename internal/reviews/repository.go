package reviews

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a review does not exist.
var ErrNotFound = errors.New("review not found")

// Repository handles review persistence.
type Repository struct {
	db *pgxpool.Pool
}

var _ ReviewRepository = (*Repository)(nil)

// NewRepository creates a new review repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const reviewColumns = `id, transaction_id, reviewer_id, target_user_id, rating,
       review_text, weight, is_visible, is_verified, submitted_at, revealed_at`

// Create inserts a revealed review.
func (r *Repository) Create(ctx context.Context, review *Review) error {
	query := `
		INSERT INTO reviews (
			id, transaction_id, reviewer_id, target_user_id, rating,
			review_text, weight, is_visible, is_verified, submitted_at, revealed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		review.ID,
		review.TransactionID,
		review.ReviewerID,
		review.TargetUserID,
		review.Rating,
		review.ReviewText,
		review.Weight,
		review.IsVisible,
		review.IsVerified,
		review.SubmittedAt,
		review.RevealedAt,
	)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func scanReview(row pgx.Row) (*Review, error) {
	var rv Review
	err := row.Scan(
		&rv.ID,
		&rv.TransactionID,
		&rv.ReviewerID,
		&rv.TargetUserID,
		&rv.Rating,
		&rv.ReviewText,
		&rv.Weight,
		&rv.IsVisible,
		&rv.IsVerified,
		&rv.SubmittedAt,
		&rv.RevealedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rv, nil
}

// GetByID retrieves a review by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`
	return scanReview(r.db.QueryRow(ctx, query, id))
}

// ListVisibleByTarget returns a page of visible reviews about a user,
// newest reveal first, with the total count.
func (r *Repository) ListVisibleByTarget(ctx context.Context, targetID uuid.UUID, limit, offset int) ([]*Review, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM reviews WHERE target_user_id = $1 AND is_visible`
	if err := r.db.QueryRow(ctx, countQuery, targetID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE target_user_id = $1 AND is_visible
		ORDER BY revealed_at DESC NULLS LAST
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, targetID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*Review, 0)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rv)
	}
	return out, total, rows.Err()
}

// GetAllVisibleByTarget returns every visible review about a user. The
// reputation calculator consumes this.
func (r *Repository) GetAllVisibleByTarget(ctx context.Context, targetID uuid.UUID) ([]*Review, error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE target_user_id = $1 AND is_visible
		ORDER BY submitted_at
	`

	rows, err := r.db.Query(ctx, query, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Review, 0)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// HasReview reports whether the reviewer already has a revealed review on
// the transaction.
func (r *Repository) HasReview(ctx context.Context, reviewerID, transactionID uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reviews
			WHERE reviewer_id = $1 AND transaction_id = $2
		)
	`
	if err := r.db.QueryRow(ctx, query, reviewerID, transactionID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CountByReviewerSince counts reviews a user authored after the given time.
func (r *Repository) CountByReviewerSince(ctx context.Context, reviewerID uuid.UUID, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM reviews WHERE reviewer_id = $1 AND submitted_at >= $2`
	if err := r.db.QueryRow(ctx, query, reviewerID, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// SetVisibility applies a moderator override.
func (r *Repository) SetVisibility(ctx context.Context, id uuid.UUID, visible bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE reviews SET is_visible = $2 WHERE id = $1`, id, visible)
	if err != nil {
		return fmt.Errorf("set review visibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReviewerStats returns the average rating and count of visible reviews a
// user has received. The weighting engine's trusted-reviewer modifier reads
// this.
func (r *Repository) ReviewerStats(ctx context.Context, reviewerID uuid.UUID) (float64, int, error) {
	var avg float64
	var count int
	query := `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews
		WHERE target_user_id = $1 AND is_visible
	`
	if err := r.db.QueryRow(ctx, query, reviewerID).Scan(&avg, &count); err != nil {
		return 0, 0, err
	}
	return avg, count, nil
}
