package blindreview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swapgrid/trust-engine/internal/reviews"
)

var (
	// ErrKeyNotFound is returned when a transaction has no wrapped key yet.
	ErrKeyNotFound = errors.New("review key not found")
	// ErrAlreadySubmitted is returned on a duplicate concealed submission.
	ErrAlreadySubmitted = errors.New("review already submitted for this transaction")
	// ErrAlreadyRevealed is returned when the pending rows were revealed by
	// a concurrent caller.
	ErrAlreadyRevealed = errors.New("pending reviews already revealed")
)

// Repository handles pending-review and key persistence.
type Repository struct {
	db *pgxpool.Pool
}

var _ PendingStore = (*Repository)(nil)

// NewRepository creates a new blind-review repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetKey loads the wrapped data key for a transaction.
func (r *Repository) GetKey(ctx context.Context, transactionID uuid.UUID) (*keyRecord, error) {
	var rec keyRecord
	query := `SELECT transaction_id, wrapped_key, wrap_nonce FROM review_keys WHERE transaction_id = $1`
	err := r.db.QueryRow(ctx, query, transactionID).Scan(&rec.TransactionID, &rec.WrappedKey, &rec.WrapNonce)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// CreateKey stores a wrapped data key. Loses gracefully when both parties
// submit first reviews concurrently: the second insert is a no-op and the
// caller re-reads the winner's key.
func (r *Repository) CreateKey(ctx context.Context, record *keyRecord) error {
	query := `
		INSERT INTO review_keys (transaction_id, wrapped_key, wrap_nonce)
		VALUES ($1, $2, $3)
		ON CONFLICT (transaction_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, record.TransactionID, record.WrappedKey, record.WrapNonce); err != nil {
		return fmt.Errorf("create review key: %w", err)
	}
	return nil
}

// CreatePending stores one concealed submission.
func (r *Repository) CreatePending(ctx context.Context, pending *PendingReview) error {
	query := `
		INSERT INTO pending_reviews (
			transaction_id, reviewer_id, target_user_id,
			ciphertext, nonce, submitted_at, reveal_deadline
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (transaction_id, reviewer_id) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query,
		pending.TransactionID,
		pending.ReviewerID,
		pending.TargetUserID,
		pending.Ciphertext,
		pending.Nonce,
		pending.SubmittedAt,
		pending.RevealDeadline,
	)
	if err != nil {
		return fmt.Errorf("create pending review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadySubmitted
	}
	return nil
}

// GetPair returns all pending rows of a transaction.
func (r *Repository) GetPair(ctx context.Context, transactionID uuid.UUID) ([]*PendingReview, error) {
	query := `
		SELECT transaction_id, reviewer_id, target_user_id, ciphertext, nonce,
		       submitted_at, reveal_deadline, revealed, revealed_at
		FROM pending_reviews
		WHERE transaction_id = $1
		ORDER BY submitted_at
	`

	rows, err := r.db.Query(ctx, query, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pair := make([]*PendingReview, 0, 2)
	for rows.Next() {
		var p PendingReview
		err := rows.Scan(
			&p.TransactionID,
			&p.ReviewerID,
			&p.TargetUserID,
			&p.Ciphertext,
			&p.Nonce,
			&p.SubmittedAt,
			&p.RevealDeadline,
			&p.Revealed,
			&p.RevealedAt,
		)
		if err != nil {
			return nil, err
		}
		pair = append(pair, &p)
	}
	return pair, rows.Err()
}

// HasPending reports whether the reviewer already has a concealed
// submission on the transaction.
func (r *Repository) HasPending(ctx context.Context, reviewerID, transactionID uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM pending_reviews
			WHERE reviewer_id = $1 AND transaction_id = $2
		)
	`
	if err := r.db.QueryRow(ctx, query, reviewerID, transactionID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CountByReviewerSince counts concealed submissions by the reviewer after
// the given time. Unrevealed reviews still count toward the daily limit,
// otherwise the limit could be dodged by reviewing slow-to-reveal pairs.
func (r *Repository) CountByReviewerSince(ctx context.Context, reviewerID uuid.UUID, since time.Time) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM pending_reviews
		WHERE reviewer_id = $1 AND NOT revealed AND submitted_at >= $2
	`
	if err := r.db.QueryRow(ctx, query, reviewerID, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRevealedAndInsert performs the reveal transition in one database
// transaction. The revealed guard makes concurrent reveals lose cleanly
// instead of inserting duplicate reviews.
func (r *Repository) MarkRevealedAndInsert(ctx context.Context, transactionID uuid.UUID, revealed []*reviews.Review, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin reveal: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE pending_reviews
		SET revealed = TRUE, revealed_at = $2
		WHERE transaction_id = $1 AND NOT revealed
	`, transactionID, at)
	if err != nil {
		return fmt.Errorf("mark revealed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyRevealed
	}

	for _, rv := range revealed {
		_, err = tx.Exec(ctx, `
			INSERT INTO reviews (
				id, transaction_id, reviewer_id, target_user_id, rating,
				review_text, weight, is_visible, is_verified, submitted_at, revealed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (transaction_id, reviewer_id) DO NOTHING
		`,
			rv.ID,
			rv.TransactionID,
			rv.ReviewerID,
			rv.TargetUserID,
			rv.Rating,
			rv.ReviewText,
			rv.Weight,
			rv.IsVisible,
			rv.IsVerified,
			rv.SubmittedAt,
			rv.RevealedAt,
		)
		if err != nil {
			return fmt.Errorf("insert revealed review: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListExpiredTransactions returns transactions holding unrevealed pending
// reviews past their deadline.
func (r *Repository) ListExpiredTransactions(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT transaction_id
		FROM pending_reviews
		WHERE NOT revealed AND reveal_deadline <= $1
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
