package reputation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a user has no stored reputation score.
var ErrNotFound = errors.New("reputation score not found")

// Repository handles reputation persistence and the trade-history
// aggregates the calculator consumes.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new reputation repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Upsert stores a recomputed score.
func (r *Repository) Upsert(ctx context.Context, score *Score) error {
	query := `
		INSERT INTO reputation_scores (
			user_id, average_rating, total_reviews, verified_reviews,
			trade_diversity_score, trust_level, badges, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			average_rating = EXCLUDED.average_rating,
			total_reviews = EXCLUDED.total_reviews,
			verified_reviews = EXCLUDED.verified_reviews,
			trade_diversity_score = EXCLUDED.trade_diversity_score,
			trust_level = EXCLUDED.trust_level,
			badges = EXCLUDED.badges,
			last_updated = EXCLUDED.last_updated
	`

	_, err := r.db.Exec(ctx, query,
		score.UserID,
		score.AverageRating,
		score.TotalReviews,
		score.VerifiedReviews,
		score.TradeDiversityScore,
		score.TrustLevel,
		score.Badges,
		score.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert reputation score: %w", err)
	}
	return nil
}

// Get loads a user's stored score.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*Score, error) {
	query := `
		SELECT user_id, average_rating, total_reviews, verified_reviews,
		       trade_diversity_score, trust_level, badges, last_updated
		FROM reputation_scores
		WHERE user_id = $1
	`

	var s Score
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&s.AverageRating,
		&s.TotalReviews,
		&s.VerifiedReviews,
		&s.TradeDiversityScore,
		&s.TrustLevel,
		&s.Badges,
		&s.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// TradeStats aggregates a user's completed, disputed and per-counterparty
// trade history in one query.
func (r *Repository) TradeStats(ctx context.Context, userID uuid.UUID) (TradeStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'done'),
			COUNT(DISTINCT CASE WHEN party_a = $1 THEN party_b ELSE party_a END)
				FILTER (WHERE status = 'done'),
			COUNT(*) FILTER (WHERE status IN ('disputed', 'scam')),
			COALESCE(EXTRACT(EPOCH FROM AVG(completed_at - initiated_at)
				FILTER (WHERE status = 'done')) / 3600, 0)
		FROM transactions
		WHERE party_a = $1 OR party_b = $1
	`

	var stats TradeStats
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&stats.CompletedTrades,
		&stats.UniqueCounterparts,
		&stats.DisputedTrades,
		&stats.AvgCompletionHours,
	)
	if err != nil {
		return stats, fmt.Errorf("load trade stats: %w", err)
	}
	return stats, nil
}

// ListUserIDsAfter pages user ids in id order for resumable full
// recomputes.
func (r *Repository) ListUserIDsAfter(ctx context.Context, cursor uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM users
		WHERE id > $1
		ORDER BY id
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0, limit)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
