package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a transaction does not exist.
var ErrNotFound = errors.New("transaction not found")

// Repository handles transaction persistence.
type Repository struct {
	db *pgxpool.Pool
}

var _ TransactionRepository = (*Repository)(nil)

// NewRepository creates a new transaction repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new transaction.
func (r *Repository) Create(ctx context.Context, txn *Transaction) error {
	query := `
		INSERT INTO transactions (
			id, party_a, party_b, status, estimated_value,
			location_confirmed, initiated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		txn.ID,
		txn.PartyA,
		txn.PartyB,
		txn.Status,
		txn.EstimatedValue,
		txn.LocationConfirmed,
		txn.InitiatedAt,
	)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	query := `
		SELECT id, party_a, party_b, status, estimated_value,
		       location_confirmed, risk_score, initiated_at, completed_at
		FROM transactions
		WHERE id = $1
	`

	var txn Transaction
	err := r.db.QueryRow(ctx, query, id).Scan(
		&txn.ID,
		&txn.PartyA,
		&txn.PartyB,
		&txn.Status,
		&txn.EstimatedValue,
		&txn.LocationConfirmed,
		&txn.RiskScore,
		&txn.InitiatedAt,
		&txn.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &txn, nil
}

// UpdateStatus moves a transaction to a new status. Transactions already in
// a terminal status are left untouched.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, completedAt *time.Time) error {
	query := `
		UPDATE transactions
		SET status = $2,
		    completed_at = COALESCE($3, completed_at)
		WHERE id = $1
		  AND status NOT IN ('done', 'cancelled', 'expired', 'no_deal', 'scam')
	`

	tag, err := r.db.Exec(ctx, query, id, status, completedAt)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ConfirmLocation marks the transaction as location-confirmed by both
// parties.
func (r *Repository) ConfirmLocation(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions SET location_confirmed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("confirm location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRiskScore records the latest computed risk score on the transaction.
func (r *Repository) SetRiskScore(ctx context.Context, id uuid.UUID, score float64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE transactions SET risk_score = $2 WHERE id = $1`, id, score)
	if err != nil {
		return fmt.Errorf("set risk score: %w", err)
	}
	return nil
}

// ListByUser returns a user's transactions newest first with the total count.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM transactions WHERE party_a = $1 OR party_b = $1`
	if err := r.db.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, party_a, party_b, status, estimated_value,
		       location_confirmed, risk_score, initiated_at, completed_at
		FROM transactions
		WHERE party_a = $1 OR party_b = $1
		ORDER BY initiated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	txns := make([]*Transaction, 0)
	for rows.Next() {
		var txn Transaction
		err := rows.Scan(
			&txn.ID,
			&txn.PartyA,
			&txn.PartyB,
			&txn.Status,
			&txn.EstimatedValue,
			&txn.LocationConfirmed,
			&txn.RiskScore,
			&txn.InitiatedAt,
			&txn.CompletedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		txns = append(txns, &txn)
	}

	return txns, total, rows.Err()
}

// CountCompletedByUser counts a user's done transactions.
func (r *Repository) CountCompletedByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM transactions
		WHERE (party_a = $1 OR party_b = $1) AND status = 'done'
	`
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetTradingPartners returns the distinct counterparties of a user's done
// transactions.
func (r *Repository) GetTradingPartners(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT CASE WHEN party_a = $1 THEN party_b ELSE party_a END
		FROM transactions
		WHERE (party_a = $1 OR party_b = $1) AND status = 'done'
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	partners := make([]uuid.UUID, 0)
	for rows.Next() {
		var partner uuid.UUID
		if err := rows.Scan(&partner); err != nil {
			return nil, err
		}
		partners = append(partners, partner)
	}
	return partners, rows.Err()
}

// GetCompletedEdges returns the aggregated done-transaction pairs since the
// given time, feeding the trading-graph analysis.
func (r *Repository) GetCompletedEdges(ctx context.Context, since time.Time) ([]Edge, error) {
	query := `
		SELECT party_a, party_b, COUNT(*)
		FROM transactions
		WHERE status = 'done' AND completed_at >= $1
		GROUP BY party_a, party_b
	`

	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := make([]Edge, 0)
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.From, &e.To, &e.Count); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
