package moderation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrNotFound is returned when a moderation case does not exist.
var ErrNotFound = errors.New("moderation case not found")

// Repository handles moderation-queue persistence. It runs over
// database/sql so the moderation tooling can share the connection with
// external report jobs.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new moderation repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new open case.
func (r *Repository) Create(ctx context.Context, item *Item) error {
	evidence, err := json.Marshal(item.Evidence)
	if err != nil {
		return fmt.Errorf("encode evidence: %w", err)
	}

	related := make(pq.StringArray, 0, len(item.RelatedAccounts))
	for _, id := range item.RelatedAccounts {
		related = append(related, id.String())
	}

	query := `
		INSERT INTO moderation_queue (
			id, priority, reason, evidence, related_accounts, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.ExecContext(ctx, query,
		item.ID,
		item.Priority,
		item.Reason,
		evidence,
		related,
		item.Status,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create moderation case: %w", err)
	}
	return nil
}

func scanItem(scan func(dest ...interface{}) error) (*Item, error) {
	var item Item
	var evidence []byte
	var related pq.StringArray
	var resolvedBy sql.NullString
	var resolution sql.NullString
	var resolvedAt sql.NullTime

	err := scan(
		&item.ID,
		&item.Priority,
		&item.Reason,
		&evidence,
		&related,
		&item.Status,
		&resolvedBy,
		&resolution,
		&item.CreatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &item.Evidence); err != nil {
			return nil, fmt.Errorf("decode evidence: %w", err)
		}
	}
	for _, raw := range related {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("decode related account: %w", err)
		}
		item.RelatedAccounts = append(item.RelatedAccounts, id)
	}
	if resolvedBy.Valid {
		id, err := uuid.Parse(resolvedBy.String)
		if err != nil {
			return nil, fmt.Errorf("decode resolver: %w", err)
		}
		item.ResolvedBy = &id
	}
	if resolution.Valid {
		item.Resolution = resolution.String
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		item.ResolvedAt = &t
	}
	return &item, nil
}

const itemColumns = `id, priority, reason, evidence, related_accounts, status,
       resolved_by, resolution, created_at, resolved_at`

// GetByID loads one case.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM moderation_queue WHERE id = $1`
	item, err := scanItem(r.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

// ListOpen returns open cases, highest priority first, with the total.
func (r *Repository) ListOpen(ctx context.Context, limit, offset int) ([]*Item, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM moderation_queue WHERE status = 'open'`
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + itemColumns + `
		FROM moderation_queue
		WHERE status = 'open'
		ORDER BY priority DESC, created_at
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]*Item, 0)
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// Resolve closes a case. Already-resolved cases are left untouched.
func (r *Repository) Resolve(ctx context.Context, id, resolvedBy uuid.UUID, resolution string, at time.Time) error {
	query := `
		UPDATE moderation_queue
		SET status = 'resolved', resolved_by = $2, resolution = $3, resolved_at = $4
		WHERE id = $1 AND status <> 'resolved'
	`
	result, err := r.db.ExecContext(ctx, query, id, resolvedBy, resolution, at)
	if err != nil {
		return fmt.Errorf("resolve moderation case: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
