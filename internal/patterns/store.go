package patterns

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists suspicious patterns in Postgres. Rows are append-only and
// removed only by the retention purge.
type Store struct {
	db *pgxpool.Pool
}

var _ PatternStore = (*Store)(nil)

// NewStore creates a pattern store.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Create appends a detected pattern.
func (s *Store) Create(ctx context.Context, pattern *SuspiciousPattern) error {
	evidenceJSON, err := json.Marshal(pattern.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	affected := make([]string, len(pattern.AffectedUsers))
	for i, u := range pattern.AffectedUsers {
		affected[i] = u.String()
	}

	query := `
		INSERT INTO suspicious_patterns (
			id, pattern_type, description, severity, affected_users, evidence, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.db.Exec(ctx, query,
		pattern.ID,
		pattern.Type,
		pattern.Description,
		pattern.Severity,
		affected,
		evidenceJSON,
		pattern.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("create pattern: %w", err)
	}
	return nil
}

// ListByUser returns patterns involving a user, newest first, with the
// total count.
func (s *Store) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*SuspiciousPattern, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM suspicious_patterns WHERE $1 = ANY(affected_users)`
	if err := s.db.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, pattern_type, description, severity, affected_users, evidence, detected_at
		FROM suspicious_patterns
		WHERE $1 = ANY(affected_users)
		ORDER BY detected_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	found := make([]*SuspiciousPattern, 0)
	for rows.Next() {
		var p SuspiciousPattern
		var evidenceJSON []byte
		var affected []string

		err := rows.Scan(&p.ID, &p.Type, &p.Description, &p.Severity,
			&affected, &evidenceJSON, &p.DetectedAt)
		if err != nil {
			return nil, 0, err
		}

		for _, str := range affected {
			if id, err := uuid.Parse(str); err == nil {
				p.AffectedUsers = append(p.AffectedUsers, id)
			}
		}
		if err := json.Unmarshal(evidenceJSON, &p.Evidence); err != nil {
			p.Evidence = make(map[string]interface{})
		}

		found = append(found, &p)
	}
	return found, total, rows.Err()
}

// PurgeOlderThan removes pattern rows past the retention window.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM suspicious_patterns WHERE detected_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge patterns: %w", err)
	}
	return tag.RowsAffected(), nil
}
