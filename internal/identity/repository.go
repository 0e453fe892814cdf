package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = errors.New("user not found")

// Repository reads user profiles from Postgres.
type Repository struct {
	db *pgxpool.Pool
}

var _ ProfileRepository = (*Repository)(nil)

// NewRepository creates a new identity repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const profileColumns = `
	id, email, COALESCE(phone, ''), display_name, account_type,
	identity_verified, business_verified, flagged, COALESCE(flagged_reason, ''),
	created_at
`

// GetProfile retrieves a single user profile.
func (r *Repository) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM users WHERE id = $1`

	var p Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.Email,
		&p.Phone,
		&p.DisplayName,
		&p.AccountType,
		&p.IdentityVerified,
		&p.BusinessVerified,
		&p.Flagged,
		&p.FlaggedReason,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetProfiles retrieves several profiles in one round trip. Missing ids are
// simply absent from the result map.
func (r *Repository) GetProfiles(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*Profile, error) {
	if len(userIDs) == 0 {
		return map[uuid.UUID]*Profile{}, nil
	}

	query := `SELECT ` + profileColumns + ` FROM users WHERE id = ANY($1)`

	rows, err := r.db.Query(ctx, query, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make(map[uuid.UUID]*Profile, len(userIDs))
	for rows.Next() {
		var p Profile
		err := rows.Scan(
			&p.ID,
			&p.Email,
			&p.Phone,
			&p.DisplayName,
			&p.AccountType,
			&p.IdentityVerified,
			&p.BusinessVerified,
			&p.Flagged,
			&p.FlaggedReason,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		profiles[p.ID] = &p
	}
	return profiles, rows.Err()
}

// FlagAccount marks an account for moderator attention. Re-flagging keeps
// the earliest reason.
func (r *Repository) FlagAccount(ctx context.Context, userID uuid.UUID, reason string) error {
	query := `
		UPDATE users
		SET flagged = TRUE,
		    flagged_reason = COALESCE(flagged_reason, $2),
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, userID, reason)
	if err != nil {
		return fmt.Errorf("flag account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
