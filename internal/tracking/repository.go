package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoLocation is returned when a user has no recorded location.
var ErrNoLocation = errors.New("no location recorded")

// Repository persists tracking events in Postgres.
type Repository struct {
	db *pgxpool.Pool
}

var _ TrackingRepository = (*Repository)(nil)

// NewRepository creates a new tracking repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// RecordDeviceEvent appends a device sighting.
func (r *Repository) RecordDeviceEvent(ctx context.Context, event *DeviceEvent) error {
	query := `
		INSERT INTO device_events (id, user_id, fingerprint, user_agent, platform, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		event.ID, event.UserID, event.Fingerprint,
		event.UserAgent, event.Platform, event.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("record device event: %w", err)
	}
	return nil
}

// RecordIPEvent appends an IP sighting.
func (r *Repository) RecordIPEvent(ctx context.Context, event *IPEvent) error {
	query := `
		INSERT INTO ip_events (id, user_id, ip_address, is_vpn, is_proxy, country_code, recorded_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
	`
	_, err := r.db.Exec(ctx, query,
		event.ID, event.UserID, event.IPAddress,
		event.IsVPN, event.IsProxy, event.CountryCode, event.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("record ip event: %w", err)
	}
	return nil
}

// RecordLocationEvent appends a location change.
func (r *Repository) RecordLocationEvent(ctx context.Context, event *LocationEvent) error {
	query := `
		INSERT INTO location_events (id, user_id, latitude, longitude, geocell, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		event.ID, event.UserID, event.Latitude,
		event.Longitude, event.Geocell, event.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("record location event: %w", err)
	}
	return nil
}

// GetUserDevices returns the distinct device fingerprints seen for a user.
func (r *Repository) GetUserDevices(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT fingerprint FROM device_events WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := make([]string, 0)
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, err
		}
		devices = append(devices, fp)
	}
	return devices, rows.Err()
}

// GetDeviceAccounts returns every account seen on a device with its
// first/last sighting, oldest first.
func (r *Repository) GetDeviceAccounts(ctx context.Context, fingerprint string) ([]DeviceAccountActivity, error) {
	query := `
		SELECT user_id, MIN(recorded_at), MAX(recorded_at)
		FROM device_events
		WHERE fingerprint = $1
		GROUP BY user_id
		ORDER BY MIN(recorded_at)
	`

	rows, err := r.db.Query(ctx, query, fingerprint)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]DeviceAccountActivity, 0)
	for rows.Next() {
		var a DeviceAccountActivity
		if err := rows.Scan(&a.UserID, &a.FirstSeen, &a.LastSeen); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GetUserIPs returns a user's IP sightings newest first.
func (r *Repository) GetUserIPs(ctx context.Context, userID uuid.UUID) ([]*IPEvent, error) {
	query := `
		SELECT id, user_id, host(ip_address), is_vpn, is_proxy,
		       COALESCE(country_code, ''), recorded_at
		FROM ip_events
		WHERE user_id = $1
		ORDER BY recorded_at DESC
	`
	return r.queryIPEvents(ctx, query, userID)
}

// GetIPAccounts returns every account seen on an IP with activity bounds.
func (r *Repository) GetIPAccounts(ctx context.Context, ipAddress string) ([]IPAccountActivity, error) {
	query := `
		SELECT user_id, MIN(recorded_at), MAX(recorded_at), COUNT(*)
		FROM ip_events
		WHERE ip_address = $1
		GROUP BY user_id
		ORDER BY MIN(recorded_at)
	`

	rows, err := r.db.Query(ctx, query, ipAddress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]IPAccountActivity, 0)
	for rows.Next() {
		var a IPAccountActivity
		if err := rows.Scan(&a.UserID, &a.FirstSeen, &a.LastSeen, &a.Events); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GetIPActivityWindow returns events from an IP inside a time window.
func (r *Repository) GetIPActivityWindow(ctx context.Context, ipAddress string, from, to time.Time) ([]*IPEvent, error) {
	query := `
		SELECT id, user_id, host(ip_address), is_vpn, is_proxy,
		       COALESCE(country_code, ''), recorded_at
		FROM ip_events
		WHERE ip_address = $1 AND recorded_at >= $2 AND recorded_at <= $3
		ORDER BY recorded_at
	`
	return r.queryIPEvents(ctx, query, ipAddress, from, to)
}

func (r *Repository) queryIPEvents(ctx context.Context, query string, args ...interface{}) ([]*IPEvent, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*IPEvent, 0)
	for rows.Next() {
		var e IPEvent
		err := rows.Scan(&e.ID, &e.UserID, &e.IPAddress, &e.IsVPN,
			&e.IsProxy, &e.CountryCode, &e.RecordedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// GetUserLocationHistory returns a user's location changes since a point in
// time, oldest first.
func (r *Repository) GetUserLocationHistory(ctx context.Context, userID uuid.UUID, since time.Time) ([]*LocationEvent, error) {
	query := `
		SELECT id, user_id, latitude, longitude, geocell, recorded_at
		FROM location_events
		WHERE user_id = $1 AND recorded_at >= $2
		ORDER BY recorded_at
	`
	return r.queryLocationEvents(ctx, query, userID, since)
}

// GetLatestLocation returns a user's most recent location.
func (r *Repository) GetLatestLocation(ctx context.Context, userID uuid.UUID) (*LocationEvent, error) {
	query := `
		SELECT id, user_id, latitude, longitude, geocell, recorded_at
		FROM location_events
		WHERE user_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`

	var e LocationEvent
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&e.ID, &e.UserID, &e.Latitude, &e.Longitude, &e.Geocell, &e.RecordedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoLocation
		}
		return nil, err
	}
	return &e, nil
}

// GetLocationEventsByCells returns events inside any of the given geocells
// within a time window. This is the index lookup behind coordinated-change
// detection.
func (r *Repository) GetLocationEventsByCells(ctx context.Context, cells []string, from, to time.Time) ([]*LocationEvent, error) {
	query := `
		SELECT id, user_id, latitude, longitude, geocell, recorded_at
		FROM location_events
		WHERE geocell = ANY($1) AND recorded_at >= $2 AND recorded_at <= $3
		ORDER BY recorded_at
	`
	return r.queryLocationEvents(ctx, query, cells, from, to)
}

func (r *Repository) queryLocationEvents(ctx context.Context, query string, args ...interface{}) ([]*LocationEvent, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*LocationEvent, 0)
	for rows.Next() {
		var e LocationEvent
		err := rows.Scan(&e.ID, &e.UserID, &e.Latitude, &e.Longitude,
			&e.Geocell, &e.RecordedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// PurgeOlderThan deletes tracking rows older than the cutoff across all
// three tables and reports the total rows removed. Safe to re-run.
func (r *Repository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	for _, table := range []string{"device_events", "ip_events", "location_events"} {
		tag, err := r.db.Exec(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE recorded_at < $1`, table), cutoff)
		if err != nil {
			return purged, fmt.Errorf("purge %s: %w", table, err)
		}
		purged += tag.RowsAffected()
	}
	return purged, nil
}
