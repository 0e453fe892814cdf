package tracking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TrackingRepository is the storage surface for device, IP and location
// events. The pattern detectors read through it; the sweeper purges
// through it.
type TrackingRepository interface {
	RecordDeviceEvent(ctx context.Context, event *DeviceEvent) error
	RecordIPEvent(ctx context.Context, event *IPEvent) error
	RecordLocationEvent(ctx context.Context, event *LocationEvent) error

	GetUserDevices(ctx context.Context, userID uuid.UUID) ([]string, error)
	GetDeviceAccounts(ctx context.Context, fingerprint string) ([]DeviceAccountActivity, error)

	GetUserIPs(ctx context.Context, userID uuid.UUID) ([]*IPEvent, error)
	GetIPAccounts(ctx context.Context, ipAddress string) ([]IPAccountActivity, error)
	GetIPActivityWindow(ctx context.Context, ipAddress string, from, to time.Time) ([]*IPEvent, error)

	GetUserLocationHistory(ctx context.Context, userID uuid.UUID, since time.Time) ([]*LocationEvent, error)
	GetLatestLocation(ctx context.Context, userID uuid.UUID) (*LocationEvent, error)
	GetLocationEventsByCells(ctx context.Context, cells []string, from, to time.Time) ([]*LocationEvent, error)

	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
