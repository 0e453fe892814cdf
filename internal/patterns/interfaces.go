package patterns

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/swapgrid/trust-engine/internal/tracking"
	"github.com/swapgrid/trust-engine/internal/transactions"
)

// DeviceData is the tracking slice the device detector reads.
type DeviceData interface {
	GetUserDevices(ctx context.Context, userID uuid.UUID) ([]string, error)
	GetDeviceAccounts(ctx context.Context, fingerprint string) ([]tracking.DeviceAccountActivity, error)
}

// IPData is the tracking slice the IP detector reads.
type IPData interface {
	GetUserIPs(ctx context.Context, userID uuid.UUID) ([]*tracking.IPEvent, error)
	GetIPAccounts(ctx context.Context, ipAddress string) ([]tracking.IPAccountActivity, error)
	GetIPActivityWindow(ctx context.Context, ipAddress string, from, to time.Time) ([]*tracking.IPEvent, error)
}

// LocationData is the tracking slice the location detector reads.
type LocationData interface {
	GetUserLocationHistory(ctx context.Context, userID uuid.UUID, since time.Time) ([]*tracking.LocationEvent, error)
	GetLatestLocation(ctx context.Context, userID uuid.UUID) (*tracking.LocationEvent, error)
	GetLocationEventsByCells(ctx context.Context, cells []string, from, to time.Time) ([]*tracking.LocationEvent, error)
}

// TradeGraph is the transaction slice the ring detector reads.
type TradeGraph interface {
	GetCompletedEdges(ctx context.Context, since time.Time) ([]transactions.Edge, error)
}

// PatternStore persists and lists detector findings.
type PatternStore interface {
	Create(ctx context.Context, pattern *SuspiciousPattern) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*SuspiciousPattern, int64, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Detector is the shape all three analyzers share: findings plus the
// severity-weighted component score for one user.
type Detector interface {
	Analyze(ctx context.Context, userID uuid.UUID) ([]SuspiciousPattern, float64, error)
}
