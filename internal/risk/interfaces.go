package risk

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/swapgrid/trust-engine/internal/identity"
	"github.com/swapgrid/trust-engine/internal/patterns"
	"github.com/swapgrid/trust-engine/internal/tracking"
)

// PatternAnalyzer runs the per-user detectors and returns their component
// scores.
type PatternAnalyzer interface {
	AnalyzeUser(ctx context.Context, userID uuid.UUID) ([]patterns.SuspiciousPattern, patterns.ComponentScores, error)
}

// BehaviorData is the slice of tracking storage the behavior scorer reads.
type BehaviorData interface {
	GetUserDevices(ctx context.Context, userID uuid.UUID) ([]string, error)
	GetUserIPs(ctx context.Context, userID uuid.UUID) ([]*tracking.IPEvent, error)
	GetLatestLocation(ctx context.Context, userID uuid.UUID) (*tracking.LocationEvent, error)
}

// PartnerSource lists a user's distinct counterparties from done
// transactions.
type PartnerSource interface {
	GetTradingPartners(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// AccountDirectory reads profiles and flags accounts on critical findings.
type AccountDirectory interface {
	GetProfiles(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*identity.Profile, error)
	FlagAccount(ctx context.Context, userID uuid.UUID, reason string) error
}

// ModerationQueue accepts cases that need a human decision.
type ModerationQueue interface {
	Enqueue(ctx context.Context, priority int, evidence map[string]interface{}, relatedAccounts []uuid.UUID) error
}

// Publisher emits fire-and-forget domain events.
type Publisher interface {
	Publish(ctx context.Context, subject, eventType string, data interface{}) error
}

// Cache stores finished reports so repeated lookups within a short window
// skip the detectors.
type Cache interface {
	GetReport(ctx context.Context, transactionID uuid.UUID) (*Report, error)
	SetReport(ctx context.Context, report *Report, ttl time.Duration) error
}
