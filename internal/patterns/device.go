package patterns

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swapgrid/trust-engine/internal/tracking"
)

const (
	maxDevicesPerUser   = 5
	rapidCreationPerDay = 1.0
)

// DeviceDetector flags multi-device users, shared devices and rapid
// account creation bursts from one fingerprint.
type DeviceDetector struct {
	data DeviceData
}

var _ Detector = (*DeviceDetector)(nil)

// NewDeviceDetector creates a device detector.
func NewDeviceDetector(data DeviceData) *DeviceDetector {
	return &DeviceDetector{data: data}
}

// Analyze inspects a user's device footprint and returns the findings with
// the severity-weighted device risk score.
func (d *DeviceDetector) Analyze(ctx context.Context, userID uuid.UUID) ([]SuspiciousPattern, float64, error) {
	devices, err := d.data.GetUserDevices(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("get user devices: %w", err)
	}

	found := make([]SuspiciousPattern, 0)
	now := time.Now().UTC()

	if len(devices) > maxDevicesPerUser {
		found = append(found, SuspiciousPattern{
			ID:            uuid.New(),
			Type:          TypeMultipleAccounts,
			Description:   fmt.Sprintf("user active on %d distinct devices", len(devices)),
			Severity:      SeverityMedium,
			AffectedUsers: []uuid.UUID{userID},
			Evidence: map[string]interface{}{
				"device_count": len(devices),
			},
			DetectedAt: now,
		})
	}

	for _, fingerprint := range devices {
		accounts, err := d.data.GetDeviceAccounts(ctx, fingerprint)
		if err != nil {
			return nil, 0, fmt.Errorf("get device accounts: %w", err)
		}
		if len(accounts) > 1 {
			found = append(found, deviceSharingPattern(fingerprint, accounts, now))
		}
		if p, ok := rapidAccountCreationPattern(fingerprint, accounts, now); ok {
			found = append(found, p)
		}
	}

	return found, WeightedScore(found), nil
}

func deviceSharingPattern(fingerprint string, accounts []tracking.DeviceAccountActivity, now time.Time) SuspiciousPattern {
	n := len(accounts)
	severity := SeverityMedium
	switch {
	case n > 5:
		severity = SeverityCritical
	case n >= 4:
		severity = SeverityHigh
	}

	users := make([]uuid.UUID, 0, n)
	for _, a := range accounts {
		users = append(users, a.UserID)
	}

	return SuspiciousPattern{
		ID:            uuid.New(),
		Type:          TypeDeviceSharing,
		Description:   fmt.Sprintf("%d accounts share device %s", n, fingerprint),
		Severity:      severity,
		AffectedUsers: users,
		Evidence: map[string]interface{}{
			"fingerprint":   fingerprint,
			"account_count": n,
		},
		DetectedAt: now,
	}
}

// rapidAccountCreationPattern flags a device whose accounts appeared faster
// than one per day.
func rapidAccountCreationPattern(fingerprint string, accounts []tracking.DeviceAccountActivity, now time.Time) (SuspiciousPattern, bool) {
	if len(accounts) < 2 {
		return SuspiciousPattern{}, false
	}

	first := accounts[0].FirstSeen
	last := accounts[0].FirstSeen
	users := make([]uuid.UUID, 0, len(accounts))
	for _, a := range accounts {
		if a.FirstSeen.Before(first) {
			first = a.FirstSeen
		}
		if a.FirstSeen.After(last) {
			last = a.FirstSeen
		}
		users = append(users, a.UserID)
	}

	days := last.Sub(first).Hours() / 24
	if days < 1 {
		days = 1
	}
	accountsPerDay := float64(len(accounts)) / days
	if accountsPerDay <= rapidCreationPerDay {
		return SuspiciousPattern{}, false
	}

	severity := SeverityMedium
	switch {
	case accountsPerDay > 5:
		severity = SeverityCritical
	case accountsPerDay > 2:
		severity = SeverityHigh
	}

	return SuspiciousPattern{
		ID:            uuid.New(),
		Type:          TypeRapidAccountCreation,
		Description:   fmt.Sprintf("device %s created %.1f accounts/day", fingerprint, accountsPerDay),
		Severity:      severity,
		AffectedUsers: users,
		Evidence: map[string]interface{}{
			"fingerprint":      fingerprint,
			"accounts_per_day": accountsPerDay,
			"account_count":    len(accounts),
		},
		DetectedAt: now,
	}, true
}
