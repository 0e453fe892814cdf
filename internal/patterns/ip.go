package patterns

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swapgrid/trust-engine/internal/tracking"
)

const (
	coordinatedAttackWindow   = time.Hour
	coordinatedAttackAccounts = 3
	coordinatedAttackCritical = 5
	vpnUsageRatio             = 0.5
)

// IPDetector flags VPN/proxy reliance, shared IPs and coordinated bursts
// of activity from one address.
type IPDetector struct {
	data IPData
}

var _ Detector = (*IPDetector)(nil)

// NewIPDetector creates an IP detector.
func NewIPDetector(data IPData) *IPDetector {
	return &IPDetector{data: data}
}

// Analyze inspects a user's IP footprint and returns the findings with the
// severity-weighted IP risk score.
func (d *IPDetector) Analyze(ctx context.Context, userID uuid.UUID) ([]SuspiciousPattern, float64, error) {
	events, err := d.data.GetUserIPs(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("get user ips: %w", err)
	}

	found := make([]SuspiciousPattern, 0)
	now := time.Now().UTC()

	if p, ok := vpnUsagePattern(userID, events, now); ok {
		found = append(found, p)
	}

	seen := make(map[string]bool)
	for _, e := range events {
		if seen[e.IPAddress] {
			continue
		}
		seen[e.IPAddress] = true

		accounts, err := d.data.GetIPAccounts(ctx, e.IPAddress)
		if err != nil {
			return nil, 0, fmt.Errorf("get ip accounts: %w", err)
		}
		if len(accounts) > 1 {
			found = append(found, ipSharingPattern(e.IPAddress, accounts, now))
		}

		if p, ok, err := d.coordinatedAttackPattern(ctx, e.IPAddress, now); err != nil {
			return nil, 0, err
		} else if ok {
			found = append(found, p)
		}
	}

	return found, WeightedScore(found), nil
}

// vpnUsagePattern flags a user when at least half of their sightings came
// through a VPN or proxy.
func vpnUsagePattern(userID uuid.UUID, events []*tracking.IPEvent, now time.Time) (SuspiciousPattern, bool) {
	if len(events) == 0 {
		return SuspiciousPattern{}, false
	}
	masked := 0
	for _, e := range events {
		if e.IsVPN || e.IsProxy {
			masked++
		}
	}
	ratio := float64(masked) / float64(len(events))
	if ratio < vpnUsageRatio {
		return SuspiciousPattern{}, false
	}

	return SuspiciousPattern{
		ID:            uuid.New(),
		Type:          TypeVPNUsage,
		Description:   fmt.Sprintf("%.0f%% of sightings used a VPN or proxy", ratio*100),
		Severity:      SeverityLow,
		AffectedUsers: []uuid.UUID{userID},
		Evidence: map[string]interface{}{
			"masked_events": masked,
			"total_events":  len(events),
		},
		DetectedAt: now,
	}, true
}

func ipSharingPattern(ipAddress string, accounts []tracking.IPAccountActivity, now time.Time) SuspiciousPattern {
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
		Type:          TypeIPSharing,
		Description:   fmt.Sprintf("%d accounts share IP %s", n, ipAddress),
		Severity:      severity,
		AffectedUsers: users,
		Evidence: map[string]interface{}{
			"ip_address":    ipAddress,
			"account_count": n,
		},
		DetectedAt: now,
	}
}

// coordinatedAttackPattern looks at the last 24h of activity on an address
// and flags any rolling one-hour window in which several distinct accounts
// acted together.
func (d *IPDetector) coordinatedAttackPattern(ctx context.Context, ipAddress string, now time.Time) (SuspiciousPattern, bool, error) {
	events, err := d.data.GetIPActivityWindow(ctx, ipAddress, now.Add(-24*time.Hour), now)
	if err != nil {
		return SuspiciousPattern{}, false, fmt.Errorf("get ip activity window: %w", err)
	}
	if len(events) < coordinatedAttackAccounts {
		return SuspiciousPattern{}, false, nil
	}

	// Events arrive ordered by time; slide a one-hour window over them.
	var best []uuid.UUID
	start := 0
	for end := range events {
		for events[end].RecordedAt.Sub(events[start].RecordedAt) > coordinatedAttackWindow {
			start++
		}
		users := distinctUsers(events[start : end+1])
		if len(users) > len(best) {
			best = users
		}
	}
	if len(best) < coordinatedAttackAccounts {
		return SuspiciousPattern{}, false, nil
	}

	severity := SeverityHigh
	if len(best) >= coordinatedAttackCritical {
		severity = SeverityCritical
	}

	return SuspiciousPattern{
		ID:            uuid.New(),
		Type:          TypeCoordinatedAttack,
		Description:   fmt.Sprintf("%d accounts active from IP %s within one hour", len(best), ipAddress),
		Severity:      severity,
		AffectedUsers: best,
		Evidence: map[string]interface{}{
			"ip_address":    ipAddress,
			"account_count": len(best),
			"window_hours":  1,
		},
		DetectedAt: now,
	}, true, nil
}

func distinctUsers(events []*tracking.IPEvent) []uuid.UUID {
	set := make(map[uuid.UUID]bool)
	users := make([]uuid.UUID, 0)
	for _, e := range events {
		if !set[e.UserID] {
			set[e.UserID] = true
			users = append(users, e.UserID)
		}
	}
	return users
}
