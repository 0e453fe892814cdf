package patterns

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapgrid/trust-engine/internal/tracking"
)

type stubIPData struct {
	events   map[uuid.UUID][]*tracking.IPEvent
	accounts map[string][]tracking.IPAccountActivity
	windows  map[string][]*tracking.IPEvent
}

func (s *stubIPData) GetUserIPs(_ context.Context, userID uuid.UUID) ([]*tracking.IPEvent, error) {
	return s.events[userID], nil
}

func (s *stubIPData) GetIPAccounts(_ context.Context, ipAddress string) ([]tracking.IPAccountActivity, error) {
	return s.accounts[ipAddress], nil
}

func (s *stubIPData) GetIPActivityWindow(_ context.Context, ipAddress string, _, _ time.Time) ([]*tracking.IPEvent, error) {
	return s.windows[ipAddress], nil
}

func ipEvents(userID uuid.UUID, addr string, masked bool, n int) []*tracking.IPEvent {
	out := make([]*tracking.IPEvent, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &tracking.IPEvent{
			ID:         uuid.New(),
			UserID:     userID,
			IPAddress:  addr,
			IsVPN:      masked,
			RecordedAt: time.Now().Add(-time.Duration(i) * time.Hour),
		})
	}
	return out
}

func TestIPDetector_CleanUser(t *testing.T) {
	userID := uuid.New()
	data := &stubIPData{
		events: map[uuid.UUID][]*tracking.IPEvent{
			userID: ipEvents(userID, "203.0.113.7", false, 4),
		},
		accounts: map[string][]tracking.IPAccountActivity{
			"203.0.113.7": {{UserID: userID, Events: 4}},
		},
		windows: map[string][]*tracking.IPEvent{},
	}

	found, score, err := NewIPDetector(data).Analyze(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Zero(t, score)
}

func TestIPDetector_VPNUsage(t *testing.T) {
	userID := uuid.New()
	events := append(
		ipEvents(userID, "203.0.113.7", true, 3),
		ipEvents(userID, "203.0.113.8", false, 2)...,
	)
	data := &stubIPData{
		events: map[uuid.UUID][]*tracking.IPEvent{userID: events},
		accounts: map[string][]tracking.IPAccountActivity{
			"203.0.113.7": {{UserID: userID}},
			"203.0.113.8": {{UserID: userID}},
		},
		windows: map[string][]*tracking.IPEvent{},
	}

	found, score, err := NewIPDetector(data).Analyze(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, TypeVPNUsage, found[0].Type)
	assert.Equal(t, SeverityLow, found[0].Severity)
	assert.Greater(t, score, 0.0)
}

func TestIPDetector_SharedIPSeverityScalesWithAccounts(t *testing.T) {
	userID := uuid.New()
	shared := make([]tracking.IPAccountActivity, 0, 6)
	for i := 0; i < 6; i++ {
		shared = append(shared, tracking.IPAccountActivity{UserID: uuid.New()})
	}
	data := &stubIPData{
		events: map[uuid.UUID][]*tracking.IPEvent{
			userID: ipEvents(userID, "198.51.100.1", false, 2),
		},
		accounts: map[string][]tracking.IPAccountActivity{
			"198.51.100.1": shared,
		},
		windows: map[string][]*tracking.IPEvent{},
	}

	found, _, err := NewIPDetector(data).Analyze(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, TypeIPSharing, found[0].Type)
	assert.Equal(t, SeverityCritical, found[0].Severity)
	assert.Len(t, found[0].AffectedUsers, 6)
}

func TestIPDetector_CoordinatedBurst(t *testing.T) {
	userID := uuid.New()
	base := time.Now().Add(-2 * time.Hour)

	// Five distinct accounts inside a 30 minute span.
	burst := make([]*tracking.IPEvent, 0, 5)
	for i := 0; i < 5; i++ {
		burst = append(burst, &tracking.IPEvent{
			ID:         uuid.New(),
			UserID:     uuid.New(),
			IPAddress:  "198.51.100.9",
			RecordedAt: base.Add(time.Duration(i*6) * time.Minute),
		})
	}

	data := &stubIPData{
		events: map[uuid.UUID][]*tracking.IPEvent{
			userID: ipEvents(userID, "198.51.100.9", false, 1),
		},
		accounts: map[string][]tracking.IPAccountActivity{
			"198.51.100.9": {{UserID: userID}},
		},
		windows: map[string][]*tracking.IPEvent{
			"198.51.100.9": burst,
		},
	}

	found, _, err := NewIPDetector(data).Analyze(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, TypeCoordinatedAttack, found[0].Type)
	assert.Equal(t, SeverityCritical, found[0].Severity)
	assert.Len(t, found[0].AffectedUsers, 5)
}

func TestIPDetector_SpreadOutActivityNotCoordinated(t *testing.T) {
	userID := uuid.New()
	base := time.Now().Add(-20 * time.Hour)

	// Five accounts, each four hours apart: never three in one hour.
	spread := make([]*tracking.IPEvent, 0, 5)
	for i := 0; i < 5; i++ {
		spread = append(spread, &tracking.IPEvent{
			ID:         uuid.New(),
			UserID:     uuid.New(),
			IPAddress:  "198.51.100.4",
			RecordedAt: base.Add(time.Duration(i*4) * time.Hour),
		})
	}

	data := &stubIPData{
		events: map[uuid.UUID][]*tracking.IPEvent{
			userID: ipEvents(userID, "198.51.100.4", false, 1),
		},
		accounts: map[string][]tracking.IPAccountActivity{
			"198.51.100.4": {{UserID: userID}},
		},
		windows: map[string][]*tracking.IPEvent{
			"198.51.100.4": spread,
		},
	}

	found, _, err := NewIPDetector(data).Analyze(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, found)
}
