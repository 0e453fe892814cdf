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

type stubDeviceData struct {
	devices  map[uuid.UUID][]string
	accounts map[string][]tracking.DeviceAccountActivity
}

func (s *stubDeviceData) GetUserDevices(_ context.Context, userID uuid.UUID) ([]string, error) {
	return s.devices[userID], nil
}

func (s *stubDeviceData) GetDeviceAccounts(_ context.Context, fingerprint string) ([]tracking.DeviceAccountActivity, error) {
	return s.accounts[fingerprint], nil
}

func accountsAt(times ...time.Time) []tracking.DeviceAccountActivity {
	out := make([]tracking.DeviceAccountActivity, 0, len(times))
	for _, ts := range times {
		out = append(out, tracking.DeviceAccountActivity{
			UserID:    uuid.New(),
			FirstSeen: ts,
			LastSeen:  ts.Add(time.Hour),
		})
	}
	return out
}

func TestDeviceDetector_CleanUser(t *testing.T) {
	userID := uuid.New()
	data := &stubDeviceData{
		devices: map[uuid.UUID][]string{userID: {"fp-1"}},
		accounts: map[string][]tracking.DeviceAccountActivity{
			"fp-1": accountsAt(time.Now().Add(-60 * 24 * time.Hour)),
		},
	}

	found, score, err := NewDeviceDetector(data).Analyze(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Zero(t, score)
}

func TestDeviceDetector_TooManyDevices(t *testing.T) {
	userID := uuid.New()
	devices := []string{"fp-1", "fp-2", "fp-3", "fp-4", "fp-5", "fp-6"}
	accounts := make(map[string][]tracking.DeviceAccountActivity)
	for _, fp := range devices {
		accounts[fp] = accountsAt(time.Now().Add(-90 * 24 * time.Hour))
	}
	data := &stubDeviceData{
		devices:  map[uuid.UUID][]string{userID: devices},
		accounts: accounts,
	}

	found, score, err := NewDeviceDetector(data).Analyze(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, TypeMultipleAccounts, found[0].Type)
	assert.Equal(t, SeverityMedium, found[0].Severity)
	assert.InDelta(t, 0.4, score, 1e-9)
}

func TestDeviceDetector_DeviceSharingSeverity(t *testing.T) {
	tests := []struct {
		name     string
		accounts int
		severity Severity
	}{
		{"two accounts", 2, SeverityMedium},
		{"three accounts", 3, SeverityMedium},
		{"four accounts", 4, SeverityHigh},
		{"five accounts", 5, SeverityHigh},
		{"six accounts", 6, SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID := uuid.New()
			// Spread first-seen times out so only sharing fires.
			times := make([]time.Time, 0, tt.accounts)
			base := time.Now().Add(-400 * 24 * time.Hour)
			for i := 0; i < tt.accounts; i++ {
				times = append(times, base.AddDate(0, 0, i*30))
			}
			data := &stubDeviceData{
				devices:  map[uuid.UUID][]string{userID: {"shared"}},
				accounts: map[string][]tracking.DeviceAccountActivity{"shared": accountsAt(times...)},
			}

			found, _, err := NewDeviceDetector(data).Analyze(context.Background(), userID)
			require.NoError(t, err)
			require.Len(t, found, 1)
			assert.Equal(t, TypeDeviceSharing, found[0].Type)
			assert.Equal(t, tt.severity, found[0].Severity)
			assert.Len(t, found[0].AffectedUsers, tt.accounts)
		})
	}
}

func TestDeviceDetector_RapidAccountCreation(t *testing.T) {
	// Three accounts appearing on one device within a single day is
	// high, not critical: critical needs more than five per day.
	userID := uuid.New()
	base := time.Now().Add(-12 * time.Hour)
	data := &stubDeviceData{
		devices: map[uuid.UUID][]string{userID: {"burner"}},
		accounts: map[string][]tracking.DeviceAccountActivity{
			"burner": accountsAt(base, base.Add(2*time.Hour), base.Add(4*time.Hour)),
		},
	}

	found, score, err := NewDeviceDetector(data).Analyze(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, found, 2) // sharing + rapid creation

	var rapid *SuspiciousPattern
	for i := range found {
		if found[i].Type == TypeRapidAccountCreation {
			rapid = &found[i]
		}
	}
	require.NotNil(t, rapid)
	assert.Equal(t, SeverityHigh, rapid.Severity)
	assert.InDelta(t, 3.0, rapid.Evidence["accounts_per_day"], 1e-9)

	// MEDIUM sharing (0.4) and HIGH rapid creation (0.6) average to 0.5.
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestDeviceDetector_SlowAccountAccumulation(t *testing.T) {
	// Three accounts over three months on one device: sharing fires,
	// rapid creation does not.
	userID := uuid.New()
	base := time.Now().Add(-100 * 24 * time.Hour)
	data := &stubDeviceData{
		devices: map[uuid.UUID][]string{userID: {"family-pc"}},
		accounts: map[string][]tracking.DeviceAccountActivity{
			"family-pc": accountsAt(base, base.AddDate(0, 1, 0), base.AddDate(0, 2, 0)),
		},
	}

	found, _, err := NewDeviceDetector(data).Analyze(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, TypeDeviceSharing, found[0].Type)
}
