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

type stubLocationData struct {
	histories  map[uuid.UUID][]*tracking.LocationEvent
	latest     map[uuid.UUID]*tracking.LocationEvent
	cellEvents []*tracking.LocationEvent
}

func (s *stubLocationData) GetUserLocationHistory(_ context.Context, userID uuid.UUID, _ time.Time) ([]*tracking.LocationEvent, error) {
	return s.histories[userID], nil
}

func (s *stubLocationData) GetLatestLocation(_ context.Context, userID uuid.UUID) (*tracking.LocationEvent, error) {
	if e, ok := s.latest[userID]; ok {
		return e, nil
	}
	return nil, tracking.ErrNoLocation
}

func (s *stubLocationData) GetLocationEventsByCells(_ context.Context, _ []string, _, _ time.Time) ([]*tracking.LocationEvent, error) {
	return s.cellEvents, nil
}

func locEvent(userID uuid.UUID, lat, lng float64, at time.Time) *tracking.LocationEvent {
	cell, _ := tracking.CellForCoordinates(lat, lng)
	return &tracking.LocationEvent{
		ID:         uuid.New(),
		UserID:     userID,
		Latitude:   lat,
		Longitude:  lng,
		Geocell:    cell,
		RecordedAt: at,
	}
}

func TestLocationDetector_NoHistory(t *testing.T) {
	userID := uuid.New()
	data := &stubLocationData{
		histories: map[uuid.UUID][]*tracking.LocationEvent{},
		latest:    map[uuid.UUID]*tracking.LocationEvent{},
	}

	found, score, err := NewLocationDetector(data).Analyze(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Zero(t, score)
}

func TestLocationDetector_ImpossibleMovement(t *testing.T) {
	// Berlin to Madrid (~1,870 km) in two hours.
	userID := uuid.New()
	base := time.Now().Add(-48 * time.Hour)
	data := &stubLocationData{
		histories: map[uuid.UUID][]*tracking.LocationEvent{
			userID: {
				locEvent(userID, 52.5200, 13.4050, base),
				locEvent(userID, 40.4168, -3.7038, base.Add(2*time.Hour)),
			},
		},
		latest: map[uuid.UUID]*tracking.LocationEvent{},
	}

	found, score, err := NewLocationDetector(data).Analyze(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, TypeImpossibleMovement, found[0].Type)
	assert.Equal(t, SeverityHigh, found[0].Severity)
	// Impossible movement suppresses the hopping flag for the same jump.
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestLocationDetector_Hopping(t *testing.T) {
	// Berlin to Hamburg (~255 km) over two days: far, but plausible.
	userID := uuid.New()
	base := time.Now().Add(-10 * 24 * time.Hour)
	data := &stubLocationData{
		histories: map[uuid.UUID][]*tracking.LocationEvent{
			userID: {
				locEvent(userID, 52.5200, 13.4050, base),
				locEvent(userID, 53.5511, 9.9937, base.Add(48*time.Hour)),
			},
		},
		latest: map[uuid.UUID]*tracking.LocationEvent{},
	}

	found, score, err := NewLocationDetector(data).Analyze(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, TypeLocationHopping, found[0].Type)
	assert.InDelta(t, 0.3, score, 1e-9)
}

func TestLocationDetector_FrequentChanges(t *testing.T) {
	// Six small moves inside Berlin in a month.
	userID := uuid.New()
	base := time.Now().Add(-25 * 24 * time.Hour)
	history := make([]*tracking.LocationEvent, 0, 6)
	for i := 0; i < 6; i++ {
		history = append(history,
			locEvent(userID, 52.5200+float64(i)*0.01, 13.4050, base.AddDate(0, 0, i*4)))
	}
	data := &stubLocationData{
		histories: map[uuid.UUID][]*tracking.LocationEvent{userID: history},
		latest:    map[uuid.UUID]*tracking.LocationEvent{},
	}

	found, score, err := NewLocationDetector(data).Analyze(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, TypeFrequentChanges, found[0].Type)
	assert.InDelta(t, 0.2, score, 1e-9)
}

func TestLocationDetector_CoordinatedChange(t *testing.T) {
	userID := uuid.New()
	now := time.Now()
	mine := locEvent(userID, 52.5200, 13.4050, now.Add(-time.Hour))

	// Two other users reported nearby locations within the last day, but
	// far enough apart that proximity collusion stays quiet.
	otherA := uuid.New()
	otherB := uuid.New()
	eventA := locEvent(otherA, 52.70, 13.60, now.Add(-3*time.Hour))
	eventB := locEvent(otherB, 52.35, 13.20, now.Add(-5*time.Hour))

	data := &stubLocationData{
		histories: map[uuid.UUID][]*tracking.LocationEvent{
			userID: {mine},
		},
		latest: map[uuid.UUID]*tracking.LocationEvent{
			userID: mine,
			otherA: eventA,
			otherB: eventB,
		},
		cellEvents: []*tracking.LocationEvent{mine, eventA, eventB},
	}

	found, score, err := NewLocationDetector(data).Analyze(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, TypeCoordinatedChange, found[0].Type)
	assert.Equal(t, SeverityMedium, found[0].Severity)
	assert.Len(t, found[0].AffectedUsers, 3)
	assert.InDelta(t, 0.1, score, 1e-9)
}

func TestLocationDetector_ProximityCollusion(t *testing.T) {
	userID := uuid.New()
	other := uuid.New()
	now := time.Now()
	mine := locEvent(userID, 52.5200, 13.4050, now.Add(-time.Hour))
	theirs := locEvent(other, 52.5500, 13.4200, now.Add(-2*time.Hour)) // ~3.5 km away

	data := &stubLocationData{
		histories: map[uuid.UUID][]*tracking.LocationEvent{userID: {mine}},
		latest: map[uuid.UUID]*tracking.LocationEvent{
			userID: mine,
			other:  theirs,
		},
		cellEvents: []*tracking.LocationEvent{mine, theirs},
	}

	found, score, err := NewLocationDetector(data).Analyze(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, TypeProximityCollusion, found[0].Type)
	assert.Contains(t, found[0].AffectedUsers, userID)
	assert.Contains(t, found[0].AffectedUsers, other)
	assert.InDelta(t, 0.1, score, 1e-9)
}

func TestLocationDetector_PatternSimilarity(t *testing.T) {
	userID := uuid.New()
	shadow := uuid.New()
	now := time.Now()

	// Both accounts trace the same three cities a few hours apart.
	stops := []struct{ lat, lng float64 }{
		{52.5200, 13.4050}, // Berlin
		{51.3397, 12.3731}, // Leipzig
		{50.1109, 8.6821},  // Frankfurt
	}
	var mine, theirs []*tracking.LocationEvent
	for i, s := range stops {
		at := now.Add(time.Duration(-72+i*24) * time.Hour)
		mine = append(mine, locEvent(userID, s.lat, s.lng, at))
		theirs = append(theirs, locEvent(shadow, s.lat+0.01, s.lng+0.01, at.Add(3*time.Hour)))
	}
	// Current locations far apart so only similarity fires.
	latestMine := locEvent(userID, 50.1109, 8.6821, now.Add(-time.Hour))
	latestTheirs := locEvent(shadow, 50.25, 8.90, now.Add(-2*time.Hour)) // ~20 km away
	mine = append(mine, latestMine)

	data := &stubLocationData{
		histories: map[uuid.UUID][]*tracking.LocationEvent{
			userID: mine,
			shadow: theirs,
		},
		latest: map[uuid.UUID]*tracking.LocationEvent{
			userID: latestMine,
			shadow: latestTheirs,
		},
		cellEvents: []*tracking.LocationEvent{latestMine, latestTheirs},
	}

	found, _, err := NewLocationDetector(data).Analyze(context.Background(), userID)
	require.NoError(t, err)

	var similarity *SuspiciousPattern
	for i := range found {
		if found[i].Type == TypePatternSimilarity {
			similarity = &found[i]
		}
	}
	require.NotNil(t, similarity)
	assert.Equal(t, SeverityHigh, similarity.Severity)
	assert.Contains(t, similarity.AffectedUsers, shadow)
}

func TestCountSimilarMoves_NoDoubleCounting(t *testing.T) {
	userA := uuid.New()
	userB := uuid.New()
	now := time.Now()

	a := []*tracking.LocationEvent{
		locEvent(userA, 52.52, 13.40, now),
		locEvent(userA, 52.53, 13.41, now.Add(time.Hour)),
	}
	// One event of b is within range of both entries of a but may only
	// be matched once.
	b := []*tracking.LocationEvent{
		locEvent(userB, 52.52, 13.40, now.Add(30*time.Minute)),
	}

	assert.Equal(t, 1, countSimilarMoves(a, b))
}
