package patterns

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swapgrid/trust-engine/internal/tracking"
)

const (
	impossibleDistanceMeters = 500_000.0
	impossibleWindow         = 6 * time.Hour
	hoppingDistanceMeters    = 50_000.0
	frequentChangeCount      = 5
	locationHistoryWindow    = 30 * 24 * time.Hour
	convergenceRadiusMeters  = 50_000.0
	convergenceWindow        = 24 * time.Hour
	convergenceUsers         = 3
	convergenceUsersHigh     = 5
	proximityRadiusMeters    = 10_000.0
	similarityMatchDistance  = 50_000.0
	similarityMatchWindow    = 24 * time.Hour
	similarityMatchCount     = 3
	similarityHistoryLen     = 10
)

// LocationDetector analyzes profile-level location changes: movement
// plausibility, restlessness, and convergence with other accounts.
type LocationDetector struct {
	data LocationData
}

var _ Detector = (*LocationDetector)(nil)

// NewLocationDetector creates a location detector.
func NewLocationDetector(data LocationData) *LocationDetector {
	return &LocationDetector{data: data}
}

// Analyze inspects a user's location history and returns the findings with
// the location risk score.
func (d *LocationDetector) Analyze(ctx context.Context, userID uuid.UUID) ([]SuspiciousPattern, float64, error) {
	now := time.Now().UTC()
	history, err := d.data.GetUserLocationHistory(ctx, userID, now.Add(-locationHistoryWindow))
	if err != nil {
		return nil, 0, fmt.Errorf("get location history: %w", err)
	}

	found := make([]SuspiciousPattern, 0)
	var impossible, hopping, frequent bool

	if p, ok := impossibleMovementPattern(userID, history, now); ok {
		found = append(found, p)
		impossible = true
	}
	if p, ok := locationHoppingPattern(userID, history, now); ok && !impossible {
		found = append(found, p)
		hopping = true
	}
	if p, ok := frequentChangesPattern(userID, history, now); ok {
		found = append(found, p)
		frequent = true
	}

	extra := 0
	neighbors, err := d.nearbyEvents(ctx, userID, now)
	if err != nil {
		return nil, 0, err
	}
	if neighbors != nil {
		if p, ok := coordinatedChangePattern(userID, neighbors, now); ok {
			found = append(found, p)
			extra++
		}
		proximity, err := d.proximityCollusionPatterns(ctx, userID, neighbors, now)
		if err != nil {
			return nil, 0, err
		}
		found = append(found, proximity...)
		extra += len(proximity)

		similar, err := d.patternSimilarityPatterns(ctx, userID, history, neighbors, now)
		if err != nil {
			return nil, 0, err
		}
		found = append(found, similar...)
		extra += len(similar)
	}

	score := locationRiskScore(impossible, hopping, frequent, extra)
	return found, score, nil
}

// locationRiskScore combines the three movement flags plus a small bump per
// extra social-pattern finding.
func locationRiskScore(impossible, hopping, frequent bool, extraPatterns int) float64 {
	var score float64
	if impossible {
		score += 0.5
	}
	if hopping {
		score += 0.3
	}
	if frequent {
		score += 0.2
	}
	score += 0.1 * float64(extraPatterns)
	return clamp01(score)
}

func impossibleMovementPattern(userID uuid.UUID, history []*tracking.LocationEvent, now time.Time) (SuspiciousPattern, bool) {
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		dist := Haversine(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
		dt := cur.RecordedAt.Sub(prev.RecordedAt)
		if dist > impossibleDistanceMeters && dt < impossibleWindow {
			return SuspiciousPattern{
				ID:            uuid.New(),
				Type:          TypeImpossibleMovement,
				Description:   fmt.Sprintf("moved %.0f km in %.1f hours", dist/1000, dt.Hours()),
				Severity:      SeverityHigh,
				AffectedUsers: []uuid.UUID{userID},
				Evidence: map[string]interface{}{
					"distance_km": dist / 1000,
					"hours":       dt.Hours(),
				},
				DetectedAt: now,
			}, true
		}
	}
	return SuspiciousPattern{}, false
}

func locationHoppingPattern(userID uuid.UUID, history []*tracking.LocationEvent, now time.Time) (SuspiciousPattern, bool) {
	excursions := 0
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		dist := Haversine(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
		if dist > hoppingDistanceMeters {
			excursions++
		}
	}
	if excursions == 0 {
		return SuspiciousPattern{}, false
	}

	return SuspiciousPattern{
		ID:            uuid.New(),
		Type:          TypeLocationHopping,
		Description:   fmt.Sprintf("%d long-range location changes in 30 days", excursions),
		Severity:      SeverityMedium,
		AffectedUsers: []uuid.UUID{userID},
		Evidence: map[string]interface{}{
			"excursions": excursions,
		},
		DetectedAt: now,
	}, true
}

func frequentChangesPattern(userID uuid.UUID, history []*tracking.LocationEvent, now time.Time) (SuspiciousPattern, bool) {
	// A change is any recorded move; the first event establishes the
	// baseline and does not count.
	changes := len(history) - 1
	if changes < frequentChangeCount {
		return SuspiciousPattern{}, false
	}

	return SuspiciousPattern{
		ID:            uuid.New(),
		Type:          TypeFrequentChanges,
		Description:   fmt.Sprintf("%d location changes in 30 days", changes),
		Severity:      SeverityMedium,
		AffectedUsers: []uuid.UUID{userID},
		Evidence: map[string]interface{}{
			"changes": changes,
		},
		DetectedAt: now,
	}, true
}

// nearbyEvents returns the last 24h of location events in the user's
// current geocell and its neighbors, or nil when the user has no recent
// location. The user's own events are included.
func (d *LocationDetector) nearbyEvents(ctx context.Context, userID uuid.UUID, now time.Time) ([]*tracking.LocationEvent, error) {
	latest, err := d.data.GetLatestLocation(ctx, userID)
	if err != nil {
		if err == tracking.ErrNoLocation {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest location: %w", err)
	}
	if now.Sub(latest.RecordedAt) > convergenceWindow {
		return nil, nil
	}

	cells, err := tracking.NeighborCells(latest.Geocell)
	if err != nil {
		return nil, fmt.Errorf("neighbor cells: %w", err)
	}
	events, err := d.data.GetLocationEventsByCells(ctx, cells, now.Add(-convergenceWindow), now)
	if err != nil {
		return nil, fmt.Errorf("get events by cells: %w", err)
	}

	// Keep only events actually inside the convergence radius around the
	// user's current location; the cell lookup is a coarse prefilter.
	kept := events[:0]
	for _, e := range events {
		if Haversine(latest.Latitude, latest.Longitude, e.Latitude, e.Longitude) <= convergenceRadiusMeters {
			kept = append(kept, e)
		}
	}
	return kept, nil
}

func coordinatedChangePattern(userID uuid.UUID, events []*tracking.LocationEvent, now time.Time) (SuspiciousPattern, bool) {
	set := make(map[uuid.UUID]bool)
	users := make([]uuid.UUID, 0)
	for _, e := range events {
		if !set[e.UserID] {
			set[e.UserID] = true
			users = append(users, e.UserID)
		}
	}
	if len(users) < convergenceUsers {
		return SuspiciousPattern{}, false
	}

	severity := SeverityMedium
	if len(users) >= convergenceUsersHigh {
		severity = SeverityHigh
	}

	return SuspiciousPattern{
		ID:            uuid.New(),
		Type:          TypeCoordinatedChange,
		Description:   fmt.Sprintf("%d users converged within 50 km inside 24h", len(users)),
		Severity:      severity,
		AffectedUsers: users,
		Evidence: map[string]interface{}{
			"user_count": len(users),
			"radius_km":  50,
		},
		DetectedAt: now,
	}, true
}

// proximityCollusionPatterns flags each other user whose current location
// sits within 10 km of this user's.
func (d *LocationDetector) proximityCollusionPatterns(ctx context.Context, userID uuid.UUID, events []*tracking.LocationEvent, now time.Time) ([]SuspiciousPattern, error) {
	latest, err := d.data.GetLatestLocation(ctx, userID)
	if err != nil {
		if err == tracking.ErrNoLocation {
			return nil, nil
		}
		return nil, err
	}

	found := make([]SuspiciousPattern, 0)
	seen := map[uuid.UUID]bool{userID: true}
	for _, e := range events {
		if seen[e.UserID] {
			continue
		}
		seen[e.UserID] = true

		other, err := d.data.GetLatestLocation(ctx, e.UserID)
		if err != nil {
			if err == tracking.ErrNoLocation {
				continue
			}
			return nil, err
		}
		dist := Haversine(latest.Latitude, latest.Longitude, other.Latitude, other.Longitude)
		if dist >= proximityRadiusMeters {
			continue
		}

		found = append(found, SuspiciousPattern{
			ID:            uuid.New(),
			Type:          TypeProximityCollusion,
			Description:   fmt.Sprintf("two users within %.1f km of each other", dist/1000),
			Severity:      SeverityMedium,
			AffectedUsers: []uuid.UUID{userID, e.UserID},
			Evidence: map[string]interface{}{
				"distance_km": dist / 1000,
			},
			DetectedAt: now,
		})
	}
	return found, nil
}

// patternSimilarityPatterns matches this user's last ten location changes
// against each nearby user's; three or more step-wise matches is a strong
// signal the accounts travel together.
func (d *LocationDetector) patternSimilarityPatterns(ctx context.Context, userID uuid.UUID, history []*tracking.LocationEvent, events []*tracking.LocationEvent, now time.Time) ([]SuspiciousPattern, error) {
	mine := lastN(history, similarityHistoryLen)
	if len(mine) == 0 {
		return nil, nil
	}

	found := make([]SuspiciousPattern, 0)
	seen := map[uuid.UUID]bool{userID: true}
	for _, e := range events {
		if seen[e.UserID] {
			continue
		}
		seen[e.UserID] = true

		theirHistory, err := d.data.GetUserLocationHistory(ctx, e.UserID, now.Add(-locationHistoryWindow))
		if err != nil {
			return nil, err
		}
		theirs := lastN(theirHistory, similarityHistoryLen)

		matches := countSimilarMoves(mine, theirs)
		if matches < similarityMatchCount {
			continue
		}

		found = append(found, SuspiciousPattern{
			ID:            uuid.New(),
			Type:          TypePatternSimilarity,
			Description:   fmt.Sprintf("%d matching location changes between two users", matches),
			Severity:      SeverityHigh,
			AffectedUsers: []uuid.UUID{userID, e.UserID},
			Evidence: map[string]interface{}{
				"matches": matches,
			},
			DetectedAt: now,
		})
	}
	return found, nil
}

// countSimilarMoves counts entries of a that have a counterpart in b within
// 50 km and 24h. Each entry of b matches at most once.
func countSimilarMoves(a, b []*tracking.LocationEvent) int {
	used := make([]bool, len(b))
	matches := 0
	for _, ea := range a {
		for j, eb := range b {
			if used[j] {
				continue
			}
			dt := ea.RecordedAt.Sub(eb.RecordedAt)
			if dt < 0 {
				dt = -dt
			}
			if dt < similarityMatchWindow &&
				Haversine(ea.Latitude, ea.Longitude, eb.Latitude, eb.Longitude) < similarityMatchDistance {
				used[j] = true
				matches++
				break
			}
		}
	}
	return matches
}

func lastN(events []*tracking.LocationEvent, n int) []*tracking.LocationEvent {
	if len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}
