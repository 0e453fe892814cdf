package risk

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapgrid/trust-engine/internal/identity"
	"github.com/swapgrid/trust-engine/internal/patterns"
	"github.com/swapgrid/trust-engine/internal/tracking"
)

type stubAnalyzer struct {
	scores map[uuid.UUID]patterns.ComponentScores
}

func (s *stubAnalyzer) AnalyzeUser(_ context.Context, userID uuid.UUID) ([]patterns.SuspiciousPattern, patterns.ComponentScores, error) {
	return nil, s.scores[userID], nil
}

type stubBehavior struct {
	devices   map[uuid.UUID][]string
	ips       map[uuid.UUID][]string
	locations map[uuid.UUID]*tracking.LocationEvent
}

func (s *stubBehavior) GetUserDevices(_ context.Context, userID uuid.UUID) ([]string, error) {
	return s.devices[userID], nil
}

func (s *stubBehavior) GetUserIPs(_ context.Context, userID uuid.UUID) ([]*tracking.IPEvent, error) {
	var events []*tracking.IPEvent
	for _, ip := range s.ips[userID] {
		events = append(events, &tracking.IPEvent{UserID: userID, IPAddress: ip})
	}
	return events, nil
}

func (s *stubBehavior) GetLatestLocation(_ context.Context, userID uuid.UUID) (*tracking.LocationEvent, error) {
	loc, ok := s.locations[userID]
	if !ok {
		return nil, tracking.ErrNoLocation
	}
	return loc, nil
}

type stubAccounts struct {
	profiles map[uuid.UUID]*identity.Profile
	flagged  map[uuid.UUID]string
}

func (s *stubAccounts) GetProfiles(_ context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*identity.Profile, error) {
	out := make(map[uuid.UUID]*identity.Profile)
	for _, id := range userIDs {
		if p, ok := s.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *stubAccounts) FlagAccount(_ context.Context, userID uuid.UUID, reason string) error {
	if s.flagged == nil {
		s.flagged = make(map[uuid.UUID]string)
	}
	s.flagged[userID] = reason
	return nil
}

type stubPartners struct {
	partners map[uuid.UUID][]uuid.UUID
}

func (s *stubPartners) GetTradingPartners(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.partners[userID], nil
}

type stubModeration struct {
	enqueued int
	related  []uuid.UUID
	priority int
}

func (s *stubModeration) Enqueue(_ context.Context, priority int, _ map[string]interface{}, related []uuid.UUID) error {
	s.enqueued++
	s.priority = priority
	s.related = related
	return nil
}

type stubPublisher struct {
	subjects []string
}

func (s *stubPublisher) Publish(_ context.Context, subject, _ string, _ interface{}) error {
	s.subjects = append(s.subjects, subject)
	return nil
}

type riskFixture struct {
	service    *Service
	analyzer   *stubAnalyzer
	behavior   *stubBehavior
	accounts   *stubAccounts
	partners   *stubPartners
	moderation *stubModeration
	publisher  *stubPublisher
	userA      uuid.UUID
	userB      uuid.UUID
	txnID      uuid.UUID
	now        time.Time
}

func newRiskFixture(t *testing.T) *riskFixture {
	t.Helper()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	userA := uuid.New()
	userB := uuid.New()
	old := now.Add(-365 * 24 * time.Hour)

	f := &riskFixture{
		analyzer: &stubAnalyzer{scores: map[uuid.UUID]patterns.ComponentScores{}},
		behavior: &stubBehavior{
			devices:   map[uuid.UUID][]string{},
			ips:       map[uuid.UUID][]string{},
			locations: map[uuid.UUID]*tracking.LocationEvent{},
		},
		accounts: &stubAccounts{profiles: map[uuid.UUID]*identity.Profile{
			userA: {ID: userA, Email: "a@example.com", CreatedAt: old},
			userB: {ID: userB, Email: "b@example.com", CreatedAt: old},
		}},
		partners:   &stubPartners{partners: map[uuid.UUID][]uuid.UUID{}},
		moderation: &stubModeration{},
		publisher:  &stubPublisher{},
		userA:      userA,
		userB:      userB,
		txnID:      uuid.New(),
		now:        now,
	}
	f.service = NewService(f.analyzer, f.behavior, f.accounts, f.partners, f.moderation, f.publisher, NoopCache{})
	f.service.now = func() time.Time { return now }
	return f
}

func (f *riskFixture) analyze(t *testing.T) *Report {
	t.Helper()
	report, err := f.service.AnalyzeTransactionRisk(context.Background(), f.txnID, f.userA, f.userB)
	require.NoError(t, err)
	return report
}

func TestAnalyzeTransactionRisk_CleanTransaction(t *testing.T) {
	f := newRiskFixture(t)

	report := f.analyze(t)

	assert.Zero(t, report.OverallScore)
	assert.Equal(t, LevelMinimal, report.Level)
	assert.Empty(t, report.BehaviorSignals)
	assert.Equal(t, []string{"proceed normally"}, report.Recommendations)
	assert.Empty(t, f.publisher.subjects)
	assert.Zero(t, f.moderation.enqueued)
}

func TestAnalyzeTransactionRisk_ComponentWeighting(t *testing.T) {
	f := newRiskFixture(t)
	f.analyzer.scores[f.userA] = patterns.ComponentScores{Device: 1.0, IP: 0.4}
	f.analyzer.scores[f.userB] = patterns.ComponentScores{Device: 0.2, IP: 0.8, Location: 0.6}

	report := f.analyze(t)

	// Per-component max across both users, then fixed weights.
	assert.InDelta(t, 1.0, report.Components.Device, 1e-9)
	assert.InDelta(t, 0.8, report.Components.IP, 1e-9)
	assert.InDelta(t, 0.6, report.Components.Location, 1e-9)
	expected := 0.30*1.0 + 0.25*0.8 + 0.25*0.6
	assert.InDelta(t, expected, report.OverallScore, 1e-9)
	assert.Equal(t, LevelHigh, report.Level)
}

func TestAnalyzeTransactionRisk_BehaviorIncrements(t *testing.T) {
	f := newRiskFixture(t)
	f.behavior.devices[f.userA] = []string{"fp-1", "fp-2"}
	f.behavior.devices[f.userB] = []string{"fp-2"}
	f.behavior.ips[f.userA] = []string{"203.0.113.9"}
	f.behavior.ips[f.userB] = []string{"203.0.113.9", "198.51.100.1"}

	report := f.analyze(t)

	assert.ElementsMatch(t, []string{"shared_device", "shared_ip"}, report.BehaviorSignals)
	assert.InDelta(t, 0.5, report.Components.Behavior, 1e-9)
	assert.InDelta(t, 0.20*0.5, report.OverallScore, 1e-9)
}

// Two accounts under 10 days old reporting locations well inside 100m: the
// behavior score picks up both the proximity and both-new increments.
func TestAnalyzeTransactionRisk_NewAccountsSameLocation(t *testing.T) {
	f := newRiskFixture(t)
	young := f.now.Add(-5 * 24 * time.Hour)
	f.accounts.profiles[f.userA].CreatedAt = young
	f.accounts.profiles[f.userB].CreatedAt = young
	f.behavior.locations[f.userA] = &tracking.LocationEvent{Latitude: 52.5200, Longitude: 13.4050}
	f.behavior.locations[f.userB] = &tracking.LocationEvent{Latitude: 52.5203, Longitude: 13.4051}

	report := f.analyze(t)

	assert.ElementsMatch(t, []string{"same_location", "both_accounts_new"}, report.BehaviorSignals)
	assert.InDelta(t, 0.5, report.Components.Behavior, 1e-9)
}

// Two accounts under 10 days old a few kilometers apart: same metro area
// scores like colocation, so behavior lands on 0.3 + 0.2 = 0.5.
func TestAnalyzeTransactionRisk_NewAccountsSameArea(t *testing.T) {
	f := newRiskFixture(t)
	young := f.now.Add(-5 * 24 * time.Hour)
	f.accounts.profiles[f.userA].CreatedAt = young
	f.accounts.profiles[f.userB].CreatedAt = young
	// Roughly 5km apart, well outside the 100m colocation radius.
	f.behavior.locations[f.userA] = &tracking.LocationEvent{Latitude: 52.5200, Longitude: 13.4050}
	f.behavior.locations[f.userB] = &tracking.LocationEvent{Latitude: 52.5649, Longitude: 13.4050}

	report := f.analyze(t)

	assert.ElementsMatch(t, []string{"same_area", "both_accounts_new"}, report.BehaviorSignals)
	assert.InDelta(t, 0.5, report.Components.Behavior, 1e-9)
}

// Beyond the same-area radius there is no proximity increment at all.
func TestAnalyzeTransactionRisk_DistantLocationsNoIncrement(t *testing.T) {
	f := newRiskFixture(t)
	f.behavior.locations[f.userA] = &tracking.LocationEvent{Latitude: 52.5200, Longitude: 13.4050}
	f.behavior.locations[f.userB] = &tracking.LocationEvent{Latitude: 48.1374, Longitude: 11.5755}

	report := f.analyze(t)

	assert.Empty(t, report.BehaviorSignals)
	assert.Zero(t, report.Components.Behavior)
}

func TestAnalyzeTransactionRisk_MatchedContactInfo(t *testing.T) {
	f := newRiskFixture(t)
	f.accounts.profiles[f.userB].Email = "a@example.com"

	report := f.analyze(t)

	assert.Contains(t, report.BehaviorSignals, "matched_contact_info")
	assert.Contains(t, report.Recommendations, "verify account ownership, contact details overlap")
}

// A prior completed trade between the parties is surfaced as a signal and a
// recommendation without moving the score.
func TestAnalyzeTransactionRisk_RepeatCounterparty(t *testing.T) {
	f := newRiskFixture(t)
	f.partners.partners[f.userA] = []uuid.UUID{uuid.New(), f.userB}

	report := f.analyze(t)

	assert.Contains(t, report.BehaviorSignals, "repeat_counterparty")
	assert.Contains(t, report.Recommendations, "check prior trades between the parties for reciprocal patterns")
	assert.Zero(t, report.Components.Behavior)
	assert.Zero(t, report.OverallScore)
}

func TestAnalyzeTransactionRisk_CriticalFlagsBothAccounts(t *testing.T) {
	f := newRiskFixture(t)
	f.analyzer.scores[f.userA] = patterns.ComponentScores{Device: 1.0, IP: 1.0, Location: 1.0}
	f.behavior.devices[f.userA] = []string{"fp-1"}
	f.behavior.devices[f.userB] = []string{"fp-1"}
	f.accounts.profiles[f.userB].Email = "a@example.com"

	report := f.analyze(t)

	require.Equal(t, LevelCritical, report.Level)
	assert.Len(t, f.accounts.flagged, 2)
	assert.Equal(t, 1, f.moderation.enqueued)
	assert.ElementsMatch(t, []uuid.UUID{f.userA, f.userB}, f.moderation.related)
	assert.GreaterOrEqual(t, f.moderation.priority, 8)
	// One flagged event per party.
	assert.Len(t, f.publisher.subjects, 2)
}

func TestAnalyzeTransactionRisk_HighPublishesButDoesNotFlag(t *testing.T) {
	f := newRiskFixture(t)
	f.analyzer.scores[f.userA] = patterns.ComponentScores{Device: 1.0, IP: 1.0, Location: 0.6}

	report := f.analyze(t)

	require.Equal(t, LevelHigh, report.Level)
	assert.Len(t, f.publisher.subjects, 2)
	assert.Empty(t, f.accounts.flagged)
	assert.Zero(t, f.moderation.enqueued)
}

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score float64
		level Level
	}{
		{0.0, LevelMinimal},
		{0.19, LevelMinimal},
		{0.2, LevelLow},
		{0.39, LevelLow},
		{0.4, LevelMedium},
		{0.6, LevelHigh},
		{0.79, LevelHigh},
		{0.8, LevelCritical},
		{1.0, LevelCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelForScore(tt.score), "score %v", tt.score)
	}
}

func TestLevelReviewWeightMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, LevelMinimal.ReviewWeightMultiplier())
	assert.Equal(t, 1.0, LevelLow.ReviewWeightMultiplier())
	assert.Equal(t, 0.75, LevelMedium.ReviewWeightMultiplier())
	assert.Equal(t, 0.5, LevelHigh.ReviewWeightMultiplier())
	assert.Equal(t, 1.0, LevelCritical.ReviewWeightMultiplier())
	assert.True(t, LevelCritical.Blocked())
}
