// Package risk aggregates the per-user pattern detector scores and the
// cross-user behavior signals of one transaction into a single report.
package risk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/internal/identity"
	"github.com/swapgrid/trust-engine/internal/patterns"
	"github.com/swapgrid/trust-engine/internal/tracking"
	"github.com/swapgrid/trust-engine/pkg/eventbus"
	"github.com/swapgrid/trust-engine/pkg/logger"
)

// Component weights of the overall score.
const (
	deviceWeight   = 0.30
	ipWeight       = 0.25
	locationWeight = 0.25
	behaviorWeight = 0.20
)

// Behavior increments.
const (
	sharedDeviceIncrement    = 0.3
	sharedIPIncrement        = 0.2
	sameLocationIncrement    = 0.3
	bothAccountsNewIncrement = 0.2
	matchedContactIncrement  = 0.4

	sameLocationMaxMeters = 100.0
	sameAreaMaxMeters     = 10_000.0
	newAccountMaxAge      = 30 * 24 * time.Hour
)

const reportCacheTTL = 10 * time.Minute

var (
	riskAnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_analyses_total",
			Help: "Transaction risk analyses by resulting level",
		},
		[]string{"level"},
	)

	riskCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "risk_report_cache_hits_total",
			Help: "Risk reports served from cache",
		},
	)
)

// Service computes transaction risk reports and applies the critical-level
// side effects.
type Service struct {
	analyzer   PatternAnalyzer
	behavior   BehaviorData
	accounts   AccountDirectory
	partners   PartnerSource
	moderation ModerationQueue
	publisher  Publisher
	cache      Cache
	now        func() time.Time
}

// NewService creates a risk service. Pass NoopCache when Redis is not
// available.
func NewService(analyzer PatternAnalyzer, behavior BehaviorData, accounts AccountDirectory, partners PartnerSource, moderation ModerationQueue, publisher Publisher, cache Cache) *Service {
	return &Service{
		analyzer:   analyzer,
		behavior:   behavior,
		accounts:   accounts,
		partners:   partners,
		moderation: moderation,
		publisher:  publisher,
		cache:      cache,
		now:        time.Now,
	}
}

// AnalyzeTransactionRisk scores the transaction between userA and userB.
// Reports are cached briefly so both parties submitting reviews in quick
// succession run the detectors once.
func (s *Service) AnalyzeTransactionRisk(ctx context.Context, transactionID, userA, userB uuid.UUID) (*Report, error) {
	if cached, err := s.cache.GetReport(ctx, transactionID); err == nil {
		riskCacheHitsTotal.Inc()
		return cached, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		logger.WithContext(ctx).Warn("risk cache read failed", zap.Error(err))
	}

	_, scoresA, err := s.analyzer.AnalyzeUser(ctx, userA)
	if err != nil {
		return nil, fmt.Errorf("analyze user %s: %w", userA, err)
	}
	_, scoresB, err := s.analyzer.AnalyzeUser(ctx, userB)
	if err != nil {
		return nil, fmt.Errorf("analyze user %s: %w", userB, err)
	}

	behaviorScore, signals, err := s.scoreBehavior(ctx, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("score behavior: %w", err)
	}

	components := Components{
		Device:   max(scoresA.Device, scoresB.Device),
		IP:       max(scoresA.IP, scoresB.IP),
		Location: max(scoresA.Location, scoresB.Location),
		Behavior: behaviorScore,
	}

	overall := clamp01(deviceWeight*components.Device +
		ipWeight*components.IP +
		locationWeight*components.Location +
		behaviorWeight*components.Behavior)
	level := LevelForScore(overall)

	report := &Report{
		TransactionID:   transactionID,
		UserA:           userA,
		UserB:           userB,
		OverallScore:    overall,
		Level:           level,
		Components:      components,
		BehaviorSignals: signals,
		Recommendations: recommendations(level, signals),
		GeneratedAt:     s.now().UTC(),
	}

	riskAnalysesTotal.WithLabelValues(string(level)).Inc()
	s.applySideEffects(ctx, report)

	if err := s.cache.SetReport(ctx, report, reportCacheTTL); err != nil {
		logger.WithContext(ctx).Warn("risk cache write failed", zap.Error(err))
	}
	return report, nil
}

// scoreBehavior sums the fixed cross-user increments, clamped [0,1].
func (s *Service) scoreBehavior(ctx context.Context, userA, userB uuid.UUID) (float64, []string, error) {
	score := 0.0
	var signals []string

	devicesA, err := s.behavior.GetUserDevices(ctx, userA)
	if err != nil {
		return 0, nil, err
	}
	devicesB, err := s.behavior.GetUserDevices(ctx, userB)
	if err != nil {
		return 0, nil, err
	}
	if intersects(devicesA, devicesB) {
		score += sharedDeviceIncrement
		signals = append(signals, "shared_device")
	}

	ipsA, err := s.userIPs(ctx, userA)
	if err != nil {
		return 0, nil, err
	}
	ipsB, err := s.userIPs(ctx, userB)
	if err != nil {
		return 0, nil, err
	}
	if intersects(ipsA, ipsB) {
		score += sharedIPIncrement
		signals = append(signals, "shared_ip")
	}

	dist, located, err := s.locationDistance(ctx, userA, userB)
	if err != nil {
		return 0, nil, err
	}
	switch {
	case located && dist < sameLocationMaxMeters:
		score += sameLocationIncrement
		signals = append(signals, "same_location")
	case located && dist < sameAreaMaxMeters:
		// Same metro area counts like colocation for the pairwise score;
		// the exact-colocation signal name is kept for sub-100m matches.
		score += sameLocationIncrement
		signals = append(signals, "same_area")
	}

	profiles, err := s.accounts.GetProfiles(ctx, []uuid.UUID{userA, userB})
	if err != nil {
		return 0, nil, err
	}
	profileA, profileB := profiles[userA], profiles[userB]
	if profileA != nil && profileB != nil {
		now := s.now()
		if profileA.AccountAge(now) < newAccountMaxAge && profileB.AccountAge(now) < newAccountMaxAge {
			score += bothAccountsNewIncrement
			signals = append(signals, "both_accounts_new")
		}
		if contactsMatch(profileA, profileB) {
			score += matchedContactIncrement
			signals = append(signals, "matched_contact_info")
		}
	}

	repeat, err := s.repeatCounterparty(ctx, userA, userB)
	if err != nil {
		return 0, nil, err
	}
	if repeat {
		// Surfaced for moderators, the pairwise increments stay fixed.
		signals = append(signals, "repeat_counterparty")
	}

	return clamp01(score), signals, nil
}

// repeatCounterparty reports whether the two parties have completed a
// transaction with each other before this one.
func (s *Service) repeatCounterparty(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	partners, err := s.partners.GetTradingPartners(ctx, userA)
	if err != nil {
		return false, err
	}
	for _, p := range partners {
		if p == userB {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) userIPs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	events, err := s.behavior.GetUserIPs(ctx, userID)
	if err != nil {
		return nil, err
	}
	ips := make([]string, 0, len(events))
	for _, e := range events {
		ips = append(ips, e.IPAddress)
	}
	return ips, nil
}

// locationDistance returns the distance in meters between the two users'
// latest reported locations. located is false when either has none.
func (s *Service) locationDistance(ctx context.Context, userA, userB uuid.UUID) (float64, bool, error) {
	locA, err := s.behavior.GetLatestLocation(ctx, userA)
	if err != nil {
		if errors.Is(err, tracking.ErrNoLocation) {
			return 0, false, nil
		}
		return 0, false, err
	}
	locB, err := s.behavior.GetLatestLocation(ctx, userB)
	if err != nil {
		if errors.Is(err, tracking.ErrNoLocation) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return patterns.Haversine(locA.Latitude, locA.Longitude, locB.Latitude, locB.Longitude), true, nil
}

// applySideEffects flags both accounts and opens a moderation case when the
// level is critical, and emits the flagged event for high and critical.
// Failures here are logged, not returned: the report itself is still valid.
func (s *Service) applySideEffects(ctx context.Context, report *Report) {
	log := logger.WithContext(ctx)

	if report.Level == LevelHigh || report.Level == LevelCritical {
		for _, userID := range []uuid.UUID{report.UserA, report.UserB} {
			err := s.publisher.Publish(ctx, eventbus.SubjectRiskFlagged, "risk.flagged", eventbus.RiskFlaggedData{
				UserID:    userID,
				RiskScore: report.OverallScore,
				RiskLevel: string(report.Level),
			})
			if err != nil {
				log.Warn("failed to publish risk flagged event", zap.Error(err))
			}
		}
	}

	if !report.Level.Blocked() {
		return
	}

	reason := fmt.Sprintf("critical transaction risk %.2f on transaction %s", report.OverallScore, report.TransactionID)
	for _, userID := range []uuid.UUID{report.UserA, report.UserB} {
		if err := s.accounts.FlagAccount(ctx, userID, reason); err != nil {
			log.Error("failed to flag account on critical risk",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}

	evidence := map[string]interface{}{
		"transaction_id":   report.TransactionID.String(),
		"overall_score":    report.OverallScore,
		"components":       report.Components,
		"behavior_signals": report.BehaviorSignals,
	}
	if err := s.moderation.Enqueue(ctx, moderationPriority(report.OverallScore), evidence, []uuid.UUID{report.UserA, report.UserB}); err != nil {
		log.Error("failed to enqueue moderation case", zap.Error(err))
	}
}

// moderationPriority scales a critical score onto 1..10.
func moderationPriority(score float64) int {
	p := int(score * 10)
	if p < 1 {
		p = 1
	}
	if p > 10 {
		p = 10
	}
	return p
}

func recommendations(level Level, signals []string) []string {
	recs := make([]string, 0, 3)
	switch level {
	case LevelMinimal, LevelLow:
		recs = append(recs, "proceed normally")
	case LevelMedium:
		recs = append(recs, "reduce review weight for this transaction")
	case LevelHigh:
		recs = append(recs, "reduce review weight for this transaction", "require manual review before reputation impact")
	case LevelCritical:
		recs = append(recs, "block the transaction and its reviews", "both accounts flagged for moderation")
	}
	for _, sig := range signals {
		switch sig {
		case "matched_contact_info":
			recs = append(recs, "verify account ownership, contact details overlap")
		case "repeat_counterparty":
			recs = append(recs, "check prior trades between the parties for reciprocal patterns")
		}
	}
	return recs
}

func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

func contactsMatch(a, b *identity.Profile) bool {
	if a.Email != "" && a.Email == b.Email {
		return true
	}
	if a.Phone != "" && a.Phone == b.Phone {
		return true
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
