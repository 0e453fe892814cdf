package patterns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/pkg/logger"
)

var (
	patternsDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patterns_detected_total",
			Help: "Suspicious patterns detected by type",
		},
		[]string{"type"},
	)

	patternsPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "patterns_purged_rows_total",
			Help: "Suspicious pattern rows removed by retention purges",
		},
	)
)

// Service runs detectors, persists their findings and serves listings.
type Service struct {
	device        Detector
	ip            Detector
	location      Detector
	rings         *RingDetector
	store         PatternStore
	retentionDays int
	ringWindow    time.Duration
}

// NewService creates a pattern service.
func NewService(device, ip, location Detector, rings *RingDetector, store PatternStore, retentionDays int) *Service {
	return &Service{
		device:        device,
		ip:            ip,
		location:      location,
		rings:         rings,
		store:         store,
		retentionDays: retentionDays,
		ringWindow:    90 * 24 * time.Hour,
	}
}

// AnalyzeUser runs all three detectors for a user, persists the findings
// and returns them with the per-detector component scores.
func (s *Service) AnalyzeUser(ctx context.Context, userID uuid.UUID) ([]SuspiciousPattern, ComponentScores, error) {
	var scores ComponentScores
	all := make([]SuspiciousPattern, 0)

	deviceFound, deviceScore, err := s.device.Analyze(ctx, userID)
	if err != nil {
		return nil, scores, err
	}
	ipFound, ipScore, err := s.ip.Analyze(ctx, userID)
	if err != nil {
		return nil, scores, err
	}
	locFound, locScore, err := s.location.Analyze(ctx, userID)
	if err != nil {
		return nil, scores, err
	}

	scores.Device = deviceScore
	scores.IP = ipScore
	scores.Location = locScore

	all = append(all, deviceFound...)
	all = append(all, ipFound...)
	all = append(all, locFound...)
	s.persist(ctx, all)

	return all, scores, nil
}

// ComponentScores carries the per-detector risk components.
type ComponentScores struct {
	Device   float64 `json:"device"`
	IP       float64 `json:"ip"`
	Location float64 `json:"location"`
}

// DetectRings runs the trading-ring analysis over the recent trade graph
// and persists anything found.
func (s *Service) DetectRings(ctx context.Context) ([]SuspiciousPattern, error) {
	found, err := s.rings.Detect(ctx, time.Now().UTC().Add(-s.ringWindow))
	if err != nil {
		return nil, err
	}
	s.persist(ctx, found)
	return found, nil
}

// ListUserPatterns returns stored patterns involving a user.
func (s *Service) ListUserPatterns(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*SuspiciousPattern, int64, error) {
	return s.store.ListByUser(ctx, userID, limit, offset)
}

// PurgeExpired removes pattern rows past the retention window.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	purged, err := s.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return purged, err
	}
	if purged > 0 {
		patternsPurgedTotal.Add(float64(purged))
		logger.Info("purged expired suspicious patterns",
			zap.Int64("rows", purged),
			zap.Time("cutoff", cutoff))
	}
	return purged, nil
}

// persist stores findings best-effort; a storage failure must not abort the
// analysis that produced them.
func (s *Service) persist(ctx context.Context, found []SuspiciousPattern) {
	for i := range found {
		if err := s.store.Create(ctx, &found[i]); err != nil {
			logger.Warn("failed to persist suspicious pattern",
				zap.String("type", found[i].Type),
				zap.Error(err))
			continue
		}
		patternsDetectedTotal.WithLabelValues(found[i].Type).Inc()
	}
}
