package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/pkg/logger"
	"github.com/swapgrid/trust-engine/pkg/security"
)

var (
	trackingEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_events_total",
			Help: "Tracking events recorded by kind",
		},
		[]string{"kind"},
	)

	trackingPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_purged_rows_total",
			Help: "Tracking rows removed by retention purges",
		},
	)
)

// Service records tracking events and runs the retention purge.
type Service struct {
	repo          TrackingRepository
	retentionDays int
}

// NewService creates a tracking service.
func NewService(repo TrackingRepository, retentionDays int) *Service {
	return &Service{repo: repo, retentionDays: retentionDays}
}

// RecordDevice stores a device sighting.
func (s *Service) RecordDevice(ctx context.Context, req *RecordDeviceRequest) (*DeviceEvent, error) {
	event := &DeviceEvent{
		ID:          uuid.New(),
		UserID:      req.UserID,
		Fingerprint: security.SanitizeString(req.Fingerprint),
		UserAgent:   security.TruncateString(security.SanitizeString(req.UserAgent), 512),
		Platform:    security.SanitizeString(req.Platform),
		RecordedAt:  time.Now().UTC(),
	}
	if event.Fingerprint == "" {
		return nil, fmt.Errorf("empty device fingerprint")
	}
	if err := s.repo.RecordDeviceEvent(ctx, event); err != nil {
		return nil, err
	}
	trackingEventsTotal.WithLabelValues("device").Inc()
	return event, nil
}

// RecordIP stores an IP sighting.
func (s *Service) RecordIP(ctx context.Context, req *RecordIPRequest) (*IPEvent, error) {
	event := &IPEvent{
		ID:          uuid.New(),
		UserID:      req.UserID,
		IPAddress:   req.IPAddress,
		IsVPN:       req.IsVPN,
		IsProxy:     req.IsProxy,
		CountryCode: req.CountryCode,
		RecordedAt:  time.Now().UTC(),
	}
	if err := s.repo.RecordIPEvent(ctx, event); err != nil {
		return nil, err
	}
	trackingEventsTotal.WithLabelValues("ip").Inc()
	return event, nil
}

// RecordLocation stores a location change with its geocell index.
func (s *Service) RecordLocation(ctx context.Context, req *RecordLocationRequest) (*LocationEvent, error) {
	cell, err := CellForCoordinates(req.Latitude, req.Longitude)
	if err != nil {
		return nil, err
	}
	event := &LocationEvent{
		ID:         uuid.New(),
		UserID:     req.UserID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Geocell:    cell,
		RecordedAt: time.Now().UTC(),
	}
	if err := s.repo.RecordLocationEvent(ctx, event); err != nil {
		return nil, err
	}
	trackingEventsTotal.WithLabelValues("location").Inc()
	return event, nil
}

// PurgeExpired removes tracking rows past the retention window.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	purged, err := s.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return purged, err
	}
	if purged > 0 {
		trackingPurgedTotal.Add(float64(purged))
		logger.Info("purged expired tracking events",
			zap.Int64("rows", purged),
			zap.Time("cutoff", cutoff))
	}
	return purged, nil
}
