// Package moderation queues automated findings for human review and
// notifies the moderation tooling about new cases.
package moderation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/pkg/eventbus"
	"github.com/swapgrid/trust-engine/pkg/logger"
	"github.com/swapgrid/trust-engine/pkg/resilience"
)

var casesOpenedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "moderation_cases_opened_total",
		Help: "Moderation cases opened by reason",
	},
	[]string{"reason"},
)

// QueueStore is the persistence surface of the service.
type QueueStore interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	ListOpen(ctx context.Context, limit, offset int) ([]*Item, int64, error)
	Resolve(ctx context.Context, id, resolvedBy uuid.UUID, resolution string, at time.Time) error
}

// Publisher emits fire-and-forget domain events.
type Publisher interface {
	Publish(ctx context.Context, subject, eventType string, data interface{}) error
}

// Service accepts cases from the detectors and serves the queue.
type Service struct {
	store     QueueStore
	publisher Publisher
	breaker   *resilience.CircuitBreaker
	now       func() time.Time
}

// NewService creates a moderation service. The dispatch breaker keeps a
// flapping event bus from stalling case creation.
func NewService(store QueueStore, publisher Publisher) *Service {
	breaker := resilience.NewCircuitBreaker(resilience.Settings{
		Name:    "moderation-dispatch",
		Timeout: 30 * time.Second,
	}, nil)
	return &Service{
		store:     store,
		publisher: publisher,
		breaker:   breaker,
		now:       time.Now,
	}
}

// Enqueue opens a case. The queue row is the source of truth; the dispatch
// notification is best-effort behind the breaker.
func (s *Service) Enqueue(ctx context.Context, priority int, evidence map[string]interface{}, relatedAccounts []uuid.UUID) error {
	reason := "automated_flag"
	if r, ok := evidence["reason"].(string); ok && r != "" {
		reason = r
	}

	item := &Item{
		ID:              uuid.New(),
		Priority:        priority,
		Reason:          reason,
		Evidence:        evidence,
		RelatedAccounts: relatedAccounts,
		Status:          StatusOpen,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.store.Create(ctx, item); err != nil {
		return err
	}
	casesOpenedTotal.WithLabelValues(reason).Inc()

	s.dispatch(ctx, item)
	return nil
}

func (s *Service) dispatch(ctx context.Context, item *Item) {
	_, err := s.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, s.publisher.Publish(ctx, eventbus.SubjectModerationRequired, "moderation.required", eventbus.ModerationRequiredData{
			PatternID:   item.ID,
			PatternType: item.Reason,
			Severity:    severityForPriority(item.Priority),
			UserIDs:     item.RelatedAccounts,
		})
	})
	if err != nil {
		logger.WithContext(ctx).Warn("moderation dispatch failed",
			zap.String("case_id", item.ID.String()), zap.Error(err))
	}
}

func severityForPriority(priority int) string {
	switch {
	case priority >= 8:
		return "CRITICAL"
	case priority >= 5:
		return "HIGH"
	default:
		return "MEDIUM"
	}
}

// GetCase loads one case.
func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.store.GetByID(ctx, id)
}

// ListOpenCases returns the open queue, highest priority first.
func (s *Service) ListOpenCases(ctx context.Context, limit, offset int) ([]*Item, int64, error) {
	return s.store.ListOpen(ctx, limit, offset)
}

// ResolveCase closes a case.
func (s *Service) ResolveCase(ctx context.Context, id uuid.UUID, req *ResolveRequest) error {
	return s.store.Resolve(ctx, id, req.ResolvedBy, req.Resolution, s.now().UTC())
}
