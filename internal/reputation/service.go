// Package reputation turns revealed reviews and trade history into the
// scores, tiers and badges shown on a profile.
package reputation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/pkg/eventbus"
	"github.com/swapgrid/trust-engine/pkg/logger"
)

const recomputeBatchSize = 500

var recomputesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "reputation_recomputes_total",
		Help: "Per-user reputation recomputations",
	},
)

// Service recomputes and serves reputation scores.
type Service struct {
	store     ScoreStore
	reviews   ReviewSource
	profiles  ProfileSource
	publisher Publisher
	now       func() time.Time
}

// NewService creates a reputation service.
func NewService(store ScoreStore, reviews ReviewSource, profiles ProfileSource, publisher Publisher) *Service {
	return &Service{
		store:     store,
		reviews:   reviews,
		profiles:  profiles,
		publisher: publisher,
		now:       time.Now,
	}
}

// Recalculate recomputes one user's score and persists it.
func (s *Service) Recalculate(ctx context.Context, userID uuid.UUID) (*Score, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	visible, err := s.reviews.GetAllVisibleByTarget(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	stats, err := s.store.TradeStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	score := Calculate(profile, visible, stats)
	score.LastUpdated = s.now().UTC()
	if err := s.store.Upsert(ctx, score); err != nil {
		return nil, err
	}
	recomputesTotal.Inc()

	err = s.publisher.Publish(ctx, eventbus.SubjectReputationUpdated, "reputation.updated", eventbus.ReputationUpdatedData{
		UserID:     userID,
		Score:      score.AverageRating,
		TrustLevel: string(score.TrustLevel),
		UpdatedAt:  score.LastUpdated,
	})
	if err != nil {
		logger.WithContext(ctx).Warn("failed to publish reputation update", zap.Error(err))
	}
	return score, nil
}

// Get returns the stored score, computing it on first request.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Score, error) {
	score, err := s.store.Get(ctx, userID)
	if err == ErrNotFound {
		return s.Recalculate(ctx, userID)
	}
	return score, err
}

// RecalculateAll walks every user in id order, resuming from cursor.
// Returns the last processed id so an interrupted run can continue where
// it stopped instead of restarting.
func (s *Service) RecalculateAll(ctx context.Context, cursor uuid.UUID) (uuid.UUID, int, error) {
	processed := 0
	for {
		ids, err := s.store.ListUserIDsAfter(ctx, cursor, recomputeBatchSize)
		if err != nil {
			return cursor, processed, fmt.Errorf("list users: %w", err)
		}
		if len(ids) == 0 {
			return cursor, processed, nil
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return cursor, processed, err
			}
			if _, err := s.Recalculate(ctx, id); err != nil {
				logger.WithContext(ctx).Error("reputation recompute failed",
					zap.String("user_id", id.String()), zap.Error(err))
			}
			cursor = id
			processed++
		}
	}
}
