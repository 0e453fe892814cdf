// Package sweeper runs the periodic maintenance pass: deadline reveals of
// pending reviews, retention purges of tracking and pattern data, and the
// trading-ring detection over the recent trade graph.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/internal/patterns"
	"github.com/swapgrid/trust-engine/pkg/database"
	"github.com/swapgrid/trust-engine/pkg/logger"
	"github.com/swapgrid/trust-engine/pkg/resilience"
)

var (
	sweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweeper_runs_total",
			Help: "Sweep passes by outcome",
		},
		[]string{"task", "outcome"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sweeper_pass_duration_seconds",
			Help:    "Duration of one full sweep pass",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RevealSweeper reveals pending reviews past their deadline.
type RevealSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// TrackingPurger removes tracking rows past the retention window.
type TrackingPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// PatternMaintainer purges stale patterns and refreshes the ring analysis.
type PatternMaintainer interface {
	PurgeExpired(ctx context.Context) (int64, error)
	DetectRings(ctx context.Context) ([]patterns.SuspiciousPattern, error)
}

// Worker runs the sweep on a fixed interval. Passes are independent: a
// delayed or skipped pass is made up for by the next one.
type Worker struct {
	reveals  RevealSweeper
	tracking TrackingPurger
	patterns PatternMaintainer
	interval time.Duration
	retry    resilience.RetryConfig

	stop chan struct{}
	done sync.WaitGroup
}

// NewWorker creates a sweep worker. Sweep tasks are retried on transient
// database errors; anything else fails the task until the next pass.
func NewWorker(reveals RevealSweeper, tracking TrackingPurger, patterns PatternMaintainer, interval time.Duration) *Worker {
	return &Worker{
		reveals:  reveals,
		tracking: tracking,
		patterns: patterns,
		interval: interval,
		retry:    database.ConservativeRetryConfig(),
		stop:     make(chan struct{}),
	}
}

// Start launches the sweep loop. The first pass runs immediately so a
// restart does not delay overdue reveals by a full interval.
func (w *Worker) Start(ctx context.Context) {
	w.done.Add(1)
	go func() {
		defer w.done.Done()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.RunOnce(ctx)
		for {
			select {
			case <-ticker.C:
				w.RunOnce(ctx)
			case <-w.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (w *Worker) Stop() {
	close(w.stop)
	w.done.Wait()
}

// RunOnce executes one sweep pass. Task failures are logged and do not
// abort the remaining tasks.
func (w *Worker) RunOnce(ctx context.Context) {
	start := time.Now()
	defer func() {
		sweepDuration.Observe(time.Since(start).Seconds())
	}()

	if revealed, err := w.sweepReveals(ctx); err != nil {
		sweepRunsTotal.WithLabelValues("reveal", "error").Inc()
		logger.Error("deadline reveal sweep failed", zap.Error(err))
	} else {
		sweepRunsTotal.WithLabelValues("reveal", "ok").Inc()
		if revealed > 0 {
			logger.Info("revealed expired review pairs", zap.Int("transactions", revealed))
		}
	}

	if purged, err := w.purgeTracking(ctx); err != nil {
		sweepRunsTotal.WithLabelValues("tracking_purge", "error").Inc()
		logger.Error("tracking purge failed", zap.Error(err))
	} else {
		sweepRunsTotal.WithLabelValues("tracking_purge", "ok").Inc()
		if purged > 0 {
			logger.Info("purged expired tracking rows", zap.Int64("rows", purged))
		}
	}

	if _, err := w.patterns.PurgeExpired(ctx); err != nil {
		sweepRunsTotal.WithLabelValues("pattern_purge", "error").Inc()
		logger.Error("pattern purge failed", zap.Error(err))
	} else {
		sweepRunsTotal.WithLabelValues("pattern_purge", "ok").Inc()
	}

	if found, err := w.patterns.DetectRings(ctx); err != nil {
		sweepRunsTotal.WithLabelValues("ring_detection", "error").Inc()
		logger.Error("ring detection failed", zap.Error(err))
	} else {
		sweepRunsTotal.WithLabelValues("ring_detection", "ok").Inc()
		if len(found) > 0 {
			logger.Info("trading rings detected", zap.Int("patterns", len(found)))
		}
	}
}

func (w *Worker) sweepReveals(ctx context.Context) (int, error) {
	result, err := resilience.Retry(ctx, w.retry, func(ctx context.Context) (interface{}, error) {
		return w.reveals.SweepExpired(ctx)
	})
	if err != nil {
		return 0, err
	}
	revealed, _ := result.(int)
	return revealed, nil
}

func (w *Worker) purgeTracking(ctx context.Context) (int64, error) {
	result, err := resilience.Retry(ctx, w.retry, func(ctx context.Context) (interface{}, error) {
		return w.tracking.PurgeExpired(ctx)
	})
	if err != nil {
		return 0, err
	}
	purged, _ := result.(int64)
	return purged, nil
}
