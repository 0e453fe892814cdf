package resilience

import (
	"context"

	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/pkg/logger"
)

// FallbackFunc runs when the breaker rejects a call.
type FallbackFunc func(ctx context.Context, err error) (interface{}, error)

// NoopFallback surfaces ErrCircuitOpen unchanged.
func NoopFallback(ctx context.Context, err error) (interface{}, error) {
	return nil, ErrCircuitOpen
}

// StaticFallback substitutes a fixed value while the circuit is open. Suited
// to lookups where an empty result is an acceptable degradation.
func StaticFallback(defaultValue interface{}) FallbackFunc {
	return func(ctx context.Context, err error) (interface{}, error) {
		logger.Warn("circuit open, serving static fallback", zap.Error(err))
		return defaultValue, nil
	}
}

// GracefulDegradation logs the rejection and returns ErrCircuitOpen so the
// caller can apply its own degradation.
func GracefulDegradation(serviceName string) FallbackFunc {
	return func(ctx context.Context, err error) (interface{}, error) {
		logger.Warn("circuit open, service degraded",
			zap.String("service", serviceName),
			zap.Error(err),
		)
		return nil, ErrCircuitOpen
	}
}
