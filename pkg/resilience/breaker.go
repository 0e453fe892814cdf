package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when an operation is rejected because the
// breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Settings configures a CircuitBreaker.
type Settings struct {
	Name             string
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	SuccessThreshold uint32
}

// CircuitBreaker wraps gobreaker with metrics and an optional fallback.
type CircuitBreaker struct {
	breaker  *gobreaker.CircuitBreaker
	name     string
	fallback FallbackFunc
}

// NewCircuitBreaker creates a breaker from the given settings. A nil fallback
// defaults to NoopFallback.
func NewCircuitBreaker(settings Settings, fallback FallbackFunc) *CircuitBreaker {
	name := nextBreakerName(settings.Name)
	if fallback == nil {
		fallback = NoopFallback
	}

	failureThreshold := settings.FailureThreshold
	if failureThreshold == 0 {
		failureThreshold = 5
	}

	cb := &CircuitBreaker{name: name, fallback: fallback}
	cb.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.SuccessThreshold,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			breakerStateGauge.WithLabelValues(name).Set(breakerStateValue(to))
			breakerStateTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
	breakerStateGauge.WithLabelValues(name).Set(breakerStateValue(cb.breaker.State()))

	return cb
}

// Execute runs op through the breaker, invoking the fallback when the breaker
// rejects the call.
func (cb *CircuitBreaker) Execute(ctx context.Context, op Operation) (interface{}, error) {
	breakerRequestsTotal.WithLabelValues(cb.name).Inc()

	result, err := cb.breaker.Execute(func() (interface{}, error) {
		return op(ctx)
	})
	if err == nil {
		return result, nil
	}

	breakerFailuresTotal.WithLabelValues(cb.name).Inc()

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		breakerFallbacksTotal.WithLabelValues(cb.name).Inc()
		return cb.fallback(ctx, ErrCircuitOpen)
	}

	return nil, err
}

// State reports the current breaker state.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

// Name returns the breaker's metric label.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}
