package resilience

import (
	"context"
	"errors"
	"time"
)

// Operation is a retryable unit of work.
type Operation func(ctx context.Context) (interface{}, error)

// RetryConfig controls the retry loop behavior.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	// RetryableErrors, when non-empty, limits retries to errors matching
	// one of the listed sentinels via errors.Is.
	RetryableErrors []error

	// RetryableChecker, when set, takes precedence over RetryableErrors.
	RetryableChecker func(err error) bool
}

// DefaultRetryConfig returns a conservative retry configuration suitable for
// transient storage errors.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
	}
}

func (c RetryConfig) isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// A breaker that is already open will not close because we hammer it.
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	if c.RetryableChecker != nil {
		return c.RetryableChecker(err)
	}
	if len(c.RetryableErrors) > 0 {
		for _, candidate := range c.RetryableErrors {
			if errors.Is(err, candidate) {
				return true
			}
		}
		return false
	}
	return true
}

// Retry executes op with bounded exponential backoff. It returns the result
// of the first successful attempt, or the last error once attempts are
// exhausted, the error is classified non-retryable, or the context ends.
func Retry(ctx context.Context, config RetryConfig, op Operation) (interface{}, error) {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultRetryConfig().MaxAttempts
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = DefaultRetryConfig().InitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = DefaultRetryConfig().MaxBackoff
	}
	if config.Multiplier <= 1 {
		config.Multiplier = 2.0
	}

	backoff := config.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !config.isRetryable(err) {
			return nil, err
		}
		if attempt == config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * config.Multiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	return nil, lastErr
}
