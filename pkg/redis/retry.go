package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/swapgrid/trust-engine/pkg/resilience"
)

// ClientInterface is the cache surface consumed by services. Tests substitute
// redismock-backed or fake implementations.
type ClientInterface interface {
	SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

// Error fragments that indicate a permanent failure. Everything else is
// treated as transient: Redis is a cache here, so replaying an operation
// against it is always safe.
var nonRetryableRedisMessages = []string{
	"wrongtype",
	"err syntax",
	"err invalid",
	"noauth",
	"wrongpass",
	"noperm",
	"err unknown",
	"execabort",
}

// isRedisRetryable classifies an error as transient. Unknown errors ARE
// retryable by default.
func isRedisRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Key-not-found is a result, not a failure.
	if errors.Is(err, goredis.Nil) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range nonRetryableRedisMessages {
		if strings.Contains(msg, pattern) {
			return false
		}
	}

	return true
}

// ConservativeRetryConfig returns the default retry schedule for cache
// operations on the request path.
func ConservativeRetryConfig() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.InitialBackoff = 50 * time.Millisecond
	cfg.MaxBackoff = 1 * time.Second
	cfg.RetryableChecker = isRedisRetryable
	return cfg
}

// AggressiveRetryConfig returns a tighter schedule for latency-sensitive
// lookups where stale data is acceptable.
func AggressiveRetryConfig() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = 5
	cfg.InitialBackoff = 20 * time.Millisecond
	cfg.MaxBackoff = 500 * time.Millisecond
	cfg.RetryableChecker = isRedisRetryable
	return cfg
}

// RetryableOperation runs a typed cache operation through the conservative
// retry schedule. The name is currently informational only.
func RetryableOperation[T any](ctx context.Context, op func(ctx context.Context) (T, error), name string) (T, error) {
	result, err := resilience.Retry(ctx, ConservativeRetryConfig(), func(ctx context.Context) (interface{}, error) {
		return op(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, _ := result.(T)
	return typed, nil
}
