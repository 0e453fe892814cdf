package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/swapgrid/trust-engine/pkg/config"
	"github.com/swapgrid/trust-engine/pkg/resilience"
)

// Postgres error codes that indicate a transient condition worth retrying.
var retryablePgCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"53000": true, // insufficient_resources
	"53300": true, // too_many_connections
	"53400": true, // configuration_limit_exceeded
	"08000": true, // connection_exception
	"08003": true, // connection_does_not_exist
	"08006": true, // connection_failure
	"57P01": true, // admin_shutdown
	"57P02": true, // crash_shutdown
	"57P03": true, // cannot_connect_now
	"58000": true, // system_error
	"XX000": true, // internal_error
}

var retryablePgMessages = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"temporary failure",
	"timeout",
	"too many connections",
	"server closed",
}

// isPostgresRetryable classifies an error as transient. Unknown errors are
// NOT retryable: mutating operations must only be replayed when the failure
// class is known to be safe.
func isPostgresRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return retryablePgCodes[pgErr.Code]
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePgMessages {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

// ConservativeRetryConfig retries only classified-transient Postgres errors
// with the default backoff schedule.
func ConservativeRetryConfig() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryableChecker = isPostgresRetryable
	return cfg
}

// AggressiveRetryConfig retries classified-transient errors with more
// attempts and tighter backoff. Intended for idempotent reads.
func AggressiveRetryConfig() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = 5
	cfg.InitialBackoff = 50 * time.Millisecond
	cfg.MaxBackoff = 1 * time.Second
	cfg.RetryableChecker = isPostgresRetryable
	return cfg
}

// NewBreaker builds a circuit breaker for database operations from the
// configured thresholds. Returns nil when the breaker is disabled.
func NewBreaker(serviceName string, cfg config.DatabaseBreakerConfig) *resilience.CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}
	settings := resilience.BuildSettings(
		sanitizeBreakerName(serviceName)+"-db",
		cfg.IntervalSeconds,
		cfg.TimeoutSeconds,
		cfg.FailureThreshold,
		cfg.SuccessThreshold,
	)
	return resilience.NewCircuitBreaker(settings, resilience.GracefulDegradation(serviceName))
}
