package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapgrid/trust-engine/pkg/config"
)

func TestIsPostgresRetryable_PgErrorCodes(t *testing.T) {
	tests := []struct {
		code      string
		retryable bool
	}{
		{"40001", true},  // serialization_failure
		{"40P01", true},  // deadlock_detected
		{"55P03", true},  // lock_not_available
		{"53300", true},  // too_many_connections
		{"57P03", true},  // cannot_connect_now
		{"XX000", true},  // internal_error
		{"23505", false}, // unique_violation
		{"22P02", false}, // invalid_text_representation
		{"42601", false}, // syntax_error
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := &pgconn.PgError{Code: tt.code, Message: "boom"}
			assert.Equal(t, tt.retryable, isPostgresRetryable(err))
		})
	}
}

func TestIsPostgresRetryable_Messages(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"wrapped cancel", fmt.Errorf("query: %w", context.Canceled), false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"connection reset", errors.New("read: connection reset by peer"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"server closed", errors.New("conn closed: server closed the connection"), true},
		{"i/o timeout", errors.New("read tcp: i/o timeout"), true},
		{"unknown error stays put", errors.New("column does not exist"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isPostgresRetryable(tt.err))
		})
	}
}

func TestConservativeRetryConfig(t *testing.T) {
	cfg := ConservativeRetryConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)
	require.NotNil(t, cfg.RetryableChecker)
	assert.False(t, cfg.RetryableChecker(errors.New("duplicate key")))
	assert.True(t, cfg.RetryableChecker(errors.New("connection refused")))
}

func TestAggressiveRetryConfig(t *testing.T) {
	cfg := AggressiveRetryConfig()
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, time.Second, cfg.MaxBackoff)
	require.NotNil(t, cfg.RetryableChecker)
}

func TestNewBreaker_Disabled(t *testing.T) {
	assert.Nil(t, NewBreaker("trust-engine", config.DatabaseBreakerConfig{Enabled: false}))
}

func TestNewBreaker_Enabled(t *testing.T) {
	cb := NewBreaker("Trust Engine", config.DatabaseBreakerConfig{
		Enabled:          true,
		FailureThreshold: 3,
		SuccessThreshold: 1,
		TimeoutSeconds:   10,
		IntervalSeconds:  60,
	})
	require.NotNil(t, cb)
	assert.True(t, strings.HasPrefix(cb.Name(), "trust-engine-db"))
}

func TestSanitizeBreakerName(t *testing.T) {
	assert.Equal(t, "trust-engine", sanitizeBreakerName("  Trust Engine "))
	assert.Equal(t, "trustd", sanitizeBreakerName("trustd"))
}

func TestResolveQueryTimeout(t *testing.T) {
	assert.Equal(t, config.DefaultDatabaseQueryTimeout, resolveQueryTimeout())
	assert.Equal(t, config.DefaultDatabaseQueryTimeout, resolveQueryTimeout(0))
	assert.Equal(t, config.DefaultDatabaseQueryTimeout, resolveQueryTimeout(-1))
	assert.Equal(t, 10, resolveQueryTimeout(10))
}

func TestDBPool_GetReplica_NoReplicasFallsBackToPrimary(t *testing.T) {
	primary := newIdlePool(t)
	pool := &DBPool{Primary: primary}
	assert.Same(t, primary, pool.GetReplica())
	assert.Same(t, primary, pool.GetPrimary())
}

func TestDBPool_GetReplica_RoundRobin(t *testing.T) {
	r1 := newIdlePool(t)
	r2 := newIdlePool(t)
	pool := &DBPool{Primary: newIdlePool(t), Replicas: []*pgxpool.Pool{r1, r2}}

	first := pool.GetReplica()
	second := pool.GetReplica()
	assert.NotSame(t, first, second)
	assert.Same(t, first, pool.GetReplica())
}

func TestDBPool_RecordQuery_NilMetrics(t *testing.T) {
	pool := &DBPool{}
	// Must not panic when metrics were never registered.
	pool.RecordQuery("select_reviews", time.Now(), errors.New("boom"))
}

// newIdlePool builds a pool that never dials. Pool construction in pgx is
// lazy, so no server is needed.
func newIdlePool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	cfg, err := pgxpool.ParseConfig("host=127.0.0.1 port=1 user=t dbname=t sslmode=disable")
	require.NoError(t, err)
	cfg.MinConns = 0
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}
