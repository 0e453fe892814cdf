package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	redisutil "github.com/swapgrid/trust-engine/pkg/redis"
)

// ErrCacheMiss is returned when no report is cached for a transaction.
var ErrCacheMiss = redis.Nil

const reportKeyPrefix = "trust:risk:report:"

// RedisCache stores reports in Redis keyed by transaction id.
type RedisCache struct {
	client *redis.Client
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache creates a report cache over an existing client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func reportKey(transactionID uuid.UUID) string {
	return reportKeyPrefix + transactionID.String()
}

// GetReport returns the cached report or ErrCacheMiss. Transient Redis
// failures are retried; a miss is returned immediately.
func (c *RedisCache) GetReport(ctx context.Context, transactionID uuid.UUID) (*Report, error) {
	raw, err := redisutil.RetryableOperation(ctx, func(ctx context.Context) ([]byte, error) {
		return c.client.Get(ctx, reportKey(transactionID)).Bytes()
	}, "risk_report_get")
	if err != nil {
		return nil, err
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode cached report: %w", err)
	}
	return &report, nil
}

// SetReport caches a report for ttl.
func (c *RedisCache) SetReport(ctx context.Context, report *Report, ttl time.Duration) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = redisutil.RetryableOperation(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.client.Set(ctx, reportKey(report.TransactionID), raw, ttl).Err()
	}, "risk_report_set")
	return err
}

// NoopCache disables caching. Used in tests and when Redis is not
// configured.
type NoopCache struct{}

var _ Cache = NoopCache{}

func (NoopCache) GetReport(context.Context, uuid.UUID) (*Report, error) {
	return nil, ErrCacheMiss
}

func (NoopCache) SetReport(context.Context, *Report, time.Duration) error {
	return nil
}
