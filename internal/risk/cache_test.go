package risk

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_RoundTrip(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client)

	report := &Report{
		TransactionID: uuid.New(),
		UserA:         uuid.New(),
		UserB:         uuid.New(),
		OverallScore:  0.42,
		Level:         LevelMedium,
		GeneratedAt:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(report)
	require.NoError(t, err)

	key := reportKey(report.TransactionID)
	mock.ExpectSet(key, raw, 10*time.Minute).SetVal("OK")
	mock.ExpectGet(key).SetVal(string(raw))

	require.NoError(t, cache.SetReport(context.Background(), report, 10*time.Minute))

	got, err := cache.GetReport(context.Background(), report.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, report.TransactionID, got.TransactionID)
	assert.Equal(t, LevelMedium, got.Level)
	assert.InDelta(t, 0.42, got.OverallScore, 1e-9)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_Miss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client)

	id := uuid.New()
	mock.ExpectGet(reportKey(id)).RedisNil()

	_, err := cache.GetReport(context.Background(), id)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestAnalyzeTransactionRisk_CacheHitSkipsDetectors(t *testing.T) {
	f := newRiskFixture(t)

	cached := &Report{TransactionID: f.txnID, Level: LevelLow, OverallScore: 0.25}
	f.service.cache = fixedCache{report: cached}
	// A cache hit must return before any detector is consulted.
	f.analyzer.scores = nil

	report := f.analyze(t)
	assert.Equal(t, cached, report)
}

type fixedCache struct {
	report *Report
}

func (c fixedCache) GetReport(context.Context, uuid.UUID) (*Report, error) {
	return c.report, nil
}

func (fixedCache) SetReport(context.Context, *Report, time.Duration) error {
	return nil
}
