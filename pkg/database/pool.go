package database

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/pkg/config"
	"github.com/swapgrid/trust-engine/pkg/logger"
)

// DBPool bundles a primary connection pool with optional read replicas.
// Reads that tolerate replication lag should go through GetReplica.
type DBPool struct {
	Primary  *pgxpool.Pool
	Replicas []*pgxpool.Pool

	next    uint64
	metrics *DBMetrics
}

// DBMetrics exposes query instrumentation for a DBPool.
type DBMetrics struct {
	queryDuration *prometheus.HistogramVec
	queryErrors   *prometheus.CounterVec
}

// NewDBMetrics registers Prometheus collectors for database queries.
// serviceName must be a valid Prometheus label value.
func NewDBMetrics(serviceName string) *DBMetrics {
	return &DBMetrics{
		queryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "db_query_duration_seconds",
			Help:        "Database query duration in seconds",
			ConstLabels: prometheus.Labels{"service": serviceName},
			Buckets:     prometheus.DefBuckets,
		}, []string{"operation"}),
		queryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "db_query_errors_total",
			Help:        "Total number of failed database queries",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"operation"}),
	}
}

// NewDBPool creates the primary pool plus one pool per configured replica
// host. Replica failures are logged and skipped so a degraded replica set
// does not block startup.
func NewDBPool(cfg *config.DatabaseConfig, metrics *DBMetrics) (*DBPool, error) {
	primary, err := newPoolForHost(cfg, cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("unable to create primary pool: %w", err)
	}

	pool := &DBPool{Primary: primary, metrics: metrics}

	if cfg.ReplicaHosts != "" {
		for _, host := range strings.Split(cfg.ReplicaHosts, ",") {
			host = strings.TrimSpace(host)
			if host == "" {
				continue
			}
			replica, err := newPoolForHost(cfg, host)
			if err != nil {
				logger.Warn("skipping unreachable read replica",
					zap.String("host", host), zap.Error(err))
				continue
			}
			pool.Replicas = append(pool.Replicas, replica)
		}
	}

	return pool, nil
}

func newPoolForHost(cfg *config.DatabaseConfig, host string) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.AfterConnect = createStatementTimeoutCallback(resolveQueryTimeout(cfg.QueryTimeout))

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

// GetPrimary returns the primary pool.
func (p *DBPool) GetPrimary() *pgxpool.Pool {
	return p.Primary
}

// GetReplica returns the next replica in round-robin order, falling back to
// the primary when no replicas are configured.
func (p *DBPool) GetReplica() *pgxpool.Pool {
	if len(p.Replicas) == 0 {
		return p.Primary
	}
	idx := atomic.AddUint64(&p.next, 1)
	return p.Replicas[idx%uint64(len(p.Replicas))]
}

// RecordQuery records duration and error metrics for a query.
func (p *DBPool) RecordQuery(operation string, start time.Time, err error) {
	if p.metrics == nil {
		return
	}
	p.metrics.queryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.queryErrors.WithLabelValues(operation).Inc()
	}
}

// Close closes all pools. Safe on nil pools.
func (p *DBPool) Close() {
	if p.Primary != nil {
		p.Primary.Close()
	}
	for _, replica := range p.Replicas {
		if replica != nil {
			replica.Close()
		}
	}
}

// createStatementTimeoutCallback returns an AfterConnect hook that applies a
// per-session statement timeout, in seconds.
func createStatementTimeoutCallback(timeoutSeconds int) func(ctx context.Context, conn *pgx.Conn) error {
	return func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, fmt.Sprintf("SET statement_timeout = %d", timeoutSeconds*1000))
		return err
	}
}

// resolveQueryTimeout picks the first positive override, defaulting to the
// configured package default.
func resolveQueryTimeout(overrides ...int) int {
	if len(overrides) > 0 && overrides[0] > 0 {
		return overrides[0]
	}
	return config.DefaultDatabaseQueryTimeout
}

// sanitizeBreakerName normalizes a service name into a metric-safe label.
func sanitizeBreakerName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	return strings.ReplaceAll(name, " ", "-")
}
