package health

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const probeTimeout = 2 * time.Second

// DatabaseChecker returns a health check function for a database/sql handle.
func DatabaseChecker(db *sql.DB) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		return db.PingContext(ctx)
	}
}

// PoolChecker returns a health check function for a pgx connection pool.
func PoolChecker(pool *pgxpool.Pool) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		return pool.Ping(ctx)
	}
}

// RedisChecker returns a health check function for Redis.
func RedisChecker(client *redis.Client) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		return client.Ping(ctx).Err()
	}
}

// Pingable is any dependency that can report its own liveness, such as the
// event bus connection.
type Pingable interface {
	Healthy() error
}

// DependencyChecker adapts a Pingable into a health check function.
func DependencyChecker(dep Pingable) func() error {
	return func() error {
		return dep.Healthy()
	}
}
