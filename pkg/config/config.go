package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Default timeouts, in seconds. Used when the corresponding configuration
// value is unset or invalid.
const (
	DefaultDatabaseQueryTimeout = 30
	DefaultRedisReadTimeout     = 3
	DefaultRedisWriteTimeout    = 3
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Tracing  TracingConfig
	Timeouts TimeoutConfig
	Trust    TrustConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxConns     int
	MinConns     int
	QueryTimeout int // per-statement timeout in seconds
	ReplicaHosts string // comma-separated read replica hosts, optional
	Breaker      DatabaseBreakerConfig
}

// DatabaseBreakerConfig tunes the optional circuit breaker wrapped around
// database operations.
type DatabaseBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	SuccessThreshold int
	TimeoutSeconds   int
	IntervalSeconds  int
}

// TimeoutConfig holds per-dependency operation timeouts in seconds.
type TimeoutConfig struct {
	RedisReadTimeout      int
	RedisWriteTimeout     int
	RedisOperationTimeout int
}

// RedisReadTimeoutDuration resolves the Redis read timeout, falling back to
// the generic operation timeout and then the package default.
func (c *TimeoutConfig) RedisReadTimeoutDuration() time.Duration {
	if c.RedisReadTimeout > 0 {
		return time.Duration(c.RedisReadTimeout) * time.Second
	}
	if c.RedisOperationTimeout > 0 {
		return time.Duration(c.RedisOperationTimeout) * time.Second
	}
	return DefaultRedisReadTimeoutDuration()
}

// RedisWriteTimeoutDuration resolves the Redis write timeout, falling back to
// the generic operation timeout and then the package default.
func (c *TimeoutConfig) RedisWriteTimeoutDuration() time.Duration {
	if c.RedisWriteTimeout > 0 {
		return time.Duration(c.RedisWriteTimeout) * time.Second
	}
	if c.RedisOperationTimeout > 0 {
		return time.Duration(c.RedisOperationTimeout) * time.Second
	}
	return DefaultRedisWriteTimeoutDuration()
}

// DefaultRedisReadTimeoutDuration returns the default read timeout as a duration.
func DefaultRedisReadTimeoutDuration() time.Duration {
	return time.Duration(DefaultRedisReadTimeout) * time.Second
}

// DefaultRedisWriteTimeoutDuration returns the default write timeout as a duration.
func DefaultRedisWriteTimeoutDuration() time.Duration {
	return time.Duration(DefaultRedisWriteTimeout) * time.Second
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds NATS event bus configuration
type NATSConfig struct {
	URL     string
	Enabled bool
}

// TracingConfig holds OpenTelemetry exporter configuration
type TracingConfig struct {
	OTLPEndpoint string
}

// TrustConfig holds the trust engine tunables.
//
// Durations are expressed in days/hours so they can be tuned from the
// environment without parsing duration strings.
type TrustConfig struct {
	RevealDeadlineDays       int    // blind reviews auto-reveal after this many days
	SweepIntervalHours       int    // background sweep cadence
	TrackingRetentionDays    int    // device/IP/location rows older than this are purged
	PatternRetentionDays     int    // suspicious-pattern rows older than this are purged
	ReviewWindowDays         int    // reviews must land within this window after completion
	MinReviewerAccountDays   int    // minimum account age to review
	DailyReviewLimit         int    // reviews per trailing 24h before verification kicks in
	MasterKeyHex             string // 32-byte hex key wrapping per-pair review keys
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "trustengine"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns:     getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:     getEnvAsInt("DB_MIN_CONNS", 5),
			QueryTimeout: getEnvAsInt("DB_QUERY_TIMEOUT", DefaultDatabaseQueryTimeout),
			ReplicaHosts: getEnv("DB_REPLICA_HOSTS", ""),
			Breaker: DatabaseBreakerConfig{
				Enabled:          getEnvAsBool("DB_BREAKER_ENABLED", false),
				FailureThreshold: getEnvAsInt("DB_BREAKER_FAILURE_THRESHOLD", 5),
				SuccessThreshold: getEnvAsInt("DB_BREAKER_SUCCESS_THRESHOLD", 1),
				TimeoutSeconds:   getEnvAsInt("DB_BREAKER_TIMEOUT_SECONDS", 30),
				IntervalSeconds:  getEnvAsInt("DB_BREAKER_INTERVAL_SECONDS", 60),
			},
		},
		Timeouts: TimeoutConfig{
			RedisReadTimeout:      getEnvAsInt("REDIS_READ_TIMEOUT", 0),
			RedisWriteTimeout:     getEnvAsInt("REDIS_WRITE_TIMEOUT", 0),
			RedisOperationTimeout: getEnvAsInt("REDIS_OPERATION_TIMEOUT", 0),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Enabled: getEnvAsBool("NATS_ENABLED", true),
		},
		Tracing: TracingConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		},
		Trust: TrustConfig{
			RevealDeadlineDays:     getEnvAsInt("REVEAL_DEADLINE_DAYS", 14),
			SweepIntervalHours:     getEnvAsInt("SWEEP_INTERVAL_HOURS", 24),
			TrackingRetentionDays:  getEnvAsInt("TRACKING_RETENTION_DAYS", 90),
			PatternRetentionDays:   getEnvAsInt("PATTERN_RETENTION_DAYS", 180),
			ReviewWindowDays:       getEnvAsInt("REVIEW_WINDOW_DAYS", 90),
			MinReviewerAccountDays: getEnvAsInt("MIN_REVIEWER_ACCOUNT_DAYS", 14),
			DailyReviewLimit:       getEnvAsInt("DAILY_REVIEW_LIMIT", 5),
			MasterKeyHex:           getEnv("REVIEW_MASTER_KEY", ""),
		},
	}

	if _, err := cfg.Trust.MasterKey(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the database connection string in URL form for migrations.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// MasterKey decodes the configured review master key. An empty value is
// allowed so read-only tooling can load config without the key; callers that
// need the key must treat a nil result as fatal.
func (c *TrustConfig) MasterKey() ([]byte, error) {
	if c.MasterKeyHex == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.MasterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("REVIEW_MASTER_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("REVIEW_MASTER_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
