package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Redis
	RedisURL string

	// Venues
	EnabledVenues []string
	KalshiAPIKey  string
	TheOddsAPIKey string
	ApifyAPIToken string
	LiveCacheTTL  time.Duration
	StreamMaxLen  int64

	// Arbitrage Engine
	EngineGroup       string
	EngineConsumer    string
	EngineReadCount   int64
	EngineBlockTime   time.Duration
	DetectionInterval time.Duration
	ReclusterCycles   int
	MinProfit         float64
	TotalStake        float64
	OpportunityTTL    time.Duration
	MatcherCacheTTL   time.Duration

	// Snapshots
	SnapshotInterval  time.Duration
	SnapshotGrace     time.Duration
	SnapshotBatchSize int

	// Retention
	PruneInterval      time.Duration
	RetentionDays      int
	StaleCheckInterval time.Duration
	StaleDays          int

	// Storage
	StorageMode  string // "postgres" or "none"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// AllVenues is the default ingestion set when VENUES is unset.
var AllVenues = []string{
	"polymarket", "kalshi", "predictit", "gemini",
	"limitless", "robinhood", "coinbase", "theoddsapi", "draftkings",
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Redis defaults
		RedisURL: getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),

		// Venue defaults
		EnabledVenues: getListOrDefault("VENUES", AllVenues),
		KalshiAPIKey:  os.Getenv("KALSHI_API_KEY"),
		TheOddsAPIKey: os.Getenv("THE_ODDS_API_KEY"),
		ApifyAPIToken: os.Getenv("APIFY_API_TOKEN"),
		LiveCacheTTL:  getDurationOrDefault("LIVE_CACHE_TTL", 660*time.Second),
		StreamMaxLen:  getInt64OrDefault("STREAM_MAXLEN", 50000),

		// Engine defaults
		EngineGroup:       getEnvOrDefault("ENGINE_GROUP", "arbengine"),
		EngineConsumer:    getEnvOrDefault("ENGINE_CONSUMER", "arb-worker-1"),
		EngineReadCount:   getInt64OrDefault("ENGINE_READ_COUNT", 100),
		EngineBlockTime:   getDurationOrDefault("ENGINE_BLOCK_TIME", 2*time.Second),
		DetectionInterval: getDurationOrDefault("DETECTION_INTERVAL", 5*time.Second),
		ReclusterCycles:   getIntOrDefault("RECLUSTER_INTERVAL_CYCLES", 60),
		MinProfit:         getFloat64OrDefault("MIN_PROFIT", 0.001),
		TotalStake:        getFloat64OrDefault("TOTAL_STAKE", 100.0),
		OpportunityTTL:    getDurationOrDefault("OPPORTUNITY_TTL", 5*time.Minute),
		MatcherCacheTTL:   getDurationOrDefault("MATCHER_CACHE_TTL", 60*time.Second),

		// Snapshot defaults
		SnapshotInterval:  getDurationOrDefault("SNAPSHOT_INTERVAL", 5*time.Minute),
		SnapshotGrace:     getDurationOrDefault("SNAPSHOT_GRACE", 30*time.Second),
		SnapshotBatchSize: getIntOrDefault("SNAPSHOT_BATCH_SIZE", 500),

		// Retention defaults
		PruneInterval:      getDurationOrDefault("PRUNE_INTERVAL", 6*time.Hour),
		RetentionDays:      getIntOrDefault("RETENTION_DAYS", 7),
		StaleCheckInterval: getDurationOrDefault("STALE_CHECK_INTERVAL", 24*time.Hour),
		StaleDays:          getIntOrDefault("STALE_DAYS", 30),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "postgres"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "oddsaxiom"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "oddsaxiom"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "oddsaxiom"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL cannot be empty")
	}

	if len(c.EnabledVenues) == 0 {
		return fmt.Errorf("VENUES cannot be empty")
	}

	if c.MinProfit <= 0 || c.MinProfit >= 1.0 {
		return fmt.Errorf("MIN_PROFIT must be between 0 and 1.0, got %f", c.MinProfit)
	}

	if c.TotalStake <= 0 {
		return fmt.Errorf("TOTAL_STAKE must be positive, got %f", c.TotalStake)
	}

	if c.ReclusterCycles <= 0 {
		return fmt.Errorf("RECLUSTER_INTERVAL_CYCLES must be positive, got %d", c.ReclusterCycles)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "none" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'none', got %q", c.StorageMode)
	}

	return nil
}

// StaleHorizon is the age beyond which a buffered quote no longer supports
// detection: twice the live-cache TTL, so a quote survives one missed refresh
// but not two.
func (c *Config) StaleHorizon() time.Duration {
	return 2 * c.LiveCacheTTL
}

// PostgresConnStr assembles the lib/pq connection string.
func (c *Config) PostgresConnStr() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPass, c.PostgresDB, c.PostgresSSL)
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var list []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			list = append(list, part)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
