package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, AllVenues, cfg.EnabledVenues)
	assert.Equal(t, 660*time.Second, cfg.LiveCacheTTL)
	assert.Equal(t, int64(50000), cfg.StreamMaxLen)
	assert.Equal(t, "arbengine", cfg.EngineGroup)
	assert.Equal(t, "arb-worker-1", cfg.EngineConsumer)
	assert.Equal(t, 5*time.Second, cfg.DetectionInterval)
	assert.Equal(t, 60, cfg.ReclusterCycles)
	assert.InDelta(t, 0.001, cfg.MinProfit, 1e-9)
	assert.InDelta(t, 100.0, cfg.TotalStake, 1e-9)
	assert.Equal(t, 5*time.Minute, cfg.OpportunityTTL)
	assert.Equal(t, 6*time.Hour, cfg.PruneInterval)
	assert.Equal(t, 7, cfg.RetentionDays)
	assert.Equal(t, 24*time.Hour, cfg.StaleCheckInterval)
	assert.Equal(t, 30, cfg.StaleDays)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("VENUES", "polymarket, kalshi")
	t.Setenv("MIN_PROFIT", "0.02")
	t.Setenv("DETECTION_INTERVAL", "10s")
	t.Setenv("STREAM_MAXLEN", "1000")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{"polymarket", "kalshi"}, cfg.EnabledVenues)
	assert.InDelta(t, 0.02, cfg.MinProfit, 1e-9)
	assert.Equal(t, 10*time.Second, cfg.DetectionInterval)
	assert.Equal(t, int64(1000), cfg.StreamMaxLen)
}

func TestLoadFromEnvMalformedValuesFallBack(t *testing.T) {
	t.Setenv("DETECTION_INTERVAL", "soon")
	t.Setenv("MIN_PROFIT", "lots")
	t.Setenv("RETENTION_DAYS", "a week")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.DetectionInterval)
	assert.InDelta(t, 0.001, cfg.MinProfit, 1e-9)
	assert.Equal(t, 7, cfg.RetentionDays)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"min-profit-too-high", func(c *Config) { c.MinProfit = 1.5 }, "MIN_PROFIT"},
		{"min-profit-zero", func(c *Config) { c.MinProfit = 0 }, "MIN_PROFIT"},
		{"negative-stake", func(c *Config) { c.TotalStake = -5 }, "TOTAL_STAKE"},
		{"no-venues", func(c *Config) { c.EnabledVenues = nil }, "VENUES"},
		{"bad-storage-mode", func(c *Config) { c.StorageMode = "mysql" }, "STORAGE_MODE"},
		{"zero-recluster", func(c *Config) { c.ReclusterCycles = 0 }, "RECLUSTER_INTERVAL_CYCLES"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromEnv()
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStaleHorizonDoublesCacheTTL(t *testing.T) {
	cfg := &Config{LiveCacheTTL: 660 * time.Second}
	assert.Equal(t, 1320*time.Second, cfg.StaleHorizon())
}

func TestPostgresConnStr(t *testing.T) {
	cfg := &Config{
		PostgresHost: "db", PostgresPort: "5433", PostgresUser: "u",
		PostgresPass: "p", PostgresDB: "odds", PostgresSSL: "disable",
	}
	assert.Equal(t,
		"host=db port=5433 user=u password=p dbname=odds sslmode=disable",
		cfg.PostgresConnStr())
}
