package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Postgres.Host = "localhost"
	cfg.Postgres.Database = "modabot"
	cfg.Postgres.User = "modabot"
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10000.0, cfg.Trading.InitialCash)
	assert.Equal(t, 0.10, cfg.Trading.MaxPositionSize)
	assert.Equal(t, 0.15, cfg.Trading.MaxTokenAllocation)
	assert.Equal(t, 100.0, cfg.Trading.MinTradeUSD)
	assert.Equal(t, 2*time.Hour, cfg.Trading.SignalLookback.Duration)
	assert.Equal(t, 15*time.Minute, cfg.Trading.Interval.Duration)
	assert.Equal(t, "watchlist", cfg.Scoring.Universe)
	assert.Equal(t, 0.85, cfg.Scoring.MinCompositeScore)
	assert.Equal(t, 30*time.Minute, cfg.Scoring.Interval.Duration)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5432, cfg.Postgres.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config passes",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Mode = "shadow" },
			wantErr: "unsupported mode",
		},
		{
			name: "postgres missing connection info",
			mutate: func(c *Config) {
				c.Postgres.DSN = ""
				c.Postgres.Host = ""
			},
			wantErr: "postgres requires",
		},
		{
			name:    "dsn alone is enough",
			mutate:  func(c *Config) { c.Postgres = PostgresConfig{DSN: "postgres://u:p@h/db"} },
		},
		{
			name:    "non-positive initial cash",
			mutate:  func(c *Config) { c.Trading.InitialCash = 0 },
			wantErr: "initial_cash",
		},
		{
			name:    "position size above one",
			mutate:  func(c *Config) { c.Trading.MaxPositionSize = 1.5 },
			wantErr: "max_position_size",
		},
		{
			name:    "threshold below one half",
			mutate:  func(c *Config) { c.Scoring.MinCompositeScore = 0.3 },
			wantErr: "min_composite_score",
		},
		{
			name:    "missing universe",
			mutate:  func(c *Config) { c.Scoring.Universe = "" },
			wantErr: "universe",
		},
		{
			name:    "feed enabled without url",
			mutate:  func(c *Config) { c.Feed.Enabled = true },
			wantErr: "ws_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
mode = "trade"

[postgres]
host = "db.internal"
database = "modabot"
user = "modabot"

[trading]
initial_cash = 25000.0
signal_lookback = "1h"

[scoring]
universe = "portfolio"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	t.Setenv("MODABOT_MODE", "score")
	t.Setenv("MODABOT_TRADING_INITIAL_CASH", "50000")
	t.Setenv("MODABOT_POSTGRES_PASSWORD", "hunter2")

	cfg, err := Load(path)
	require.NoError(t, err)

	// Env beats file, file beats defaults.
	assert.Equal(t, "score", cfg.Mode)
	assert.Equal(t, 50000.0, cfg.Trading.InitialCash)
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, time.Hour, cfg.Trading.SignalLookback.Duration)
	assert.Equal(t, "portfolio", cfg.Scoring.Universe)
	// Untouched fields keep their defaults.
	assert.Equal(t, 0.10, cfg.Trading.MaxPositionSize)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.DSN = "postgres://u:secret@h/db"
	cfg.Postgres.Password = "pgpass"
	cfg.Redis.Password = "redispass"
	cfg.S3.AccessKey = "AKIA123"
	cfg.S3.SecretKey = "s3secret"
	cfg.Notify.TelegramToken = "123:abc"
	cfg.Notify.DiscordWebhookURL = "https://discord.com/api/webhooks/1/x"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Postgres.DSN)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.AccessKey)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	assert.Equal(t, "***", red.Notify.DiscordWebhookURL)

	// Original is untouched.
	assert.Equal(t, "pgpass", cfg.Postgres.Password)
	// Non-secret fields pass through.
	assert.Equal(t, "localhost", red.Postgres.Host)
}
