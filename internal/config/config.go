// Package config defines the top-level configuration for modabot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MODABOT_* environment
// variables.
type Config struct {
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Trading   TradingConfig   `toml:"trading"`
	Scoring   ScoringConfig   `toml:"scoring"`
	Predictor PredictorConfig `toml:"predictor"`
	Feed      FeedConfig      `toml:"feed"`
	Monitor   MonitorConfig   `toml:"monitor"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for cold-storage
// archival.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// TradingConfig holds paper-trading parameters.
type TradingConfig struct {
	// InitialCash is the virtual portfolio's starting capital in USD.
	InitialCash float64 `toml:"initial_cash"`
	// MaxPositionSize is the fraction of available cash one buy may use.
	MaxPositionSize float64 `toml:"max_position_size"`
	// MaxTokenAllocation is the fraction of initial cash one token may absorb.
	MaxTokenAllocation float64 `toml:"max_token_allocation"`
	// MinTradeUSD is the smallest trade worth placing.
	MinTradeUSD float64 `toml:"min_trade_usd"`
	// SignalLookback bounds how old a signal may be and still qualify.
	SignalLookback duration `toml:"signal_lookback"`
	// Interval is the pause between execution batches in trade mode.
	Interval duration `toml:"interval"`
	// LockTTL bounds how long the per-portfolio batch lock may be held.
	LockTTL duration `toml:"lock_ttl"`
	// PriceMaxAge bounds how stale a cached price tick may be.
	PriceMaxAge duration `toml:"price_max_age"`
}

// ScoringConfig holds scoring-pass parameters. MinCompositeScore is only the
// bootstrap default; the live threshold comes from the adminConfig document.
type ScoringConfig struct {
	Universe          string   `toml:"universe"`
	Interval          duration `toml:"interval"`
	MinCompositeScore float64  `toml:"min_composite_score"`
}

// PredictorConfig holds the external ML model service endpoint.
type PredictorConfig struct {
	URL        string   `toml:"url"`
	Timeout    duration `toml:"timeout"`
	RetryCount int      `toml:"retry_count"`
}

// FeedConfig holds the market-data websocket parameters.
type FeedConfig struct {
	Enabled bool     `toml:"enabled"`
	WSURL   string   `toml:"ws_url"`
	Tokens  []string `toml:"tokens"`
}

// MonitorConfig holds background monitoring thresholds.
type MonitorConfig struct {
	CheckInterval    duration `toml:"check_interval"`
	SignalStaleAfter duration `toml:"signal_stale_after"`
	// MaxDrawdownPct alerts when realized losses exceed this fraction of
	// initial cash.
	MaxDrawdownPct float64 `toml:"max_drawdown_pct"`
	// ArchiveAfter is the retention window before signals and closed trades
	// are exported to cold storage.
	ArchiveAfter    duration `toml:"archive_after"`
	ArchiveInterval duration `toml:"archive_interval"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// validModes lists the accepted operating modes.
var validModes = map[string]bool{
	"score":   true,
	"trade":   true,
	"monitor": true,
	"full":    true,
}

// Validate checks the configuration for internal consistency. It should be
// called once after Load, before any component is wired.
func (c *Config) Validate() error {
	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		return fmt.Errorf("config: unsupported mode %q (want score, trade, monitor, or full)", c.Mode)
	}

	if c.Postgres.DSN == "" && (c.Postgres.Host == "" || c.Postgres.Database == "" || c.Postgres.User == "") {
		return fmt.Errorf("config: postgres requires either dsn or host/database/user")
	}

	if c.Trading.InitialCash <= 0 {
		return fmt.Errorf("config: trading.initial_cash must be positive, got %.2f", c.Trading.InitialCash)
	}
	if c.Trading.MaxPositionSize <= 0 || c.Trading.MaxPositionSize > 1 {
		return fmt.Errorf("config: trading.max_position_size must be in (0, 1], got %.3f", c.Trading.MaxPositionSize)
	}
	if c.Trading.MaxTokenAllocation <= 0 || c.Trading.MaxTokenAllocation > 1 {
		return fmt.Errorf("config: trading.max_token_allocation must be in (0, 1], got %.3f", c.Trading.MaxTokenAllocation)
	}
	if c.Trading.MinTradeUSD < 0 {
		return fmt.Errorf("config: trading.min_trade_usd must not be negative, got %.2f", c.Trading.MinTradeUSD)
	}

	if c.Scoring.MinCompositeScore < 0.5 || c.Scoring.MinCompositeScore > 1 {
		return fmt.Errorf("config: scoring.min_composite_score must be in [0.5, 1], got %.3f", c.Scoring.MinCompositeScore)
	}
	if c.Scoring.Universe == "" {
		return fmt.Errorf("config: scoring.universe is required")
	}

	if c.Feed.Enabled && c.Feed.WSURL == "" {
		return fmt.Errorf("config: feed.ws_url is required when the feed is enabled")
	}

	return nil
}

// Defaults returns the built-in configuration used as the base layer before
// the TOML file and environment overrides are applied.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Port:         5432,
			SSLMode:      "disable",
			PoolMaxConns: 8,
			PoolMinConns: 1,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 8,
		},
		Trading: TradingConfig{
			InitialCash:        10000,
			MaxPositionSize:    0.10,
			MaxTokenAllocation: 0.15,
			MinTradeUSD:        100,
			SignalLookback:     duration{2 * time.Hour},
			Interval:           duration{15 * time.Minute},
			LockTTL:            duration{5 * time.Minute},
			PriceMaxAge:        duration{10 * time.Minute},
		},
		Scoring: ScoringConfig{
			Universe:          "watchlist",
			Interval:          duration{30 * time.Minute},
			MinCompositeScore: 0.85,
		},
		Predictor: PredictorConfig{
			Timeout:    duration{10 * time.Second},
			RetryCount: 2,
		},
		Monitor: MonitorConfig{
			CheckInterval:    duration{5 * time.Minute},
			SignalStaleAfter: duration{3 * time.Hour},
			MaxDrawdownPct:   0.20,
			ArchiveAfter:     duration{30 * 24 * time.Hour},
			ArchiveInterval:  duration{24 * time.Hour},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}
