package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MODABOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MODABOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// Postgres
	setStr(&cfg.Postgres.DSN, "MODABOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MODABOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MODABOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MODABOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MODABOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MODABOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MODABOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MODABOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MODABOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MODABOT_POSTGRES_RUN_MIGRATIONS")

	// Redis
	setStr(&cfg.Redis.Addr, "MODABOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MODABOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MODABOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MODABOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MODABOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MODABOT_REDIS_TLS_ENABLED")

	// S3
	setStr(&cfg.S3.Endpoint, "MODABOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MODABOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "MODABOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MODABOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MODABOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MODABOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MODABOT_S3_FORCE_PATH_STYLE")

	// Trading
	setFloat64(&cfg.Trading.InitialCash, "MODABOT_TRADING_INITIAL_CASH")
	setFloat64(&cfg.Trading.MaxPositionSize, "MODABOT_TRADING_MAX_POSITION_SIZE")
	setFloat64(&cfg.Trading.MaxTokenAllocation, "MODABOT_TRADING_MAX_TOKEN_ALLOCATION")
	setFloat64(&cfg.Trading.MinTradeUSD, "MODABOT_TRADING_MIN_TRADE_USD")
	setDuration(&cfg.Trading.SignalLookback, "MODABOT_TRADING_SIGNAL_LOOKBACK")
	setDuration(&cfg.Trading.Interval, "MODABOT_TRADING_INTERVAL")
	setDuration(&cfg.Trading.LockTTL, "MODABOT_TRADING_LOCK_TTL")
	setDuration(&cfg.Trading.PriceMaxAge, "MODABOT_TRADING_PRICE_MAX_AGE")

	// Scoring
	setStr(&cfg.Scoring.Universe, "MODABOT_SCORING_UNIVERSE")
	setDuration(&cfg.Scoring.Interval, "MODABOT_SCORING_INTERVAL")
	setFloat64(&cfg.Scoring.MinCompositeScore, "MODABOT_SCORING_MIN_COMPOSITE_SCORE")

	// Predictor
	setStr(&cfg.Predictor.URL, "MODABOT_PREDICTOR_URL")
	setDuration(&cfg.Predictor.Timeout, "MODABOT_PREDICTOR_TIMEOUT")
	setInt(&cfg.Predictor.RetryCount, "MODABOT_PREDICTOR_RETRY_COUNT")

	// Feed
	setBool(&cfg.Feed.Enabled, "MODABOT_FEED_ENABLED")
	setStr(&cfg.Feed.WSURL, "MODABOT_FEED_WS_URL")
	setStringSlice(&cfg.Feed.Tokens, "MODABOT_FEED_TOKENS")

	// Monitor
	setDuration(&cfg.Monitor.CheckInterval, "MODABOT_MONITOR_CHECK_INTERVAL")
	setDuration(&cfg.Monitor.SignalStaleAfter, "MODABOT_MONITOR_SIGNAL_STALE_AFTER")
	setFloat64(&cfg.Monitor.MaxDrawdownPct, "MODABOT_MONITOR_MAX_DRAWDOWN_PCT")
	setDuration(&cfg.Monitor.ArchiveAfter, "MODABOT_MONITOR_ARCHIVE_AFTER")
	setDuration(&cfg.Monitor.ArchiveInterval, "MODABOT_MONITOR_ARCHIVE_INTERVAL")

	// Notify
	setStr(&cfg.Notify.TelegramToken, "MODABOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MODABOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MODABOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MODABOT_NOTIFY_EVENTS")

	// Top-level
	setStr(&cfg.Mode, "MODABOT_MODE")
	setStr(&cfg.LogLevel, "MODABOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
