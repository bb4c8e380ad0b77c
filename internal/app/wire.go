package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modacrypto/modabot/internal/archive"
	s3blob "github.com/modacrypto/modabot/internal/blob/s3"
	"github.com/modacrypto/modabot/internal/cache/redis"
	"github.com/modacrypto/modabot/internal/config"
	"github.com/modacrypto/modabot/internal/domain"
	"github.com/modacrypto/modabot/internal/notify"
	"github.com/modacrypto/modabot/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	SignalStore      domain.SignalStore
	TradeStore       domain.TradeStore
	PortfolioStore   domain.PortfolioStore
	AdminConfigStore domain.AdminConfigStore
	FeatureStore     domain.FeatureStore
	UniverseStore    domain.UniverseStore
	RunStore         domain.RunStore

	// Caches
	PriceCache  domain.PriceCache
	LockManager domain.LockManager

	// Blob storage
	BlobWriter domain.BlobWriter
	Archiver   *archive.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// needsS3 returns true for modes that require object storage.
func needsS3(mode string) bool {
	switch mode {
	case "monitor", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	tradeStore := postgres.NewTradeStore(pool)
	signalStore := postgres.NewSignalStore(pool)

	deps.SignalStore = signalStore
	deps.TradeStore = tradeStore
	deps.PortfolioStore = postgres.NewPortfolioStore(pool)
	deps.AdminConfigStore = postgres.NewAdminConfigStore(pool, cfg.Scoring.MinCompositeScore)
	deps.FeatureStore = postgres.NewFeatureStore(pool)
	deps.UniverseStore = postgres.NewUniverseStore(pool)
	deps.RunStore = postgres.NewRunStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- S3 blob storage (only for modes that archive) ---
	if needsS3(cfg.Mode) && cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = archive.NewArchiver(deps.BlobWriter, signalStore, tradeStore, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
