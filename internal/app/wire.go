package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LavaaC/ArbiSport/internal/archive"
	s3blob "github.com/LavaaC/ArbiSport/internal/blob/s3"
	"github.com/LavaaC/ArbiSport/internal/cache/redis"
	"github.com/LavaaC/ArbiSport/internal/config"
	"github.com/LavaaC/ArbiSport/internal/domain"
	"github.com/LavaaC/ArbiSport/internal/metrics"
	"github.com/LavaaC/ArbiSport/internal/notify"
	"github.com/LavaaC/ArbiSport/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	EventStore domain.EventStore
	QuoteStore domain.QuoteStore
	ArbStore   domain.ArbStore
	UsageStore domain.UsageStore

	// Cache and messaging (nil when Redis is disabled)
	QuoteCache domain.QuoteCache
	SignalBus  domain.SignalBus

	// Cold storage (nil when S3 is disabled)
	ArchiveWriter   domain.ArchiveWriter
	ArchiveVerifier archive.Verifier

	// Telemetry and notifications
	Metrics  *metrics.Metrics
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Metrics: metrics.New(),
	}

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
	deps.EventStore = postgres.NewEventStore(pool)
	deps.QuoteStore = postgres.NewQuoteStore(pool)
	deps.ArbStore = postgres.NewArbStore(pool)
	deps.UsageStore = postgres.NewUsageStore(pool)

	// --- Redis (optional) ---
	if cfg.Redis.Enabled {
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

		deps.QuoteCache = redis.NewQuoteCache(redisClient, 0)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- S3 blob storage (optional) ---
	if cfg.S3.Enabled {
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

		deps.ArchiveWriter = s3blob.NewArchiveWriter(s3blob.NewWriter(s3Client))
		deps.ArchiveVerifier = s3blob.NewReader(s3Client)
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
	if len(senders) == 0 {
		senders = append(senders, notify.NewLogSender(logger))
	}
	deps.Notifier = notify.NewNotifier(senders, decimal.NewFromFloat(cfg.Notify.AlertEdge), logger)

	return deps, cleanup, nil
}

// archiveConfig translates the archive section into the retention pass
// configuration.
func archiveConfig(cfg config.ArchiveConfig) archive.Config {
	return archive.Config{
		Retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		Interval:  cfg.Interval.Duration,
		Prefix:    cfg.Prefix,
	}
}
