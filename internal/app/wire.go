package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/glitchedstore/farmpanel/internal/blob/s3"
	"github.com/glitchedstore/farmpanel/internal/cache/redis"
	"github.com/glitchedstore/farmpanel/internal/config"
	"github.com/glitchedstore/farmpanel/internal/crypto"
	"github.com/glitchedstore/farmpanel/internal/domain"
	"github.com/glitchedstore/farmpanel/internal/notify"
	"github.com/glitchedstore/farmpanel/internal/platform/eldorado"
	"github.com/glitchedstore/farmpanel/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	ListingStore  domain.ListingStore
	CatalogStore  domain.CatalogStore
	APIKeyStore   domain.APIKeyStore
	PriceLogStore domain.PriceLogStore

	// Caches
	RecommendationCache domain.RecommendationCache
	RateLimiter         domain.RateLimiter
	LockManager         domain.LockManager
	SignalBus           domain.SignalBus

	// Blob storage (nil unless S3 archival is enabled)
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.ScanArchiver

	// Marketplace
	Eldorado *eldorado.Client

	// Credentials
	Vault *crypto.KeyVault

	// Notifications
	Notifier *notify.Notifier
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
	deps.ListingStore = postgres.NewListingStore(pool)
	deps.CatalogStore = postgres.NewCatalogStore(pool)
	deps.APIKeyStore = postgres.NewAPIKeyStore(pool)
	deps.PriceLogStore = postgres.NewPriceLogStore(pool)

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

	deps.RecommendationCache = redis.NewRecommendationCache(redisClient, cfg.Scanner.CacheTTL.Duration)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 blob storage (optional scan snapshot archival) ---
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

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewScanArchiver(deps.BlobWriter, logger)
	}

	// --- Marketplace client ---
	deps.Eldorado = eldorado.NewClient(cfg.Eldorado.BaseURL)

	// --- Key vault ---
	if cfg.Vault.Secret != "" {
		vault, err := crypto.NewKeyVault(cfg.Vault.Secret)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: key vault: %w", err)
		}
		deps.Vault = vault
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
