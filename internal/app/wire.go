package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/quantfold/limitbot/internal/blob/s3"
	"github.com/quantfold/limitbot/internal/cache/redis"
	"github.com/quantfold/limitbot/internal/config"
	"github.com/quantfold/limitbot/internal/crypto"
	"github.com/quantfold/limitbot/internal/domain"
	"github.com/quantfold/limitbot/internal/notify"
	"github.com/quantfold/limitbot/internal/platform/limitless"
	"github.com/quantfold/limitbot/internal/service"
	"github.com/quantfold/limitbot/internal/store/postgres"
	"github.com/quantfold/limitbot/internal/venue"
)

// Dependencies bundles every dependency that the application modes need to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Exchange access
	Signer   *crypto.Signer // nil outside trade mode
	Exchange *limitless.Client
	Feed     *limitless.WSClient

	// Stores
	AuditStore domain.OrderAuditStore

	// Caches (nil when Redis is disabled)
	MarketCache domain.MarketCache
	BookCache   domain.OrderbookCache
	PriceCache  domain.PriceCache
	VenueCache  domain.VenueCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager

	// Blob storage (nil when S3 is disabled)
	BlobWriter domain.BlobWriter
	Archiver   *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier

	// Services
	Orders      *service.OrderService
	Markets     *service.MarketService
	Maintenance *service.MaintenanceService
}

// needsWallet returns true for modes that sign and submit orders.
func needsWallet(mode string) bool {
	return mode == "trade"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Signer (only for modes that submit orders) ---
	if needsWallet(mode) {
		keyHex, err := crypto.ResolveKey(crypto.KeySource{
			PrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedPath: cfg.Wallet.EncryptedKeyPath,
			Password:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("wire: resolve key: %w", err)
		}
		signer, err := crypto.NewSigner(keyHex, cfg.Limitless.ChainID)
		if err != nil {
			return nil, nil, fmt.Errorf("wire: signer: %w", err)
		}
		deps.Signer = signer
	}

	// --- Exchange REST client and WS feed ---
	deps.Exchange = limitless.NewClient(cfg.Limitless.APIHost, deps.Signer)
	if cfg.Limitless.WSHost != "" {
		deps.Feed = limitless.NewWSClient(cfg.Limitless.WSHost)
	}

	// --- PostgreSQL audit store ---
	if cfg.Postgres.Enabled {
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

		deps.AuditStore = postgres.NewOrderAuditStore(pgClient.Pool())
	}

	// --- Redis caches ---
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

		deps.MarketCache = redis.NewMarketCache(redisClient)
		deps.BookCache = redis.NewOrderbookCache(redisClient)
		deps.PriceCache = redis.NewPriceCache(redisClient)
		deps.VenueCache = redis.NewVenueCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
	}

	// --- S3 blob storage ---
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
		if deps.AuditStore != nil {
			deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.AuditStore)
		}
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

	// --- Services ---
	deps.Markets = service.NewMarketService(deps.Exchange, deps.MarketCache, deps.BookCache, logger)

	if deps.Signer != nil {
		resolver := venue.NewResolver(deps.Exchange, deps.VenueCache, logger)
		deps.Orders = service.NewOrderService(
			deps.Signer,
			deps.Exchange,
			resolver,
			deps.Exchange,
			service.OrderServiceConfig{
				Audits:        deps.AuditStore,
				Limiter:       deps.RateLimiter,
				Notifier:      deps.Notifier,
				FeeRateBps:    cfg.Trading.FeeRateBps,
				SignatureType: domain.SignatureType(cfg.Trading.SignatureType),
				RateLimit:     cfg.Trading.RateLimitPerSec,
			},
			logger,
		)
	}

	if deps.Archiver != nil && deps.AuditStore != nil {
		deps.Maintenance = service.NewMaintenanceService(
			deps.Archiver,
			deps.AuditStore,
			deps.LockManager,
			deps.Notifier,
			logger,
		)
	}

	return deps, cleanup, nil
}
