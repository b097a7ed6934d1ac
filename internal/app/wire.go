package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/apexfx/brokerd/internal/blob/s3"
	"github.com/apexfx/brokerd/internal/cache/redis"
	"github.com/apexfx/brokerd/internal/config"
	"github.com/apexfx/brokerd/internal/domain"
	"github.com/apexfx/brokerd/internal/lp"
	"github.com/apexfx/brokerd/internal/notify"
	"github.com/apexfx/brokerd/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Postgres
	Pool            *postgres.Client
	OrderStore      domain.OrderStore
	PendingStore    domain.PendingOrderStore
	PositionStore   domain.PositionStore
	BalanceStore    domain.BalanceStore
	InstrumentStore domain.InstrumentStore
	LPRouteStore    domain.LPRouteStore
	AuditStore      domain.AuditStore
	AccountStore    domain.AccountStore

	// Caches
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager

	// Liquidity providers
	Providers *lp.ProviderManager

	// Blob storage for audit exports; nil when archival is disabled.
	BlobWriter *s3blob.Writer

	// Notifications
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
	deps.Pool = pgClient
	deps.OrderStore = postgres.NewOrderStore(pool)
	deps.PendingStore = postgres.NewPendingOrderStore(pool)
	deps.PositionStore = postgres.NewPositionStore(pool)
	deps.BalanceStore = postgres.NewBalanceStore(pool)
	deps.InstrumentStore = postgres.NewInstrumentStore(pool)
	deps.LPRouteStore = postgres.NewLPRouteStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)
	deps.AccountStore = postgres.NewAccountStore(pool)

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

	staleness := time.Duration(cfg.Redis.PriceStaleSeconds) * time.Second
	deps.PriceCache = redis.NewPriceCache(redisClient, staleness)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- Liquidity providers ---
	deps.Providers = lp.NewProviderManager()
	for _, pc := range cfg.LP.Providers {
		switch pc.Type {
		case "mock":
			deps.Providers.Register(lp.NewMockProvider(pc.Name, pc.FailureRate, pc.SlippageBps))
		case "rest":
			deps.Providers.Register(lp.NewRESTProvider(lp.RESTConfig{
				Name:      pc.Name,
				BaseURL:   pc.BaseURL,
				APIKey:    pc.APIKey,
				APISecret: pc.APISecret,
				Timeout:   time.Duration(pc.TimeoutSeconds) * time.Second,
			}))
		}
	}
	if cfg.Routing.PrimaryProvider != "" {
		if err := deps.Providers.SetPrimary(cfg.Routing.PrimaryProvider); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: lp: %w", err)
		}
	}
	if cfg.Routing.FallbackProvider != "" {
		if err := deps.Providers.SetFallback(cfg.Routing.FallbackProvider); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: lp: %w", err)
		}
	}

	// --- S3 blob storage (only when audit archival is enabled) ---
	if cfg.Archive.Enabled {
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
