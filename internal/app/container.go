// Package app assembles storage, services and background workers from configuration.
// Both the HTTP server and the operator CLI build on it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/campusdesk/internal/config"
	"github.com/spec-kit/campusdesk/internal/events"
	"github.com/spec-kit/campusdesk/internal/observability"
	"github.com/spec-kit/campusdesk/internal/persistence"
	"github.com/spec-kit/campusdesk/internal/ratelimit"
	"github.com/spec-kit/campusdesk/internal/repository"
	"github.com/spec-kit/campusdesk/internal/repository/memory"
	"github.com/spec-kit/campusdesk/internal/service"
)

// Repositories groups one storage backend's implementations.
type Repositories struct {
	Accounts   repository.AccountRepository
	Invites    repository.InviteCodeRepository
	Tickets    repository.TicketRepository
	History    repository.TicketHistoryRepository
	RateLimits repository.RateLimitRepository
}

// PostgresRepositories returns the pgx-backed repositories.
func PostgresRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Accounts:   repository.NewAccountRepository(pool),
		Invites:    repository.NewInviteCodeRepository(pool),
		Tickets:    repository.NewTicketRepository(pool),
		History:    repository.NewTicketHistoryRepository(pool),
		RateLimits: repository.NewRateLimitRepository(pool),
	}
}

// MemoryRepositories returns repositories backed by a single in-process store.
func MemoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Accounts:   store.Accounts(),
		Invites:    store.Invites(),
		Tickets:    store.Tickets(),
		History:    store.History(),
		RateLimits: store.RateLimits(),
	}
}

// Container holds the wired services and the resources they depend on.
type Container struct {
	Config        config.Config
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	Postgres      *persistence.Postgres
	Redis         *persistence.Redis
	Repos         Repositories
	Dispatcher    events.Dispatcher
	Broker        events.Broker
	Limiter       *ratelimit.Limiter
	Auth          *service.AuthService
	Invites       *service.InviteService
	Accounts      *service.AccountService
	Tickets       *service.TicketService
	Lifecycle     *service.LifecycleService
	Notifications *service.NotificationService
}

// Options overrides parts of the wiring. Zero values select the defaults.
type Options struct {
	Repos        *Repositories
	LimiterStore ratelimit.Store
	Broker       events.Broker
	Metrics      *observability.Metrics
}

// Open connects to the configured backends and wires every service. Without a
// Postgres DSN the container runs on the in-memory store.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Container, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	var repos Repositories
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		repos = PostgresRepositories(pg.PoolHandle())
	} else {
		repos = MemoryRepositories(memory.NewStore())
	}

	var (
		redisConn    *persistence.Redis
		limiterStore ratelimit.Store
	)
	switch cfg.RateLimit.Backend {
	case "redis":
		redisConn, err = persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			pg.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		limiterStore = ratelimit.NewRedisStore(redisConn.Client, cfg.RateLimit.RedisKeyPrefix, MaxRateLimitWindow(cfg.RateLimit))
	case "postgres":
		if !pg.Enabled() {
			logger.Warn("postgres rate limit backend requested without a database; attempts are kept in memory")
		}
		limiterStore = repos.RateLimits
	default:
		limiterStore = memory.NewStore().RateLimits()
	}

	var broker events.Broker
	if cfg.Broker.URL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			redisConn.Close()
			pg.Close()
			return nil, fmt.Errorf("connect broker: %w", err)
		}
		logger.Info("publishing domain events", zap.String("exchange", cfg.Broker.Exchange))
		broker = publisher
	}

	c, err := New(cfg, logger, Options{
		Repos:        &repos,
		LimiterStore: limiterStore,
		Broker:       broker,
	})
	if err != nil {
		if broker != nil {
			_ = broker.Close()
		}
		redisConn.Close()
		pg.Close()
		return nil, err
	}
	c.Postgres = pg
	c.Redis = redisConn
	return c, nil
}

// New wires services over the given storage without opening any connection.
func New(cfg config.Config, logger *zap.Logger, opts Options) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	var repos Repositories
	if opts.Repos != nil {
		repos = *opts.Repos
	} else {
		repos = MemoryRepositories(memory.NewStore())
	}
	limiterStore := opts.LimiterStore
	if limiterStore == nil {
		limiterStore = repos.RateLimits
	}

	dispatcher := events.NewInMemoryDispatcher()
	limiter := ratelimit.NewLimiter(limiterStore)
	invites := service.NewInviteService(service.InviteDependencies{
		InviteRepo: repos.Invites,
		Logger:     logger,
	})
	authService, err := service.NewAuthService(cfg, service.AuthDependencies{
		AccountRepo: repos.Accounts,
		Invites:     invites,
		Limiter:     limiter,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	return &Container{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		Postgres:   &persistence.Postgres{},
		Repos:      repos,
		Dispatcher: dispatcher,
		Broker:     opts.Broker,
		Limiter:    limiter,
		Auth:       authService,
		Invites:    invites,
		Accounts: service.NewAccountService(service.AccountDependencies{
			AccountRepo: repos.Accounts,
			Dispatcher:  dispatcher,
			Logger:      logger,
		}),
		Tickets: service.NewTicketService(cfg.Ticket, service.TicketDependencies{
			TicketRepo:  repos.Tickets,
			HistoryRepo: repos.History,
			AccountRepo: repos.Accounts,
			Dispatcher:  dispatcher,
			Logger:      logger,
		}),
		Lifecycle: service.NewLifecycleService(service.LifecycleDependencies{
			TicketRepo: repos.Tickets,
			Dispatcher: dispatcher,
			Logger:     logger,
			Metrics:    metrics,
		}),
		Notifications: service.NewNotificationService(dispatcher, opts.Broker, logger),
	}, nil
}

// MaxRateLimitWindow is the longest configured window; older attempts are never counted.
func MaxRateLimitWindow(cfg config.RateLimitConfig) time.Duration {
	if cfg.RegisterWindow > cfg.LoginWindow {
		return cfg.RegisterWindow
	}
	return cfg.LoginWindow
}

// Close releases every connection the container opened.
func (c *Container) Close() {
	if c.Broker != nil {
		if err := c.Broker.Close(); err != nil {
			c.Logger.Warn("failed to close broker", zap.Error(err))
		}
	}
	c.Redis.Close()
	c.Postgres.Close()
}
