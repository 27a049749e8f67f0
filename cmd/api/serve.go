package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	httpAdapter "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/adapters/primary/http"
	mw "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/adapters/primary/http/middleware"
	wsAdapter "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/adapters/primary/websocket"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/adapters/secondary/feed"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/adapters/secondary/postgres"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/auth"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/config"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/services"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/metrics"
)

func serveCmd() *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg, logger, migrateFirst)
		},
	}

	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrateFirst bool) error {
	logger.Info("starting service",
		"version", version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	if migrateFirst {
		if err := postgres.MigrateUp(cfg.Database.URL); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	// 1. Database
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("database connection established")

	// 2. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// 3. Repositories (Secondary Adapters)
	txManager := postgres.NewTransactionManager(pool)
	ticketRepo := postgres.NewTicketRepository(pool, txManager)
	teamRepo := postgres.NewTeamRepository(pool)
	viewerRepo := postgres.NewViewerRepository(pool)
	analyticsRepo := postgres.NewAnalyticsRepository(pool)

	healthHandler := httpAdapter.NewHealthHandler(pool, version)

	// 4. Change feed
	changes, err := openFeed(ctx, cfg, pool, ticketRepo, logger, m)
	if err != nil {
		return err
	}
	if changes.check != nil {
		healthHandler.WithDependency(cfg.Feed.Backend, changes.check)
	}

	// 5. Services (Core)
	ledger := services.NewQuotaLedger(ticketRepo, teamRepo, nil, services.QuotaConfig{
		DailyLimit: cfg.Wildcard.DailyLimit,
		Location:   cfg.Wildcard.Location,
	}, m)
	ticketService := services.NewTicketService(ticketRepo, ledger, changes, nil, logger, m)
	identityService := services.NewIdentityService(viewerRepo, logger)
	authzService := services.NewAuthorizationService()
	usageService := services.NewUsageService(analyticsRepo, ledger)
	sessions := services.NewSessionFactory(identityService, changes, logger, m)

	// 6. Security and real-time components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	hub := wsAdapter.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(hubCtx)
	}()

	// 7. Rate limiters
	var generalLimiter, writeLimiter *mw.RateLimiter
	var createLimiter func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		generalCfg := mw.DefaultRateLimiterConfig()
		generalCfg.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		generalCfg.BurstSize = cfg.RateLimit.BurstSize
		generalLimiter = mw.NewRateLimiter(generalCfg)

		writeCfg := mw.WriteRateLimiterConfig()
		writeCfg.RequestsPerSecond = cfg.RateLimit.WriteRPS
		writeCfg.BurstSize = cfg.RateLimit.WriteBurst
		writeLimiter = mw.NewRateLimiter(writeCfg)
		createLimiter = writeLimiter.Middleware
	}

	// 8. Handlers (Primary Adapters)
	errorHandler := httpAdapter.NewErrorHandler(logger)
	router := newRouter(routerDeps{
		cfg:       cfg,
		logger:    logger,
		tokens:    tokenManager,
		wildcards: httpAdapter.NewWildcardHandler(ticketService, identityService, authzService, errorHandler, createLimiter, logger),
		me:        httpAdapter.NewMeHandler(identityService, authzService, errorHandler, logger),
		usage:     httpAdapter.NewUsageHandler(usageService, identityService, authzService, errorHandler, logger),
		health:    healthHandler,
		websocket: httpAdapter.NewWebSocketHandler(hub, tokenManager, sessions, cfg, logger),
		metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		limiter:   generalLimiter,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		runErr = fmt.Errorf("server error: %w", err)
	}

	// 9. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	stopHub()
	<-hubDone

	ticketService.Shutdown()
	changes.close()

	if generalLimiter != nil {
		generalLimiter.Stop()
	}
	if writeLimiter != nil {
		writeLimiter.Stop()
	}

	logger.Info("server shutdown complete")
	return runErr
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// changeFeed is the configured feed together with its teardown and an
// optional readiness check for the backend it depends on.
type changeFeed struct {
	ports.ChangeFeed
	close func()
	check httpAdapter.HealthChecker
}

func openFeed(
	ctx context.Context,
	cfg *config.Config,
	pool *pgxpool.Pool,
	tickets ports.TicketRepository,
	logger *slog.Logger,
	m *metrics.Metrics,
) (*changeFeed, error) {
	broker := feed.NewBroker(cfg.Feed.BufferSize, logger, m)

	switch cfg.Feed.Backend {
	case config.FeedBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		redisFeed, err := feed.NewRedisFeed(ctx, client, cfg.Redis.Channel, broker, logger, m)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		logger.Info("change feed ready", "backend", cfg.Feed.Backend, "addr", cfg.Redis.Addr)

		return &changeFeed{
			ChangeFeed: redisFeed,
			close: func() {
				if err := redisFeed.Close(); err != nil {
					logger.Warn("failed to close redis feed", "error", err)
				}
				if err := client.Close(); err != nil {
					logger.Warn("failed to close redis client", "error", err)
				}
			},
			check: httpAdapter.HealthCheckFunc(func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}),
		}, nil

	case config.FeedBackendPostgres:
		notifyFeed, err := postgres.NewNotifyFeed(ctx, pool, tickets, cfg.Feed.NotifyChannel, broker, logger, m)
		if err != nil {
			return nil, err
		}
		logger.Info("change feed ready", "backend", cfg.Feed.Backend, "channel", cfg.Feed.NotifyChannel)

		return &changeFeed{ChangeFeed: notifyFeed, close: notifyFeed.Close}, nil

	default:
		logger.Info("change feed ready", "backend", config.FeedBackendMemory)
		return &changeFeed{ChangeFeed: broker, close: broker.Close}, nil
	}
}
