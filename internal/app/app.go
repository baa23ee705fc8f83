// Package app wires together every inventory sync component and runs the
// service: the stock store, the Redlock quorum, the reservation engine, the
// reconciler, the aggregation views, the adapter registry, the sync
// scheduler, and the HTTP surface over them.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/navneet-singh26/inventory-sync/internal/adapter"
	"github.com/navneet-singh26/inventory-sync/internal/aggregation"
	"github.com/navneet-singh26/inventory-sync/internal/cache"
	"github.com/navneet-singh26/inventory-sync/internal/catalog"
	"github.com/navneet-singh26/inventory-sync/internal/config"
	"github.com/navneet-singh26/inventory-sync/internal/event"
	"github.com/navneet-singh26/inventory-sync/internal/httpapi"
	"github.com/navneet-singh26/inventory-sync/internal/lock"
	"github.com/navneet-singh26/inventory-sync/internal/metrics"
	"github.com/navneet-singh26/inventory-sync/internal/reconciler"
	"github.com/navneet-singh26/inventory-sync/internal/reservation"
	"github.com/navneet-singh26/inventory-sync/internal/scheduler"
	"github.com/navneet-singh26/inventory-sync/internal/store"
	"github.com/navneet-singh26/inventory-sync/migrations"
	"github.com/navneet-singh26/inventory-sync/pkg/database"
	"github.com/navneet-singh26/inventory-sync/pkg/health"
	"github.com/navneet-singh26/inventory-sync/pkg/httpclient"
	pkgkafka "github.com/navneet-singh26/inventory-sync/pkg/kafka"
	"github.com/navneet-singh26/inventory-sync/pkg/tracing"
)

// App wires together all dependencies and runs the inventory sync service.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pool        *pgxpool.Pool
	cacheClient *redis.Client
	lockClients []*redis.Client
	producer    *pkgkafka.Producer

	reconciler *reconciler.Reconciler
	views      *aggregation.Views
	scheduler  *scheduler.Scheduler

	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// Deps is the fully-wired dependency graph shared by the long-running
// server and the operator CLI, so both entrypoints build the same
// components the same way rather than duplicating wiring.
type Deps struct {
	Pool        *pgxpool.Pool
	CacheClient *redis.Client
	LockClients []*redis.Client
	Producer    *pkgkafka.Producer

	Catalog    *catalog.Store
	Store      *store.Store
	Engine     *reservation.Engine
	Reconciler *reconciler.Reconciler
	Views      *aggregation.Views
	Scheduler  *scheduler.Scheduler
	Registry   *adapter.Registry
	Publisher  *event.Publisher
}

// Close releases every connection Deps opened, in reverse dependency order.
func (d *Deps) Close() {
	if d.Producer != nil {
		d.Producer.Close()
	}
	for _, c := range d.LockClients {
		c.Close()
	}
	if d.CacheClient != nil {
		d.CacheClient.Close()
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}

// BuildDeps connects to every backing store and constructs the inventory
// core, running migrations along the way. Callers are responsible for
// calling Close when done.
func BuildDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, error) {
	pgCfg := database.PostgresConfig{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.Database,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		MaxConnLifetime: time.Duration(cfg.Postgres.MaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.Postgres.MaxConnIdleTimeMins) * time.Minute,
	}
	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to postgres",
		slog.String("host", cfg.Postgres.Host),
		slog.String("database", cfg.Postgres.Database),
	)
	database.RegisterPoolMetrics(pool, "inventory-sync")

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	cacheClient, err := newRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to cache redis: %w", err)
	}

	lockClients, err := newLockClients(ctx, cfg.Lock.ServerAddrs, cfg.Redis.Password)
	if err != nil {
		cacheClient.Close()
		pool.Close()
		return nil, fmt.Errorf("connect to redlock servers: %w", err)
	}
	logger.Info("connected to redlock quorum", slog.Int("servers", len(lockClients)))

	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.Kafka.Brokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	if err := pingKafkaWithRetry(ctx, producer, logger); err != nil {
		logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.Kafka.Brokers))
	}

	cat := catalog.New(pool)
	st := store.New(pool)
	ch := cache.New(cacheClient, time.Duration(cfg.Cache.TTLSeconds)*time.Second, logger)
	locker, err := lock.NewService(lockClients, time.Duration(cfg.Lock.PerServerTimeoutMs)*time.Millisecond)
	if err != nil {
		for _, c := range lockClients {
			c.Close()
		}
		cacheClient.Close()
		pool.Close()
		return nil, fmt.Errorf("build redlock service: %w", err)
	}
	locker.OnOutcome(func(namespace string, outcome lock.Outcome) {
		metrics.LockAttempts.WithLabelValues(namespace, string(outcome)).Inc()
	})

	publisher := event.New(producer, logger)
	engine := reservation.New(st, locker, ch, logger,
		reservation.WithLockPolicy(
			time.Duration(cfg.Lock.DefaultTTLSeconds*float64(time.Second)),
			cfg.Lock.RetryTimes,
			time.Duration(cfg.Lock.RetryDelaySeconds*float64(time.Second)),
		),
		reservation.WithFlashSaleLockPolicy(
			time.Duration(cfg.Lock.FlashSaleTTLSeconds*float64(time.Second)),
			cfg.Lock.FlashSaleRetryTimes,
			time.Duration(cfg.Lock.FlashSaleRetryDelaySeconds*float64(time.Second)),
		),
		reservation.WithPublisher(publisher),
	)

	rec := reconciler.New(st, engine, logger)
	views := aggregation.New(pool, logger)
	sched := scheduler.New(cfg.Scheduler.WorkerPoolSize, logger)

	registry, err := buildAdapterRegistry(cfg.Adapters, logger)
	if err != nil {
		for _, c := range lockClients {
			c.Close()
		}
		cacheClient.Close()
		pool.Close()
		return nil, fmt.Errorf("build adapter registry: %w", err)
	}

	return &Deps{
		Pool:        pool,
		CacheClient: cacheClient,
		LockClients: lockClients,
		Producer:    producer,
		Catalog:     cat,
		Store:       st,
		Engine:      engine,
		Reconciler:  rec,
		Views:       views,
		Scheduler:   sched,
		Registry:    registry,
		Publisher:   publisher,
	}, nil
}

// NewApp creates a new application instance, initializing all dependencies
// and the HTTP surface over them.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:  "inventory-sync",
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
		Enabled:      cfg.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	deps, err := BuildDeps(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return deps.Pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("cache", func(ctx context.Context) error {
		return deps.CacheClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return deps.Producer.Ping(ctx)
	})

	h := httpapi.New(deps.Engine, deps.Catalog, deps.Store, deps.Views, deps.Reconciler, deps.Scheduler, deps.Registry, logger)
	router := httpapi.NewRouter(h, healthHandler, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           deps.Pool,
		cacheClient:    deps.CacheClient,
		lockClients:    deps.LockClients,
		producer:       deps.Producer,
		reconciler:     deps.Reconciler,
		views:          deps.Views,
		scheduler:      deps.Scheduler,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and background jobs, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	go a.runReconciliationLoop(ctx)
	go a.runViewRefreshLoop(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// runReconciliationLoop periodically repairs drift across every warehouse,
// the background half of C8 (the HTTP /stocks/reconcile endpoint drives the
// on-demand half).
func (a *App) runReconciliationLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := a.reconciler.Run(ctx, "")
			if report.DiscrepanciesFound > 0 {
				a.logger.Info("reconciliation repaired drift",
					slog.Int("checked", report.TotalChecked),
					slog.Int("discrepancies", report.DiscrepanciesFound),
					slog.Int("corrected", report.CorrectionsMade),
				)
			}
		}
	}
}

// runViewRefreshLoop periodically recomputes the aggregation projections
// (C6), which are never read synchronously by the reservation path.
func (a *App) runViewRefreshLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.views.Refresh(ctx); err != nil {
				a.logger.Error("view refresh error", slog.String("error", err.Error()))
			}
		}
	}
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka producer, Redlock clients, cache client, database pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	for i, c := range a.lockClients {
		if err := c.Close(); err != nil {
			a.logger.Error("redlock client close error", slog.Int("server", i), slog.String("error", err.Error()))
		}
	}

	if err := a.cacheClient.Close(); err != nil {
		a.logger.Error("cache client close error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return nil
}

func newRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("parse redis port %q: %w", portStr, err)
	}
	return database.NewRedisClient(ctx, database.RedisConfig{Host: host, Port: port, Password: password, DB: db})
}

// newLockClients connects one client per Redlock quorum participant. Each
// ServerAddrs entry is host:port[:db]; db defaults to 0 when omitted.
func newLockClients(ctx context.Context, addrs []string, password string) ([]*redis.Client, error) {
	clients := make([]*redis.Client, 0, len(addrs))
	for _, a := range addrs {
		parts := strings.Split(a, ":")
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid redlock server address %q: want host:port[:db]", a)
		}
		port, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("parse redlock server port %q: %w", parts[1], err)
		}
		db := 0
		if len(parts) == 3 {
			db, err = strconv.Atoi(parts[2])
			if err != nil {
				return nil, fmt.Errorf("parse redlock server db %q: %w", parts[2], err)
			}
		}
		client, err := database.NewRedisClient(ctx, database.RedisConfig{Host: parts[0], Port: port, Password: password, DB: db})
		if err != nil {
			for _, c := range clients {
				c.Close()
			}
			return nil, fmt.Errorf("connect to redlock server %q: %w", a, err)
		}
		clients = append(clients, client)
	}
	return clients, nil
}

// buildAdapterRegistry constructs one HTTPAdapter per configured warehouse
// and marketplace entry. Warehouse entries are registered only as warehouse
// adapters and marketplace entries only as marketplace adapters.
func buildAdapterRegistry(cfg config.AdaptersConfig, logger *slog.Logger) (*adapter.Registry, error) {
	registry := adapter.NewRegistry()

	whEntries, err := config.ParseAdapterEntries(cfg.WarehouseAdapters)
	if err != nil {
		return nil, fmt.Errorf("warehouse adapters: %w", err)
	}
	for _, e := range whEntries {
		a := adapter.New(adapter.Config{
			Name:         e.Name,
			BaseURL:      e.BaseURL,
			AuthScheme:   adapter.AuthAPIKeyHeader,
			AuthValue:    e.AuthValue,
			APIKeyHeader: "X-Api-Key",
		}, httpclientCBConfig(e.Name), logger)
		registry.RegisterWarehouse(e.Name, a)
	}

	mpEntries, err := config.ParseAdapterEntries(cfg.MarketplaceAdapters)
	if err != nil {
		return nil, fmt.Errorf("marketplace adapters: %w", err)
	}
	for _, e := range mpEntries {
		a := adapter.New(adapter.Config{
			Name:       e.Name,
			BaseURL:    e.BaseURL,
			AuthScheme: adapter.AuthBearer,
			AuthValue:  e.AuthValue,
		}, httpclientCBConfig(e.Name), logger)
		registry.RegisterMarketplace(e.Name, a)
	}

	return registry, nil
}

// httpclientCBConfig builds the per-adapter circuit breaker configuration,
// named so metrics and logs can attribute trips to a specific integration.
func httpclientCBConfig(name string) httpclient.CircuitBreakerConfig {
	return httpclient.DefaultCircuitBreakerConfig(name)
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s waits between them with +/-25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if err := producer.Ping(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1))
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
