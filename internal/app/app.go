package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/lbsync/internal/config"
	"github.com/MrSnakeDoc/lbsync/internal/domain"
	"github.com/MrSnakeDoc/lbsync/internal/events"
	"github.com/MrSnakeDoc/lbsync/internal/httpserver"
	"github.com/MrSnakeDoc/lbsync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/lbsync/internal/logger"
	"github.com/MrSnakeDoc/lbsync/internal/metrics"
	"github.com/MrSnakeDoc/lbsync/internal/rancher"
	"github.com/MrSnakeDoc/lbsync/internal/reconciler"
	"github.com/MrSnakeDoc/lbsync/internal/redis"
	"github.com/MrSnakeDoc/lbsync/internal/scheduler"
	"github.com/MrSnakeDoc/lbsync/internal/status"
	redisstore "github.com/MrSnakeDoc/lbsync/internal/store/redis"
	"github.com/MrSnakeDoc/lbsync/internal/version"
)

const reportSaveTimeout = 2 * time.Second

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	registry    *prometheus.Registry
	metrics     *metrics.Metrics
	tracker     *status.Tracker
	reconciler  *reconciler.Reconciler
	redisClient *goredis.Client
	store       *redisstore.Store
}

// New loads the configuration and builds the reconciler with everything it
// depends on. Redis is only dialed when an address is configured.
func New(ctx context.Context) (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	loggerClient.Debug("configuration loaded", logger.Any("config", cfg.Redacted()))

	platform, err := rancher.New(rancher.Options{
		Endpoint:  cfg.CattleURL,
		AccessKey: cfg.CattleAccessKey,
		SecretKey: cfg.CattleSecretKey,
		Timeout:   cfg.RequestTimeout,
	}, loggerClient)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)
	tracker := status.NewTracker()

	a := &App{
		cfg:      cfg,
		logger:   loggerClient,
		registry: registry,
		metrics:  m,
		tracker:  tracker,
	}

	opts := reconciler.Options{
		Routes:        cfg.RouteConfig(),
		Retries:       cfg.ReconcileRetries,
		RetryInterval: cfg.RetryInterval,
		Recorders:     []reconciler.Recorder{tracker},
		Metrics:       m,
	}

	if cfg.RedisEnabled() {
		client, err := redis.New(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.redisClient = client
		a.store = redisstore.NewStore(client)

		opts.Locker = redisstore.NewLock(client, redisstore.KeyReconcileLock, cfg.LockTTL, loggerClient)
		opts.Recorders = append(opts.Recorders, a.store.Recorder(reportSaveTimeout, loggerClient))
	} else {
		loggerClient.Info("redis not configured, passes are only serialized within this process")
	}

	a.reconciler = reconciler.New(platform, opts, loggerClient)
	return a, nil
}

// Run serves until SIGINT/SIGTERM: event subscription, periodic resync and
// the HTTP surface.
func (a *App) Run() error {
	a.logger.Infof("🚀 Starting lbsync v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("lbsync %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.Close()

	resyncer := scheduler.NewResyncer(a.reconciler, a.logger, a.cfg.ResyncInterval, true)
	resyncer.Start(ctx)
	a.logger.Info("resync loop started",
		logger.Duration("interval", a.cfg.ResyncInterval))

	subDone := make(chan struct{})
	if a.cfg.Subscribe {
		sub, err := events.New(events.Options{
			Endpoint:    a.cfg.CattleURL,
			AccessKey:   a.cfg.CattleAccessKey,
			SecretKey:   a.cfg.CattleSecretKey,
			IdleTimeout: a.cfg.EventIdleTimeout,
			Status:      a.tracker,
			Metrics:     a.metrics,
		}, a.logger)
		if err != nil {
			resyncer.Stop()
			return fmt.Errorf("failed to create event subscriber: %w", err)
		}
		go func() {
			defer close(subDone)
			_ = sub.Run(ctx, a.reconciler)
		}()
	} else {
		close(subDone)
		a.logger.Warn("event subscription disabled, changes are applied on resync or webhook only")
	}

	d := deps.Deps{
		Logger:       a.logger,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		AllowedHosts: a.cfg.AllowedHosts,
		AllowedCIDRS: a.cfg.AllowedCIDRS,
		TrustProxy:   a.cfg.TrustProxy,
		Status:       a.tracker,
		Store:        a.store,
		Events:       a.reconciler,
		Resync:       resyncer,
		Metrics:      a.metrics,
		Gatherer:     a.registry,
		EventsBurst:  a.cfg.EventsBurst,
		EventsPerMin: a.cfg.EventsPerMin,
	}
	server := httpserver.New(a.cfg.ListenPort, d)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
		stop()
	}

	resyncer.Stop()
	<-subDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	if runErr == nil {
		a.logger.Info("✅ lbsync stopped cleanly")
	}
	return runErr
}

// OneShot runs a single full pass.
func (a *App) OneShot(ctx context.Context) (domain.Report, error) {
	return a.reconciler.Reconcile(ctx, reconciler.TriggerOneShot)
}

// Plan computes what a pass would push without writing anything.
func (a *App) Plan(ctx context.Context) (*reconciler.Plan, error) {
	return a.reconciler.Plan(ctx)
}

// Close releases the Redis connection, if any, and flushes the logger.
func (a *App) Close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
		a.redisClient = nil
	}
	_ = a.logger.Sync()
}
