package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/stopwatch/internal/cache"
	"github.com/MrSnakeDoc/stopwatch/internal/config"
	"github.com/MrSnakeDoc/stopwatch/internal/httpserver"
	"github.com/MrSnakeDoc/stopwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stopwatch/internal/logger"
	"github.com/MrSnakeDoc/stopwatch/internal/proxy"
	"github.com/MrSnakeDoc/stopwatch/internal/redis"
	"github.com/MrSnakeDoc/stopwatch/internal/scheduler"
	"github.com/MrSnakeDoc/stopwatch/internal/sources"
	"github.com/MrSnakeDoc/stopwatch/internal/sources/freeproxy"
	"github.com/MrSnakeDoc/stopwatch/internal/sources/seedfile"
	redisstore "github.com/MrSnakeDoc/stopwatch/internal/store/redis"
	"github.com/MrSnakeDoc/stopwatch/internal/upstream"
	"github.com/MrSnakeDoc/stopwatch/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	syncer      *scheduler.ProxySyncer
	refiller    *scheduler.ProxyRefiller
	refresher   *scheduler.DepartureRefresher
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Redis is optional: without it there is no warm start and no usage stats
	var (
		redisClient *goredis.Client
		store       *redisstore.Store
	)
	if cfg.RedisEnabled() {
		client, err := redis.New(redis.ConnectOptions{
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
			loggerClient.Warn("continuing without redis", logger.Error(err))
		} else {
			redisClient = client
			store = redisstore.NewStore(client)
		}
	} else {
		loggerClient.Info("redis not configured, proxy warm start and usage stats disabled")
	}

	// Proxy pool and where its candidates come from
	pool := proxy.NewPool()
	validator := proxy.NewValidator(cfg.LivenessURL, cfg.UpstreamURL, cfg.ProbeTimeout)
	candidates := newCandidateSource(cfg, loggerClient)

	// Departures: renderer -> fetcher -> cache
	fetcher := upstream.NewFetcher(pool, newRenderer(cfg, loggerClient), cfg.UpstreamURL, cfg.FetchTimeout, loggerClient)
	departures := cache.NewDepartureCache(fetcher, cfg.FreshnessWindow, loggerClient,
		cache.WithRefreshWorkers(cfg.RefreshWorkers))

	// Create manual refill trigger channel
	refillTrigger := make(chan struct{}, 1)

	var (
		proxyStore scheduler.ProxyStore
		usage      deps.UsageStore
		syncer     *scheduler.ProxySyncer
	)
	if store != nil {
		proxyStore = store
		usage = store
		syncer = scheduler.NewProxySyncer(store, pool, validator, cfg.StandardProxies, loggerClient)
	}

	refiller := scheduler.NewProxyRefiller(
		pool,
		candidates,
		validator,
		proxyStore,
		loggerClient,
		cfg.ProxyRefillInterval,
		cfg.StandardProxies,
		cfg.MinimumProxies,
		refillTrigger,
	)

	refresher := scheduler.NewDepartureRefresher(departures, loggerClient, cfg.DepartureRefreshInterval)

	d := deps.Deps{
		Logger:        loggerClient,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		TimeNow:       time.Now,
		AllowedHosts:  cfg.AllowedHosts,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		RateBurst:     cfg.RateBurst,
		RatePerMin:    cfg.RatePerMin,
		Departures:    departures,
		Cache:         departures,
		Pool:          pool,
		MinProxies:    cfg.MinimumProxies,
		StdProxies:    cfg.StandardProxies,
		RefillStatus:  refiller.Status,
		RefillTrigger: refillTrigger,
		Usage:         usage,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		syncer:      syncer,
		refiller:    refiller,
		refresher:   refresher,
	}
}

// newCandidateSource chains the configured proxy candidate sources: the
// seed file first, then the public list.
func newCandidateSource(cfg *config.Config, log logger.Logger) *sources.Chain {
	var named []sources.Named
	if cfg.ProxySeedFile != "" {
		log.Info("proxy seed file configured", logger.String("file", cfg.ProxySeedFile))
		named = append(named, seedfile.NewLoader(cfg.ProxySeedFile))
	}
	if cfg.ProxyListURL != "" {
		named = append(named, freeproxy.New(cfg.ProxyListURL, cfg.ProxyListSelector, cfg.FetchTimeout, cfg.ProxyListRetry, log))
	}
	if len(named) == 0 {
		log.Error("no proxy candidate source configured, the pool will stay empty")
	}
	return sources.NewChain(log, named...)
}

func newRenderer(cfg *config.Config, log logger.Logger) upstream.Renderer {
	if cfg.RenderMode == "chrome" {
		log.Info("rendering departures with headless chrome",
			logger.Duration("settle", cfg.RenderSettle))
		return upstream.NewChromeRenderer(cfg.RenderSettle, cfg.ChromePath)
	}
	log.Info("rendering departures from static markup, script-filled boards will fail")
	return upstream.NewHTTPRenderer()
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting stopwatch v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("stopwatch %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Restore the last known proxies before the first refill
	if a.syncer != nil {
		syncCtx, cancel := context.WithTimeout(ctx, a.cfg.ProxyRefillInterval)
		if err := a.syncer.Sync(syncCtx); err != nil {
			a.logger.Warn("failed to restore proxies from redis, starting cold",
				logger.Error(err))
		}
		cancel()
	}

	if err := a.refiller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start proxy refiller: %w", err)
	}
	a.logger.Info("proxy refiller started",
		logger.Duration("interval", a.cfg.ProxyRefillInterval),
		logger.Int("standard", a.cfg.StandardProxies),
		logger.Int("minimum", a.cfg.MinimumProxies))

	if err := a.refresher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start departure refresher: %w", err)
	}
	a.logger.Info("departure refresher started",
		logger.Duration("interval", a.cfg.DepartureRefreshInterval),
		logger.Duration("window", a.cfg.FreshnessWindow))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
		a.logger.Error("http server failed, shutting down", logger.Error(runErr))
	}

	a.refiller.Stop()
	a.refresher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	_ = a.logger.Sync()
	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ stopwatch stopped cleanly")
	return nil
}
