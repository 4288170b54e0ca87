package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fractal-terminal/terminalx/app/api/types"
	"github.com/fractal-terminal/terminalx/pkg/analytics"
	"github.com/fractal-terminal/terminalx/pkg/audit"
	"github.com/fractal-terminal/terminalx/pkg/cache"
	"github.com/fractal-terminal/terminalx/pkg/db/clickhouse"
	"github.com/fractal-terminal/terminalx/pkg/db/postgres"
	"github.com/fractal-terminal/terminalx/pkg/logging"
	"github.com/fractal-terminal/terminalx/pkg/redis"
	"github.com/fractal-terminal/terminalx/pkg/upstream"
	"github.com/fractal-terminal/terminalx/pkg/utils"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New("api")
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	app := &types.App{
		Logger:       logger,
		EdgeCacheTTL: utils.EnvDuration("AUDIT_EDGE_CACHE_TTL", 30*time.Second),
		Dependencies: map[string]types.Pinger{},
	}

	app.Cache = newCacheStore(ctx, app)
	app.Dependencies["cache"] = app.Cache

	client := newUpstreamClient(app)

	var opts []audit.Option
	if sink := newAnalyticsSink(ctx, app); sink != nil {
		emitter := analytics.NewEmitter(sink, analytics.EmitterConfig{
			Workers:   utils.EnvInt("ANALYTICS_WORKERS", 4),
			QueueSize: utils.EnvInt("ANALYTICS_QUEUE_SIZE", 256),
			Timeout:   utils.EnvDuration("ANALYTICS_TIMEOUT", 5*time.Second),
		}, logger.Named("analytics"))
		app.OnShutdown(emitter.Close)
		opts = append(opts, audit.WithEmitter(emitter))
	}

	aggregator := audit.NewAggregator(client, audit.ConfigFromEnv(), logger.Named("audit"), opts...)
	app.OnShutdown(aggregator.Close)
	app.Auditor = aggregator
	app.Prices = aggregator.Prices()

	cronSpec := utils.Env("PRICE_WARM_CRON", "*/30 * * * * *")
	if err := SetupScheduler(ctx, app, cronSpec); err != nil {
		logger.Fatal("Unable to schedule price warmer", zap.String("cronSpec", cronSpec), zap.Error(err))
	}

	return app
}

// newUpstreamClient builds the shared upstream client pool. The alias registry starts with the
// configured raw spellings so pool lookups work before any AMM answer is seen.
func newUpstreamClient(app *types.App) *upstream.Client {
	endpoints := upstream.EndpointsFromEnv()
	caller := upstream.NewCaller(upstream.CallerOpts{
		HTTPClient: &http.Client{Transport: http.DefaultTransport},
		Cache:      app.Cache,
		Limiter:    upstream.NewProviderLimiter(utils.EnvDuration("PROVIDER_MIN_SPACING", 500*time.Millisecond), 1),
		Logger:     app.Logger.Named("upstream"),
	})
	return upstream.NewClient(caller, endpoints, upstream.NewAliases(endpoints.RawTickers...), app.Logger.Named("upstream"))
}

// newCacheStore picks the edge/response cache backend. Redis is optional: when it cannot be
// reached the process falls back to the in-memory store.
func newCacheStore(ctx context.Context, app *types.App) cache.Store {
	if utils.Env("CACHE_BACKEND", "memory") != "redis" {
		app.Logger.Info("Using in-memory response cache")
		return cache.NewMemoryStore(cache.WithMaxEntries(utils.EnvInt("CACHE_MAX_ENTRIES", 50_000)))
	}

	redisClient, err := redis.NewClient(ctx, app.Logger)
	if err != nil {
		app.Logger.Warn("Failed to initialize Redis client - falling back to in-memory cache", zap.Error(err))
		return cache.NewMemoryStore()
	}
	app.OnShutdown(func() { _ = redisClient.Close() })
	app.Logger.Info("Redis client initialized for response cache")
	return cache.NewRedisStore(redisClient)
}

// newAnalyticsSink connects the enabled analytics stores. It returns nil when none is enabled.
func newAnalyticsSink(ctx context.Context, app *types.App) analytics.Sink {
	var sinks analytics.MultiSink

	if utils.EnvBool("ANALYTICS_POSTGRES_ENABLED", false) {
		pg, err := postgres.New(ctx, app.Logger, postgres.GetPoolConfigForComponent("analytics"))
		if err != nil {
			app.Logger.Fatal("Unable to connect analytics postgres", zap.Error(err))
		}
		sink := analytics.NewPostgresSink(&pg)
		if err := sink.InitSchema(ctx); err != nil {
			app.Logger.Fatal("Unable to initialize analytics postgres schema", zap.Error(err))
		}
		app.OnShutdown(pg.Close)
		app.Dependencies["postgres"] = &pg
		app.Leaderboard = sink
		sinks = append(sinks, sink)
	}

	if utils.EnvBool("ANALYTICS_CLICKHOUSE_ENABLED", false) {
		ch, err := clickhouse.New(ctx, app.Logger, utils.Env("CLICKHOUSE_DB", "terminalx"), clickhouse.GetPoolConfigForComponent("analytics"))
		if err != nil {
			app.Logger.Fatal("Unable to connect analytics clickhouse", zap.Error(err))
		}
		sink := analytics.NewClickHouseSink(&ch, utils.EnvInt("CLICKHOUSE_BATCH_SIZE", 100), app.Logger.Named("clickhouse"))
		if err := sink.InitSchema(ctx); err != nil {
			app.Logger.Fatal("Unable to initialize analytics clickhouse schema", zap.Error(err))
		}

		flushCtx, stopFlush := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			sink.Run(flushCtx, utils.EnvDuration("CLICKHOUSE_FLUSH_INTERVAL", 5*time.Second))
		}()
		app.OnShutdown(func() { _ = ch.Close() })
		app.OnShutdown(func() {
			stopFlush()
			<-done
		})
		app.Dependencies["clickhouse"] = &ch
		sinks = append(sinks, sink)
	}

	if len(sinks) == 0 {
		app.Logger.Info("Analytics persistence disabled")
		return nil
	}
	return sinks
}

// SetupScheduler registers the base price warmer on cronSpec (seconds field included).
func SetupScheduler(ctx context.Context, app *types.App, cronSpec string) error {
	app.Cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	app.CronSpec = cronSpec

	_, err := app.Cron.AddFunc(cronSpec, func() {
		// keep each run bounded
		rctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		quote := app.Prices.ResolveBaseAssetUSD(rctx)
		app.Logger.Debug("base price warmed",
			zap.String("usd", quote.USD.String()),
			zap.String("source", string(quote.Source)),
			zap.Bool("fallback", quote.IsFallback))
	})
	return err
}
