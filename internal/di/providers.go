package di

import (
	"context"
	"fmt"
	"time"

	"StockBoard/internal/domain/repository"
	"StockBoard/internal/handler/api"
	internalrepo "StockBoard/internal/repository"
	"StockBoard/internal/service/alphavantage"
	svcmetrics "StockBoard/internal/service/metrics"
	"StockBoard/internal/service/ratelimit"
	"StockBoard/internal/usecase"
	"StockBoard/pkg/cache"
	pkgch "StockBoard/pkg/clickhouse"
	"StockBoard/pkg/config"
	xhttp "StockBoard/pkg/http"
	pkgkafka "StockBoard/pkg/kafka"
	applogger "StockBoard/pkg/logger"
	"StockBoard/pkg/metrics"
	"StockBoard/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	svcmetrics.Register()
	return metrics.New()
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
// Aggregated error logs are shipped through the same producer.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithKeyOrdering(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			Topic:     cfg.Kafka.LogTopic,
			Publisher: producer,
		})
	}
	return producer, nil
}

// ProvideAlertPublisher publishes alert events to Kafka, or drops them when
// Kafka is disabled.
func ProvideAlertPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.AlertEventPublisher {
	if producer == nil {
		return internalrepo.NoopAlertPublisher{}
	}
	return internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.Topic)
}

// ProvideCache creates the Redis-backed layered cache, or an in-process
// memory cache when Redis is disabled.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Redis.L1Size),
			cache.WithMemoryCleanup(cfg.Redis.CleanupInterval),
		), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(cache.PoolConfig{
			Size:         cfg.Redis.Pool.Size,
			MinIdleConns: cfg.Redis.Pool.MinIdleConns,
			Timeout:      cfg.Redis.Pool.Timeout,
		}),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache connected",
		applogger.String("host", cfg.Redis.Host),
		applogger.Int("port", cfg.Redis.Port),
		applogger.Int("pool_size", cfg.Redis.Pool.Size),
	)
	return cache.NewLayeredCache(rc,
		cache.WithLayeredMemory(cfg.Redis.L1Size, cfg.Search.CacheTTL),
		cache.WithLayeredCleanup(cfg.Redis.CleanupInterval),
	), nil
}

// ProvideClickHouseClient connects to ClickHouse and ensures the database
// exists, or returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, []string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse database: %w", err)
	}
	return client, nil
}

// ProvideBarStore returns the durable bar store with its table in place, or
// nil without ClickHouse.
func ProvideBarStore(ch *pkgch.Client, l *applogger.Logger) (repository.BarStore, error) {
	if ch == nil {
		return nil, nil
	}
	bs := internalrepo.NewCHBarStore(ch, l)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := bs.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return bs, nil
}

// ProvideAlertStore persists alert rules in Redis, or keeps them in memory
// only when Redis or persistence is off.
func ProvideAlertStore(cfg *config.Config, c cache.Service, l *applogger.Logger) repository.AlertStore {
	if !cfg.Redis.Enabled || !cfg.Redis.Persist {
		return internalrepo.NoopAlertStore{}
	}
	return internalrepo.NewCacheAlertStore(c, l)
}

// ProvideWatchlistStore persists watchlists in Redis, or keeps them in memory
// only when Redis or persistence is off.
func ProvideWatchlistStore(cfg *config.Config, c cache.Service, l *applogger.Logger) repository.WatchlistStore {
	if !cfg.Redis.Enabled || !cfg.Redis.Persist {
		return internalrepo.NoopWatchlistStore{}
	}
	return internalrepo.NewCacheWatchlistStore(c, l)
}

// ProvideAlphaVantage creates the rate-limited market-data client.
func ProvideAlphaVantage(cfg *config.Config, l *applogger.Logger) *alphavantage.Client {
	return alphavantage.New(
		xhttp.NewClient(xhttp.WithTimeout(cfg.Provider.Timeout)),
		cfg.Provider.BaseURL,
		cfg.Provider.APIKey,
		alphavantage.WithRateLimit(ratelimit.New(), cfg.Provider.RateLimit.Capacity, cfg.Provider.RateLimit.RefillPerSec),
		alphavantage.WithRetries(cfg.Provider.Retries, 500*time.Millisecond),
		alphavantage.WithLogger(l),
	)
}

func ProvideQuoteCache(cfg *config.Config, av *alphavantage.Client, c cache.Service, m repository.Metrics, l *applogger.Logger) *usecase.QuoteCache {
	return usecase.NewQuoteCache(av, cfg.Quotes.FreshnessWindow,
		usecase.WithQuoteTimeout(cfg.Scheduler.UpstreamTimeout),
		usecase.WithQuoteMirror(c, cfg.Quotes.MirrorTTL),
		usecase.WithQuoteMetrics(m),
		usecase.WithQuoteLogger(l),
	)
}

func ProvideSeriesStore(cfg *config.Config, av *alphavantage.Client, bs repository.BarStore, l *applogger.Logger) *usecase.SeriesStore {
	opts := []usecase.SeriesStoreOption{
		usecase.WithSeriesLogger(l),
		usecase.WithSeriesTimeout(cfg.Provider.Timeout),
	}
	if bs != nil {
		opts = append(opts, usecase.WithBarStore(bs))
	}
	return usecase.NewSeriesStore(av, cfg.Series.RefreshInterval, opts...)
}

func ProvideSearchService(cfg *config.Config, av *alphavantage.Client, c cache.Service, l *applogger.Logger) *usecase.SearchService {
	return usecase.NewSearchService(av,
		usecase.WithSearchCache(c, cfg.Search.CacheTTL),
		usecase.WithSearchTimeout(cfg.Provider.Timeout),
		usecase.WithSearchLogger(l),
	)
}

func ProvideViewTracker(cfg *config.Config) *usecase.ViewTracker {
	return usecase.NewViewTracker(cfg.Scheduler.RecentWindow)
}

// ProvideAlertRegistry creates the registry and loads persisted rules.
func ProvideAlertRegistry(store repository.AlertStore, l *applogger.Logger) (*usecase.AlertRegistry, error) {
	reg := usecase.NewAlertRegistry(usecase.WithAlertStore(store), usecase.WithRegistryLogger(l))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	n, err := reg.Restore(ctx)
	if err != nil {
		return nil, err
	}
	l.Info("alert rules restored", applogger.Int("count", n))
	return reg, nil
}

func ProvideAlertEvaluator(reg *usecase.AlertRegistry, qc *usecase.QuoteCache, pub repository.AlertEventPublisher, m repository.Metrics, l *applogger.Logger) *usecase.AlertEvaluator {
	return usecase.NewAlertEvaluator(reg,
		usecase.WithQuoteGate(qc),
		usecase.WithAlertPublisher(pub),
		usecase.WithEvaluatorMetrics(m),
		usecase.WithEvaluatorLogger(l),
	)
}

func ProvideRefreshScheduler(cfg *config.Config, qc *usecase.QuoteCache, ev *usecase.AlertEvaluator, reg *usecase.AlertRegistry, views *usecase.ViewTracker, m repository.Metrics, l *applogger.Logger) *usecase.RefreshScheduler {
	return usecase.NewRefreshScheduler(qc, ev, reg, views, cfg.Scheduler.Tick,
		usecase.WithSchedulerWorkers(cfg.Scheduler.Workers),
		usecase.WithSchedulerTimeout(cfg.Scheduler.UpstreamTimeout),
		usecase.WithSchedulerMetrics(m),
		usecase.WithSchedulerLogger(l),
	)
}

// ProvideWatchlistService creates the watchlist service and loads persisted lists.
func ProvideWatchlistService(store repository.WatchlistStore, l *applogger.Logger) (*usecase.WatchlistService, error) {
	svc := usecase.NewWatchlistService(usecase.WithWatchlistStore(store), usecase.WithWatchlistLogger(l))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	n, err := svc.Restore(ctx)
	if err != nil {
		return nil, err
	}
	l.Info("watchlists restored", applogger.Int("count", n))
	return svc, nil
}

// ProvideRouter builds every API handler.
func ProvideRouter(
	l *applogger.Logger,
	qc *usecase.QuoteCache,
	series *usecase.SeriesStore,
	search *usecase.SearchService,
	views *usecase.ViewTracker,
	reg *usecase.AlertRegistry,
	ev *usecase.AlertEvaluator,
	lists *usecase.WatchlistService,
) *api.Router {
	return api.NewRouter(
		api.NewStocksHandler(l, qc, series, search, views),
		api.NewAlertsHandler(l, reg, ev),
		api.NewWatchlistsHandler(l, lists),
	)
}

// ProvideHTTPServer creates the echo server. /readyz checks every enabled
// backing store.
func ProvideHTTPServer(cfg *config.Config, router *api.Router, c cache.Service, ch *pkgch.Client, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetrics(metricsPath, cfg.Server.SlowThreshold),
		xhttp.WithReadiness("cache", c.Health),
		xhttp.WithLogger(l),
	}
	if ch != nil {
		opts = append(opts, xhttp.WithReadiness("clickhouse", ch.Health))
	}
	return xhttp.NewServer(router, opts...)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	sched *usecase.RefreshScheduler,
	c cache.Service,
	pub repository.AlertEventPublisher,
	bs repository.BarStore,
) *server.App {
	return server.New(cfg, l, srv, sched, c, pub, bs)
}
