package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	goredis "github.com/redis/go-redis/v9"

	"rossmann/internal/adapters/clickhouse"
	"rossmann/internal/adapters/config"
	"rossmann/internal/adapters/dataset"
	"rossmann/internal/adapters/errors/noop"
	"rossmann/internal/adapters/errors/sentry"
	"rossmann/internal/adapters/kafka"
	"rossmann/internal/adapters/postgres"
	"rossmann/internal/adapters/redis"
	"rossmann/internal/adapters/telegram"
	"rossmann/internal/api"
	"rossmann/internal/api/health"
	"rossmann/internal/api/predict"
	telegramapi "rossmann/internal/api/telegram"
	"rossmann/internal/consumers"
	"rossmann/internal/domain/forecast"
	"rossmann/internal/features"
	"rossmann/internal/metrics"
	"rossmann/internal/ml"
	chrepo "rossmann/internal/repository/clickhouse"
	pgrepo "rossmann/internal/repository/postgres"
	redisrepo "rossmann/internal/repository/redis"
	forecastsvc "rossmann/internal/services/forecast"
	"rossmann/internal/transformers"
	"rossmann/internal/workers"
	"rossmann/pkg/errors"
	"rossmann/pkg/logger"
)

// backends holds the optional infrastructure clients. Nil fields are disabled.
type backends struct {
	postgres   *postgres.Client
	clickhouse *clickhouse.Client
	redis      *redis.Client
	producer   *kafka.Producer
}

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := initLogger(cfg); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	log.Infof("Starting %s %s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Env)

	// Initialize error tracker
	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Transformer artefact and compiled plan; any inconsistency is fatal
	store, err := transformers.Load(cfg.Features.TransformersPath)
	if err != nil {
		log.Fatalf("Failed to load transformer artefact: %v", err)
	}
	pipeline, err := features.New(store, features.Options{
		Overflow: features.OverflowPolicy(cfg.Features.BinOverflow),
	}, log)
	if err != nil {
		log.Fatalf("Failed to compile feature plan: %v", err)
	}
	log.Infow("Feature plan compiled",
		"transformers", cfg.Features.TransformersPath,
		"version", store.Version(),
		"bin_overflow", cfg.Features.BinOverflow,
	)

	model, err := ml.LoadRegressor(ml.RegressorConfig{
		Path:        cfg.Model.Path,
		LibraryPath: cfg.Model.LibraryPath,
		InputName:   cfg.Model.InputName,
		OutputName:  cfg.Model.OutputName,
		Features:    len(features.FeatureColumns),
	})
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}
	defer model.Destroy()
	log.Infow("Model loaded", "path", cfg.Model.Path)

	be := initBackends(ctx, cfg, log)
	defer be.close(log)

	deps, forecastLog := initForecastDeps(ctx, cfg, be, log)

	service := forecastsvc.NewService(pipeline, model, store, deps, forecastsvc.Config{
		PredictTimeout: cfg.Model.PredictTimeout,
	}, log)

	if be.clickhouse != nil || be.redis != nil {
		metrics.RegisterCollector(newCollector(be, log))
	}

	healthHandler := health.New(log, cfg.App.Name, cfg.App.Version, healthChecks(model, be)...)
	predictHandler := predict.New(service, cfg.HTTP.MaxBodyBytes, log)

	bot, webhook := initTelegramBot(cfg, service, log)

	server := api.NewServer(api.ServerConfig{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ServiceName:     cfg.App.Name,
		Version:         cfg.App.Version,
		TelegramWebhook: webhook,
	}, predictHandler, healthHandler, log)

	log.Info("System initialized successfully")

	// Start all components
	go func() {
		if err := server.Start(); err != nil {
			log.Errorf("HTTP server error: %v", err)
			cancel()
		}
	}()

	if bot != nil {
		startBot(ctx, cfg, bot, log)
	}

	if be.producer != nil && cfg.Kafka.ConsumeRequests {
		startRequestConsumer(ctx, cfg, service, log)
	}

	scheduler := initWorkers(cfg, deps, service, log)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}

	// Wait for shutdown signal
	waitForShutdown(ctx, cancel, cfg, server, bot, scheduler, forecastLog, errorTracker, log)
}

// loadConfig loads application configuration from environment
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// initLogger initializes structured logging
func initLogger(cfg *config.Config) error {
	return logger.Init(cfg.App.LogLevel, cfg.App.Env, cfg.App.Name)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	hostname, _ := os.Hostname()
	tracker, err := sentry.New(sentry.Options{
		DSN:         cfg.ErrorTracking.SentryDSN,
		Environment: cfg.ErrorTracking.Environment,
		Release:     cfg.App.Name + "@" + cfg.App.Version,
		ServerName:  hostname,
	})
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initBackends connects the configured optional backends. A backend that is
// configured but unreachable is fatal.
func initBackends(ctx context.Context, cfg *config.Config, log *logger.Logger) *backends {
	be := &backends{}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if cfg.Postgres.Enabled() {
		client, err := postgres.NewClient(connectCtx, cfg.Postgres)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		be.postgres = client
		log.Infow("PostgreSQL connected", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	if cfg.ClickHouse.Enabled() {
		client, err := clickhouse.NewClient(connectCtx, cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to connect to ClickHouse: %v", err)
		}
		if err := client.Migrate(connectCtx); err != nil {
			log.Fatalf("Failed to migrate ClickHouse: %v", err)
		}
		be.clickhouse = client
		log.Infow("ClickHouse connected", "host", cfg.ClickHouse.Host, "database", cfg.ClickHouse.Database)
	}

	if cfg.Redis.Enabled() {
		client, err := redis.NewClient(connectCtx, cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		be.redis = client
		log.Infow("Redis connected", "addr", cfg.Redis.Addr())
	}

	if cfg.Kafka.Enabled() {
		be.producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers: cfg.Kafka.Brokers,
			Async:   cfg.Kafka.Async,
		}, log)
		log.Infow("Kafka producer configured", "brokers", cfg.Kafka.Brokers)
	}

	return be
}

// initForecastDeps builds the store-day source, outlook cache and sinks
func initForecastDeps(ctx context.Context, cfg *config.Config, be *backends, log *logger.Logger) (forecastsvc.Deps, *chrepo.ForecastLog) {
	var deps forecastsvc.Deps

	switch {
	case be.postgres != nil:
		deps.Source = pgrepo.NewStoreDayRepository(be.postgres.DB())
		log.Info("Store-day source: PostgreSQL")
	default:
		ds, err := dataset.Load(cfg.Dataset.TestPath, cfg.Dataset.StorePath, log)
		if err != nil {
			// Outlooks answer 503 without a source; /rossmann/predict still works
			log.Warnw("Store-day dataset unavailable, outlooks disabled", "error", err)
		} else {
			deps.Source = ds
			log.Info("Store-day source: CSV dataset")
		}
	}

	if be.redis != nil {
		deps.Cache = redisrepo.NewOutlookCache(be.redis.Client(), cfg.Outlook.CacheTTL)
	}

	var forecastLog *chrepo.ForecastLog
	if be.clickhouse != nil {
		forecastLog = chrepo.NewForecastLog(be.clickhouse.Conn(), chrepo.ForecastLogConfig{
			BatchSize:     cfg.ClickHouse.BatchSize,
			FlushInterval: cfg.ClickHouse.FlushInterval,
			OnFlush: func(rows int, took time.Duration, err error) {
				metrics.RecordSinkWrite("clickhouse_flush", took, err)
			},
		}, log)
		forecastLog.Start(ctx)
		deps.Sinks = append(deps.Sinks, forecastLog)
	}

	if be.producer != nil {
		deps.Sinks = append(deps.Sinks, kafka.NewForecastPublisher(be.producer))
	}

	return deps, forecastLog
}

// newCollector exposes forecast log and cache gauges for the enabled backends
func newCollector(be *backends, log *logger.Logger) *metrics.ForecastCollector {
	var conn driver.Conn
	if be.clickhouse != nil {
		conn = be.clickhouse.Conn()
	}
	var rdb *goredis.Client
	if be.redis != nil {
		rdb = be.redis.Client()
	}
	return metrics.NewForecastCollector(log, conn, rdb, redisrepo.OutlookKeyPrefix)
}

func healthChecks(model *ml.Regressor, be *backends) []health.Check {
	checks := []health.Check{{
		Name:     "model",
		Required: true,
		Checker:  health.CheckFunc(func(context.Context) error { return model.Health() }),
	}}

	if be.postgres != nil {
		checks = append(checks, health.Check{Name: "postgres", Checker: be.postgres, Required: true})
	}
	if be.clickhouse != nil {
		checks = append(checks, health.Check{Name: "clickhouse", Checker: be.clickhouse})
	}
	if be.redis != nil {
		checks = append(checks, health.Check{Name: "redis", Checker: be.redis})
	}

	return checks
}

// initTelegramBot initializes the Telegram bot and, in webhook mode, its
// HTTP handler. Both are nil when no token is configured.
func initTelegramBot(cfg *config.Config, outlooks telegram.OutlookProvider, log *logger.Logger) (*telegram.Bot, *telegramapi.WebhookHandler) {
	if !cfg.Telegram.Enabled() {
		log.Info("Telegram bot disabled")
		return nil, nil
	}

	bot, err := telegram.NewBot(telegram.Config{
		Token:          cfg.Telegram.BotToken,
		Debug:          cfg.Telegram.Debug,
		WebhookMode:    cfg.Telegram.WebhookMode(),
		RateLimitBurst: cfg.Telegram.RateLimitBurst,
		RateLimitRate:  cfg.Telegram.RateLimitRate,
	}, log)
	if err != nil {
		log.Fatalf("Failed to create Telegram bot: %v", err)
	}

	handler := telegram.NewHandler(bot, outlooks, cfg.Telegram.ReplyTimeout, log)

	if cfg.Telegram.WebhookMode() {
		if err := bot.SetWebhook(cfg.Telegram.WebhookURL); err != nil {
			log.Fatalf("Failed to set Telegram webhook: %v", err)
		}
		return bot, telegramapi.NewWebhookHandler(bot.GetAPI(), handler, log)
	}

	// Polling mode: a webhook left over from a previous deployment blocks getUpdates
	if err := bot.DeleteWebhook(false); err != nil {
		log.Warnf("Failed to delete Telegram webhook: %v", err)
	}
	bot.SetMessageHandler(handler.HandleUpdate)
	return bot, nil
}

// initWorkers registers background workers. The outlook warmer only runs
// with a cache to fill and a source that can list its stores.
func initWorkers(cfg *config.Config, deps forecastsvc.Deps, service *forecastsvc.Service, log *logger.Logger) *workers.Scheduler {
	scheduler := workers.NewScheduler(cfg.HTTP.ShutdownTimeout, log)

	lister, ok := deps.Source.(forecast.StoreLister)
	if ok && deps.Cache != nil && cfg.Outlook.WarmInterval > 0 {
		scheduler.RegisterWorker(workers.NewOutlookWarmer(lister, service, cfg.Outlook.WarmInterval, cfg.Model.PredictTimeout, log))
	}

	return scheduler
}

// startBot starts Telegram bot
func startBot(ctx context.Context, cfg *config.Config, bot *telegram.Bot, log *logger.Logger) {
	log.Infow("Starting Telegram bot...", "webhook_mode", cfg.Telegram.WebhookMode())
	go func() {
		if err := bot.Start(ctx); err != nil {
			log.Errorf("Telegram bot error: %v", err)
		}
	}()
}

// startRequestConsumer scores record batches published on Kafka
func startRequestConsumer(ctx context.Context, cfg *config.Config, service *forecastsvc.Service, log *logger.Logger) {
	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
		Topic:   kafka.TopicPredictRequests,
	}, log)

	requests := consumers.NewPredictRequestConsumer(consumer, service, forecastsvc.SourceKafka, cfg.Model.PredictTimeout, log)
	go func() {
		if err := requests.Start(ctx); err != nil {
			log.Errorf("Predict request consumer error: %v", err)
		}
	}()
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	cfg *config.Config,
	server *api.Server,
	bot *telegram.Bot,
	scheduler *workers.Scheduler,
	forecastLog *chrepo.ForecastLog,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infow("Shutting down...", "signal", sig.String())
	case <-ctx.Done():
		log.Info("Shutting down after component failure...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting requests before cancelling background components
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Failed to stop HTTP server: %v", err)
	}

	if bot != nil {
		bot.Stop()
	}

	cancel()

	if err := scheduler.Stop(); err != nil {
		log.Warnf("Failed to stop workers: %v", err)
	}

	if forecastLog != nil {
		if err := forecastLog.Stop(shutdownCtx); err != nil {
			log.Warnf("Failed to flush forecast log: %v", err)
		}
	}

	if err := errorTracker.Flush(shutdownCtx); err != nil {
		log.Warnf("Failed to flush error tracker: %v", err)
	}

	log.Info("Shutdown complete")
}

func (be *backends) close(log *logger.Logger) {
	if be.producer != nil {
		if err := be.producer.Close(); err != nil {
			log.Warnf("Failed to close Kafka producer: %v", err)
		}
	}
	if be.redis != nil {
		if err := be.redis.Close(); err != nil {
			log.Warnf("Failed to close Redis: %v", err)
		}
	}
	if be.clickhouse != nil {
		if err := be.clickhouse.Close(); err != nil {
			log.Warnf("Failed to close ClickHouse: %v", err)
		}
	}
	if be.postgres != nil {
		if err := be.postgres.Close(); err != nil {
			log.Warnf("Failed to close PostgreSQL: %v", err)
		}
	}
}

// Compile-time checks
var (
	_ forecast.Sink           = (*chrepo.ForecastLog)(nil)
	_ forecast.Sink           = (*kafka.ForecastPublisher)(nil)
	_ forecast.OutlookCache   = (*redisrepo.OutlookCache)(nil)
	_ forecast.StoreDaySource = (*pgrepo.StoreDayRepository)(nil)
	_ forecast.StoreDaySource = (*dataset.Dataset)(nil)
)
