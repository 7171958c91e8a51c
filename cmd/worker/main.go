// The worker daemon schedules the pipeline: the ingest-and-tag cycle every
// hour and the digest job every morning, with health and metrics endpoints
// on the side.
package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/ADEMSU/insight-flow-rss/internal/config"
	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
	pgRepo "github.com/ADEMSU/insight-flow-rss/internal/infra/adapter/persistence/postgres"
	"github.com/ADEMSU/insight-flow-rss/internal/infra/db"
	"github.com/ADEMSU/insight-flow-rss/internal/infra/fetcher"
	"github.com/ADEMSU/insight-flow-rss/internal/infra/notifier"
	"github.com/ADEMSU/insight-flow-rss/internal/infra/scraper"
	workerPkg "github.com/ADEMSU/insight-flow-rss/internal/infra/worker"
	"github.com/ADEMSU/insight-flow-rss/internal/observability/logging"
	"github.com/ADEMSU/insight-flow-rss/internal/observability/tracing"
	"github.com/ADEMSU/insight-flow-rss/internal/resilience/circuitbreaker"
	"github.com/ADEMSU/insight-flow-rss/internal/usecase/dedup"
	fetchUC "github.com/ADEMSU/insight-flow-rss/internal/usecase/fetch"
	"github.com/ADEMSU/insight-flow-rss/internal/usecase/llm"
	"github.com/ADEMSU/insight-flow-rss/internal/usecase/pipeline"
	appconfig "github.com/ADEMSU/insight-flow-rss/pkg/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// A missing .env is normal outside local development.
		slog.Debug("no .env file loaded", slog.Any("error", err))
	}
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingShutdown, err := tracing.Setup(ctx)
	if err != nil {
		logger.Error("failed to set up tracing", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := tracingShutdown(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed", slog.Any("error", err))
		}
	}()

	sources, err := config.LoadSources()
	if err != nil {
		logger.Error("failed to load feed sources", slog.Any("error", err))
		os.Exit(1)
	}

	database, err := db.Open(ctx)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("migrations failed", slog.Any("error", err))
		os.Exit(1)
	}

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("hourly_schedule", workerConfig.HourlySchedule),
		slog.String("daily_schedule", workerConfig.DailySchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Bool("run_on_startup", workerConfig.RunOnStartup),
		slog.Duration("job_timeout", workerConfig.JobTimeout))

	// Readiness follows the database through its circuit breaker: an open
	// circuit reports not ready without piling pings on a dead database.
	dbBreaker := circuitbreaker.NewDBCircuitBreaker(database)
	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger, dbBreaker.PingContext)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	startMetricsServer(ctx, logger, workerConfig.MetricsPort)

	svc, err := setupPipeline(logger, database, sources)
	if err != nil {
		logger.Error("failed to set up pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	runScheduler(ctx, logger, svc, workerConfig, workerMetrics, healthServer)
}

// setupPipeline wires the crawl, inference, dedup, persistence, and delivery
// layers into one pipeline service.
func setupPipeline(logger *slog.Logger, database *sql.DB, sources []entity.FeedSource) (*pipeline.Service, error) {
	logsDir := appconfig.GetEnvString("LOGS_DIR", "logs")

	feedFetcher := scraper.NewRSSFetcher(newFeedHTTPClient())

	contentCfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load content fetch configuration", slog.Any("error", err))
		logger.Warn("content fetching disabled due to configuration error")
		contentCfg = fetcher.DefaultConfig()
		contentCfg.Enabled = false
	}
	var contentFetcher fetchUC.ContentFetcher
	if contentCfg.Enabled {
		contentFetcher = fetcher.NewReadabilityFetcher(contentCfg)
		logger.Info("content fetching enabled",
			slog.Int("threshold", contentCfg.Threshold),
			slog.Duration("timeout", contentCfg.Timeout))
	} else {
		logger.Info("content fetching disabled")
	}

	health := fetchUC.NewHealthTracker(logsDir)
	fetchCfg := fetchUC.DefaultConfig()
	fetchCfg.MaxConcurrent = appconfig.GetEnvInt("FETCH_MAX_CONCURRENT", fetchCfg.MaxConcurrent)
	fetchCfg.ContentThreshold = contentCfg.Threshold
	feeds := fetchUC.NewService(feedFetcher, contentFetcher, health, fetchCfg)

	inference, err := llm.NewClient(llm.LoadConfig())
	if err != nil {
		return nil, fmt.Errorf("setupPipeline: %w", err)
	}

	telegramCfg := notifier.LoadTelegramConfig()
	var sender notifier.Notifier
	if telegramCfg.Enabled {
		sender = notifier.NewTelegramNotifier(telegramCfg)
		logger.Info("telegram delivery enabled", slog.String("chat_id", telegramCfg.ChatID))
	} else {
		sender = notifier.NewNoopNotifier()
		logger.Warn("telegram delivery disabled, digests will be dropped")
	}

	pipeCfg := pipeline.DefaultConfig()
	pipeCfg.MaxStories = appconfig.GetEnvInt("DIGEST_MAX_STORIES", pipeCfg.MaxStories)
	pipeCfg.DailySelectLimit = appconfig.GetEnvInt("DAILY_SELECT_LIMIT", pipeCfg.DailySelectLimit)
	pipeCfg.LogsDir = logsDir

	return pipeline.NewService(
		feeds,
		sources,
		pgRepo.NewPostRepo(database),
		dedup.NewEngine(dedup.DefaultConfig()),
		inference,
		sender,
		entity.DefaultTaxonomy(),
		health,
		pipeCfg,
	), nil
}

// newFeedHTTPClient returns the shared client for feed downloads.
// TLS 1.2+ is enforced.
func newFeedHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// runScheduler registers both jobs and blocks until the context is
// cancelled. RunOnStartup triggers one hourly cycle immediately.
func runScheduler(
	ctx context.Context,
	logger *slog.Logger,
	svc *pipeline.Service,
	cfg *workerPkg.WorkerConfig,
	metrics *workerPkg.WorkerMetrics,
	healthServer *workerPkg.HealthServer,
) {
	c := cron.New(cron.WithLocation(cfg.Location()))

	if _, err := c.AddFunc(cfg.HourlySchedule, func() {
		runJob(logger, "hourly", cfg.JobTimeout, metrics, svc.RunHourly)
	}); err != nil {
		logger.Error("failed to register hourly job", slog.Any("error", err))
		os.Exit(1)
	}
	if _, err := c.AddFunc(cfg.DailySchedule, func() {
		runJob(logger, "daily", cfg.JobTimeout, metrics, svc.RunDaily)
	}); err != nil {
		logger.Error("failed to register daily job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("hourly_schedule", cfg.HourlySchedule),
		slog.String("daily_schedule", cfg.DailySchedule),
		slog.String("timezone", cfg.Timezone))

	if cfg.RunOnStartup {
		go runJob(logger, "hourly", cfg.JobTimeout, metrics, svc.RunHourly)
	}

	<-ctx.Done()
	logger.Info("worker shutting down")
	healthServer.SetReady(false)
	<-c.Stop().Done()
	logger.Info("worker stopped")
}

// runJob executes one job with a timeout and records its outcome.
func runJob(
	logger *slog.Logger,
	name string,
	timeout time.Duration,
	metrics *workerPkg.WorkerMetrics,
	job func(context.Context) error,
) {
	runLogger := logging.WithJobRun(logger, name, uuid.NewString())

	start := time.Now()
	runLogger.Info("job started")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := job(ctx)
	metrics.RecordJobDuration(name, time.Since(start).Seconds())
	if err != nil {
		metrics.RecordJobRun(name, "failure")
		runLogger.Error("job failed", slog.Any("error", err))
		return
	}
	metrics.RecordJobRun(name, "success")
	metrics.RecordLastSuccess(name)
	runLogger.Info("job completed", slog.Duration("duration", time.Since(start)))
}
