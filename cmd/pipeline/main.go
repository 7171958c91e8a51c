// Package main provides the one-shot pipeline CLI.
// Usage: insight-flow-pipeline <command> [flags]
//
// Commands:
//
//	run-full-pipeline   one hourly cycle followed by the daily digest
//	relevance           relevance pass over unchecked posts [--limit N]
//	classify            classification pass over relevant posts [--limit N]
//	purge-irrelevant    delete posts judged not relevant
//
// Exit codes: 0 on success, 1 on configuration or connectivity failure,
// 2 when a digest was composed but only partially delivered.
package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ADEMSU/insight-flow-rss/internal/config"
	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
	pgRepo "github.com/ADEMSU/insight-flow-rss/internal/infra/adapter/persistence/postgres"
	"github.com/ADEMSU/insight-flow-rss/internal/infra/db"
	"github.com/ADEMSU/insight-flow-rss/internal/infra/fetcher"
	"github.com/ADEMSU/insight-flow-rss/internal/infra/notifier"
	"github.com/ADEMSU/insight-flow-rss/internal/infra/scraper"
	"github.com/ADEMSU/insight-flow-rss/internal/observability/logging"
	"github.com/ADEMSU/insight-flow-rss/internal/usecase/dedup"
	fetchUC "github.com/ADEMSU/insight-flow-rss/internal/usecase/fetch"
	"github.com/ADEMSU/insight-flow-rss/internal/usecase/llm"
	"github.com/ADEMSU/insight-flow-rss/internal/usecase/pipeline"
	appconfig "github.com/ADEMSU/insight-flow-rss/pkg/config"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitPartial = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.Any("error", err))
	}
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		return exitFailure
	}
	command := args[0]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	limit := flags.Int("limit", 0, "Maximum number of posts to process (0 = no cap)")
	if err := flags.Parse(args[1:]); err != nil {
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		return exitFailure
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("migrations failed", slog.Any("error", err))
		return exitFailure
	}

	svc, err := setupPipeline(ctx, logger, database, command)
	if err != nil {
		logger.Error("failed to set up pipeline", slog.Any("error", err))
		return exitFailure
	}

	switch command {
	case "run-full-pipeline":
		if err := svc.RunFullPipeline(ctx); err != nil {
			if errors.Is(err, pipeline.ErrPartialDelivery) {
				logger.Warn("pipeline finished with partial delivery", slog.Any("error", err))
				return exitPartial
			}
			logger.Error("pipeline failed", slog.Any("error", err))
			return exitFailure
		}

	case "relevance":
		checked, err := svc.RelevancePass(ctx, *limit)
		if err != nil {
			logger.Error("relevance pass failed", slog.Any("error", err))
			return exitFailure
		}
		fmt.Printf("relevance verdicts written: %d\n", checked)

	case "classify":
		classified, err := svc.ClassifyPass(ctx, *limit)
		if err != nil {
			logger.Error("classification pass failed", slog.Any("error", err))
			return exitFailure
		}
		fmt.Printf("classifications written: %d\n", classified)

	case "purge-irrelevant":
		purged, err := svc.PurgeIrrelevant(ctx)
		if err != nil {
			logger.Error("purge failed", slog.Any("error", err))
			return exitFailure
		}
		fmt.Printf("irrelevant posts deleted: %d\n", purged)

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", command)
		usage()
		return exitFailure
	}
	return exitOK
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: insight-flow-pipeline <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run-full-pipeline   one hourly cycle followed by the daily digest")
	fmt.Fprintln(os.Stderr, "  relevance           relevance pass over unchecked posts [--limit N]")
	fmt.Fprintln(os.Stderr, "  classify            classification pass over relevant posts [--limit N]")
	fmt.Fprintln(os.Stderr, "  purge-irrelevant    delete posts judged not relevant")
}

// setupPipeline wires the pipeline service. Commands that never crawl skip
// the sources roster so a missing sources file does not block maintenance.
func setupPipeline(ctx context.Context, logger *slog.Logger, database *sql.DB, command string) (*pipeline.Service, error) {
	var sources []entity.FeedSource
	if command == "run-full-pipeline" {
		loaded, err := config.LoadSources()
		if err != nil {
			return nil, fmt.Errorf("setupPipeline: %w", err)
		}
		sources = loaded
	}

	logsDir := appconfig.GetEnvString("LOGS_DIR", "logs")

	feedFetcher := scraper.NewRSSFetcher(&http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
	})

	contentCfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("content fetching disabled due to configuration error", slog.Any("error", err))
		contentCfg = fetcher.DefaultConfig()
		contentCfg.Enabled = false
	}
	var contentFetcher fetchUC.ContentFetcher
	if contentCfg.Enabled {
		contentFetcher = fetcher.NewReadabilityFetcher(contentCfg)
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
	if command == "run-full-pipeline" {
		if err := inference.TestConnection(ctx); err != nil {
			logger.Warn("inference backend unreachable", slog.Any("error", err))
		}
	}

	telegramCfg := notifier.LoadTelegramConfig()
	var sender notifier.Notifier
	if telegramCfg.Enabled {
		sender = notifier.NewTelegramNotifier(telegramCfg)
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
