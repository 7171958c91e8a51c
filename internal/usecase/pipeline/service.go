// Package pipeline orchestrates the scheduled jobs: the hourly ingest-and-tag
// cycle and the daily digest. It wires the crawl, store, dedup, inference,
// and delivery layers together and owns the MSK time windows.
package pipeline

import (
	"context"
	"time"

	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
	"github.com/ADEMSU/insight-flow-rss/internal/infra/notifier"
	"github.com/ADEMSU/insight-flow-rss/internal/repository"
	"github.com/ADEMSU/insight-flow-rss/internal/usecase/dedup"
	"github.com/ADEMSU/insight-flow-rss/internal/usecase/llm"
)

// FeedProvider crawls all sources and returns window-filtered candidates.
type FeedProvider interface {
	FetchAll(ctx context.Context, sources []entity.FeedSource, from, to time.Time) []*entity.Post
}

// InferenceClient is the model-facing surface the jobs drive.
type InferenceClient interface {
	CheckRelevance(ctx context.Context, posts []*entity.Post) map[string]llm.RelevanceResult
	Classify(ctx context.Context, posts []*entity.Post, taxonomy entity.Taxonomy) map[string]llm.Classification
	StrictRecheck(ctx context.Context, posts []*entity.Post) []*entity.Post
	Summarize(ctx context.Context, posts []*entity.Post) []llm.Summary
	TestConnection(ctx context.Context) error
}

// HealthReporter writes the crawl health reports after a cycle.
type HealthReporter interface {
	WriteStatusReport() error
	WriteHealthReport() error
}

// Config holds the pipeline-level settings.
type Config struct {
	// MaxStories caps the daily digest.
	MaxStories int

	// DailySelectLimit bounds the candidate pool read for the digest.
	DailySelectLimit int

	// LogsDir hosts stats, digest archives, and health reports.
	LogsDir string
}

// DefaultConfig returns the production pipeline settings.
func DefaultConfig() Config {
	return Config{
		MaxStories:       7,
		DailySelectLimit: 1000,
		LogsDir:          "logs",
	}
}

// Service runs the pipeline jobs.
type Service struct {
	feeds    FeedProvider
	sources  []entity.FeedSource
	repo     repository.PostRepository
	engine   *dedup.Engine
	llm      InferenceClient
	notifier notifier.Notifier
	taxonomy entity.Taxonomy
	health   HealthReporter
	stats    *StatsCollector
	cfg      Config

	now func() time.Time
}

// NewService wires the pipeline. health may be nil when the caller has no
// crawl tracker; notifier may be a NoopNotifier.
func NewService(
	feeds FeedProvider,
	sources []entity.FeedSource,
	repo repository.PostRepository,
	engine *dedup.Engine,
	inference InferenceClient,
	sender notifier.Notifier,
	taxonomy entity.Taxonomy,
	health HealthReporter,
	cfg Config,
) *Service {
	if cfg.MaxStories <= 0 {
		cfg.MaxStories = 7
	}
	if cfg.DailySelectLimit <= 0 {
		cfg.DailySelectLimit = 1000
	}
	if sender == nil {
		sender = notifier.NewNoopNotifier()
	}
	if taxonomy == nil {
		taxonomy = entity.DefaultTaxonomy()
	}
	return &Service{
		feeds:    feeds,
		sources:  sources,
		repo:     repo,
		engine:   engine,
		llm:      inference,
		notifier: sender,
		taxonomy: taxonomy,
		health:   health,
		stats:    NewStatsCollector(cfg.LogsDir),
		cfg:      cfg,
		now:      time.Now,
	}
}

// RunFullPipeline runs one hourly cycle followed by the daily digest.
func (s *Service) RunFullPipeline(ctx context.Context) error {
	if err := s.RunHourly(ctx); err != nil {
		return err
	}
	return s.RunDaily(ctx)
}

// PurgeIrrelevant removes posts judged not relevant. Administrative.
func (s *Service) PurgeIrrelevant(ctx context.Context) (int, error) {
	return s.repo.DeleteIrrelevant(ctx)
}
