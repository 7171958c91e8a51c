package fetch

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
	"github.com/ADEMSU/insight-flow-rss/internal/observability/metrics"
	"github.com/ADEMSU/insight-flow-rss/internal/observability/slo"
	"github.com/ADEMSU/insight-flow-rss/internal/resilience/retry"
	"github.com/ADEMSU/insight-flow-rss/internal/usecase/dedup"
)

// FeedFetcher retrieves and parses one feed. The timeout bounds the whole
// request-parse cycle.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) ([]FeedItem, error)
}

// FeedItem is one normalized feed entry.
type FeedItem struct {
	Title              string
	URL                string
	Content            string
	HTMLContent        string
	PublishedAt        time.Time
	PublishedAtAssumed bool
}

// Config holds crawl-wide settings.
type Config struct {
	// MaxConcurrent is the wave size: sources fetched simultaneously inside
	// one priority group.
	MaxConcurrent int

	// DefaultTimeout applies to sources without their own timeout.
	DefaultTimeout time.Duration

	// ContentThreshold is the minimum feed-supplied content length; shorter
	// bodies trigger a full-article fetch when a ContentFetcher is wired.
	ContentThreshold int
}

// DefaultConfig returns the production crawl settings.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:    10,
		DefaultTimeout:   30 * time.Second,
		ContentThreshold: 500,
	}
}

// Service crawls all configured sources and produces article candidates.
type Service struct {
	fetcher        FeedFetcher
	contentFetcher ContentFetcher
	health         *HealthTracker
	cfg            Config

	retryConfig          retry.Config
	escalatedRetryConfig retry.Config
}

// NewService creates the crawl service. contentFetcher may be nil to disable
// full-article enhancement.
func NewService(fetcher FeedFetcher, contentFetcher ContentFetcher, health *HealthTracker, cfg Config) *Service {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	return &Service{
		fetcher:              fetcher,
		contentFetcher:       contentFetcher,
		health:               health,
		cfg:                  cfg,
		retryConfig:          retry.FeedFetchConfig(),
		escalatedRetryConfig: retry.FeedFetchEscalatedConfig(),
	}
}

// Health exposes the tracker for report generation.
func (s *Service) Health() *HealthTracker {
	return s.health
}

// FetchAll crawls every source and returns the candidates published inside
// [from, to]. Priority groups run in ascending order; inside a group the
// sources are dispatched in waves of the configured size. A failed source
// contributes zero candidates and never blocks the others.
func (s *Service) FetchAll(ctx context.Context, sources []entity.FeedSource, from, to time.Time) []*entity.Post {
	start := time.Now()

	var all []*entity.Post
	var mu sync.Mutex

	for _, group := range groupByPriority(sources) {
		for waveStart := 0; waveStart < len(group); waveStart += s.cfg.MaxConcurrent {
			waveEnd := waveStart + s.cfg.MaxConcurrent
			if waveEnd > len(group) {
				waveEnd = len(group)
			}

			eg, egCtx := errgroup.WithContext(ctx)
			for _, src := range group[waveStart:waveEnd] {
				src := src
				eg.Go(func() error {
					posts := s.fetchSource(egCtx, src, from, to)
					mu.Lock()
					all = append(all, posts...)
					mu.Unlock()
					return nil
				})
			}
			_ = eg.Wait()

			if ctx.Err() != nil {
				return all
			}
		}
	}

	if s.health != nil && len(sources) > 0 {
		healthy := 0
		for _, src := range sources {
			if s.health.LastStatus(src.Name) == StatusOK {
				healthy++
			}
		}
		slo.UpdateFeedAvailability(float64(healthy) / float64(len(sources)))
	}

	slog.Info("crawl completed",
		slog.Int("sources", len(sources)),
		slog.Int("candidates", len(all)),
		slog.Duration("duration", time.Since(start)))
	return all
}

// groupByPriority splits sources into priority groups, lowest value first.
// Order inside a group follows the configuration file.
func groupByPriority(sources []entity.FeedSource) [][]entity.FeedSource {
	byPriority := make(map[int][]entity.FeedSource)
	for _, src := range sources {
		byPriority[src.Priority] = append(byPriority[src.Priority], src)
	}

	priorities := make([]int, 0, len(byPriority))
	for p := range byPriority {
		priorities = append(priorities, p)
	}
	sort.Ints(priorities)

	groups := make([][]entity.FeedSource, 0, len(priorities))
	for _, p := range priorities {
		groups = append(groups, byPriority[p])
	}
	return groups
}

// fetchSource crawls one source with retry, records the outcome in the
// health ledger, and returns the window-filtered candidates.
func (s *Service) fetchSource(ctx context.Context, src entity.FeedSource, from, to time.Time) []*entity.Post {
	timeout := src.Timeout
	if timeout <= 0 {
		timeout = s.cfg.DefaultTimeout
	}

	// A source whose previous crawl failed gets the escalated budget of
	// three attempts; healthy sources get one.
	retryCfg := s.retryConfig
	if s.health.LastStatus(src.Name) == StatusError {
		retryCfg = s.escalatedRetryConfig
		slog.Info("escalating retry budget for unhealthy source",
			slog.String("source", src.Name),
			slog.Int("max_attempts", retryCfg.MaxAttempts))
	}

	start := time.Now()
	var items []FeedItem
	err := retry.WithBackoff(ctx, retryCfg, func() error {
		var fetchErr error
		items, fetchErr = s.fetcher.Fetch(ctx, src.URL, timeout)
		return fetchErr
	})
	took := time.Since(start)

	if err != nil {
		errType := ClassifyError(err)
		s.health.RecordError(src, errType, err.Error(), took)
		metrics.RecordFeedCrawlError(src.Name, errType)
		slog.Warn("failed to fetch feed",
			slog.String("source", src.Name),
			slog.String("url", src.URL),
			slog.String("error_type", errType),
			slog.Any("error", err))
		return nil
	}

	s.health.RecordSuccess(src, len(items), took)

	posts := make([]*entity.Post, 0, len(items))
	for _, item := range items {
		post := s.buildCandidate(ctx, src, item)
		if post.PublishedOn.Before(from) || post.PublishedOn.After(to) {
			continue
		}
		posts = append(posts, post)
	}

	metrics.RecordFeedCrawl(src.Name, took, len(items), len(posts))
	slog.Info("source crawl completed",
		slog.String("source", src.Name),
		slog.Int("entries", len(items)),
		slog.Int("in_window", len(posts)),
		slog.Duration("duration", took))
	return posts
}

// buildCandidate normalizes one feed entry into an article candidate.
func (s *Service) buildCandidate(ctx context.Context, src entity.FeedSource, item FeedItem) *entity.Post {
	postID := entity.PostIDFromURL(item.URL)
	if item.URL == "" {
		postID = entity.PostIDFromFields(src.Name, item.Title, item.PublishedAt)
	}

	content := s.enhanceContent(ctx, item)

	return &entity.Post{
		PostID:             postID,
		SourceID:           src.ID,
		Title:              item.Title,
		Content:            content,
		HTMLContent:        item.HTMLContent,
		URL:                item.URL,
		BlogHost:           src.Name,
		HostType:           entity.HostTypeMedia,
		PublishedOn:        item.PublishedAt.UTC(),
		PublishedAtAssumed: item.PublishedAtAssumed,
		Simhash:            dedup.FormatSimhash(dedup.Simhash(item.Title + " " + content)),
	}
}

// enhanceContent swaps in the full article body when the feed-supplied one
// is too short to classify well. Never fails: any fetch problem falls back
// to the feed content.
func (s *Service) enhanceContent(ctx context.Context, item FeedItem) string {
	if s.contentFetcher == nil {
		return item.Content
	}
	if len(item.Content) >= s.cfg.ContentThreshold {
		metrics.RecordContentFetchSkipped()
		return item.Content
	}

	fetchStart := time.Now()
	full, err := s.contentFetcher.FetchContent(ctx, item.URL)
	fetchDuration := time.Since(fetchStart)

	if err != nil {
		slog.Warn("content fetch failed, using feed content",
			slog.String("url", item.URL),
			slog.Any("error", err),
			slog.Duration("fetch_duration", fetchDuration))
		metrics.RecordContentFetchFailed(fetchDuration)
		return item.Content
	}
	metrics.RecordContentFetchSuccess(fetchDuration, len(full))

	// A shorter extraction means the reader got lost in boilerplate.
	if len(full) > len(item.Content) {
		return full
	}
	return item.Content
}
