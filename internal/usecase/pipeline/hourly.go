package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
	"github.com/ADEMSU/insight-flow-rss/internal/observability/metrics"
	"github.com/ADEMSU/insight-flow-rss/internal/observability/tracing"
	"github.com/ADEMSU/insight-flow-rss/internal/repository"
)

// RunHourly executes one ingest-and-tag cycle: crawl the last 24 hours,
// drop already-stored URLs, insert the rest, then run relevance over every
// unchecked post and classification over relevant unclassified ones. Stage
// failures after a successful insert are reported but never lose data.
func (s *Service) RunHourly(ctx context.Context) error {
	start := s.now()
	from, to := HourlyWindow(start)
	slog.Info("hourly job started",
		slog.Time("window_from", from),
		slog.Time("window_to", to))

	ctx, span := tracing.StartJob(ctx, "hourly")
	var stats RunStats
	err := s.runHourly(ctx, from, to, &stats)
	tracing.EndJob(span, err)

	duration := time.Since(start)
	metrics.RecordPipelineRun("hourly", err == nil, duration)
	if flushErr := s.stats.Flush(start, stats); flushErr != nil {
		slog.Warn("cannot persist run stats", slog.Any("error", flushErr))
	}
	s.writeHealthReports()

	if err != nil {
		slog.Error("hourly job failed", slog.Any("error", err), slog.Duration("duration", duration))
		return err
	}
	slog.Info("hourly job completed",
		slog.Int("fetched", stats.Fetched),
		slog.Int("inserted", stats.Inserted),
		slog.Int("relevance_checked", stats.Relevant),
		slog.Int("classified", stats.Classified),
		slog.Duration("duration", duration))
	return nil
}

func (s *Service) runHourly(ctx context.Context, from, to time.Time, stats *RunStats) error {
	if err := s.repo.EnsurePartition(ctx, s.now()); err != nil {
		return fmt.Errorf("RunHourly: %w", err)
	}

	posts := s.feeds.FetchAll(ctx, s.sources, from.UTC(), to.UTC())
	stats.Fetched = len(posts)

	newPosts, err := s.filterKnownURLs(ctx, posts)
	if err != nil {
		return fmt.Errorf("RunHourly: %w", err)
	}
	slog.Info("new candidates after URL filter",
		slog.Int("fetched", len(posts)),
		slog.Int("new", len(newPosts)))

	if len(newPosts) > 0 {
		inserted, err := s.repo.InsertBatch(ctx, newPosts)
		if err != nil {
			return fmt.Errorf("RunHourly: %w", err)
		}
		stats.Inserted = inserted
	}

	// Tagging needs the inference backend. When it is down, skip both
	// passes so the rows stay unknown and the next cycle picks them up.
	if err := s.llm.TestConnection(ctx); err != nil {
		slog.Error("inference backend unreachable, skipping relevance and classification",
			slog.Any("error", err))
		return nil
	}

	// Relevance and classification always run: earlier cycles may have left
	// unchecked or unclassified rows behind.
	checked, err := s.RelevancePass(ctx, 0)
	if err != nil {
		return fmt.Errorf("RunHourly: %w", err)
	}
	stats.Relevant = checked

	classified, err := s.ClassifyPass(ctx, 0)
	if err != nil {
		return fmt.Errorf("RunHourly: %w", err)
	}
	stats.Classified = classified
	return nil
}

// filterKnownURLs drops candidates whose url is already stored. Posts
// without a url pass through; InsertBatch still dedupes them by post_id.
func (s *Service) filterKnownURLs(ctx context.Context, posts []*entity.Post) ([]*entity.Post, error) {
	urls := make([]string, 0, len(posts))
	for _, p := range posts {
		if p.URL != "" {
			urls = append(urls, p.URL)
		}
	}
	if len(urls) == 0 {
		return posts, nil
	}

	existing, err := s.repo.ExistingURLs(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("filterKnownURLs: %w", err)
	}

	fresh := make([]*entity.Post, 0, len(posts))
	for _, p := range posts {
		if p.URL != "" && existing[p.URL] {
			continue
		}
		fresh = append(fresh, p)
	}
	return fresh, nil
}

// RelevancePass runs relevance inference over unchecked posts and persists
// the verdicts. limit <= 0 processes everything. Returns the number of
// verdicts written.
func (s *Service) RelevancePass(ctx context.Context, limit int) (written int, err error) {
	ctx, span := tracing.StartStage(ctx, "relevance")
	defer func() { tracing.EndJob(span, err) }()

	posts, err := s.repo.SelectUnchecked(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("RelevancePass: %w", err)
	}
	if len(posts) == 0 {
		slog.Info("no unchecked posts")
		return 0, nil
	}

	results := s.llm.CheckRelevance(ctx, posts)
	if len(results) == 0 {
		return 0, nil
	}

	updates := make(map[string]repository.RelevanceUpdate, len(results))
	for postID, r := range results {
		updates[postID] = repository.RelevanceUpdate{Relevant: r.Relevant, Score: r.Score}
	}
	written, err = s.repo.UpdateRelevanceBatch(ctx, updates)
	if err != nil {
		return 0, fmt.Errorf("RelevancePass: %w", err)
	}
	slog.Info("relevance pass completed",
		slog.Int("checked", len(posts)),
		slog.Int("written", written))
	return written, nil
}

// ClassifyPass classifies relevant posts without a category and persists the
// results. Posts the model could not place stay unclassified for the next
// cycle. Returns the number of classifications written.
func (s *Service) ClassifyPass(ctx context.Context, limit int) (written int, err error) {
	ctx, span := tracing.StartStage(ctx, "classify")
	defer func() { tracing.EndJob(span, err) }()

	posts, err := s.repo.SelectRelevantUnclassified(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("ClassifyPass: %w", err)
	}
	if len(posts) == 0 {
		slog.Info("no posts to classify")
		return 0, nil
	}

	results := s.llm.Classify(ctx, posts, s.taxonomy)

	updates := make(map[string]repository.ClassificationUpdate, len(results))
	for postID, c := range results {
		if c.Category == "" {
			continue
		}
		updates[postID] = repository.ClassificationUpdate{
			Category:    c.Category,
			Subcategory: c.Subcategory,
			Confidence:  c.Confidence,
		}
	}
	if len(updates) == 0 {
		return 0, nil
	}

	written, err = s.repo.UpdateClassificationBatch(ctx, updates)
	if err != nil {
		return 0, fmt.Errorf("ClassifyPass: %w", err)
	}
	slog.Info("classification pass completed",
		slog.Int("candidates", len(posts)),
		slog.Int("written", written))
	return written, nil
}

func (s *Service) writeHealthReports() {
	if s.health == nil {
		return
	}
	if err := s.health.WriteStatusReport(); err != nil {
		slog.Warn("cannot write status report", slog.Any("error", err))
	}
	if err := s.health.WriteHealthReport(); err != nil {
		slog.Warn("cannot write health report", slog.Any("error", err))
	}
}
