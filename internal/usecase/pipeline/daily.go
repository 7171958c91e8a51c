package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
	"github.com/ADEMSU/insight-flow-rss/internal/infra/notifier"
	"github.com/ADEMSU/insight-flow-rss/internal/observability/metrics"
	"github.com/ADEMSU/insight-flow-rss/internal/observability/slo"
	"github.com/ADEMSU/insight-flow-rss/internal/observability/tracing"
	"github.com/ADEMSU/insight-flow-rss/internal/repository"
	"github.com/ADEMSU/insight-flow-rss/internal/usecase/llm"
)

// Notices sent instead of a digest when the daily job degrades.
const (
	noticeLLMUnavailable = "⚠️ Сервис анализа недоступен. Ежедневный анализ отменен."
	noticeNoStories      = "📊 За сутки не найдено релевантных публикаций."
	noticeAnalysisFailed = "⚠️ Не удалось выполнить анализ публикаций."
)

// Final similarity gate applied to summarized stories before delivery.
const (
	storyTitleThreshold   = 0.85
	storyContentThreshold = 0.70
)

// ErrPartialDelivery reports a digest that was composed and archived but not
// fully delivered.
var ErrPartialDelivery = errors.New("digest delivered partially")

// RunDaily composes and delivers the daily digest: select the window's
// relevant posts, deduplicate, strictly recheck, pick the top stories,
// summarize, run the final similarity gate, archive, deliver, and persist
// the summaries. A degraded run (LLM down, nothing to report) sends a notice
// and succeeds; losing a composed digest is the only failure.
func (s *Service) RunDaily(ctx context.Context) error {
	start := s.now()
	from, to := DailyWindow(start)
	slog.Info("daily digest started",
		slog.Time("window_from", from),
		slog.Time("window_to", to))

	ctx, span := tracing.StartJob(ctx, "daily")
	var stats RunStats
	err := s.runDaily(ctx, from, to, &stats)
	tracing.EndJob(span, err)

	duration := time.Since(start)
	metrics.RecordPipelineRun("daily", err == nil, duration)
	if flushErr := s.stats.Flush(start, stats); flushErr != nil {
		slog.Warn("cannot persist run stats", slog.Any("error", flushErr))
	}

	if err != nil {
		slog.Error("daily digest failed", slog.Any("error", err), slog.Duration("duration", duration))
		return err
	}
	slog.Info("daily digest completed",
		slog.Int("summarized", stats.Summarized),
		slog.Duration("duration", duration))
	return nil
}

func (s *Service) runDaily(ctx context.Context, from, to time.Time, stats *RunStats) error {
	if err := s.llm.TestConnection(ctx); err != nil {
		slog.Error("inference backend unreachable, cancelling digest", slog.Any("error", err))
		s.sendNotice(ctx, noticeLLMUnavailable)
		return nil
	}

	posts, err := s.repo.SelectByWindow(ctx, from, to, repository.WindowFilters{
		OnlyRelevant: true,
		MinScore:     0.7,
		Limit:        s.cfg.DailySelectLimit,
	})
	if err != nil {
		return fmt.Errorf("RunDaily: %w", err)
	}
	slog.Info("digest candidates selected", slog.Int("count", len(posts)))

	unique := s.engine.ProcessPosts(posts)
	metrics.RecordPostsDeduplicated(len(posts) - len(unique))

	rechecked := s.llm.StrictRecheck(ctx, unique)
	slog.Info("strict recheck finished",
		slog.Int("before", len(unique)),
		slog.Int("after", len(rechecked)))

	top := s.engine.SelectTopN(rechecked, s.cfg.MaxStories)
	if len(top) == 0 {
		s.sendNotice(ctx, noticeNoStories)
		slo.UpdateDigestDelivery(1)
		return nil
	}

	summaries := s.llm.Summarize(ctx, top)
	if len(summaries) == 0 {
		slog.Error("summarization produced nothing", slog.Int("stories", len(top)))
		s.sendNotice(ctx, noticeAnalysisFailed)
		return nil
	}
	stats.Summarized = len(summaries)

	stories := s.finalStories(top, summaries)
	if err := archiveDigest(s.cfg.LogsDir, s.now(), stories); err != nil {
		slog.Warn("cannot archive digest", slog.Any("error", err))
	}

	delivered := 0
	for _, story := range stories {
		if err := s.notifier.SendStory(ctx, story); err != nil {
			slog.Error("story delivery failed",
				slog.Int("index", story.Index),
				slog.Any("error", err))
			continue
		}
		delivered++
	}
	if len(stories) > 0 {
		slo.UpdateDigestDelivery(float64(delivered) / float64(len(stories)))
	}

	if _, err := s.repo.UpdateSummaries(ctx, summaryUpdates(summaries)); err != nil {
		return fmt.Errorf("RunDaily: %w", err)
	}

	if delivered < len(stories) {
		return fmt.Errorf("RunDaily: %w: %d of %d stories sent", ErrPartialDelivery, delivered, len(stories))
	}
	return nil
}

// finalStories applies the last similarity gate to the summarized posts and
// renumbers the survivors.
func (s *Service) finalStories(top []*entity.Post, summaries []llm.Summary) []notifier.Story {
	byID := make(map[string]*entity.Post, len(top))
	for _, p := range top {
		byID[p.PostID] = p
	}

	// Attach summaries so the story gate compares digest text, not raw
	// article bodies.
	summarized := make([]*entity.Post, 0, len(summaries))
	for _, sum := range summaries {
		p, ok := byID[sum.PostID]
		if !ok {
			continue
		}
		clone := *p
		clone.Summary = sum.Summary
		summarized = append(summarized, &clone)
	}

	survivors := s.engine.DeduplicateStories(summarized, storyTitleThreshold, storyContentThreshold)
	metrics.RecordPostsDeduplicated(len(summarized) - len(survivors))

	kept := make(map[string]bool, len(survivors))
	urls := make(map[string]string, len(survivors))
	for _, p := range survivors {
		kept[p.PostID] = true
		urls[p.PostID] = p.URL
	}

	filtered := make([]llm.Summary, 0, len(summaries))
	for _, sum := range summaries {
		if kept[sum.PostID] {
			filtered = append(filtered, sum)
		}
	}
	return buildStories(filtered, urls)
}

func summaryUpdates(summaries []llm.Summary) []repository.SummaryUpdate {
	updates := make([]repository.SummaryUpdate, 0, len(summaries))
	for _, s := range summaries {
		updates = append(updates, repository.SummaryUpdate{PostID: s.PostID, Summary: s.Summary})
	}
	return updates
}

func (s *Service) sendNotice(ctx context.Context, text string) {
	if err := s.notifier.SendMessage(ctx, text); err != nil {
		slog.Error("cannot send notice", slog.Any("error", err))
	}
}
