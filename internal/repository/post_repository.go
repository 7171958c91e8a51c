package repository

import (
	"context"
	"time"

	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
)

// WindowFilters contains optional filters for window queries.
type WindowFilters struct {
	OnlyRelevant   bool
	OnlyClassified bool
	MinScore       float64
	Limit          int // 0 means no cap
}

// RelevanceUpdate carries one relevance verdict keyed by post_id.
type RelevanceUpdate struct {
	Relevant bool
	Score    float64
}

// ClassificationUpdate carries one classification result keyed by post_id.
type ClassificationUpdate struct {
	Category    string
	Subcategory string
	Confidence  float64
}

// SummaryUpdate carries one generated summary.
type SummaryUpdate struct {
	PostID  string
	Summary string
}

// PostRepository is the persistence contract of the pipeline.
// All selects return posts ordered by published_on descending. Batch updates
// are idempotent: re-running with the same inputs sets fields to the same
// values.
type PostRepository interface {
	// InsertBatch stores new posts, skipping rows whose post_id or url is
	// already present. Returns the number of rows actually inserted.
	InsertBatch(ctx context.Context, posts []*entity.Post) (int, error)
	// ExistingURLs reports which of the given URLs are already stored.
	ExistingURLs(ctx context.Context, urls []string) (map[string]bool, error)
	// SelectUnchecked returns posts whose relevance is still unknown.
	// limit <= 0 means no cap.
	SelectUnchecked(ctx context.Context, limit int) ([]*entity.Post, error)
	// SelectRelevantUnclassified returns relevant posts with score >= 0.7
	// that have no category yet.
	SelectRelevantUnclassified(ctx context.Context, limit int) ([]*entity.Post, error)
	// SelectByWindow returns posts with published_on in [from, to].
	SelectByWindow(ctx context.Context, from, to time.Time, filters WindowFilters) ([]*entity.Post, error)
	UpdateRelevanceBatch(ctx context.Context, updates map[string]RelevanceUpdate) (int, error)
	UpdateClassificationBatch(ctx context.Context, updates map[string]ClassificationUpdate) (int, error)
	UpdateSummaries(ctx context.Context, updates []SummaryUpdate) (int, error)
	// DeleteIrrelevant removes posts judged not relevant. Administrative.
	DeleteIrrelevant(ctx context.Context) (int, error)
	// EnsurePartition creates the monthly partition covering the given
	// instant if it does not exist yet.
	EnsurePartition(ctx context.Context, at time.Time) error
}
