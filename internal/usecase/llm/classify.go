package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
)

const (
	stageClassify     = "classify"
	classifyMaxTokens = 100
)

// Classification is the per-article outcome of the classification stage.
// The zero value is the "no classification" sentinel.
type Classification struct {
	Category    string
	Subcategory string
	Confidence  float64
}

type classifyResponse struct {
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Confidence  float64 `json:"confidence"`
}

// Classify assigns a taxonomy category to each post and returns a result per
// post id. Batches run with bounded concurrency; a failed or off-taxonomy
// item yields the zero Classification and its siblings commit normally.
func (c *Client) Classify(ctx context.Context, posts []*entity.Post, taxonomy entity.Taxonomy) map[string]Classification {
	results := make(map[string]Classification, len(posts))
	var mu sync.Mutex

	for start := 0; start < len(posts); start += c.cfg.ClassifyBatchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + c.cfg.ClassifyBatchSize
		if end > len(posts) {
			end = len(posts)
		}

		var wg sync.WaitGroup
		for _, post := range posts[start:end] {
			wg.Add(1)
			go func(post *entity.Post) {
				defer wg.Done()
				result := c.classifyOne(ctx, post, taxonomy)
				mu.Lock()
				results[post.PostID] = result
				mu.Unlock()
			}(post)
		}
		wg.Wait()

		if end < len(posts) {
			c.pauseBetweenBatches(ctx)
		}
	}

	return results
}

// classifyOne evaluates one post. An unknown category rejects the whole
// result; an unknown subcategory is blanked while the category is kept.
func (c *Client) classifyOne(ctx context.Context, post *entity.Post, taxonomy entity.Taxonomy) Classification {
	if err := acquire(ctx, c.classifySem); err != nil {
		return Classification{}
	}
	defer func() { <-c.classifySem }()

	prompt := buildClassifyPrompt(post.Title, post.Content, taxonomy)
	raw, err := c.chat(ctx, stageClassify, c.cfg.ClassifyModel, c.cfg.ClassifyTemperature, classifyMaxTokens, prompt)
	if err != nil {
		slog.Error("classification request failed",
			slog.String("post_id", post.PostID),
			slog.Any("error", err))
		return Classification{}
	}

	payload, err := extractJSONObject(raw)
	if err != nil {
		slog.Error("classification response unparseable",
			slog.String("post_id", post.PostID),
			slog.Any("error", newParseFailure(stageClassify, err)))
		return Classification{}
	}
	var resp classifyResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		slog.Error("classification response unparseable",
			slog.String("post_id", post.PostID),
			slog.Any("error", newParseFailure(stageClassify, err)))
		return Classification{}
	}

	if !taxonomy.HasCategory(resp.Category) {
		slog.Warn("model returned unknown category",
			slog.String("post_id", post.PostID),
			slog.String("category", resp.Category))
		return Classification{}
	}
	if !taxonomy.HasSubcategory(resp.Category, resp.Subcategory) {
		slog.Warn("model returned unknown subcategory, keeping category only",
			slog.String("post_id", post.PostID),
			slog.String("category", resp.Category),
			slog.String("subcategory", resp.Subcategory))
		resp.Subcategory = ""
	}

	result := Classification{
		Category:    resp.Category,
		Subcategory: resp.Subcategory,
		Confidence:  clampScore(resp.Confidence),
	}
	slog.Info("post classified",
		slog.String("post_id", post.PostID),
		slog.String("category", result.Category),
		slog.String("subcategory", result.Subcategory),
		slog.Float64("confidence", result.Confidence))
	return result
}
