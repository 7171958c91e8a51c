package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
	"github.com/ADEMSU/insight-flow-rss/internal/utils/text"
)

const (
	stageRelevance     = "relevance"
	stageStrictRecheck = "strict_recheck"

	// Content shorter than this is judged irrelevant without an API call.
	minRelevanceRunes = 50

	// Content longer than this is truncated before prompting.
	relevanceContentLimit = 100000

	relevanceMaxTokens = 200

	// strictMinScore is the floor a positive strict-recheck verdict must
	// additionally clear for the article to survive.
	strictMinScore = 0.7
)

// RelevanceResult is the per-article outcome of a relevance stage.
type RelevanceResult struct {
	Relevant bool
	Score    float64
}

type relevanceResponse struct {
	Relevant      bool     `json:"relevant"`
	Score         float64  `json:"score"`
	Reason        string   `json:"reason"`
	MatchedTopics []string `json:"matched_topics"`
}

// CheckRelevance runs the first-pass relevance stage over posts and returns
// a verdict per post id. Work proceeds in batches with bounded in-flight
// concurrency. A post whose check fails (backend error, unparseable reply)
// is omitted from the map so its row stays unchecked for the next cycle;
// content below the minimum length gets the genuine (false, 0.0) verdict.
// A failed item never affects its siblings.
func (c *Client) CheckRelevance(ctx context.Context, posts []*entity.Post) map[string]RelevanceResult {
	results := make(map[string]RelevanceResult, len(posts))
	var mu sync.Mutex

	for start := 0; start < len(posts); start += c.cfg.RelevanceBatchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + c.cfg.RelevanceBatchSize
		if end > len(posts) {
			end = len(posts)
		}

		var wg sync.WaitGroup
		for _, post := range posts[start:end] {
			wg.Add(1)
			go func(post *entity.Post) {
				defer wg.Done()
				result, ok := c.checkOne(ctx, stageRelevance, post)
				if !ok {
					return
				}
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

// StrictRecheck runs the tightened second relevance pass over posts that a
// looser stage already accepted and returns the survivors in input order.
// A post survives only with a positive verdict scoring at least 0.7.
func (c *Client) StrictRecheck(ctx context.Context, posts []*entity.Post) []*entity.Post {
	verdicts := make([]RelevanceResult, len(posts))

	for start := 0; start < len(posts); start += c.cfg.RelevanceBatchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + c.cfg.RelevanceBatchSize
		if end > len(posts) {
			end = len(posts)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				// A failed check leaves the zero verdict, dropping the post.
				verdicts[i], _ = c.checkOne(ctx, stageStrictRecheck, posts[i])
			}(i)
		}
		wg.Wait()

		if end < len(posts) {
			c.pauseBetweenBatches(ctx)
		}
	}

	kept := make([]*entity.Post, 0, len(posts))
	for i, post := range posts {
		if verdicts[i].Relevant && verdicts[i].Score >= strictMinScore {
			kept = append(kept, post)
		} else {
			slog.Info("post dropped by strict recheck",
				slog.String("post_id", post.PostID),
				slog.Bool("relevant", verdicts[i].Relevant),
				slog.Float64("score", verdicts[i].Score))
		}
	}
	return kept
}

// checkOne evaluates one post under the given stage. The second return value
// distinguishes a genuine verdict from a failed check: too-short content is a
// real (false, 0.0) verdict, while backend and parse failures report ok=false
// so the caller can leave the post unchecked.
func (c *Client) checkOne(ctx context.Context, stage string, post *entity.Post) (RelevanceResult, bool) {
	content := truncateRunes(post.Content, relevanceContentLimit)
	if text.CountRunes(content) < minRelevanceRunes {
		slog.Debug("content too short for relevance check",
			slog.String("post_id", post.PostID),
			slog.Int("runes", text.CountRunes(content)))
		return RelevanceResult{}, true
	}

	if err := acquire(ctx, c.relevanceSem); err != nil {
		return RelevanceResult{}, false
	}
	defer func() { <-c.relevanceSem }()

	prompt := buildRelevancePrompt(post.Title, content)
	if stage == stageStrictRecheck {
		prompt = buildStrictRelevancePrompt(post.Title, content)
	}

	raw, err := c.chat(ctx, stage, c.cfg.RelevanceModel, c.cfg.RelevanceTemperature, relevanceMaxTokens, prompt)
	if err != nil {
		slog.Error("relevance request failed",
			slog.String("stage", stage),
			slog.String("post_id", post.PostID),
			slog.Any("error", err))
		return RelevanceResult{}, false
	}

	verdict, err := parseRelevanceResponse(stage, raw)
	if err != nil {
		slog.Error("relevance response unparseable",
			slog.String("stage", stage),
			slog.String("post_id", post.PostID),
			slog.Any("error", err))
		return RelevanceResult{}, false
	}

	slog.Info("relevance verdict",
		slog.String("stage", stage),
		slog.String("post_id", post.PostID),
		slog.Bool("relevant", verdict.Relevant),
		slog.Float64("score", verdict.Score))
	return verdict, true
}

func parseRelevanceResponse(stage, raw string) (RelevanceResult, error) {
	payload, err := extractJSONObject(raw)
	if err != nil {
		return RelevanceResult{}, newParseFailure(stage, err)
	}
	var resp relevanceResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return RelevanceResult{}, newParseFailure(stage, err)
	}
	return RelevanceResult{Relevant: resp.Relevant, Score: clampScore(resp.Score)}, nil
}
