package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
)

const (
	stageSummarize = "summarize"

	// summaryContentLimit bounds the article text placed into the prompt.
	summaryContentLimit = 5000

	summaryMaxTokens = 1000
)

// SummaryBackend produces one Russian-language summary per article. The
// default backend is the shared chat-completion client; an Anthropic-backed
// implementation can be selected through configuration.
type SummaryBackend interface {
	SummarizePost(ctx context.Context, post *entity.Post) (string, error)
}

// Summary is one finished digest entry.
type Summary struct {
	PostID  string
	Title   string
	Summary string
}

type summaryItem struct {
	PostID  string `json:"post_id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Summarize produces a summary per post, one completion per article so a
// failure retries independently and never poisons the rest of the digest.
// Failed articles are dropped; output order follows input order.
func (c *Client) Summarize(ctx context.Context, posts []*entity.Post) []Summary {
	summaries := make([]Summary, 0, len(posts))
	for _, post := range posts {
		if ctx.Err() != nil {
			break
		}
		summary, err := c.summaryBackend.SummarizePost(ctx, post)
		if err != nil {
			slog.Error("summarization failed, dropping article",
				slog.String("post_id", post.PostID),
				slog.Any("error", err))
			continue
		}
		summaries = append(summaries, Summary{
			PostID:  post.PostID,
			Title:   post.Title,
			Summary: summary,
		})
	}
	return summaries
}

// SummarizePost implements SummaryBackend over the chat-completion service.
// The response must be a single-element JSON array echoing the post id.
func (c *Client) SummarizePost(ctx context.Context, post *entity.Post) (string, error) {
	prompt := buildSummaryPrompt(post.PostID, post.Title, post.Content)
	raw, err := c.chat(ctx, stageSummarize, c.cfg.AnalyzeModel, c.cfg.AnalyzeTemperature, summaryMaxTokens, prompt)
	if err != nil {
		return "", err
	}

	payload, err := extractJSONArray(raw)
	if err != nil {
		return "", newParseFailure(stageSummarize, err)
	}
	var items []summaryItem
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return "", newParseFailure(stageSummarize, err)
	}
	if len(items) == 0 {
		return "", newParseFailure(stageSummarize, fmt.Errorf("empty summary array"))
	}

	item := items[0]
	if item.PostID != post.PostID {
		return "", newInvariantViolation(stageSummarize,
			fmt.Errorf("summary answers post %q, requested %q", item.PostID, post.PostID))
	}
	if item.Summary == "" {
		return "", newParseFailure(stageSummarize, fmt.Errorf("blank summary"))
	}
	return item.Summary, nil
}
