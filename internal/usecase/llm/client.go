// Package llm implements the multi-stage inference orchestrator: relevance
// checks, topic classification, and digest summarization over an
// OpenAI-compatible chat-completion service. All stages share one
// rate-limited client with circuit breaking, bounded retries, and
// fence-tolerant JSON extraction.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/ADEMSU/insight-flow-rss/internal/resilience/circuitbreaker"
	"github.com/ADEMSU/insight-flow-rss/internal/resilience/retry"
)

// Client drives every inference stage. It is safe for concurrent use; the
// per-stage semaphores are the only shared coordination state.
type Client struct {
	api             *openai.Client
	cfg             Config
	circuitBreaker  *circuitbreaker.CircuitBreaker
	retryConfig     retry.Config
	relevanceSem    chan struct{}
	classifySem     chan struct{}
	summaryBackend  SummaryBackend
	metricsRecorder StageMetricsRecorder
}

// NewClient builds the orchestrator from its configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewClient: %w", err)
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL

	c := &Client{
		api:             openai.NewClientWithConfig(apiCfg),
		cfg:             cfg,
		circuitBreaker:  circuitbreaker.New(circuitbreaker.LLMAPIConfig()),
		retryConfig:     retry.LLMAPIConfig(cfg.MaxRetries),
		relevanceSem:    make(chan struct{}, cfg.MaxConcurrentRelevance),
		classifySem:     make(chan struct{}, cfg.MaxConcurrentClassify),
		metricsRecorder: NewPrometheusStageMetrics(),
	}

	if cfg.SummaryBackend == "anthropic" {
		c.summaryBackend = NewAnthropicBackend(cfg.AnthropicAPIKey)
	} else {
		c.summaryBackend = c
	}

	slog.Info("initialized llm orchestrator",
		slog.String("base_url", cfg.BaseURL),
		slog.String("relevance_model", cfg.RelevanceModel),
		slog.String("classify_model", cfg.ClassifyModel),
		slog.String("analyze_model", cfg.AnalyzeModel),
		slog.String("summary_backend", cfg.SummaryBackend))

	return c, nil
}

// chat performs one completion with retry and circuit breaking and returns
// the raw assistant message.
func (c *Client) chat(ctx context.Context, stage, model string, temperature float64, maxTokens int, prompt string) (string, error) {
	var result string
	start := time.Now()

	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doChat(ctx, model, temperature, maxTokens, prompt)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("llm api circuit breaker open, request rejected",
					slog.String("stage", stage),
					slog.String("state", c.circuitBreaker.State().String()))
				return fmt.Errorf("llm api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})

	duration := time.Since(start)
	c.metricsRecorder.RecordRequest(stage, retryErr == nil)
	c.metricsRecorder.RecordDuration(stage, duration)

	if retryErr != nil {
		return "", newTransient(stage, retryErr)
	}
	return result, nil
}

// doChat performs the actual API call without retry or circuit breaker.
func (c *Client) doChat(ctx context.Context, model string, temperature float64, maxTokens int, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(attemptCtx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	if err != nil {
		return "", c.classifyAPIError(ctx, attemptCtx, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm api returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyAPIError decides retryability. Only HTTP {500,502,503,504} and
// per-request timeouts are transient; everything else, including 4xx and
// auth failures, is terminal.
func (c *Client) classifyAPIError(ctx, attemptCtx context.Context, err error) error {
	if attemptCtx.Err() != nil && ctx.Err() == nil {
		return &requestTimeoutError{msg: fmt.Sprintf("llm request timed out after %v", c.cfg.Timeout)}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && isRetryableStatus(apiErr.HTTPStatusCode) {
		return &retry.HTTPError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && isRetryableStatus(reqErr.HTTPStatusCode) {
		return &retry.HTTPError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}

	return fmt.Errorf("llm api error: %w", err)
}

func isRetryableStatus(status int) bool {
	switch status {
	case 500, 502, 503, 504:
		return true
	}
	return false
}

// acquire takes a semaphore slot, honoring cancellation.
func acquire(ctx context.Context, sem chan struct{}) error {
	select {
	case sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pauseBetweenBatches sleeps the configured inter-batch interval unless the
// context is cancelled first.
func (c *Client) pauseBetweenBatches(ctx context.Context) {
	select {
	case <-time.After(c.cfg.BatchPause):
	case <-ctx.Done():
	}
}

// TestConnection verifies that the API is reachable by listing its models.
// It is called once at startup before any pipeline work is scheduled.
func (c *Client) TestConnection(ctx context.Context) error {
	models, err := c.Models(ctx)
	if err != nil {
		return fmt.Errorf("TestConnection: %w", err)
	}
	slog.Info("llm api reachable", slog.Int("models", len(models)))
	return nil
}

// Models returns the identifiers the service currently serves.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("Models: %w", err)
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// extractJSONObject pulls the outermost JSON object out of a model response.
// Models occasionally wrap the object in prose or fences; everything outside
// the first '{' and the last '}' is discarded.
func extractJSONObject(content string) (string, error) {
	content = stripFences(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return content[start : end+1], nil
}

// extractJSONArray pulls the outermost JSON array out of a model response.
func extractJSONArray(content string) (string, error) {
	content = stripFences(content)
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON array in response")
	}
	return content[start : end+1], nil
}

// clampScore bounds a model-reported score to [0,1].
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
