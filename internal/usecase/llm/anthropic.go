package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	appconfig "github.com/ADEMSU/insight-flow-rss/pkg/config"

	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
	"github.com/ADEMSU/insight-flow-rss/internal/resilience/circuitbreaker"
	"github.com/ADEMSU/insight-flow-rss/internal/resilience/retry"
)

// AnthropicBackend implements SummaryBackend on the Anthropic API. It is the
// alternative Stage C provider for deployments without a local
// chat-completion service strong enough for fluent Russian summaries.
type AnthropicBackend struct {
	client         anthropic.Client
	model          string
	maxTokens      int
	timeout        time.Duration
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewAnthropicBackend creates the backend with the given API key.
//
// Environment variables:
//   - ANTHROPIC_MODEL: model identifier (default: claude-sonnet-4-5-20250929)
//   - ANTHROPIC_MAX_TOKENS: response budget (default: 1024)
//   - ANTHROPIC_TIMEOUT: per-request deadline (default: 60s)
func NewAnthropicBackend(apiKey string) *AnthropicBackend {
	model := appconfig.GetEnvString("ANTHROPIC_MODEL", string(anthropic.ModelClaudeSonnet4_5_20250929))

	slog.Info("initialized anthropic summary backend",
		slog.String("model", model))

	return &AnthropicBackend{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:          model,
		maxTokens:      appconfig.GetEnvInt("ANTHROPIC_MAX_TOKENS", 1024),
		timeout:        appconfig.GetEnvDuration("ANTHROPIC_TIMEOUT", 60*time.Second),
		circuitBreaker: circuitbreaker.New(circuitbreaker.AnthropicAPIConfig()),
		retryConfig:    retry.LLMAPIConfig(3),
	}
}

// SummarizePost implements SummaryBackend.
func (b *AnthropicBackend) SummarizePost(ctx context.Context, post *entity.Post) (string, error) {
	var result string

	retryErr := retry.WithBackoff(ctx, b.retryConfig, func() error {
		cbResult, err := b.circuitBreaker.Execute(func() (interface{}, error) {
			return b.doSummarize(ctx, post)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("anthropic api circuit breaker open, request rejected",
					slog.String("state", b.circuitBreaker.State().String()))
				return fmt.Errorf("anthropic api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})

	if retryErr != nil {
		return "", newTransient(stageSummarize, retryErr)
	}
	return result, nil
}

// doSummarize performs the actual API call without retry or circuit breaker.
func (b *AnthropicBackend) doSummarize(ctx context.Context, post *entity.Post) (string, error) {
	requestID := uuid.New().String()

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	prompt := fmt.Sprintf(`Составь краткое содержание этой публикации на русском языке (3-5 предложений).
Передай суть события, названия компаний и ключевые факты без оценок и рекомендаций.
Ответь только текстом краткого содержания, без вступлений.

Заголовок: %s
Содержание: %s`, post.Title, truncateRunes(post.Content, summaryContentLimit))

	start := time.Now()
	message, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(b.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "anthropic summarization failed",
			slog.String("request_id", requestID),
			slog.String("post_id", post.PostID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("anthropic api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("anthropic api returned unexpected response type")
	}

	slog.InfoContext(ctx, "anthropic summarization completed",
		slog.String("request_id", requestID),
		slog.String("post_id", post.PostID),
		slog.Duration("duration", duration))

	return textBlock.Text, nil
}
