package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ADEMSU/insight-flow-rss/internal/observability/metrics"
	"github.com/ADEMSU/insight-flow-rss/internal/resilience/circuitbreaker"
	"github.com/ADEMSU/insight-flow-rss/internal/resilience/retry"
	appconfig "github.com/ADEMSU/insight-flow-rss/pkg/config"
)

// TelegramConfig contains the Bot API delivery settings.
type TelegramConfig struct {
	Enabled  bool
	BotToken string
	ChatID   string

	// APIBaseURL is overridable for tests; empty means api.telegram.org.
	APIBaseURL string

	Timeout time.Duration
}

// LoadTelegramConfig reads TELEGRAM_* settings from the environment.
// Delivery is enabled only when both token and chat id are present.
func LoadTelegramConfig() TelegramConfig {
	token := appconfig.GetEnvString("TELEGRAM_BOT_TOKEN", "")
	chatID := appconfig.GetEnvString("TELEGRAM_CHAT_ID", "")
	return TelegramConfig{
		Enabled:  token != "" && chatID != "",
		BotToken: token,
		ChatID:   chatID,
		Timeout:  appconfig.GetEnvDuration("TELEGRAM_TIMEOUT", 30*time.Second),
	}
}

// TelegramNotifier sends digest messages via the Telegram Bot API.
// Messages go out with parse_mode=HTML and link previews disabled; texts
// over the 4096-char limit are split per field. Safe for concurrent use,
// though digest delivery is sequential by design.
type TelegramNotifier struct {
	config         TelegramConfig
	httpClient     *http.Client
	limiter        *rate.Limiter
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewTelegramNotifier creates the notifier. The rate limiter enforces the
// pause between consecutive messages that keeps the bot under the per-chat
// Bot API ceiling.
func NewTelegramNotifier(config TelegramConfig) *TelegramNotifier {
	if config.APIBaseURL == "" {
		config.APIBaseURL = "https://api.telegram.org"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &TelegramNotifier{
		config:         config,
		httpClient:     &http.Client{Timeout: config.Timeout},
		limiter:        rate.NewLimiter(rate.Every(1200*time.Millisecond), 1),
		circuitBreaker: circuitbreaker.New(circuitbreaker.TelegramConfig()),
		retryConfig:    retry.DeliveryConfig(),
	}
}

// SendMessage delivers a service notice, splitting if it exceeds the limit.
func (t *TelegramNotifier) SendMessage(ctx context.Context, text string) error {
	for _, chunk := range splitByLimit(text, telegramMessageLimit) {
		if err := t.deliver(ctx, chunk); err != nil {
			return fmt.Errorf("SendMessage: %w", err)
		}
	}
	return nil
}

// SendStory delivers one digest story. When the composed HTML fits the
// message limit it goes out as a single message; otherwise each field is
// sent separately, with the summary split across messages.
func (t *TelegramNotifier) SendStory(ctx context.Context, story Story) error {
	title := escapeHTML(flattenText(story.Title))
	summary := escapeHTML(flattenText(story.Summary))
	link := fmt.Sprintf("<a href=\"%s\">%s</a>", story.URL, story.URL)

	full := fmt.Sprintf("<b>Сюжет %d</b>: %s\n\n<b>Содержание</b>: %s\n\n<b>Источник</b>: %s",
		story.Index, title, summary, link)
	if len([]rune(full)) <= telegramMessageLimit {
		if err := t.deliver(ctx, full); err != nil {
			return fmt.Errorf("SendStory: %w", err)
		}
		return nil
	}

	parts := []string{fmt.Sprintf("<b>Сюжет %d</b>: %s", story.Index, title)}
	for i, chunk := range splitByLimit(summary, telegramMessageLimit-64) {
		if i == 0 {
			chunk = "<b>Содержание</b>: " + chunk
		}
		parts = append(parts, chunk)
	}
	parts = append(parts, "<b>Источник</b>: "+link)

	for _, part := range parts {
		if err := t.deliver(ctx, part); err != nil {
			return fmt.Errorf("SendStory: %w", err)
		}
	}
	return nil
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// deliver sends one message with rate limiting, retry, and the breaker.
func (t *TelegramNotifier) deliver(ctx context.Context, text string) error {
	requestID := uuid.New().String()

	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	err := retry.WithBackoff(ctx, t.retryConfig, func() error {
		_, execErr := t.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, t.post(ctx, text)
		})
		return execErr
	})

	metrics.RecordDigestMessage(err == nil)
	if err != nil {
		slog.Error("telegram delivery failed",
			slog.String("request_id", requestID),
			slog.Int("text_length", len(text)),
			slog.Any("error", err))
		return err
	}
	slog.Info("telegram message delivered",
		slog.String("request_id", requestID),
		slog.Int("text_length", len(text)))
	return nil
}

func (t *TelegramNotifier) post(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:                t.config.ChatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.config.APIBaseURL, t.config.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	// 429 and 5xx retry through the delivery budget; other 4xx abort.
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &retry.HTTPError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	return fmt.Errorf("telegram API error %d: %s", resp.StatusCode, string(body))
}
