package notifier

import (
	"context"
	"log/slog"
)

// NoopNotifier discards everything. Used when TELEGRAM_BOT_TOKEN or
// TELEGRAM_CHAT_ID is absent, so the pipeline runs without delivery.
type NoopNotifier struct{}

// NewNoopNotifier creates a notifier that drops all messages.
func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

func (n *NoopNotifier) SendMessage(_ context.Context, text string) error {
	slog.Debug("delivery disabled, dropping message", slog.Int("text_length", len(text)))
	return nil
}

func (n *NoopNotifier) SendStory(_ context.Context, story Story) error {
	slog.Debug("delivery disabled, dropping story", slog.Int("index", story.Index))
	return nil
}
