// Package notifier delivers digest stories and service notices to the chat
// channel. The only production implementation is Telegram; NoopNotifier is
// used when delivery is disabled.
package notifier

import (
	"context"
)

// Story is one digest entry ready for delivery.
type Story struct {
	// Index is the 1-based position in the digest.
	Index   int
	Title   string
	Summary string
	URL     string
}

// Notifier sends digest content. Implementations handle rate limiting,
// retries, and message-size splitting internally.
type Notifier interface {
	// SendMessage delivers a plain service notice.
	SendMessage(ctx context.Context, text string) error

	// SendStory delivers one formatted digest story.
	SendStory(ctx context.Context, story Story) error
}
