package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ADEMSU/insight-flow-rss/internal/resilience/retry"
)

/* ─────────────────────────── fake Bot API ─────────────────────────── */

type fakeTelegram struct {
	srv *httptest.Server

	mu       sync.Mutex
	requests []sendMessageRequest
	status   int
	failures int
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	t.Helper()
	f := &fakeTelegram{status: http.StatusOK}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)

		var req sendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		f.mu.Lock()
		f.requests = append(f.requests, req)
		status := f.status
		if f.failures > 0 {
			f.failures--
			status = http.StatusInternalServerError
		}
		f.mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"ok":false}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeTelegram) sent() []sendMessageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sendMessageRequest(nil), f.requests...)
}

func newTestNotifier(f *fakeTelegram) *TelegramNotifier {
	n := NewTelegramNotifier(TelegramConfig{
		Enabled:    true,
		BotToken:   "test-token",
		ChatID:     "42",
		APIBaseURL: f.srv.URL,
		Timeout:    5 * time.Second,
	})
	n.limiter.SetLimit(10000)
	n.retryConfig = retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1.0}
	return n
}

/* ─────────────────────────── SendMessage ─────────────────────────── */

func TestSendMessage(t *testing.T) {
	f := newFakeTelegram(t)
	n := newTestNotifier(f)

	require.NoError(t, n.SendMessage(context.Background(), "📊 За сутки не найдено релевантных публикаций."))

	sent := f.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "42", sent[0].ChatID)
	assert.Equal(t, "HTML", sent[0].ParseMode)
	assert.True(t, sent[0].DisableWebPagePreview)
	assert.Equal(t, "📊 За сутки не найдено релевантных публикаций.", sent[0].Text)
}

func TestSendMessage_SplitsLongText(t *testing.T) {
	f := newFakeTelegram(t)
	n := newTestNotifier(f)

	long := strings.Repeat("слово ", 1200)
	require.NoError(t, n.SendMessage(context.Background(), long))

	sent := f.sent()
	require.Greater(t, len(sent), 1)
	for _, msg := range sent {
		assert.LessOrEqual(t, len([]rune(msg.Text)), telegramMessageLimit)
	}
}

func TestSendMessage_RetriesServerError(t *testing.T) {
	f := newFakeTelegram(t)
	f.failures = 2
	n := newTestNotifier(f)

	require.NoError(t, n.SendMessage(context.Background(), "уведомление"))
	assert.Len(t, f.sent(), 3)
}

func TestSendMessage_ClientErrorIsTerminal(t *testing.T) {
	f := newFakeTelegram(t)
	f.status = http.StatusBadRequest
	n := newTestNotifier(f)

	err := n.SendMessage(context.Background(), "сообщение")
	require.Error(t, err)
	assert.Len(t, f.sent(), 1)
}

/* ─────────────────────────── SendStory ─────────────────────────── */

func TestSendStory(t *testing.T) {
	f := newFakeTelegram(t)
	n := newTestNotifier(f)

	err := n.SendStory(context.Background(), Story{
		Index:   1,
		Title:   "Санкции против банка",
		Summary: "Регулятор ввел ограничения.\nПодробности уточняются.",
		URL:     "http://a.test/article",
	})
	require.NoError(t, err)

	sent := f.sent()
	require.Len(t, sent, 1)
	text := sent[0].Text
	assert.Contains(t, text, "<b>Сюжет 1</b>: Санкции против банка")
	assert.Contains(t, text, "<b>Содержание</b>: Регулятор ввел ограничения. Подробности уточняются.")
	assert.Contains(t, text, `<b>Источник</b>: <a href="http://a.test/article">http://a.test/article</a>`)
}

func TestSendStory_EscapesHTML(t *testing.T) {
	f := newFakeTelegram(t)
	n := newTestNotifier(f)

	err := n.SendStory(context.Background(), Story{
		Index:   2,
		Title:   "Рост <b>не</b> остановился & продолжился",
		Summary: "x < y",
		URL:     "http://a.test/1",
	})
	require.NoError(t, err)

	text := f.sent()[0].Text
	assert.Contains(t, text, "Рост &lt;b&gt;не&lt;/b&gt; остановился &amp; продолжился")
	assert.Contains(t, text, "x &lt; y")
}

func TestSendStory_SplitsOversizedSummary(t *testing.T) {
	f := newFakeTelegram(t)
	n := newTestNotifier(f)

	err := n.SendStory(context.Background(), Story{
		Index:   3,
		Title:   "Длинный сюжет",
		Summary: strings.Repeat("содержание ", 800),
		URL:     "http://a.test/long",
	})
	require.NoError(t, err)

	sent := f.sent()
	require.Greater(t, len(sent), 2)
	assert.Contains(t, sent[0].Text, "<b>Сюжет 3</b>")
	assert.Contains(t, sent[1].Text, "<b>Содержание</b>: ")
	assert.Contains(t, sent[len(sent)-1].Text, "<b>Источник</b>: ")
	for _, msg := range sent {
		assert.LessOrEqual(t, len([]rune(msg.Text)), telegramMessageLimit)
	}
}

/* ─────────────────────────── helpers ─────────────────────────── */

func TestSplitByLimit(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  int
	}{
		{name: "fits", text: "короткий текст", limit: 100, want: 1},
		{name: "two chunks", text: strings.Repeat("ab ", 40), limit: 64, want: 2},
		{name: "exact", text: strings.Repeat("x", 10), limit: 10, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := splitByLimit(tt.text, tt.limit)
			assert.Len(t, chunks, tt.want)
			for _, c := range chunks {
				assert.LessOrEqual(t, len([]rune(c)), tt.limit)
			}
		})
	}
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "a &amp; b &lt;c&gt;", escapeHTML("a & b <c>"))
}

func TestNoopNotifier(t *testing.T) {
	n := NewNoopNotifier()
	assert.NoError(t, n.SendMessage(context.Background(), "текст"))
	assert.NoError(t, n.SendStory(context.Background(), Story{Index: 1}))
}
