package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ADEMSU/insight-flow-rss/internal/resilience/retry"
)

/* ─────────────────────────── test fixtures ─────────────────────────── */

// fakeService is an OpenAI-compatible test double. reply receives the prompt
// of each request and returns the assistant message; status overrides the
// HTTP status when non-zero.
type fakeService struct {
	srv      *httptest.Server
	requests atomic.Int64
	reply    func(prompt string) string
	status   atomic.Int64
}

func newFakeService(t *testing.T, reply func(prompt string) string) *fakeService {
	t.Helper()
	f := &fakeService{reply: reply}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		if code := f.status.Load(); code != 0 {
			http.Error(w, "unavailable", int(code))
			return
		}

		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		prompt := ""
		if len(req.Messages) > 0 {
			prompt = req.Messages[0].Content
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": f.reply(prompt)}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"object":"list","data":[{"id":"model-a"},{"id":"model-b"}]}`)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:                baseURL + "/v1",
		RelevanceModel:         "test-model",
		ClassifyModel:          "test-model",
		AnalyzeModel:           "test-model",
		RelevanceTemperature:   0.1,
		ClassifyTemperature:    0.1,
		AnalyzeTemperature:     0.3,
		Timeout:                5 * time.Second,
		MaxRetries:             1,
		MaxConcurrentRelevance: 3,
		MaxConcurrentClassify:  2,
		RelevanceBatchSize:     10,
		ClassifyBatchSize:      5,
		BatchPause:             time.Millisecond,
		SummaryBackend:         "openai",
	}
}

func newTestClient(t *testing.T, f *fakeService) *Client {
	t.Helper()
	c, err := NewClient(testConfig(f.srv.URL))
	require.NoError(t, err)
	// Fast backoff so retry tests finish quickly.
	c.retryConfig = retry.Config{
		MaxAttempts:  c.retryConfig.MaxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.0,
	}
	return c
}

/* ─────────────────────────── chat ─────────────────────────── */

func TestChat_RetriesOnServerError(t *testing.T) {
	f := newFakeService(t, func(string) string { return "pong" })
	f.status.Store(http.StatusServiceUnavailable)

	c := newTestClient(t, f)
	c.retryConfig.MaxAttempts = 3

	go func() {
		// Recover after the second attempt.
		for f.requests.Load() < 2 {
			time.Sleep(time.Millisecond)
		}
		f.status.Store(0)
	}()

	got, err := c.chat(context.Background(), stageRelevance, "test-model", 0.1, 10, "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", got)
	assert.GreaterOrEqual(t, f.requests.Load(), int64(2))
}

func TestChat_ClientErrorIsTerminal(t *testing.T) {
	f := newFakeService(t, func(string) string { return "never" })
	f.status.Store(http.StatusBadRequest)

	c := newTestClient(t, f)
	c.retryConfig.MaxAttempts = 5

	_, err := c.chat(context.Background(), stageRelevance, "test-model", 0.1, 10, "ping")
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, Transient, stageErr.Kind)
	assert.Equal(t, int64(1), f.requests.Load(), "4xx must not be retried")
}

func TestChat_EchoesPrompt(t *testing.T) {
	var seen string
	f := newFakeService(t, func(prompt string) string {
		seen = prompt
		return "ok"
	})
	c := newTestClient(t, f)

	_, err := c.chat(context.Background(), stageRelevance, "test-model", 0.1, 10, "проверка связи")
	require.NoError(t, err)
	assert.Equal(t, "проверка связи", seen)
}

/* ─────────────────────────── connection gate ─────────────────────────── */

func TestModels(t *testing.T) {
	f := newFakeService(t, func(string) string { return "" })
	c := newTestClient(t, f)

	models, err := c.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"model-a", "model-b"}, models)
}

func TestTestConnection(t *testing.T) {
	f := newFakeService(t, func(string) string { return "" })
	c := newTestClient(t, f)

	assert.NoError(t, c.TestConnection(context.Background()))
}

func TestTestConnection_Unreachable(t *testing.T) {
	f := newFakeService(t, func(string) string { return "" })
	c := newTestClient(t, f)
	f.srv.Close()

	assert.Error(t, c.TestConnection(context.Background()))
}

/* ─────────────────────────── JSON extraction ─────────────────────────── */

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare object", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced with tag", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "fenced without tag", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "prose around object", in: `Вот ответ: {"a":1} — готово`, want: `{"a":1}`},
		{name: "nested braces", in: `{"a":{"b":2}}`, want: `{"a":{"b":2}}`},
		{name: "no object", in: "извините, не могу", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSONObject(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	got, err := extractJSONArray("```json\n[{\"post_id\":\"x\"}]\n```")
	require.NoError(t, err)
	assert.Equal(t, `[{"post_id":"x"}]`, got)

	_, err = extractJSONArray(`{"not":"array"}`)
	assert.Error(t, err)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, clampScore(-0.5))
	assert.Equal(t, 1.0, clampScore(1.7))
	assert.Equal(t, 0.42, clampScore(0.42))
}
