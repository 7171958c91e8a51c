package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) healthResponse {
	t.Helper()
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthServer_Liveness(t *testing.T) {
	srv := NewHealthServer(":0", slog.Default())

	rec := httptest.NewRecorder()
	srv.handleLiveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decodeHealth(t, rec).Status)
}

func TestHealthServer_Readiness_NotReady(t *testing.T) {
	srv := NewHealthServer(":0", slog.Default())

	rec := httptest.NewRecorder()
	srv.handleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", decodeHealth(t, rec).Status)
}

func TestHealthServer_Readiness_Ready(t *testing.T) {
	srv := NewHealthServer(":0", slog.Default())
	srv.SetReady(true)

	rec := httptest.NewRecorder()
	srv.handleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeHealth(t, rec).Status)
}

func TestHealthServer_Readiness_CheckFailure(t *testing.T) {
	srv := NewHealthServer(":0", slog.Default(), func(context.Context) error {
		return errors.New("circuit breaker is open")
	})
	srv.SetReady(true)

	rec := httptest.NewRecorder()
	srv.handleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeHealth(t, rec)
	assert.Equal(t, "not ready", body.Status)
	assert.Contains(t, body.Error, "circuit breaker is open")
}

func TestHealthServer_Readiness_CheckSuccess(t *testing.T) {
	called := false
	srv := NewHealthServer(":0", slog.Default(), func(context.Context) error {
		called = true
		return nil
	})
	srv.SetReady(true)

	rec := httptest.NewRecorder()
	srv.handleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestHealthServer_ReadinessTransition(t *testing.T) {
	srv := NewHealthServer(":0", slog.Default())
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)

	rec := httptest.NewRecorder()
	srv.handleReadiness(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	srv.SetReady(true)
	rec = httptest.NewRecorder()
	srv.handleReadiness(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	srv.SetReady(false)
	rec = httptest.NewRecorder()
	srv.handleReadiness(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthServer_GracefulShutdown(t *testing.T) {
	srv := NewHealthServer("127.0.0.1:0", slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("health server did not shut down")
	}
}
