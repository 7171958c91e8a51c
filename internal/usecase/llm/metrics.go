package llm

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StageMetricsRecorder records per-stage request outcomes. The interface
// exists so tests can inject a mock instead of the Prometheus registry.
type StageMetricsRecorder interface {
	// RecordRequest counts one completed request for a stage.
	RecordRequest(stage string, success bool)

	// RecordDuration records the wall-clock time of one request, retries
	// included.
	RecordDuration(stage string, duration time.Duration)
}

// PrometheusStageMetrics implements StageMetricsRecorder on Prometheus.
type PrometheusStageMetrics struct {
	requestCounter    *prometheus.CounterVec
	durationHistogram *prometheus.HistogramVec
}

var (
	stageMetricsInstance *PrometheusStageMetrics
	stageMetricsOnce     sync.Once
)

// getOrCreateCounterVec gets an existing counter vec or creates a new one.
func getOrCreateCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		return promauto.NewCounterVec(opts, labels)
	}
	return c
}

// getOrCreateHistogramVec gets an existing histogram vec or creates a new one.
func getOrCreateHistogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(opts, labels)
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.HistogramVec)
		}
		return promauto.NewHistogramVec(opts, labels)
	}
	return h
}

// NewPrometheusStageMetrics creates the Prometheus-based recorder.
// Uses singleton pattern to avoid duplicate metric registration in tests.
func NewPrometheusStageMetrics() *PrometheusStageMetrics {
	stageMetricsOnce.Do(func() {
		stageMetricsInstance = &PrometheusStageMetrics{
			requestCounter: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "llm_stage_requests_total",
				Help: "Completed chat-completion requests by stage and outcome",
			}, []string{"stage", "status"}),
			durationHistogram: getOrCreateHistogramVec(prometheus.HistogramOpts{
				Name:    "llm_stage_request_duration_seconds",
				Help:    "Wall-clock request duration by stage, retries included",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
			}, []string{"stage"}),
		}
	})
	return stageMetricsInstance
}

// RecordRequest implements StageMetricsRecorder.RecordRequest
func (p *PrometheusStageMetrics) RecordRequest(stage string, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	p.requestCounter.WithLabelValues(stage, status).Inc()
}

// RecordDuration implements StageMetricsRecorder.RecordDuration
func (p *PrometheusStageMetrics) RecordDuration(stage string, duration time.Duration) {
	p.durationHistogram.WithLabelValues(stage).Observe(duration.Seconds())
}
