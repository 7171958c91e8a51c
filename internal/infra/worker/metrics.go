package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ADEMSU/insight-flow-rss/internal/pkg/config"
)

// WorkerMetrics provides Prometheus metrics for the daemon shell.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// scheduler-level metrics per job kind. Stage-level pipeline metrics live in
// internal/observability/metrics; these cover only the cron shell around
// them.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp
//   - worker_config_validation_errors_total
//   - worker_config_fallbacks_total
//   - worker_config_fallback_active
//
// Worker-specific metrics:
//   - worker_cron_job_runs_total{job,status}
//   - worker_cron_job_duration_seconds{job}
//   - worker_cron_job_last_success_timestamp{job}
type WorkerMetrics struct {
	*config.ConfigMetrics

	// CronJobRunsTotal counts job runs by job kind and outcome.
	// Labels: job (hourly, daily), status (success, failure)
	CronJobRunsTotal *prometheus.CounterVec

	// CronJobDurationSeconds measures job execution duration by kind.
	// Buckets: 1s, 5s, 30s, 1m, 5m, 15m, 30m
	CronJobDurationSeconds *prometheus.HistogramVec

	// CronJobLastSuccessTimestamp records the Unix timestamp of the last
	// successful run per job kind.
	CronJobLastSuccessTimestamp *prometheus.GaugeVec
}

// NewWorkerMetrics creates the worker metrics. Registration happens via
// promauto on the default registry.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		CronJobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_job_runs_total",
			Help: "Total number of cron job runs by job kind and status",
		}, []string{"job", "status"}),

		CronJobDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worker_cron_job_duration_seconds",
			Help:    "Duration of cron job execution in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}, []string{"job"}),

		CronJobLastSuccessTimestamp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "worker_cron_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful cron job run per job kind",
		}, []string{"job"}),
	}
}

// MustRegister is a no-op kept for the conventional initialization sequence;
// promauto already registered everything in NewWorkerMetrics.
func (m *WorkerMetrics) MustRegister() {}

// RecordJobRun increments the run counter for the given job kind and status.
// Job is "hourly" or "daily"; status is "success" or "failure".
func (m *WorkerMetrics) RecordJobRun(job, status string) {
	m.CronJobRunsTotal.WithLabelValues(job, status).Inc()
}

// RecordJobDuration observes the duration of one job run in seconds.
func (m *WorkerMetrics) RecordJobDuration(job string, seconds float64) {
	m.CronJobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// RecordLastSuccess records the current time as the last successful
// completion of the given job kind.
func (m *WorkerMetrics) RecordLastSuccess(job string) {
	m.CronJobLastSuccessTimestamp.WithLabelValues(job).SetToCurrentTime()
}
