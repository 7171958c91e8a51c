// Package worker holds the operational shell of the pipeline daemon: its
// schedule configuration, the health endpoint, and the worker metrics.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ADEMSU/insight-flow-rss/internal/pkg/config"
)

// WorkerConfig controls the daemon schedule and its operational endpoints.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// Loading is fail-open: an invalid value falls back to the default with a
// warning and a metrics increment, so a bad deploy never leaves the worker
// without a schedule.
type WorkerConfig struct {
	// HourlySchedule is the cron expression of the ingest-and-tag cycle.
	// Format: "minute hour day month weekday"
	// Default: "0 * * * *" (top of every hour)
	HourlySchedule string

	// DailySchedule is the cron expression of the digest job.
	// Default: "0 9 * * *" (09:00 in Timezone)
	DailySchedule string

	// Timezone is the IANA timezone both schedules are evaluated in.
	// Default: "Europe/Moscow"
	Timezone string

	// RunOnStartup triggers one hourly cycle immediately after the daemon
	// comes up, before the first scheduled tick.
	// Default: false
	RunOnStartup bool

	// JobTimeout bounds a single job run; the job context is cancelled when
	// it elapses.
	// Range: 1m-4h. Default: 30 minutes
	JobTimeout time.Duration

	// HealthPort serves /health and /health/ready.
	// Range: 1024-65535. Default: 9091
	HealthPort int

	// MetricsPort serves the Prometheus /metrics endpoint.
	// Range: 1024-65535. Default: 9090
	MetricsPort int
}

// DefaultConfig returns the production schedule: hourly ingest at the top of
// the hour and the digest at 09:00 Moscow time.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		HourlySchedule: "0 * * * *",
		DailySchedule:  "0 9 * * *",
		Timezone:       "Europe/Moscow",
		RunOnStartup:   false,
		JobTimeout:     30 * time.Minute,
		HealthPort:     9091,
		MetricsPort:    9090,
	}
}

// Validate checks every field and returns the collected errors, if any.
func (c *WorkerConfig) Validate() error {
	var errors []error

	if err := config.ValidateCronSchedule(c.HourlySchedule); err != nil {
		errors = append(errors, fmt.Errorf("hourly schedule: %w", err))
	}
	if err := config.ValidateCronSchedule(c.DailySchedule); err != nil {
		errors = append(errors, fmt.Errorf("daily schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.JobTimeout, 1*time.Minute, 4*time.Hour); err != nil {
		errors = append(errors, fmt.Errorf("job timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("metrics port: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}
	return nil
}

// Location resolves the configured timezone. Validate must have passed.
func (c *WorkerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadConfigFromEnv loads the worker configuration from environment
// variables with validation and fallback to defaults on failure.
//
// Environment variables:
//   - HOURLY_CRON_SCHEDULE: cron expression (default: "0 * * * *")
//   - DAILY_CRON_SCHEDULE: cron expression (default: "0 9 * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default: "Europe/Moscow")
//   - RUN_ON_STARTUP: boolean (default: false)
//   - JOB_TIMEOUT: duration string, e.g. "30m" (default: 30 minutes)
//   - WORKER_HEALTH_PORT: integer 1024-65535 (default: 9091)
//   - METRICS_PORT: integer 1024-65535 (default: 9090)
//
// Never returns an error: every invalid value is replaced by its default,
// logged, and counted on the config metrics.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	load := func(field string, result config.ConfigLoadResult) config.ConfigLoadResult {
		if result.FallbackApplied {
			fallbackApplied = true
			metrics.RecordValidationError(field)
			metrics.RecordFallback(field, "default")
			for _, warning := range result.Warnings {
				logger.Warn("Configuration fallback applied",
					slog.String("field", field),
					slog.String("warning", warning))
			}
		}
		return result
	}

	result := load("hourly_schedule", config.LoadEnvWithFallback("HOURLY_CRON_SCHEDULE", cfg.HourlySchedule, config.ValidateCronSchedule))
	cfg.HourlySchedule = result.Value.(string)

	result = load("daily_schedule", config.LoadEnvWithFallback("DAILY_CRON_SCHEDULE", cfg.DailySchedule, config.ValidateCronSchedule))
	cfg.DailySchedule = result.Value.(string)

	result = load("timezone", config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone))
	cfg.Timezone = result.Value.(string)

	result = load("run_on_startup", config.LoadEnvBool("RUN_ON_STARTUP", cfg.RunOnStartup))
	cfg.RunOnStartup = result.Value.(bool)

	result = load("job_timeout", config.LoadEnvDuration("JOB_TIMEOUT", cfg.JobTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 4*time.Hour)
	}))
	cfg.JobTimeout = result.Value.(time.Duration)

	result = load("health_port", config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	}))
	cfg.HealthPort = result.Value.(int)

	result = load("metrics_port", config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	}))
	cfg.MetricsPort = result.Value.(int)

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
