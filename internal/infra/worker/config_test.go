package worker

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// globalTestMetrics is a shared metrics instance: promauto registers on the
// default registry, so NewWorkerMetrics can only run once per process.
var globalTestMetrics = NewWorkerMetrics()

/* ─── defaults ─── */

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "0 * * * *", cfg.HourlySchedule)
	assert.Equal(t, "0 9 * * *", cfg.DailySchedule)
	assert.Equal(t, "Europe/Moscow", cfg.Timezone)
	assert.False(t, cfg.RunOnStartup)
	assert.Equal(t, 30*time.Minute, cfg.JobTimeout)
	assert.Equal(t, 9091, cfg.HealthPort)
	assert.Equal(t, 9090, cfg.MetricsPort)

	assert.NoError(t, cfg.Validate())
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "Europe/Moscow", cfg.Location().String())

	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, cfg.Location())
}

/* ─── validation ─── */

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*WorkerConfig)
		field  string
	}{
		{"invalid hourly schedule", func(c *WorkerConfig) { c.HourlySchedule = "not a cron" }, "hourly schedule"},
		{"invalid daily schedule", func(c *WorkerConfig) { c.DailySchedule = "61 * * * *" }, "daily schedule"},
		{"invalid timezone", func(c *WorkerConfig) { c.Timezone = "Mars/Olympus" }, "timezone"},
		{"timeout too short", func(c *WorkerConfig) { c.JobTimeout = 30 * time.Second }, "job timeout"},
		{"timeout too long", func(c *WorkerConfig) { c.JobTimeout = 5 * time.Hour }, "job timeout"},
		{"privileged health port", func(c *WorkerConfig) { c.HealthPort = 80 }, "health port"},
		{"metrics port out of range", func(c *WorkerConfig) { c.MetricsPort = 70000 }, "metrics port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HourlySchedule = "garbage"
	cfg.Timezone = "garbage"
	cfg.HealthPort = 1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hourly schedule")
	assert.Contains(t, err.Error(), "timezone")
	assert.Contains(t, err.Error(), "health port")
}

/* ─── env loading ─── */

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("HOURLY_CRON_SCHEDULE", "*/30 * * * *")
	t.Setenv("DAILY_CRON_SCHEDULE", "15 8 * * *")
	t.Setenv("WORKER_TIMEZONE", "UTC")
	t.Setenv("RUN_ON_STARTUP", "true")
	t.Setenv("JOB_TIMEOUT", "45m")
	t.Setenv("WORKER_HEALTH_PORT", "8091")
	t.Setenv("METRICS_PORT", "8090")

	cfg, err := LoadConfigFromEnv(slog.Default(), globalTestMetrics)
	require.NoError(t, err)

	assert.Equal(t, "*/30 * * * *", cfg.HourlySchedule)
	assert.Equal(t, "15 8 * * *", cfg.DailySchedule)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.True(t, cfg.RunOnStartup)
	assert.Equal(t, 45*time.Minute, cfg.JobTimeout)
	assert.Equal(t, 8091, cfg.HealthPort)
	assert.Equal(t, 8090, cfg.MetricsPort)
}

func TestLoadConfigFromEnv_MissingEnvUsesDefaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(slog.Default(), globalTestMetrics)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoadConfigFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("HOURLY_CRON_SCHEDULE", "every hour please")
	t.Setenv("WORKER_TIMEZONE", "Mars/Olympus")
	t.Setenv("JOB_TIMEOUT", "10s")
	t.Setenv("WORKER_HEALTH_PORT", "80")

	cfg, err := LoadConfigFromEnv(slog.Default(), globalTestMetrics)
	require.NoError(t, err)

	defaults := DefaultConfig()
	assert.Equal(t, defaults.HourlySchedule, cfg.HourlySchedule)
	assert.Equal(t, defaults.Timezone, cfg.Timezone)
	assert.Equal(t, defaults.JobTimeout, cfg.JobTimeout)
	assert.Equal(t, defaults.HealthPort, cfg.HealthPort)
	assert.NoError(t, cfg.Validate())
}
