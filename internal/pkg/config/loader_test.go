package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* ───────── LoadEnvWithFallback ───────── */

func TestLoadEnvWithFallback_UnsetUsesDefault(t *testing.T) {
	result := LoadEnvWithFallback("TEST_SCHEDULE", "0 9 * * *", ValidateCronSchedule)

	assert.Equal(t, "0 9 * * *", result.Value.(string))
	assert.False(t, result.FallbackApplied)
	assert.Empty(t, result.Warnings)
}

func TestLoadEnvWithFallback_ValidValue(t *testing.T) {
	t.Setenv("TEST_SCHEDULE", "30 5 * * *")

	result := LoadEnvWithFallback("TEST_SCHEDULE", "0 9 * * *", ValidateCronSchedule)

	assert.Equal(t, "30 5 * * *", result.Value.(string))
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvWithFallback_InvalidValueFallsBack(t *testing.T) {
	t.Setenv("TEST_SCHEDULE", "not a schedule")

	result := LoadEnvWithFallback("TEST_SCHEDULE", "0 9 * * *", ValidateCronSchedule)

	assert.Equal(t, "0 9 * * *", result.Value.(string))
	assert.True(t, result.FallbackApplied)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "TEST_SCHEDULE")
	assert.Contains(t, result.Warnings[0], "falling back to default")
}

func TestLoadEnvWithFallback_NilValidatorAcceptsAnything(t *testing.T) {
	t.Setenv("TEST_RAW", "whatever")

	result := LoadEnvWithFallback("TEST_RAW", "default", nil)

	assert.Equal(t, "whatever", result.Value.(string))
	assert.False(t, result.FallbackApplied)
}

/* ───────── LoadEnvDuration ───────── */

func TestLoadEnvDuration(t *testing.T) {
	positive := func(d time.Duration) error { return ValidateDuration(d, time.Second, time.Hour) }

	tests := []struct {
		name         string
		env          string
		wantValue    time.Duration
		wantFallback bool
	}{
		{name: "unset uses default", env: "", wantValue: 30 * time.Minute, wantFallback: false},
		{name: "valid duration", env: "45s", wantValue: 45 * time.Second, wantFallback: false},
		{name: "unparseable falls back", env: "yesterday", wantValue: 30 * time.Minute, wantFallback: true},
		{name: "out of range falls back", env: "5h", wantValue: 30 * time.Minute, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				t.Setenv("TEST_TIMEOUT", tt.env)
			}

			result := LoadEnvDuration("TEST_TIMEOUT", 30*time.Minute, positive)

			assert.Equal(t, tt.wantValue, result.Value.(time.Duration))
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
		})
	}
}

/* ───────── LoadEnvInt ───────── */

func TestLoadEnvInt(t *testing.T) {
	port := func(v int) error { return ValidateIntRange(v, 1024, 65535) }

	tests := []struct {
		name         string
		env          string
		wantValue    int
		wantFallback bool
	}{
		{name: "unset uses default", env: "", wantValue: 9090, wantFallback: false},
		{name: "valid integer", env: "9091", wantValue: 9091, wantFallback: false},
		{name: "not an integer falls back", env: "ninety", wantValue: 9090, wantFallback: true},
		{name: "out of range falls back", env: "80", wantValue: 9090, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				t.Setenv("TEST_PORT", tt.env)
			}

			result := LoadEnvInt("TEST_PORT", 9090, port)

			assert.Equal(t, tt.wantValue, result.Value.(int))
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
		})
	}
}

/* ───────── LoadEnvBool ───────── */

func TestLoadEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		env          string
		wantValue    bool
		wantFallback bool
	}{
		{name: "unset uses default", env: "", wantValue: false, wantFallback: false},
		{name: "true", env: "true", wantValue: true, wantFallback: false},
		{name: "numeric true", env: "1", wantValue: true, wantFallback: false},
		{name: "false", env: "false", wantValue: false, wantFallback: false},
		{name: "garbage falls back", env: "yes", wantValue: false, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				t.Setenv("TEST_FLAG", tt.env)
			}

			result := LoadEnvBool("TEST_FLAG", false)

			assert.Equal(t, tt.wantValue, result.Value.(bool))
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
		})
	}
}
