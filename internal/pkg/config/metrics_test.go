package config

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// promauto registers on the default registry and panics on duplicates, so
// every test shares one instance.
var testMetrics = NewConfigMetrics("configtest")

func TestNewConfigMetrics(t *testing.T) {
	require.NotNil(t, testMetrics.LoadTimestamp)
	require.NotNil(t, testMetrics.ValidationErrorsTotal)
	require.NotNil(t, testMetrics.FallbacksTotal)
	require.NotNil(t, testMetrics.FallbackActive)
	assert.Equal(t, "configtest", testMetrics.componentName)
}

func TestRecordValidationError(t *testing.T) {
	before := testutil.ToFloat64(testMetrics.ValidationErrorsTotal.WithLabelValues("timezone"))

	testMetrics.RecordValidationError("timezone")

	after := testutil.ToFloat64(testMetrics.ValidationErrorsTotal.WithLabelValues("timezone"))
	assert.Equal(t, before+1, after)
}

func TestRecordFallback(t *testing.T) {
	before := testutil.ToFloat64(testMetrics.FallbacksTotal.WithLabelValues("job_timeout"))

	testMetrics.RecordFallback("job_timeout", "default")

	after := testutil.ToFloat64(testMetrics.FallbacksTotal.WithLabelValues("job_timeout"))
	assert.Equal(t, before+1, after)
}

func TestSetFallbackActive(t *testing.T) {
	testMetrics.SetFallbackActive("", true)
	assert.Equal(t, float64(1), testutil.ToFloat64(testMetrics.FallbackActive))

	testMetrics.SetFallbackActive("", false)
	assert.Equal(t, float64(0), testutil.ToFloat64(testMetrics.FallbackActive))
}

func TestRecordLoadTimestamp(t *testing.T) {
	testMetrics.RecordLoadTimestamp()
	assert.Greater(t, testutil.ToFloat64(testMetrics.LoadTimestamp), float64(0))
}
