// Package observability provides production-grade observability infrastructure
// including structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// This package centralizes observability concerns to enable:
//   - Tracing of scheduled jobs and their pipeline stages
//   - Structured logging with context propagation
//   - Prometheus metrics for monitoring
//   - SLO tracking for feed availability and digest delivery
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//   - slo: Service level objective gauges
//   - tracing: OpenTelemetry spans for jobs and stages
//
// Example usage:
//
//	import (
//	    "github.com/ADEMSU/insight-flow-rss/internal/observability/logging"
//	    "github.com/ADEMSU/insight-flow-rss/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("worker started")
//
//	    metrics.RecordFeedCrawl("example-source", time.Second, 40, 12)
//	}
package observability
