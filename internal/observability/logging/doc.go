// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the application.
//
// Key features:
//   - JSON and text output formats
//   - Job run tagging for scheduled pipeline runs
//   - Context-aware logging
//   - Configurable log levels
//
// Example usage:
//
//	import "github.com/ADEMSU/insight-flow-rss/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("worker started", slog.String("version", "1.0"))
//	}
//
//	func runScheduled(job func(context.Context) error) {
//	    logger := logging.WithJobRun(slog.Default(), "hourly", uuid.NewString())
//	    logger.Info("job started")
//	}
package logging
