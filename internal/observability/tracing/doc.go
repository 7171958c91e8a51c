// Package tracing provides OpenTelemetry spans for scheduled jobs and their
// pipeline stages.
//
// Every run of a scheduled job ("hourly", "daily") gets a root span, and the
// stages inside it (relevance, classify, summarize) open child spans. Span
// status carries the job outcome, so a trace backend shows failed runs
// directly.
//
// Example usage:
//
//	import "github.com/ADEMSU/insight-flow-rss/internal/observability/tracing"
//
//	func (s *Service) RunHourly(ctx context.Context) error {
//	    ctx, span := tracing.StartJob(ctx, "hourly")
//	    err := s.runHourly(ctx)
//	    tracing.EndJob(span, err)
//	    return err
//	}
package tracing
