package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartJob opens a span covering one scheduled job run ("hourly", "daily").
// Close it with EndJob so the outcome lands on the span status.
//
// Example usage:
//
//	ctx, span := tracing.StartJob(ctx, "hourly")
//	err := runHourly(ctx)
//	tracing.EndJob(span, err)
func StartJob(ctx context.Context, job string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "job "+job,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("pipeline.job", job)),
	)
}

// StartStage opens a child span for one pipeline stage inside a job
// ("fetch", "relevance", "classify", "summarize", "deliver").
func StartStage(ctx context.Context, stage string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "stage "+stage,
		trace.WithAttributes(attribute.String("pipeline.stage", stage)),
	)
}

// EndJob finalizes a job or stage span with its outcome.
func EndJob(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
