package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "taskboard"

// StartTaskSpan starts a span for a task service operation.
// taskID may be empty for list and create.
func StartTaskSpan(ctx context.Context, op, taskID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("task.op", op)}
	if taskID != "" {
		attrs = append(attrs, attribute.String("task.id", taskID))
	}
	return otel.Tracer(tracerName).Start(ctx, "task."+op, trace.WithAttributes(attrs...))
}

// StartScanSpan starts a span for reading one scan page.
func StartScanSpan(ctx context.Context, page int, status string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "task.scan_page",
		trace.WithAttributes(
			attribute.Int("scan.page", page),
			attribute.String("scan.status", status),
		),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
