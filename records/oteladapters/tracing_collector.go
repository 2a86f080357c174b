package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yriy-kuskov/cakereact-core/records"
)

const (
	statusDescriptionError     = "operation failed"
	statusDescriptionCancelled = "operation cancelled"
	attrStatus                 = "status"
)

// TracingCollector implements records.TracingCollector with an OpenTelemetry tracer.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a TracingCollector. Take the tracer from your TracerProvider.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a span carrying attrs and returns the context holding it.
func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, records.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))

	return spanCtx, &SpanContext{span: span}
}

// FinishSpan sets attrs and the status on the span and ends it.
// Span contexts that were not started by a TracingCollector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx records.SpanContext, status string, attrs map[string]string) {
	sc, ok := spanCtx.(*SpanContext)
	if !ok {
		return
	}

	sc.span.SetAttributes(toAttributes(attrs)...)
	sc.SetStatus(status)
	sc.span.End()
}

var _ records.TracingCollector = (*TracingCollector)(nil)

// SpanContext wraps an OpenTelemetry span.
type SpanContext struct {
	span trace.Span
}

// SetStatus maps records.StatusSuccess to codes.Ok, records.StatusError and records.StatusCancelled
// to codes.Error. Other values are recorded as a "status" attribute.
func (s *SpanContext) SetStatus(status string) {
	switch status {
	case records.StatusSuccess:
		s.span.SetStatus(codes.Ok, "")
	case records.StatusError:
		s.span.SetStatus(codes.Error, statusDescriptionError)
	case records.StatusCancelled:
		s.span.SetStatus(codes.Error, statusDescriptionCancelled)
	default:
		s.span.SetAttributes(attribute.String(attrStatus, status))
	}
}

// AddAttribute adds a string attribute to the span.
func (s *SpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ records.SpanContext = (*SpanContext)(nil)

func toAttributes(labels map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for key, value := range labels {
		attrs = append(attrs, attribute.String(key, value))
	}

	return attrs
}
