package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanParse    = "abusefilter.parse"
	SpanEvaluate = "abusefilter.evaluate"
)

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartParseSpan starts a span for compiling filter source.
	StartParseSpan(ctx context.Context, filterHash string) (context.Context, trace.Span)

	// StartEvalSpan starts a span for one evaluation.
	StartEvalSpan(ctx context.Context, evalID, filterHash string) (context.Context, trace.Span)

	// EndEvalSpan records the outcome of an evaluation and ends its span.
	EndEvalSpan(span trace.Span, matched bool, conditions uint64, err error)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return NewSpanManagerFor(otel.GetTracerProvider())
}

// NewSpanManagerFor returns a SpanManager bound to provider instead of the
// global one.
func NewSpanManagerFor(provider trace.TracerProvider) SpanManager {
	return &otelSpanManager{tracer: provider.Tracer(ScopeName)}
}

// StartParseSpan starts a span for compiling filter source.
func (m *otelSpanManager) StartParseSpan(ctx context.Context, filterHash string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, SpanParse,
		trace.WithAttributes(
			attribute.String("filter.hash", filterHash),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartEvalSpan starts a span for one evaluation.
func (m *otelSpanManager) StartEvalSpan(ctx context.Context, evalID, filterHash string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, SpanEvaluate,
		trace.WithAttributes(
			attribute.String("eval.id", evalID),
			attribute.String("filter.hash", filterHash),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndEvalSpan records the outcome of an evaluation and ends its span.
func (m *otelSpanManager) EndEvalSpan(span trace.Span, matched bool, conditions uint64, err error) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.Bool("eval.matched", matched),
		attribute.Int64("eval.conditions", int64(conditions)),
	)
	if err != nil {
		span.SetAttributes(attribute.String("error.kind", errorKind(err)))
	}
	m.EndSpanWithError(span, err)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
