package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

// ScopeName is the instrumentation scope of the engine's meter and tracer.
const ScopeName = "abusefilter"

// Metric names.
const (
	MetricParseCount     = "abusefilter.parse.count"
	MetricParseLatency   = "abusefilter.parse.latency_ms"
	MetricCacheHits      = "abusefilter.cache.hits"
	MetricCacheMisses    = "abusefilter.cache.misses"
	MetricEvalCount      = "abusefilter.eval.count"
	MetricEvalLatency    = "abusefilter.eval.latency_ms"
	MetricEvalConditions = "abusefilter.eval.conditions"
	MetricEvalErrors     = "abusefilter.eval.errors"
)

// MetricsRecorder records engine metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordParse records a parse of filter source that missed every cache.
	RecordParse(ctx context.Context, duration time.Duration, err error)

	// RecordCacheLookup records an AST cache lookup. tier is "memory",
	// "store" or "miss".
	RecordCacheLookup(ctx context.Context, tier string)

	// RecordEvaluation records a finished evaluation.
	RecordEvaluation(ctx context.Context, duration time.Duration, conditions uint64, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	parseCount     metric.Int64Counter
	parseLatency   metric.Float64Histogram
	cacheHits      metric.Int64Counter
	cacheMisses    metric.Int64Counter
	evalCount      metric.Int64Counter
	evalLatency    metric.Float64Histogram
	evalConditions metric.Int64Histogram
	evalErrors     metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.GetMeterProvider())
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates the instruments on a meter of provider.
func newOtelMetrics(provider metric.MeterProvider) (*otelMetrics, error) {
	meter := provider.Meter(ScopeName)

	parseCount, err := meter.Int64Counter(MetricParseCount,
		metric.WithDescription("Number of filter parses"),
	)
	if err != nil {
		return nil, err
	}

	parseLatency, err := meter.Float64Histogram(MetricParseLatency,
		metric.WithDescription("Filter parse latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(MetricCacheHits,
		metric.WithDescription("Number of AST cache hits"),
	)
	if err != nil {
		return nil, err
	}

	cacheMisses, err := meter.Int64Counter(MetricCacheMisses,
		metric.WithDescription("Number of AST cache misses"),
	)
	if err != nil {
		return nil, err
	}

	evalCount, err := meter.Int64Counter(MetricEvalCount,
		metric.WithDescription("Number of filter evaluations"),
	)
	if err != nil {
		return nil, err
	}

	evalLatency, err := meter.Float64Histogram(MetricEvalLatency,
		metric.WithDescription("Filter evaluation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	evalConditions, err := meter.Int64Histogram(MetricEvalConditions,
		metric.WithDescription("Conditions consumed per evaluation"),
		metric.WithUnit("{condition}"),
	)
	if err != nil {
		return nil, err
	}

	evalErrors, err := meter.Int64Counter(MetricEvalErrors,
		metric.WithDescription("Number of failed evaluations"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		parseCount:     parseCount,
		parseLatency:   parseLatency,
		cacheHits:      cacheHits,
		cacheMisses:    cacheMisses,
		evalCount:      evalCount,
		evalLatency:    evalLatency,
		evalConditions: evalConditions,
		evalErrors:     evalErrors,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// NewMetricsRecorderFor returns a MetricsRecorder bound to provider
// instead of the global one.
func NewMetricsRecorderFor(provider metric.MeterProvider) (MetricsRecorder, error) {
	m, err := newOtelMetrics(provider)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// errorKind labels an error for the error.kind attribute.
func errorKind(err error) string {
	if kind := types.KindOf(err); kind != "" {
		return string(kind)
	}
	return "host"
}

// RecordParse records a parse.
func (m *otelMetrics) RecordParse(ctx context.Context, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", err == nil),
	}
	m.parseCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.parseLatency.Record(ctx, Milliseconds(duration), metric.WithAttributes(attrs...))
}

// RecordCacheLookup records an AST cache lookup.
func (m *otelMetrics) RecordCacheLookup(ctx context.Context, tier string) {
	if tier == "miss" {
		m.cacheMisses.Add(ctx, 1)
		return
	}
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.tier", tier)))
}

// RecordEvaluation records an evaluation.
func (m *otelMetrics) RecordEvaluation(ctx context.Context, duration time.Duration, conditions uint64, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", err == nil),
	}
	m.evalCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.evalLatency.Record(ctx, Milliseconds(duration), metric.WithAttributes(attrs...))
	m.evalConditions.Record(ctx, int64(conditions))

	if err != nil {
		m.evalErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("error.kind", errorKind(err))))
	}
}
