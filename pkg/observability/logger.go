// Package observability provides logging, metrics and tracing for the
// filter engine.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

// EnrichLogger adds the filter hash to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, hash)
//	LogEvaluation(enriched, evalID, matched, conditions, ms)
func EnrichLogger(logger *slog.Logger, filterHash string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("filter_hash", filterHash))
}

// LogParseError logs a filter that failed to parse.
func LogParseError(logger *slog.Logger, filterHash string, err error) {
	if logger == nil {
		return
	}
	attrs := []any{
		slog.String("filter_hash", filterHash),
		slog.String("error", err.Error()),
	}
	if fe, ok := types.AsError(err); ok {
		attrs = append(attrs,
			slog.String("error_kind", string(fe.Kind)),
			slog.Int("position", fe.Position),
		)
	}
	logger.Warn("filter parse failed", attrs...)
}

// LogEvaluation logs a completed evaluation.
func LogEvaluation(logger *slog.Logger, evalID string, matched bool, conditions uint64, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("filter evaluated",
		slog.String("eval_id", evalID),
		slog.Bool("matched", matched),
		slog.Uint64("conditions", conditions),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogEvaluationError logs a failed evaluation.
func LogEvaluationError(logger *slog.Logger, evalID string, err error, conditions uint64) {
	if logger == nil {
		return
	}
	logger.Warn("filter evaluation failed",
		slog.String("eval_id", evalID),
		slog.String("error", err.Error()),
		slog.String("error_kind", string(types.KindOf(err))),
		slog.Uint64("conditions", conditions),
	)
}

// LogConditionLimit logs an evaluation stopped by the condition ceiling.
func LogConditionLimit(logger *slog.Logger, evalID string, limit, conditions uint64) {
	if logger == nil {
		return
	}
	logger.Warn("condition limit reached",
		slog.String("eval_id", evalID),
		slog.Uint64("limit", limit),
		slog.Uint64("conditions", conditions),
	)
}

// LogCacheStoreError logs a persistent cache failure (non-fatal).
func LogCacheStoreError(logger *slog.Logger, op string, key string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("ast cache store failed",
		slog.String("operation", op),
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// Milliseconds converts d to fractional milliseconds.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
