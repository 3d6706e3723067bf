package abusefilter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/cache"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/config"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/evaluator"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/observability"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/parser"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/variables"
)

// Engine compiles and evaluates filters with a shared AST cache, a
// condition ceiling and optional metrics and tracing.
//
// An Engine is safe for concurrent use by multiple goroutines.
type Engine struct {
	eval     *evaluator.Evaluator
	astCache *cache.ASTCache
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
	logger   *slog.Logger
	limit    uint64
	parse    cache.ParseFunc
}

type engineOptions struct {
	cacheSize   int
	store       cache.Store
	maxBlobSize int64
	parseOpts   []parser.CompileOption
	evalOpts    []evaluator.EvalOption
	limit       uint64
	metrics     observability.MetricsRecorder
	spans       observability.SpanManager
	logger      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

// WithCacheSize sets the capacity of the in-memory AST cache.
func WithCacheSize(size int) EngineOption {
	return func(o *engineOptions) {
		o.cacheSize = size
	}
}

// WithStore backs the AST cache with a persistent store. The engine takes
// ownership of store and closes it in Close.
func WithStore(store cache.Store) EngineOption {
	return func(o *engineOptions) {
		o.store = store
	}
}

// WithMaxBlobSize skips persisting encoded ASTs larger than n bytes.
func WithMaxBlobSize(n int64) EngineOption {
	return func(o *engineOptions) {
		o.maxBlobSize = n
	}
}

// WithMaxDepth bounds parser nesting.
func WithMaxDepth(depth int) EngineOption {
	return func(o *engineOptions) {
		o.parseOpts = append(o.parseOpts, parser.WithMaxDepth(depth))
	}
}

// WithConditionLimit sets the condition ceiling. Zero means unlimited.
func WithConditionLimit(limit uint64) EngineOption {
	return func(o *engineOptions) {
		o.limit = limit
	}
}

// WithEvalOptions passes options through to the evaluator.
func WithEvalOptions(opts ...evaluator.EvalOption) EngineOption {
	return func(o *engineOptions) {
		o.evalOpts = append(o.evalOpts, opts...)
	}
}

// WithMetrics records parse, cache and evaluation metrics.
func WithMetrics(m observability.MetricsRecorder) EngineOption {
	return func(o *engineOptions) {
		o.metrics = m
	}
}

// WithTracing emits a span per compile and per evaluation.
func WithTracing(spans observability.SpanManager) EngineOption {
	return func(o *engineOptions) {
		o.spans = spans
	}
}

// WithLogger sets the logger for the engine, its cache and its evaluator.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...EngineOption) *Engine {
	o := engineOptions{
		cacheSize: config.DefaultASTCacheSize,
		metrics:   observability.NoopMetrics{},
		spans:     observability.NoopSpanManager{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = observability.NoopMetrics{}
	}
	if o.spans == nil {
		o.spans = observability.NoopSpanManager{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	cacheOpts := []cache.ASTCacheOption{
		cache.WithLogger(o.logger),
		cache.WithMaxBlobSize(o.maxBlobSize),
	}
	if o.store != nil {
		cacheOpts = append(cacheOpts, cache.WithStore(o.store))
	}

	evalOpts := append([]evaluator.EvalOption{
		evaluator.WithLogger(o.logger),
		evaluator.WithConditionLimit(o.limit),
	}, o.evalOpts...)

	parseOpts := o.parseOpts
	return &Engine{
		eval:     evaluator.New(evalOpts...),
		astCache: cache.NewASTCache(o.cacheSize, cacheOpts...),
		metrics:  o.metrics,
		spans:    o.spans,
		logger:   o.logger,
		limit:    o.limit,
		parse: func(source string) (*types.Expression, error) {
			return parser.Compile(source, parseOpts...)
		},
	}
}

// NewEngineFromConfig creates an Engine from a loaded configuration. A
// SQLite store is opened when cfg.ASTCache.SQLitePath is set.
func NewEngineFromConfig(cfg config.Config, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	registry := variables.DefaultRegistry().
		WithDisabled(cfg.Variables.Disabled...).
		WithDeprecated(cfg.Variables.Deprecated)

	base := []EngineOption{
		WithCacheSize(cfg.ASTCache.Size),
		WithMaxBlobSize(int64(cfg.ASTCache.MaxBlobSize)),
		WithMaxDepth(cfg.MaxDepth),
		WithConditionLimit(cfg.ConditionLimit),
		WithEvalOptions(
			evaluator.WithRegistry(registry),
			evaluator.WithFunctionCacheSize(cfg.FunctionCacheSize),
			evaluator.WithRegexCache(evaluator.NewRegexCache(cfg.Regex.CacheSize, cfg.Regex.MatchTimeout.Std())),
			evaluator.WithDebug(cfg.Debug),
		),
	}
	if cfg.Observability.Metrics {
		base = append(base, WithMetrics(observability.NewMetricsRecorder()))
	}
	if cfg.Observability.Tracing {
		base = append(base, WithTracing(observability.NewSpanManager()))
	}
	if cfg.ASTCache.SQLitePath != "" {
		store, err := cache.NewSQLiteStore(cfg.ASTCache.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open ast store: %w", err)
		}
		base = append(base, WithStore(store))
	}

	return NewEngine(append(base, opts...)...), nil
}

// Compile parses source, consulting the AST cache first.
func (e *Engine) Compile(ctx context.Context, source string) (*types.Expression, error) {
	hash := cache.Key(source)
	ctx, span := e.spans.StartParseSpan(ctx, hash)

	elapsed := observability.TimedOperation()
	expr, lookup, err := e.astCache.GetOrParse(ctx, source, e.parse)
	e.metrics.RecordCacheLookup(ctx, lookup.String())
	if !lookup.Hit() {
		e.metrics.RecordParse(ctx, elapsed(), err)
	}
	span.SetAttributes(attribute.String("cache.lookup", lookup.String()))

	if err != nil {
		observability.LogParseError(e.logger, hash, err)
	}
	e.spans.EndSpanWithError(span, err)
	return expr, err
}

// EvaluateExpression evaluates a compiled filter against env.
func (e *Engine) EvaluateExpression(ctx context.Context, expr *types.Expression, env evaluator.Environment) (evaluator.Result, error) {
	evalID := uuid.NewString()
	hash := ""
	if expr != nil {
		hash = cache.Key(expr.Source())
	}
	ctx, span := e.spans.StartEvalSpan(ctx, evalID, hash)

	elapsed := observability.TimedOperation()
	res, err := e.eval.Eval(ctx, expr, env)
	d := elapsed()

	e.metrics.RecordEvaluation(ctx, d, res.Conditions, err)
	e.spans.EndEvalSpan(span, err == nil && res.Matched(), res.Conditions, err)

	logger := observability.EnrichLogger(e.logger, hash)
	switch {
	case err == nil:
		observability.LogEvaluation(logger, evalID, res.Matched(), res.Conditions, observability.Milliseconds(d))
	case errors.Is(err, types.ErrConditionLimit):
		observability.LogConditionLimit(logger, evalID, e.limit, res.Conditions)
	default:
		observability.LogEvaluationError(logger, evalID, err, res.Conditions)
	}
	return res, err
}

// Evaluate compiles source and evaluates it against env.
func (e *Engine) Evaluate(ctx context.Context, source string, env evaluator.Environment) (evaluator.Result, error) {
	expr, err := e.Compile(ctx, source)
	if err != nil {
		return evaluator.Result{Value: types.NullValue}, err
	}
	return e.EvaluateExpression(ctx, expr, env)
}

// Matches reports whether source matches env.
func (e *Engine) Matches(ctx context.Context, source string, env evaluator.Environment) (bool, error) {
	res, err := e.Evaluate(ctx, source, env)
	if err != nil {
		return false, err
	}
	return res.Matched(), nil
}

// CheckSyntax reports the first syntax error in source, or nil. Valid
// filters are cached for later evaluation.
func (e *Engine) CheckSyntax(ctx context.Context, source string) error {
	_, err := e.Compile(ctx, source)
	return err
}

// Invalidate drops source from the AST cache and its store.
func (e *Engine) Invalidate(ctx context.Context, source string) error {
	return e.astCache.Invalidate(ctx, source)
}

// Stats returns AST cache counters.
func (e *Engine) Stats() cache.Stats {
	return e.astCache.Stats()
}

// Evaluator returns the underlying evaluator.
func (e *Engine) Evaluator() *evaluator.Evaluator {
	return e.eval
}

// Close releases the AST store, if any.
func (e *Engine) Close() error {
	return e.astCache.Close()
}
