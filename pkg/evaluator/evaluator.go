// Package evaluator implements the filter evaluation engine.
//
// The evaluator receives a parsed Abstract Syntax Tree (AST) from the parser
// and walks it against an Environment of named values. It supports:
//   - Short-circuit evaluation of &, |, ternaries and if/then/else
//   - A condition counter with an optional ceiling
//   - Assignment, index assignment and list append
//   - Built-in function dispatch with per-evaluation memoization
//   - Cancellation via context.Context
//
// # Example
//
//	ev := evaluator.New(evaluator.WithConditionLimit(1000))
//	res, err := ev.Eval(ctx, expr, vars)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Matched(), res.Conditions)
//
// # Concurrency
//
// An Evaluator is safe for concurrent use once built. All per-call state
// lives in the call; the Environment passed to Eval is not synchronized.
package evaluator

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/functions"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/variables"
)

// DefaultFunctionCacheSize bounds the per-evaluation function-result cache.
const DefaultFunctionCacheSize = 1000

// Environment is the variable store a filter reads and assigns. Names
// are lower-case. *variables.Holder implements it.
type Environment interface {
	// Get returns the value of name. The error reports host failures,
	// such as a lazy value that could not be computed.
	Get(ctx context.Context, name string) (types.Value, bool, error)
	// Set stores a value under name.
	Set(name string, v types.Value)
	// Has reports whether name is set.
	Has(name string) bool
}

// Result is the outcome of one evaluation.
type Result struct {
	// Value is the value of the last statement.
	Value types.Value
	// Conditions is the number of conditions consumed. It is filled in
	// even when evaluation fails.
	Conditions uint64
}

// Matched reports whether the filter matched.
func (r Result) Matched() bool {
	return r.Value.ToBool()
}

// Evaluator evaluates filters against an Environment.
type Evaluator struct {
	opts     EvalOptions
	logger   *slog.Logger
	registry *variables.Registry
	regexes  *RegexCache
	handlers map[functions.ID]Handler
}

// EvalOptions configures evaluator behavior.
type EvalOptions struct {
	// ConditionLimit fails evaluation once more conditions than this are
	// consumed. Zero means unlimited.
	ConditionLimit uint64
	// FunctionCacheSize bounds the per-evaluation function-result cache.
	// The cache is cleared entirely when it grows past this size.
	// Defaults to DefaultFunctionCacheSize; zero or less disables memoization.
	FunctionCacheSize int
	// Registry lists built-in, deprecated and disabled variables.
	// Defaults to variables.DefaultRegistry().
	Registry *variables.Registry
	// RegexCache holds compiled patterns. Defaults to a process-wide cache.
	RegexCache *RegexCache
	// RegexTimeout bounds a single regex match. Only used when no
	// RegexCache is given.
	RegexTimeout time.Duration
	// Debug enables debug logging.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
	// Handlers overrides built-in function implementations.
	Handlers map[functions.ID]Handler
}

// New creates a new Evaluator.
func New(opts ...EvalOption) *Evaluator {
	options := EvalOptions{
		FunctionCacheSize: DefaultFunctionCacheSize,
	}

	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Registry == nil {
		options.Registry = variables.DefaultRegistry()
	}

	regexes := options.RegexCache
	if regexes == nil {
		if options.RegexTimeout > 0 {
			regexes = NewRegexCache(DefaultRegexCacheSize, options.RegexTimeout)
		} else {
			regexes = defaultRegexCache
		}
	}

	handlers := maps.Clone(builtinHandlers)
	for id, h := range options.Handlers {
		if id.Valid() && h != nil {
			handlers[id] = h
		}
	}

	return &Evaluator{
		opts:     options,
		logger:   options.Logger,
		registry: options.Registry,
		regexes:  regexes,
		handlers: handlers,
	}
}

// Registry returns the variable registry in use.
func (e *Evaluator) Registry() *variables.Registry {
	return e.registry
}

// Eval evaluates expr against env. A nil env is treated as empty; an empty
// expression evaluates to Null.
//
// Filter errors are returned as *types.Error. Failures of the host, such
// as lazy values that could not be resolved or a cancelled ctx, are
// returned as they are. An inconsistent AST panics with
// *types.InternalError.
func (e *Evaluator) Eval(ctx context.Context, expr *types.Expression, env Environment) (Result, error) {
	if env == nil {
		env = variables.NewHolder(nil)
	}
	if expr == nil || expr.IsEmpty() {
		return Result{Value: types.NullValue}, nil
	}

	s := newState(ctx, env, e.opts.ConditionLimit, e.opts.FunctionCacheSize)
	v, err := e.evalNode(s, expr.AST())
	res := Result{Value: v, Conditions: s.conditions}
	if err != nil {
		res.Value = types.NullValue
		return res, err
	}
	return res, nil
}

// EvalOption configures evaluation behavior.
type EvalOption func(*EvalOptions)

// WithConditionLimit sets the condition ceiling. Zero means unlimited.
func WithConditionLimit(limit uint64) EvalOption {
	return func(opts *EvalOptions) {
		opts.ConditionLimit = limit
	}
}

// WithFunctionCacheSize sets the size of the per-evaluation function
// cache. A negative size disables memoization.
func WithFunctionCacheSize(size int) EvalOption {
	return func(opts *EvalOptions) {
		opts.FunctionCacheSize = size
	}
}

// WithRegistry sets the variable registry.
func WithRegistry(r *variables.Registry) EvalOption {
	return func(opts *EvalOptions) {
		opts.Registry = r
	}
}

// WithRegexCache shares a compiled-pattern cache between evaluators.
func WithRegexCache(c *RegexCache) EvalOption {
	return func(opts *EvalOptions) {
		opts.RegexCache = c
	}
}

// WithRegexTimeout bounds each regex match.
func WithRegexTimeout(d time.Duration) EvalOption {
	return func(opts *EvalOptions) {
		opts.RegexTimeout = d
	}
}

// WithDebug enables or disables debug logging.
func WithDebug(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Debug = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(opts *EvalOptions) {
		opts.Logger = logger
	}
}

// WithHandler replaces the implementation of a built-in function. The
// arity contract and purity of the function are unchanged.
//
// Example:
//
//	evaluator.New(evaluator.WithHandler(functions.Lcase, func(ctx context.Context, c *evaluator.Call) (types.Value, error) {
//	    return types.NewString(strings.ToLower(c.Arg(0).ToString())), nil
//	}))
func WithHandler(id functions.ID, h Handler) EvalOption {
	return func(opts *EvalOptions) {
		if opts.Handlers == nil {
			opts.Handlers = make(map[functions.ID]Handler)
		}
		opts.Handlers[id] = h
	}
}
