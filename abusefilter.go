// Package abusefilter implements the AbuseFilter rule language: a small
// expression language used to decide whether an edit or other user action
// matches a filter.
//
// A filter is a sequence of statements separated by semicolons. It reads
// variables describing the action (user_name, added_lines, ...), compares
// them with operators and keyword predicates such as rlike or contains,
// calls built-in functions such as ccnorm or ip_in_range, and may assign
// its own variables. The value of the last statement decides the match.
//
// # Quick Start
//
//	// Simple evaluation
//	res, err := abusefilter.Eval(`user_editcount < 10 & added_lines rlike "casino"`, vars)
//	fmt.Println(res.Matched(), res.Conditions)
//
//	// Parse once, evaluate many times
//	expr := abusefilter.MustParse(`ccnorm(page_title) contains "VIAGRA"`)
//	res1, _ := evaluator.New().Eval(ctx, expr, env1)
//	res2, _ := evaluator.New().Eval(ctx, expr, env2)
//
//	// A long-lived engine with an AST cache, condition ceiling and metrics
//	engine := abusefilter.NewEngine(
//	    abusefilter.WithConditionLimit(1000),
//	    abusefilter.WithMetrics(observability.NewMetricsRecorder()),
//	)
//	defer engine.Close()
//	matched, err := engine.Matches(ctx, filterText, env)
//
// # Conditions
//
// Every comparison, keyword predicate and uncached function call consumes
// one condition. Branches skipped by short-circuiting consume nothing. An
// evaluator configured with a ceiling fails with a condlimit error once
// the count exceeds it.
//
// # Errors
//
// Filter errors are *types.Error values carrying a stable message key, a
// byte position and string parameters:
//
//	if fe, ok := types.AsError(err); ok {
//	    fmt.Println(fe.Kind, fe.Position, fe.Params)
//	    fmt.Println(fe.Snippet(source))
//	}
//
// # More Information
//
// For detailed documentation, see:
//   - Parser: pkg/parser
//   - Evaluator: pkg/evaluator
//   - Functions: pkg/functions
//   - Variables: pkg/variables
//   - Types: pkg/types
//   - Caching: pkg/cache
package abusefilter

import (
	"context"
	"fmt"
	"time"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/evaluator"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/parser"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/variables"
)

// DefaultEvalTimeout bounds evaluations started by Eval.
const DefaultEvalTimeout = 30 * time.Second

// Version returns the current version of the engine.
func Version() string {
	return "v0.1.0-dev"
}

// Parse parses filter source for repeated evaluation.
//
// The returned expression is immutable and safe for concurrent use.
//
// Example:
//
//	expr, err := abusefilter.Parse(`user_age < 3600 & "spam" in added_lines`)
//	if err != nil {
//	    log.Fatal(err)
//	}
func Parse(source string, opts ...parser.CompileOption) (*types.Expression, error) {
	return parser.Compile(source, opts...)
}

// MustParse is like Parse but panics if the source cannot be parsed.
// It simplifies safe initialization of global variables.
func MustParse(source string) *types.Expression {
	expr, err := Parse(source)
	if err != nil {
		panic(fmt.Sprintf("abusefilter: Parse(%q): %v", source, err))
	}
	return expr
}

// CheckSyntax reports the first syntax error in source, or nil.
func CheckSyntax(source string, opts ...parser.CompileOption) error {
	return parser.CheckSyntax(source, opts...)
}

// Evaluate parses source and evaluates it against env.
//
// For repeated evaluations of the same filter, use Parse or an Engine.
func Evaluate(ctx context.Context, source string, env evaluator.Environment, opts ...evaluator.EvalOption) (evaluator.Result, error) {
	expr, err := Parse(source)
	if err != nil {
		return evaluator.Result{Value: types.NullValue}, err
	}
	return evaluator.New(opts...).Eval(ctx, expr, env)
}

// Eval is a convenience function that parses and evaluates source against
// plain Go values in a single call, bounded by DefaultEvalTimeout.
//
// Example:
//
//	res, err := abusefilter.Eval(`lcase(user_name) == "mallory"`, map[string]any{
//	    "user_name": "Mallory",
//	})
func Eval(source string, vars map[string]any, opts ...evaluator.EvalOption) (evaluator.Result, error) {
	env, err := variables.FromMap(vars)
	if err != nil {
		return evaluator.Result{Value: types.NullValue}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultEvalTimeout)
	defer cancel()

	return Evaluate(ctx, source, env, opts...)
}
