package abusefilter_test

// Run all benchmarks:
//
//	go test -bench=. -benchmem .
//
// Run specific category:
//
//	go test -bench=BenchmarkParse -benchmem .
//	go test -bench=BenchmarkEval -benchmem .

import (
	"context"
	"fmt"
	"strings"
	"testing"

	abusefilter "github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/cache"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/evaluator"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/parser"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/variables"
)

const (
	simpleFilter = `user_editcount < 10 & added_lines irlike "casino"`

	typicalFilter = `
/* Spam links from new accounts */
user_editcount < 50 &
!(user_groups contains "autoconfirmed") &
(
	ccnorm(added_lines) contains ccnorm("casino") |
	rcount("https?://", added_lines) > 3 |
	contains_any(lcase(added_lines), "viagra", "poker", "payday")
) &
!ip_in_ranges(user_name, "10.0.0.0/8", "192.168.0.0/16")`

	assignmentFilter = `
links := get_matches("https?://([^/\\s]+)", added_lines);
domain := links[1];
set_var("short", length(domain) < 6);
if short then domain rlike "^\\w+\\.\\w{2}$" else false end`
)

func benchVars(lines int) map[string]any {
	added := make([]string, lines)
	for i := range added {
		added[i] = fmt.Sprintf("line %d with a link https://ex%d.example.org/page and some text", i, i)
	}
	return map[string]any{
		"user_name":      "198.51.100.23",
		"user_editcount": 3,
		"user_groups":    []string{"*", "user"},
		"added_lines":    strings.Join(added, "\n"),
	}
}

func mustParse(source string) *types.Expression {
	expr, err := parser.Parse(source)
	if err != nil {
		panic(fmt.Sprintf("mustParse(%q): %v", source, err))
	}
	return expr
}

// sharedEval is safe for concurrent use.
var sharedEval = evaluator.New()

func runEval(b *testing.B, ev *evaluator.Evaluator, expr *types.Expression, vars map[string]any) {
	b.Helper()
	env, err := variables.FromMap(vars)
	if err != nil {
		b.Fatal(err)
	}
	if _, err := ev.Eval(context.Background(), expr, env); err != nil {
		b.Fatal(err)
	}
}

// ---------------------------------------------------------------------------
// Parser benchmarks
// ---------------------------------------------------------------------------

func BenchmarkParseSimple(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := parser.Parse(simpleFilter); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParseTypical(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := parser.Parse(typicalFilter); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParseAssignments(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := parser.Parse(assignmentFilter); err != nil {
			b.Fatal(err)
		}
	}
}

// ---------------------------------------------------------------------------
// Evaluation
// ---------------------------------------------------------------------------

func BenchmarkEvalSimple(b *testing.B) {
	expr := mustParse(simpleFilter)
	vars := benchVars(5)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runEval(b, sharedEval, expr, vars)
	}
}

func BenchmarkEvalTypical_Small(b *testing.B) {
	expr := mustParse(typicalFilter)
	vars := benchVars(5)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runEval(b, sharedEval, expr, vars)
	}
}

func BenchmarkEvalTypical_Large(b *testing.B) {
	expr := mustParse(typicalFilter)
	vars := benchVars(500)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runEval(b, sharedEval, expr, vars)
	}
}

func BenchmarkEvalAssignments(b *testing.B) {
	expr := mustParse(assignmentFilter)
	vars := benchVars(5)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runEval(b, sharedEval, expr, vars)
	}
}

func BenchmarkEvalNoFunctionCache(b *testing.B) {
	ev := evaluator.New(evaluator.WithFunctionCacheSize(0))
	expr := mustParse(`ccnorm(added_lines) contains "A" | ccnorm(added_lines) contains "B" | ccnorm(added_lines) contains "C"`)
	vars := benchVars(50)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runEval(b, ev, expr, vars)
	}
}

func BenchmarkEvalFunctionCache(b *testing.B) {
	expr := mustParse(`ccnorm(added_lines) contains "A" | ccnorm(added_lines) contains "B" | ccnorm(added_lines) contains "C"`)
	vars := benchVars(50)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runEval(b, sharedEval, expr, vars)
	}
}

// ---------------------------------------------------------------------------
// Engine
// ---------------------------------------------------------------------------

func BenchmarkEngineCachedCompile(b *testing.B) {
	engine := abusefilter.NewEngine()
	defer engine.Close()
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Compile(ctx, typicalFilter); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEngineStoreCompile(b *testing.B) {
	store, err := cache.NewSQLiteStore(":memory:")
	if err != nil {
		b.Fatal(err)
	}
	engine := abusefilter.NewEngine(abusefilter.WithStore(store), abusefilter.WithCacheSize(1))
	defer engine.Close()
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		source := simpleFilter
		if i%2 == 1 {
			source = typicalFilter
		}
		if _, err := engine.Compile(ctx, source); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEngineParallel(b *testing.B) {
	engine := abusefilter.NewEngine(abusefilter.WithConditionLimit(1000))
	defer engine.Close()
	vars := benchVars(20)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			env, err := variables.FromMap(vars)
			if err != nil {
				b.Error(err)
				return
			}
			if _, err := engine.Evaluate(context.Background(), typicalFilter, env); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
