package evaluator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/evaluator"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/parser"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/variables"
)

var fuzzVars = map[string]any{
	"user_name":      "192.0.2.7",
	"user_editcount": 12,
	"added_lines":    []string{"hello", "buy v1agra"},
	"page_title":     "Sandbox",
}

func FuzzEvaluator(f *testing.F) {
	seeds := []string{
		`user_editcount < 10 & added_lines irlike "spam"`,
		`ccnorm(added_lines) contains "VIAGRA"`,
		`get_matches("(\\d+)\\.(\\d+)", user_name)`,
		`a := [1, 2]; a[] := 3; a[5]`,
		`ip_in_ranges(user_name, "192.0.2.0/24", "bad")`,
		`substr(page_title, -3, 2) + 1 / 0`,
		`set_var("x", 1) + x`,
		`if user_editcount > 5 then "a" else b := 2 end; b`,
		`string(1.5) like "1*"`,
		``,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	ev := evaluator.New(
		evaluator.WithConditionLimit(1000),
		evaluator.WithRegexTimeout(50*time.Millisecond),
	)

	f.Fuzz(func(t *testing.T, input string) {
		expr, err := parser.Compile(input)
		if err != nil {
			return
		}
		vars, err := variables.FromMap(fuzzVars)
		if err != nil {
			t.Fatal(err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		_, err = ev.Eval(ctx, expr, vars)
		if err == nil || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		if _, ok := types.AsError(err); !ok {
			t.Fatalf("non-filter error for %q: %v", input, err)
		}
	})
}
