package parser_test

import (
	"testing"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/parser"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

func FuzzParser(f *testing.F) {
	seeds := []string{
		`user_editcount < 10 & added_lines irlike "spam"`,
		`a := [1, 2]; a[] := 3; a[0] := 4; a`,
		`if a then b else c end`,
		`a ? b : c`,
		`ccnorm_contains_any(added_lines, "x", "y",)`,
		`1fx + 101b + 17o + .5`,
		`/* comment */ "str\x41"`,
		`1 == 2 == 3`,
		`()`,
		`(`,
		`[`,
		`'`,
		`/*`,
		``,
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, input string) {
		expr, err := parser.Parse(input)
		if err != nil {
			if _, ok := types.AsError(err); !ok {
				t.Fatalf("non-filter error for %q: %v", input, err)
			}
			return
		}

		rendered := parser.Format(expr.AST())
		again, err := parser.Compile(rendered, parser.WithMaxDepth(0))
		if err != nil {
			t.Fatalf("rendering of %q does not parse: %q: %v", input, rendered, err)
		}
		if !expr.AST().Equal(again.AST()) {
			t.Fatalf("round trip changed tree for %q: %q", input, rendered)
		}
	})
}
