package parser

// Package parser implements the filter-language tokenizer and parser.
//
// The parser is a hand-written recursive descent parser with one function
// per precedence level. Assignments are recognised speculatively: the
// parser records a checkpoint into the token slice, tries the assignment
// form, and rolls back when it does not apply.
//
// # Architecture
//
// The parser consists of three main components:
//   - Lexer: Tokenizes the filter source into a slice of tokens
//   - Parser: Builds an Abstract Syntax Tree (AST) from the tokens
//   - Printer: Renders an AST back into source text
//
// # Example
//
//	expr, err := parser.Parse(`user_editcount < 10 & added_lines irlike "spam"`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ast := expr.AST()

import (
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

// DefaultMaxDepth is the default nesting limit for parentheses, list
// literals, indexes and function arguments.
const DefaultMaxDepth = 256

// Parse parses filter source and returns the Expression.
//
// Empty source, or source with only comments and separators, parses to an
// Expression with a nil AST.
//
// Example:
//
//	expr, err := parser.Parse("a := 1; a + 1")
//	if fe, ok := types.AsError(err); ok {
//	    fmt.Printf("%s at position %d\n", fe.Kind, fe.Position)
//	    return
//	}
func Parse(source string) (*types.Expression, error) {
	return Compile(source)
}

// Compile parses source with the given options.
func Compile(source string, opts ...CompileOption) (*types.Expression, error) {
	p, err := NewParser(source, opts...)
	if err != nil {
		return nil, err
	}
	return p.Parse()
}

// CheckSyntax reports the first syntax error in source, if any.
func CheckSyntax(source string, opts ...CompileOption) error {
	_, err := Compile(source, opts...)
	return err
}

// CompileOption configures compilation behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// MaxDepth limits nesting depth to bound recursion. Zero or negative
	// disables the limit.
	MaxDepth int
}

// WithMaxDepth sets the maximum parsing depth.
func WithMaxDepth(depth int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxDepth = depth
	}
}
