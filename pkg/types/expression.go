// Package types defines the core type system of the filter engine.
//
// This package contains type definitions for:
//   - Token: lexical units produced by the tokenizer
//   - ASTNode: Abstract Syntax Tree nodes
//   - Expression: parsed filters
//   - Value: runtime values and the operators over them
//   - Error types: positioned errors keyed by message
package types

// Expression represents a parsed filter.
//
// An Expression can be evaluated multiple times against different
// environments and is safe for concurrent use by multiple goroutines, since
// evaluation never mutates the tree. A nil AST denotes an empty filter.
type Expression struct {
	ast    *ASTNode
	source string
	arena  *NodeArena
}

// NewExpression creates a new Expression from an AST.
func NewExpression(ast *ASTNode, source string) *Expression {
	return &Expression{
		ast:    ast,
		source: source,
	}
}

// WithArena keeps the arena backing the AST nodes alive with the expression.
func (e *Expression) WithArena(arena *NodeArena) *Expression {
	e.arena = arena
	return e
}

// AST returns the Abstract Syntax Tree of the expression.
func (e *Expression) AST() *ASTNode {
	return e.ast
}

// Source returns the original source code of the expression.
func (e *Expression) Source() string {
	return e.source
}

// IsEmpty reports whether the filter contains no statements.
func (e *Expression) IsEmpty() bool {
	return e.ast == nil
}

// String returns a string representation of the expression.
func (e *Expression) String() string {
	return e.source
}
