package parser

import (
	"strconv"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/functions"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

// Parser implements a recursive descent parser for filter source.
// Each precedence level is a method that parses the next-lower level and
// loops while it sees an operator of its own level.
type Parser struct {
	tokens  []types.Token
	pos     int
	current types.Token
	source  string
	opts    CompileOptions
	arena   *types.NodeArena
	depth   int
}

// NewParser tokenizes source and returns a parser positioned on the first
// token. Tokenizer errors are returned directly.
func NewParser(source string, opts ...CompileOption) (*Parser, error) {
	options := CompileOptions{
		MaxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&options)
	}

	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}

	return &Parser{
		tokens:  tokens,
		current: tokens[0],
		source:  source,
		opts:    options,
		arena:   types.NewNodeArena(),
	}, nil
}

// Parse parses the entire filter and returns the Expression.
func (p *Parser) Parse() (*types.Expression, error) {
	node, err := p.parseStatements()
	if err != nil {
		return nil, err
	}

	if p.current.Type != types.TokenEOF {
		return nil, p.error(types.ErrUnexpectedAtEnd, string(p.current.Type))
	}

	return types.NewExpression(node, p.source).WithArena(p.arena), nil
}

// advance moves to the next token. The end-of-input token is sticky.
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.current = p.tokens[p.pos]
}

// peek returns the token after the current one.
func (p *Parser) peek() types.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

// checkpoint saves the parser position for a later restore.
func (p *Parser) checkpoint() int {
	return p.pos
}

// restore rewinds the parser to a checkpoint.
func (p *Parser) restore(cp int) {
	p.pos = cp
	p.current = p.tokens[cp]
}

// expect checks if the current token matches the expected type and value
// and advances.
func (p *Parser) expect(tt types.TokenType, value string) error {
	if !p.current.Is(tt, value) {
		return p.error(types.ErrExpectedNotFound, value, string(p.current.Type), p.current.Value)
	}
	p.advance()
	return nil
}

// error builds an error positioned on the current token.
func (p *Parser) error(kind types.ErrorKind, params ...string) error {
	return types.NewError(kind, p.current.Position, params...)
}

// unexpected reports the current token as unexpected.
func (p *Parser) unexpected() error {
	return p.error(types.ErrUnexpectedToken, string(p.current.Type), p.current.Value)
}

func (p *Parser) enter() error {
	p.depth++
	if p.opts.MaxDepth > 0 && p.depth > p.opts.MaxDepth {
		return p.error(types.ErrTooDeep, strconv.Itoa(p.opts.MaxDepth))
	}
	return nil
}

func (p *Parser) leave() {
	p.depth--
}

func (p *Parser) isBrace(value string) bool {
	return p.current.Is(types.TokenBrace, value)
}

func (p *Parser) isSquare(value string) bool {
	return p.current.Is(types.TokenSquareBracket, value)
}

func (p *Parser) isOperator(ops ...string) bool {
	if p.current.Type != types.TokenOperator {
		return false
	}
	for _, op := range ops {
		if p.current.Value == op {
			return true
		}
	}
	return false
}

// binary allocates a two-child operator node.
func (p *Parser) binary(nodeType types.NodeType, op types.Token, left, right *types.ASTNode) *types.ASTNode {
	node := p.arena.Alloc(nodeType, op.Position)
	node.Op = op.Value
	node.Children = []*types.ASTNode{left, right}
	return node
}

// parseStatements parses a semicolon-separated statement list. Empty
// statements are skipped; nil is returned when there are none. The list
// ends at end-of-input or a closing parenthesis.
func (p *Parser) parseStatements() (*types.ASTNode, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	position := p.current.Position
	var statements []*types.ASTNode
	for {
		for p.current.Type == types.TokenStatementSeparator {
			p.advance()
		}
		if p.current.Type == types.TokenEOF || p.isBrace(")") {
			break
		}
		stmt, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
		if p.current.Type != types.TokenStatementSeparator {
			break
		}
	}

	switch len(statements) {
	case 0:
		return nil, nil
	case 1:
		return statements[0], nil
	}
	node := p.arena.Alloc(types.NodeSemicolon, position)
	node.Children = statements
	return node, nil
}

// parseAssignment recognises name := value, name[index] := value and
// name[] := value. Anything else rolls back to a plain expression.
func (p *Parser) parseAssignment() (*types.ASTNode, error) {
	if p.current.Type != types.TokenID {
		return p.parseConditional()
	}

	name := p.current
	cp := p.checkpoint()
	p.advance()

	if p.isOperator(":=") {
		p.advance()
		value, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		node := p.arena.Alloc(types.NodeAssignment, name.Position)
		node.Name = name.Value
		node.Children = []*types.ASTNode{value}
		return node, nil
	}

	if p.isSquare("[") {
		p.advance()
		var index *types.ASTNode
		if !p.isSquare("]") {
			var err error
			if index, err = p.parseStatements(); err != nil {
				return nil, err
			}
			if !p.isSquare("]") {
				return nil, p.error(types.ErrExpectedNotFound, "]", string(p.current.Type), p.current.Value)
			}
		}
		p.advance()

		if p.isOperator(":=") {
			p.advance()
			value, err := p.parseAssignment()
			if err != nil {
				return nil, err
			}
			if index == nil {
				node := p.arena.Alloc(types.NodeArrayAppend, name.Position)
				node.Name = name.Value
				node.Children = []*types.ASTNode{value}
				return node, nil
			}
			node := p.arena.Alloc(types.NodeIndexAssignment, name.Position)
			node.Name = name.Value
			node.Children = []*types.ASTNode{index, value}
			return node, nil
		}
	}

	p.restore(cp)
	return p.parseConditional()
}

// parseConditional parses if/then/else/end and the ternary operator.
func (p *Parser) parseConditional() (*types.ASTNode, error) {
	if p.current.IsKeyword("if") {
		position := p.current.Position
		p.advance()

		cond, err := p.parseBoolOps()
		if err != nil {
			return nil, err
		}
		if err := p.expect(types.TokenKeyword, "then"); err != nil {
			return nil, err
		}
		then, err := p.parseBranch()
		if err != nil {
			return nil, err
		}

		children := []*types.ASTNode{cond, then}
		if p.current.IsKeyword("else") {
			p.advance()
			els, err := p.parseBranch()
			if err != nil {
				return nil, err
			}
			children = append(children, els)
		}
		if err := p.expect(types.TokenKeyword, "end"); err != nil {
			return nil, err
		}

		node := p.arena.Alloc(types.NodeConditional, position)
		node.Children = children
		return node, nil
	}

	cond, err := p.parseBoolOps()
	if err != nil {
		return nil, err
	}
	if !p.isOperator("?") {
		return cond, nil
	}

	position := p.current.Position
	p.advance()
	then, err := p.parseBranch()
	if err != nil {
		return nil, err
	}
	if err := p.expect(types.TokenOperator, ":"); err != nil {
		return nil, err
	}
	els, err := p.parseBranch()
	if err != nil {
		return nil, err
	}

	node := p.arena.Alloc(types.NodeConditional, position)
	node.Children = []*types.ASTNode{cond, then, els}
	return node, nil
}

// parseBranch parses a conditional branch, which may itself be a
// conditional.
func (p *Parser) parseBranch() (*types.ASTNode, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	return p.parseConditional()
}

// parseBoolOps parses left-associative chains of & | ^.
func (p *Parser) parseBoolOps() (*types.ASTNode, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.isOperator("&", "|", "^") {
		op := p.current
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = p.binary(types.NodeLogic, op, left, right)
	}
	return left, nil
}

// parseComparison parses at most one equality and one ordering
// comparison. A second comparison of the same class is rejected, so
// a == b < c parses while a == b == c and a < b < c do not.
func (p *Parser) parseComparison() (*types.ASTNode, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}

	var usedEquality, usedOrdering bool
	for p.current.Type == types.TokenOperator {
		_, isEquality := equalityOperators[p.current.Value]
		_, isOrdering := orderingOperators[p.current.Value]
		if !isEquality && !isOrdering {
			break
		}
		if (isEquality && usedEquality) || (isOrdering && usedOrdering) {
			return nil, p.unexpected()
		}
		usedEquality = usedEquality || isEquality
		usedOrdering = usedOrdering || isOrdering

		op := p.current
		p.advance()
		right, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		left = p.binary(types.NodeCompare, op, left, right)
	}
	return left, nil
}

// parseSum parses left-associative + and -.
func (p *Parser) parseSum() (*types.ASTNode, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for p.isOperator("+", "-") {
		op := p.current
		p.advance()
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = p.binary(types.NodeSumRel, op, left, right)
	}
	return left, nil
}

// parseProduct parses left-associative *, / and %.
func (p *Parser) parseProduct() (*types.ASTNode, error) {
	left, err := p.parsePow()
	if err != nil {
		return nil, err
	}
	for p.isOperator("*", "/", "%") {
		op := p.current
		p.advance()
		right, err := p.parsePow()
		if err != nil {
			return nil, err
		}
		left = p.binary(types.NodeMulRel, op, left, right)
	}
	return left, nil
}

// parsePow parses **, left-associative.
func (p *Parser) parsePow() (*types.ASTNode, error) {
	base, err := p.parseBoolInvert()
	if err != nil {
		return nil, err
	}
	for p.isOperator("**") {
		op := p.current
		p.advance()
		exp, err := p.parseBoolInvert()
		if err != nil {
			return nil, err
		}
		base = p.binary(types.NodePow, op, base, exp)
	}
	return base, nil
}

// parseBoolInvert parses a single prefix !.
func (p *Parser) parseBoolInvert() (*types.ASTNode, error) {
	if !p.isOperator("!") {
		return p.parseKeywordOperator()
	}
	position := p.current.Position
	p.advance()
	arg, err := p.parseKeywordOperator()
	if err != nil {
		return nil, err
	}
	node := p.arena.Alloc(types.NodeBoolInvert, position)
	node.Op = "!"
	node.Children = []*types.ASTNode{arg}
	return node, nil
}

// parseKeywordOperator parses a single infix keyword operator such as
// in, like or irlike.
func (p *Parser) parseKeywordOperator() (*types.ASTNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.current.Type != types.TokenKeyword {
		return left, nil
	}
	if _, ok := keywordOperators[p.current.Value]; !ok {
		return left, nil
	}

	op := p.current
	p.advance()
	right, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return p.binary(types.NodeKeywordOperator, op, left, right), nil
}

// parseUnary parses a single prefix + or -.
func (p *Parser) parseUnary() (*types.ASTNode, error) {
	if !p.isOperator("+", "-") {
		return p.parseArrayIndex()
	}
	op := p.current
	p.advance()
	arg, err := p.parseArrayIndex()
	if err != nil {
		return nil, err
	}
	node := p.arena.Alloc(types.NodeUnary, op.Position)
	node.Op = op.Value
	node.Children = []*types.ASTNode{arg}
	return node, nil
}

// parseArrayIndex parses chained list[index] suffixes.
func (p *Parser) parseArrayIndex() (*types.ASTNode, error) {
	list, err := p.parseBraces()
	if err != nil {
		return nil, err
	}
	for p.isSquare("[") {
		position := p.current.Position
		p.advance()
		index, err := p.parseStatements()
		if err != nil {
			return nil, err
		}
		if !p.isSquare("]") {
			return nil, p.error(types.ErrExpectedNotFound, "]", string(p.current.Type), p.current.Value)
		}
		if index == nil {
			return nil, p.unexpected()
		}
		p.advance()

		node := p.arena.Alloc(types.NodeArrayIndex, position)
		node.Children = []*types.ASTNode{list, index}
		list = node
	}
	return list, nil
}

// parseBraces parses a parenthesised statement list. Empty parentheses
// are rejected.
func (p *Parser) parseBraces() (*types.ASTNode, error) {
	if !p.isBrace("(") {
		return p.parseFunction()
	}
	if next := p.peek(); next.Is(types.TokenBrace, ")") {
		p.advance()
		return nil, p.unexpected()
	}
	p.advance()

	inner, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if !p.isBrace(")") {
		return nil, p.error(types.ErrExpectedNotFound, ")", string(p.current.Type), p.current.Value)
	}
	if inner == nil {
		return nil, p.unexpected()
	}
	p.advance()
	return inner, nil
}

// parseFunction parses a call to a built-in function. Function names are
// resolved here, so unknown functions fail at parse time.
func (p *Parser) parseFunction() (*types.ASTNode, error) {
	if p.current.Type != types.TokenID {
		return p.parseAtom()
	}

	id, known := functions.Lookup(p.current.Value)
	if !p.peek().Is(types.TokenBrace, "(") {
		if known {
			p.advance()
			return nil, p.error(types.ErrExpectedNotFound, "(", string(p.current.Type), p.current.Value)
		}
		return p.parseAtom()
	}
	if !known {
		return nil, p.error(types.ErrUnknownFunction, p.current.Value)
	}

	node := p.arena.Alloc(types.NodeFunctionCall, p.current.Position)
	node.Name = id.String()
	node.Func = id
	p.advance() // name
	p.advance() // (

	if !p.isBrace(")") {
		for {
			arg, err := p.parseStatements()
			if err != nil {
				return nil, err
			}
			if arg != nil {
				node.Children = append(node.Children, arg)
			} else if !p.isBrace(")") || len(node.Children) == 0 {
				return nil, p.unexpected()
			}
			if p.current.Type != types.TokenComma {
				break
			}
			p.advance()
		}
	}
	if err := p.expect(types.TokenBrace, ")"); err != nil {
		return nil, err
	}
	return node, nil
}

// parseAtom parses literals, identifiers and list literals.
func (p *Parser) parseAtom() (*types.ASTNode, error) {
	tok := p.current
	switch tok.Type {
	case types.TokenID, types.TokenString, types.TokenInt, types.TokenFloat:
		p.advance()
		return p.atom(tok), nil

	case types.TokenKeyword:
		switch tok.Value {
		case "true", "false", "null":
			p.advance()
			return p.atom(tok), nil
		}
		return nil, p.error(types.ErrUnrecognisedKeyword, tok.Value)

	case types.TokenSquareBracket:
		if tok.Value == "[" {
			return p.parseList()
		}
	}
	return nil, p.unexpected()
}

func (p *Parser) atom(tok types.Token) *types.ASTNode {
	node := p.arena.Alloc(types.NodeAtom, tok.Position)
	t := tok
	node.Token = &t
	return node
}

// parseList parses a list literal. A trailing comma is allowed.
func (p *Parser) parseList() (*types.ASTNode, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	node := p.arena.Alloc(types.NodeArrayDefinition, p.current.Position)
	p.advance() // [

	for !p.isSquare("]") {
		elem, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, elem)

		if p.current.Type == types.TokenComma {
			p.advance()
			continue
		}
		if !p.isSquare("]") {
			return nil, p.error(types.ErrExpectedNotFound, "]", string(p.current.Type), p.current.Value)
		}
	}
	p.advance()
	return node, nil
}
