package evaluator

import (
	"strconv"
	"strings"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

// evalNode evaluates an AST node.
func (e *Evaluator) evalNode(s *evalState, node *types.ASTNode) (types.Value, error) {
	// Check context cancellation
	select {
	case <-s.ctx.Done():
		return types.NullValue, s.ctx.Err()
	default:
	}

	if node == nil {
		panic(types.Internalf(-1, "nil node"))
	}

	// Debug logging
	if e.opts.Debug {
		e.logger.Debug("evaluating node",
			"type", node.Type,
			"position", node.Position,
			"conditions", s.conditions)
	}

	// Dispatch based on node type
	switch node.Type {
	case types.NodeSemicolon:
		return e.evalSemicolon(s, node)
	case types.NodeAssignment:
		return e.evalAssignment(s, node)
	case types.NodeIndexAssignment:
		return e.evalIndexAssignment(s, node)
	case types.NodeArrayAppend:
		return e.evalArrayAppend(s, node)
	case types.NodeConditional:
		return e.evalConditional(s, node)
	case types.NodeLogic:
		return e.evalLogic(s, node)
	case types.NodeCompare:
		return e.evalCompare(s, node)
	case types.NodeSumRel, types.NodeMulRel, types.NodePow:
		return e.evalArithmetic(s, node)
	case types.NodeBoolInvert:
		return e.evalBoolInvert(s, node)
	case types.NodeKeywordOperator:
		return e.evalKeyword(s, node)
	case types.NodeUnary:
		return e.evalUnary(s, node)
	case types.NodeArrayIndex:
		return e.evalArrayIndex(s, node)
	case types.NodeFunctionCall:
		return e.evalFunction(s, node)
	case types.NodeArrayDefinition:
		return e.evalArrayDefinition(s, node)
	case types.NodeAtom:
		return e.evalAtom(s, node)
	default:
		panic(types.Internalf(node.Position, "unknown node type %q", node.Type))
	}
}

// child returns the i-th child of node, panicking when the tree is
// malformed.
func child(node *types.ASTNode, i int) *types.ASTNode {
	c := node.Child(i)
	if c == nil {
		panic(types.Internalf(node.Position, "%s node is missing child %d", node.Type, i))
	}
	return c
}

// evalPair evaluates the two operands of a binary node, left first.
func (e *Evaluator) evalPair(s *evalState, node *types.ASTNode) (types.Value, types.Value, error) {
	left, err := e.evalNode(s, child(node, 0))
	if err != nil {
		return types.NullValue, types.NullValue, err
	}
	right, err := e.evalNode(s, child(node, 1))
	if err != nil {
		return types.NullValue, types.NullValue, err
	}
	return left, right, nil
}

// evalSemicolon evaluates every statement and returns the last value.
func (e *Evaluator) evalSemicolon(s *evalState, node *types.ASTNode) (types.Value, error) {
	result := types.NullValue
	for _, stmt := range node.Children {
		v, err := e.evalNode(s, stmt)
		if err != nil {
			return types.NullValue, err
		}
		result = v
	}
	return result, nil
}

// evalAssignment evaluates `name := value`.
func (e *Evaluator) evalAssignment(s *evalState, node *types.ASTNode) (types.Value, error) {
	v, err := e.evalNode(s, child(node, 0))
	if err != nil {
		return types.NullValue, err
	}
	if err := e.setVariable(s, node.Name, v, node.Position); err != nil {
		return types.NullValue, err
	}
	return v, nil
}

// targetList resolves the list an index assignment or append writes into.
// undefined is true when the name was only declared by a skipped branch;
// the write is then a no-op.
func (e *Evaluator) targetList(s *evalState, node *types.ASTNode) (list types.Value, undefined bool, err error) {
	name := strings.ToLower(node.Name)
	if s.isUndefined(name) {
		return types.NullValue, true, nil
	}
	list, err = e.lookupVar(s, name, node.Position)
	if err != nil {
		return types.NullValue, false, err
	}
	if !list.IsList() {
		return types.NullValue, false, types.NewError(types.ErrNotArray, node.Position, name)
	}
	return list, false, nil
}

// evalIndexAssignment evaluates `name[index] := value`. The index is
// evaluated and bounds-checked before the value.
func (e *Evaluator) evalIndexAssignment(s *evalState, node *types.ASTNode) (types.Value, error) {
	list, undefined, err := e.targetList(s, node)
	if err != nil {
		return types.NullValue, err
	}
	if undefined {
		if _, err := e.evalNode(s, child(node, 0)); err != nil {
			return types.NullValue, err
		}
		return e.evalNode(s, child(node, 1))
	}

	idx, err := e.evalNode(s, child(node, 0))
	if err != nil {
		return types.NullValue, err
	}
	offset, err := checkIndex(idx.ToInt(), list.Len(), node.Position)
	if err != nil {
		return types.NullValue, err
	}

	v, err := e.evalNode(s, child(node, 1))
	if err != nil {
		return types.NullValue, err
	}
	if err := e.setVariable(s, node.Name, list.WithIndex(offset, v), node.Position); err != nil {
		return types.NullValue, err
	}
	return v, nil
}

// evalArrayAppend evaluates `name[] := value`.
func (e *Evaluator) evalArrayAppend(s *evalState, node *types.ASTNode) (types.Value, error) {
	list, undefined, err := e.targetList(s, node)
	if err != nil {
		return types.NullValue, err
	}
	v, err := e.evalNode(s, child(node, 0))
	if err != nil || undefined {
		return v, err
	}
	if err := e.setVariable(s, node.Name, list.Append(v), node.Position); err != nil {
		return types.NullValue, err
	}
	return v, nil
}

// checkIndex validates a list offset.
func checkIndex(offset int64, length int, position int) (int, error) {
	if offset >= int64(length) {
		return 0, types.NewError(types.ErrOutOfBounds, position, types.FormatIndex(offset), strconv.Itoa(length))
	}
	if offset < 0 {
		return 0, types.NewError(types.ErrNegativeIndex, position, types.FormatIndex(offset))
	}
	return int(offset), nil
}

// evalConditional evaluates if/then/else and ternaries. The untaken branch
// is discarded, not evaluated.
func (e *Evaluator) evalConditional(s *evalState, node *types.ASTNode) (types.Value, error) {
	cond, err := e.evalNode(s, child(node, 0))
	if err != nil {
		return types.NullValue, err
	}
	then, otherwise := child(node, 1), node.Child(2)

	if cond.ToBool() {
		e.discard(s, otherwise)
		return e.evalNode(s, then)
	}
	e.discard(s, then)
	if otherwise == nil {
		return types.NullValue, nil
	}
	return e.evalNode(s, otherwise)
}

// evalLogic evaluates &, | and ^. The right operand of & and | is skipped
// when the left one decides the result.
func (e *Evaluator) evalLogic(s *evalState, node *types.ASTNode) (types.Value, error) {
	left, err := e.evalNode(s, child(node, 0))
	if err != nil {
		return types.NullValue, err
	}

	lb := left.ToBool()
	if (!lb && node.Op == "&") || (lb && node.Op == "|") {
		e.discard(s, child(node, 1))
		return types.NewBool(lb), nil
	}

	right, err := e.evalNode(s, child(node, 1))
	if err != nil {
		return types.NullValue, err
	}
	return types.BoolOp(left, right, node.Op), nil
}

// evalCompare evaluates a comparison; each costs one condition.
func (e *Evaluator) evalCompare(s *evalState, node *types.ASTNode) (types.Value, error) {
	left, right, err := e.evalPair(s, node)
	if err != nil {
		return types.NullValue, err
	}
	if err := s.raiseConditions(1, node.Position); err != nil {
		return types.NullValue, err
	}
	return types.CompareOp(left, right, node.Op), nil
}

// evalArithmetic evaluates +, -, *, /, % and **.
func (e *Evaluator) evalArithmetic(s *evalState, node *types.ASTNode) (types.Value, error) {
	left, right, err := e.evalPair(s, node)
	if err != nil {
		return types.NullValue, err
	}

	switch node.Type {
	case types.NodeSumRel:
		switch node.Op {
		case "+":
			return types.Sum(left, right), nil
		case "-":
			return types.Sub(left, right), nil
		}
	case types.NodeMulRel:
		return types.MulRel(left, right, node.Op, node.Position)
	case types.NodePow:
		return types.Pow(left, right), nil
	}
	panic(types.Internalf(node.Position, "invalid arithmetic operator %q", node.Op))
}

// evalBoolInvert evaluates `!x`.
func (e *Evaluator) evalBoolInvert(s *evalState, node *types.ASTNode) (types.Value, error) {
	v, err := e.evalNode(s, child(node, 0))
	if err != nil {
		return types.NullValue, err
	}
	return types.BoolInvert(v), nil
}

// evalUnary evaluates unary + and -.
func (e *Evaluator) evalUnary(s *evalState, node *types.ASTNode) (types.Value, error) {
	v, err := e.evalNode(s, child(node, 0))
	if err != nil {
		return types.NullValue, err
	}
	switch node.Op {
	case "-":
		return types.UnaryMinus(v), nil
	case "+":
		return types.UnaryPlus(v), nil
	}
	panic(types.Internalf(node.Position, "invalid unary operator %q", node.Op))
}

// evalArrayIndex evaluates `list[index]`.
func (e *Evaluator) evalArrayIndex(s *evalState, node *types.ASTNode) (types.Value, error) {
	base := child(node, 0)
	if base.Type == types.NodeAtom && base.Token != nil && base.Token.Type == types.TokenID &&
		s.isUndefined(strings.ToLower(base.Token.Value)) {
		if _, err := e.evalNode(s, child(node, 1)); err != nil {
			return types.NullValue, err
		}
		return types.NullValue, nil
	}

	list, err := e.evalNode(s, base)
	if err != nil {
		return types.NullValue, err
	}
	if !list.IsList() {
		return types.NullValue, types.NewError(types.ErrNotArray, node.Position)
	}

	idx, err := e.evalNode(s, child(node, 1))
	if err != nil {
		return types.NullValue, err
	}
	offset, err := checkIndex(idx.ToInt(), list.Len(), node.Position)
	if err != nil {
		return types.NullValue, err
	}
	return list.Index(offset), nil
}

// evalArrayDefinition evaluates a list literal.
func (e *Evaluator) evalArrayDefinition(s *evalState, node *types.ASTNode) (types.Value, error) {
	items := make([]types.Value, len(node.Children))
	for i, c := range node.Children {
		v, err := e.evalNode(s, c)
		if err != nil {
			return types.NullValue, err
		}
		items[i] = v
	}
	return types.NewList(items...), nil
}

// evalAtom evaluates literals and variable references.
func (e *Evaluator) evalAtom(s *evalState, node *types.ASTNode) (types.Value, error) {
	tok := node.Token
	if tok == nil {
		panic(types.Internalf(node.Position, "atom without token"))
	}
	if tok.Type == types.TokenID {
		return e.lookupVar(s, tok.Value, node.Position)
	}
	v, ok := types.ParseLiteral(*tok)
	if !ok {
		panic(types.Internalf(node.Position, "invalid atom token %s", tok))
	}
	return v, nil
}

// lookupVar resolves a variable. Deprecated names read their replacement,
// absent built-ins read as Null and names declared by skipped branches
// read as Null until assigned.
func (e *Evaluator) lookupVar(s *evalState, name string, position int) (types.Value, error) {
	name = strings.ToLower(name)
	if e.registry.IsDisabled(name) {
		return types.NullValue, types.NewError(types.ErrDisabledVar, position, name)
	}

	canonical, aliased := e.registry.Canonical(name)
	if aliased && e.opts.Debug {
		e.logger.Debug("deprecated variable", "name", name, "replacement", canonical)
	}

	v, ok, err := s.env.Get(s.ctx, canonical)
	if err != nil {
		return types.NullValue, err
	}
	if ok {
		return v, nil
	}
	if aliased {
		if v, ok, err := s.env.Get(s.ctx, name); err != nil || ok {
			return v, err
		}
	}

	if e.registry.IsBuiltin(canonical) {
		return types.NullValue, nil
	}
	if _, ok := s.discarded[canonical]; ok {
		return types.NullValue, nil
	}
	return types.NullValue, types.NewError(types.ErrUnrecognisedVar, position, name)
}

// setVariable writes a user variable. Reserved names cannot be written.
func (e *Evaluator) setVariable(s *evalState, name string, v types.Value, position int) error {
	name = strings.ToLower(name)
	if e.registry.IsReserved(name) {
		return types.NewError(types.ErrOverrideBuiltin, position, name)
	}
	s.env.Set(name, v)
	return nil
}

// discard skips a subtree. Variables it would have assigned and that are
// not yet set are declared, so later reads see Null instead of failing.
func (e *Evaluator) discard(s *evalState, node *types.ASTNode) {
	if node == nil {
		return
	}
	for _, name := range node.InnerAssignments() {
		name = strings.ToLower(name)
		if e.registry.IsReserved(name) || s.env.Has(name) {
			continue
		}
		s.declare(name)
	}
}
