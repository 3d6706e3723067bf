package evaluator

import (
	"context"
	"strconv"

	"github.com/dlclark/regexp2"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/functions"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

// Handler implements a built-in function. Arity is checked before the
// handler runs.
type Handler func(ctx context.Context, call *Call) (types.Value, error)

// Call is one application of a built-in function.
type Call struct {
	Function functions.ID
	Args     []types.Value
	Position int

	eval  *Evaluator
	state *evalState
}

// Arg returns the i-th argument, or Null when absent.
func (c *Call) Arg(i int) types.Value {
	if i < 0 || i >= len(c.Args) {
		return types.NullValue
	}
	return c.Args[i]
}

// Error builds a filter error positioned at the call.
func (c *Call) Error(kind types.ErrorKind, params ...string) *types.Error {
	return types.NewError(kind, c.Position, params...)
}

// SetVariable assigns a user variable, as `name := v` would.
func (c *Call) SetVariable(name string, v types.Value) error {
	return c.eval.setVariable(c.state, name, v, c.Position)
}

// Regex compiles pattern through the evaluator's regex cache. Failures
// are reported as regexfailure errors.
func (c *Call) Regex(pattern string, opts regexp2.RegexOptions) (*regexp2.Regexp, error) {
	re, err := c.eval.regexes.Compile(pattern, opts)
	if err != nil {
		return nil, regexError(err, pattern, c.Position)
	}
	return re, nil
}

// builtinHandlers maps every function to its default implementation.
var builtinHandlers = map[functions.ID]Handler{
	functions.Lcase:             fnLcase,
	functions.Ucase:             fnUcase,
	functions.Length:            fnLength,
	functions.Strlen:            fnLength,
	functions.String:            fnCast(types.KindString),
	functions.Int:               fnCast(types.KindInt),
	functions.Float:             fnCast(types.KindFloat),
	functions.Bool:              fnCast(types.KindBool),
	functions.Norm:              fnNorm,
	functions.CCNorm:            fnCCNorm,
	functions.CCNormContainsAny: fnContains(true, true),
	functions.CCNormContainsAll: fnContains(false, true),
	functions.SpecialRatio:      fnSpecialRatio,
	functions.RmSpecials:        fnRmSpecials,
	functions.RmDoubles:         fnRmDoubles,
	functions.RmWhitespace:      fnRmWhitespace,
	functions.Count:             fnCount,
	functions.RCount:            fnRCount,
	functions.GetMatches:        fnGetMatches,
	functions.IPInRange:         fnIPInRange,
	functions.IPInRanges:        fnIPInRanges,
	functions.ContainsAny:       fnContains(true, false),
	functions.ContainsAll:       fnContains(false, false),
	functions.EqualsToAny:       fnEqualsToAny,
	functions.Substr:            fnSubstr,
	functions.Strpos:            fnStrpos,
	functions.StrReplace:        fnStrReplace,
	functions.StrReplaceRegexp:  fnStrReplaceRegexp,
	functions.Rescape:           fnRescape,
	functions.Set:               fnSetVar,
	functions.SetVar:            fnSetVar,
	functions.Sanitize:          fnSanitize,
}

// checkArity enforces the argument-count contract of a function.
func checkArity(id functions.ID, n int, position int) error {
	spec := id.Spec()
	if n < spec.MinArgs {
		kind := types.ErrNotEnoughArgs
		if spec.MinArgs == 1 {
			kind = types.ErrNoParams
		}
		return types.NewError(kind, position, spec.Name, strconv.Itoa(spec.MinArgs), strconv.Itoa(n))
	}
	if spec.MaxArgs != functions.Variadic && n > spec.MaxArgs {
		return types.NewError(types.ErrTooManyArgs, position, spec.Name, strconv.Itoa(spec.MaxArgs), strconv.Itoa(n))
	}
	return nil
}

// evalFunction evaluates a built-in call. Pure results are memoized per
// evaluation; every call that runs its handler costs one condition.
func (e *Evaluator) evalFunction(s *evalState, node *types.ASTNode) (types.Value, error) {
	id := node.Func
	if !id.Valid() {
		panic(types.Internalf(node.Position, "function call without a valid function"))
	}
	if err := checkArity(id, len(node.Children), node.Position); err != nil {
		return types.NullValue, err
	}

	args := make([]types.Value, len(node.Children))
	for i, c := range node.Children {
		v, err := e.evalNode(s, c)
		if err != nil {
			return types.NullValue, err
		}
		args[i] = v
	}

	memoize := id.Pure() && s.fnCache.enabled()
	var key string
	if memoize {
		key = s.fnCache.key(id, args)
		if v, ok := s.fnCache.get(key); ok {
			return v, nil
		}
	}

	if err := s.raiseConditions(1, node.Position); err != nil {
		return types.NullValue, err
	}

	handler := e.handlers[id]
	if handler == nil {
		panic(types.Internalf(node.Position, "no handler for function %s", id))
	}
	v, err := handler(s.ctx, &Call{Function: id, Args: args, Position: node.Position, eval: e, state: s})
	if err != nil {
		return types.NullValue, err
	}

	if memoize {
		s.fnCache.put(key, v)
	}
	return v, nil
}
