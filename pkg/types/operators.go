package types

import (
	"math"
	"strconv"
	"strings"
)

// Sum adds two values. Strings concatenate, two lists concatenate, and
// everything else adds as floats.
func Sum(a, b Value) Value {
	switch {
	case a.kind == KindString || b.kind == KindString:
		return NewString(a.ToString() + b.ToString())
	case a.kind == KindList && b.kind == KindList:
		out := make([]Value, 0, len(a.list)+len(b.list))
		out = append(out, a.list...)
		return Value{kind: KindList, list: append(out, b.list...)}
	}
	return NewFloat(a.ToFloat() + b.ToFloat())
}

// Sub subtracts b from a as floats.
func Sub(a, b Value) Value {
	return NewFloat(a.ToFloat() - b.ToFloat())
}

// Pow raises base to exp as floats.
func Pow(base, exp Value) Value {
	return NewFloat(math.Pow(base.ToFloat(), exp.ToFloat()))
}

// roundTripsThroughFloat reports whether the string form of v survives a
// conversion to float and back.
func roundTripsThroughFloat(v Value) bool {
	s := v.ToString()
	return FormatFloat(StringToFloat(s)) == s
}

// MulRel applies *, / or % to a and b. Integer arithmetic is used unless
// either operand is a Float or does not round-trip through float; % always
// works on the integer parts. Division or modulo by zero fails with
// ErrDivideByZero at position.
func MulRel(a, b Value, op string, position int) (Value, error) {
	if op != "*" && op != "/" && op != "%" {
		panic(Internalf(position, "invalid multiplication-type operator %q", op))
	}
	if a.kind != KindFloat && b.kind != KindFloat &&
		roundTripsThroughFloat(a) && roundTripsThroughFloat(b) {
		return mulRelInt(a.ToInt(), b.ToInt(), op, a, position)
	}

	x, y := a.ToFloat(), b.ToFloat()
	switch op {
	case "*":
		return NewFloat(x * y), nil
	case "/":
		if y == 0 {
			return NullValue, NewError(ErrDivideByZero, position, a.ToString())
		}
		return NewFloat(x / y), nil
	}
	ix, iy := FloatToInt(x), FloatToInt(y)
	if iy == 0 {
		return NullValue, NewError(ErrDivideByZero, position, a.ToString())
	}
	if iy == -1 {
		return NewFloat(0), nil
	}
	return NewFloat(float64(ix % iy)), nil
}

func mulRelInt(x, y int64, op string, a Value, position int) (Value, error) {
	if op == "*" {
		p := x * y
		if x != 0 && (p/x != y || (x == -1 && y == math.MinInt64)) {
			return NewFloat(float64(x) * float64(y)), nil
		}
		return NewInt(p), nil
	}
	if y == 0 {
		return NullValue, NewError(ErrDivideByZero, position, a.ToString())
	}
	if op == "%" {
		if y == -1 {
			return NewInt(0), nil
		}
		return NewInt(x % y), nil
	}
	if y == -1 && x == math.MinInt64 {
		return NewFloat(-float64(x)), nil
	}
	if x%y != 0 {
		return NewFloat(float64(x) / float64(y)), nil
	}
	return NewInt(x / y), nil
}

// BoolOp applies a boolean connective to the boolean forms of a and b.
func BoolOp(a, b Value, op string) Value {
	x, y := a.ToBool(), b.ToBool()
	switch op {
	case "&":
		return NewBool(x && y)
	case "|":
		return NewBool(x || y)
	case "^":
		return NewBool(x != y)
	}
	panic(Internalf(-1, "invalid boolean operator %q", op))
}

// Equals reports loose equality: lists never compare equal, other values
// compare by string form.
func Equals(a, b Value) bool {
	if a.kind == KindList || b.kind == KindList {
		return false
	}
	return a.ToString() == b.ToString()
}

// StrictEquals is Equals restricted to values of the same kind.
func StrictEquals(a, b Value) bool {
	return a.kind == b.kind && Equals(a, b)
}

// compareStrings orders two strings numerically when both are numeric,
// and byte-wise otherwise.
func compareStrings(a, b string) int {
	if IsNumericString(a) && IsNumericString(b) {
		x, y := StringToFloat(a), StringToFloat(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

// CompareOp applies an equality or ordering operator.
func CompareOp(a, b Value, op string) Value {
	switch op {
	case "==", "=":
		return NewBool(Equals(a, b))
	case "!=":
		return NewBool(!Equals(a, b))
	case "===":
		return NewBool(StrictEquals(a, b))
	case "!==":
		return NewBool(!StrictEquals(a, b))
	}

	c := compareStrings(a.ToString(), b.ToString())
	switch op {
	case "<":
		return NewBool(c < 0)
	case ">":
		return NewBool(c > 0)
	case "<=":
		return NewBool(c <= 0)
	case ">=":
		return NewBool(c >= 0)
	}
	panic(Internalf(-1, "invalid comparison operator %q", op))
}

// In reports whether the string form of needle occurs in haystack. Empty
// operands never match.
func In(needle, haystack Value) Value {
	n, h := needle.ToString(), haystack.ToString()
	if n == "" || h == "" {
		return NewBool(false)
	}
	return NewBool(strings.Contains(h, n))
}

// Contains is In with the operands swapped.
func Contains(haystack, needle Value) Value {
	return In(needle, haystack)
}

// UnaryMinus negates v, keeping integers integral.
func UnaryMinus(v Value) Value {
	if v.kind == KindInt {
		return NewInt(-v.i)
	}
	return NewFloat(-v.ToFloat())
}

// UnaryPlus returns v unchanged.
func UnaryPlus(v Value) Value {
	return v
}

// BoolInvert negates the boolean form of v.
func BoolInvert(v Value) Value {
	return NewBool(!v.ToBool())
}

// ParseLiteral builds the Value of a literal token. Identifiers are not
// literals.
func ParseLiteral(tok Token) (Value, bool) {
	switch tok.Type {
	case TokenString:
		return NewString(tok.Value), true
	case TokenInt:
		return NewInt(tok.Int), true
	case TokenFloat:
		return NewFloat(tok.Float), true
	case TokenKeyword:
		switch tok.Value {
		case "true":
			return NewBool(true), true
		case "false":
			return NewBool(false), true
		case "null":
			return NullValue, true
		}
	}
	return NullValue, false
}

// FormatIndex renders a list index for error parameters.
func FormatIndex(i int64) string {
	return strconv.FormatInt(i, 10)
}
