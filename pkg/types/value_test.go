package types

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueConversions(t *testing.T) {
	tests := []struct {
		name      string
		value     Value
		wantBool  bool
		wantInt   int64
		wantFloat float64
		wantStr   string
	}{
		{"null", NullValue, false, 0, 0, ""},
		{"true", NewBool(true), true, 1, 1, "1"},
		{"false", NewBool(false), false, 0, 0, ""},
		{"int", NewInt(42), true, 42, 42, "42"},
		{"zero int", NewInt(0), false, 0, 0, "0"},
		{"float", NewFloat(1.5), true, 1, 1.5, "1.5"},
		{"whole float", NewFloat(2), true, 2, 2, "2"},
		{"string zero", NewString("0"), false, 0, 0, "0"},
		{"string empty", NewString(""), false, 0, 0, ""},
		{"numeric prefix", NewString("12abc"), true, 12, 12, "12abc"},
		{"float string", NewString(" 3.75"), true, 3, 3.75, " 3.75"},
		{"exponent string", NewString("1e3"), true, 1000, 1000, "1e3"},
		{"word", NewString("abc"), true, 0, 0, "abc"},
		{"list", NewList(NewInt(1), NewString("a")), true, 2, 2, "1\na\n"},
		{"empty list", NewList(), false, 0, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantBool, tt.value.ToBool())
			assert.Equal(t, tt.wantInt, tt.value.ToInt())
			assert.Equal(t, tt.wantFloat, tt.value.ToFloat())
			assert.Equal(t, tt.wantStr, tt.value.ToString())
		})
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.1, "0.1"},
		{1.5, "1.5"},
		{100, "100"},
		{-2.25, "-2.25"},
		{1e20, "1.0E+20"},
		{1.5e-7, "1.5E-7"},
		{1.0 / 3, "0.33333333333333"},
		{math.Inf(1), "INF"},
		{math.NaN(), "NAN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFloat(tt.in))
		})
	}
}

func TestCast(t *testing.T) {
	assert.Equal(t, NewList(NewInt(3)), NewInt(3).Cast(KindList))
	assert.Equal(t, NewInt(2), NewList(NewInt(7), NewInt(8)).Cast(KindInt))
	assert.Equal(t, NewString("a\nb\n"), NewStringList("a", "b").Cast(KindString))
	assert.Equal(t, NewBool(false), NewList().Cast(KindBool))
	assert.Equal(t, NullValue, NewString("x").Cast(KindNull))
	assert.Equal(t, NewFloat(12), NewString("12").Cast(KindFloat))
}

func TestEquality(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		op   string
		want bool
	}{
		{"int equals int", NewInt(1), NewInt(1), "===", true},
		{"int loosely equals float", NewInt(1), NewFloat(1), "==", true},
		{"int not strictly float", NewInt(1), NewFloat(1), "===", false},
		{"string equals int", NewString("1"), NewInt(1), "=", true},
		{"lists never equal", NewList(NewInt(1)), NewList(NewInt(1)), "==", false},
		{"list not equal", NewList(), NewList(), "!=", true},
		{"strict not equal", NewString("1"), NewInt(1), "!==", true},
		{"numeric less", NewString("9"), NewString("10"), "<", true},
		{"lexical less", NewString("b"), NewString("a"), "<", false},
		{"greater or equal", NewInt(5), NewFloat(5), ">=", true},
		{"less or equal", NewInt(6), NewInt(5), "<=", false},
		{"greater", NewFloat(2.5), NewInt(2), ">", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, NewBool(tt.want), CompareOp(tt.a, tt.b, tt.op))
		})
	}
}

func TestArithmetic(t *testing.T) {
	assert.Equal(t, NewFloat(3), Sum(NewInt(1), NewInt(2)))
	assert.Equal(t, NewString("ab1"), Sum(NewString("ab"), NewInt(1)))
	assert.Equal(t, NewList(NewInt(1), NewInt(2)), Sum(NewList(NewInt(1)), NewList(NewInt(2))))
	assert.Equal(t, NewFloat(-1), Sub(NewInt(1), NewInt(2)))
	assert.Equal(t, NewFloat(8), Pow(NewInt(2), NewInt(3)))
	assert.Equal(t, NewInt(-4), UnaryMinus(NewInt(4)))
	assert.Equal(t, NewFloat(-0.5), UnaryMinus(NewString("0.5")))
	assert.Equal(t, NewBool(false), BoolInvert(NewString("x")))
}

func TestMulRel(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		op   string
		want Value
	}{
		{"int multiply", NewInt(6), NewInt(7), "*", NewInt(42)},
		{"exact division", NewInt(8), NewInt(2), "/", NewInt(4)},
		{"inexact division", NewInt(7), NewInt(2), "/", NewFloat(3.5)},
		{"int modulo", NewInt(7), NewInt(3), "%", NewInt(1)},
		{"float multiply", NewFloat(1.5), NewInt(2), "*", NewFloat(3)},
		{"float modulo truncates", NewFloat(7.9), NewInt(3), "%", NewFloat(1)},
		{"numeric strings", NewString("4"), NewString("2"), "*", NewInt(8)},
		{"word is float mode", NewString("abc"), NewInt(2), "*", NewFloat(0)},
		{"overflow to float", NewInt(math.MaxInt64), NewInt(2), "*", NewFloat(2 * float64(math.MaxInt64))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulRel(tt.a, tt.b, tt.op, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMulRelDivideByZero(t *testing.T) {
	for _, op := range []string{"/", "%"} {
		t.Run(op, func(t *testing.T) {
			_, err := MulRel(NewInt(1), NewInt(0), op, 4)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDivideByZero))

			fe, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, 4, fe.Position)
			assert.Equal(t, []string{"1"}, fe.Params)
		})
	}

	_, err := MulRel(NewInt(5), NewFloat(0.5), "%", 0)
	assert.ErrorIs(t, err, ErrDivideByZero)

	got, err := MulRel(NewInt(5), NewInt(0), "*", 0)
	require.NoError(t, err)
	assert.Equal(t, NewInt(0), got)
}

func TestBoolOp(t *testing.T) {
	assert.Equal(t, NewBool(false), BoolOp(NewInt(1), NewString(""), "&"))
	assert.Equal(t, NewBool(true), BoolOp(NewInt(0), NewString("a"), "|"))
	assert.Equal(t, NewBool(true), BoolOp(NewBool(true), NewBool(false), "^"))
	assert.Panics(t, func() { BoolOp(NullValue, NullValue, "?") })
}

func TestInContains(t *testing.T) {
	assert.Equal(t, NewBool(true), In(NewString("b"), NewString("abc")))
	assert.Equal(t, NewBool(false), In(NewString(""), NewString("abc")))
	assert.Equal(t, NewBool(false), In(NewString("a"), NewString("")))
	assert.Equal(t, NewBool(true), Contains(NewString("abc"), NewString("c")))
}

func TestValueKeyDistinguishesKinds(t *testing.T) {
	keys := map[string]Value{}
	for _, v := range []Value{
		NullValue, NewBool(false), NewInt(1), NewFloat(1), NewString("1"),
		NewList(NewInt(1)), NewList(NewString("1")), NewString(""),
	} {
		k := v.Key()
		_, dup := keys[k]
		assert.False(t, dup, "duplicate key %q", k)
		keys[k] = v
	}
}

func TestFromNative(t *testing.T) {
	v, err := FromNative([]any{1, "a", nil, true, 2.5, []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, KindList, v.Kind())
	assert.Equal(t, 6, v.Len())
	assert.Equal(t, []any{int64(1), "a", nil, true, 2.5, []any{"x"}}, v.Native())

	_, err = FromNative(struct{}{})
	assert.Error(t, err)
}

func TestListHelpers(t *testing.T) {
	l := NewList(NewInt(1), NewInt(2))
	l2 := l.WithIndex(0, NewString("a"))
	l3 := l.Append(NewInt(3))

	assert.Equal(t, NewInt(1), l.Index(0))
	assert.Equal(t, NewString("a"), l2.Index(0))
	assert.Equal(t, 3, l3.Len())
	assert.Equal(t, 2, l.Len())
}
