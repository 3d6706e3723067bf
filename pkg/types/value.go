package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the type tag of a Value.
type Kind uint8

// Value kinds. The zero Value is Null.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindList:   "array",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is a filter runtime value. Values are immutable: list operations
// always produce new backing slices.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
}

// NullValue is the Null value.
var NullValue = Value{}

// NewBool returns a Bool value.
func NewBool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// NewInt returns an Int value.
func NewInt(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// NewFloat returns a Float value.
func NewFloat(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

// NewString returns a String value.
func NewString(s string) Value {
	return Value{kind: KindString, s: s}
}

// NewList returns a List value holding a copy of items.
func NewList(items ...Value) Value {
	list := make([]Value, len(items))
	copy(list, items)
	return Value{kind: KindList, list: list}
}

// NewStringList returns a List of String values.
func NewStringList(items ...string) Value {
	list := make([]Value, len(items))
	for i, s := range items {
		list[i] = NewString(s)
	}
	return Value{kind: KindList, list: list}
}

// FromNative converts a Go value into a Value. Supported inputs are nil,
// bool, signed and unsigned integers, floats, strings, Value, and slices
// of any of these.
func FromNative(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return NullValue, nil
	case Value:
		return x, nil
	case bool:
		return NewBool(x), nil
	case int:
		return NewInt(int64(x)), nil
	case int8:
		return NewInt(int64(x)), nil
	case int16:
		return NewInt(int64(x)), nil
	case int32:
		return NewInt(int64(x)), nil
	case int64:
		return NewInt(x), nil
	case uint:
		return NewInt(int64(x)), nil
	case uint8:
		return NewInt(int64(x)), nil
	case uint16:
		return NewInt(int64(x)), nil
	case uint32:
		return NewInt(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return NewFloat(float64(x)), nil
		}
		return NewInt(int64(x)), nil
	case float32:
		return NewFloat(float64(x)), nil
	case float64:
		return NewFloat(x), nil
	case string:
		return NewString(x), nil
	case []string:
		return NewStringList(x...), nil
	case []Value:
		return NewList(x...), nil
	case []any:
		list := make([]Value, len(x))
		for i, item := range x {
			iv, err := FromNative(item)
			if err != nil {
				return NullValue, fmt.Errorf("element %d: %w", i, err)
			}
			list[i] = iv
		}
		return Value{kind: KindList, list: list}, nil
	}
	return NullValue, fmt.Errorf("unsupported value type %T", v)
}

// Native converts the Value back into plain Go data: nil, bool, int64,
// float64, string or []any.
func (v Value) Native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Native()
		}
		return out
	}
	return nil
}

// Kind returns the type tag.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether v is Null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// IsList reports whether v is a List.
func (v Value) IsList() bool {
	return v.kind == KindList
}

// Len returns the number of list elements, or 0 for scalars.
func (v Value) Len() int {
	return len(v.list)
}

// Index returns the i-th list element.
func (v Value) Index(i int) Value {
	return v.list[i]
}

// Items returns a copy of the list elements, or nil for scalars.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	out := make([]Value, len(v.list))
	copy(out, v.list)
	return out
}

// WithIndex returns a copy of the list with element i replaced.
func (v Value) WithIndex(i int, item Value) Value {
	out := v.Items()
	out[i] = item
	return Value{kind: KindList, list: out}
}

// Append returns a copy of the list with item added at the end.
func (v Value) Append(item Value) Value {
	out := make([]Value, len(v.list), len(v.list)+1)
	copy(out, v.list)
	return Value{kind: KindList, list: append(out, item)}
}

// ToBool converts v to a boolean. Empty strings, "0", zero numbers, Null
// and empty lists are false.
func (v Value) ToBool() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return v.s != "" && v.s != "0"
	case KindList:
		return len(v.list) > 0
	}
	return false
}

// ToInt converts v to an integer. Lists convert to their length.
func (v Value) ToInt() int64 {
	switch v.kind {
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindInt:
		return v.i
	case KindFloat:
		return FloatToInt(v.f)
	case KindString:
		return StringToInt(v.s)
	case KindList:
		return int64(len(v.list))
	}
	return 0
}

// ToFloat converts v to a float. Lists convert to their length.
func (v Value) ToFloat() float64 {
	switch v.kind {
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.f
	case KindString:
		return StringToFloat(v.s)
	case KindList:
		return float64(len(v.list))
	}
	return 0
}

// ToString converts v to a string. Null and false are empty, true is "1",
// and lists render each element followed by a newline.
func (v Value) ToString() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "1"
		}
		return ""
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return FormatFloat(v.f)
	case KindString:
		return v.s
	case KindList:
		var b strings.Builder
		for _, item := range v.list {
			b.WriteString(item.ToString())
			b.WriteByte('\n')
		}
		return b.String()
	}
	return ""
}

// Cast converts v to the target kind. Scalars cast to List become a
// single-element list; lists cast to scalars go through their length,
// except for strings.
func (v Value) Cast(target Kind) Value {
	if v.kind == target {
		if v.kind == KindList {
			return NewList(v.list...)
		}
		return v
	}
	switch target {
	case KindNull:
		return NullValue
	case KindBool:
		return NewBool(v.ToBool())
	case KindInt:
		return NewInt(v.ToInt())
	case KindFloat:
		return NewFloat(v.ToFloat())
	case KindString:
		return NewString(v.ToString())
	case KindList:
		return NewList(v)
	}
	panic(Internalf(-1, "cast to unknown kind %d", target))
}

// Key returns a string that identifies the kind and content of v, for use
// as a memoization key.
func (v Value) Key() string {
	var b strings.Builder
	v.writeKey(&b)
	return b.String()
}

func (v Value) writeKey(b *strings.Builder) {
	switch v.kind {
	case KindNull:
		b.WriteString("n;")
	case KindBool:
		if v.b {
			b.WriteString("b1;")
		} else {
			b.WriteString("b0;")
		}
	case KindInt:
		b.WriteString("i")
		b.WriteString(strconv.FormatInt(v.i, 10))
		b.WriteByte(';')
	case KindFloat:
		b.WriteString("f")
		b.WriteString(strconv.FormatUint(math.Float64bits(v.f), 16))
		b.WriteByte(';')
	case KindString:
		b.WriteString("s")
		b.WriteString(strconv.Itoa(len(v.s)))
		b.WriteByte(':')
		b.WriteString(v.s)
	case KindList:
		b.WriteString("l")
		b.WriteString(strconv.Itoa(len(v.list)))
		b.WriteByte('[')
		for _, item := range v.list {
			item.writeKey(b)
		}
		b.WriteByte(']')
	}
}

// String renders v for debugging: strings are quoted and lists bracketed.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return strconv.Quote(v.s)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return v.ToString()
}
