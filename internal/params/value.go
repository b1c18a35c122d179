package params

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the concrete type held by a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindList
	KindTuple
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	default:
		return "invalid"
	}
}

// Value is a tagged union over the parameter types the pipeline moves
// around. The zero Value is invalid.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
	seq  []Value
}

func Int(v int64) Value { return Value{kind: KindInt, i: v} }

func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

func String(v string) Value { return Value{kind: KindString, s: v} }

func List(items ...Value) Value { return Value{kind: KindList, seq: items} }

func Tuple(items ...Value) Value { return Value{kind: KindTuple, seq: items} }

// FromAny converts a loosely typed value (as produced by encoding/json) into
// a tagged Value. Unsupported types become their string representation.
func FromAny(v any) Value {
	switch val := v.(type) {
	case nil:
		return Value{}
	case Value:
		return val
	case int:
		return Int(int64(val))
	case int64:
		return Int(val)
	case float32:
		return Float(float64(val))
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return Int(int64(val))
		}
		return Float(val)
	case bool:
		return Bool(val)
	case string:
		return String(val)
	case []any:
		items := make([]Value, 0, len(val))
		for _, item := range val {
			items = append(items, FromAny(item))
		}
		return List(items...)
	case []Value:
		return List(val...)
	default:
		return String(fmt.Sprint(val))
	}
}

// Kind returns the tag of the value.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether the value holds anything.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Int returns the integer content. Integral floats convert.
func (v Value) Int() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f == math.Trunc(v.f) {
			return int64(v.f), true
		}
	}
	return 0, false
}

// Float returns the numeric content; ints widen.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Bool returns the boolean content.
func (v Value) Bool() (bool, bool) {
	if v.kind == KindBool {
		return v.b, true
	}
	return false, false
}

// Str returns the string content.
func (v Value) Str() (string, bool) {
	if v.kind == KindString {
		return v.s, true
	}
	return "", false
}

// Items returns the sequence content of a list or tuple.
func (v Value) Items() ([]Value, bool) {
	if v.kind == KindList || v.kind == KindTuple {
		return v.seq, true
	}
	return nil, false
}

// Interface unwraps the value back into a loosely typed form.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindString:
		return v.s
	case KindList, KindTuple:
		out := make([]any, 0, len(v.seq))
		for _, item := range v.seq {
			out = append(out, item.Interface())
		}
		return out
	default:
		return nil
	}
}

// String renders the value for logs and filter-argument assembly.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.s
	case KindList, KindTuple:
		parts := make([]string, 0, len(v.seq))
		for _, item := range v.seq {
			parts = append(parts, item.String())
		}
		return "(" + strings.Join(parts, ",") + ")"
	default:
		return "<invalid>"
	}
}

// Equal compares two values structurally.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindBool:
		return v.b == other.b
	case KindString:
		return v.s == other.s
	case KindList, KindTuple:
		if len(v.seq) != len(other.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(other.seq[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
