package vdom

import (
	"math"
	"sort"
	"strconv"
)

// ValueKind identifies the scalar held by a Value.
type ValueKind uint8

const (
	ValueNone ValueKind = iota // Absent; deletes a slot in UpdateState
	ValueString
	ValueInt
	ValueFloat
	ValueBool
)

// String returns the string representation of the ValueKind.
func (k ValueKind) String() string {
	switch k {
	case ValueNone:
		return "none"
	case ValueString:
		return "string"
	case ValueInt:
		return "int"
	case ValueFloat:
		return "float"
	case ValueBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a component state scalar. The zero Value is ValueNone.
// Compare values with Equal: floats compare by bit pattern, so NaN equals
// itself.
type Value struct {
	kind ValueKind
	s    string
	i    int64
	f    float64
	b    bool
}

// String creates a string value.
func String(s string) Value { return Value{kind: ValueString, s: s} }

// Int creates an integer value.
func Int(i int64) Value { return Value{kind: ValueInt, i: i} }

// Float creates a floating point value.
func Float(f float64) Value { return Value{kind: ValueFloat, f: f} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: ValueBool, b: b} }

// Kind returns the scalar kind.
func (v Value) Kind() ValueKind { return v.kind }

// IsNone reports whether the value is absent.
func (v Value) IsNone() bool { return v.kind == ValueNone }

// Str returns the string payload.
func (v Value) Str() string { return v.s }

// IntValue returns the integer payload.
func (v Value) IntValue() int64 { return v.i }

// FloatValue returns the floating point payload.
func (v Value) FloatValue() float64 { return v.f }

// BoolValue returns the boolean payload.
func (v Value) BoolValue() bool { return v.b }

// Any returns the payload as a Go value, or nil for ValueNone.
func (v Value) Any() any {
	switch v.kind {
	case ValueString:
		return v.s
	case ValueInt:
		return v.i
	case ValueFloat:
		return v.f
	case ValueBool:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether v and w hold the same kind and payload. Floats
// compare by bit pattern: a NaN slot equals itself and 0 differs from -0.
func (v Value) Equal(w Value) bool {
	if v.kind != w.kind {
		return false
	}
	switch v.kind {
	case ValueString:
		return v.s == w.s
	case ValueInt:
		return v.i == w.i
	case ValueFloat:
		return math.Float64bits(v.f) == math.Float64bits(w.f)
	case ValueBool:
		return v.b == w.b
	default:
		return true
	}
}

// String formats the payload.
func (v Value) String() string {
	switch v.kind {
	case ValueString:
		return strconv.Quote(v.s)
	case ValueInt:
		return strconv.FormatInt(v.i, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.b)
	default:
		return "none"
	}
}

// State is the named-slot state of a component.
type State map[string]Value

// Clone returns a copy of the state.
func (s State) Clone() State {
	return copyMap(s)
}

// Equal reports whether both states hold the same slots with equal values.
func (s State) Equal(other State) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		ov, ok := other[k]
		if !ok || !ov.Equal(v) {
			return false
		}
	}
	return true
}

// compact drops ValueNone slots, which are equivalent to absent ones.
func (s State) compact() State {
	for _, v := range s {
		if !v.IsNone() {
			continue
		}
		out := make(State, len(s))
		for k, v := range s {
			if !v.IsNone() {
				out[k] = v
			}
		}
		return out
	}
	return s
}

// Keys returns the slot names in sorted order.
func (s State) Keys() []string {
	return sortedKeys(s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
