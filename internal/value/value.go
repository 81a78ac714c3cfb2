package value

import (
	"math"
	"strconv"
)

// Value is a sealed interface representing a JSON-like value.
// Only Undefined, Null, Bool, Int, Float, String, *Array and *Object implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Kind identifies the dynamic type of a Value.
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Undefined represents an absent value (a key that does not exist).
type Undefined struct{}

func (Undefined) value() {}

// Null represents an explicit JSON null.
type Null struct{}

func (Null) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// Int represents an integer value.
type Int int64

func (Int) value() {}

// Float represents a non-integer number.
type Float float64

func (Float) value() {}

// String represents a string value.
type String string

func (String) value() {}

func (*Array) value()  {}
func (*Object) value() {}

// KindOf returns the kind of v. A nil Value is Undefined.
func KindOf(v Value) Kind {
	switch val := v.(type) {
	case nil, Undefined:
		return KindUndefined
	case Null:
		return KindNull
	case Bool:
		return KindBool
	case Int:
		return KindInt
	case Float:
		return KindFloat
	case String:
		return KindString
	case *Array:
		if val == nil {
			return KindUndefined
		}
		return KindArray
	case *Object:
		if val == nil {
			return KindUndefined
		}
		return KindObject
	default:
		return KindUndefined
	}
}

// Normalize maps a nil Value (or nil container pointer) to Undefined.
func Normalize(v Value) Value {
	if KindOf(v) == KindUndefined {
		return Undefined{}
	}
	return v
}

// IsNullish reports whether v is nil, Undefined or Null.
func IsNullish(v Value) bool {
	k := KindOf(v)
	return k == KindUndefined || k == KindNull
}

// IsContainer reports whether v is a non-nil *Array or *Object.
func IsContainer(v Value) bool {
	k := KindOf(v)
	return k == KindArray || k == KindObject
}

// Same is the identity comparison used to decide whether a write changes
// anything. Scalars compare by value, containers by reference. NaN is never
// the same as anything, including itself.
func Same(a, b Value) bool {
	return Normalize(a) == Normalize(b)
}

// Format returns a compact, human-readable rendering of v for logs and CLI output.
func Format(v Value) string {
	switch val := Normalize(v).(type) {
	case Undefined:
		return "undefined"
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(bool(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return strconv.FormatFloat(float64(val), 'g', -1, 64)
		}
	}
	data, err := Marshal(v)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(data)
}
