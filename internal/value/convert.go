package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// From converts a Go value into a Value.
//
// Supported inputs: nil (Null), Value, bool, string, all integer and float
// types, json.Number, []any, map[string]any and map[any]any (as produced by
// some YAML decoders; keys are formatted with fmt.Sprint).
func From(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return Normalize(val), nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return fromUint(uint64(val)), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return fromUint(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Float(f), nil
	case []any:
		arr := &Array{items: make([]Value, len(val))}
		for i, elem := range val {
			item, err := From(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr.items[i] = item
		}
		return arr, nil
	case map[string]any:
		obj := &Object{fields: make(map[string]Value, len(val))}
		for k, elem := range val {
			item, err := From(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj.fields[k] = item
		}
		return obj, nil
	case map[any]any:
		obj := &Object{fields: make(map[string]Value, len(val))}
		for k, elem := range val {
			key := fmt.Sprint(k)
			item, err := From(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", key, err)
			}
			obj.fields[key] = item
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(u)
	}
	return Int(u)
}

// MustFrom is like From but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFrom(v any) Value {
	out, err := From(v)
	if err != nil {
		panic(err)
	}
	return out
}

// ToAny converts v into plain Go values (map[string]any, []any, int64,
// float64, string, bool, nil). Undefined object entries are dropped and
// array holes become nil.
func ToAny(v Value) any {
	switch val := Normalize(v).(type) {
	case Undefined, Null:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case *Array:
		items := val.Items()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = ToAny(item)
		}
		return out
	case *Object:
		fields := val.entries()
		out := make(map[string]any, len(fields))
		for k, item := range fields {
			if KindOf(item) == KindUndefined {
				continue
			}
			out[k] = ToAny(item)
		}
		return out
	}
	return nil
}

// Parse decodes JSON into a Value. Integer literals become Int; other
// numbers become Float.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected trailing data after JSON value")
	}
	return From(raw)
}

// Marshal renders v as JSON. This is NOT canonical marshaling; use
// MarshalCanonical for digests.
func Marshal(v Value) ([]byte, error) {
	return json.Marshal(ToAny(v))
}

// MarshalJSON implements json.Marshaler for Object.
func (o *Object) MarshalJSON() ([]byte, error) {
	return Marshal(o)
}

// MarshalJSON implements json.Marshaler for Array.
func (a *Array) MarshalJSON() ([]byte, error) {
	return Marshal(a)
}

// Equal reports deep equality. Int and Float compare numerically, and
// Undefined object entries are treated as absent.
func Equal(a, b Value) bool {
	a, b = Normalize(a), Normalize(b)
	switch x := a.(type) {
	case Int:
		switch y := b.(type) {
		case Int:
			return x == y
		case Float:
			return float64(x) == float64(y)
		}
		return false
	case Float:
		switch y := b.(type) {
		case Int:
			return float64(x) == float64(y)
		case Float:
			return x == y
		}
		return false
	case *Array:
		y, ok := b.(*Array)
		if !ok {
			return false
		}
		xs, ys := x.Items(), y.Items()
		if len(xs) != len(ys) {
			return false
		}
		for i := range xs {
			if !Equal(xs[i], ys[i]) {
				return false
			}
		}
		return true
	case *Object:
		y, ok := b.(*Object)
		if !ok {
			return false
		}
		xf, yf := x.entries(), y.entries()
		if definedLen(xf) != definedLen(yf) {
			return false
		}
		for k, item := range xf {
			if KindOf(item) == KindUndefined {
				continue
			}
			other, found := yf[k]
			if !found || !Equal(item, other) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func definedLen(fields map[string]Value) int {
	n := 0
	for _, item := range fields {
		if KindOf(item) != KindUndefined {
			n++
		}
	}
	return n
}
