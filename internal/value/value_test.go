package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Verify all types implement Value (compile-time check via assignment)
	var _ Value = Undefined{}
	var _ Value = Null{}
	var _ Value = Bool(true)
	var _ Value = Int(42)
	var _ Value = Float(1.5)
	var _ Value = String("test")
	var _ Value = NewArray(String("a"), Int(1))
	var _ Value = NewObject(P("key", String("value")))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want Kind
	}{
		{"nil", nil, KindUndefined},
		{"undefined", Undefined{}, KindUndefined},
		{"null", Null{}, KindNull},
		{"bool", Bool(false), KindBool},
		{"int", Int(0), KindInt},
		{"float", Float(0.5), KindFloat},
		{"string", String(""), KindString},
		{"array", NewArray(), KindArray},
		{"object", NewObject(), KindObject},
		{"nil object pointer", (*Object)(nil), KindUndefined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.v))
		})
	}
}

func TestIsNullish(t *testing.T) {
	assert.True(t, IsNullish(nil))
	assert.True(t, IsNullish(Undefined{}))
	assert.True(t, IsNullish(Null{}))
	assert.False(t, IsNullish(Int(0)))
	assert.False(t, IsNullish(String("")))
	assert.False(t, IsNullish(NewObject()))
}

func TestSame_ScalarsByValue(t *testing.T) {
	assert.True(t, Same(Int(1), Int(1)))
	assert.True(t, Same(String("a"), String("a")))
	assert.True(t, Same(nil, Undefined{}))
	assert.False(t, Same(Int(1), Float(1)))
	assert.False(t, Same(Null{}, Undefined{}))
	assert.False(t, Same(Float(math.NaN()), Float(math.NaN())))
}

func TestSame_ContainersByReference(t *testing.T) {
	a := NewObject(P("x", Int(1)))
	b := NewObject(P("x", Int(1)))

	assert.True(t, Same(a, a))
	assert.False(t, Same(a, b), "structurally equal objects are not the same reference")
	assert.True(t, Equal(a, b))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "undefined", Format(nil))
	assert.Equal(t, "null", Format(Null{}))
	assert.Equal(t, "42", Format(Int(42)))
	assert.Equal(t, `{"a":[1,"x"]}`, Format(MustFrom(map[string]any{"a": []any{1, "x"}})))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "object", KindObject.String())
	assert.Equal(t, "undefined", KindUndefined.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"int vs float", Int(1), Float(1), true},
		{"different ints", Int(1), Int(2), false},
		{"nested objects", MustFrom(map[string]any{"a": map[string]any{"b": 1}}), MustFrom(map[string]any{"a": map[string]any{"b": 1}}), true},
		{"undefined entry ignored", NewObject(P("a", Int(1)), P("b", Undefined{})), NewObject(P("a", Int(1))), true},
		{"array length", NewArray(Int(1)), NewArray(Int(1), Int(2)), false},
		{"object vs array", NewObject(), NewArray(), false},
		{"null vs undefined", Null{}, Undefined{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestFrom(t *testing.T) {
	v, err := From(map[string]any{
		"name":  "cart",
		"count": 3,
		"price": 9.5,
		"tags":  []any{"a", true, nil},
	})
	require.NoError(t, err)

	obj, ok := v.(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"count", "name", "price", "tags"}, obj.Keys())
	assert.Equal(t, Int(3), Lookup(obj, "count"))
	assert.Equal(t, Float(9.5), Lookup(obj, "price"))
	assert.Equal(t, Null{}, Lookup(Lookup(obj, "tags"), "2"))
}

func TestFrom_YAMLStyleMap(t *testing.T) {
	v, err := From(map[any]any{1: "one", "two": 2})
	require.NoError(t, err)
	assert.Equal(t, String("one"), Lookup(v, "1"))
	assert.Equal(t, Int(2), Lookup(v, "two"))
}

func TestFrom_Unsupported(t *testing.T) {
	_, err := From(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")

	_, err = From(map[string]any{"bad": []any{make(chan int)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `object["bad"]: array[0]`)
}

func TestParse(t *testing.T) {
	v, err := Parse([]byte(`{"a": {"x": 1, "y": 2.5}, "list": [1, null, "s"]}`))
	require.NoError(t, err)

	assert.Equal(t, Int(1), Lookup(Lookup(v, "a"), "x"))
	assert.Equal(t, Float(2.5), Lookup(Lookup(v, "a"), "y"))
	assert.Equal(t, Null{}, Lookup(Lookup(v, "list"), "1"))
}

func TestParse_RejectsTrailingData(t *testing.T) {
	_, err := Parse([]byte(`{} {}`))
	require.Error(t, err)
}

func TestToAnyRoundTrip(t *testing.T) {
	in := map[string]any{"a": []any{int64(1), "x", nil}, "b": true}
	v := MustFrom(in)
	assert.Equal(t, in, ToAny(v))
}

func TestMarshal_DropsUndefinedEntries(t *testing.T) {
	obj := NewObject(P("a", Int(1)), P("gone", Undefined{}))
	data, err := Marshal(obj)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
}
