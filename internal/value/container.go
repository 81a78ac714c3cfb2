package value

import (
	"maps"
	"slices"
	"strconv"
	"sync"
	"unicode/utf16"
)

// Object is a mutable map of string keys to values.
// Use Keys() for deterministic iteration.
//
// Reads and writes are safe for concurrent use; a lake mutates shared
// objects in place while observers read them.
type Object struct {
	mu     sync.RWMutex
	fields map[string]Value
}

// Pair is a key-value pair for Object construction.
type Pair struct {
	Key   string
	Value Value
}

// P is a shorthand for Pair.
// Example: NewObject(P("name", String("cart")), P("count", Int(5)))
func P(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// NewObject creates an Object from key-value pairs.
func NewObject(pairs ...Pair) *Object {
	obj := &Object{fields: make(map[string]Value, len(pairs))}
	for _, p := range pairs {
		obj.fields[p.Key] = Normalize(p.Value)
	}
	return obj
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Undefined{}, false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.fields[key]
	if !ok {
		return Undefined{}, false
	}
	return v, true
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	if o == nil {
		return false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.fields[key]
	return ok
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.fields)
}

// Keys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (o *Object) Keys() []string {
	return sortedKeys(o.entries())
}

// Set stores v under key, mutating the object in place.
// Objects owned by a lake must only be mutated by the lake.
func (o *Object) Set(key string, v Value) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fields == nil {
		o.fields = make(map[string]Value, 1)
	}
	o.fields[key] = Normalize(v)
}

// Delete removes key, mutating the object in place.
func (o *Object) Delete(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.fields, key)
}

// Clone returns a shallow copy.
func (o *Object) Clone() *Object {
	fields := o.entries()
	fields = maps.Clone(fields)
	if fields == nil {
		fields = make(map[string]Value, 1)
	}
	return &Object{fields: fields}
}

// entries returns a point-in-time copy of the fields, safe to range over
// while the object is being written.
func (o *Object) entries() map[string]Value {
	if o == nil {
		return map[string]Value{}
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return maps.Clone(o.fields)
}

func sortedKeys(fields map[string]Value) []string {
	keys := slices.Collect(maps.Keys(fields))
	if keys == nil {
		keys = []string{}
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	// If all compared units are equal, shorter string comes first
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// MaxArrayGrowth is how far past its end a single write may extend an
// array. Index keys beyond Len()+MaxArrayGrowth are not accepted.
const MaxArrayGrowth = 1024

// Array is a mutable ordered list of values. Undefined elements are holes.
// Like Object, it is safe for concurrent use.
type Array struct {
	mu    sync.RWMutex
	items []Value
}

// NewArray creates an Array from values.
func NewArray(vals ...Value) *Array {
	items := make([]Value, len(vals))
	for i, v := range vals {
		items[i] = Normalize(v)
	}
	return &Array{items: items}
}

// Len returns the number of slots, holes included.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// At returns the element at index i, or Undefined when out of range.
func (a *Array) At(i int) Value {
	if a == nil {
		return Undefined{}
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if i < 0 || i >= len(a.items) {
		return Undefined{}
	}
	return a.items[i]
}

// Items returns a copy of the elements.
func (a *Array) Items() []Value {
	if a == nil {
		return []Value{}
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.items)
}

// Set stores v at index i in place, growing the array with holes if needed.
// It reports false, leaving the array unchanged, when i is negative or more
// than MaxArrayGrowth past the end.
func (a *Array) Set(i int, v Value) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !withinReach(i, len(a.items)) {
		return false
	}
	for len(a.items) <= i {
		a.items = append(a.items, Undefined{})
	}
	a.items[i] = Normalize(v)
	return true
}

// Clone returns a shallow copy.
func (a *Array) Clone() *Array {
	return &Array{items: a.Items()}
}

func withinReach(i, length int) bool {
	return i >= 0 && i <= length+MaxArrayGrowth
}

// parseIndex accepts only canonical non-negative decimal indices ("0", "12", not "01" or "-1").
func parseIndex(key string) (int, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || strconv.Itoa(i) != key {
		return 0, false
	}
	return i, true
}

// Lookup returns the child value of v under key. Looking up a key under a
// non-container, or a missing key, yields Undefined rather than an error.
func Lookup(v Value, key string) Value {
	switch c := Normalize(v).(type) {
	case *Object:
		got, _ := c.Get(key)
		return got
	case *Array:
		if i, ok := parseIndex(key); ok {
			return c.At(i)
		}
	}
	return Undefined{}
}

// HasKey reports whether v is a container that holds key.
// Array holes do not count as present.
func HasKey(v Value, key string) bool {
	switch c := Normalize(v).(type) {
	case *Object:
		return c.Has(key)
	case *Array:
		i, ok := parseIndex(key)
		return ok && i < c.Len() && KindOf(c.At(i)) != KindUndefined
	}
	return false
}

// Accepts reports whether key can be stored into v: v is nullish (a new
// object will be created), an object, or an array and key is an index at
// most MaxArrayGrowth past its end.
func Accepts(v Value, key string) bool {
	switch c := Normalize(v).(type) {
	case Undefined, Null, *Object:
		return true
	case *Array:
		i, ok := parseIndex(key)
		return ok && withinReach(i, c.Len())
	}
	return false
}

// Keys returns the enumerable keys of v, or an empty slice when v is not a container.
func Keys(v Value) []string {
	switch c := Normalize(v).(type) {
	case *Object:
		return c.Keys()
	case *Array:
		items := c.Items()
		keys := make([]string, 0, len(items))
		for i, item := range items {
			if KindOf(item) != KindUndefined {
				keys = append(keys, strconv.Itoa(i))
			}
		}
		return keys
	}
	return []string{}
}

// With returns a shallow copy of v with key set to x. A nullish v yields a
// new object. It returns false when v cannot hold key (see Accepts).
func With(v Value, key string, x Value) (Value, bool) {
	switch c := Normalize(v).(type) {
	case Undefined, Null:
		return NewObject(P(key, x)), true
	case *Object:
		cp := c.Clone()
		cp.Set(key, x)
		return cp, true
	case *Array:
		i, ok := parseIndex(key)
		if !ok || !withinReach(i, c.Len()) {
			return v, false
		}
		cp := c.Clone()
		cp.Set(i, x)
		return cp, true
	}
	return v, false
}

// Without returns a shallow copy of v with key removed. Removing an array
// element leaves a hole. Non-containers are returned unchanged.
func Without(v Value, key string) Value {
	switch c := Normalize(v).(type) {
	case *Object:
		cp := c.Clone()
		cp.Delete(key)
		return cp
	case *Array:
		cp := c.Clone()
		if i, ok := parseIndex(key); ok && i < len(cp.items) {
			cp.items[i] = Undefined{}
		}
		return cp
	}
	return v
}

// SetInPlace stores x under key inside container v without copying it.
// It returns false when v cannot hold key in place.
func SetInPlace(v Value, key string, x Value) bool {
	switch c := Normalize(v).(type) {
	case *Object:
		c.Set(key, x)
		return true
	case *Array:
		i, ok := parseIndex(key)
		if !ok {
			return false
		}
		return c.Set(i, x)
	}
	return false
}

// DeepCopy returns a copy of v sharing no containers with it.
func DeepCopy(v Value) Value {
	switch c := Normalize(v).(type) {
	case *Object:
		fields := c.entries()
		cp := &Object{fields: make(map[string]Value, len(fields))}
		for k, item := range fields {
			cp.fields[k] = DeepCopy(item)
		}
		return cp
	case *Array:
		items := c.Items()
		for i, item := range items {
			items[i] = DeepCopy(item)
		}
		return &Array{items: items}
	default:
		return c
	}
}
