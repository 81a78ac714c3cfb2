// Package value provides the JSON-like value model stored in a state lake.
//
// Values form a sealed set: Undefined, Null, Bool, Int, Float, String,
// *Array and *Object. Scalars compare by value; arrays and objects compare
// by reference. The propagator in internal/lake relies on that split: a
// write is only applied when the new value is not Same as the old one, so
// callers signal change by handing over a new container (copy-on-write).
//
// This package imports nothing internal. All other internal packages build
// on it.
//
// Key design constraints:
//   - Undefined (absent) and Null (explicit null) are distinct values, both nullish
//   - Object keys enumerate in RFC 8785 order (UTF-16 code units)
//   - Array keys are decimal indices; a hole is an Undefined element
//   - Containers are mutated in place only by the lake (SetInPlace)
package value
