// Package docval implements docdb's value algebra: the canonical document
// representation (Value) and the operations spec.md §4.1 calls for —
// serialize/deserialize, deep_copy, compare, equal and dot_get.
//
// A Value is a tagged union. Objects carry their fields in a map; ordering is
// insertion-irrelevant per spec.md §3, so every operation that needs a
// deterministic order (serialize, compare) sorts keys at the point of use
// rather than tracking insertion order.
package docval

import "fmt"

// Kind tags the variant a Value holds. Total-match dispatch over Kind is used
// throughout instead of type switches on an interface, avoiding virtual
// dispatch in hot paths (matcher, compare).
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindDate
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
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Value is the canonical representation of any document or sub-document
// field. The zero Value is Undefined.
//
// Undefined is distinct from Null and only ever appears transiently (a missed
// dot-path, a comparison operand that doesn't exist); it is never persisted
// (see persistence.Record).
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	d    int64 // milliseconds since epoch, valid when kind == KindDate
	arr  []Value
	obj  map[string]Value
}

// Undefined is the singleton Undefined value.
var Undefined = Value{kind: KindUndefined}

// Null is the singleton Null value.
var Null = Value{kind: KindNull}

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

func String(s string) Value { return Value{kind: KindString, s: s} }

// Date constructs a Date value from milliseconds since the Unix epoch.
func Date(ms int64) Value { return Value{kind: KindDate, d: ms} }

// Array constructs an Array value. The slice is taken by reference; callers
// that need isolation should DeepCopy the result.
func Array(vs []Value) Value {
	if vs == nil {
		vs = []Value{}
	}
	return Value{kind: KindArray, arr: vs}
}

// Object constructs an Object value from a field map. The map is taken by
// reference; callers that need isolation should DeepCopy the result.
func Object(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, obj: fields}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsNull() bool      { return v.kind == KindNull }

// AsBool panics if Kind() != KindBool; callers must check Kind first (mirrors
// the matcher's own total-dispatch style — no silent coercion).
func (v Value) AsBool() bool {
	v.mustKind(KindBool)
	return v.b
}

func (v Value) AsNumber() float64 {
	v.mustKind(KindNumber)
	return v.n
}

func (v Value) AsString() string {
	v.mustKind(KindString)
	return v.s
}

func (v Value) AsDateMS() int64 {
	v.mustKind(KindDate)
	return v.d
}

// AsArray returns the underlying slice by reference.
func (v Value) AsArray() []Value {
	v.mustKind(KindArray)
	return v.arr
}

// AsObject returns the underlying field map by reference.
func (v Value) AsObject() map[string]Value {
	v.mustKind(KindObject)
	return v.obj
}

func (v Value) mustKind(k Kind) {
	if v.kind != k {
		panic(fmt.Sprintf("docval: value is %s, not %s", v.kind, k))
	}
}

// Scalar reports whether v is one of the index-key-eligible kinds
// (Null/Bool/Number/String/Date) per spec.md §3's Index entry definition.
func (v Value) Scalar() bool {
	switch v.kind {
	case KindNull, KindBool, KindNumber, KindString, KindDate:
		return true
	default:
		return false
	}
}

// Truthy implements the permissive truthiness rule spec.md §4.2 documents for
// $exists: 0, false, null and undefined are false; everything else —
// including "" and empty arrays/objects — is true. This intentionally departs
// from JavaScript truthiness (where "" and NaN are also false) because the
// source this spec was distilled from treats any *present* value, however
// empty, as existing.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0
	default:
		return true
	}
}
