package docval

import (
	"strconv"
	"strings"
)

// DotGet implements spec.md §4.1's dot_get: split path on '.', descend
// through Objects, index or map Arrays, and return Undefined on a miss.
func DotGet(v Value, path string) Value {
	if path == "" {
		return v
	}
	return dotGet(v, strings.Split(path, "."))
}

func dotGet(v Value, segs []string) Value {
	if len(segs) == 0 {
		return v
	}
	head, rest := segs[0], segs[1:]

	switch v.kind {
	case KindObject:
		child, ok := v.obj[head]
		if !ok {
			return Undefined
		}
		return dotGet(child, rest)
	case KindArray:
		if idx, err := strconv.Atoi(head); err == nil && idx >= 0 {
			if idx >= len(v.arr) {
				return Undefined
			}
			return dotGet(v.arr[idx], rest)
		}
		// Non-integer segment: map the remaining path across every element
		// and return the results as an Array, per spec.md §4.1.
		out := make([]Value, 0, len(v.arr))
		for _, elem := range v.arr {
			out = append(out, dotGet(elem, segs))
		}
		return Array(out)
	default:
		return Undefined
	}
}

// DotSet writes value at path inside obj, creating intermediate Objects
// along the way. Returns ok=false without mutating if a path component
// traverses a non-object, non-array scalar (the modifier engine's $set
// "refused silently" rule, spec.md §4.3). Arrays are only traversed by
// integer index; a non-integer segment under an array also refuses.
func DotSet(root Value, path string, value Value) (Value, bool) {
	segs := strings.Split(path, ".")
	out, ok := dotSet(root, segs, value)
	return out, ok
}

func dotSet(cur Value, segs []string, value Value) (Value, bool) {
	head := segs[0]
	rest := segs[1:]

	switch cur.kind {
	case KindObject, KindUndefined, KindNull:
		obj := map[string]Value{}
		if cur.kind == KindObject {
			obj = cloneShallowObject(cur.obj)
		}
		if len(rest) == 0 {
			obj[head] = value
			return Object(obj), true
		}
		child, ok := obj[head]
		if !ok {
			child = Undefined
		}
		newChild, ok := dotSet(child, rest, value)
		if !ok {
			return cur, false
		}
		obj[head] = newChild
		return Object(obj), true
	case KindArray:
		idx, err := strconv.Atoi(head)
		if err != nil || idx < 0 {
			return cur, false
		}
		arr := cloneShallowArray(cur.arr)
		for len(arr) <= idx {
			arr = append(arr, Undefined)
		}
		if len(rest) == 0 {
			arr[idx] = value
			return Array(arr), true
		}
		newChild, ok := dotSet(arr[idx], rest, value)
		if !ok {
			return cur, false
		}
		arr[idx] = newChild
		return Array(arr), true
	default:
		// Scalar in the path: refuse, per spec.md §4.3 ("leaf not created").
		return cur, false
	}
}

// DotUnset removes the leaf at path, refusing to fabricate any intermediate
// object (spec.md §4.3's $unset rule). Returns ok=false (no-op) if any
// intermediate segment is missing or not an Object/Array.
func DotUnset(root Value, path string) (Value, bool) {
	segs := strings.Split(path, ".")
	return dotUnset(root, segs)
}

func dotUnset(cur Value, segs []string) (Value, bool) {
	head := segs[0]
	rest := segs[1:]

	switch cur.kind {
	case KindObject:
		obj := cloneShallowObject(cur.obj)
		child, ok := obj[head]
		if !ok {
			return cur, false
		}
		if len(rest) == 0 {
			delete(obj, head)
			return Object(obj), true
		}
		newChild, ok := dotUnset(child, rest)
		if !ok {
			return cur, false
		}
		obj[head] = newChild
		return Object(obj), true
	case KindArray:
		idx, err := strconv.Atoi(head)
		if err != nil || idx < 0 || idx >= len(cur.arr) {
			return cur, false
		}
		arr := cloneShallowArray(cur.arr)
		if len(rest) == 0 {
			arr[idx] = Undefined
			return Array(arr), true
		}
		newChild, ok := dotUnset(arr[idx], rest)
		if !ok {
			return cur, false
		}
		arr[idx] = newChild
		return Array(arr), true
	default:
		return cur, false
	}
}

func cloneShallowObject(m map[string]Value) map[string]Value {
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneShallowArray(a []Value) []Value {
	out := make([]Value, len(a))
	copy(out, a)
	return out
}
