package docval

// Equal implements spec.md §4.1's equal: native types compared by value,
// dates by timestamp, objects by key-set equality and recursive equality.
// Any Undefined operand, or an Array on only one side, yields false — arrays
// are intentionally excluded from deep equality here because $in-style
// "does this array contain a matching element" semantics live in docquery,
// not here.
func Equal(a, b Value) bool {
	if a.kind == KindUndefined || b.kind == KindUndefined {
		return false
	}
	if a.kind == KindArray || b.kind == KindArray {
		return false
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindString:
		return a.s == b.s
	case KindDate:
		return a.d == b.d
	case KindObject:
		return equalObjects(a.obj, b.obj)
	default:
		return false
	}
}

func equalObjects(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		if !Equal(av, bv) {
			return false
		}
	}
	return true
}

// ArrayElementsEqual reports whether two arrays have the same length and
// each pair of elements is deep-equal, treating nested arrays structurally
// (unlike Equal, which refuses arrays). Used by $addToSet's duplicate check
// and $pull's structural matches, where the spec calls for "deep-equal".
func ArrayElementsEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	if a.kind == KindArray {
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !ArrayElementsEqual(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	}
	if a.kind == KindObject {
		if len(a.obj) != len(b.obj) {
			return false
		}
		for k, av := range a.obj {
			bv, ok := b.obj[k]
			if !ok || !ArrayElementsEqual(av, bv) {
				return false
			}
		}
		return true
	}
	return Equal(a, b)
}
