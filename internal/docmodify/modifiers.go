package docmodify

import (
	"fmt"

	"github.com/edirooss/docdb/internal/docerr"
	"github.com/edirooss/docdb/internal/docquery"
	"github.com/edirooss/docdb/internal/docval"
)

func opSet(cur docval.Value, path string, val any, _ Clock) (docval.Value, error) {
	next, ok := docval.DotSet(cur, path, docval.FromGo(val))
	if !ok {
		return cur, nil // refused silently, per spec.md §4.3
	}
	return next, nil
}

func opUnset(cur docval.Value, path string, _ any, _ Clock) (docval.Value, error) {
	next, ok := docval.DotUnset(cur, path)
	if !ok {
		return cur, nil
	}
	return next, nil
}

func opInc(cur docval.Value, path string, val any, _ Clock) (docval.Value, error) {
	delta := docval.FromGo(val)
	if delta.Kind() != docval.KindNumber {
		return cur, fmt.Errorf("%w: $inc operand must be a number", docerr.ErrModifierArgType)
	}
	existing := docval.DotGet(cur, path)
	switch existing.Kind() {
	case docval.KindUndefined:
		return mustSet(cur, path, delta)
	case docval.KindNumber:
		return mustSet(cur, path, docval.Number(existing.AsNumber()+delta.AsNumber()))
	default:
		return cur, fmt.Errorf("%w: $inc on non-number field %q", docerr.ErrTypeMismatch, path)
	}
}

func opMin(cur docval.Value, path string, val any, _ Clock) (docval.Value, error) {
	return minMax(cur, path, val, func(c int) bool { return c < 0 })
}

func opMax(cur docval.Value, path string, val any, _ Clock) (docval.Value, error) {
	return minMax(cur, path, val, func(c int) bool { return c > 0 })
}

func minMax(cur docval.Value, path string, val any, better func(int) bool) (docval.Value, error) {
	newVal := docval.FromGo(val)
	existing := docval.DotGet(cur, path)
	if existing.Kind() == docval.KindUndefined {
		return mustSet(cur, path, newVal)
	}
	if better(docval.Compare(newVal, existing, nil)) {
		return mustSet(cur, path, newVal)
	}
	return cur, nil
}

// pushSpec carries the parsed shape of a $push/$addToSet operand: either a
// bare value to append, or an {$each: [...], $slice: n} object.
type pushSpec struct {
	each  []docval.Value
	slice int
	hasSlice bool
}

func parsePushArg(val any, allowSlice bool) (pushSpec, error) {
	m, ok := val.(map[string]any)
	if !ok {
		return pushSpec{each: []docval.Value{docval.FromGo(val)}}, nil
	}
	eachRaw, hasEach := m["$each"]
	if !hasEach {
		// A plain object value (no $each) is appended as a single element.
		return pushSpec{each: []docval.Value{docval.FromGo(val)}}, nil
	}
	for k := range m {
		if k == "$each" {
			continue
		}
		if k == "$slice" && allowSlice {
			continue
		}
		return pushSpec{}, fmt.Errorf("%w: unexpected key %q alongside $each", docerr.ErrModifierArgType, k)
	}
	eachList, ok := eachRaw.([]any)
	if !ok {
		return pushSpec{}, fmt.Errorf("%w: $each requires an array", docerr.ErrModifierArgType)
	}
	spec := pushSpec{each: make([]docval.Value, len(eachList))}
	for i, e := range eachList {
		spec.each[i] = docval.FromGo(e)
	}
	if allowSlice {
		if sliceRaw, ok := m["$slice"]; ok {
			n, ok := asInt(sliceRaw)
			if !ok {
				return pushSpec{}, fmt.Errorf("%w: $slice requires an integer", docerr.ErrModifierArgType)
			}
			spec.slice = n
			spec.hasSlice = true
		}
	}
	return spec, nil
}

func opPush(cur docval.Value, path string, val any, _ Clock) (docval.Value, error) {
	spec, err := parsePushArg(val, true)
	if err != nil {
		return cur, err
	}
	arr, err := existingArray(cur, path)
	if err != nil {
		return cur, err
	}
	arr = append(arr, spec.each...)
	if spec.hasSlice {
		arr = applySlice(arr, spec.slice)
	}
	return mustSet(cur, path, docval.Array(arr))
}

func opAddToSet(cur docval.Value, path string, val any, _ Clock) (docval.Value, error) {
	spec, err := parsePushArg(val, false)
	if err != nil {
		return cur, err
	}
	arr, err := existingArray(cur, path)
	if err != nil {
		return cur, err
	}
	for _, candidate := range spec.each {
		if !containsDeep(arr, candidate) {
			arr = append(arr, candidate)
		}
	}
	return mustSet(cur, path, docval.Array(arr))
}

func containsDeep(arr []docval.Value, v docval.Value) bool {
	for _, e := range arr {
		if docval.ArrayElementsEqual(e, v) {
			return true
		}
	}
	return false
}

// applySlice implements spec.md §4.3's $slice: positive n keeps the first n
// elements, negative keeps the last |n|, 0 empties the array.
func applySlice(arr []docval.Value, n int) []docval.Value {
	switch {
	case n == 0:
		return []docval.Value{}
	case n > 0:
		if n >= len(arr) {
			return arr
		}
		return arr[:n]
	default:
		k := -n
		if k >= len(arr) {
			return arr
		}
		return arr[len(arr)-k:]
	}
}

func existingArray(cur docval.Value, path string) ([]docval.Value, error) {
	existing := docval.DotGet(cur, path)
	switch existing.Kind() {
	case docval.KindUndefined:
		return []docval.Value{}, nil
	case docval.KindArray:
		out := make([]docval.Value, len(existing.AsArray()))
		copy(out, existing.AsArray())
		return out, nil
	default:
		return nil, fmt.Errorf("%w: field %q is not an array", docerr.ErrTypeMismatch, path)
	}
}

func opPop(cur docval.Value, path string, val any, _ Clock) (docval.Value, error) {
	n, ok := asInt(val)
	if !ok {
		return cur, fmt.Errorf("%w: $pop requires an integer", docerr.ErrModifierArgType)
	}
	existing := docval.DotGet(cur, path)
	if existing.Kind() != docval.KindArray {
		return cur, fmt.Errorf("%w: $pop on non-array field %q", docerr.ErrTypeMismatch, path)
	}
	arr := existing.AsArray()
	switch {
	case n == 0:
		return cur, nil
	case len(arr) == 0:
		return cur, nil
	case n > 0:
		return mustSet(cur, path, docval.Array(append([]docval.Value{}, arr[:len(arr)-1]...)))
	default:
		return mustSet(cur, path, docval.Array(append([]docval.Value{}, arr[1:]...)))
	}
}

func opPull(cur docval.Value, path string, val any, _ Clock) (docval.Value, error) {
	existing := docval.DotGet(cur, path)
	if existing.Kind() != docval.KindArray {
		return cur, nil // nothing to pull from
	}
	out := make([]docval.Value, 0, len(existing.AsArray()))
	for _, elem := range existing.AsArray() {
		ok, err := docquery.Match(elem, val)
		if err != nil {
			return cur, err
		}
		if !ok {
			out = append(out, elem)
		}
	}
	return mustSet(cur, path, docval.Array(out))
}

func opRename(cur docval.Value, path string, val any, _ Clock) (docval.Value, error) {
	newPath, ok := val.(string)
	if !ok {
		return cur, fmt.Errorf("%w: $rename requires a string destination path", docerr.ErrModifierArgType)
	}
	leaf := docval.DotGet(cur, path)
	if leaf.Kind() == docval.KindUndefined {
		return cur, nil
	}
	next, ok := docval.DotUnset(cur, path)
	if !ok {
		return cur, nil
	}
	return mustSet(next, newPath, leaf)
}

func opCurrentDate(cur docval.Value, path string, val any, clock Clock) (docval.Value, error) {
	if !docval.FromGo(val).Truthy() {
		return cur, nil
	}
	if clock == nil {
		return cur, fmt.Errorf("%w: $currentDate requires a clock", docerr.ErrModifierArgType)
	}
	return mustSet(cur, path, docval.Date(clock().UnixMilli()))
}

func mustSet(cur docval.Value, path string, v docval.Value) (docval.Value, error) {
	next, ok := docval.DotSet(cur, path, v)
	if !ok {
		return cur, fmt.Errorf("%w: cannot create field %q through a scalar", docerr.ErrTypeMismatch, path)
	}
	return next, nil
}

func asInt(arg any) (int, bool) {
	switch t := arg.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t != float64(int(t)) {
			return 0, false
		}
		return int(t), true
	default:
		return 0, false
	}
}
