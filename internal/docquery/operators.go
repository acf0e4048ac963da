package docquery

import (
	"fmt"
	"regexp"

	"github.com/edirooss/docdb/internal/docerr"
	"github.com/edirooss/docdb/internal/docval"
)

// evalOperators evaluates every $-key in ops against x, AND-ing the results,
// per spec.md §4.2.
func evalOperators(x docval.Value, ops map[string]any) (bool, error) {
	for op, arg := range ops {
		ok, err := evalOperator(x, op, arg)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evalOperator(x docval.Value, op string, arg any) (bool, error) {
	switch op {
	case "$lt":
		return cmpOp(x, arg, func(c int) bool { return c < 0 })
	case "$lte":
		return cmpOp(x, arg, func(c int) bool { return c <= 0 })
	case "$gt":
		return cmpOp(x, arg, func(c int) bool { return c > 0 })
	case "$gte":
		return cmpOp(x, arg, func(c int) bool { return c >= 0 })
	case "$ne":
		v := docval.FromGo(arg)
		return x.Kind() == docval.KindUndefined || !valueEqual(x, v), nil
	case "$in":
		return inList(x, arg)
	case "$nin":
		ok, err := inList(x, arg)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case "$regex":
		rx, ok := arg.(*regexp.Regexp)
		if !ok {
			return false, fmt.Errorf("%w: $regex requires a compiled *regexp.Regexp", docerr.ErrModifierArgType)
		}
		return applyRegex(x, rx)
	case "$exists":
		expect := docval.FromGo(arg).Truthy()
		actual := x.Kind() != docval.KindUndefined
		return expect == actual, nil
	case "$size":
		return sizeOp(x, arg)
	case "$elemMatch":
		return elemMatchOp(x, arg)
	case "$all":
		return allOp(x, arg)
	case "$type":
		name, ok := arg.(string)
		if !ok {
			return false, fmt.Errorf("%w: $type requires a string", docerr.ErrModifierArgType)
		}
		return x.Kind().String() == name, nil
	default:
		return false, fmt.Errorf("%w: %q", docerr.ErrUnknownOperator, op)
	}
}

func cmpOp(x docval.Value, arg any, accept func(int) bool) (bool, error) {
	v := docval.FromGo(arg)
	if !docval.Comparable(x, v) {
		return false, nil
	}
	return accept(docval.Compare(x, v, nil)), nil
}

func inList(x docval.Value, arg any) (bool, error) {
	list, ok := arg.([]any)
	if !ok {
		return false, fmt.Errorf("%w: $in/$nin require an array", docerr.ErrModifierArgType)
	}
	for _, cand := range list {
		if valueEqual(x, docval.FromGo(cand)) {
			return true, nil
		}
	}
	return false, nil
}

func sizeOp(x docval.Value, arg any) (bool, error) {
	if x.Kind() != docval.KindArray {
		return false, nil
	}
	n, ok := asInt(arg)
	if !ok {
		return false, fmt.Errorf("%w: $size requires an integer", docerr.ErrModifierArgType)
	}
	return len(x.AsArray()) == n, nil
}

func elemMatchOp(x docval.Value, arg any) (bool, error) {
	if x.Kind() != docval.KindArray {
		return false, nil
	}
	for _, elem := range x.AsArray() {
		ok, err := Match(elem, arg)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func allOp(x docval.Value, arg any) (bool, error) {
	if x.Kind() != docval.KindArray {
		return false, nil
	}
	want, ok := arg.([]any)
	if !ok {
		return false, fmt.Errorf("%w: $all requires an array", docerr.ErrModifierArgType)
	}
	for _, w := range want {
		wv := docval.FromGo(w)
		found := false
		for _, elem := range x.AsArray() {
			if docval.ArrayElementsEqual(elem, wv) {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
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
