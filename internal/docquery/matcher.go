// Package docquery implements spec.md §4.2's query matcher: evaluating a
// predicate tree (built from plain Go maps/slices/scalars plus *regexp.Regexp
// leaves, the same way callers build queries against this library) against a
// docval.Value document.
package docquery

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/edirooss/docdb/internal/docerr"
	"github.com/edirooss/docdb/internal/docval"
)

// WhereFunc is the shape a $where predicate value must have.
type WhereFunc func(doc docval.Value) bool

// Match implements spec.md §4.2. A query is either an object of fields and
// operators, or (the primitive shortcut) a bare value compared directly.
// When either the query or doc is not an object, Match dispatches to the
// same field-predicate evaluator used for every leaf of an object query,
// since that evaluator already handles "x vs v" for any x and v without
// needing a field name.
func Match(doc docval.Value, query any) (bool, error) {
	m, ok := query.(map[string]any)
	if !ok || doc.Kind() != docval.KindObject {
		return matchFieldPredicate(doc, query)
	}
	return matchObject(doc, m)
}

func matchObject(doc docval.Value, q map[string]any) (bool, error) {
	for key, val := range q {
		ok, err := matchTopLevelEntry(doc, key, val)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchTopLevelEntry(doc docval.Value, key string, val any) (bool, error) {
	switch key {
	case "$or":
		subs, ok := val.([]any)
		if !ok {
			return false, fmt.Errorf("%w: $or requires an array of subqueries", docerr.ErrModifierArgType)
		}
		for _, sub := range subs {
			ok, err := Match(doc, sub)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case "$and":
		subs, ok := val.([]any)
		if !ok {
			return false, fmt.Errorf("%w: $and requires an array of subqueries", docerr.ErrModifierArgType)
		}
		for _, sub := range subs {
			ok, err := Match(doc, sub)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case "$not":
		ok, err := Match(doc, val)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case "$where":
		fn, ok := val.(WhereFunc)
		if !ok {
			return false, fmt.Errorf("%w: $where requires a WhereFunc", docerr.ErrModifierArgType)
		}
		return fn(doc), nil
	default:
		if strings.HasPrefix(key, "$") {
			return false, fmt.Errorf("%w: %q", docerr.ErrUnknownOperator, key)
		}
		x := docval.DotGet(doc, key)
		return matchFieldPredicate(x, val)
	}
}

// matchFieldPredicate evaluates a single field value x against predicate v
// per spec.md §4.2's five-step rule.
func matchFieldPredicate(x docval.Value, v any) (bool, error) {
	if x.Kind() == docval.KindArray {
		treatAsValue, err := arrayTreatedAsValue(v)
		if err != nil {
			return false, err
		}
		if !treatAsValue {
			for _, elem := range x.AsArray() {
				ok, err := matchFieldPredicate(elem, v)
				if err != nil {
					return false, err
				}
				if ok {
					return true, nil
				}
			}
			return false, nil
		}
	}

	if m, ok := v.(map[string]any); ok {
		hasOp, hasPlain := scanOperatorKeys(m)
		if hasOp {
			if hasPlain {
				return false, docerr.ErrMixedOperators
			}
			return evalOperators(x, m)
		}
		return valueEqual(x, docval.FromGo(v)), nil
	}

	if rx, ok := v.(*regexp.Regexp); ok {
		return applyRegex(x, rx)
	}

	return valueEqual(x, docval.FromGo(v)), nil
}

func arrayTreatedAsValue(v any) (bool, error) {
	switch t := v.(type) {
	case []any:
		return true, nil
	case map[string]any:
		for k := range t {
			if k == "$size" || k == "$elemMatch" || k == "$all" {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

func scanOperatorKeys(m map[string]any) (hasOp, hasPlain bool) {
	for k := range m {
		if strings.HasPrefix(k, "$") {
			hasOp = true
		} else {
			hasPlain = true
		}
	}
	return
}

// valueEqual is the matcher's own equality rule: docval.Equal refuses arrays
// entirely, but the matcher needs array-literal queries ({tags: ["a","b"]})
// to compare structurally against an array field — spec.md §4.2 rule 2a.
func valueEqual(x, v docval.Value) bool {
	if x.Kind() == docval.KindArray && v.Kind() == docval.KindArray {
		return docval.ArrayElementsEqual(x, v)
	}
	return docval.Equal(x, v)
}

func applyRegex(x docval.Value, rx *regexp.Regexp) (bool, error) {
	if x.Kind() != docval.KindString {
		return false, nil
	}
	return rx.MatchString(x.AsString()), nil
}
