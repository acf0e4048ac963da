// Package docmodify implements spec.md §4.3's modifier engine: applying
// update operators to a document to produce a new, independent document.
package docmodify

import (
	"fmt"
	"strings"
	"time"

	"github.com/edirooss/docdb/internal/docerr"
	"github.com/edirooss/docdb/internal/docval"
)

// Clock supplies the current time for $currentDate (and, at the façade
// layer, createdAt/updatedAt stamping) — the "clock/UID generator" external
// collaborator spec.md §1 names, threaded down to whichever modifier needs
// it rather than read from a package global.
type Clock func() time.Time

// Modify implements spec.md §4.3. update's top-level keys decide the mode:
// no '$'-prefixed key means a full replace; otherwise every top-level key
// must be '$'-prefixed and is applied as a modifier op over (path -> value)
// pairs.
func Modify(obj docval.Value, update map[string]any, clock Clock) (docval.Value, error) {
	hasOp, hasPlain := scanTopLevelKeys(update)

	if !hasOp {
		return fullReplace(obj, update)
	}
	if hasPlain {
		return obj, docerr.ErrMixedOperators
	}

	cur := obj
	for modKey, arg := range update {
		argMap, ok := arg.(map[string]any)
		if !ok {
			return obj, fmt.Errorf("%w: %s requires an object of path -> operand", docerr.ErrModifierArgType, modKey)
		}
		next, err := applyModifier(cur, modKey, argMap, clock)
		if err != nil {
			return obj, err
		}
		cur = next
	}

	if err := docval.ValidateKeysDeep(cur); err != nil {
		return obj, err
	}
	if !idsEqual(cur, obj) {
		return obj, docerr.ErrImmutableID
	}
	return cur, nil
}

func scanTopLevelKeys(update map[string]any) (hasOp, hasPlain bool) {
	for k := range update {
		if strings.HasPrefix(k, "$") {
			hasOp = true
		} else {
			hasPlain = true
		}
	}
	return
}

func fullReplace(obj docval.Value, update map[string]any) (docval.Value, error) {
	replacement := docval.DeepCopy(docval.FromGo(update), false)
	if replacement.Kind() != docval.KindObject {
		return obj, fmt.Errorf("%w: replacement document must be an object", docerr.ErrModifierArgType)
	}
	if err := docval.ValidateKeysDeep(replacement); err != nil {
		return obj, err
	}

	fields := replacement.AsObject()
	oldID, hasOldID := obj.AsObject()["_id"]
	if newID, ok := fields["_id"]; ok && hasOldID {
		if !docval.Equal(newID, oldID) {
			return obj, docerr.ErrImmutableID
		}
	}

	out := make(map[string]docval.Value, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	if hasOldID {
		out["_id"] = oldID
	}
	return docval.Object(out), nil
}

func applyModifier(cur docval.Value, modKey string, args map[string]any, clock Clock) (docval.Value, error) {
	apply, ok := modifierTable[modKey]
	if !ok {
		return cur, fmt.Errorf("%w: %q", docerr.ErrUnknownModifier, modKey)
	}
	for path, val := range args {
		next, err := apply(cur, path, val, clock)
		if err != nil {
			return cur, err
		}
		cur = next
	}
	return cur, nil
}

func idsEqual(a, b docval.Value) bool {
	ao, aok := a.AsObject()["_id"]
	bo, bok := b.AsObject()["_id"]
	if aok != bok {
		return false
	}
	if !aok {
		return true
	}
	return docval.Equal(ao, bo)
}

type modifierFunc func(cur docval.Value, path string, val any, clock Clock) (docval.Value, error)

var modifierTable = map[string]modifierFunc{
	"$set":         opSet,
	"$unset":       opUnset,
	"$inc":         opInc,
	"$min":         opMin,
	"$max":         opMax,
	"$push":        opPush,
	"$addToSet":    opAddToSet,
	"$pop":         opPop,
	"$pull":        opPull,
	"$rename":      opRename,
	"$currentDate": opCurrentDate,
}
