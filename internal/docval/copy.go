package docval

import (
	"fmt"
	"strings"

	"github.com/edirooss/docdb/internal/docerr"
)

// DeepCopy recursively clones v. When strictKeys is true, Object keys that
// begin with '$' or contain '.' are silently dropped from the copy instead
// of causing failure — spec.md §4.1's deep_copy(v, strict_keys) contract.
// The modifier engine's full replace copies with strictKeys false and then
// rejects invalid keys via ValidateKeysDeep instead of dropping them.
func DeepCopy(v Value, strictKeys bool) Value {
	switch v.kind {
	case KindArray:
		out := make([]Value, len(v.arr))
		for i, e := range v.arr {
			out[i] = DeepCopy(e, strictKeys)
		}
		return Array(out)
	case KindObject:
		out := make(map[string]Value, len(v.obj))
		for k, e := range v.obj {
			if strictKeys && !ValidKey(k) {
				continue
			}
			out[k] = DeepCopy(e, strictKeys)
		}
		return Object(out)
	default:
		return v
	}
}

// ValidKey reports whether a field name satisfies spec.md §3's rule: must
// not begin with '$' and must not contain '.'. Reserved persistence forms
// ($$date, $$deleted, $$indexCreated, $$indexRemoved) are validated
// separately by the persistence package, which is the only layer allowed to
// see them.
func ValidKey(key string) bool {
	if strings.HasPrefix(key, "$") {
		return false
	}
	return !strings.Contains(key, ".")
}

// Walk visits every field in v (recursively, for Objects) invoking fn with
// the dot-path accumulated so far. Returns the first error fn produces,
// aborting the walk. Field-name validation on insert and in modify's
// post-mutation check goes through ValidateKeysDeep, not Walk.
func Walk(v Value, prefix string, fn func(path string, val Value) error) error {
	if v.kind != KindObject {
		return nil
	}
	for k, child := range v.obj {
		if err := fn(joinPath(prefix, k), child); err != nil {
			return err
		}
		if err := Walk(child, joinPath(prefix, k), fn); err != nil {
			return err
		}
	}
	return nil
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// ValidateKeysDeep recursively checks every Object key in v against ValidKey,
// the way the modifier engine's post-mutation check and the datastore
// façade's insert-time validation both need to (spec.md §4.3, §7 InvalidKey).
func ValidateKeysDeep(v Value) error {
	switch v.kind {
	case KindObject:
		for k, child := range v.obj {
			if !ValidKey(k) {
				return fmt.Errorf("%w: %q", docerr.ErrInvalidKey, k)
			}
			if err := ValidateKeysDeep(child); err != nil {
				return err
			}
		}
	case KindArray:
		for _, e := range v.arr {
			if err := ValidateKeysDeep(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateFieldNames calls checkKey on each of obj's own top-level field
// names (not recursively) and returns the first error checkKey returns,
// unchanged. Insert-time and post-modify validation use ValidateKeysDeep,
// which checks every nesting level.
func ValidateFieldNames(obj Value, checkKey func(key string) error) error {
	if obj.kind != KindObject {
		return nil
	}
	for k := range obj.obj {
		if err := checkKey(k); err != nil {
			return err
		}
	}
	return nil
}
