package docval

import (
	"encoding/json"
	"fmt"

	"github.com/edirooss/docdb/internal/docerr"
)

// reservedRecordKeys are the only '$'-prefixed keys spec.md §3 allows to
// survive serialization as literal object keys: the tombstone/index-lifecycle
// record markers. '$$date' is not in this set — it is never a field key, it
// is the wire shape Date values serialize to (see dateWrap/dateUnwrap below).
var reservedRecordKeys = map[string]bool{
	"$$deleted":      true,
	"$$indexCreated": true,
	"$$indexRemoved": true,
}

// Serialize produces spec.md §4.1's one-line textual form of v. Dates become
// {"$$date": ms}. Undefined object fields are omitted rather than emitted.
// Field names are validated during the walk and fail the whole operation
// (never silently dropped) unless they are one of the three record markers
// in reservedRecordKeys; '$$date' appears only as the wire form of Date
// values, and a literal '$$date' field key is rejected like any other.
func Serialize(v Value) (string, error) {
	jv, err := toJSONable(v)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(jv)
	if err != nil {
		return "", fmt.Errorf("docval: serialize: %w", err)
	}
	return string(b), nil
}

func toJSONable(v Value) (any, error) {
	switch v.kind {
	case KindUndefined:
		// Never persisted; a caller that hits this has a bug upstream
		// (serializeObject skips Undefined fields before recursing here).
		return nil, nil
	case KindNull:
		return nil, nil
	case KindBool:
		return v.b, nil
	case KindNumber:
		return v.n, nil
	case KindString:
		return v.s, nil
	case KindDate:
		return map[string]any{"$$date": float64(v.d)}, nil
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			jv, err := toJSONable(e)
			if err != nil {
				return nil, err
			}
			out[i] = jv
		}
		return out, nil
	case KindObject:
		return serializeObject(v.obj)
	default:
		return nil, fmt.Errorf("docval: serialize: invalid kind %v", v.kind)
	}
}

func serializeObject(obj map[string]Value) (map[string]any, error) {
	out := make(map[string]any, len(obj))
	for k, fv := range obj {
		if fv.kind == KindUndefined {
			continue // omitted, never persisted
		}
		if !ValidKey(k) && !reservedRecordKeys[k] {
			return nil, fmt.Errorf("%w: %q", docerr.ErrInvalidKey, k)
		}
		jv, err := toJSONable(fv)
		if err != nil {
			return nil, err
		}
		out[k] = jv
	}
	return out, nil
}

// Deserialize is the inverse of Serialize: {"$$date": n} rehydrates to a
// Date value; any other object is rehydrated field-by-field. Unknown
// reserved-looking keys (an object field starting with '$' that isn't
// '$$date' itself) pass through untouched — they are data, per spec.md
// §4.1.
func Deserialize(line string) (Value, error) {
	var raw any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Undefined, fmt.Errorf("docval: deserialize: %w", err)
	}
	return fromJSONable(raw), nil
}

func fromJSONable(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case string:
		return String(t)
	case []any:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = fromJSONable(e)
		}
		return Array(out)
	case map[string]any:
		if ms, ok := dateWrap(t); ok {
			return Date(ms)
		}
		out := make(map[string]Value, len(t))
		for k, e := range t {
			out[k] = fromJSONable(e)
		}
		return Object(out)
	default:
		return Undefined
	}
}

// dateWrap reports whether obj is exactly the {"$$date": <number>} shape.
func dateWrap(obj map[string]any) (int64, bool) {
	if len(obj) != 1 {
		return 0, false
	}
	n, ok := obj["$$date"]
	if !ok {
		return 0, false
	}
	f, ok := n.(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
