package docval

import "time"

// FromGo converts a native Go value (as produced by encoding/json unmarshal
// into `any`, or built by hand by a caller) into a Value. Supported inputs:
// nil, bool, float64/float32/int family, string, time.Time, []any, map[string]any,
// and already-converted Value/[]Value/map[string]Value for convenience when
// composing queries and updates programmatically.
func FromGo(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null
	case Value:
		return t
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case string:
		return String(t)
	case time.Time:
		return Date(t.UnixMilli())
	case []Value:
		out := make([]Value, len(t))
		copy(out, t)
		return Array(out)
	case []any:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = FromGo(e)
		}
		return Array(out)
	case map[string]Value:
		out := make(map[string]Value, len(t))
		for k, v := range t {
			out[k] = v
		}
		return Object(out)
	case map[string]any:
		out := make(map[string]Value, len(t))
		for k, v := range t {
			out[k] = FromGo(v)
		}
		return Object(out)
	default:
		panic("docval: FromGo: unsupported type")
	}
}

// ToGo converts a Value back to native Go types suitable for
// encoding/json.Marshal or direct caller consumption. Undefined converts to
// nil (callers should not persist a document containing Undefined fields;
// serialize.go omits them instead of calling ToGo on them).
func ToGo(v Value) any {
	switch v.kind {
	case KindUndefined, KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindDate:
		return time.UnixMilli(v.d).UTC()
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = ToGo(e)
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[k] = ToGo(e)
		}
		return out
	default:
		panic("docval: ToGo: invalid kind")
	}
}
