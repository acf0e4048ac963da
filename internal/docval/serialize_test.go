package docval

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	tests := []Value{
		Null,
		Bool(true),
		Number(3.5),
		String("hello\nworld"),
		Date(1700000000000),
		Array([]Value{Number(1), String("a"), Null}),
		Object(map[string]Value{"x": Number(1), "nested": Object(map[string]Value{"y": String("z")})}),
	}
	for _, v := range tests {
		line, err := Serialize(v)
		if err != nil {
			t.Fatalf("serialize(%v): %v", v, err)
		}
		back, err := Deserialize(line)
		if err != nil {
			t.Fatalf("deserialize(%q): %v", line, err)
		}
		if !roundTripEqual(v, back) {
			t.Errorf("round trip mismatch:\nwant %s\ngot  %s", spew.Sdump(v), spew.Sdump(back))
		}
	}
}

// roundTripEqual compares values the way the round-trip law requires: equal
// under Equal for scalars/objects, and recursively for arrays (which Equal
// itself refuses to compare).
func roundTripEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	if a.kind == KindArray {
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !roundTripEqual(a.arr[i], b.arr[i]) {
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
			if !ok || !roundTripEqual(av, bv) {
				return false
			}
		}
		return true
	}
	return Equal(a, b)
}

func TestSerializeOmitsUndefinedFields(t *testing.T) {
	v := Object(map[string]Value{"present": Number(1), "missing": Undefined})
	line, err := Serialize(v)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Deserialize(line)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := back.AsObject()["missing"]; ok {
		t.Error("Undefined field should have been omitted, not round-tripped")
	}
}

func TestSerializeRejectsInvalidKeys(t *testing.T) {
	v := Object(map[string]Value{"$bad": Number(1)})
	if _, err := Serialize(v); err == nil {
		t.Error("expected error serializing a '$'-prefixed non-reserved key")
	}
}

func TestSerializeAllowsReservedKeys(t *testing.T) {
	v := Object(map[string]Value{"_id": String("a"), "$$deleted": Bool(true)})
	if _, err := Serialize(v); err != nil {
		t.Errorf("reserved tombstone key should serialize: %v", err)
	}
}

func TestDeserializeUnknownDollarKeyPassesThrough(t *testing.T) {
	back, err := Deserialize(`{"$weird":1}`)
	if err != nil {
		t.Fatal(err)
	}
	if back.AsObject()["$weird"].AsNumber() != 1 {
		t.Error("unrecognized '$'-looking key should pass through as data")
	}
}
