package docmodify

import (
	"testing"
	"time"

	"github.com/edirooss/docdb/internal/docval"
)

func get(v docval.Value, path string) docval.Value {
	return docval.DotGet(v, path)
}

func TestFullReplacePreservesID(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a", "x": 1.0})
	out, err := Modify(obj, map[string]any{"y": 2.0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if get(out, "_id").AsString() != "a" {
		t.Error("_id should survive a full replace")
	}
	if !get(out, "x").IsUndefined() {
		t.Error("full replace should drop fields not present in the replacement")
	}
	if get(out, "y").AsNumber() != 2 {
		t.Error("replacement field missing")
	}
}

func TestFullReplaceRejectsIDChange(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a"})
	_, err := Modify(obj, map[string]any{"_id": "b"}, nil)
	if err == nil {
		t.Error("expected an error changing _id via full replace")
	}
}

func TestMixedOperatorAndPlainKeysRejected(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a"})
	_, err := Modify(obj, map[string]any{"$set": map[string]any{"x": 1.0}, "y": 2.0}, nil)
	if err == nil {
		t.Error("expected an error mixing a modifier key with a plain key")
	}
}

func TestSetAndUnset(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a", "x": 1.0})
	out, err := Modify(obj, map[string]any{"$set": map[string]any{"y": 2.0}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if get(out, "y").AsNumber() != 2 {
		t.Error("$set did not apply")
	}

	out, err = Modify(out, map[string]any{"$unset": map[string]any{"x": ""}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !get(out, "x").IsUndefined() {
		t.Error("$unset did not remove the field")
	}
}

func TestIncOnMissingAndExisting(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a"})
	out, err := Modify(obj, map[string]any{"$inc": map[string]any{"n": 5.0}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if get(out, "n").AsNumber() != 5 {
		t.Error("$inc on missing field should behave like $set")
	}

	out, err = Modify(out, map[string]any{"$inc": map[string]any{"n": 3.0}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if get(out, "n").AsNumber() != 8 {
		t.Error("$inc did not accumulate")
	}
}

func TestIncRejectsNonNumberField(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a", "n": "not a number"})
	_, err := Modify(obj, map[string]any{"$inc": map[string]any{"n": 1.0}}, nil)
	if err == nil {
		t.Error("expected an error incrementing a non-number field")
	}
}

func TestMinMax(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a", "n": 5.0})
	out, err := Modify(obj, map[string]any{"$min": map[string]any{"n": 3.0}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if get(out, "n").AsNumber() != 3 {
		t.Error("$min should replace with the smaller value")
	}

	out, err = Modify(out, map[string]any{"$min": map[string]any{"n": 10.0}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if get(out, "n").AsNumber() != 3 {
		t.Error("$min should keep the existing smaller value")
	}

	out, err = Modify(out, map[string]any{"$max": map[string]any{"n": 7.0}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if get(out, "n").AsNumber() != 7 {
		t.Error("$max should replace with the larger value")
	}
}

func TestPushEachAndSlice(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a", "arr": []any{"hello"}})
	out, err := Modify(obj, map[string]any{
		"$push": map[string]any{
			"arr": map[string]any{
				"$each":  []any{"w", "e", "x"},
				"$slice": -2.0,
			},
		},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	arr := get(out, "arr").AsArray()
	if len(arr) != 2 || arr[0].AsString() != "e" || arr[1].AsString() != "x" {
		t.Errorf("expected [e x], got %v", arr)
	}
}

func TestPushOnMissingFieldCreatesArray(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a"})
	out, err := Modify(obj, map[string]any{"$push": map[string]any{"arr": "only"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	arr := get(out, "arr").AsArray()
	if len(arr) != 1 || arr[0].AsString() != "only" {
		t.Errorf("expected [only], got %v", arr)
	}
}

func TestPushRejectsNonArrayField(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a", "arr": "not an array"})
	_, err := Modify(obj, map[string]any{"$push": map[string]any{"arr": "x"}}, nil)
	if err == nil {
		t.Error("expected an error pushing onto a non-array field")
	}
}

func TestAddToSetDeduplicates(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a", "arr": []any{"x", "y"}})
	out, err := Modify(obj, map[string]any{"$addToSet": map[string]any{"arr": "x"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	arr := get(out, "arr").AsArray()
	if len(arr) != 2 {
		t.Errorf("expected no duplicate inserted, got %v", arr)
	}

	out, err = Modify(out, map[string]any{"$addToSet": map[string]any{"arr": "z"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	arr = get(out, "arr").AsArray()
	if len(arr) != 3 {
		t.Errorf("expected new element added, got %v", arr)
	}
}

func TestPopFirstAndLast(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a", "arr": []any{1.0, 2.0, 3.0}})
	out, err := Modify(obj, map[string]any{"$pop": map[string]any{"arr": 1.0}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	arr := get(out, "arr").AsArray()
	if len(arr) != 2 || arr[1].AsNumber() != 2 {
		t.Errorf("expected last element popped, got %v", arr)
	}

	out, err = Modify(out, map[string]any{"$pop": map[string]any{"arr": -1.0}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	arr = get(out, "arr").AsArray()
	if len(arr) != 1 || arr[0].AsNumber() != 2 {
		t.Errorf("expected first element popped, got %v", arr)
	}
}

func TestPopOnEmptyArrayIsNoop(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a", "arr": []any{}})
	out, err := Modify(obj, map[string]any{"$pop": map[string]any{"arr": 1.0}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(get(out, "arr").AsArray()) != 0 {
		t.Error("$pop on an empty array should be a no-op")
	}
}

func TestPullRemovesMatchingElements(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a", "arr": []any{1.0, 2.0, 3.0, 2.0}})
	out, err := Modify(obj, map[string]any{"$pull": map[string]any{"arr": 2.0}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	arr := get(out, "arr").AsArray()
	if len(arr) != 2 || arr[0].AsNumber() != 1 || arr[1].AsNumber() != 3 {
		t.Errorf("expected [1 3], got %v", arr)
	}
}

func TestRenameMovesField(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a", "old": 1.0})
	out, err := Modify(obj, map[string]any{"$rename": map[string]any{"old": "new"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !get(out, "old").IsUndefined() {
		t.Error("old path should no longer exist")
	}
	if get(out, "new").AsNumber() != 1 {
		t.Error("value should have moved to the new path")
	}
}

func TestRenameOnMissingFieldIsNoop(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a"})
	out, err := Modify(obj, map[string]any{"$rename": map[string]any{"old": "new"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !get(out, "new").IsUndefined() {
		t.Error("$rename on a missing field should be a no-op")
	}
}

func TestCurrentDateUsesClock(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	clock := func() time.Time { return fixed }
	obj := docval.FromGo(map[string]any{"_id": "a"})
	out, err := Modify(obj, map[string]any{"$currentDate": map[string]any{"updatedAt": true}}, clock)
	if err != nil {
		t.Fatal(err)
	}
	if get(out, "updatedAt").AsDateMS() != fixed.UnixMilli() {
		t.Error("$currentDate should stamp the clock's current time")
	}
}

func TestCurrentDateWithoutClockErrors(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a"})
	_, err := Modify(obj, map[string]any{"$currentDate": map[string]any{"updatedAt": true}}, nil)
	if err == nil {
		t.Error("expected an error when $currentDate is used without a clock")
	}
}

func TestUnknownModifierErrors(t *testing.T) {
	obj := docval.FromGo(map[string]any{"_id": "a"})
	_, err := Modify(obj, map[string]any{"$bogus": map[string]any{"x": 1.0}}, nil)
	if err == nil {
		t.Error("expected an error for an unknown modifier")
	}
}
