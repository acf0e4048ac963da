package docquery

import (
	"testing"

	"github.com/edirooss/docdb/internal/docval"
)

func fieldDoc(key string, v any) docval.Value {
	return docval.FromGo(map[string]any{key: v})
}

func TestInNin(t *testing.T) {
	d := fieldDoc("x", 2.0)
	ok, err := Match(d, map[string]any{"x": map[string]any{"$in": []any{1.0, 2.0, 3.0}}})
	if err != nil || !ok {
		t.Fatalf("expected $in match, got ok=%v err=%v", ok, err)
	}
	ok, err = Match(d, map[string]any{"x": map[string]any{"$nin": []any{1.0, 3.0}}})
	if err != nil || !ok {
		t.Fatalf("expected $nin match, got ok=%v err=%v", ok, err)
	}
}

func TestSizeAndElemMatch(t *testing.T) {
	d := fieldDoc("tags", []any{"a", "b", "c"})
	ok, err := Match(d, map[string]any{"tags": map[string]any{"$size": 3}})
	if err != nil || !ok {
		t.Fatalf("expected $size match, got ok=%v err=%v", ok, err)
	}
	ok, err = Match(d, map[string]any{"tags": map[string]any{"$elemMatch": "b"}})
	if err != nil || !ok {
		t.Fatalf("expected $elemMatch match, got ok=%v err=%v", ok, err)
	}
}

func TestAllRequiresEveryElement(t *testing.T) {
	d := fieldDoc("tags", []any{"a", "b", "c"})
	ok, err := Match(d, map[string]any{"tags": map[string]any{"$all": []any{"a", "b"}}})
	if err != nil || !ok {
		t.Fatalf("expected $all match, got ok=%v err=%v", ok, err)
	}
	ok, err = Match(d, map[string]any{"tags": map[string]any{"$all": []any{"a", "z"}}})
	if err != nil || ok {
		t.Fatalf("expected $all to fail when one element is absent, got ok=%v err=%v", ok, err)
	}
}

func TestTypeOperator(t *testing.T) {
	d := fieldDoc("x", "hello")
	ok, err := Match(d, map[string]any{"x": map[string]any{"$type": "string"}})
	if err != nil || !ok {
		t.Fatalf("expected $type match, got ok=%v err=%v", ok, err)
	}
	ok, err = Match(d, map[string]any{"x": map[string]any{"$type": "number"}})
	if err != nil || ok {
		t.Fatalf("expected $type mismatch, got ok=%v err=%v", ok, err)
	}
}

func TestUnknownOperatorErrors(t *testing.T) {
	d := fieldDoc("x", 1.0)
	_, err := Match(d, map[string]any{"x": map[string]any{"$bogus": 1}})
	if err == nil {
		t.Error("expected error for unknown comparison operator")
	}
}
