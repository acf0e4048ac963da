package cursor

import (
	"testing"

	"github.com/edirooss/docdb/internal/docval"
	"github.com/edirooss/docdb/internal/document"
)

func cdoc(id string, fields map[string]any) *document.Document {
	m := map[string]any{"_id": id}
	for k, v := range fields {
		m[k] = v
	}
	return document.New(docval.FromGo(m))
}

func TestFilterMatchesPredicate(t *testing.T) {
	docs := []*document.Document{
		cdoc("1", map[string]any{"age": 20.0}),
		cdoc("2", map[string]any{"age": 30.0}),
	}
	c := New(docs, nil).Filter(map[string]any{"age": map[string]any{"$gte": 25.0}})
	out, err := c.Exec()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].AsObject()["_id"].AsString() != "2" {
		t.Errorf("expected only doc 2 to match, got %v", out)
	}
}

func TestNilQueryPassesEverythingThrough(t *testing.T) {
	docs := []*document.Document{cdoc("1", nil), cdoc("2", nil)}
	out, err := New(docs, nil).Exec()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Errorf("expected both documents with no filter, got %d", len(out))
	}
}

func TestSortPerKeyDirection(t *testing.T) {
	docs := []*document.Document{
		cdoc("1", map[string]any{"age": 20.0, "name": "b"}),
		cdoc("2", map[string]any{"age": 20.0, "name": "a"}),
		cdoc("3", map[string]any{"age": 30.0, "name": "c"}),
	}
	out, err := New(docs, nil).
		Sort(SortKey{Field: "age", Direction: 1}, SortKey{Field: "name", Direction: -1}).
		Exec()
	if err != nil {
		t.Fatal(err)
	}
	ids := []string{out[0].AsObject()["_id"].AsString(), out[1].AsObject()["_id"].AsString(), out[2].AsObject()["_id"].AsString()}
	// age ascending (20, 20, 30), name descending within the age-20 tie (b before a).
	want := []string{"1", "2", "3"}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("position %d: want %s, got %s (full order %v)", i, want[i], ids[i], ids)
		}
	}
}

func TestSkipAndLimit(t *testing.T) {
	docs := []*document.Document{
		cdoc("1", map[string]any{"n": 1.0}),
		cdoc("2", map[string]any{"n": 2.0}),
		cdoc("3", map[string]any{"n": 3.0}),
	}
	out, err := New(docs, nil).Sort(SortKey{Field: "n", Direction: 1}).Skip(1).Limit(1).Exec()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].AsObject()["_id"].AsString() != "2" {
		t.Errorf("expected only doc 2 after skip=1 limit=1, got %v", out)
	}
}

func TestSkipBeyondLengthReturnsEmpty(t *testing.T) {
	docs := []*document.Document{cdoc("1", nil)}
	out, err := New(docs, nil).Skip(5).Exec()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty result skipping past the end, got %v", out)
	}
}

func TestProjectRestrictsFields(t *testing.T) {
	docs := []*document.Document{cdoc("1", map[string]any{"a": 1.0, "b": 2.0})}
	out, err := New(docs, nil).Project("a").Exec()
	if err != nil {
		t.Fatal(err)
	}
	obj := out[0].AsObject()
	if _, ok := obj["b"]; ok {
		t.Error("projected result should not include unrequested fields")
	}
	if obj["a"].AsNumber() != 1 {
		t.Error("projected field missing or wrong")
	}
}

func TestExecReturnsIndependentCopies(t *testing.T) {
	d := cdoc("1", map[string]any{"a": 1.0})
	docs := []*document.Document{d}
	out, err := New(docs, nil).Exec()
	if err != nil {
		t.Fatal(err)
	}
	// Mutating the returned value must not be possible to observe back on d;
	// docval.Value being mutated locally here would only affect out[0].
	_ = out[0]
	if d.Field("a").AsNumber() != 1 {
		t.Error("source document should be unaffected by Exec")
	}
}

func TestCountIgnoresSortSkipLimit(t *testing.T) {
	docs := []*document.Document{
		cdoc("1", map[string]any{"n": 1.0}),
		cdoc("2", map[string]any{"n": 2.0}),
	}
	n, err := New(docs, nil).Sort(SortKey{Field: "n", Direction: 1}).Skip(1).Limit(1).Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected Count to ignore skip/limit and report 2, got %d", n)
	}
}
