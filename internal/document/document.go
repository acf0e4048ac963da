// Package document defines the canonical in-memory document representation
// shared between the index layer and the datastore façade, so that indexes
// can hold references to "the single canonical document" (DESIGN.md,
// spec.md §9) rather than copies.
package document

import "github.com/edirooss/docdb/internal/docval"

// Document is a live, in-memory document: an Object Value plus its
// mandatory, immutable _id. Indexes store *Document references; readers
// always receive a deep copy (see docval.DeepCopy) before the reference
// crosses back out to a caller.
type Document struct {
	ID    string
	Value docval.Value
}

// New wraps an Object value as a Document, extracting _id. Panics if v is
// not an Object with a string _id — callers must validate before this point
// (the façade's insert path does so before ever constructing a Document).
func New(v docval.Value) *Document {
	obj := v.AsObject()
	id, ok := obj["_id"]
	if !ok || id.Kind() != docval.KindString {
		panic("document: value has no string _id")
	}
	return &Document{ID: id.AsString(), Value: v}
}

// Field extracts a dot-path from the document's value.
func (d *Document) Field(path string) docval.Value {
	if path == "_id" {
		return docval.String(d.ID)
	}
	return docval.DotGet(d.Value, path)
}

// Copy returns a deep, isolated copy of the document's value — the "reads
// return deep copies; internal indexes hold originals" rule from spec.md §6.
func (d *Document) Copy() docval.Value {
	return docval.DeepCopy(d.Value, false)
}
