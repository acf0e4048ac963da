package persistence

import (
	"fmt"

	"github.com/edirooss/docdb/internal/docval"
)

// RecordKind tags which of spec.md §3's four persistence record shapes a
// decoded line represents.
type RecordKind int

const (
	RecordDocument RecordKind = iota
	RecordTombstone
	RecordIndexCreated
	RecordIndexRemoved
)

// Record is one decoded journal line.
type Record struct {
	Kind RecordKind

	Doc         docval.Value    // RecordDocument
	DocID       string          // RecordTombstone
	Index       IndexDescriptor // RecordIndexCreated
	RemoveField string          // RecordIndexRemoved
}

// IndexDescriptor names an index for the $$indexCreated record shape and for
// the compaction writer that re-emits the currently live set of indexes.
type IndexDescriptor struct {
	FieldName string
	Unique    bool
}

// classify inspects a decoded Value and determines which record shape it is,
// per spec.md §3's four forms. Returns an error if it's shaped like none of
// them (e.g. an object with no _id and no reserved marker key).
func classify(v docval.Value) (Record, error) {
	if v.Kind() != docval.KindObject {
		return Record{}, fmt.Errorf("persistence: record is not an object")
	}
	obj := v.AsObject()

	if deleted, ok := obj["$$deleted"]; ok && deleted.Truthy() {
		idv, ok := obj["_id"]
		if !ok || idv.Kind() != docval.KindString {
			return Record{}, fmt.Errorf("persistence: tombstone missing string _id")
		}
		return Record{Kind: RecordTombstone, DocID: idv.AsString()}, nil
	}

	if created, ok := obj["$$indexCreated"]; ok {
		desc, err := decodeIndexDescriptor(created)
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: RecordIndexCreated, Index: desc}, nil
	}

	if removed, ok := obj["$$indexRemoved"]; ok {
		if removed.Kind() != docval.KindString {
			return Record{}, fmt.Errorf("persistence: $$indexRemoved must be a string field name")
		}
		return Record{Kind: RecordIndexRemoved, RemoveField: removed.AsString()}, nil
	}

	idv, ok := obj["_id"]
	if !ok || idv.Kind() != docval.KindString {
		return Record{}, fmt.Errorf("persistence: document record missing string _id")
	}
	return Record{Kind: RecordDocument, Doc: v, DocID: idv.AsString()}, nil
}

func decodeIndexDescriptor(v docval.Value) (IndexDescriptor, error) {
	if v.Kind() != docval.KindObject {
		return IndexDescriptor{}, fmt.Errorf("persistence: $$indexCreated must be an object")
	}
	obj := v.AsObject()
	fieldName, ok := obj["fieldName"]
	if !ok || fieldName.Kind() != docval.KindString {
		return IndexDescriptor{}, fmt.Errorf("persistence: $$indexCreated missing string fieldName")
	}
	unique := false
	if u, ok := obj["unique"]; ok && u.Kind() == docval.KindBool {
		unique = u.AsBool()
	}
	return IndexDescriptor{FieldName: fieldName.AsString(), Unique: unique}, nil
}

// encodeTombstone builds the {_id, $$deleted: true} record for a removal.
func encodeTombstone(id string) docval.Value {
	return docval.Object(map[string]docval.Value{
		"_id":       docval.String(id),
		"$$deleted": docval.Bool(true),
	})
}

// encodeIndexCreated builds the $$indexCreated descriptor record.
func encodeIndexCreated(desc IndexDescriptor) docval.Value {
	return docval.Object(map[string]docval.Value{
		"$$indexCreated": docval.Object(map[string]docval.Value{
			"fieldName": docval.String(desc.FieldName),
			"unique":    docval.Bool(desc.Unique),
		}),
	})
}

// encodeIndexRemoved builds the $$indexRemoved record.
func encodeIndexRemoved(fieldName string) docval.Value {
	return docval.Object(map[string]docval.Value{
		"$$indexRemoved": docval.String(fieldName),
	})
}
