// Package index implements spec.md §4.4: an ordered key -> document map with
// optional uniqueness and transactional insert/remove/update with rollback.
//
// The ordered map is backed by github.com/google/btree (the same ordered
// key-space dependency erigontech/erigon's kv layer lists for its own
// storage engine — see SPEC_FULL.md §2). A btree.BTreeG[entry] ordered by
// key alone gives Index its sorted traversal for free; because spec.md §4.4
// specifies that inserting a duplicate key on a non-unique index overwrites
// the previous entry (a documented departure from multi-valued indexes),
// there is never more than one entry per distinct key, so a plain ordered
// map is the right shape — no per-key bucket of doc references is needed.
package index

import (
	"sync"

	"github.com/google/btree"
	"go.uber.org/zap"

	"github.com/edirooss/docdb/internal/docerr"
	"github.com/edirooss/docdb/internal/docval"
	"github.com/edirooss/docdb/internal/document"
)

const btreeDegree = 32

type entry struct {
	key docval.Value
	doc *document.Document
}

// Index is spec.md §4.4's Index. Safe for concurrent use; in normal
// operation all mutation is funneled through the executor (spec.md §4.5),
// but the mutex here is what makes that safe rather than merely assumed.
type Index struct {
	log       *zap.Logger
	fieldPath string
	unique    bool
	strCmp    docval.StrCompare

	mu   sync.Mutex
	tree *btree.BTreeG[entry]
}

// New constructs an Index over fieldPath. fieldPath "_id" constructs the
// implicit primary index every datastore carries (spec.md §3).
func New(log *zap.Logger, fieldPath string, unique bool, strCmp docval.StrCompare) *Index {
	if log == nil {
		log = zap.NewNop()
	}
	ix := &Index{
		log:       log.Named("index").With(zap.String("field", fieldPath)),
		fieldPath: fieldPath,
		unique:    unique,
		strCmp:    strCmp,
	}
	ix.tree = btree.NewG(btreeDegree, ix.less)
	return ix
}

func (ix *Index) less(a, b entry) bool {
	return docval.Compare(a.key, b.key, ix.strCmp) < 0
}

func (ix *Index) FieldPath() string { return ix.fieldPath }
func (ix *Index) Unique() bool      { return ix.unique }

// ExtractKey reads the index's field out of a document. Array values are
// never valid keys (spec.md §3's Index entry definition).
func (ix *Index) ExtractKey(doc *document.Document) docval.Value {
	return doc.Field(ix.fieldPath)
}

// Insert inserts a single document. On a unique-index violation, a null key
// against a unique index, or an array-valued key, the index is left
// untouched and the error is returned.
func (ix *Index) Insert(doc *document.Document) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, err := ix.insertLocked(doc)
	return err
}

func (ix *Index) insertLocked(doc *document.Document) (docval.Value, error) {
	key := ix.ExtractKey(doc)
	if key.Kind() == docval.KindArray {
		return key, docerr.ErrArrayKey
	}
	if ix.unique {
		if key.Kind() == docval.KindNull {
			return key, docerr.ErrNullKey
		}
		if _, found := ix.tree.Get(entry{key: key}); found {
			return key, docerr.ErrUniqueViolation
		}
	}
	ix.tree.ReplaceOrInsert(entry{key: key, doc: doc})
	return key, nil
}

// InsertMany inserts a batch of documents all-or-nothing: on a failure
// partway through, only the keys this call actually inserted are rolled
// back — not, as the distilled source does, the failing document's own key
// applied once per already-inserted slot (spec.md §9's documented bug; see
// DESIGN.md's Open Question resolution).
func (ix *Index) InsertMany(docs []*document.Document) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	inserted := make([]docval.Value, 0, len(docs))
	for _, d := range docs {
		key, err := ix.insertLocked(d)
		if err != nil {
			for _, k := range inserted {
				ix.tree.Delete(entry{key: k})
			}
			return err
		}
		inserted = append(inserted, key)
	}
	return nil
}

// Remove deletes doc's entry. No-op if the key is absent.
func (ix *Index) Remove(doc *document.Document) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.tree.Delete(entry{key: ix.ExtractKey(doc)})
}

// RemoveMany deletes each document's entry.
func (ix *Index) RemoveMany(docs []*document.Document) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, d := range docs {
		ix.tree.Delete(entry{key: ix.ExtractKey(d)})
	}
}

// RemoveKey deletes the entry at a raw key value directly, without
// extracting it from a document.
func (ix *Index) RemoveKey(key docval.Value) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.tree.Delete(entry{key: key})
}

// Update removes old's entry and inserts new's entry; on failure the old
// entry is reinserted and the error propagated, per spec.md §4.4.
func (ix *Index) Update(oldDoc, newDoc *document.Document) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.tree.Delete(entry{key: ix.ExtractKey(oldDoc)})
	if _, err := ix.insertLocked(newDoc); err != nil {
		// Best-effort reinsert; a failure here would mean the old key itself
		// is now invalid, which insertLocked already validated on the way
		// in, so this cannot fail in practice.
		_, _ = ix.insertLocked(oldDoc)
		return err
	}
	return nil
}

// Find returns the document stored at key, if any.
func (ix *Index) Find(key docval.Value) (*document.Document, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	e, ok := ix.tree.Get(entry{key: key})
	if !ok {
		return nil, false
	}
	return e.doc, true
}

// GetMatching returns the documents found at each of keys, skipping misses.
func (ix *Index) GetMatching(keys []docval.Value) []*document.Document {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	out := make([]*document.Document, 0, len(keys))
	for _, k := range keys {
		if e, ok := ix.tree.Get(entry{key: k}); ok {
			out = append(out, e.doc)
		}
	}
	return out
}

// Bounds names the range constraints BetweenBounds accepts — spec.md §4.4's
// {$lt,$lte,$gt,$gte}. A nil field means that bound is absent.
type Bounds struct {
	Lt, Lte, Gt, Gte *docval.Value
}

// BetweenBounds returns the documents whose keys satisfy every configured
// bound, in ascending key order.
func (ix *Index) BetweenBounds(b Bounds) []*document.Document {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var out []*document.Document
	ix.tree.Ascend(func(e entry) bool {
		if b.Lt != nil && docval.Compare(e.key, *b.Lt, ix.strCmp) >= 0 {
			return false // ascending order: nothing further can satisfy Lt
		}
		if b.Lte != nil && docval.Compare(e.key, *b.Lte, ix.strCmp) > 0 {
			return false
		}
		if b.Gt != nil && docval.Compare(e.key, *b.Gt, ix.strCmp) <= 0 {
			return true // continue ascending toward the lower bound
		}
		if b.Gte != nil && docval.Compare(e.key, *b.Gte, ix.strCmp) < 0 {
			return true
		}
		out = append(out, e.doc)
		return true
	})
	return out
}

// GetAll returns every document in ascending key order.
func (ix *Index) GetAll() []*document.Document {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	out := make([]*document.Document, 0, ix.tree.Len())
	ix.tree.Ascend(func(e entry) bool {
		out = append(out, e.doc)
		return true
	})
	return out
}

// Reset clears the index and, if docs is non-nil, bulk-inserts it
// afterward (all-or-nothing, per InsertMany).
func (ix *Index) Reset(docs []*document.Document) error {
	ix.mu.Lock()
	ix.tree = btree.NewG(btreeDegree, ix.less)
	ix.mu.Unlock()

	if docs == nil {
		return nil
	}
	return ix.InsertMany(docs)
}

// Count returns the number of live entries.
func (ix *Index) Count() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.tree.Len()
}
