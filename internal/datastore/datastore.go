// Package datastore implements spec.md §4.7: the façade gluing the index
// set, the persistence layer and the executor together behind Insert,
// Update, Remove, Find and index-lifecycle operations. Every operation is
// pushed through the executor, so ds.indexes is read and written only from
// the executor's single consumer goroutine and needs no mutex of its own —
// the same single-threaded-cooperative model spec.md §5 describes. The one
// exception is Load with InMemoryOnly set, which resets the indexes on the
// caller's goroutine before releasing the executor's buffer.
package datastore

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/docdb/internal/cursor"
	"github.com/edirooss/docdb/internal/docerr"
	"github.com/edirooss/docdb/internal/docmodify"
	"github.com/edirooss/docdb/internal/docquery"
	"github.com/edirooss/docdb/internal/docval"
	"github.com/edirooss/docdb/internal/document"
	"github.com/edirooss/docdb/internal/executor"
	"github.com/edirooss/docdb/internal/fsadapter"
	"github.com/edirooss/docdb/internal/idgen"
	"github.com/edirooss/docdb/internal/index"
	"github.com/edirooss/docdb/internal/persistence"
)

// Config mirrors spec.md §6's enumerated configuration exactly, plus the
// external-collaborator overrides (Generator/Clock/FS) a caller supplies in
// place of the shipped defaults.
type Config struct {
	Filename               string
	InMemoryOnly           bool
	Autoload               bool
	CompareStrings         docval.StrCompare
	TimestampData          bool
	CorruptAlertThreshold  float64
	AfterSerialization     func(string) string
	BeforeDeserialization  func(string) string
	AutocompactionInterval time.Duration

	Generator idgen.Generator
	Clock     idgen.Clock
	FS        fsadapter.FS
}

// Datastore is spec.md §4.7's façade.
type Datastore struct {
	log   *zap.Logger
	exec  *executor.Executor
	store *persistence.Store

	gen   idgen.Generator
	clock idgen.Clock

	strCmp        docval.StrCompare
	timestampData bool

	indexes map[string]*index.Index // field path -> Index; always holds "_id"
}

// New constructs a Datastore. If cfg.Autoload is true, Load runs
// synchronously before New returns.
func New(log *zap.Logger, cfg Config) (*Datastore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	gen := cfg.Generator
	if gen == nil {
		gen = idgen.UUIDGenerator{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = idgen.SystemClock
	}
	fs := cfg.FS
	if fs == nil {
		fs = fsadapter.OS{}
	}

	ds := &Datastore{
		log:           log.Named("datastore"),
		gen:           gen,
		clock:         clock,
		strCmp:        cfg.CompareStrings,
		timestampData: cfg.TimestampData,
		indexes:       map[string]*index.Index{},
	}
	ds.indexes["_id"] = index.New(ds.log, "_id", true, ds.strCmp)
	ds.exec = executor.New(ds.log)

	store, err := persistence.New(ds.log, ds.exec, fs, &indexSink{ds: ds}, persistence.Config{
		Filename:               cfg.Filename,
		InMemoryOnly:           cfg.InMemoryOnly,
		CorruptAlertThreshold:  cfg.CorruptAlertThreshold,
		AfterSerialization:     cfg.AfterSerialization,
		BeforeDeserialization:  cfg.BeforeDeserialization,
		AutocompactionInterval: cfg.AutocompactionInterval,
	})
	if err != nil {
		return nil, err
	}
	ds.store = store

	if cfg.Autoload {
		if err := ds.store.Load(); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// Load runs the persistence load algorithm and releases the executor's
// buffer. Only needed when cfg.Autoload is false; New already calls this
// when Autoload is true.
func (ds *Datastore) Load() error {
	return ds.store.Load()
}

// Close stops the autocompaction timer, if any was configured. It does not
// drain or wait for in-flight operations.
func (ds *Datastore) Close() error {
	ds.store.Stop()
	return nil
}

// Compact forces an immediate journal compaction.
func (ds *Datastore) Compact() error {
	return ds.store.Compact()
}

// Stats exposes the persistence layer's last load/compaction snapshot.
func (ds *Datastore) Stats() persistence.Stats {
	return ds.store.Stats()
}

// doT pushes fn through the executor and blocks for its result, converting
// the FIFO-ordered task model into an ordinary blocking call for Datastore's
// exported methods.
func doT[T any](ds *Datastore, fn func() (T, error)) (T, error) {
	var result T
	done := ds.exec.Push(func() error {
		v, err := fn()
		result = v
		return err
	}, false)
	err := <-done
	return result, err
}

// Insert assigns an _id (via the configured Generator) if absent, validates
// field names, adds the document to every index (rolling back on a later
// index's rejection), journal-appends it, and returns a deep copy of the
// stored document.
func (ds *Datastore) Insert(doc map[string]any) (docval.Value, error) {
	return doT(ds, func() (docval.Value, error) { return ds.insertLocked(doc) })
}

func (ds *Datastore) insertLocked(doc map[string]any) (docval.Value, error) {
	v := docval.FromGo(doc)
	if v.Kind() != docval.KindObject {
		return docval.Undefined, fmt.Errorf("%w: document must be an object", docerr.ErrModifierArgType)
	}
	obj := v.AsObject()

	var id string
	if idv, ok := obj["_id"]; ok {
		if idv.Kind() != docval.KindString {
			return docval.Undefined, fmt.Errorf("%w: _id must be a string", docerr.ErrModifierArgType)
		}
		id = idv.AsString()
	} else {
		id = ds.gen.NewID()
		obj["_id"] = docval.String(id)
	}

	if ds.timestampData {
		now := docval.Date(ds.clock().UnixMilli())
		obj["createdAt"] = now
		obj["updatedAt"] = now
	}

	full := docval.Object(obj)
	if err := docval.ValidateKeysDeep(full); err != nil {
		return docval.Undefined, err
	}
	if _, exists := ds.indexes["_id"].Find(docval.String(id)); exists {
		return docval.Undefined, fmt.Errorf("%w: _id %q already exists", docerr.ErrUniqueViolation, id)
	}

	newDoc := document.New(full)

	inserted := make([]*index.Index, 0, len(ds.indexes))
	for _, ix := range ds.indexes {
		if err := ix.Insert(newDoc); err != nil {
			for _, done := range inserted {
				done.Remove(newDoc)
			}
			return docval.Undefined, err
		}
		inserted = append(inserted, ix)
	}

	if err := ds.store.AppendDocuments([]*document.Document{newDoc}); err != nil {
		for _, ix := range inserted {
			ix.Remove(newDoc)
		}
		return docval.Undefined, fmt.Errorf("persistence: %w", err)
	}

	return newDoc.Copy(), nil
}

// Update applies update (full-replace or modifier form, per docmodify.Modify)
// to every live document matching query, journal-appending each result, and
// returns the number of documents changed.
func (ds *Datastore) Update(query any, update map[string]any) (int, error) {
	return doT(ds, func() (int, error) { return ds.updateLocked(query, update) })
}

func (ds *Datastore) updateLocked(query any, update map[string]any) (int, error) {
	matched, err := ds.matchCandidates(query)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, oldDoc := range matched {
		newVal, err := docmodify.Modify(oldDoc.Value, update, docmodify.Clock(ds.clock))
		if err != nil {
			return n, err
		}
		if ds.timestampData {
			if set, ok := docval.DotSet(newVal, "updatedAt", docval.Date(ds.clock().UnixMilli())); ok {
				newVal = set
			}
		}
		newDoc := document.New(newVal)

		touched := make([]*index.Index, 0, len(ds.indexes))
		var updateErr error
		for _, ix := range ds.indexes {
			if err := ix.Update(oldDoc, newDoc); err != nil {
				updateErr = err
				break
			}
			touched = append(touched, ix)
		}
		if updateErr != nil {
			for _, ix := range touched {
				_ = ix.Update(newDoc, oldDoc)
			}
			return n, updateErr
		}

		if err := ds.store.AppendDocuments([]*document.Document{newDoc}); err != nil {
			for _, ix := range touched {
				_ = ix.Update(newDoc, oldDoc)
			}
			return n, fmt.Errorf("persistence: %w", err)
		}
		n++
	}
	return n, nil
}

// Remove deletes every live document matching query, journal-appending a
// tombstone per removal, and returns the number of documents removed.
func (ds *Datastore) Remove(query any) (int, error) {
	return doT(ds, func() (int, error) { return ds.removeLocked(query) })
}

func (ds *Datastore) removeLocked(query any) (int, error) {
	matched, err := ds.matchCandidates(query)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, d := range matched {
		for _, ix := range ds.indexes {
			ix.Remove(d)
		}
		if err := ds.store.AppendTombstone(d.ID); err != nil {
			for _, ix := range ds.indexes {
				_ = ix.Insert(d)
			}
			return n, fmt.Errorf("persistence: %w", err)
		}
		n++
	}
	return n, nil
}

// Count is a convenience equal to Find(query).Count(), computing only the
// match count without building a Cursor pipeline around it.
func (ds *Datastore) Count(query any) (int, error) {
	return doT(ds, func() (int, error) {
		matched, err := ds.matchCandidates(query)
		if err != nil {
			return 0, err
		}
		return len(matched), nil
	})
}

// Find returns a Query — a thin, chainable builder over internal/cursor
// bound to this Datastore. Its candidate snapshot is taken (and the full
// sort/skip/limit/project pipeline run) inside a single executor task at
// Exec/Count time, so a Find submitted before a concurrent write can never
// observe that write, per spec.md §5's ordering guarantee.
func (ds *Datastore) Find(query any) *Query {
	return &Query{ds: ds, query: query}
}

// Query is the façade's chainable read pipeline builder.
type Query struct {
	ds      *Datastore
	query   any
	sorts   []cursor.SortKey
	skip    int
	limit   int
	project []string
}

func (q *Query) Sort(keys ...cursor.SortKey) *Query { q.sorts = keys; return q }
func (q *Query) Skip(n int) *Query                  { q.skip = n; return q }
func (q *Query) Limit(n int) *Query                 { q.limit = n; return q }
func (q *Query) Project(paths ...string) *Query      { q.project = paths; return q }

// Exec runs the full pipeline and returns deep-copied result documents.
func (q *Query) Exec() ([]docval.Value, error) {
	return doT(q.ds, func() ([]docval.Value, error) {
		cands := q.ds.candidates(q.query)
		c := cursor.New(cands, q.ds.strCmp).
			Filter(q.query).
			Sort(q.sorts...).
			Skip(q.skip).
			Limit(q.limit).
			Project(q.project...)
		return c.Exec()
	})
}

// Count runs only the filter stage.
func (q *Query) Count() (int, error) {
	return doT(q.ds, func() (int, error) {
		cands := q.ds.candidates(q.query)
		return cursor.New(cands, q.ds.strCmp).Filter(q.query).Count()
	})
}

// EnsureIndex registers an index on fieldPath (idempotent if one already
// exists), bulk-inserting every live document into it, and journal-appends
// the $$indexCreated descriptor.
func (ds *Datastore) EnsureIndex(fieldPath string, unique bool) error {
	_, err := doT(ds, func() (struct{}, error) {
		if _, exists := ds.indexes[fieldPath]; exists {
			return struct{}{}, nil
		}
		ix := index.New(ds.log, fieldPath, unique, ds.strCmp)
		if err := ix.InsertMany(ds.indexes["_id"].GetAll()); err != nil {
			return struct{}{}, err
		}
		ds.indexes[fieldPath] = ix
		return struct{}{}, ds.store.AppendIndexCreated(persistence.IndexDescriptor{FieldName: fieldPath, Unique: unique})
	})
	return err
}

// RemoveIndex drops fieldPath's index and journal-appends the
// $$indexRemoved record. The primary "_id" index cannot be removed.
func (ds *Datastore) RemoveIndex(fieldPath string) error {
	_, err := doT(ds, func() (struct{}, error) {
		if fieldPath == "_id" {
			return struct{}{}, fmt.Errorf("docdb: cannot remove the primary _id index")
		}
		delete(ds.indexes, fieldPath)
		return struct{}{}, ds.store.AppendIndexRemoved(fieldPath)
	})
	return err
}

// matchCandidates narrows via candidates, then re-checks the full predicate
// (an index only narrows by one field) — the "candidate selection via best
// index, then full predicate match" rule from spec.md §2.
func (ds *Datastore) matchCandidates(query any) ([]*document.Document, error) {
	cands := ds.candidates(query)
	out := make([]*document.Document, 0, len(cands))
	for _, d := range cands {
		ok, err := docquery.Match(d.Value, query)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// candidates implements spec.md §4.7's candidate selection: prefer an index
// whose field appears as a plain equality term in query; otherwise fall
// back to a full scan via the primary _id index. This is an optimization
// only — matchCandidates always re-verifies the full predicate afterward.
//
// Only a unique index is eligible for the single-Find shortcut. Per
// spec.md's Index invariant, a non-unique index overwrites the prior entry
// on a duplicate key, so it holds at most one doc reference per key even
// when several live documents share that value — ix.Find on a non-unique
// index would silently drop every matching document but the most recently
// inserted one. A non-unique field therefore always falls back to the _id
// full scan, which matchCandidates then filters down to the true match set.
func (ds *Datastore) candidates(query any) []*document.Document {
	m, ok := query.(map[string]any)
	if !ok {
		return ds.indexes["_id"].GetAll()
	}
	for field, ix := range ds.indexes {
		if field == "_id" || !ix.Unique() {
			continue
		}
		v, present := m[field]
		if !present || !isPlainEqualityOperand(v) {
			continue
		}
		if d, found := ix.Find(docval.FromGo(v)); found {
			return []*document.Document{d}
		}
		return nil
	}
	if v, present := m["_id"]; present && isPlainEqualityOperand(v) {
		if d, found := ds.indexes["_id"].Find(docval.FromGo(v)); found {
			return []*document.Document{d}
		}
		return nil
	}
	return ds.indexes["_id"].GetAll()
}

// isPlainEqualityOperand reports whether v is a query operand that can only
// mean "field equals v" — not an operator object, array-literal comparison,
// or regex, any of which need the full matcher rather than an index lookup.
func isPlainEqualityOperand(v any) bool {
	switch v.(type) {
	case map[string]any, []any, *regexp.Regexp:
		return false
	default:
		return true
	}
}

// indexSink adapts Datastore to persistence.IndexSink for use during Load.
// Its methods run only from within loadWork, which is itself already
// executing on the executor's single consumer goroutine — they must never
// route back through doT, which would deadlock waiting on the very task
// that is calling them.
type indexSink struct{ ds *Datastore }

func (s *indexSink) EnsureIndex(fieldPath string, unique bool) {
	if _, exists := s.ds.indexes[fieldPath]; exists {
		return
	}
	s.ds.indexes[fieldPath] = index.New(s.ds.log, fieldPath, unique, s.ds.strCmp)
}

func (s *indexSink) RemoveIndex(fieldPath string) {
	delete(s.ds.indexes, fieldPath)
}

func (s *indexSink) ReplayAll(docs []*document.Document) error {
	for _, ix := range s.ds.indexes {
		if err := ix.Reset(docs); err != nil {
			for _, other := range s.ds.indexes {
				_ = other.Reset(nil)
			}
			return err
		}
	}
	return nil
}

func (s *indexSink) AllDocuments() []*document.Document {
	return s.ds.indexes["_id"].GetAll()
}

func (s *indexSink) IndexDescriptors() []persistence.IndexDescriptor {
	fields := make([]string, 0, len(s.ds.indexes))
	for f := range s.ds.indexes {
		if f == "_id" {
			continue
		}
		fields = append(fields, f)
	}
	sort.Strings(fields)

	out := make([]persistence.IndexDescriptor, 0, len(fields))
	for _, f := range fields {
		ix := s.ds.indexes[f]
		out = append(out, persistence.IndexDescriptor{FieldName: f, Unique: ix.Unique()})
	}
	return out
}
