// Package docdb is the public, thin façade over the internal packages that
// implement an embeddable single-file document database: serialization,
// matching, modifiers, indexes, persistence, the executor and the
// filter/sort/skip/limit/project cursor pipeline.
package docdb

import (
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/docdb/internal/cursor"
	"github.com/edirooss/docdb/internal/datastore"
	"github.com/edirooss/docdb/internal/docval"
	"github.com/edirooss/docdb/internal/fsadapter"
	"github.com/edirooss/docdb/internal/idgen"
	"github.com/edirooss/docdb/internal/persistence"
)

// Config configures a Datastore. Field names and meaning match spec.md §6
// exactly; see internal/datastore.Config for the identical internal shape
// this is forwarded to unchanged.
type Config struct {
	// Filename is the path to the journal. A name ending in "~" is rejected.
	Filename string
	// InMemoryOnly skips all persistence when true.
	InMemoryOnly bool
	// Autoload runs Load during New.
	Autoload bool
	// CompareStrings overrides the default byte-order string comparator used
	// for index key ordering and Cursor sorting. The $lt/$lte/$gt/$gte query
	// operators always compare strings in byte order. See
	// CollatorComparator for a locale-aware alternative.
	CompareStrings func(a, b string) int
	// TimestampData stamps createdAt/updatedAt on insert/update when true.
	TimestampData bool
	// CorruptAlertThreshold is the fraction of corrupt journal lines, in
	// [0,1], that aborts Load. 0 means the default of 0.1.
	CorruptAlertThreshold float64
	// AfterSerialization/BeforeDeserialization are paired hooks applied to
	// each journal line at write/read time. Configuring one without the
	// other, or a pair that doesn't compose to the identity, fails at
	// construction.
	AfterSerialization    func(string) string
	BeforeDeserialization func(string) string
	// AutocompactionInterval enables a periodic compaction timer when
	// non-zero, clamped up to a 5-second floor.
	AutocompactionInterval time.Duration

	// Generator overrides the default UUID-based _id generator.
	Generator Generator
	// Clock overrides the default system clock (time.Now).
	Clock func() time.Time
	// FS overrides the default os-backed file-system adapter.
	FS FS
}

// Generator produces a unique document _id when Insert isn't given one.
type Generator = idgen.Generator

// FS is the file-system adapter contract a caller can override (e.g. to
// sandbox file access or add encryption at rest alongside the hooks above).
type FS = fsadapter.FS

// SortKey is one (field, direction) pair for Cursor.Sort: Direction is +1
// for ascending, -1 for descending.
type SortKey = cursor.SortKey

// Stats is the persistence layer's last load/compaction snapshot.
type Stats = persistence.Stats

// Datastore is an embeddable, single-file document database instance.
type Datastore struct {
	inner *datastore.Datastore
}

// New constructs a Datastore from cfg. If cfg.Autoload is true, Load runs
// synchronously before New returns; otherwise the caller must call Load
// before any pushed operation will execute (operations submitted beforehand
// simply queue in the executor's pre-ready buffer).
func New(log *zap.Logger, cfg Config) (*Datastore, error) {
	inner, err := datastore.New(log, datastore.Config{
		Filename:               cfg.Filename,
		InMemoryOnly:           cfg.InMemoryOnly,
		Autoload:               cfg.Autoload,
		CompareStrings:         cfg.CompareStrings,
		TimestampData:          cfg.TimestampData,
		CorruptAlertThreshold:  cfg.CorruptAlertThreshold,
		AfterSerialization:     cfg.AfterSerialization,
		BeforeDeserialization:  cfg.BeforeDeserialization,
		AutocompactionInterval: cfg.AutocompactionInterval,
		Generator:              cfg.Generator,
		Clock:                  cfg.Clock,
		FS:                     cfg.FS,
	})
	if err != nil {
		return nil, err
	}
	return &Datastore{inner: inner}, nil
}

// Load runs the persistence load algorithm and releases the executor's
// pre-ready buffer. Only needed when Config.Autoload was false.
func (d *Datastore) Load() error { return d.inner.Load() }

// Close stops the autocompaction timer, if one was configured.
func (d *Datastore) Close() error { return d.inner.Close() }

// Compact forces an immediate journal compaction.
func (d *Datastore) Compact() error { return d.inner.Compact() }

// Stats returns the last load/compaction snapshot.
func (d *Datastore) Stats() Stats { return d.inner.Stats() }

// Insert inserts doc (a plain map, as produced by encoding/json or built by
// hand), assigning an _id if absent, and returns the stored document
// (converted back to native Go types via ToGo).
func (d *Datastore) Insert(doc map[string]any) (map[string]any, error) {
	v, err := d.inner.Insert(doc)
	if err != nil {
		return nil, err
	}
	return docval.ToGo(v).(map[string]any), nil
}

// Update applies update to every live document matching query and returns
// the number of documents changed. update is either a full replacement
// document (no '$'-prefixed top-level key) or a modifier document (every
// top-level key '$'-prefixed).
func (d *Datastore) Update(query any, update map[string]any) (int, error) {
	return d.inner.Update(query, update)
}

// Remove deletes every live document matching query and returns the number
// removed.
func (d *Datastore) Remove(query any) (int, error) {
	return d.inner.Remove(query)
}

// Count returns the number of live documents matching query.
func (d *Datastore) Count(query any) (int, error) {
	return d.inner.Count(query)
}

// Find returns a chainable Cursor over documents matching query.
func (d *Datastore) Find(query any) *Cursor {
	return &Cursor{q: d.inner.Find(query)}
}

// EnsureIndex registers an index on fieldPath, bulk-inserting every live
// document into it. Idempotent if the index already exists.
func (d *Datastore) EnsureIndex(fieldPath string, unique bool) error {
	return d.inner.EnsureIndex(fieldPath, unique)
}

// RemoveIndex drops fieldPath's index. The primary "_id" index cannot be
// removed.
func (d *Datastore) RemoveIndex(fieldPath string) error {
	return d.inner.RemoveIndex(fieldPath)
}

// Cursor is the public filter -> sort -> skip/limit -> project pipeline
// builder returned by Find. Each method mutates and returns the same
// *Cursor for chaining; call Exec or Count exactly once.
type Cursor struct {
	q *datastore.Query
}

func (c *Cursor) Sort(keys ...SortKey) *Cursor { c.q.Sort(keys...); return c }
func (c *Cursor) Skip(n int) *Cursor           { c.q.Skip(n); return c }
func (c *Cursor) Limit(n int) *Cursor          { c.q.Limit(n); return c }
func (c *Cursor) Project(paths ...string) *Cursor { c.q.Project(paths...); return c }

// Exec runs the pipeline and returns each matching document converted to
// native Go types via ToGo.
func (c *Cursor) Exec() ([]map[string]any, error) {
	vals, err := c.q.Exec()
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(vals))
	for i, v := range vals {
		out[i] = docval.ToGo(v).(map[string]any)
	}
	return out, nil
}

// Count runs only the filter stage.
func (c *Cursor) Count() (int, error) { return c.q.Count() }
