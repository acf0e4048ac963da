// Package cursor implements spec.md §2's read pipeline: filter -> sort ->
// skip/limit -> project, run against an already-selected candidate set of
// documents (candidate selection via the best-matching index is the
// façade's job, not this package's — see internal/datastore).
package cursor

import (
	"sort"

	"github.com/edirooss/docdb/internal/docquery"
	"github.com/edirooss/docdb/internal/docval"
	"github.com/edirooss/docdb/internal/document"
)

// SortKey is one (field, direction) pair. Direction is +1 for ascending, -1
// for descending — any other negative value also sorts descending, and zero
// or any other positive value sorts ascending.
//
// spec.md §9 flags the source's Cursor.sort as reading a single direction
// for the whole sort spec instead of each key's own direction; Cursor here
// applies each SortKey's Direction independently, so a caller can mix
// {age: 1, name: -1} and get exactly that.
type SortKey struct {
	Field     string
	Direction int
}

// Cursor is a chainable, single-use read pipeline over an initial candidate
// set. Each method mutates and returns the same *Cursor for chaining.
type Cursor struct {
	docs    []*document.Document
	query   any
	sorts   []SortKey
	skip    int
	limit   int
	project []string

	strCmp docval.StrCompare
}

// New builds a Cursor over candidates, which the caller has already reduced
// via index lookups where possible; filtering here re-checks the full
// predicate since an index only narrows by one field.
func New(candidates []*document.Document, strCmp docval.StrCompare) *Cursor {
	return &Cursor{docs: candidates, strCmp: strCmp}
}

// Filter sets (or replaces) the predicate query evaluated against each
// candidate document.
func (c *Cursor) Filter(query any) *Cursor {
	c.query = query
	return c
}

// Sort sets the ordered list of (field, direction) pairs applied after
// filtering. Later keys break ties among earlier ones, stably.
func (c *Cursor) Sort(keys ...SortKey) *Cursor {
	c.sorts = keys
	return c
}

// Skip discards the first n documents of the sorted result.
func (c *Cursor) Skip(n int) *Cursor {
	c.skip = n
	return c
}

// Limit caps the result to at most n documents. 0 (the zero value) means
// unbounded.
func (c *Cursor) Limit(n int) *Cursor {
	c.limit = n
	return c
}

// Project restricts each result document to the given dot-paths, mapping
// array elements the way docval.DotGet does. An empty projection returns
// full documents.
func (c *Cursor) Project(paths ...string) *Cursor {
	c.project = paths
	return c
}

// Exec runs the pipeline: filter, then sort, then skip/limit, then project.
// Every returned Value is a deep, isolated copy — no result aliases a
// document the datastore still holds live.
func (c *Cursor) Exec() ([]docval.Value, error) {
	matched, err := c.filtered()
	if err != nil {
		return nil, err
	}

	if len(c.sorts) > 0 {
		sortDocs(matched, c.sorts, c.strCmp)
	}

	matched = applySkipLimit(matched, c.skip, c.limit)

	out := make([]docval.Value, len(matched))
	for i, d := range matched {
		v := d.Copy()
		if len(c.project) > 0 {
			v = project(v, c.project)
		}
		out[i] = v
	}
	return out, nil
}

// Count runs only the filter stage and returns the match count — skip,
// limit, sort and projection don't affect a count, so there is no reason to
// pay for them.
func (c *Cursor) Count() (int, error) {
	matched, err := c.filtered()
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (c *Cursor) filtered() ([]*document.Document, error) {
	if c.query == nil {
		out := make([]*document.Document, len(c.docs))
		copy(out, c.docs)
		return out, nil
	}
	out := make([]*document.Document, 0, len(c.docs))
	for _, d := range c.docs {
		ok, err := docquery.Match(d.Value, c.query)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func sortDocs(docs []*document.Document, keys []SortKey, strCmp docval.StrCompare) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range keys {
			vi := docs[i].Field(k.Field)
			vj := docs[j].Field(k.Field)
			c := docval.Compare(vi, vj, strCmp)
			if k.Direction < 0 {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
}

func applySkipLimit(docs []*document.Document, skip, limit int) []*document.Document {
	if skip > 0 {
		if skip >= len(docs) {
			return nil
		}
		docs = docs[skip:]
	}
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}

// project builds a new Object containing only paths, each addressed via
// docval.DotGet (so "planets.name" maps across an array the same way a
// query field reference does).
func project(v docval.Value, paths []string) docval.Value {
	out := map[string]docval.Value{}
	for _, p := range paths {
		got := docval.DotGet(v, p)
		if got.IsUndefined() {
			continue
		}
		out[p] = got
	}
	return docval.Object(out)
}
