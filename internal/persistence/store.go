// Package persistence implements spec.md §4.6: the append-only journal,
// crash-safe compaction, and startup replay that back an otherwise
// in-memory datastore.
//
// All durable I/O funnels through the Executor (internal/executor) so it is
// serialized with every other datastore operation — persistence never talks
// to the file system from a caller's goroutine directly, mirroring how the
// structural teacher (edirooss/zmux-server) routes every blocking
// remuxer/process call through a single worker rather than letting
// arbitrary goroutines touch shared state.
package persistence

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/edirooss/docdb/internal/docerr"
	"github.com/edirooss/docdb/internal/docval"
	"github.com/edirooss/docdb/internal/document"
	"github.com/edirooss/docdb/internal/executor"
	"github.com/edirooss/docdb/internal/fsadapter"
)

// IndexSink is the datastore façade's index registry, as seen by Load: the
// minimal surface persistence needs to fold a replayed journal into live
// indexes without importing the façade package (which itself imports
// persistence).
type IndexSink interface {
	// EnsureIndex registers fieldPath (creating it empty if not already
	// present); called once per $$indexCreated record encountered.
	EnsureIndex(fieldPath string, unique bool)
	// RemoveIndex drops fieldPath's index entirely.
	RemoveIndex(fieldPath string)
	// ReplayAll clears every registered index (including the primary _id
	// index) and bulk-inserts docs into each. All-or-nothing: on any
	// failure every index is left empty and the error is returned —
	// spec.md §4.6 step 7's "reset all indexes" behavior.
	ReplayAll(docs []*document.Document) error
	// AllDocuments returns every live document across the index set, in
	// ascending _id order, for the compaction rewrite.
	AllDocuments() []*document.Document
	// IndexDescriptors returns every non-_id index currently registered,
	// for the compaction rewrite's $$indexCreated lines.
	IndexDescriptors() []IndexDescriptor
}

// Config configures a Store. Filename and InMemoryOnly mirror spec.md §6's
// Datastore Config fields of the same name; the hook pair lets a caller
// transform each journal line at rest (e.g. compression, encryption).
type Config struct {
	Filename              string
	InMemoryOnly          bool
	CorruptAlertThreshold float64 // fraction of corrupt lines that aborts Load; 0 means the default 0.1
	AfterSerialization    func(string) string
	BeforeDeserialization func(string) string
	AutocompactionInterval time.Duration // 0 disables the timer; non-zero is clamped up to the 5s floor
}

const (
	defaultCorruptThreshold = 0.1
	minAutocompactionInterval = 5 * time.Second
)

// Stats is the snapshot Stats() returns: a point-in-time view of the last
// Load/Compact outcome, logged the way the structural teacher's reconcile
// loop logs duration/recovered counters.
type Stats struct {
	LiveDocuments  int
	CorruptLines   int
	TotalLines     int
	LastCompaction time.Time
}

// Store is spec.md §4.6's persistence layer.
type Store struct {
	log  *zap.Logger
	fs   fsadapter.FS
	exec *executor.Executor
	sink IndexSink

	filename     string
	inMemoryOnly bool
	corruptThreshold float64
	afterSer     func(string) string
	beforeDeser  func(string) string

	compactGroup singleflight.Group

	mu    sync.Mutex
	stats Stats

	autocompactStop chan struct{}
	autocompactOnce sync.Once
}

// New validates cfg and constructs a Store. Hooks must be configured in
// pairs (both or neither) and, when configured, must compose to the
// identity on a sentinel string — otherwise a line written with one version
// of AfterSerialization could never be read back, silently, only once a
// corrupt/missing document surfaced much later.
func New(log *zap.Logger, exec *executor.Executor, fs fsadapter.FS, sink IndexSink, cfg Config) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if strings.HasSuffix(cfg.Filename, "~") {
		return nil, fmt.Errorf("persistence: %w: filename must not end in '~'", docerr.ErrBadFilename)
	}
	if (cfg.AfterSerialization == nil) != (cfg.BeforeDeserialization == nil) {
		return nil, docerr.ErrHooksMissing
	}
	if cfg.AfterSerialization != nil {
		const sentinel = "docdb-hook-roundtrip-sentinel\t\n\x00"
		if cfg.BeforeDeserialization(cfg.AfterSerialization(sentinel)) != sentinel {
			return nil, docerr.ErrHooksNotInverse
		}
	}
	threshold := cfg.CorruptAlertThreshold
	if threshold <= 0 {
		threshold = defaultCorruptThreshold
	}

	s := &Store{
		log:              log.Named("persistence"),
		fs:               fs,
		exec:             exec,
		sink:             sink,
		filename:         cfg.Filename,
		inMemoryOnly:     cfg.InMemoryOnly,
		corruptThreshold: threshold,
		afterSer:         cfg.AfterSerialization,
		beforeDeser:      cfg.BeforeDeserialization,
	}

	if cfg.AutocompactionInterval > 0 {
		interval := cfg.AutocompactionInterval
		if interval < minAutocompactionInterval {
			interval = minAutocompactionInterval
		}
		s.startAutocompaction(interval)
	}

	return s, nil
}

// Load implements spec.md §4.6's startup algorithm: ensure the journal file
// exists and is crash-consistent, read and fold it into a live document set
// plus index descriptor list, replay that set into the index sink, rewrite
// the journal in compacted form, and finally release the executor's
// pre-ready buffer. Load's own I/O runs as a forced task so it is ordered
// correctly relative to whatever callers already pushed before Load
// returns, then it drains that buffer itself as its last step.
func (s *Store) Load() error {
	if s.inMemoryOnly {
		if err := s.sink.ReplayAll(nil); err != nil {
			return err
		}
		s.exec.ProcessBuffer()
		return nil
	}

	done := s.exec.Push(s.loadWork, true)
	if err := <-done; err != nil {
		return err
	}
	s.exec.ProcessBuffer()
	return nil
}

func (s *Store) loadWork() error {
	dir := fsadapter.DirOf(s.filename)
	if err := s.fs.MkdirAll(dir); err != nil {
		return fmt.Errorf("persistence: mkdir: %w", err)
	}
	if err := resolveIntegrity(s.fs, s.filename); err != nil {
		return fmt.Errorf("persistence: integrity check: %w", err)
	}

	raw, err := s.fs.ReadFile(s.filename)
	if err != nil {
		return fmt.Errorf("persistence: read: %w", err)
	}

	lines := splitLines(raw)

	docs := map[string]*document.Document{}
	var order []string // preserves first-seen order for deterministic replay
	var indexDescs []IndexDescriptor
	removedFields := map[string]bool{}

	var total, corrupt int
	for _, line := range lines {
		if line == "" {
			continue // tolerated: trailing blank line from the final '\n'
		}
		total++

		decodeLine := line
		if s.beforeDeser != nil {
			decodeLine = s.beforeDeser(decodeLine)
		}

		v, err := docval.Deserialize(decodeLine)
		if err != nil {
			corrupt++
			s.log.Warn("corrupt journal line skipped", zap.Error(err))
			continue
		}
		rec, err := classify(v)
		if err != nil {
			corrupt++
			s.log.Warn("unrecognized journal record skipped", zap.Error(err))
			continue
		}

		switch rec.Kind {
		case RecordDocument:
			if _, seen := docs[rec.DocID]; !seen {
				order = append(order, rec.DocID)
			}
			docs[rec.DocID] = document.New(rec.Doc)
		case RecordTombstone:
			delete(docs, rec.DocID)
		case RecordIndexCreated:
			indexDescs = append(indexDescs, rec.Index)
			delete(removedFields, rec.Index.FieldName)
		case RecordIndexRemoved:
			removedFields[rec.RemoveField] = true
		}
	}

	if total > 0 && float64(corrupt)/float64(total) > s.corruptThreshold {
		return fmt.Errorf("persistence: %w: %d/%d lines corrupt", docerr.ErrCorruption, corrupt, total)
	}

	for _, desc := range indexDescs {
		if !removedFields[desc.FieldName] {
			s.sink.EnsureIndex(desc.FieldName, desc.Unique)
		}
	}

	live := make([]*document.Document, 0, len(order))
	for _, id := range order {
		if d, ok := docs[id]; ok {
			live = append(live, d)
		}
	}
	if err := s.sink.ReplayAll(live); err != nil {
		return fmt.Errorf("persistence: replay: %w", err)
	}

	s.mu.Lock()
	s.stats = Stats{LiveDocuments: len(live), CorruptLines: corrupt, TotalLines: total}
	s.mu.Unlock()

	return s.compactLocked()
}

// Append adds records to the journal without a full rewrite — the common
// case for ordinary inserts/updates/removes. A nil or empty slice is a
// no-op. Pushed through the executor by the caller; Append itself assumes
// it is already running on the executor's goroutine.
func (s *Store) Append(records []docval.Value) error {
	if s.inMemoryOnly || len(records) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, r := range records {
		line, err := docval.Serialize(r)
		if err != nil {
			return fmt.Errorf("persistence: append: %w", err)
		}
		if s.afterSer != nil {
			line = s.afterSer(line)
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return s.fs.AppendFile(s.filename, buf.Bytes())
}

// AppendDocuments is a convenience wrapper for the common "N live documents
// just changed" case.
func (s *Store) AppendDocuments(docs []*document.Document) error {
	recs := make([]docval.Value, len(docs))
	for i, d := range docs {
		recs[i] = d.Value
	}
	return s.Append(recs)
}

func (s *Store) AppendTombstone(id string) error {
	return s.Append([]docval.Value{encodeTombstone(id)})
}

func (s *Store) AppendIndexCreated(desc IndexDescriptor) error {
	return s.Append([]docval.Value{encodeIndexCreated(desc)})
}

func (s *Store) AppendIndexRemoved(fieldName string) error {
	return s.Append([]docval.Value{encodeIndexRemoved(fieldName)})
}

// Compact coalesces concurrent callers via singleflight — grounded on the
// structural teacher's SummaryService.Get() pattern (internal/service/
// channel_summary.go), which collapses concurrent cache-refresh callers onto
// one in-flight computation — then pushes a single rewrite through the
// executor with force=true, matching spec.md §4.6's "persistence's own
// writes run ahead of the user queue" rule.
func (s *Store) Compact() error {
	if s.inMemoryOnly {
		return nil
	}
	_, err, _ := s.compactGroup.Do("compact", func() (any, error) {
		done := s.exec.Push(func() error { return s.compactLocked() }, true)
		return nil, <-done
	})
	return err
}

func (s *Store) compactLocked() error {
	docs := s.sink.AllDocuments()
	descs := s.sink.IndexDescriptors()

	var buf bytes.Buffer
	for _, desc := range descs {
		line, err := docval.Serialize(encodeIndexCreated(desc))
		if err != nil {
			return fmt.Errorf("persistence: compact: %w", err)
		}
		if s.afterSer != nil {
			line = s.afterSer(line)
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	for _, d := range docs {
		line, err := docval.Serialize(d.Value)
		if err != nil {
			return fmt.Errorf("persistence: compact: %w", err)
		}
		if s.afterSer != nil {
			line = s.afterSer(line)
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	if err := writeCrashSafe(s.fs, s.filename, buf.Bytes()); err != nil {
		return fmt.Errorf("persistence: compact: %w", err)
	}

	s.mu.Lock()
	s.stats.LastCompaction = time.Now()
	s.stats.LiveDocuments = len(docs)
	s.mu.Unlock()

	s.log.Info("compacted journal",
		zap.Int("live_documents", len(docs)),
		zap.Int("indexes", len(descs)))
	return nil
}

// Stats returns the last known Load/Compact snapshot.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// startAutocompaction runs Compact on a ticker until Stop is called. Each
// tick's compaction is pushed through the executor exactly like a manual
// Compact call, so it never races a user operation.
func (s *Store) startAutocompaction(interval time.Duration) {
	s.autocompactStop = make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Compact(); err != nil {
					s.log.Warn("autocompaction failed", zap.Error(err))
				}
			case <-s.autocompactStop:
				return
			}
		}
	}()
}

// Stop halts the autocompaction timer, if one was started. Safe to call
// even if autocompaction was never enabled, and safe to call more than once.
func (s *Store) Stop() {
	s.autocompactOnce.Do(func() {
		if s.autocompactStop != nil {
			close(s.autocompactStop)
		}
	})
}

func splitLines(raw []byte) []string {
	return strings.Split(string(raw), "\n")
}
