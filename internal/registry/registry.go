// Package registry holds the in-memory catalog of discovered files and owns
// every status mutation. Stages hand records between each other by ID; the
// registry enforces the legal transition graph so an illegal hop is an error
// at the mutation site instead of silent state corruption.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the single source of truth for per-file state. Reads return
// value snapshots; writes go through Update which validates transitions.
type Registry struct {
	mu      sync.RWMutex
	records []*Record
	byID    map[int64]*Record
	byPath  map[string]*Record
	nextID  int64

	notify chan struct{}
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byID:   make(map[int64]*Record),
		byPath: make(map[string]*Record),
		notify: make(chan struct{}, 1),
	}
}

// Add registers a newly discovered file and returns its record. The source
// path is the identity key; adding the same path twice is an error.
func (r *Registry) Add(sourcePath string, size int64) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byPath[sourcePath]; exists {
		return nil, fmt.Errorf("registry: duplicate source path %q", sourcePath)
	}

	r.nextID++
	rec := &Record{
		ID:           r.nextID,
		SourcePath:   sourcePath,
		Status:       StatusPending,
		OriginalSize: size,
	}
	r.records = append(r.records, rec)
	r.byID[rec.ID] = rec
	r.byPath[sourcePath] = rec
	r.markDirtyLocked()
	return rec, nil
}

// SortByPath orders the catalog by source path. The scanner calls it once
// after the walk completes so the display order is stable.
func (r *Registry) SortByPath() {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.Slice(r.records, func(i, j int) bool {
		return r.records[i].SourcePath < r.records[j].SourcePath
	})
	r.markDirtyLocked()
}

// Update applies fn to the record under the registry lock and validates the
// status transition it performed. The record is rolled back on a rejected
// transition so a buggy stage cannot corrupt the graph.
func (r *Registry) Update(id int64, fn func(*Record)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("registry: unknown record %d", id)
	}

	before := rec.Status
	fn(rec)
	after := rec.Status

	if before != after && !CanTransition(before, after) {
		rec.Status = before
		return fmt.Errorf("registry: illegal transition %s -> %s for %s", before, after, rec.SourcePath)
	}

	r.markDirtyLocked()
	return nil
}

// Transition moves a record to the given status, setting the display note.
func (r *Registry) Transition(id int64, to Status, note string) error {
	return r.Update(id, func(rec *Record) {
		rec.Status = to
		rec.StatusNote = note
	})
}

// RequestCancel flags a record for cooperative cancellation. Terminal
// records are left alone and reported as not cancellable.
func (r *Registry) RequestCancel(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok || rec.Status.IsTerminal() {
		return false
	}
	rec.RequestCancel()
	r.markDirtyLocked()
	return true
}

// Get returns a snapshot of a single record.
func (r *Registry) Get(id int64) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return Snapshot{}, false
	}
	return rec.snapshot(), true
}

// CancelRequested reports the cancellation flag for a record.
func (r *Registry) CancelRequested(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	return ok && rec.CancelRequested()
}

// Snapshot returns value copies of every record in display order.
func (r *Registry) Snapshot() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Snapshot, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.snapshot())
	}
	return out
}

// Len returns the number of registered records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Counts aggregates records per status.
func (r *Registry) Counts() map[Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[Status]int, len(allStatuses))
	for _, rec := range r.records {
		counts[rec.Status]++
	}
	return counts
}

// AllTerminal reports whether every record has reached a terminal status.
// An empty registry is not considered terminal until sealed by the scanner.
func (r *Registry) AllTerminal() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if !rec.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// Changes returns the change-notification channel. A receive means at least
// one mutation happened since the previous receive; notifications coalesce,
// they are not one-per-write.
func (r *Registry) Changes() <-chan struct{} {
	return r.notify
}

func (r *Registry) markDirtyLocked() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}
