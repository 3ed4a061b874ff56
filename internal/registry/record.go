package registry

import (
	"path/filepath"
	"sync/atomic"
	"time"
)

// Record tracks one discovered source file through the pipeline. The live
// Record is owned by the Registry; stages mutate it through Registry.Update
// and everyone else reads value snapshots.
type Record struct {
	ID         int64
	SourcePath string

	Status     Status
	StatusNote string

	OriginalSize int64
	EncodedSize  int64

	Codec        string
	ErrorMessage string

	// StagedPath lives inside the per-record staging directory; it is
	// empty until the preparer assigns it.
	StagedPath string

	EncodeStartedAt time.Time

	cancel atomic.Bool
}

// Name returns the source file's basename.
func (r *Record) Name() string {
	return filepath.Base(r.SourcePath)
}

// RequestCancel flips the cooperative cancellation flag. The owning stage
// observes it at its yield points; nothing is killed here.
func (r *Record) RequestCancel() {
	r.cancel.Store(true)
}

// CancelRequested reports whether the operator asked to cancel this record.
func (r *Record) CancelRequested() bool {
	return r.cancel.Load()
}

// Snapshot is a read-only copy of a Record handed to the display and ledger.
type Snapshot struct {
	ID              int64
	SourcePath      string
	Name            string
	Status          Status
	StatusNote      string
	OriginalSize    int64
	EncodedSize     int64
	Codec           string
	ErrorMessage    string
	StagedPath      string
	EncodeStartedAt time.Time
	CancelRequested bool
}

func (r *Record) snapshot() Snapshot {
	return Snapshot{
		ID:              r.ID,
		SourcePath:      r.SourcePath,
		Name:            r.Name(),
		Status:          r.Status,
		StatusNote:      r.StatusNote,
		OriginalSize:    r.OriginalSize,
		EncodedSize:     r.EncodedSize,
		Codec:           r.Codec,
		ErrorMessage:    r.ErrorMessage,
		StagedPath:      r.StagedPath,
		EncodeStartedAt: r.EncodeStartedAt,
		CancelRequested: r.cancel.Load(),
	}
}

// Reduction returns the size reduction fraction for a successful encode,
// or 0 when sizes are unknown.
func (s Snapshot) Reduction() float64 {
	if s.OriginalSize <= 0 || s.EncodedSize <= 0 {
		return 0
	}
	return float64(s.OriginalSize-s.EncodedSize) / float64(s.OriginalSize)
}
