package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Ring is a bounded in-memory log buffer rendered by the terminal log view.
// Oldest lines fall off once the capacity is reached.
type Ring struct {
	mu    sync.Mutex
	lines []string
	max   int
}

// NewRing returns a ring holding at most max formatted lines.
func NewRing(max int) *Ring {
	if max <= 0 {
		max = 300
	}
	return &Ring{max: max}
}

// Append adds a preformatted line.
func (r *Ring) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	if overflow := len(r.lines) - r.max; overflow > 0 {
		r.lines = r.lines[overflow:]
	}
}

// Tail returns up to n of the most recent lines, oldest first.
func (r *Ring) Tail(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.lines) {
		n = len(r.lines)
	}
	out := make([]string, n)
	copy(out, r.lines[len(r.lines)-n:])
	return out
}

// Len returns the number of buffered lines.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines)
}

// RingHandler formats records into a Ring. It keeps the pretty handler's
// shape minus the date so narrow terminals stay readable.
type RingHandler struct {
	ring  *Ring
	level slog.Level
	attrs []slog.Attr
}

// NewRingHandler wraps a Ring as a slog handler.
func NewRingHandler(ring *Ring, level slog.Level) *RingHandler {
	return &RingHandler{ring: ring, level: level}
}

func (h *RingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *RingHandler) Handle(_ context.Context, record slog.Record) error {
	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var b strings.Builder
	b.WriteString(timestamp.Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(levelLabel(record.Level))
	b.WriteByte(' ')

	var component string
	var rest []string
	appendPair := func(attr slog.Attr) {
		attr.Value = attr.Value.Resolve()
		if attr.Key == FieldComponent {
			if component == "" {
				component = attrString(attr.Value)
			}
			return
		}
		rest = append(rest, fmt.Sprintf("%s=%s", attr.Key, formatValue(attr.Value)))
	}
	for _, attr := range h.attrs {
		appendPair(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		appendPair(attr)
		return true
	})

	if component != "" {
		b.WriteString(component)
		b.WriteString(": ")
	}
	b.WriteString(record.Message)
	for _, pair := range rest {
		b.WriteByte(' ')
		b.WriteString(pair)
	}

	h.ring.Append(b.String())
	return nil
}

func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := &RingHandler{ring: h.ring, level: h.level}
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return clone
}

func (h *RingHandler) WithGroup(string) slog.Handler { return h }

// Fanout duplicates records to every child handler. Used during interactive
// runs so the log file and the in-terminal ring both see the stream.
type Fanout struct {
	handlers []slog.Handler
}

// NewFanout builds a fanout handler; nil children are dropped.
func NewFanout(handlers ...slog.Handler) *Fanout {
	kept := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			kept = append(kept, h)
		}
	}
	return &Fanout{handlers: kept}
}

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *Fanout) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	children := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		children[i] = h.WithAttrs(attrs)
	}
	return &Fanout{handlers: children}
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	children := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		children[i] = h.WithGroup(name)
	}
	return &Fanout{handlers: children}
}
