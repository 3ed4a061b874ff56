package logging_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"recode/internal/logging"
	"recode/internal/services"
)

func TestRingDropsOldestLines(t *testing.T) {
	ring := logging.NewRing(3)
	for _, line := range []string{"a", "b", "c", "d"} {
		ring.Append(line)
	}
	if ring.Len() != 3 {
		t.Fatalf("expected 3 buffered lines, got %d", ring.Len())
	}
	tail := ring.Tail(0)
	if len(tail) != 3 || tail[0] != "b" || tail[2] != "d" {
		t.Fatalf("unexpected tail: %v", tail)
	}
}

func TestRingTailLimit(t *testing.T) {
	ring := logging.NewRing(10)
	ring.Append("one")
	ring.Append("two")
	tail := ring.Tail(1)
	if len(tail) != 1 || tail[0] != "two" {
		t.Fatalf("unexpected tail: %v", tail)
	}
}

func TestRingHandlerFormatsComponent(t *testing.T) {
	ring := logging.NewRing(10)
	logger := slog.New(logging.NewRingHandler(ring, slog.LevelInfo))
	logger = logging.NewComponentLogger(logger, "encoder")

	logger.Info("encode finished", logging.String("file", "a.mp4"))
	logger.Debug("dropped below level")

	tail := ring.Tail(0)
	if len(tail) != 1 {
		t.Fatalf("expected 1 line, got %d: %v", len(tail), tail)
	}
	if !strings.Contains(tail[0], "encoder: encode finished") {
		t.Fatalf("component prefix missing: %q", tail[0])
	}
	if !strings.Contains(tail[0], "file=a.mp4") {
		t.Fatalf("attribute missing: %q", tail[0])
	}
}

func TestWithContextCarriesRecordAndStage(t *testing.T) {
	ring := logging.NewRing(10)
	base := slog.New(logging.NewRingHandler(ring, slog.LevelInfo))

	ctx := services.WithStage(services.WithRecordID(context.Background(), 42), "encoder")
	logging.WithContext(ctx, base).Info("encode started")

	tail := ring.Tail(0)
	if len(tail) != 1 {
		t.Fatalf("expected 1 line, got %d: %v", len(tail), tail)
	}
	if !strings.Contains(tail[0], "record_id=42") {
		t.Fatalf("record id missing: %q", tail[0])
	}
	if !strings.Contains(tail[0], "stage=encoder") {
		t.Fatalf("stage missing: %q", tail[0])
	}
}

func TestWithContextPlainContextReturnsLogger(t *testing.T) {
	base := slog.New(logging.NoopHandler{})
	if got := logging.WithContext(context.Background(), base); got != base {
		t.Fatal("expected the original logger back for an unannotated context")
	}
}

func TestFanoutReachesAllHandlers(t *testing.T) {
	first := logging.NewRing(10)
	second := logging.NewRing(10)
	handler := logging.NewFanout(
		logging.NewRingHandler(first, slog.LevelInfo),
		logging.NewRingHandler(second, slog.LevelWarn),
		nil,
	)
	logger := slog.New(handler)

	logger.Info("info line")
	logger.Warn("warn line")

	if first.Len() != 2 {
		t.Fatalf("expected 2 lines in first ring, got %d", first.Len())
	}
	if second.Len() != 1 {
		t.Fatalf("expected warn-only second ring to hold 1 line, got %d", second.Len())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := t.TempDir() + "/run.log"
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("hello", logging.Int("n", 1))
}
