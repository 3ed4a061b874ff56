package ledger_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"recode/internal/ledger"
	"recode/internal/registry"
)

func openStore(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleSnapshots() []registry.Snapshot {
	return []registry.Snapshot{
		{SourcePath: "/videos/a.mp4", Name: "a.mp4", Status: registry.StatusSuccess, Codec: "h264", OriginalSize: 500, EncodedSize: 200},
		{SourcePath: "/videos/b.mkv", Name: "b.mkv", Status: registry.StatusSkipped, Codec: "av1", OriginalSize: 300},
		{SourcePath: "/videos/c.mov", Name: "c.mov", Status: registry.StatusError, Codec: "hevc", OriginalSize: 100, ErrorMessage: "encode timeout"},
		{SourcePath: "/videos/d.avi", Name: "d.avi", Status: registry.StatusDeleted, OriginalSize: 0},
	}
}

func TestRecordRunAggregatesCounts(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	runID, err := store.RecordRun(ctx, ledger.Run{
		SessionID:  "abc",
		SourceDir:  "/videos",
		StartedAt:  time.Now().Add(-time.Hour),
		FinishedAt: time.Now(),
	}, sampleSnapshots())
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != runID {
		t.Fatalf("run id mismatch: %d vs %d", run.ID, runID)
	}
	if run.Total != 4 || run.Succeeded != 1 || run.Skipped != 1 || run.Failed != 1 || run.Deleted != 1 {
		t.Fatalf("unexpected counts: %+v", run)
	}
	if run.BytesSaved != 300 {
		t.Fatalf("unexpected bytes saved: %d", run.BytesSaved)
	}
	if run.StartedAt.IsZero() || run.FinishedAt.IsZero() {
		t.Fatalf("timestamps not round-tripped: %+v", run)
	}
}

func TestRunFilesRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	runID, err := store.RecordRun(ctx, ledger.Run{SessionID: "abc"}, sampleSnapshots())
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	files, err := store.RunFiles(ctx, runID)
	if err != nil {
		t.Fatalf("RunFiles failed: %v", err)
	}
	if len(files) != 4 {
		t.Fatalf("expected 4 files, got %d", len(files))
	}
	if files[0].SourcePath != "/videos/a.mp4" {
		t.Fatalf("files not in path order: %+v", files[0])
	}
	if files[0].Status != registry.StatusSuccess || files[0].EncodedSize != 200 {
		t.Fatalf("success row mismatch: %+v", files[0])
	}
	if files[0].Title != "A" {
		t.Fatalf("unexpected derived title: %q", files[0].Title)
	}
	if files[1].EncodedSize != 0 {
		t.Fatalf("skip row must not carry encoded size: %+v", files[1])
	}
	if files[2].ErrorMessage != "encode timeout" {
		t.Fatalf("error message lost: %+v", files[2])
	}
}

func TestPruneRemovesOldRuns(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	old := time.Now().Add(-30 * 24 * time.Hour)
	if _, err := store.RecordRun(ctx, ledger.Run{SessionID: "old", StartedAt: old, FinishedAt: old}, nil); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	if _, err := store.RecordRun(ctx, ledger.Run{SessionID: "new", StartedAt: now, FinishedAt: now}, nil); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Prune(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned run, got %d", removed)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].SessionID != "new" {
		t.Fatalf("unexpected surviving runs: %+v", runs)
	}
}

func TestPruneDisabledRetention(t *testing.T) {
	store := openStore(t)
	removed, err := store.Prune(context.Background(), 0)
	if err != nil || removed != 0 {
		t.Fatalf("expected no-op prune, got %d, %v", removed, err)
	}
}
