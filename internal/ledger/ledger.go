// Package ledger persists a summary of every completed run to a local
// SQLite database so past results survive the process-scoped registry.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"recode/internal/registry"
	"recode/internal/textutil"
)

// Store manages run-history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    source_dir TEXT NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    total INTEGER NOT NULL,
    succeeded INTEGER NOT NULL,
    skipped INTEGER NOT NULL,
    failed INTEGER NOT NULL,
    cancelled INTEGER NOT NULL,
    deleted INTEGER NOT NULL,
    bytes_saved INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    source_path TEXT NOT NULL,
    title TEXT NOT NULL,
    status TEXT NOT NULL,
    codec TEXT,
    original_size INTEGER NOT NULL,
    encoded_size INTEGER,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_run_files_run ON run_files(run_id);
`

// Open initializes or connects to the run-history database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Run describes one pipeline execution.
type Run struct {
	ID         int64
	SessionID  string
	SourceDir  string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Skipped    int
	Failed     int
	Cancelled  int
	Deleted    int
	BytesSaved int64
}

// FileEntry is one file's outcome within a recorded run.
type FileEntry struct {
	SourcePath   string
	Title        string
	Status       registry.Status
	Codec        string
	OriginalSize int64
	EncodedSize  int64
	ErrorMessage string
}

// RecordRun persists a finished run and the terminal state of every record.
func (s *Store) RecordRun(ctx context.Context, run Run, files []registry.Snapshot) (int64, error) {
	for _, snap := range files {
		run.Total++
		switch snap.Status {
		case registry.StatusSuccess:
			run.Succeeded++
			if snap.OriginalSize > snap.EncodedSize {
				run.BytesSaved += snap.OriginalSize - snap.EncodedSize
			}
		case registry.StatusSkipped:
			run.Skipped++
		case registry.StatusError:
			run.Failed++
		case registry.StatusCancelled:
			run.Cancelled++
		case registry.StatusDeleted:
			run.Deleted++
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin run tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (
            session_id, source_dir, started_at, finished_at,
            total, succeeded, skipped, failed, cancelled, deleted, bytes_saved
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.SessionID,
		run.SourceDir,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Total, run.Succeeded, run.Skipped, run.Failed, run.Cancelled, run.Deleted,
		run.BytesSaved,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for _, snap := range files {
		var encoded any
		if snap.Status == registry.StatusSuccess {
			encoded = snap.EncodedSize
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_files (
                run_id, source_path, title, status, codec,
                original_size, encoded_size, error_message
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID,
			snap.SourcePath,
			textutil.DisplayTitle(snap.SourcePath),
			string(snap.Status),
			nullableString(snap.Codec),
			snap.OriginalSize,
			encoded,
			nullableString(snap.ErrorMessage),
		); err != nil {
			return 0, fmt.Errorf("insert run file: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, source_dir, started_at, finished_at,
                total, succeeded, skipped, failed, cancelled, deleted, bytes_saved
         FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run         Run
			startedRaw  string
			finishedRaw string
		)
		if err := rows.Scan(
			&run.ID, &run.SessionID, &run.SourceDir, &startedRaw, &finishedRaw,
			&run.Total, &run.Succeeded, &run.Skipped, &run.Failed, &run.Cancelled, &run.Deleted,
			&run.BytesSaved,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(startedRaw)
		run.FinishedAt = parseTime(finishedRaw)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunFiles returns every file outcome recorded for a run, in path order.
func (s *Store) RunFiles(ctx context.Context, runID int64) ([]FileEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_path, title, status, codec, original_size, encoded_size, error_message
         FROM run_files WHERE run_id = ? ORDER BY source_path`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run files: %w", err)
	}
	defer rows.Close()

	var entries []FileEntry
	for rows.Next() {
		var (
			entry     FileEntry
			statusRaw string
			codec     sql.NullString
			encoded   sql.NullInt64
			errMsg    sql.NullString
		)
		if err := rows.Scan(
			&entry.SourcePath, &entry.Title, &statusRaw, &codec,
			&entry.OriginalSize, &encoded, &errMsg,
		); err != nil {
			return nil, fmt.Errorf("scan run file: %w", err)
		}
		if status, ok := registry.ParseStatus(statusRaw); ok {
			entry.Status = status
		}
		entry.Codec = codec.String
		entry.EncodedSize = encoded.Int64
		entry.ErrorMessage = errMsg.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Prune removes runs that finished before the retention window. It returns
// the number of runs deleted.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE finished_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTime(raw string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
