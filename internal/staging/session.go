// Package staging manages the working area where source files are copied
// before encoding. Each run owns a uniquely named session directory guarded
// by a lock file so concurrent runs cannot share staging state.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const lockFileName = "staging.lock"

// Session is a per-run staging area rooted under the configured staging
// directory.
type Session struct {
	root string
	dir  string
	id   string
	lock *flock.Flock
}

// Open creates a session directory under root and acquires the staging lock.
// It fails when another recode process already holds the lock.
func Open(root string) (*Session, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("staging: empty root directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("staging: create root: %w", err)
	}

	lock := flock.New(filepath.Join(root, lockFileName))
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("staging: acquire lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("staging: %s is in use by another process", root)
	}

	id := uuid.NewString()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("staging: create session directory: %w", err)
	}

	return &Session{root: root, dir: dir, id: id, lock: lock}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Dir returns the session directory path.
func (s *Session) Dir() string { return s.dir }

// Root returns the staging root the session lives under.
func (s *Session) Root() string { return s.root }

// Contains reports whether path lies inside the staging root. The scanner
// uses this to skip staged copies when the staging area nests under the
// source tree.
func (s *Session) Contains(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}

// RecordDir creates and returns a staging subdirectory for one file. Keying
// by record ID keeps files with identical basenames from clobbering each
// other.
func (s *Session) RecordDir(recordID int64) (string, error) {
	dir := filepath.Join(s.dir, fmt.Sprintf("%d", recordID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("staging: create record directory: %w", err)
	}
	return dir, nil
}

// ReleaseRecord removes one record's staging subdirectory.
func (s *Session) ReleaseRecord(recordID int64) error {
	return os.RemoveAll(filepath.Join(s.dir, fmt.Sprintf("%d", recordID)))
}

// Close removes the session directory and releases the lock. The staging
// root itself is removed only when nothing else lives in it.
func (s *Session) Close() error {
	removeErr := os.RemoveAll(s.dir)

	if entries, err := os.ReadDir(s.root); err == nil {
		onlyLock := true
		for _, entry := range entries {
			if entry.Name() != lockFileName {
				onlyLock = false
				break
			}
		}
		if onlyLock {
			_ = os.Remove(filepath.Join(s.root, lockFileName))
			_ = os.Remove(s.root)
		}
	}

	if err := s.lock.Unlock(); err != nil && removeErr == nil {
		removeErr = fmt.Errorf("staging: release lock: %w", err)
	}
	return removeErr
}
