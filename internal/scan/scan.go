// Package scan walks the source tree once and populates the registry with
// every matching video file.
package scan

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"recode/internal/config"
	"recode/internal/logging"
	"recode/internal/registry"
	"recode/internal/services"
)

// Scanner enumerates the source tree. It runs once, to completion, before
// the preparer is allowed to drain the pending queue to empty.
type Scanner struct {
	cfg    *config.Config
	reg    *registry.Registry
	logger *slog.Logger

	// skip reports whether a directory belongs to the staging area and must
	// not be scanned. Set when staging nests under the source root.
	skip func(path string) bool
}

// New builds a scanner over the configured source directory.
func New(cfg *config.Config, reg *registry.Registry, skip func(string) bool, logger *slog.Logger) *Scanner {
	return &Scanner{
		cfg:    cfg,
		reg:    reg,
		logger: logging.NewComponentLogger(logger, "scanner"),
		skip:   skip,
	}
}

// Run walks the source root and returns the IDs of all records left in
// Pending, ordered by source path. An unreadable root is fatal; unreadable
// subdirectories are logged and skipped.
func (s *Scanner) Run(ctx context.Context) ([]int64, error) {
	root := s.cfg.Paths.SourceDir

	if _, err := os.ReadDir(root); err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "scanner", "walk", "source root unreadable", err)
	}

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.logger.Warn("skipping unreadable path", logging.String("path", path), logging.Error(err))
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			if s.skip != nil && s.skip(path) && path != root {
				s.logger.Debug("skipping staging tree", logging.String("path", path))
				return fs.SkipDir
			}
			return nil
		}
		if !s.cfg.MatchesExtension(entry.Name()) {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("skipping unreadable file", logging.String("path", path), logging.Error(err))
			return nil
		}

		rec, err := s.reg.Add(path, info.Size())
		if err != nil {
			s.logger.Warn("duplicate file ignored", logging.String("path", path), logging.Error(err))
			return nil
		}

		if info.Size() == 0 && s.cfg.Scan.DeleteZeroByte {
			s.deleteZeroByte(rec.ID, path)
		}
		return nil
	})
	if walkErr != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrCancelled, "scanner", "walk", "scan interrupted", walkErr)
		}
		return nil, services.Wrap(services.ErrFilesystem, "scanner", "walk", "", walkErr)
	}

	s.reg.SortByPath()

	var pending []int64
	for _, snap := range s.reg.Snapshot() {
		if snap.Status == registry.StatusPending {
			pending = append(pending, snap.ID)
		}
	}

	s.logger.Info("scan complete",
		logging.Int("found", s.reg.Len()),
		logging.Int("pending", len(pending)))
	return pending, nil
}

func (s *Scanner) deleteZeroByte(id int64, path string) {
	if err := os.Remove(path); err != nil {
		s.logger.Warn("failed to delete zero-byte file", logging.String("path", path), logging.Error(err))
		_ = s.reg.Update(id, func(rec *registry.Record) {
			rec.Status = registry.StatusError
			rec.StatusNote = "0-byte (delete failed)"
			rec.ErrorMessage = err.Error()
		})
		return
	}
	s.logger.Info("deleted zero-byte file", logging.String("path", path))
	_ = s.reg.Transition(id, registry.StatusDeleted, "0-byte file (deleted)")
}
