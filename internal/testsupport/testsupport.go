// Package testsupport provides shared fixtures for tests that need a full
// configuration, fake ffmpeg/ffprobe binaries, or source files on disk.
package testsupport

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"recode/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SourceDir = filepath.Join(base, "source")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Encoder.QSVDevice = ""

	if err := os.MkdirAll(cfg.Paths.SourceDir, 0o755); err != nil {
		t.Fatalf("mkdir source dir: %v", err)
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithTools points the config at fake encoder binaries.
func WithTools(ffmpeg, ffprobe string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Encoder.FFmpeg = ffmpeg
		cfg.Encoder.FFprobe = ffprobe
	}
}

// WriteTool writes an executable shell script standing in for an external
// binary and returns its path. Skips the test on platforms without /bin/sh.
func WriteTool(t testing.TB, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts require a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write fake %s: %v", name, err)
	}
	return path
}

// WriteSource creates a file under dir with the given relative name.
func WriteSource(t testing.TB, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
