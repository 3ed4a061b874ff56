package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recode/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config to report exists=false")
	}
	if resolved != path {
		t.Fatalf("resolved path mismatch: got %q want %q", resolved, path)
	}
	if cfg.Encoder.PrepareCapacity != 2 {
		t.Fatalf("unexpected default prepare capacity: %d", cfg.Encoder.PrepareCapacity)
	}
	if cfg.Encoder.TargetCodec != "av1" {
		t.Fatalf("unexpected default target codec: %q", cfg.Encoder.TargetCodec)
	}
	if !filepath.IsAbs(cfg.Paths.StagingDir) {
		t.Fatalf("staging dir not absolute: %q", cfg.Paths.StagingDir)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
source_dir = "` + filepath.Join(dir, "in") + `"
staging_dir = "` + filepath.Join(dir, "stage") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[encoder]
encode_timeout = 120
prepare_capacity = 4

[scan]
extensions = ["MKV", "mp4"]
delete_zero_byte = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Encoder.EncodeTimeout != 120 {
		t.Fatalf("encode_timeout not applied: %d", cfg.Encoder.EncodeTimeout)
	}
	if cfg.Encoder.PrepareCapacity != 4 {
		t.Fatalf("prepare_capacity not applied: %d", cfg.Encoder.PrepareCapacity)
	}
	if !cfg.Scan.DeleteZeroByte {
		t.Fatal("delete_zero_byte not applied")
	}
	if len(cfg.Scan.Extensions) != 2 || cfg.Scan.Extensions[0] != ".mkv" || cfg.Scan.Extensions[1] != ".mp4" {
		t.Fatalf("extensions not normalized: %v", cfg.Scan.Extensions)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[encoder]
prepare_capacity = 0

[logging]
format = "xml"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "prepare_capacity") {
		t.Fatalf("missing prepare_capacity problem: %v", err)
	}
	if !strings.Contains(err.Error(), "logging.format") {
		t.Fatalf("missing logging.format problem: %v", err)
	}
}

func TestLoadRejectsStagingInsideSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
source_dir = "` + dir + `"
staging_dir = "` + dir + `"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected staging_dir/source_dir clash to be rejected")
	}
}

func TestMatchesExtension(t *testing.T) {
	cfg := config.Default()
	cfg.Scan.Extensions = []string{".mkv", ".mp4"}

	cases := []struct {
		name string
		want bool
	}{
		{"movie.mkv", true},
		{"MOVIE.MKV", true},
		{"clip.mp4", true},
		{"notes.txt", false},
		{"archive.mkv.bak", false},
		{"noext", false},
	}
	for _, tc := range cases {
		if got := cfg.MatchesExtension(tc.name); got != tc.want {
			t.Errorf("MatchesExtension(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	got, err := config.ExpandPath("~/media")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if got != filepath.Join(home, "media") {
		t.Fatalf("unexpected expansion: %q", got)
	}
}

func TestCreateSampleWritesParseableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("sample config not found after writing")
	}
	if cfg.Encoder.QSVDevice != "/dev/dri/renderD128" {
		t.Fatalf("unexpected sample qsv device: %q", cfg.Encoder.QSVDevice)
	}
}
