package preflight

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckDirectoryReadable(t *testing.T) {
	dir := t.TempDir()

	result := CheckDirectoryReadable("Source directory", dir)
	if !result.Passed {
		t.Fatalf("expected readable dir to pass: %+v", result)
	}

	result = CheckDirectoryReadable("Source directory", filepath.Join(dir, "missing"))
	if result.Passed {
		t.Fatalf("expected missing dir to fail: %+v", result)
	}

	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result = CheckDirectoryReadable("Source directory", file)
	if result.Passed {
		t.Fatalf("expected regular file to fail: %+v", result)
	}
}

func TestCheckDirectoryWritable(t *testing.T) {
	dir := t.TempDir()
	if result := CheckDirectoryWritable("Staging directory", dir); !result.Passed {
		t.Fatalf("expected writable dir to pass: %+v", result)
	}
	if result := CheckDirectoryWritable("Staging directory", filepath.Join(dir, "missing")); result.Passed {
		t.Fatalf("expected missing dir to fail: %+v", result)
	}
}

func TestCheckFreeSpaceOnTempDir(t *testing.T) {
	result := CheckFreeSpace("Staging free space", t.TempDir())
	if result.Detail == "" {
		t.Fatalf("expected free space detail: %+v", result)
	}
}

func TestCheckRenderDeviceMissingIsOptional(t *testing.T) {
	result := CheckRenderDevice(filepath.Join(t.TempDir(), "renderD128"))
	if result.Passed {
		t.Fatalf("expected missing device to fail: %+v", result)
	}
	if !result.Optional {
		t.Fatalf("expected render device check to be optional: %+v", result)
	}
}

func TestFailedIgnoresOptionalChecks(t *testing.T) {
	results := []Result{
		{Name: "a", Passed: true},
		{Name: "b", Passed: false, Optional: true},
		{Name: "c", Passed: false},
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "c" {
		t.Fatalf("unexpected failed set: %+v", failed)
	}
}
