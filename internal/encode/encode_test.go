package encode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"recode/internal/logging"
	"recode/internal/services"
)

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// fakeFFmpeg writes a fixed payload to its final argument.
func fakeFFmpeg(t *testing.T) string {
	t.Helper()
	return writeScript(t, "ffmpeg", `for out; do :; done
printf 'av1-payload' > "$out"
`)
}

func fakeFFprobe(t *testing.T, codec string) string {
	t.Helper()
	return writeScript(t, "ffprobe",
		`printf '{"streams":[{"codec_name":"`+codec+`","codec_type":"video"}],"format":{}}'`)
}

func TestRunSuccess(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.mkv")

	cmd := Command{Binary: fakeFFmpeg(t), Input: filepath.Join(dir, "in.mkv"), Output: output}
	if err := Run(cmd, 0, nil, logging.NewNop()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil || string(data) != "av1-payload" {
		t.Fatalf("output not written: %v %q", err, data)
	}
}

func TestRunSurfacesStderrOnFailure(t *testing.T) {
	script := writeScript(t, "ffmpeg", `echo 'Device creation failed' >&2
exit 2
`)
	err := Run(Command{Binary: script}, 0, nil, logging.NewNop())
	if !errors.Is(err, services.ErrEncode) {
		t.Fatalf("expected ErrEncode, got %v", err)
	}
	if !strings.Contains(err.Error(), "Device creation failed") {
		t.Fatalf("stderr missing from error: %v", err)
	}
	if !strings.Contains(err.Error(), "code 2") {
		t.Fatalf("exit code missing from error: %v", err)
	}
}

func TestRunTimeout(t *testing.T) {
	script := writeScript(t, "ffmpeg", "sleep 10\n")
	start := time.Now()
	err := Run(Command{Binary: script}, 300*time.Millisecond, nil, logging.NewNop())
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout took too long: %v", elapsed)
	}
}

func TestRunCancelled(t *testing.T) {
	script := writeScript(t, "ffmpeg", "sleep 10\n")
	err := Run(Command{Binary: script}, 0, func() bool { return true }, logging.NewNop())
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestValidateOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.mkv")
	if err := os.WriteFile(path, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateOutput(context.Background(), fakeFFprobe(t, "av1"), path, "av1"); err != nil {
		t.Fatalf("expected valid output, got %v", err)
	}

	err := ValidateOutput(context.Background(), fakeFFprobe(t, "h264"), path, "av1")
	if !errors.Is(err, services.ErrEncode) {
		t.Fatalf("expected codec mismatch error, got %v", err)
	}
}

func TestValidateOutputRejectsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.mkv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	err := ValidateOutput(context.Background(), fakeFFprobe(t, "av1"), path, "av1")
	if !errors.Is(err, services.ErrEncode) {
		t.Fatalf("expected empty-output error, got %v", err)
	}
}

func TestValidateOutputRejectsMissingVideoStream(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audio-only.mkv")
	if err := os.WriteFile(path, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	probe := writeScript(t, "ffprobe",
		`printf '{"streams":[{"codec_name":"aac","codec_type":"audio"}],"format":{}}'`)

	err := ValidateOutput(context.Background(), probe, path, "av1")
	if !errors.Is(err, services.ErrEncode) {
		t.Fatalf("expected no-video-stream error, got %v", err)
	}
	if !strings.Contains(err.Error(), "no video stream") {
		t.Fatalf("unexpected error detail: %v", err)
	}
}

func TestValidateOutputRejectsMissing(t *testing.T) {
	err := ValidateOutput(context.Background(), "ffprobe", filepath.Join(t.TempDir(), "gone.mkv"), "av1")
	if !errors.Is(err, services.ErrEncode) {
		t.Fatalf("expected missing-output error, got %v", err)
	}
}

func TestReplaceOriginal(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "movie.mkv")
	encoded := filepath.Join(dir, "movie_av1.mkv")
	if err := os.WriteFile(original, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(encoded, []byte("new encoded bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ReplaceOriginal(original, encoded); err != nil {
		t.Fatalf("ReplaceOriginal failed: %v", err)
	}

	data, err := os.ReadFile(original)
	if err != nil || string(data) != "new encoded bytes" {
		t.Fatalf("original not replaced: %v %q", err, data)
	}
	if _, err := os.Stat(encoded); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("encoded temp not removed: %v", err)
	}
}

func TestReplaceOriginalMissingEncoded(t *testing.T) {
	dir := t.TempDir()
	err := ReplaceOriginal(filepath.Join(dir, "movie.mkv"), filepath.Join(dir, "gone.mkv"))
	if !errors.Is(err, services.ErrFilesystem) {
		t.Fatalf("expected filesystem error, got %v", err)
	}
}

func TestEncoderEncodeEndToEnd(t *testing.T) {
	dir := t.TempDir()
	staged := filepath.Join(dir, "movie.mkv")
	original := filepath.Join(dir, "library", "movie.mkv")
	if err := os.MkdirAll(filepath.Dir(original), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(staged, []byte("source bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(original, []byte("source bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	enc := &Encoder{
		FFmpeg:      fakeFFmpeg(t),
		FFprobe:     fakeFFprobe(t, "av1"),
		Device:      "/dev/dri/renderD128",
		Preset:      "medium",
		TargetCodec: "av1",
		Logger:      logging.NewNop(),
	}

	size, err := enc.Encode(context.Background(), Request{
		StagedPath:   staged,
		OriginalPath: original,
		InputCodec:   "h264",
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if size != int64(len("av1-payload")) {
		t.Fatalf("unexpected encoded size: %d", size)
	}

	data, err := os.ReadFile(original)
	if err != nil || string(data) != "av1-payload" {
		t.Fatalf("original not replaced: %v %q", err, data)
	}
	if _, err := os.Stat(OutputPath(staged)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp encode output not cleaned up: %v", err)
	}
}

func TestEncoderEncodeCancelledLeavesOriginal(t *testing.T) {
	dir := t.TempDir()
	staged := filepath.Join(dir, "movie.mkv")
	original := filepath.Join(dir, "orig.mkv")
	for _, p := range []string{staged, original} {
		if err := os.WriteFile(p, []byte("source"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	enc := &Encoder{
		FFmpeg:      writeScript(t, "ffmpeg", "sleep 10\n"),
		FFprobe:     "ffprobe",
		TargetCodec: "av1",
		Logger:      logging.NewNop(),
	}

	_, err := enc.Encode(context.Background(), Request{
		StagedPath:   staged,
		OriginalPath: original,
		Cancelled:    func() bool { return true },
	})
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	data, readErr := os.ReadFile(original)
	if readErr != nil || string(data) != "source" {
		t.Fatalf("original modified on cancel: %v %q", readErr, data)
	}
}
