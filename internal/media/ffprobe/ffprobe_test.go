package ffprobe

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", CodecName: "H264"},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			BitRate:  "32000",
		},
	}
	if result.VideoCodec() != "h264" {
		t.Fatalf("unexpected video codec: %q", result.VideoCodec())
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}

func TestVideoCodecEmptyWithoutVideo(t *testing.T) {
	result := Result{Streams: []Stream{{CodecType: "audio", CodecName: "aac"}}}
	if codec := result.VideoCodec(); codec != "" {
		t.Fatalf("expected empty codec, got %q", codec)
	}
}

func TestInspectParsesFakeToolOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake tool script requires a POSIX shell")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "ffprobe")
	payload := `{"streams":[{"index":0,"codec_name":"hevc","codec_type":"video","width":1920,"height":1080}],"format":{"duration":"42.0","size":"2048"}}`
	if err := os.WriteFile(script, []byte("#!/bin/sh\nprintf '%s' '"+payload+"'\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	result, err := Inspect(context.Background(), script, filepath.Join(dir, "clip.mkv"))
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if result.VideoCodec() != "hevc" {
		t.Fatalf("unexpected codec: %q", result.VideoCodec())
	}
	if result.DurationSeconds() != 42.0 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := Inspect(context.Background(), "ffprobe", "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestInspectSurfacesToolFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake tool script requires a POSIX shell")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho 'moov atom not found' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := Inspect(context.Background(), script, filepath.Join(dir, "broken.mp4")); err == nil {
		t.Fatal("expected probe failure to surface")
	}
}
