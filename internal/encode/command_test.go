package encode

import (
	"reflect"
	"testing"
)

func TestCommandArgsHardwareDecode(t *testing.T) {
	cmd := Command{
		Binary:     "ffmpeg",
		Input:      "/tmp/in.mkv",
		Output:     "/tmp/in_av1.mkv",
		Device:     "/dev/dri/renderD128",
		Preset:     "medium",
		InputCodec: "h264",
	}
	want := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-hwaccel", "qsv", "-qsv_device", "/dev/dri/renderD128", "-c:v", "h264_qsv", "-i", "/tmp/in.mkv",
		"-c:v", "av1_qsv", "-preset", "medium", "-look_ahead", "1",
		"-c:a", "copy",
		"/tmp/in_av1.mkv",
	}
	if got := cmd.Args(); !reflect.DeepEqual(got, want) {
		t.Fatalf("args mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestCommandArgsCPUDecodeFallback(t *testing.T) {
	cmd := Command{
		Binary:     "ffmpeg",
		Input:      "/tmp/in.webm",
		Output:     "/tmp/in_av1.webm",
		Device:     "/dev/dri/renderD128",
		InputCodec: "av1",
	}
	want := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-hwaccel", "qsv", "-hwaccel_output_format", "qsv", "-i", "/tmp/in.webm",
		"-c:v", "av1_qsv", "-preset", "medium", "-look_ahead", "1",
		"-c:a", "copy",
		"/tmp/in_av1.webm",
	}
	if got := cmd.Args(); !reflect.DeepEqual(got, want) {
		t.Fatalf("args mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestDecoderFor(t *testing.T) {
	cases := []struct {
		codec string
		want  string
		ok    bool
	}{
		{"h264", "h264_qsv", true},
		{"HEVC", "hevc_qsv", true},
		{"mpeg2video", "mpeg2_qsv", true},
		{"vp9", "vp9_qsv", true},
		{"av1", "", false},
		{"prores", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := DecoderFor(tc.codec)
		if got != tc.want || ok != tc.ok {
			t.Errorf("DecoderFor(%q) = %q, %v; want %q, %v", tc.codec, got, ok, tc.want, tc.ok)
		}
	}
}

func TestOutputPath(t *testing.T) {
	if got := OutputPath("/stage/7/movie.mkv"); got != "/stage/7/movie_av1.mkv" {
		t.Fatalf("unexpected output path: %q", got)
	}
	if got := OutputPath("/stage/7/noext"); got != "/stage/7/noext_av1" {
		t.Fatalf("unexpected output path: %q", got)
	}
}
