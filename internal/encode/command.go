// Package encode builds and runs the ffmpeg AV1 QSV encode, validates the
// result, and atomically replaces the original file.
package encode

import (
	"path/filepath"
	"strings"
)

// qsvDecoders maps source codecs to their Quick Sync decoder. Anything else
// decodes on the CPU into QSV surfaces.
var qsvDecoders = map[string]string{
	"h264":       "h264_qsv",
	"hevc":       "hevc_qsv",
	"mpeg2video": "mpeg2_qsv",
	"vp9":        "vp9_qsv",
}

// DecoderFor returns the QSV decoder for a source codec, if one exists.
func DecoderFor(codec string) (string, bool) {
	decoder, ok := qsvDecoders[strings.ToLower(strings.TrimSpace(codec))]
	return decoder, ok
}

// Command describes one ffmpeg encode invocation.
type Command struct {
	Binary     string
	Input      string
	Output     string
	Device     string
	Preset     string
	InputCodec string
}

// Args assembles the ffmpeg argument list. Hardware decode is used when the
// input codec has a QSV decoder; otherwise the CPU decodes into QSV surfaces
// and only the encode runs on hardware. Audio streams are copied untouched.
func (c Command) Args() []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}

	if decoder, ok := DecoderFor(c.InputCodec); ok {
		args = append(args, "-hwaccel", "qsv", "-qsv_device", c.Device, "-c:v", decoder, "-i", c.Input)
	} else {
		args = append(args, "-hwaccel", "qsv", "-hwaccel_output_format", "qsv", "-i", c.Input)
	}

	preset := c.Preset
	if preset == "" {
		preset = "medium"
	}
	args = append(args, "-c:v", "av1_qsv", "-preset", preset, "-look_ahead", "1")
	args = append(args, "-c:a", "copy")
	args = append(args, c.Output)
	return args
}

// OutputPath derives the temporary encode destination from the staged source,
// keeping the container extension.
func OutputPath(stagedPath string) string {
	ext := filepath.Ext(stagedPath)
	return strings.TrimSuffix(stagedPath, ext) + "_av1" + ext
}
