package encode

import (
	"context"
	"log/slog"
	"os"
	"time"

	"recode/internal/logging"
	"recode/internal/services"
)

// Encoder runs staged files through ffmpeg one at a time.
type Encoder struct {
	FFmpeg      string
	FFprobe     string
	Device      string
	Preset      string
	TargetCodec string
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Request describes one file handed to the encoder.
type Request struct {
	StagedPath   string
	OriginalPath string
	InputCodec   string
	// Cancelled is polled while ffmpeg runs so a user request interrupts
	// the encode promptly.
	Cancelled func() bool
}

// Encode runs the full encode for one staged file: ffmpeg, output
// validation, then atomic replacement of the original. It returns the
// encoded size on success. Temporary artifacts are removed on failure; the
// original is only touched by the final replace.
func (e *Encoder) Encode(ctx context.Context, req Request) (int64, error) {
	logger := logging.NewComponentLogger(e.Logger, "encoder")
	output := OutputPath(req.StagedPath)

	stop := func() bool {
		if ctx.Err() != nil {
			return true
		}
		return req.Cancelled != nil && req.Cancelled()
	}

	cmd := Command{
		Binary:     e.FFmpeg,
		Input:      req.StagedPath,
		Output:     output,
		Device:     e.Device,
		Preset:     e.Preset,
		InputCodec: req.InputCodec,
	}

	if err := Run(cmd, e.Timeout, stop, logger); err != nil {
		_ = os.Remove(output)
		return 0, err
	}

	if err := ValidateOutput(ctx, e.FFprobe, output, e.TargetCodec); err != nil {
		_ = os.Remove(output)
		return 0, err
	}

	info, err := os.Stat(output)
	if err != nil {
		_ = os.Remove(output)
		return 0, services.Wrap(services.ErrFilesystem, "encoder", "stat", "encoded output", err)
	}
	size := info.Size()

	if err := ReplaceOriginal(req.OriginalPath, output); err != nil {
		_ = os.Remove(output)
		return 0, err
	}

	logger.Info("replaced original with encoded output",
		logging.String("path", req.OriginalPath),
		logging.Int64("size", size))
	return size, nil
}
