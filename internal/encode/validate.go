package encode

import (
	"context"
	"fmt"
	"os"

	"recode/internal/media/ffprobe"
	"recode/internal/services"
)

// ValidateOutput confirms the encoded file is non-empty and actually carries
// the target codec before the original is replaced.
func ValidateOutput(ctx context.Context, ffprobeBin, path, targetCodec string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrEncode, "encoder", "validate", "output missing", err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrEncode, "encoder", "validate", "output is empty", nil)
	}

	result, err := ffprobe.Inspect(ctx, ffprobeBin, path)
	if err != nil {
		return services.Wrap(services.ErrEncode, "encoder", "validate", "output probe failed", err)
	}
	if result.VideoStreamCount() == 0 {
		return services.Wrap(services.ErrEncode, "encoder", "validate", "output has no video stream", nil)
	}
	if codec := result.VideoCodec(); codec != targetCodec {
		return services.Wrap(services.ErrEncode, "encoder", "validate",
			fmt.Sprintf("output codec %q, expected %q", codec, targetCodec), nil)
	}
	return nil
}
