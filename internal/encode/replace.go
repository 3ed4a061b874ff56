package encode

import (
	"io"
	"os"

	"github.com/google/renameio/v2"

	"recode/internal/services"
)

// ReplaceOriginal swaps the original file for the encoded one without ever
// leaving a window where no valid file exists at the original path. The
// encoded bytes are streamed into a pending file beside the original, so the
// final rename happens within one filesystem even when staging lives on
// another.
func ReplaceOriginal(originalPath, encodedPath string) error {
	in, err := os.Open(encodedPath)
	if err != nil {
		return services.Wrap(services.ErrFilesystem, "encoder", "replace", "open encoded output", err)
	}
	defer in.Close()

	pending, err := renameio.NewPendingFile(originalPath, renameio.WithExistingPermissions())
	if err != nil {
		return services.Wrap(services.ErrFilesystem, "encoder", "replace", "create pending file", err)
	}
	defer pending.Cleanup()

	if _, err := io.Copy(pending, in); err != nil {
		return services.Wrap(services.ErrFilesystem, "encoder", "replace", "stream encoded output", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return services.Wrap(services.ErrFilesystem, "encoder", "replace", "atomic rename", err)
	}

	_ = os.Remove(encodedPath)
	return nil
}
