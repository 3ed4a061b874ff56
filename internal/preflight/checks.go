package preflight

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// Encodes stall rather than fail cleanly when staging runs dry, so demand
// some headroom up front.
const minStagingBytes = 1 << 30

// CheckDirectoryReadable verifies that the directory exists and can be listed.
func CheckDirectoryReadable(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckDirectoryWritable verifies that the directory exists and is writable.
func CheckDirectoryWritable(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem under path has room for staged
// copies and temporary encodes.
func CheckFreeSpace(name, path string) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := uint64(stat.Bavail) * uint64(stat.Bsize)
	if free < minStagingBytes {
		return Result{
			Name:   name,
			Detail: fmt.Sprintf("%s free, need at least %s", humanize.IBytes(free), humanize.IBytes(minStagingBytes)),
		}
	}
	return Result{Name: name, Passed: true, Detail: humanize.IBytes(free) + " free"}
}

// CheckRenderDevice verifies the DRM render node exists and is accessible.
// Missing hardware is not fatal since ffmpeg falls back to CPU decode, so
// the check is optional.
func CheckRenderDevice(device string) Result {
	const name = "QSV render device"
	info, err := os.Stat(device)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (error: does not exist)", device)}
		}
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (error: stat: %v)", device, err)}
	}
	if info.Mode()&os.ModeDevice == 0 {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (error: not a device node)", device)}
	}
	if err := unix.Access(device, unix.R_OK|unix.W_OK); err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", device, err)}
	}
	return Result{Name: name, Passed: true, Optional: true, Detail: device}
}
