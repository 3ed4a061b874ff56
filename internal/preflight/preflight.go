// Package preflight runs startup checks before the pipeline takes over the
// terminal: tool binaries, directory permissions, free space, and the QSV
// render device.
package preflight

import (
	"recode/internal/config"
	"recode/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes every applicable check for the given config. Failures in
// non-optional checks are fatal to a run.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryReadable("Source directory", cfg.Paths.SourceDir),
		CheckDirectoryWritable("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryWritable("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Staging free space", cfg.Paths.StagingDir),
		CheckRenderDevice(cfg.Encoder.QSVDevice),
	}

	for _, status := range CheckTools(cfg) {
		result := Result{
			Name:     status.Name,
			Passed:   status.Available,
			Optional: status.Optional,
			Detail:   status.Detail,
		}
		if status.Available {
			result.Detail = status.Command
		}
		results = append(results, result)
	}

	return results
}

// Failed returns the non-optional checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

// CheckTools evaluates the external binaries the pipeline shells out to.
func CheckTools(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Encoder.FFmpeg,
			Description: "Required for encoding",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Encoder.FFprobe,
			Description: "Required for media inspection",
		},
	})
}
