// Package services defines shared utilities consumed by the pipeline stages:
// structured error markers plus the Wrap helper that translate failures into
// consistent record statuses, and context helpers that stamp record IDs and
// stage names for logging.
package services

import (
	"errors"
	"fmt"
	"strings"

	"recode/internal/registry"
)

var (
	// ErrProbe marks ffprobe inspection failures.
	ErrProbe = errors.New("probe error")
	// ErrEncode marks a non-zero ffmpeg exit or invalid encoder output.
	ErrEncode = errors.New("encode error")
	// ErrTimeout marks an encode that exceeded the configured time limit.
	ErrTimeout = errors.New("encode timeout")
	// ErrFilesystem marks copy, replace, and delete failures.
	ErrFilesystem = errors.New("filesystem error")
	// ErrCancelled marks work abandoned at a user's request.
	ErrCancelled = errors.New("cancelled")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later status classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrFilesystem
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a stage error to the record status that should be
// persisted after the stage fails.
func FailureStatus(err error) registry.Status {
	if errors.Is(err, ErrCancelled) {
		return registry.StatusCancelled
	}
	return registry.StatusError
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
