package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	var problems []string

	appendError := func(err error) {
		if err != nil {
			problems = append(problems, err.Error())
		}
	}

	appendError(c.Paths.validate())
	appendError(c.Encoder.validate())
	appendError(c.Scan.validate())
	appendError(c.Logging.validate())
	appendError(c.Ledger.validate())

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

func (p Paths) validate() error {
	if p.SourceDir == "" {
		return errors.New("paths.source_dir must be set")
	}
	if p.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if p.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if p.StagingDir == p.SourceDir {
		return errors.New("paths.staging_dir must differ from paths.source_dir")
	}
	return nil
}

func (e Encoder) validate() error {
	if e.FFmpeg == "" {
		return errors.New("encoder.ffmpeg must be set")
	}
	if e.FFprobe == "" {
		return errors.New("encoder.ffprobe must be set")
	}
	if e.QSVDevice == "" {
		return errors.New("encoder.qsv_device must be set")
	}
	if e.TargetCodec == "" {
		return errors.New("encoder.target_codec must be set")
	}
	if e.PrepareCapacity < 1 {
		return fmt.Errorf("encoder.prepare_capacity must be at least 1, got %d", e.PrepareCapacity)
	}
	return nil
}

func (s Scan) validate() error {
	if len(s.Extensions) == 0 {
		return errors.New("scan.extensions must list at least one extension")
	}
	return nil
}

func (l Logging) validate() error {
	switch l.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", l.Format)
	}
	switch l.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", l.Level)
	}
	return nil
}

func (l Ledger) validate() error {
	if l.RetentionDays < 0 {
		return fmt.Errorf("ledger.retention_days must not be negative, got %d", l.RetentionDays)
	}
	return nil
}
