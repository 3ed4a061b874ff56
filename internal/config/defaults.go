package config

const (
	defaultSourceDir  = "~/videos/incoming"
	defaultStagingDir = "~/.local/share/recode/staging"
	defaultLogDir     = "~/.local/share/recode/logs"

	defaultFFmpeg    = "ffmpeg"
	defaultFFprobe   = "ffprobe"
	defaultQSVDevice = "/dev/dri/renderD128"

	defaultPreset      = "medium"
	defaultTargetCodec = "av1"

	// Maximum seconds a single encode may run before it is abandoned.
	defaultEncodeTimeout = 600

	// How many files the preparer may stage ahead of the encoder.
	defaultPrepareCapacity = 2

	defaultLedgerRetentionDays = 90
)

func defaultExtensions() []string {
	return []string{".mp4", ".mkv", ".avi", ".mov", ".webm", ".flv", ".ts", ".mts", ".m2ts"}
}

// Default returns the baseline configuration before any file overrides.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceDir:  defaultSourceDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Encoder: Encoder{
			FFmpeg:          defaultFFmpeg,
			FFprobe:         defaultFFprobe,
			QSVDevice:       defaultQSVDevice,
			Preset:          defaultPreset,
			TargetCodec:     defaultTargetCodec,
			EncodeTimeout:   defaultEncodeTimeout,
			PrepareCapacity: defaultPrepareCapacity,
		},
		Scan: Scan{
			Extensions:        defaultExtensions(),
			DeleteZeroByte:    false,
			DeleteProbeErrors: false,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
		Ledger: Ledger{
			Enabled:       true,
			RetentionDays: defaultLedgerRetentionDays,
		},
	}
}
