package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"recode/internal/config"
	"recode/internal/ledger"
	"recode/internal/logging"
	"recode/internal/pipeline"
	"recode/internal/preflight"
	"recode/internal/registry"
	"recode/internal/services"
	"recode/internal/staging"
	"recode/internal/tui"
)

const (
	staleStagingAge = 24 * time.Hour
	logRingCapacity = 300
)

func newRunCommand(configFlag *string) *cobra.Command {
	var headless bool

	cmd := &cobra.Command{
		Use:   "run [source-dir]",
		Short: "Scan a directory and re-encode its videos to AV1",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// A missing config file is fine here: defaults apply, and the
			// source directory falls back to the working directory.
			cfg, _, exists, err := config.Load(strings.TrimSpace(*configFlag))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			switch {
			case len(args) == 1:
				source, err := config.ExpandPath(args[0])
				if err != nil {
					return fmt.Errorf("resolve source dir: %w", err)
				}
				cfg.Paths.SourceDir = source
			case !exists:
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("determine working directory: %w", err)
				}
				cfg.Paths.SourceDir = cwd
			}
			if cfg.Paths.SourceDir == cfg.Paths.StagingDir {
				return fmt.Errorf("source directory %q equals the staging directory", cfg.Paths.SourceDir)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			if err := reportPreflight(cmd, cfg); err != nil {
				return err
			}

			interactive := !headless &&
				(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))

			ring := logging.NewRing(logRingCapacity)
			logger, err := buildRunLogger(cfg, ring, interactive)
			if err != nil {
				return err
			}

			return runPipeline(cmd, cfg, logger, ring, interactive)
		},
	}

	cmd.Flags().BoolVar(&headless, "headless", false, "Disable the interactive display and log to stdout")
	return cmd
}

// reportPreflight prints failing checks and aborts on any required failure.
func reportPreflight(cmd *cobra.Command, cfg *config.Config) error {
	results := preflight.RunAll(cfg)
	for _, result := range results {
		if result.Passed {
			continue
		}
		if result.Optional {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", result.Name, result.Detail)
		}
	}
	if failed := preflight.Failed(results); len(failed) > 0 {
		lines := make([]string, 0, len(failed))
		for _, result := range failed {
			lines = append(lines, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
		return fmt.Errorf("preflight failed:\n  %s", strings.Join(lines, "\n  "))
	}
	return nil
}

// buildRunLogger writes structured logs to a file in the log directory. The
// interactive display additionally mirrors records into the ring buffer;
// headless runs mirror them to stdout instead.
func buildRunLogger(cfg *config.Config, ring *logging.Ring, interactive bool) (*slog.Logger, error) {
	fileLogger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      "json",
		OutputPaths: []string{cfg.RunLogPath()},
	})
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	var mirror slog.Handler
	if interactive {
		mirror = logging.NewRingHandler(ring, logging.ParseLevel(cfg.Logging.Level))
	} else {
		stdout, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
		if err != nil {
			return nil, err
		}
		mirror = stdout.Handler()
	}

	return slog.New(logging.NewFanout(fileLogger.Handler(), mirror)), nil
}

func runPipeline(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, ring *logging.Ring, interactive bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := staging.Open(cfg.Paths.StagingDir)
	if err != nil {
		return fmt.Errorf("open staging session: %w", err)
	}
	if result := staging.CleanStale(cfg.Paths.StagingDir, staleStagingAge, logger); len(result.Removed) > 0 {
		logger.Info("removed stale staging sessions",
			logging.Int("removed", len(result.Removed)))
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close staging session", logging.Error(err))
		}
	}()

	var store *ledger.Store
	if cfg.Ledger.Enabled {
		store, err = ledger.Open(cfg.LedgerPath())
		if err != nil {
			return fmt.Errorf("open run history: %w", err)
		}
		defer store.Close()
	}

	reg := registry.New()
	mgr := pipeline.NewManager(cfg, reg, session, store, logger)

	var runErr error
	if interactive {
		runErr = tui.Run(ctx, mgr, ring)
	} else {
		runErr = mgr.Run(ctx)
	}

	printSummary(cmd, reg)

	// Quitting is a normal way to end a run, not a failure.
	if errors.Is(runErr, services.ErrCancelled) {
		fmt.Fprintln(cmd.OutOrStdout(), "Run cancelled.")
		return nil
	}
	return runErr
}

// printSummary writes the final per-status tallies after a run.
func printSummary(cmd *cobra.Command, reg *registry.Registry) {
	snaps := reg.Snapshot()
	counts := reg.Counts()

	var saved int64
	for _, snap := range snaps {
		if snap.Status == registry.StatusSuccess && snap.EncodedSize > 0 {
			saved += snap.OriginalSize - snap.EncodedSize
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Processed %d files: %d encoded, %d skipped, %d failed, %d cancelled, %d deleted\n",
		len(snaps),
		counts[registry.StatusSuccess],
		counts[registry.StatusSkipped],
		counts[registry.StatusError],
		counts[registry.StatusCancelled],
		counts[registry.StatusDeleted])
	if saved > 0 {
		fmt.Fprintf(out, "Space saved: %s\n", humanize.IBytes(uint64(saved)))
	}

	for _, snap := range snaps {
		if snap.Status == registry.StatusError {
			fmt.Fprintf(out, "  failed: %s: %s\n", snap.SourcePath, snap.ErrorMessage)
		}
	}
}
