package encode

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"recode/internal/logging"
	"recode/internal/services"
)

const (
	pollInterval  = 100 * time.Millisecond
	graceDeadline = 10 * time.Second
)

// Run executes one ffmpeg encode and blocks until it finishes or is stopped.
// The process is polled so a cancellation request or the configured time
// limit interrupts a running encode instead of waiting for it to exit.
// timeout <= 0 disables the limit. stop reports whether the encode should be
// abandoned; it is polled between intervals.
func Run(cmd Command, timeout time.Duration, stop func() bool, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}

	var stderr bytes.Buffer
	proc := exec.Command(cmd.Binary, cmd.Args()...)
	proc.Stderr = &stderr

	logger.Debug("starting ffmpeg", logging.String("args", strings.Join(cmd.Args(), " ")))

	if err := proc.Start(); err != nil {
		return services.Wrap(services.ErrEncode, "encoder", "start", "ffmpeg did not start", err)
	}

	started := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- proc.Wait()
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var abandoned error
	for abandoned == nil {
		select {
		case waitErr := <-done:
			return classifyExit(waitErr, &stderr)
		case <-ticker.C:
			if stop != nil && stop() {
				abandoned = services.Wrap(services.ErrCancelled, "encoder", "run", "encode cancelled", nil)
			} else if timeout > 0 && time.Since(started) > timeout {
				abandoned = services.Wrap(services.ErrTimeout, "encoder", "run",
					fmt.Sprintf("encode exceeded %s", timeout), nil)
			}
		}
	}

	terminate(proc, done, logger)
	return abandoned
}

// terminate asks ffmpeg to exit and escalates to SIGKILL after a grace
// period.
func terminate(proc *exec.Cmd, done <-chan error, logger *slog.Logger) {
	if proc.Process == nil {
		return
	}
	_ = proc.Process.Signal(syscall.SIGTERM)
	select {
	case <-done:
	case <-time.After(graceDeadline):
		logger.Warn("ffmpeg did not exit after SIGTERM, killing")
		_ = proc.Process.Kill()
		<-done
	}
}

func classifyExit(waitErr error, stderr *bytes.Buffer) error {
	if waitErr == nil {
		return nil
	}
	detail := strings.TrimSpace(stderr.String())
	if detail == "" {
		detail = waitErr.Error()
	}
	if len(detail) > 500 {
		detail = detail[:500]
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return services.Wrap(services.ErrEncode, "encoder", "run",
			fmt.Sprintf("ffmpeg exited with code %d: %s", exitErr.ExitCode(), detail), nil)
	}
	return services.Wrap(services.ErrEncode, "encoder", "run", detail, waitErr)
}
