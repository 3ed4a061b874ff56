package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"recode/internal/logs"
)

func newLogsCommand(configFlag *string) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			path := cfg.RunLogPath()

			ctx := cmd.Context()
			if follow {
				var stop context.CancelFunc
				ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
			}

			result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: lines})
			if err != nil {
				return fmt.Errorf("read log: %w", err)
			}
			printLines(cmd, result.Lines)
			if !follow {
				return nil
			}

			offset := result.Offset
			for {
				result, err := logs.Tail(ctx, path, logs.TailOptions{
					Offset: offset,
					Follow: true,
					Wait:   time.Second,
				})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return fmt.Errorf("follow log: %w", err)
				}
				printLines(cmd, result.Lines)
				offset = result.Offset
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new log lines")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	return cmd
}

func printLines(cmd *cobra.Command, lines []string) {
	out := cmd.OutOrStdout()
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}
