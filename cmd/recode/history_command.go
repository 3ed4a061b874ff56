package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"recode/internal/ledger"
	"recode/internal/registry"
)

func newHistoryCommand(configFlag *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past runs, or the files of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			if !cfg.Ledger.Enabled {
				return fmt.Errorf("run history is disabled in the configuration")
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			store, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				runID, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid run id %q", args[0])
				}
				return printRunFiles(cmd, store, runID)
			}
			return printRuns(cmd, store, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func printRuns(cmd *cobra.Command, store *ledger.Store, limit int) error {
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recorded runs.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			strconv.FormatInt(run.ID, 10),
			run.FinishedAt.Local().Format("2006-01-02 15:04"),
			run.SourceDir,
			strconv.Itoa(run.Total),
			strconv.Itoa(run.Succeeded),
			strconv.Itoa(run.Skipped),
			strconv.Itoa(run.Failed),
			formatBytesSaved(run.BytesSaved),
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"ID", "Finished", "Source", "Total", "Encoded", "Skipped", "Failed", "Saved"},
		rows,
		0, 3, 4, 5, 6, 7,
	))
	return nil
}

func printRunFiles(cmd *cobra.Command, store *ledger.Store, runID int64) error {
	files, err := store.RunFiles(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("list run files: %w", err)
	}
	if len(files) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No files recorded for run %d.\n", runID)
		return nil
	}

	rows := make([][]string, 0, len(files))
	for _, file := range files {
		detail := file.ErrorMessage
		if file.Status == registry.StatusSuccess && file.EncodedSize > 0 {
			detail = fmt.Sprintf("%s → %s",
				humanize.IBytes(uint64(file.OriginalSize)),
				humanize.IBytes(uint64(file.EncodedSize)))
		}
		rows = append(rows, []string{
			file.Title,
			file.Status.Label(),
			file.Codec,
			detail,
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Title", "Status", "Codec", "Detail"},
		rows,
	))
	return nil
}

func formatBytesSaved(saved int64) string {
	if saved <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(saved))
}
