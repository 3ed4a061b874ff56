package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recode/internal/preflight"
)

func newDoctorCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, disk space, tools, and the render device",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}

			results := preflight.RunAll(cfg)
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				state := "OK"
				switch {
				case !result.Passed && result.Optional:
					state = "WARN"
				case !result.Passed:
					state = "FAIL"
				}
				rows = append(rows, []string{result.Name, state, result.Detail})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Check", "State", "Detail"},
				rows,
			))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d required checks failed", len(failed))
			}
			return nil
		},
	}
}
