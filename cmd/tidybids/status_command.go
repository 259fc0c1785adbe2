package main

import (
	"github.com/spf13/cobra"

	"tidybids/internal/preflight"
	"tidybids/internal/report"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Run preflight checks against the configured environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			if jsonOutput {
				return writeJSON(cmd, results)
			}

			t := report.Table{Headers: []string{"check", "status", "detail"}}
			for _, result := range results {
				status := "FAIL"
				if result.Passed {
					status = "ok"
				}
				t.Rows = append(t.Rows, []string{result.Name, status, result.Detail})
			}
			return printTable(cmd, t, nil)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the check results as JSON")
	return cmd
}
