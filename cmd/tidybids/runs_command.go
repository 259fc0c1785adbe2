package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tidybids/internal/errkind"
	"tidybids/internal/report"
	"tidybids/internal/runstore"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded classification and apply runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Runstore.Enabled {
				return errkind.Wrap(errkind.ErrConfiguration, "cli", "list runs",
					"run history is disabled (runstore.enabled = false)", nil)
			}

			var runs []runstore.Run
			err = ctx.withRunstore(func(store *runstore.Store) error {
				runs, err = store.ListRuns(cmd.Context(), limit)
				return err
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, runs)
			}
			return printTable(cmd, runsTable(runs),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 = all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the runs as JSON")
	return cmd
}

func runsTable(runs []runstore.Run) report.Table {
	t := report.Table{Headers: []string{
		"id", "kind", "started", "files", "groups", "renamed", "merged", "deleted",
	}}
	for _, run := range runs {
		t.Rows = append(t.Rows, []string{
			run.ID,
			run.Kind,
			run.StartedAt.Local().Format(time.RFC3339),
			strconv.Itoa(run.Files),
			strconv.Itoa(run.ParamGroups),
			strconv.Itoa(run.Renamed),
			strconv.Itoa(run.Merged),
			strconv.Itoa(run.Deleted),
		})
	}
	return t
}
