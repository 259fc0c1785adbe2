package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tidybids/internal/apply"
	"tidybids/internal/bids"
	"tidybids/internal/classify"
	"tidybids/internal/logging"
	"tidybids/internal/report"
	"tidybids/internal/runstore"
	"tidybids/internal/staging"
)

func newApplyCommand(ctx *commandContext) *cobra.Command {
	var manifestPath string
	var editsPath string
	var manifestOut string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the edits from a filled-in summary.csv to the dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if _, err := ctx.datasetDir(); err != nil {
				return err
			}

			edits, err := readEdits(editsPath)
			if err != nil {
				return err
			}

			started := time.Now()
			collection, err := bids.LoadManifest(manifestPath, cfg.Paths.DatasetDir)
			if err != nil {
				return err
			}
			cat, err := ctx.loadCatalog()
			if err != nil {
				return err
			}
			// The summary the operator edited came from the same manifest, so
			// re-running classification resolves the same entity sets and ranks.
			summary, err := classify.Run(cmd.Context(), collection, cat, logger,
				classify.Options{Workers: cfg.Classify.Workers})
			if err != nil {
				return err
			}

			retention := time.Duration(cfg.Apply.StagingRetentionDays) * 24 * time.Hour
			staging.CleanStale(cfg.Paths.StagingDir, retention, logger)

			engine := apply.NewEngine(cfg.Paths.StagingDir, logger)
			result, err := engine.Run(cmd.Context(), collection, summary, cat, edits)
			if err != nil {
				return err
			}

			out := manifestOut
			if out == "" {
				out = manifestPath
			}
			if err := result.Collection.SaveManifest(out); err != nil {
				return err
			}

			err = ctx.withRunstore(func(store *runstore.Store) error {
				return store.RecordRun(cmd.Context(), runstore.Run{
					ID:         result.RunID,
					Kind:       runstore.KindApply,
					StartedAt:  started,
					FinishedAt: time.Now(),
					Files:      result.Collection.Len(),
					Renamed:    result.Renamed,
					Merged:     result.Merged,
					Deleted:    result.Deleted,
					Warnings:   len(result.Warnings),
				})
			})
			if err != nil {
				logger.Warn("failed to record apply run",
					logging.String(logging.FieldRunID, result.RunID),
					logging.Error(err),
				)
			}

			if jsonOutput {
				return writeJSON(cmd, map[string]any{
					"run_id":   result.RunID,
					"renamed":  result.Renamed,
					"merged":   result.Merged,
					"deleted":  result.Deleted,
					"warnings": result.Warnings,
					"manifest": out,
				})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Applied %d rename(s), %d merge(s), %d delete(s)\n",
				result.Renamed, result.Merged, result.Deleted)
			for _, warning := range result.Warnings {
				fmt.Fprintf(w, "warning: %s\n", warning)
			}
			fmt.Fprintf(w, "Updated manifest written to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Collection manifest the summary was produced from")
	cmd.Flags().StringVarP(&editsPath, "edits", "e", "", "Edited summary.csv")
	cmd.Flags().StringVar(&manifestOut, "manifest-out", "", "Write the post-edit manifest here instead of overwriting")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit a JSON result")
	_ = cmd.MarkFlagRequired("manifest")
	_ = cmd.MarkFlagRequired("edits")
	return cmd
}

func readEdits(path string) ([]apply.EditInstruction, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open edits: %w", err)
	}
	defer file.Close()
	edits, err := report.ParseEditedSummary(file)
	if err != nil {
		return nil, err
	}
	if len(edits) == 0 {
		return nil, fmt.Errorf("%s contains no filled-in rename_to or merge_into cells", strings.TrimSpace(path))
	}
	return edits, nil
}
