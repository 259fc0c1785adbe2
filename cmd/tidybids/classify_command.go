package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tidybids/internal/acquisition"
	"tidybids/internal/bids"
	"tidybids/internal/classify"
	"tidybids/internal/report"
	"tidybids/internal/runstore"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var manifestPath string
	var outDir string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Cluster dataset files into parameter groups and emit the editable summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
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

			summary, err := classify.Run(cmd.Context(), collection, cat, logger,
				classify.Options{Workers: cfg.Classify.Workers})
			if err != nil {
				return err
			}

			groups := acquisition.Build(collection, summary)
			runID := uuid.NewString()
			err = ctx.withRunstore(func(store *runstore.Store) error {
				numbers, err := store.AcquisitionNumbers(cmd.Context())
				if err != nil {
					return err
				}
				groups = acquisition.Remap(groups, numbers)
				if err := store.SaveAcquisitionNumbers(cmd.Context(), groups); err != nil {
					return err
				}
				return store.RecordRun(cmd.Context(), runstore.Run{
					ID:          runID,
					Kind:        runstore.KindClassify,
					StartedAt:   started,
					FinishedAt:  time.Now(),
					EntitySets:  len(summary.EntitySets),
					ParamGroups: countGroups(summary),
					Files:       collection.Len(),
				})
			})
			if err != nil {
				return err
			}

			summaryTable := report.Summary(summary)
			if err := writeArtifacts(outDir, map[string]report.Table{
				"summary.csv":    summaryTable,
				"files.csv":      report.Files(collection, summary),
				"acq_groups.csv": report.AcqGroups(groups),
			}); err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, map[string]any{
					"run_id":       runID,
					"entity_sets":  len(summary.EntitySets),
					"param_groups": countGroups(summary),
					"files":        collection.Len(),
					"acq_groups":   len(groups),
					"out_dir":      outDir,
				})
			}
			if err := printTable(cmd, summaryTable, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote summary.csv, files.csv, acq_groups.csv to %s\n", outDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Collection manifest produced by the metadata reader")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory for the CSV artifacts")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit a JSON result instead of tables")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

func countGroups(summary *classify.Summary) int {
	total := 0
	for _, set := range summary.EntitySets {
		total += len(set.Groups)
	}
	return total
}

func writeArtifacts(dir string, tables map[string]report.Table) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %q: %w", dir, err)
	}
	for name, t := range tables {
		file, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if err := report.WriteCSV(file, t); err != nil {
			_ = file.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("close %s: %w", name, err)
		}
	}
	return nil
}
