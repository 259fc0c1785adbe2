package main

import (
	"github.com/spf13/cobra"

	"tidybids/internal/acquisition"
	"tidybids/internal/bids"
	"tidybids/internal/classify"
	"tidybids/internal/report"
	"tidybids/internal/runstore"
)

func newGroupsCommand(ctx *commandContext) *cobra.Command {
	var manifestPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Show acquisition groups (sessions sharing a classification signature)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

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
			err = ctx.withRunstore(func(store *runstore.Store) error {
				numbers, err := store.AcquisitionNumbers(cmd.Context())
				if err != nil {
					return err
				}
				groups = acquisition.Remap(groups, numbers)
				return nil
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, groups)
			}
			return printTable(cmd, report.AcqGroups(groups), []columnAlignment{alignRight})
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Collection manifest produced by the metadata reader")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the groups as JSON")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}
