package preflight

import (
	"context"

	"tidybids/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run for features that are configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	if cfg.Paths.DatasetDir != "" {
		results = append(results, CheckDirectoryAccess("Dataset directory", cfg.Paths.DatasetDir))
	}

	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckFreeSpace("Staging free space", cfg.Paths.StagingDir, minStagingBytes))

	if cfg.Runstore.Enabled {
		results = append(results, CheckRunstore(ctx, cfg.Runstore.Path))
	}

	return results
}
