package preflight_test

import (
	"context"
	"path/filepath"
	"testing"

	"tidybids/internal/config"
	"tidybids/internal/preflight"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	result := preflight.CheckDirectoryAccess("Staging directory", dir)
	if !result.Passed {
		t.Fatalf("existing dir failed: %s", result.Detail)
	}

	result = preflight.CheckDirectoryAccess("Staging directory", filepath.Join(dir, "missing"))
	if result.Passed {
		t.Fatalf("missing dir passed")
	}
}

func TestCheckRunstore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	result := preflight.CheckRunstore(context.Background(), path)
	if !result.Passed {
		t.Fatalf("fresh database failed: %s", result.Detail)
	}
}

func TestRunAllIncludesConfiguredChecks(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DatasetDir = base
	cfg.Paths.StagingDir = base
	cfg.Runstore.Enabled = true
	cfg.Runstore.Path = filepath.Join(base, "history.db")

	results := preflight.RunAll(context.Background(), &cfg)
	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}
	names := map[string]bool{}
	for _, r := range results {
		names[r.Name] = true
	}
	for _, want := range []string{"Dataset directory", "Staging directory", "Staging free space", "Run history database"} {
		if !names[want] {
			t.Fatalf("missing check %q in %v", want, names)
		}
	}
}
