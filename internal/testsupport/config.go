// Package testsupport provides shared fixtures: per-test configurations with
// unique temp directories and an on-disk dataset builder.
package testsupport

import (
	"path/filepath"
	"testing"

	"tidybids/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DatasetDir = filepath.Join(base, "dataset")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Runstore.Path = filepath.Join(base, "history.db")
	cfg.Classify.Workers = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithoutRunstore disables run-history persistence on the test config.
func WithoutRunstore() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Runstore.Enabled = false
	}
}
