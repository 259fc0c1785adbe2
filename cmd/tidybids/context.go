package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"tidybids/internal/catalog"
	"tidybids/internal/config"
	"tidybids/internal/errkind"
	"tidybids/internal/logging"
	"tidybids/internal/runstore"
)

type commandContext struct {
	configFlag  *string
	datasetFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, datasetFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		datasetFlag: datasetFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.datasetFlag != nil && strings.TrimSpace(*c.datasetFlag) != "" {
			expanded, err := config.ExpandPath(*c.datasetFlag)
			if err != nil {
				c.configErr = err
				return
			}
			cfg.Paths.DatasetDir = expanded
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			OutputPaths: []string{
				"stderr",
				filepath.Join(cfg.Paths.LogDir, "tidybids.log"),
			},
		})
	})
	return c.logger, c.loggerErr
}

// datasetDir returns the configured dataset directory, required for commands
// that touch files on disk.
func (c *commandContext) datasetDir() (string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if cfg.Paths.DatasetDir == "" {
		return "", errkind.Wrap(errkind.ErrConfiguration, "cli", "resolve dataset",
			"no dataset directory configured; set paths.dataset_dir or pass --dataset", nil)
	}
	return cfg.Paths.DatasetDir, nil
}

func (c *commandContext) loadCatalog() (*catalog.Catalog, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Catalog.Path == "" {
		return catalog.Default()
	}
	return catalog.Load(cfg.Catalog.Path)
}

// withRunstore runs fn against the history database when it is enabled;
// otherwise fn is skipped without error.
func (c *commandContext) withRunstore(fn func(*runstore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Runstore.Enabled {
		return nil
	}
	store, err := runstore.Open(cfg.Runstore.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
