package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	if err := c.normalizeRunstore(); err != nil {
		return err
	}
	c.normalizeClassify()
	c.normalizeApply()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DatasetDir) != "" {
		if c.Paths.DatasetDir, err = expandPath(c.Paths.DatasetDir); err != nil {
			return fmt.Errorf("paths.dataset_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCatalog() error {
	c.Catalog.Path = strings.TrimSpace(c.Catalog.Path)
	if c.Catalog.Path == "" {
		return nil
	}
	var err error
	if c.Catalog.Path, err = expandPath(c.Catalog.Path); err != nil {
		return fmt.Errorf("catalog.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeRunstore() error {
	if strings.TrimSpace(c.Runstore.Path) == "" {
		c.Runstore.Path = defaultRunstorePath
	}
	var err error
	if c.Runstore.Path, err = expandPath(c.Runstore.Path); err != nil {
		return fmt.Errorf("runstore.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeClassify() {
	if c.Classify.Workers < 0 {
		c.Classify.Workers = 0
	}
}

func (c *Config) normalizeApply() {
	if c.Apply.StagingRetentionDays < 0 {
		c.Apply.StagingRetentionDays = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
