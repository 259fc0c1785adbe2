package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. The dataset directory is not
// required here: commands that need one check for it themselves so that
// config inspection works before a dataset exists.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateClassify(); err != nil {
		return err
	}
	if err := c.validateRunstore(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}

func (c *Config) validateClassify() error {
	if c.Classify.Workers < 0 {
		return errors.New("classify.workers must not be negative")
	}
	return nil
}

func (c *Config) validateRunstore() error {
	if c.Runstore.Enabled && c.Runstore.Path == "" {
		return errors.New("runstore.path must be set when runstore.enabled is true")
	}
	return nil
}
