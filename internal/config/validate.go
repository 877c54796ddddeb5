package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateNaming(); err != nil {
		return err
	}
	if err := c.validateNotebook(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.SourceRoot == "" {
		return errors.New("paths.source_root must be set")
	}
	if c.Paths.HomeDir == "" {
		return errors.New("paths.home_dir must be set")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.Model == "" {
		return errors.New("engine.model must be set")
	}
	return nil
}

func (c *Config) validateNaming() error {
	if c.Naming.PrefixSeconds <= 0 {
		return fmt.Errorf("naming.prefix_seconds must be positive, got %d", c.Naming.PrefixSeconds)
	}
	return nil
}

func (c *Config) validateNotebook() error {
	if !c.Notebook.Enabled {
		return nil
	}
	if c.Notebook.Binary == "" {
		return errors.New("notebook.binary must be set when notebook.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
}
