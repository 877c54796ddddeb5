package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEngine()
	c.normalizeMigration()
	c.normalizeNotebook()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.SourceRoot, err = expandPath(c.Paths.SourceRoot); err != nil {
		return fmt.Errorf("paths.source_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.HomeDir) == "" {
		c.Paths.HomeDir = defaultHomeDir
	}
	if c.Paths.HomeDir, err = expandPath(c.Paths.HomeDir); err != nil {
		return fmt.Errorf("paths.home_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEngine() {
	c.Engine.Binary = strings.TrimSpace(c.Engine.Binary)
	if c.Engine.Binary == "" {
		c.Engine.Binary = defaultEngineBinary
	}
	c.Engine.Model = strings.TrimSpace(c.Engine.Model)
	if c.Engine.Model == "" {
		c.Engine.Model = defaultEngineModel
	}
	c.Engine.Language = strings.TrimSpace(c.Engine.Language)
	if c.Engine.Language == "" {
		c.Engine.Language = defaultLanguage
	}
}

func (c *Config) normalizeMigration() {
	cleaned := make([]string, 0, len(c.Migration.AudioExtensions))
	for _, ext := range c.Migration.AudioExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			cleaned = append(cleaned, ext)
		}
	}
	if len(cleaned) == 0 {
		cleaned = defaultAudioExtensions()
	}
	c.Migration.AudioExtensions = cleaned

	c.Migration.IndexFileName = strings.TrimSpace(c.Migration.IndexFileName)
	if c.Migration.IndexFileName == "" {
		c.Migration.IndexFileName = defaultIndexFileName
	}
}

func (c *Config) normalizeNotebook() {
	c.Notebook.Binary = strings.TrimSpace(c.Notebook.Binary)
	if c.Notebook.Binary == "" {
		c.Notebook.Binary = defaultNotebookBin
	}
	c.Notebook.NotebookID = strings.TrimSpace(c.Notebook.NotebookID)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
