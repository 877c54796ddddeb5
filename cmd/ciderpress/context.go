package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"ciderpress/internal/catalog"
	"ciderpress/internal/config"
	"ciderpress/internal/logging"
	"ciderpress/internal/progress"
	"ciderpress/internal/runlock"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	// One progress cell per batch kind, shared by every command in this
	// process so observers see whichever batch is running.
	migrationProgress     *progress.Cell[progress.MigrationProgress]
	transcriptionProgress *progress.Cell[progress.TranscriptionProgress]
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag:            configFlag,
		migrationProgress:     &progress.Cell[progress.MigrationProgress]{},
		transcriptionProgress: &progress.Cell[progress.TranscriptionProgress]{},
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
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// loggerValue lazily builds the file-backed logger. Command output goes to
// stdout; structured logs go to the log directory so batch runs leave a
// record without polluting the terminal.
func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, "ciderpress.log")},
		})
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// withStore opens the catalog for the duration of fn.
func (c *commandContext) withStore(fn func(*config.Config, *catalog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

// withBatchLock wraps withStore with the exclusive run lock shared by every
// mutating batch command.
func (c *commandContext) withBatchLock(fn func(*config.Config, *catalog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	lock := runlock.New(cfg.LockPath())
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()
	return c.withStore(fn)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
