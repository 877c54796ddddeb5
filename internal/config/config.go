package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// SourceRoot is the voice-memo source tree migration scans.
	SourceRoot string `toml:"source_root"`
	// HomeDir is the managed storage root; audio, transcripts, logs, and the
	// catalog database all live beneath it.
	HomeDir string `toml:"home_dir"`
	LogDir  string `toml:"log_dir"`
}

// Engine contains configuration for the external speech-to-text engine.
type Engine struct {
	Binary   string `toml:"binary"`
	Model    string `toml:"model"`
	Language string `toml:"language"`
}

// Migration contains configuration for source tree scanning.
type Migration struct {
	// AudioExtensions lists the file extensions (without dot) treated as
	// voice-memo audio during the source scan. Matching is case-insensitive.
	AudioExtensions []string `toml:"audio_extensions"`
	// IndexFileName is the recording metadata database expected at the root
	// of the source tree. Missing is tolerated; unreadable is not.
	IndexFileName string `toml:"index_file_name"`
}

// Naming contains configuration for transcription-derived renaming.
type Naming struct {
	// PrefixSeconds is how much leading audio feeds the naming transcription.
	PrefixSeconds int `toml:"prefix_seconds"`
}

// Notebook contains configuration for the external notebook-sync binary.
type Notebook struct {
	Enabled bool   `toml:"enabled"`
	Binary  string `toml:"binary"`
	// NotebookID is the default sync destination; commands may override it.
	NotebookID string `toml:"notebook_id"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for CiderPress.
//
// Configuration sections by subsystem:
//   - Paths: source tree and managed storage directories
//   - Engine: speech-to-text engine binary and model
//   - Migration: source scan extensions and metadata index
//   - Naming: transcription-derived rename settings
//   - Notebook: external notebook-sync integration
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Engine    Engine    `toml:"engine"`
	Migration Migration `toml:"migration"`
	Naming    Naming    `toml:"naming"`
	Notebook  Notebook  `toml:"notebook"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/ciderpress/config.toml")
}

// Load locates, parses, normalizes, and validates a configuration file. The
// returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the managed storage layout.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.HomeDir, c.AudioDir(), c.TranscriptDir(), c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// AudioDir returns the managed audio directory migration copies into.
func (c *Config) AudioDir() string {
	return filepath.Join(c.Paths.HomeDir, "audio")
}

// TranscriptDir returns the transcript export directory.
func (c *Config) TranscriptDir() string {
	return filepath.Join(c.Paths.HomeDir, "transcripts")
}

// CatalogPath returns the catalog database location.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.HomeDir, "ciderpress.db")
}

// LockPath returns the flock path guarding batch operations.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.HomeDir, "ciderpress.lock")
}

// IndexPath returns the expected location of the source metadata index.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Paths.SourceRoot, c.Migration.IndexFileName)
}

// FFmpegBinary returns the ffmpeg executable name used for transcoding.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for duration probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// WriteDefault writes the embedded sample configuration to path.
func WriteDefault(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExpandPath resolves ~ and relative segments to an absolute path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
