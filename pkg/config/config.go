// Package config provides the per-project configuration file,
// <projectRoot>/.sumerian/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sumerian-dev/sumerian/pkg/logging"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

// Version is the only config schema version this package understands.
const Version = 1

// FileName is the config file name inside the .sumerian directory.
const FileName = "config.yaml"

// Config represents the project configuration.
type Config struct {
	Version     int               `yaml:"version"`
	Snapshots   SnapshotsConfig   `yaml:"snapshots"`
	Checkpoints CheckpointsConfig `yaml:"checkpoints"`
	Undo        UndoConfig        `yaml:"undo"`
	Watch       WatchConfig       `yaml:"watch"`
	List        ListConfig        `yaml:"list"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SnapshotsConfig configures snapshot store retention.
type SnapshotsConfig struct {
	MaxRetained int `yaml:"max_retained"`
}

// CheckpointsConfig configures checkpoint retention.
type CheckpointsConfig struct {
	MaxRetained int `yaml:"max_retained"`
}

// UndoConfig configures the undo stack.
type UndoConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	Settle   time.Duration `yaml:"settle"`
	MaxDepth int           `yaml:"max_depth"`
	// Ignore holds base names, root-relative slash paths, or globs on base names.
	Ignore []string `yaml:"ignore"`
}

// ListConfig configures directory listings.
type ListConfig struct {
	HiddenAllowlist []string `yaml:"hidden_allowlist"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text
}

// DefaultWatchIgnore lists the noise paths excluded from watching.
var DefaultWatchIgnore = []string{
	".git",
	".hg",
	".svn",
	"node_modules",
	"vendor",
	".venv",
	"__pycache__",
	"dist",
	"build",
	"out",
	".next",
	"target",
	"coverage",
	model.DirName + "/snapshots",
	model.DirName + "/checkpoints",
	"*.log",
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version:     Version,
		Snapshots:   SnapshotsConfig{MaxRetained: 50},
		Checkpoints: CheckpointsConfig{MaxRetained: 20},
		Undo:        UndoConfig{MaxDepth: 50},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
			Settle:   100 * time.Millisecond,
			MaxDepth: 10,
			Ignore:   append([]string(nil), DefaultWatchIgnore...),
		},
		List: ListConfig{
			HiddenAllowlist: []string{model.DirName, ".env"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Normalize replaces unset or non-positive values with defaults.
func (c *Config) Normalize() {
	d := Default()
	if c.Snapshots.MaxRetained <= 0 {
		c.Snapshots.MaxRetained = d.Snapshots.MaxRetained
	}
	if c.Checkpoints.MaxRetained <= 0 {
		c.Checkpoints.MaxRetained = d.Checkpoints.MaxRetained
	}
	if c.Undo.MaxDepth <= 0 {
		c.Undo.MaxDepth = d.Undo.MaxDepth
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = d.Watch.Debounce
	}
	if c.Watch.Settle <= 0 {
		c.Watch.Settle = d.Watch.Settle
	}
	if c.Watch.MaxDepth <= 0 {
		c.Watch.MaxDepth = d.Watch.MaxDepth
	}
	if c.Watch.Ignore == nil {
		c.Watch.Ignore = d.Watch.Ignore
	}
	if c.List.HiddenAllowlist == nil {
		c.List.HiddenAllowlist = d.List.HiddenAllowlist
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}

// Path returns the config file path for a project root.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, model.DirName, FileName)
}

// Load loads configuration from .sumerian/config.yaml.
// A missing file yields defaults. An unreadable or malformed file, or one
// with an unknown version, also yields defaults and logs a warning.
func Load(projectRoot string) *Config {
	cfgPath := Path(projectRoot)

	data, err := os.ReadFile(cfgPath)
	if os.IsNotExist(err) {
		return Default()
	}
	if err != nil {
		logging.WarnErr("config unreadable, using defaults", err, logging.Fields{"path": cfgPath})
		return Default()
	}

	cfg, err := Parse(data)
	if err != nil {
		logging.WarnErr("config invalid, using defaults", err, logging.Fields{"path": cfgPath})
		return Default()
	}
	return cfg
}

// Parse decodes and validates a config document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Version == 0 {
		cfg.Version = Version
	}
	if cfg.Version != Version {
		return nil, fmt.Errorf("unsupported config version %d", cfg.Version)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes configuration to .sumerian/config.yaml.
func Save(projectRoot string, cfg *Config) error {
	cfgPath := Path(projectRoot)

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}
