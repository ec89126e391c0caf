// Package config loads workplan settings from .workplan/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harrison/workplan/internal/scoring"
	"gopkg.in/yaml.v3"
)

// DirName is the per-project settings directory.
const DirName = ".workplan"

// BookkeepingConfig configures the SQLite bookkeeping store.
type BookkeepingConfig struct {
	// DBPath is the path to the bookkeeping database
	DBPath string `yaml:"db_path"`
}

// Config represents workplan configuration options
type Config struct {
	// WorkGraphRoot holds one directory per WorkGraph with its runs
	WorkGraphRoot string `yaml:"workgraph_root"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	// CommandTimeout bounds each definition-of-done command
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// Profile is the default scoring profile
	Profile string `yaml:"profile"`

	// TopN is the default number of tasks picked by select
	TopN int `yaml:"top_n"`

	// Bookkeeping contains bookkeeping store configuration
	Bookkeeping BookkeepingConfig `yaml:"bookkeeping"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		WorkGraphRoot:  filepath.Join(DirName, "workgraphs"),
		LogLevel:       "info",
		LogDir:         filepath.Join(DirName, "logs"),
		CommandTimeout: 60 * time.Second,
		Profile:        string(scoring.ProfileDefault),
		TopN:           5,
		Bookkeeping: BookkeepingConfig{
			DBPath: filepath.Join(DirName, "bookkeeping.db"),
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are decoded as strings so "90s" and "2m" both work.
	type yamlConfig struct {
		WorkGraphRoot  string            `yaml:"workgraph_root"`
		LogLevel       string            `yaml:"log_level"`
		LogDir         string            `yaml:"log_dir"`
		CommandTimeout string            `yaml:"command_timeout"`
		Profile        string            `yaml:"profile"`
		TopN           *int              `yaml:"top_n"`
		Bookkeeping    BookkeepingConfig `yaml:"bookkeeping"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.WorkGraphRoot != "" {
		cfg.WorkGraphRoot = yamlCfg.WorkGraphRoot
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.CommandTimeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.CommandTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid command_timeout format %q: %w", yamlCfg.CommandTimeout, err)
		}
		cfg.CommandTimeout = timeout
	}
	if yamlCfg.Profile != "" {
		cfg.Profile = yamlCfg.Profile
	}
	if yamlCfg.TopN != nil {
		cfg.TopN = *yamlCfg.TopN
	}
	if yamlCfg.Bookkeeping.DBPath != "" {
		cfg.Bookkeeping.DBPath = yamlCfg.Bookkeeping.DBPath
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .workplan/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, DirName, "config.yaml"))
}

// Flags carries CLI overrides. Nil fields leave the loaded value alone.
type Flags struct {
	WorkGraphRoot  *string
	LogLevel       *string
	LogDir         *string
	CommandTimeout *time.Duration
	Profile        *string
	TopN           *int
	DBPath         *string
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(f Flags) {
	if f.WorkGraphRoot != nil {
		c.WorkGraphRoot = *f.WorkGraphRoot
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.LogDir != nil {
		c.LogDir = *f.LogDir
	}
	if f.CommandTimeout != nil {
		c.CommandTimeout = *f.CommandTimeout
	}
	if f.Profile != nil {
		c.Profile = *f.Profile
	}
	if f.TopN != nil {
		c.TopN = *f.TopN
	}
	if f.DBPath != nil {
		c.Bookkeeping.DBPath = *f.DBPath
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.WorkGraphRoot == "" {
		return fmt.Errorf("workgraph_root cannot be empty")
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.CommandTimeout <= 0 {
		return fmt.Errorf("command_timeout must be > 0, got %v", c.CommandTimeout)
	}

	if _, err := scoring.ParseProfile(c.Profile); err != nil {
		return err
	}

	if c.TopN < 0 {
		return fmt.Errorf("top_n must be >= 0, got %d", c.TopN)
	}

	if c.Bookkeeping.DBPath == "" {
		return fmt.Errorf("bookkeeping.db_path cannot be empty")
	}

	return nil
}
