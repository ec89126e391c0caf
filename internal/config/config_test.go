package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.WorkGraphRoot != filepath.Join(".workplan", "workgraphs") {
		t.Errorf("WorkGraphRoot = %q", cfg.WorkGraphRoot)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.CommandTimeout != 60*time.Second {
		t.Errorf("CommandTimeout = %v, want 60s", cfg.CommandTimeout)
	}
	if cfg.Profile != "default" {
		t.Errorf("Profile = %q, want default", cfg.Profile)
	}
	if cfg.TopN != 5 {
		t.Errorf("TopN = %d, want 5", cfg.TopN)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

// TestLoadConfigValidFile tests loading a valid YAML config file
func TestLoadConfigValidFile(t *testing.T) {
	path := writeConfig(t, `workgraph_root: plans/workgraphs
log_level: debug
log_dir: /tmp/logs
command_timeout: 2m
profile: investor
top_n: 0
bookkeeping:
  db_path: /tmp/bk.db
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.WorkGraphRoot != "plans/workgraphs" {
		t.Errorf("WorkGraphRoot = %q", cfg.WorkGraphRoot)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.LogDir != "/tmp/logs" {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if cfg.CommandTimeout != 2*time.Minute {
		t.Errorf("CommandTimeout = %v, want 2m", cfg.CommandTimeout)
	}
	if cfg.Profile != "investor" {
		t.Errorf("Profile = %q", cfg.Profile)
	}
	if cfg.TopN != 0 {
		t.Errorf("TopN = %d, want explicit 0", cfg.TopN)
	}
	if cfg.Bookkeeping.DBPath != "/tmp/bk.db" {
		t.Errorf("Bookkeeping.DBPath = %q", cfg.Bookkeeping.DBPath)
	}
}

// TestLoadConfigPartialFile keeps defaults for absent keys
func TestLoadConfigPartialFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "log_level: warn\n"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	want := DefaultConfig()
	want.LogLevel = "warn"
	if *cfg != *want {
		t.Errorf("LoadConfig() = %+v, want %+v", cfg, want)
	}
}

// TestLoadConfigFileNotExists tests fallback to defaults when file doesn't exist
func TestLoadConfigFileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() should not error on missing file, got: %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

// TestLoadConfigErrors covers malformed files
func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "bad yaml", content: "log_level: [unclosed", wantErr: "failed to parse config file"},
		{name: "bad duration", content: "command_timeout: soon", wantErr: "invalid command_timeout format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

// TestLoadConfigFromDir reads .workplan/config.yaml
func TestLoadConfigFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".workplan"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".workplan", "config.yaml"), []byte("top_n: 9\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFromDir(dir)
	if err != nil {
		t.Fatalf("LoadConfigFromDir() error = %v", err)
	}
	if cfg.TopN != 9 {
		t.Errorf("TopN = %d, want 9", cfg.TopN)
	}
}

// TestMergeWithFlags verifies flags take precedence
func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()
	root := "/srv/plans"
	timeout := 5 * time.Second
	topN := 2

	cfg.MergeWithFlags(Flags{WorkGraphRoot: &root, CommandTimeout: &timeout, TopN: &topN})

	if cfg.WorkGraphRoot != root {
		t.Errorf("WorkGraphRoot = %q, want %q", cfg.WorkGraphRoot, root)
	}
	if cfg.CommandTimeout != timeout {
		t.Errorf("CommandTimeout = %v, want %v", cfg.CommandTimeout, timeout)
	}
	if cfg.TopN != topN {
		t.Errorf("TopN = %d, want %d", cfg.TopN, topN)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("unset flag changed LogLevel to %q", cfg.LogLevel)
	}
}

// TestValidate checks each invalid field
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty root", mutate: func(c *Config) { c.WorkGraphRoot = "" }, wantErr: "workgraph_root"},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "verbose" }, wantErr: "invalid log_level"},
		{name: "zero timeout", mutate: func(c *Config) { c.CommandTimeout = 0 }, wantErr: "command_timeout"},
		{name: "bad profile", mutate: func(c *Config) { c.Profile = "yolo" }, wantErr: "unknown profile"},
		{name: "negative top_n", mutate: func(c *Config) { c.TopN = -1 }, wantErr: "top_n"},
		{name: "empty db path", mutate: func(c *Config) { c.Bookkeeping.DBPath = "" }, wantErr: "bookkeeping.db_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}
