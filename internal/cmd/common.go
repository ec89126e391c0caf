package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/harrison/workplan/internal/config"
	"github.com/harrison/workplan/internal/models"
	"github.com/harrison/workplan/internal/parser"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// loadConfig reads the config file named by --config (or .workplan/config.yaml)
// and applies any flags the user set on cmd. Flags win over the file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var flags config.Flags
	flags.WorkGraphRoot = changedString(cmd, "root")
	flags.LogLevel = changedString(cmd, "log-level")
	flags.LogDir = changedString(cmd, "log-dir")
	flags.Profile = changedString(cmd, "profile")
	flags.DBPath = changedString(cmd, "db")

	if f := cmd.Flags().Lookup("top-n"); f != nil && f.Changed {
		topN, _ := cmd.Flags().GetInt("top-n")
		flags.TopN = &topN
	}
	if f := cmd.Flags().Lookup("timeout"); f != nil && f.Changed {
		raw, _ := cmd.Flags().GetString("timeout")
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", raw, err)
		}
		flags.CommandTimeout = &timeout
	}

	cfg.MergeWithFlags(flags)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func changedString(cmd *cobra.Command, name string) *string {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return nil
	}
	v := f.Value.String()
	return &v
}

// loadWorkGraph parses a WorkGraph file, wrapping schema errors with the path.
func loadWorkGraph(path string) (*models.WorkGraph, error) {
	wg, err := parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load workgraph %s: %w", path, err)
	}
	return wg, nil
}

// expandTaskPatterns resolves ids and doublestar patterns against the task
// ids of wg. Plain ids pass through unchanged; a pattern that matches no
// task is an error. The result is sorted and de-duplicated.
func expandTaskPatterns(patterns []string, wg *models.WorkGraph) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, wg.TaskCount())
	for _, t := range wg.Tasks() {
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)

	seen := make(map[string]bool)
	var out []string
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid task pattern %q", pattern)
		}
		if !hasMeta(pattern) {
			if !seen[pattern] {
				seen[pattern] = true
				out = append(out, pattern)
			}
			continue
		}

		matched := false
		for _, id := range ids {
			ok, err := doublestar.Match(pattern, id)
			if err != nil {
				return nil, fmt.Errorf("invalid task pattern %q: %w", pattern, err)
			}
			if ok {
				matched = true
				if !seen[id] {
					seen[id] = true
					out = append(out, id)
				}
			}
		}
		if !matched {
			return nil, fmt.Errorf("task pattern %q matches no task in %s", pattern, wg.ID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func hasMeta(pattern string) bool {
	for _, r := range pattern {
		switch r {
		case '*', '?', '[', '{', '\\':
			return true
		}
	}
	return false
}

// colorEnabled reports whether w is a color-capable terminal.
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
