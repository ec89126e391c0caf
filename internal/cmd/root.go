package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for workplan
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workplan",
		Short: "Validate, prioritize and execute WorkGraph plans",
		Long: `Workplan operates on WorkGraphs: declarative plans that break a goal into
phases of tasks, each carrying machine-checkable Definitions-of-Done.

It validates WorkGraph files (JSON or YAML), ranks tasks with a deterministic
scoring engine, selects the top tasks plus their dependency closure, and runs
the plan with an auditable, resumable event log.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .workplan/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")

	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewScoreCommand())
	cmd.AddCommand(NewSelectCommand())
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewRunsCommand())

	return cmd
}
