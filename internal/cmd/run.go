package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/harrison/workplan/internal/executor"
	"github.com/harrison/workplan/internal/filelock"
	"github.com/harrison/workplan/internal/logger"
	"github.com/harrison/workplan/internal/models"
	"github.com/harrison/workplan/internal/runstore"
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <workgraph-file>",
		Short: "Run a WorkGraph (dry-run unless --execute)",
		Long: `Run a WorkGraph in data-flow order: a task becomes runnable once every task
producing one of its inputs has completed. Each transition is appended to
{root}/{workgraph_id}/runs/{run_id}/events.jsonl.

By default the run is a dry-run that only lists the checks each task would
perform. With --execute, tasks marked safe_to_execute have their
Definition-of-Done commands and file checks run; other tasks are skipped as
unsafe. The first failing task halts the run.

Examples:
  workplan run plan.json                      # dry-run
  workplan run plan.json --execute            # execute safe tasks
  workplan run plan.json --max-steps 2        # stop after two tasks
  workplan run plan.json --only 'TASK-00*'    # glob over task ids
  workplan run plan.json --resume <run_id>    # continue a stopped run`,
		Args: cobra.ExactArgs(1),
		RunE: runCommand,
	}

	cmd.Flags().Bool("execute", false, "Execute Definition-of-Done checks instead of a dry-run")
	cmd.Flags().Int("max-steps", 0, "Maximum tasks to process in this invocation (0 = unlimited)")
	cmd.Flags().StringSlice("only", nil, "Only run these task ids or glob patterns")
	cmd.Flags().StringSlice("skip", nil, "Skip these task ids or glob patterns")
	cmd.Flags().String("resume", "", "Resume the run with this id")
	cmd.Flags().String("timeout", "", "Per-command timeout (e.g., 30s, 2m)")
	cmd.Flags().String("root", "", "WorkGraph root holding run records")
	cmd.Flags().String("log-dir", "", "Directory for log files")
	cmd.Flags().String("workdir", "", "Working directory for commands and relative file checks")

	return cmd
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	wg, err := loadWorkGraph(args[0])
	if err != nil {
		return err
	}

	execute, _ := cmd.Flags().GetBool("execute")
	maxSteps, _ := cmd.Flags().GetInt("max-steps")
	if maxSteps < 0 {
		return fmt.Errorf("--max-steps must be >= 0, got %d", maxSteps)
	}
	onlyRaw, _ := cmd.Flags().GetStringSlice("only")
	skipRaw, _ := cmd.Flags().GetStringSlice("skip")
	resumeID, _ := cmd.Flags().GetString("resume")
	if resumeID != "" {
		if err := runstore.ValidateRunID(resumeID); err != nil {
			return fmt.Errorf("--resume: %w", err)
		}
	}
	workDir, _ := cmd.Flags().GetString("workdir")

	only, err := expandTaskPatterns(onlyRaw, wg)
	if err != nil {
		return err
	}
	skip, err := expandTaskPatterns(skipRaw, wg)
	if err != nil {
		return err
	}

	store := runstore.New(cfg.WorkGraphRoot)

	// The core takes no locks; one CLI run per WorkGraph at a time.
	lock, err := filelock.TryAcquire(store.LockPath(wg.ID))
	if err != nil {
		if errors.Is(err, filelock.ErrLocked) {
			return fmt.Errorf("another run of %s is in progress: %w", wg.ID, err)
		}
		return err
	}
	defer lock.Unlock()

	out := cmd.OutOrStdout()
	console := logger.NewConsoleLogger(out, cfg.LogLevel)
	console.SetTotal(wg.TaskCount())

	fileLog, err := logger.NewFileLoggerWithDirAndLevel(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer fileLog.Close()

	opts := executor.RunOptions{
		DryRun:         !execute,
		MaxSteps:       maxSteps,
		OnlyTasks:      only,
		SkipTasks:      skip,
		ResumeRunID:    resumeID,
		CommandTimeout: cfg.CommandTimeout,
		WorkDir:        workDir,
	}
	runner := executor.NewRunner(wg, store, nil, logger.NewMultiLogger(console, fileLog), opts)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := runner.Run(ctx)
	if err != nil {
		return explainRunError(err)
	}

	printRunFooter(out, summary, store)
	if summary.Status == models.RunFailed {
		return fmt.Errorf("run %s failed: %d task(s) failed", summary.RunID, summary.TasksFailed)
	}
	return nil
}

func explainRunError(err error) error {
	var notFound *executor.RunNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w (use 'workplan runs' to list runs)", err)
	}
	return err
}

func printRunFooter(out io.Writer, summary *models.RunSummary, store *runstore.Store) {
	fmt.Fprintf(out, "\nRun records: %s\n", store.RunDir(summary.WorkGraphID, summary.RunID))
	if summary.Status == models.RunStopped {
		fmt.Fprintf(out, "Resume with: --resume %s\n", summary.RunID)
	}
}
