// Package executor walks a WorkGraph in data-flow order, dry-running or
// executing each task, and records every transition in a durable,
// append-only event log that supports resume by replay.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harrison/workplan/internal/models"
	"github.com/harrison/workplan/internal/parser"
	"github.com/harrison/workplan/internal/runstore"
)

// RunStore persists run metadata, the event log and the run index.
// *runstore.Store implements it.
type RunStore interface {
	SaveMeta(meta *models.RunMeta) error
	LoadMeta(workgraphID, runID string) (*models.RunMeta, error)
	AppendEvent(workgraphID, runID string, ev models.RunEvent) error
	LoadEvents(workgraphID, runID string) ([]models.RunEvent, error)
	UpdateIndex(meta *models.RunMeta) error
}

// Logger receives progress notifications from the runner.
type Logger interface {
	LogRunStart(meta *models.RunMeta, resumed bool)
	LogTaskStart(task *models.Task)
	LogDryRun(task *models.Task, checks []string)
	LogTaskResult(task *models.Task, outcome models.TaskOutcome)
	LogTaskSkipped(task *models.Task, reason string, unsafe bool)
	LogRunSummary(summary models.RunSummary)
}

// RunOptions configures one invocation of the runner.
type RunOptions struct {
	DryRun         bool
	MaxSteps       int      // Tasks processed this invocation (0 = unlimited)
	OnlyTasks      []string // Allow-list; others are recorded skipped
	SkipTasks      []string // Deny-list; recorded skipped
	ResumeRunID    string   // Resume this run instead of starting one
	CommandTimeout time.Duration
	WorkDir        string // Base for relative file checks
}

// Runner executes a WorkGraph. A Runner performs a single Run.
type Runner struct {
	wg      *models.WorkGraph
	store   RunStore
	logger  Logger
	opts    RunOptions
	checker *dodChecker
	graph   *DataFlowGraph
	now     func() time.Time
	only    map[string]bool
	skip    map[string]bool
	meta    *models.RunMeta
	states  map[string]models.TaskState
	summary models.RunSummary
	resumed bool
}

// NewRunner creates a Runner. The logger parameter is optional and can be nil.
func NewRunner(wg *models.WorkGraph, store RunStore, commands CommandRunner, logger Logger, opts RunOptions) *Runner {
	if wg == nil {
		panic("workgraph cannot be nil")
	}
	if store == nil {
		panic("run store cannot be nil")
	}
	if commands == nil {
		commands = NewShellCommandRunner(opts.WorkDir)
	}

	return &Runner{
		wg:      wg,
		store:   store,
		logger:  logger,
		opts:    opts,
		checker: &dodChecker{commands: commands, timeout: opts.CommandTimeout, workDir: opts.WorkDir},
		graph:   BuildDataFlowGraph(wg),
		now:     time.Now,
		only:    toSet(opts.OnlyTasks),
		skip:    toSet(opts.SkipTasks),
		states:  make(map[string]models.TaskState),
	}
}

// Run starts or resumes the run and drives the scheduling loop to the end.
//
// Task failures are recorded as events and reflected in the summary status;
// the returned error is reserved for storage failures, hash conflicts and
// unknown resume ids.
func (r *Runner) Run(ctx context.Context) (*models.RunSummary, error) {
	if r.meta != nil {
		return nil, errors.New("runner already used; create a new Runner per run")
	}

	if r.opts.ResumeRunID != "" {
		if err := r.resume(); err != nil {
			return nil, err
		}
	} else if err := r.start(); err != nil {
		return nil, err
	}

	r.summary = models.RunSummary{
		RunID:       r.meta.RunID,
		WorkGraphID: r.wg.ID,
		DryRun:      r.opts.DryRun,
		Resumed:     r.resumed,
	}
	if r.logger != nil {
		r.logger.LogRunStart(r.meta, r.resumed)
	}

	stopped, err := r.loop(ctx)
	if err != nil {
		return nil, err
	}

	switch {
	case r.summary.TasksFailed > 0:
		r.summary.Status = models.RunFailed
	case stopped:
		r.summary.Status = models.RunStopped
	default:
		r.summary.Status = models.RunCompleted
	}

	if err := r.emit(models.EventRunSummary, r.summary.Data()); err != nil {
		return nil, err
	}

	r.meta.Status = r.summary.Status
	r.meta.CompletedAt = models.FormatTimestamp(r.now())
	if err := r.persistMeta(); err != nil {
		return nil, err
	}

	if r.logger != nil {
		r.logger.LogRunSummary(r.summary)
	}
	summary := r.summary
	return &summary, nil
}

// Meta returns the run metadata once Run has initialized it.
func (r *Runner) Meta() *models.RunMeta {
	return r.meta
}

func (r *Runner) start() error {
	hash, err := parser.Hash(r.wg)
	if err != nil {
		return err
	}

	start := r.now()
	startedAt := models.FormatTimestamp(start)
	r.meta = &models.RunMeta{
		RunID:         models.GenerateRunID(r.wg.ID, start, startedAt),
		WorkGraphID:   r.wg.ID,
		WorkGraphHash: hash,
		StartedAt:     startedAt,
		Status:        models.RunRunning,
		DryRun:        r.opts.DryRun,
		MaxSteps:      r.opts.MaxSteps,
		OnlyTasks:     append([]string{}, r.opts.OnlyTasks...),
		SkipTasks:     append([]string{}, r.opts.SkipTasks...),
	}
	if err := r.persistMeta(); err != nil {
		return err
	}

	return r.emit(models.EventRunStarted, map[string]any{
		"workgraph_id": r.wg.ID,
		"goal":         r.wg.Goal,
		"dry_run":      r.opts.DryRun,
		"max_steps":    r.opts.MaxSteps,
	})
}

func (r *Runner) resume() error {
	runID := r.opts.ResumeRunID
	meta, err := r.store.LoadMeta(r.wg.ID, runID)
	if err != nil {
		if errors.Is(err, runstore.ErrRunNotFound) {
			return &RunNotFoundError{WorkGraphID: r.wg.ID, RunID: runID, Err: err}
		}
		return fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	hash, err := parser.Hash(r.wg)
	if err != nil {
		return err
	}
	if hash != meta.WorkGraphHash {
		return &ResumeConflictError{
			WorkGraphID: r.wg.ID,
			RunID:       runID,
			StoredHash:  meta.WorkGraphHash,
			CurrentHash: hash,
		}
	}

	events, err := r.store.LoadEvents(r.wg.ID, runID)
	if err != nil {
		return fmt.Errorf("failed to load events for run %s: %w", runID, err)
	}
	r.states = Replay(events).schedulable()

	r.meta = meta
	r.resumed = true
	r.meta.Status = models.RunRunning
	r.meta.CompletedAt = ""
	return r.persistMeta()
}

// loop runs frontier batches until no task is runnable, a task fails, ctx
// is cancelled or the step budget runs out. It reports whether it stopped
// with runnable work left.
func (r *Runner) loop(ctx context.Context) (stopped bool, err error) {
	steps := 0
	exhausted := func() bool {
		return r.opts.MaxSteps > 0 && steps >= r.opts.MaxSteps
	}

	for {
		frontier := r.graph.Frontier(r.states)
		if len(frontier) == 0 {
			return false, nil
		}

		for _, task := range frontier {
			if ctx.Err() != nil {
				return true, nil
			}

			if reason, skip := r.filtered(task.ID); skip {
				if err := r.recordSkipped(task, reason); err != nil {
					return false, err
				}
				continue
			}

			if exhausted() {
				return true, nil
			}
			steps++

			state, err := r.process(ctx, task)
			if err != nil {
				return false, err
			}
			switch state {
			case models.TaskFailed:
				return false, nil
			case models.TaskRunning:
				return true, nil
			}
		}
	}
}

// filtered applies the deny-list, then the allow-list.
func (r *Runner) filtered(taskID string) (string, bool) {
	if r.skip[taskID] {
		return "in skip list", true
	}
	if len(r.only) > 0 && !r.only[taskID] {
		return "not in only list", true
	}
	return "", false
}

// process moves one task from pending to a terminal state.
func (r *Runner) process(ctx context.Context, task *models.Task) (models.TaskState, error) {
	if !r.opts.DryRun && !task.SafeToExecute {
		reason := "safe_to_execute is false; not executed"
		if err := r.emit(models.EventTaskSkippedUnsafe, map[string]any{
			"task_id": task.ID,
			"title":   task.Title,
			"reason":  reason,
		}); err != nil {
			return "", err
		}
		r.states[task.ID] = models.TaskSkippedUnsafe
		r.summary.TasksSkipped++
		r.summary.TasksSkippedUnsafe++
		if r.logger != nil {
			r.logger.LogTaskSkipped(task, reason, true)
		}
		return models.TaskSkippedUnsafe, nil
	}

	if err := r.emit(models.EventTaskStarted, map[string]any{
		"task_id": task.ID,
		"title":   task.Title,
		"intent":  task.Intent,
	}); err != nil {
		return "", err
	}
	r.states[task.ID] = models.TaskRunning
	if r.logger != nil {
		r.logger.LogTaskStart(task)
	}

	var outcome models.TaskOutcome
	if r.opts.DryRun {
		outcome = r.dryRun(task)
	} else {
		outcome = r.execute(ctx, task)
		// An interrupted task records no result; replay returns it to pending.
		if ctx.Err() != nil {
			return models.TaskRunning, nil
		}
	}

	result := models.ResultOK
	if !outcome.OK {
		result = models.ResultFail
	}
	if err := r.emit(models.EventTaskResult, map[string]any{
		"task_id": task.ID,
		"result":  result,
		"reason":  outcome.Reason,
		"output":  outcome.Output,
	}); err != nil {
		return "", err
	}

	state := models.TaskCompleted
	if outcome.OK {
		r.summary.TasksCompleted++
	} else {
		state = models.TaskFailed
		r.summary.TasksFailed++
	}
	r.states[task.ID] = state
	if r.logger != nil {
		r.logger.LogTaskResult(task, outcome)
	}
	return state, nil
}

func (r *Runner) dryRun(task *models.Task) models.TaskOutcome {
	checks := make([]string, 0, len(task.DefinitionOfDone))
	for _, dod := range task.DefinitionOfDone {
		checks = append(checks, describeDoD(dod))
	}
	if r.logger != nil {
		r.logger.LogDryRun(task, checks)
	}
	return models.TaskOutcome{TaskID: task.ID, OK: true, Reason: "dry-run"}
}

// execute checks every DoD entry in order and stops at the first failure.
func (r *Runner) execute(ctx context.Context, task *models.Task) models.TaskOutcome {
	for i, dod := range task.DefinitionOfDone {
		if ctx.Err() != nil {
			return models.TaskOutcome{TaskID: task.ID, Reason: "interrupted"}
		}
		res := r.checker.check(ctx, dod)
		if !res.ok {
			return models.TaskOutcome{
				TaskID: task.ID,
				Reason: truncate(fmt.Sprintf("definition_of_done[%d]: %s", i, res.reason), MaxReasonBytes),
				Output: truncate(res.output, MaxOutputBytes),
			}
		}
	}
	return models.TaskOutcome{TaskID: task.ID, OK: true, Reason: "all DoD conditions satisfied"}
}

func (r *Runner) recordSkipped(task *models.Task, reason string) error {
	if err := r.emit(models.EventTaskSkipped, map[string]any{
		"task_id": task.ID,
		"title":   task.Title,
		"reason":  reason,
	}); err != nil {
		return err
	}
	r.states[task.ID] = models.TaskSkipped
	r.summary.TasksSkipped++
	if r.logger != nil {
		r.logger.LogTaskSkipped(task, reason, false)
	}
	return nil
}

// emit appends an event. The caller updates in-memory state only after the
// event is durable.
func (r *Runner) emit(eventType models.EventType, data map[string]any) error {
	ev := models.NewRunEvent(eventType, r.now(), data)
	if err := r.store.AppendEvent(r.wg.ID, r.meta.RunID, ev); err != nil {
		return fmt.Errorf("failed to record %s: %w", eventType, err)
	}
	return nil
}

func (r *Runner) persistMeta() error {
	if err := r.store.SaveMeta(r.meta); err != nil {
		return err
	}
	return r.store.UpdateIndex(r.meta)
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
