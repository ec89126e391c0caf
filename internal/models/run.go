package models

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunStopped   RunStatus = "stopped"
)

// IsTerminal reports whether s is a final run state.
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunStopped
}

// TaskState is the per-task state inside one run.
type TaskState string

const (
	TaskPending       TaskState = "pending"
	TaskRunning       TaskState = "running"
	TaskCompleted     TaskState = "completed"
	TaskFailed        TaskState = "failed"
	TaskSkipped       TaskState = "skipped"
	TaskSkippedUnsafe TaskState = "skipped_unsafe"
)

// EventType names an entry in a run's event log.
type EventType string

const (
	EventRunStarted        EventType = "RUN_STARTED"
	EventTaskStarted       EventType = "TASK_STARTED"
	EventTaskResult        EventType = "TASK_RESULT"
	EventTaskSkipped       EventType = "TASK_SKIPPED"
	EventTaskSkippedUnsafe EventType = "TASK_SKIPPED_UNSAFE"
	EventRunSummary        EventType = "RUN_SUMMARY"
)

// TASK_RESULT outcomes carried in the "result" payload key.
const (
	ResultOK   = "ok"
	ResultFail = "fail"
)

// TimestampLayout is used for every timestamp persisted in run records.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// RunMeta is the metadata persisted as meta.json for one run.
type RunMeta struct {
	RunID         string    `json:"run_id"`
	WorkGraphID   string    `json:"workgraph_id"`
	WorkGraphHash string    `json:"workgraph_hash"`
	StartedAt     string    `json:"started_at"`
	CompletedAt   string    `json:"completed_at,omitempty"`
	Status        RunStatus `json:"status"`
	DryRun        bool      `json:"dry_run"`
	MaxSteps      int       `json:"max_steps"` // 0 means unlimited
	OnlyTasks     []string  `json:"only_tasks"`
	SkipTasks     []string  `json:"skip_tasks"`
}

// RunEvent is one line of events.jsonl. Events are only created by the
// runner and are never rewritten.
type RunEvent struct {
	EventType EventType      `json:"event_type"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// NewRunEvent stamps an event with t.
func NewRunEvent(eventType EventType, t time.Time, data map[string]any) RunEvent {
	if data == nil {
		data = map[string]any{}
	}
	return RunEvent{EventType: eventType, Timestamp: FormatTimestamp(t), Data: data}
}

// String returns a payload value as a string, or "" when absent.
func (e RunEvent) String(key string) string {
	v, _ := e.Data[key].(string)
	return v
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// GenerateRunID returns "wr-YYYYMMDD-HHMMSS-<hash8(workgraphID+startedAt)>".
// startedAt must be the string persisted in RunMeta.StartedAt so the id can
// be recomputed from stored metadata.
func GenerateRunID(workgraphID string, start time.Time, startedAt string) string {
	return fmt.Sprintf("wr-%s-%s", start.Format("20060102-150405"), Hash8(workgraphID+startedAt))
}

// TaskOutcome is the result of processing one task, as recorded in its
// TASK_RESULT event. Reason and Output are already bounded.
type TaskOutcome struct {
	TaskID string
	OK     bool
	Reason string
	Output string
}

// RunSummary reports what one invocation of the runner did. Counts cover
// this invocation only, not tasks replayed from a resumed log.
type RunSummary struct {
	RunID              string    `json:"run_id"`
	WorkGraphID        string    `json:"workgraph_id"`
	TasksCompleted     int       `json:"tasks_completed"`
	TasksFailed        int       `json:"tasks_failed"`
	TasksSkipped       int       `json:"tasks_skipped"`        // Includes unsafe skips
	TasksSkippedUnsafe int       `json:"tasks_skipped_unsafe"` // Subset of TasksSkipped
	DryRun             bool      `json:"dry_run"`
	Status             RunStatus `json:"status"`
	Resumed            bool      `json:"resumed"`
}

// Data returns the RUN_SUMMARY event payload.
func (s RunSummary) Data() map[string]any {
	return map[string]any{
		"run_id":               s.RunID,
		"workgraph_id":         s.WorkGraphID,
		"tasks_completed":      s.TasksCompleted,
		"tasks_failed":         s.TasksFailed,
		"tasks_skipped":        s.TasksSkipped,
		"tasks_skipped_unsafe": s.TasksSkippedUnsafe,
		"dry_run":              s.DryRun,
		"status":               string(s.Status),
	}
}
