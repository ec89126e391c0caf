package executor

import (
	"sort"

	"github.com/harrison/workplan/internal/models"
)

// ReplayState is the per-task state rebuilt from a run's event log.
type ReplayState struct {
	States map[string]models.TaskState
	Events int // Number of events folded
}

// Replay folds events, in order, into per-task states. It performs no I/O.
//
// TASK_STARTED marks a task running; a task left running had no result
// written and is scheduled again on resume. TASK_RESULT ok/fail marks it
// completed/failed, and both skip events mark it skipped. Events without a
// task_id and unknown event types are ignored.
func Replay(events []models.RunEvent) ReplayState {
	st := ReplayState{States: make(map[string]models.TaskState)}
	for _, ev := range events {
		st = st.apply(ev)
	}
	return st
}

func (st ReplayState) apply(ev models.RunEvent) ReplayState {
	st.Events++
	id := ev.String("task_id")
	if id == "" {
		return st
	}

	switch ev.EventType {
	case models.EventTaskStarted:
		st.States[id] = models.TaskRunning
	case models.EventTaskResult:
		switch ev.String("result") {
		case models.ResultOK:
			st.States[id] = models.TaskCompleted
		case models.ResultFail:
			st.States[id] = models.TaskFailed
		}
	case models.EventTaskSkipped:
		st.States[id] = models.TaskSkipped
	case models.EventTaskSkippedUnsafe:
		st.States[id] = models.TaskSkippedUnsafe
	}
	return st
}

// IDs returns the sorted ids of tasks in state s.
func (st ReplayState) IDs(s models.TaskState) []string {
	var ids []string
	for id, state := range st.States {
		if state == s {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// schedulable returns a copy of the states with interrupted tasks removed,
// so they go back to pending.
func (st ReplayState) schedulable() map[string]models.TaskState {
	out := make(map[string]models.TaskState, len(st.States))
	for id, s := range st.States {
		if s != models.TaskRunning {
			out[id] = s
		}
	}
	return out
}
