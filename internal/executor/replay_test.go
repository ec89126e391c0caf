package executor

import (
	"testing"
	"time"

	"github.com/harrison/workplan/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestReplay(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ev := func(typ models.EventType, data map[string]any) models.RunEvent {
		return models.NewRunEvent(typ, ts, data)
	}

	events := []models.RunEvent{
		ev(models.EventRunStarted, map[string]any{"workgraph_id": "wg"}),
		ev(models.EventTaskStarted, map[string]any{"task_id": "A"}),
		ev(models.EventTaskResult, map[string]any{"task_id": "A", "result": "ok"}),
		ev(models.EventTaskStarted, map[string]any{"task_id": "B"}),
		ev(models.EventTaskResult, map[string]any{"task_id": "B", "result": "fail"}),
		ev(models.EventTaskSkipped, map[string]any{"task_id": "C"}),
		ev(models.EventTaskSkippedUnsafe, map[string]any{"task_id": "D"}),
		ev(models.EventTaskStarted, map[string]any{"task_id": "E"}),
		ev(models.EventTaskResult, map[string]any{"result": "ok"}),
		ev("SOMETHING_NEW", map[string]any{"task_id": "F"}),
	}

	st := Replay(events)
	assert.Equal(t, len(events), st.Events)
	assert.Equal(t, map[string]models.TaskState{
		"A": models.TaskCompleted,
		"B": models.TaskFailed,
		"C": models.TaskSkipped,
		"D": models.TaskSkippedUnsafe,
		"E": models.TaskRunning,
	}, st.States)
	assert.Equal(t, []string{"A"}, st.IDs(models.TaskCompleted))

	sched := st.schedulable()
	_, interrupted := sched["E"]
	assert.False(t, interrupted, "interrupted tasks go back to pending")
	assert.Len(t, sched, 4)
}

func TestReplay_IsPure(t *testing.T) {
	events := []models.RunEvent{
		models.NewRunEvent(models.EventTaskResult, time.Now(), map[string]any{"task_id": "A", "result": "ok"}),
	}
	first := Replay(events)
	second := Replay(events)
	assert.Equal(t, first, second)

	assert.Empty(t, Replay(nil).States)
}
