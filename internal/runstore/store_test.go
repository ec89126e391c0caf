package runstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrison/workplan/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir())
	s.now = func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func sampleMeta(runID string) *models.RunMeta {
	return &models.RunMeta{
		RunID:         runID,
		WorkGraphID:   "wg-1",
		WorkGraphHash: "abc",
		StartedAt:     "2026-01-01T12:00:00.000000",
		Status:        models.RunRunning,
		DryRun:        true,
		OnlyTasks:     []string{},
		SkipTasks:     []string{},
	}
}

func TestLayout(t *testing.T) {
	s := New("/data/wg")
	assert.Equal(t, filepath.Join("/data/wg", "wg-1", "runs", "wr-1"), s.RunDir("wg-1", "wr-1"))
	assert.Equal(t, filepath.Join("/data/wg", "wg-1", "runs", ".run.lock"), s.LockPath("wg-1"))
}

func TestSaveLoadMeta(t *testing.T) {
	s := newTestStore(t)
	meta := sampleMeta("wr-1")
	meta.MaxSteps = 3

	require.NoError(t, s.SaveMeta(meta))

	got, err := s.LoadMeta("wg-1", "wr-1")
	require.NoError(t, err)
	assert.Equal(t, meta, got)

	meta.Status = models.RunCompleted
	meta.CompletedAt = "2026-01-01T12:05:00.000000"
	require.NoError(t, s.SaveMeta(meta))
	got, err = s.LoadMeta("wg-1", "wr-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, got.Status)
}

func TestLoadMeta_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadMeta("wg-1", "wr-missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestLoadMeta_RejectsPathLikeIDs(t *testing.T) {
	s := newTestStore(t)
	outside := filepath.Join(s.Root, "wg-1", "meta.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(outside), 0755))
	require.NoError(t, os.WriteFile(outside, []byte(`{"run_id": "x"}`), 0644))

	for _, id := range []string{"..", "../x", "a/b", `a\b`, "", "."} {
		t.Run(id, func(t *testing.T) {
			_, err := s.LoadMeta("wg-1", id)
			require.ErrorIs(t, err, ErrInvalidRunID)
			_, err = s.LoadEvents("wg-1", id)
			require.ErrorIs(t, err, ErrInvalidRunID)
		})
	}

	assert.NoError(t, ValidateRunID("wr-20260101-120000-abcd1234"))
}

func TestEvents_AppendAndLoad(t *testing.T) {
	s := newTestStore(t)
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	events := []models.RunEvent{
		models.NewRunEvent(models.EventRunStarted, ts, map[string]any{"workgraph_id": "wg-1"}),
		models.NewRunEvent(models.EventTaskResult, ts, map[string]any{"task_id": "T1", "result": models.ResultOK}),
		models.NewRunEvent(models.EventRunSummary, ts, nil),
	}
	for _, ev := range events {
		require.NoError(t, s.AppendEvent("wg-1", "wr-1", ev))
	}

	got, err := s.LoadEvents("wg-1", "wr-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, models.EventRunStarted, got[0].EventType)
	assert.Equal(t, "T1", got[1].String("task_id"))
	assert.Equal(t, models.ResultOK, got[1].String("result"))
	assert.NotNil(t, got[2].Data)
}

func TestLoadEvents_SkipsMalformedLines(t *testing.T) {
	s := newTestStore(t)
	dir := s.RunDir("wg-1", "wr-1")
	require.NoError(t, os.MkdirAll(dir, 0755))

	content := `{"event_type":"RUN_STARTED","timestamp":"t","data":{}}
not json at all

{"event_type":"TASK_RESULT","timestamp":"t","data":{"task_id":"T1","result":"ok"}}
{"timestamp":"t"}
{"event_type":"RUN_SUMMARY","timestamp":"t","data":{}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.jsonl"), []byte(content), 0644))

	got, err := s.LoadEvents("wg-1", "wr-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.EventRunStarted, got[0].EventType)
	assert.Equal(t, models.EventTaskResult, got[1].EventType)
}

func TestLoadEvents_NoLog(t *testing.T) {
	got, err := newTestStore(t).LoadEvents("wg-1", "wr-none")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdateIndex_Upsert(t *testing.T) {
	s := newTestStore(t)

	first := sampleMeta("wr-1")
	second := sampleMeta("wr-2")
	require.NoError(t, s.UpdateIndex(first))
	require.NoError(t, s.UpdateIndex(second))

	first.Status = models.RunFailed
	first.CompletedAt = "2026-01-01T12:01:00.000000"
	require.NoError(t, s.UpdateIndex(first))

	runs := s.ListRuns("wg-1")
	require.Len(t, runs, 2)
	assert.Equal(t, IndexEntry{
		RunID:       "wr-1",
		StartedAt:   first.StartedAt,
		CompletedAt: first.CompletedAt,
		Status:      models.RunFailed,
		DryRun:      true,
	}, runs[0])
	assert.Equal(t, "wr-2", runs[1].RunID)

	idx := s.readIndex("wg-1")
	assert.Equal(t, "2026-01-01T12:00:00.000000", idx.LastUpdated)
}

func TestListRuns_CorruptIndex(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(s.RunsDir("wg-1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(s.RunsDir("wg-1"), "index.json"), []byte("{broken"), 0644))

	assert.Empty(t, s.ListRuns("wg-1"))

	require.NoError(t, s.UpdateIndex(sampleMeta("wr-9")))
	assert.Len(t, s.ListRuns("wg-1"), 1)
}

func TestLatestRun(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LatestRun("wg-1")
	assert.True(t, errors.Is(err, ErrRunNotFound))

	for _, id := range []string{"wr-1", "wr-2"} {
		meta := sampleMeta(id)
		require.NoError(t, s.SaveMeta(meta))
		require.NoError(t, s.UpdateIndex(meta))
	}

	latest, err := s.LatestRun("wg-1")
	require.NoError(t, err)
	assert.Equal(t, "wr-2", latest.RunID)
}
