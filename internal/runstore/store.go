// Package runstore persists run records on the local filesystem:
//
//	{root}/{workgraph_id}/runs/index.json
//	{root}/{workgraph_id}/runs/{run_id}/meta.json
//	{root}/{workgraph_id}/runs/{run_id}/events.jsonl
//
// meta.json and index.json are always replaced atomically. events.jsonl is
// append-only and every append is fsynced before it returns.
package runstore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/workplan/internal/filelock"
	"github.com/harrison/workplan/internal/models"
)

const (
	metaFile   = "meta.json"
	eventsFile = "events.jsonl"
	indexFile  = "index.json"
	lockFile   = ".run.lock"
	runsDir    = "runs"
)

// maxEventLine bounds a single events.jsonl line when reading.
const maxEventLine = 1 << 20

// ErrRunNotFound is returned when a run has no meta.json.
var ErrRunNotFound = errors.New("run not found")

// ErrInvalidRunID is returned for run ids that would escape the runs directory.
var ErrInvalidRunID = errors.New("invalid run id")

// ValidateRunID rejects ids that are empty or contain a path separator or "..".
func ValidateRunID(runID string) error {
	if runID == "" || runID == "." || strings.Contains(runID, "..") || strings.ContainsAny(runID, `/\`) {
		return fmt.Errorf("%q: %w", runID, ErrInvalidRunID)
	}
	return nil
}

// IndexEntry is one run in index.json.
type IndexEntry struct {
	RunID       string           `json:"run_id"`
	StartedAt   string           `json:"started_at"`
	CompletedAt string           `json:"completed_at,omitempty"`
	Status      models.RunStatus `json:"status"`
	DryRun      bool             `json:"dry_run"`
}

type index struct {
	Runs        []IndexEntry `json:"runs"`
	LastUpdated string       `json:"last_updated"`
}

// Store reads and writes run records below Root.
// It takes no locks; callers serialize runs of the same WorkGraph.
type Store struct {
	Root string
	now  func() time.Time
}

// New creates a store rooted at root.
func New(root string) *Store {
	return &Store{Root: root, now: time.Now}
}

// RunsDir returns the directory holding every run of a WorkGraph.
func (s *Store) RunsDir(workgraphID string) string {
	return filepath.Join(s.Root, workgraphID, runsDir)
}

// RunDir returns the directory of one run.
func (s *Store) RunDir(workgraphID, runID string) string {
	return filepath.Join(s.RunsDir(workgraphID), runID)
}

// LockPath returns the advisory lock file used to serialize runs of a
// WorkGraph.
func (s *Store) LockPath(workgraphID string) string {
	return filepath.Join(s.RunsDir(workgraphID), lockFile)
}

// SaveMeta atomically writes meta.json for meta's run.
func (s *Store) SaveMeta(meta *models.RunMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run meta %s: %w", meta.RunID, err)
	}
	path := filepath.Join(s.RunDir(meta.WorkGraphID, meta.RunID), metaFile)
	if err := filelock.AtomicWrite(path, data); err != nil {
		return fmt.Errorf("failed to save run meta %s: %w", meta.RunID, err)
	}
	return nil
}

// LoadMeta reads meta.json. A missing file yields an error wrapping
// ErrRunNotFound.
func (s *Store) LoadMeta(workgraphID, runID string) (*models.RunMeta, error) {
	if err := ValidateRunID(runID); err != nil {
		return nil, err
	}
	path := filepath.Join(s.RunDir(workgraphID, runID), metaFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", workgraphID, runID, ErrRunNotFound)
		}
		return nil, fmt.Errorf("failed to read run meta: %w", err)
	}

	var meta models.RunMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode run meta %s: %w", path, err)
	}
	return &meta, nil
}

// AppendEvent appends ev as one JSON line to the run's event log.
func (s *Store) AppendEvent(workgraphID, runID string, ev models.RunEvent) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", ev.EventType, err)
	}
	line = append(line, '\n')
	path := filepath.Join(s.RunDir(workgraphID, runID), eventsFile)
	if err := filelock.AppendSync(path, line); err != nil {
		return fmt.Errorf("failed to append %s event to run %s: %w", ev.EventType, runID, err)
	}
	return nil
}

// LoadEvents returns the run's events in append order. Blank and malformed
// lines are skipped. A run without an event log has no events.
func (s *Store) LoadEvents(workgraphID, runID string) ([]models.RunEvent, error) {
	if err := ValidateRunID(runID); err != nil {
		return nil, err
	}
	path := filepath.Join(s.RunDir(workgraphID, runID), eventsFile)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	var events []models.RunEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev models.RunEvent
		if err := json.Unmarshal(line, &ev); err != nil || ev.EventType == "" {
			continue
		}
		if ev.Data == nil {
			ev.Data = map[string]any{}
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log %s: %w", path, err)
	}
	return events, nil
}

// UpdateIndex inserts or replaces meta's entry in the WorkGraph's run index.
// New runs are appended, so the last entry is the newest run.
func (s *Store) UpdateIndex(meta *models.RunMeta) error {
	idx := s.readIndex(meta.WorkGraphID)

	entry := IndexEntry{
		RunID:       meta.RunID,
		StartedAt:   meta.StartedAt,
		CompletedAt: meta.CompletedAt,
		Status:      meta.Status,
		DryRun:      meta.DryRun,
	}
	replaced := false
	for i := range idx.Runs {
		if idx.Runs[i].RunID == meta.RunID {
			idx.Runs[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		idx.Runs = append(idx.Runs, entry)
	}
	idx.LastUpdated = models.FormatTimestamp(s.now())

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run index: %w", err)
	}
	path := filepath.Join(s.RunsDir(meta.WorkGraphID), indexFile)
	if err := filelock.AtomicWrite(path, data); err != nil {
		return fmt.Errorf("failed to update run index for %s: %w", meta.WorkGraphID, err)
	}
	return nil
}

// ListRuns returns the index entries of a WorkGraph, oldest first.
// A missing or corrupt index yields no entries.
func (s *Store) ListRuns(workgraphID string) []IndexEntry {
	return s.readIndex(workgraphID).Runs
}

// LatestRun loads the meta of the newest indexed run. It returns an error
// wrapping ErrRunNotFound when the WorkGraph has no runs.
func (s *Store) LatestRun(workgraphID string) (*models.RunMeta, error) {
	runs := s.ListRuns(workgraphID)
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs for %s: %w", workgraphID, ErrRunNotFound)
	}
	return s.LoadMeta(workgraphID, runs[len(runs)-1].RunID)
}

func (s *Store) readIndex(workgraphID string) index {
	data, err := os.ReadFile(filepath.Join(s.RunsDir(workgraphID), indexFile))
	if err != nil {
		return index{Runs: []IndexEntry{}}
	}
	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		return index{Runs: []IndexEntry{}}
	}
	if idx.Runs == nil {
		idx.Runs = []IndexEntry{}
	}
	return idx
}
