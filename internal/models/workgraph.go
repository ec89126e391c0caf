package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// SchemaVersion is the only WorkGraph schema version accepted.
const SchemaVersion = "v1"

// Defaults applied when a WorkGraph omits them.
const (
	DefaultDomain  = "general"
	DefaultProfile = "default"
)

// Phase is an ordered group of tasks.
type Phase struct {
	ID    string
	Name  string
	Tasks []*Task
}

// NewPhase validates and builds a phase. The name must be non-blank.
func NewPhase(id, name string, tasks []*Task) (*Phase, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &SchemaError{Field: fmt.Sprintf("phases[%s].name", id), Message: "phase name cannot be empty"}
	}
	return &Phase{ID: id, Name: name, Tasks: append([]*Task{}, tasks...)}, nil
}

// WorkGraph is a declarative plan: a goal decomposed into phases of tasks
// with machine-checkable completion criteria.
//
// A WorkGraph is handed to the scoring, selection and execution engines
// read-only; none of them mutate it.
type WorkGraph struct {
	SchemaVersion  string
	ID             string
	Domain         string
	Profile        string
	Goal           string
	RepoDiscovery  map[string]any    // Discovery evidence, opaque to this module
	Track          map[string]string // Track metadata, e.g. id and name
	Phases         []*Phase
	StopConditions []map[string]string
}

// NewWorkGraph validates wg and fills defaults. When wg.ID is empty it is
// derived from the goal and the date of now.
func NewWorkGraph(wg WorkGraph, now time.Time) (*WorkGraph, error) {
	if wg.SchemaVersion == "" {
		wg.SchemaVersion = SchemaVersion
	}
	if wg.SchemaVersion != SchemaVersion {
		return nil, &SchemaError{Field: "schema_version", Message: fmt.Sprintf("unsupported schema_version: %s", wg.SchemaVersion)}
	}
	if strings.TrimSpace(wg.Goal) == "" {
		return nil, &SchemaError{Field: "goal", Message: "WorkGraph goal cannot be empty"}
	}

	seen := make(map[string]string)
	for _, phase := range wg.Phases {
		if phase == nil {
			return nil, &SchemaError{Field: "phases", Message: "nil phase"}
		}
		for _, task := range phase.Tasks {
			if task == nil {
				return nil, &SchemaError{Field: fmt.Sprintf("phases[%s].tasks", phase.ID), Message: "nil task"}
			}
			if other, dup := seen[task.ID]; dup {
				return nil, &SchemaError{
					TaskID:  task.ID,
					Field:   "id",
					Message: fmt.Sprintf("duplicate task id (phases %s and %s)", other, phase.ID),
				}
			}
			seen[task.ID] = phase.ID
		}
	}

	if wg.ID == "" {
		wg.ID = DeriveWorkGraphID(wg.Goal, now)
	}
	if wg.Domain == "" {
		wg.Domain = DefaultDomain
	}
	if wg.Profile == "" {
		wg.Profile = DefaultProfile
	}
	if wg.RepoDiscovery == nil {
		wg.RepoDiscovery = map[string]any{}
	}
	if wg.Track == nil {
		wg.Track = map[string]string{}
	}
	if wg.StopConditions == nil {
		wg.StopConditions = []map[string]string{}
	}
	wg.Phases = append([]*Phase{}, wg.Phases...)
	return &wg, nil
}

// DeriveWorkGraphID returns "wg-YYYYMMDD-<first 8 hex of sha256(goal)>".
func DeriveWorkGraphID(goal string, now time.Time) string {
	return fmt.Sprintf("wg-%s-%s", now.Format("20060102"), Hash8(goal))
}

// Hash8 returns the first eight hex characters of the SHA-256 of s.
func Hash8(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}

// Tasks returns every task in phase order.
func (wg *WorkGraph) Tasks() []*Task {
	var out []*Task
	for _, p := range wg.Phases {
		out = append(out, p.Tasks...)
	}
	return out
}

// TaskMap indexes every task by id.
func (wg *WorkGraph) TaskMap() map[string]*Task {
	m := make(map[string]*Task)
	for _, t := range wg.Tasks() {
		m[t.ID] = t
	}
	return m
}

// PhaseOf returns the phase containing the task with the given id.
func (wg *WorkGraph) PhaseOf(taskID string) (*Phase, bool) {
	for _, p := range wg.Phases {
		for _, t := range p.Tasks {
			if t.ID == taskID {
				return p, true
			}
		}
	}
	return nil, false
}

// TaskCount returns the number of tasks across all phases.
func (wg *WorkGraph) TaskCount() int {
	n := 0
	for _, p := range wg.Phases {
		n += len(p.Tasks)
	}
	return n
}
