package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/harrison/workplan/internal/models"
)

// Serialize renders wg as canonical JSON: fixed field order, map keys sorted,
// no insignificant whitespace. Two equal WorkGraphs always serialize to the
// same bytes, which makes the output suitable for hashing.
func Serialize(wg *models.WorkGraph) ([]byte, error) {
	data, err := json.Marshal(toWire(wg))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workgraph %s: %w", wg.ID, err)
	}
	return data, nil
}

// SerializeIndent is Serialize with two-space indentation, for files meant
// to be read by people.
func SerializeIndent(wg *models.WorkGraph) ([]byte, error) {
	data, err := json.MarshalIndent(toWire(wg), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workgraph %s: %w", wg.ID, err)
	}
	return data, nil
}

// Hash returns the hex SHA-256 of the canonical serialization of wg.
func Hash(wg *models.WorkGraph) (string, error) {
	data, err := Serialize(wg)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func toWire(wg *models.WorkGraph) wireWorkGraph {
	phases := make([]wirePhase, 0, len(wg.Phases))
	for _, p := range wg.Phases {
		tasks := make([]wireTask, 0, len(p.Tasks))
		for _, t := range p.Tasks {
			tasks = append(tasks, taskToWire(t))
		}
		phases = append(phases, wirePhase{ID: p.ID, Name: p.Name, Tasks: tasks})
	}

	return wireWorkGraph{
		SchemaVersion:  wg.SchemaVersion,
		ID:             wg.ID,
		Domain:         wg.Domain,
		Profile:        wg.Profile,
		Goal:           wg.Goal,
		RepoDiscovery:  nonNilMap(wg.RepoDiscovery),
		Track:          nonNilStringMap(wg.Track),
		Phases:         phases,
		StopConditions: nonNilConditions(wg.StopConditions),
	}
}

func taskToWire(t *models.Task) wireTask {
	w := wireTask{
		ID:               t.ID,
		Title:            t.Title,
		Intent:           t.Intent,
		DefinitionOfDone: dodsToWire(t.DefinitionOfDone),
		Verification:     dodsToWire(t.Verification),
		Inputs:           nonNil(t.Inputs),
		Outputs:          nonNil(t.Outputs),
		Risk:             nonNilMap(t.Risk),
		SafeToExecute:    t.SafeToExecute,
		Impact:           t.Impact,
		RiskScore:        t.RiskScore,
		Purpose:          t.Purpose,
		DependsOn:        nonNil(t.DependsOn),
	}
	if t.Effort != nil {
		minutesMin, minutesMax := t.Effort.Min, t.Effort.Max
		w.Effort = &wireEffort{Min: &minutesMin, Max: &minutesMax}
	}
	if len(t.Tags) > 0 {
		w.Tags = t.Tags
	}
	return w
}

func dodsToWire(dods []models.DefinitionOfDone) []wireDoD {
	out := make([]wireDoD, 0, len(dods))
	for _, d := range dods {
		expect := d.Expectation()
		w := wireDoD{Kind: string(d.Kind()), Expect: &expect}
		switch v := d.(type) {
		case models.CommandCheck:
			cmd := v.Cmd
			w.Cmd = &cmd
		case models.FileCheck:
			path := v.Path
			w.Path = &path
		}
		out = append(out, w)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nonNilStringMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nonNilConditions(c []map[string]string) []map[string]string {
	if c == nil {
		return []map[string]string{}
	}
	return c
}
