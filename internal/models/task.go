package models

import (
	"fmt"
	"strings"
)

// Scoring factors are bounded to 0..5.
const (
	MinFactor = 0
	MaxFactor = 5
)

// Effort is an estimated duration range in minutes.
type Effort struct {
	Min int
	Max int
}

// Midpoint returns the average of Min and Max.
func (e Effort) Midpoint() float64 {
	return float64(e.Min+e.Max) / 2
}

// Task is a single executable unit of work inside a phase.
type Task struct {
	ID               string
	Title            string
	Intent           string
	DefinitionOfDone []DefinitionOfDone // Never empty for a constructed task
	Verification     []DefinitionOfDone // Secondary checks, counted for effort only
	Inputs           []string           // Artifact names consumed
	Outputs          []string           // Artifact names produced
	Risk             map[string]any     // Legacy risk metadata, e.g. {"level": "high"}
	SafeToExecute    bool               // Opt-in for real execution, default false

	// Optional scoring fields. Nil means "infer it".
	Effort    *Effort
	Impact    *int
	RiskScore *int
	Purpose   *int
	Tags      []string

	DependsOn []string // Explicit task ids, used only by selection
}

// NewTask validates t and returns a copy that owns its slices.
//
// The "no meta-tasks" gate applies here: a task without at least one
// Definition-of-Done is rejected.
func NewTask(t Task) (*Task, error) {
	if strings.TrimSpace(t.ID) == "" {
		return nil, &SchemaError{Field: "id", Message: "task id is required"}
	}
	if len(t.DefinitionOfDone) == 0 {
		return nil, &SchemaError{
			TaskID:  t.ID,
			Field:   "definition_of_done",
			Message: fmt.Sprintf("task %q missing definition_of_done; all tasks must have at least one machine-checkable DoD", t.Title),
		}
	}
	for i, d := range t.DefinitionOfDone {
		if d == nil {
			return nil, &SchemaError{TaskID: t.ID, Field: fmt.Sprintf("definition_of_done[%d]", i), Message: "nil DoD"}
		}
	}
	for i, d := range t.Verification {
		if d == nil {
			return nil, &SchemaError{TaskID: t.ID, Field: fmt.Sprintf("verification[%d]", i), Message: "nil DoD"}
		}
	}

	if t.Effort != nil {
		if t.Effort.Min < 0 || t.Effort.Max < 0 {
			return nil, &SchemaError{TaskID: t.ID, Field: "effort", Message: "effort values must be non-negative"}
		}
		if t.Effort.Min > t.Effort.Max {
			return nil, &SchemaError{TaskID: t.ID, Field: "effort", Message: "effort min cannot be greater than max"}
		}
	}

	factors := []struct {
		name  string
		value *int
	}{
		{"impact", t.Impact},
		{"risk_score", t.RiskScore},
		{"purpose", t.Purpose},
	}
	for _, f := range factors {
		if f.value != nil && (*f.value < MinFactor || *f.value > MaxFactor) {
			return nil, &SchemaError{
				TaskID:  t.ID,
				Field:   f.name,
				Message: fmt.Sprintf("%s must be between %d and %d, got %d", f.name, MinFactor, MaxFactor, *f.value),
			}
		}
	}

	out := t
	out.DefinitionOfDone = append([]DefinitionOfDone(nil), t.DefinitionOfDone...)
	out.Verification = append([]DefinitionOfDone{}, t.Verification...)
	out.Inputs = append([]string{}, t.Inputs...)
	out.Outputs = append([]string{}, t.Outputs...)
	out.Tags = append([]string{}, t.Tags...)
	out.DependsOn = append([]string{}, t.DependsOn...)
	if t.Risk == nil {
		out.Risk = map[string]any{}
	} else {
		out.Risk = make(map[string]any, len(t.Risk))
		for k, v := range t.Risk {
			out.Risk[k] = v
		}
	}
	if t.Effort != nil {
		e := *t.Effort
		out.Effort = &e
	}
	out.Impact = copyInt(t.Impact)
	out.RiskScore = copyInt(t.RiskScore)
	out.Purpose = copyInt(t.Purpose)
	return &out, nil
}

// HasTag reports whether the task carries any of the given tags.
func (t *Task) HasTag(tags ...string) bool {
	for _, have := range t.Tags {
		for _, want := range tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// RiskLevel returns the legacy risk.level value, or "" if absent.
func (t *Task) RiskLevel() string {
	if t.Risk == nil {
		return ""
	}
	level, _ := t.Risk["level"].(string)
	return level
}

// IntPtr is a convenience for building optional scoring fields.
func IntPtr(v int) *int {
	return &v
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
