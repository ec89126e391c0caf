package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrison/workplan/internal/models"
)

// Wire structs mirror the v1 document layout. Field order here is the
// canonical field order produced by Serialize.

type wireDoD struct {
	Kind   string  `json:"kind" yaml:"kind"`
	Cmd    *string `json:"cmd" yaml:"cmd"`
	Path   *string `json:"path" yaml:"path"`
	Expect *string `json:"expect" yaml:"expect"`
}

type wireEffort struct {
	Min *int `json:"min" yaml:"min"`
	Max *int `json:"max" yaml:"max"`
}

type wireTask struct {
	ID               string         `json:"id" yaml:"id"`
	Title            string         `json:"title" yaml:"title"`
	Intent           string         `json:"intent" yaml:"intent"`
	DefinitionOfDone []wireDoD      `json:"definition_of_done" yaml:"definition_of_done"`
	Verification     []wireDoD      `json:"verification" yaml:"verification"`
	Inputs           []string       `json:"inputs" yaml:"inputs"`
	Outputs          []string       `json:"outputs" yaml:"outputs"`
	Risk             map[string]any `json:"risk" yaml:"risk"`
	SafeToExecute    bool           `json:"safe_to_execute" yaml:"safe_to_execute"`
	Effort           *wireEffort    `json:"effort,omitempty" yaml:"effort,omitempty"`
	Impact           *int           `json:"impact,omitempty" yaml:"impact,omitempty"`
	RiskScore        *int           `json:"risk_score,omitempty" yaml:"risk_score,omitempty"`
	Purpose          *int           `json:"purpose,omitempty" yaml:"purpose,omitempty"`
	Tags             []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	DependsOn        []string       `json:"depends_on" yaml:"depends_on"`
}

type wirePhase struct {
	ID    string     `json:"id" yaml:"id"`
	Name  string     `json:"name" yaml:"name"`
	Tasks []wireTask `json:"tasks" yaml:"tasks"`
}

type wireWorkGraph struct {
	SchemaVersion  string              `json:"schema_version" yaml:"schema_version"`
	ID             string              `json:"id" yaml:"id"`
	Domain         string              `json:"domain" yaml:"domain"`
	Profile        string              `json:"profile" yaml:"profile"`
	Goal           string              `json:"goal" yaml:"goal"`
	RepoDiscovery  map[string]any      `json:"repo_discovery" yaml:"repo_discovery"`
	Track          map[string]string   `json:"track" yaml:"track"`
	Phases         []wirePhase         `json:"phases" yaml:"phases"`
	StopConditions []map[string]string `json:"stop_conditions" yaml:"stop_conditions"`
}

func (w wireDoD) build() (models.DefinitionOfDone, error) {
	expect := ""
	if w.Expect != nil {
		expect = *w.Expect
	}
	return models.NewDefinitionOfDone(w.Kind, deref(w.Cmd), deref(w.Path), expect)
}

func buildDoDs(raw []wireDoD, taskID, field string) ([]models.DefinitionOfDone, error) {
	out := make([]models.DefinitionOfDone, 0, len(raw))
	for i, d := range raw {
		dod, err := d.build()
		if err != nil {
			return nil, models.ScopeSchemaError(err, taskID, fmt.Sprintf("%s[%d]", field, i))
		}
		out = append(out, dod)
	}
	return out, nil
}

func (w wireTask) build() (*models.Task, error) {
	dods, err := buildDoDs(w.DefinitionOfDone, w.ID, "definition_of_done")
	if err != nil {
		return nil, err
	}
	verifs, err := buildDoDs(w.Verification, w.ID, "verification")
	if err != nil {
		return nil, err
	}

	var effort *models.Effort
	if w.Effort != nil {
		if w.Effort.Min == nil || w.Effort.Max == nil {
			return nil, &models.SchemaError{TaskID: w.ID, Field: "effort", Message: "effort must have 'min' and 'max' keys"}
		}
		effort = &models.Effort{Min: *w.Effort.Min, Max: *w.Effort.Max}
	}

	return models.NewTask(models.Task{
		ID:               w.ID,
		Title:            w.Title,
		Intent:           w.Intent,
		DefinitionOfDone: dods,
		Verification:     verifs,
		Inputs:           w.Inputs,
		Outputs:          w.Outputs,
		Risk:             normalizeMap(w.Risk),
		SafeToExecute:    w.SafeToExecute,
		Effort:           effort,
		Impact:           w.Impact,
		RiskScore:        w.RiskScore,
		Purpose:          w.Purpose,
		Tags:             w.Tags,
		DependsOn:        w.DependsOn,
	})
}

func (w wireWorkGraph) build(ts time.Time) (*models.WorkGraph, error) {
	phases := make([]*models.Phase, 0, len(w.Phases))
	for pi, p := range w.Phases {
		tasks := make([]*models.Task, 0, len(p.Tasks))
		for ti, t := range p.Tasks {
			task, err := t.build()
			if err != nil {
				if strings.TrimSpace(t.ID) == "" {
					return nil, models.ScopeSchemaError(err, "", fmt.Sprintf("phases[%d].tasks[%d]", pi, ti))
				}
				return nil, err
			}
			tasks = append(tasks, task)
		}
		phase, err := models.NewPhase(p.ID, p.Name, tasks)
		if err != nil {
			return nil, err
		}
		phases = append(phases, phase)
	}

	return models.NewWorkGraph(models.WorkGraph{
		SchemaVersion:  w.SchemaVersion,
		ID:             w.ID,
		Domain:         w.Domain,
		Profile:        w.Profile,
		Goal:           w.Goal,
		RepoDiscovery:  normalizeMap(w.RepoDiscovery),
		Track:          w.Track,
		Phases:         phases,
		StopConditions: w.StopConditions,
	}, ts)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// normalizeMap rewrites free-form YAML values into JSON-encodable ones.
// yaml.v3 decodes a mapping with any non-string key as
// map[interface{}]interface{}; its keys are stringified here.
func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return normalizeMap(val)
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
