package scoring

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/harrison/workplan/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(t *testing.T, base models.Task) *models.Task {
	t.Helper()
	if len(base.DefinitionOfDone) == 0 {
		base.DefinitionOfDone = []models.DefinitionOfDone{models.FileCheck{Path: "out.txt", Expect: "exists"}}
	}
	task, err := models.NewTask(base)
	require.NoError(t, err)
	return task
}

func newGraph(t *testing.T, domain string, tasks ...*models.Task) *models.WorkGraph {
	t.Helper()
	phase, err := models.NewPhase("PH-1", "Phase", tasks)
	require.NoError(t, err)
	wg, err := models.NewWorkGraph(models.WorkGraph{ID: "wg-test", Goal: "test", Domain: domain, Phases: []*models.Phase{phase}}, time.Now())
	require.NoError(t, err)
	return wg
}

func commands(n int) []models.DefinitionOfDone {
	out := make([]models.DefinitionOfDone, n)
	for i := range out {
		out[i] = models.CommandCheck{Cmd: "true", Expect: models.DefaultExpect}
	}
	return out
}

func TestEffortBucket(t *testing.T) {
	tests := []struct {
		min, max int
		want     int
	}{
		{0, 0, 1},
		{5, 5, 1},
		{5, 6, 2},
		{10, 20, 2},
		{15, 17, 3},
		{60, 60, 3},
		{60, 62, 4},
		{240, 240, 4},
		{240, 242, 5},
		{600, 900, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EffortBucket(models.Effort{Min: tt.min, Max: tt.max}), "effort %d-%d", tt.min, tt.max)
	}
}

func TestInferEffort(t *testing.T) {
	tests := []struct {
		name string
		task models.Task
		want int
	}{
		{name: "file checks only, safe", task: models.Task{ID: "T", SafeToExecute: true}, want: 2},
		{name: "one command, safe", task: models.Task{ID: "T", SafeToExecute: true, DefinitionOfDone: commands(1)}, want: 2},
		{name: "three commands across dod and verification", task: models.Task{ID: "T", SafeToExecute: true, DefinitionOfDone: commands(2), Verification: commands(1)}, want: 3},
		{name: "six commands", task: models.Task{ID: "T", SafeToExecute: true, DefinitionOfDone: commands(6)}, want: 4},
		{name: "seven commands", task: models.Task{ID: "T", SafeToExecute: true, DefinitionOfDone: commands(7)}, want: 5},
		{name: "unsafe adds one", task: models.Task{ID: "T", DefinitionOfDone: commands(1)}, want: 3},
		{name: "build tag adds one", task: models.Task{ID: "T", SafeToExecute: true, Tags: []string{"build"}}, want: 3},
		{name: "docs tag removes one", task: models.Task{ID: "T", SafeToExecute: true, Tags: []string{"docs"}}, want: 1},
		{name: "clamps each step at five", task: models.Task{ID: "T", DefinitionOfDone: commands(7), Tags: []string{"test", "cleanup"}}, want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := newTask(t, tt.task)
			assert.Equal(t, tt.want, inferEffort(task))
		})
	}
}

func TestInferImpact(t *testing.T) {
	tests := []struct {
		name   string
		task   models.Task
		domain string
		want   int
	}{
		{name: "baseline", task: models.Task{ID: "T"}, want: 2},
		{name: "issues blocker keyword", task: models.Task{ID: "T", Title: "Critical crash on start"}, domain: "issues", want: 5},
		{name: "issues defect keyword", task: models.Task{ID: "T", Intent: "fix the parser bug"}, domain: "issues", want: 4},
		{name: "keywords ignored outside issues", task: models.Task{ID: "T", Title: "critical"}, domain: "general", want: 2},
		{name: "high impact tag", task: models.Task{ID: "T", Tags: []string{"ci"}}, want: 4},
		{name: "medium impact tag", task: models.Task{ID: "T", Tags: []string{"feature"}}, want: 3},
		{name: "low impact tag caps", task: models.Task{ID: "T", Title: "urgent", Tags: []string{"docs"}}, domain: "issues", want: 2},
		{name: "outputs boost", task: models.Task{ID: "T", Outputs: []string{"a"}}, want: 3},
		{name: "outputs boost capped", task: models.Task{ID: "T", Title: "blocker", Outputs: []string{"a"}}, domain: "issues", want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferImpact(newTask(t, tt.task), tt.domain))
		})
	}
}

func TestInferRisk(t *testing.T) {
	tests := []struct {
		name string
		task models.Task
		want int
	}{
		{name: "safe baseline", task: models.Task{ID: "T", SafeToExecute: true}, want: 2},
		{name: "unsafe", task: models.Task{ID: "T"}, want: 4},
		{name: "three outputs", task: models.Task{ID: "T", SafeToExecute: true, Outputs: []string{"a", "b", "c"}}, want: 3},
		{name: "six outputs unsafe", task: models.Task{ID: "T", Outputs: []string{"a", "b", "c", "d", "e", "f"}}, want: 5},
		{name: "high risk tag", task: models.Task{ID: "T", SafeToExecute: true, Tags: []string{"migration"}}, want: 5},
		{name: "low risk tag", task: models.Task{ID: "T", SafeToExecute: true, Tags: []string{"readonly"}}, want: 0},
		{name: "legacy high level", task: models.Task{ID: "T", SafeToExecute: true, Risk: map[string]any{"level": "high"}}, want: 4},
		{name: "legacy low level", task: models.Task{ID: "T", Risk: map[string]any{"level": "low"}}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferRisk(newTask(t, tt.task)))
		})
	}
}

func TestInferPurpose(t *testing.T) {
	tests := []struct {
		name string
		task models.Task
		want int
	}{
		{name: "baseline", task: models.Task{ID: "T"}, want: 2},
		{name: "high purpose tag", task: models.Task{ID: "T", Tags: []string{"ux"}}, want: 5},
		{name: "medium purpose tag", task: models.Task{ID: "T", Tags: []string{"cli"}}, want: 3},
		{name: "low purpose tag", task: models.Task{ID: "T", Tags: []string{"tooling"}}, want: 1},
		{name: "user facing keyword", task: models.Task{ID: "T", Title: "Improve Customer onboarding", Tags: []string{"internal"}}, want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferPurpose(newTask(t, tt.task)))
		})
	}
}

func TestFormula(t *testing.T) {
	assert.Equal(t, 4*3+3-(2*2+1*2), Formula(ProfileInvestor, 4, 3, 2, 1))
	assert.Equal(t, 3*3+4-(2+1), Formula(ProfilePurpose, 4, 3, 2, 1))
	assert.Equal(t, 4*2+3-(2+1), Formula(ProfileDefault, 4, 3, 2, 1))
	assert.Equal(t, Formula(ProfileDefault, 4, 3, 2, 1), Formula("unknown", 4, 3, 2, 1))
}

func TestScoreTask_ExplicitFields(t *testing.T) {
	task := newTask(t, models.Task{
		ID:        "T1",
		Title:     "Explicit",
		Effort:    &models.Effort{Min: 10, Max: 20},
		Impact:    models.IntPtr(4),
		RiskScore: models.IntPtr(1),
		Purpose:   models.IntPtr(3),
	})

	got := ScoreTask(task, ProfileInvestor, "general")
	assert.Equal(t, 9, got.Score)
	assert.Equal(t, 2, got.EffortBucket)
	assert.Empty(t, got.InferredFields)
	assert.Equal(t, "impact: high (4); effort: quick (2); risk: minimal (1); purpose: medium (3); investor_score: 9", got.Rationale)
}

func TestScoreTask_InferredFields(t *testing.T) {
	task := newTask(t, models.Task{ID: "T1", Impact: models.IntPtr(3)})

	got := ScoreTask(task, ProfileDefault, "general")
	assert.Equal(t, []string{"effort", "risk", "purpose"}, got.InferredFields)
	assert.Contains(t, got.Rationale, "(inferred: effort, risk, purpose)")
}

func TestRank_Deterministic(t *testing.T) {
	wg := newGraph(t, "general",
		newTask(t, models.Task{ID: "T3", Tags: []string{"docs"}}),
		newTask(t, models.Task{ID: "T1", Tags: []string{"build"}, Outputs: []string{"bin"}}),
		newTask(t, models.Task{ID: "T2", SafeToExecute: true, DefinitionOfDone: commands(3)}),
	)

	first := Rank(wg, ProfileInvestor, Context{})
	for i := 0; i < 5; i++ {
		again := Rank(wg, ProfileInvestor, Context{})
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("ranking changed between invocations (-first +again):\n%s", diff)
		}
	}

	for i := 1; i < len(first.RankedTasks); i++ {
		assert.GreaterOrEqual(t, first.RankedTasks[i-1].Score, first.RankedTasks[i].Score)
	}
}

func TestRank_ProfileSensitivity(t *testing.T) {
	wg := newGraph(t, "general",
		newTask(t, models.Task{ID: "PURPOSE", Impact: models.IntPtr(1), Purpose: models.IntPtr(5), Effort: &models.Effort{Min: 10, Max: 10}, RiskScore: models.IntPtr(1)}),
		newTask(t, models.Task{ID: "IMPACT", Impact: models.IntPtr(5), Purpose: models.IntPtr(1), Effort: &models.Effort{Min: 10, Max: 10}, RiskScore: models.IntPtr(1)}),
	)

	investor := Rank(wg, ProfileInvestor, Context{})
	purpose := Rank(wg, ProfilePurpose, Context{})

	assert.Equal(t, "IMPACT", investor.RankedTasks[0].TaskID)
	assert.Equal(t, "PURPOSE", purpose.RankedTasks[0].TaskID)
}

func TestRank_ContextDomainOverridesGraph(t *testing.T) {
	wg := newGraph(t, "general", newTask(t, models.Task{ID: "T1", Title: "blocker in login", SafeToExecute: true}))

	plain := Rank(wg, ProfileDefault, Context{})
	issues := Rank(wg, ProfileDefault, Context{Domain: "issues"})
	assert.Equal(t, 2, plain.RankedTasks[0].Impact)
	assert.Equal(t, 5, issues.RankedTasks[0].Impact)
}

func TestRank_Summary(t *testing.T) {
	wg := newGraph(t, "general",
		newTask(t, models.Task{ID: "QUICK", Impact: models.IntPtr(5), Purpose: models.IntPtr(4), Effort: &models.Effort{Min: 1, Max: 3}, RiskScore: models.IntPtr(0)}),
		newTask(t, models.Task{ID: "RISKY", Impact: models.IntPtr(1), Purpose: models.IntPtr(0), Effort: &models.Effort{Min: 300, Max: 300}, RiskScore: models.IntPtr(5)}),
	)

	ranked := Rank(wg, ProfileDefault, Context{})
	// QUICK: 10+4-(1+0)=13, RISKY: 2+0-(5+5)=-8
	assert.Equal(t, Summary{
		TotalTasks:  2,
		Profile:     ProfileDefault,
		QuickWins:   1,
		RiskyBets:   1,
		PurposeWins: 1,
		TopScore:    13,
		AvgScore:    2.5,
	}, ranked.Summary)

	assert.Len(t, ranked.Top(1), 1)
	assert.Len(t, ranked.Top(10), 2)
	assert.Empty(t, ranked.Top(0))
}

func TestRank_Empty(t *testing.T) {
	wg := newGraph(t, "general")
	ranked := Rank(wg, ProfileDefault, Context{})
	assert.Empty(t, ranked.RankedTasks)
	assert.Equal(t, 0, ranked.Summary.TopScore)
	assert.Equal(t, 0.0, ranked.Summary.AvgScore)
}

func TestParseProfile(t *testing.T) {
	for _, name := range []string{"default", "investor", "purpose", "Investor", ""} {
		_, err := ParseProfile(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseProfile("roi")
	assert.Error(t, err)
}
