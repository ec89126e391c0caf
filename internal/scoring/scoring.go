// Package scoring ranks WorkGraph tasks with deterministic, repo-agnostic
// heuristics over effort, impact, risk and purpose.
//
// Explicit scoring fields on a task always win; missing ones are inferred
// from tags, keywords and the shape of the task. Identical input always
// yields an identical ranking.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harrison/workplan/internal/models"
)

// Profile selects the score formula.
type Profile string

const (
	// ProfileDefault balances impact against effort and risk.
	ProfileDefault Profile = "default"
	// ProfileInvestor maximizes return on effort and penalizes risk.
	ProfileInvestor Profile = "investor"
	// ProfilePurpose maximizes mission alignment and user value.
	ProfilePurpose Profile = "purpose"
)

// Profiles lists every supported profile.
var Profiles = []Profile{ProfileDefault, ProfileInvestor, ProfilePurpose}

// ParseProfile validates a profile name. The empty string maps to default.
func ParseProfile(name string) (Profile, error) {
	switch p := Profile(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return ProfileDefault, nil
	case ProfileDefault, ProfileInvestor, ProfilePurpose:
		return p, nil
	default:
		return "", fmt.Errorf("unknown profile %q: must be one of default, investor, purpose", name)
	}
}

// Context carries hints that influence inference.
type Context struct {
	// Domain overrides the WorkGraph domain when non-empty.
	Domain string
}

// ScoreResult is the score of a single task.
type ScoreResult struct {
	TaskID         string   `json:"task_id"`
	TaskTitle      string   `json:"task_title"`
	Score          int      `json:"score"`
	EffortBucket   int      `json:"effort_bucket"` // 1-5
	Impact         int      `json:"impact"`        // 0-5
	Risk           int      `json:"risk"`          // 0-5
	Purpose        int      `json:"purpose"`       // 0-5
	Rationale      string   `json:"rationale"`
	InferredFields []string `json:"inferred_fields"`
}

// Summary holds aggregate buckets over a ranking.
type Summary struct {
	TotalTasks  int     `json:"total_tasks"`
	Profile     Profile `json:"profile"`
	QuickWins   int     `json:"quick_wins"`   // score >= 5 and effort bucket <= 2
	RiskyBets   int     `json:"risky_bets"`   // risk >= 4
	PurposeWins int     `json:"purpose_wins"` // purpose >= 4
	TopScore    int     `json:"top_score"`
	AvgScore    float64 `json:"avg_score"`
}

// RankedWorkGraph is the full ranking of a WorkGraph under one profile.
type RankedWorkGraph struct {
	WorkGraphID string        `json:"workgraph_id"`
	Profile     Profile       `json:"profile"`
	RankedTasks []ScoreResult `json:"ranked_tasks"`
	Summary     Summary       `json:"summary"`
}

// ScoreTask scores a single task. domain drives keyword inference.
func ScoreTask(task *models.Task, profile Profile, domain string) ScoreResult {
	var inferred []string

	var effort int
	if task.Effort != nil {
		effort = EffortBucket(*task.Effort)
	} else {
		effort = inferEffort(task)
		inferred = append(inferred, "effort")
	}

	var impact int
	if task.Impact != nil {
		impact = *task.Impact
	} else {
		impact = inferImpact(task, domain)
		inferred = append(inferred, "impact")
	}

	var risk int
	if task.RiskScore != nil {
		risk = *task.RiskScore
	} else {
		risk = inferRisk(task)
		inferred = append(inferred, "risk")
	}

	var purpose int
	if task.Purpose != nil {
		purpose = *task.Purpose
	} else {
		purpose = inferPurpose(task)
		inferred = append(inferred, "purpose")
	}

	score := Formula(profile, impact, purpose, effort, risk)

	return ScoreResult{
		TaskID:         task.ID,
		TaskTitle:      task.Title,
		Score:          score,
		EffortBucket:   effort,
		Impact:         impact,
		Risk:           risk,
		Purpose:        purpose,
		Rationale:      rationale(profile, score, impact, effort, risk, purpose, inferred),
		InferredFields: append([]string{}, inferred...),
	}
}

// Formula applies the profile's score formula. Unknown profiles use the
// default formula.
func Formula(profile Profile, impact, purpose, effort, risk int) int {
	switch profile {
	case ProfileInvestor:
		return impact*3 + purpose - (effort*2 + risk*2)
	case ProfilePurpose:
		return purpose*3 + impact - (effort + risk)
	default:
		return impact*2 + purpose - (effort + risk)
	}
}

func rationale(profile Profile, score, impact, effort, risk, purpose int, inferred []string) string {
	if profile == "" {
		profile = ProfileDefault
	}
	parts := []string{
		fmt.Sprintf("impact: %s (%d)", factorLabels[impact], impact),
		fmt.Sprintf("effort: %s (%d)", effortLabels[effort], effort),
		fmt.Sprintf("risk: %s (%d)", factorLabels[risk], risk),
		fmt.Sprintf("purpose: %s (%d)", factorLabels[purpose], purpose),
		fmt.Sprintf("%s_score: %d", profile, score),
	}
	if len(inferred) > 0 {
		parts = append(parts, fmt.Sprintf("(inferred: %s)", strings.Join(inferred, ", ")))
	}
	return strings.Join(parts, "; ")
}

// Rank scores every task in phase order and sorts by score descending.
// Ties keep phase order; callers that need a total order must break them.
func Rank(wg *models.WorkGraph, profile Profile, ctx Context) *RankedWorkGraph {
	domain := ctx.Domain
	if domain == "" {
		domain = wg.Domain
	}

	tasks := wg.Tasks()
	ranked := make([]ScoreResult, 0, len(tasks))
	for _, task := range tasks {
		ranked = append(ranked, ScoreTask(task, profile, domain))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return &RankedWorkGraph{
		WorkGraphID: wg.ID,
		Profile:     profile,
		RankedTasks: ranked,
		Summary:     summarize(ranked, profile),
	}
}

func summarize(ranked []ScoreResult, profile Profile) Summary {
	s := Summary{TotalTasks: len(ranked), Profile: profile}
	if len(ranked) == 0 {
		return s
	}

	total := 0
	for _, r := range ranked {
		total += r.Score
		if r.Score >= 5 && r.EffortBucket <= 2 {
			s.QuickWins++
		}
		if r.Risk >= 4 {
			s.RiskyBets++
		}
		if r.Purpose >= 4 {
			s.PurposeWins++
		}
	}
	s.TopScore = ranked[0].Score
	s.AvgScore = float64(total) / float64(len(ranked))
	return s
}

// Top returns the first n ranked tasks.
func (r *RankedWorkGraph) Top(n int) []ScoreResult {
	if n <= 0 {
		return nil
	}
	if n > len(r.RankedTasks) {
		n = len(r.RankedTasks)
	}
	return append([]ScoreResult(nil), r.RankedTasks[:n]...)
}
