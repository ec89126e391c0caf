package scoring

import (
	"strings"

	"github.com/harrison/workplan/internal/models"
)

// effortThreshold maps an upper bound on the effort midpoint (minutes) to a
// bucket. Anything above the last bound is bucket 5.
type effortThreshold struct {
	maxMinutes float64
	bucket     int
}

var effortThresholds = [...]effortThreshold{
	{5, 1},
	{15, 2},
	{60, 3},
	{240, 4},
}

// Tag tables. Each is only read through hasAny, never mutated.
var (
	heavyEffortTags = [...]string{"build", "test", "integration"}
	lightEffortTags = [...]string{"docs", "cleanup", "trivial"}

	highImpactTags   = [...]string{"build", "fix", "blocker", "gate", "ci", "test", "critical"}
	mediumImpactTags = [...]string{"feature", "enhancement", "improvement"}
	lowImpactTags    = [...]string{"cleanup", "refactor", "docs", "trivial", "formatting"}

	blockerKeywords = [...]string{"blocker", "blocking", "critical", "urgent"}
	defectKeywords  = [...]string{"fix", "bug", "error", "failure"}

	highRiskTags = [...]string{"unsafe", "experimental", "migration", "destructive"}
	lowRiskTags  = [...]string{"readonly", "docs", "analysis", "trivial"}

	highPurposeTags   = [...]string{"docs", "user-facing", "accessibility", "ux", "onboarding", "tutorial", "examples"}
	mediumPurposeTags = [...]string{"feature", "enhancement", "api", "cli"}
	lowPurposeTags    = [...]string{"build", "internal", "cleanup", "refactor", "tooling"}

	userFacingKeywords = [...]string{"user", "customer", "documentation", "guide", "tutorial"}
)

// Labels used in rationale strings, indexed by factor value.
var (
	effortLabels = [...]string{"", "trivial", "quick", "medium", "long", "very long"}
	factorLabels = [...]string{"none", "minimal", "low", "medium", "high", "critical"}
)

// IssuesDomain enables blocker/defect keyword scanning for impact.
const IssuesDomain = "issues"

// EffortBucket converts an explicit effort range to a bucket 1..5 using the
// range midpoint.
func EffortBucket(e models.Effort) int {
	mid := e.Midpoint()
	for _, th := range effortThresholds {
		if mid <= th.maxMinutes {
			return th.bucket
		}
	}
	return 5
}

func inferEffort(task *models.Task) int {
	commands := models.CountCommands(task.DefinitionOfDone) + models.CountCommands(task.Verification)

	var effort int
	switch {
	case commands <= 1:
		effort = 2
	case commands <= 3:
		effort = 3
	case commands <= 6:
		effort = 4
	default:
		effort = 5
	}

	// Each adjustment clamps on its own, so order matters at the bounds.
	if !task.SafeToExecute {
		effort = min(5, effort+1)
	}
	if task.HasTag(heavyEffortTags[:]...) {
		effort = min(5, effort+1)
	}
	if task.HasTag(lightEffortTags[:]...) {
		effort = max(1, effort-1)
	}
	return effort
}

func inferImpact(task *models.Task, domain string) int {
	impact := 2

	if domain == IssuesDomain {
		text := strings.ToLower(task.Title + " " + task.Intent)
		switch {
		case containsAny(text, blockerKeywords[:]):
			impact = 5
		case containsAny(text, defectKeywords[:]):
			impact = 4
		}
	}

	switch {
	case task.HasTag(highImpactTags[:]...):
		impact = max(impact, 4)
	case task.HasTag(mediumImpactTags[:]...):
		impact = max(impact, 3)
	case task.HasTag(lowImpactTags[:]...):
		impact = min(impact, 2)
	}

	if len(task.Outputs) > 0 {
		impact = min(5, impact+1)
	}
	return impact
}

func inferRisk(task *models.Task) int {
	risk := 2
	if !task.SafeToExecute {
		risk = 4
	}

	switch n := len(task.Outputs); {
	case n > 5:
		risk = min(5, risk+2)
	case n > 2:
		risk = min(5, risk+1)
	}

	switch {
	case task.HasTag(highRiskTags[:]...):
		risk = 5
	case task.HasTag(lowRiskTags[:]...):
		risk = max(0, risk-2)
	}

	switch task.RiskLevel() {
	case "high":
		risk = max(risk, 4)
	case "low":
		risk = min(risk, 1)
	}
	return risk
}

func inferPurpose(task *models.Task) int {
	purpose := 2

	switch {
	case task.HasTag(highPurposeTags[:]...):
		purpose = 5
	case task.HasTag(mediumPurposeTags[:]...):
		purpose = 3
	case task.HasTag(lowPurposeTags[:]...):
		purpose = 1
	}

	text := strings.ToLower(task.Title + " " + task.Intent)
	if containsAny(text, userFacingKeywords[:]) {
		purpose = max(purpose, 4)
	}
	return purpose
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
