// Package selection picks the top-N scored tasks of a WorkGraph together
// with the transitive closure of their explicit depends_on edges, and orders
// the result dependencies-first.
package selection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harrison/workplan/internal/models"
	"github.com/harrison/workplan/internal/scoring"
)

// SelectionResult is the outcome of Select.
type SelectionResult struct {
	TopTaskIDs     []string                `json:"top_task_ids"`     // Ranking order
	ClosureTaskIDs []string                `json:"closure_task_ids"` // Dependencies only, topological order
	OrderedTaskIDs []string                `json:"ordered_task_ids"` // Closure first, then top tasks
	Tasks          map[string]*models.Task `json:"-"`                // Every task in OrderedTaskIDs
	Ranked         []scoring.ScoreResult   `json:"ranked_tasks"`     // Full ranking, score desc
	Warnings       []string                `json:"warnings"`
}

// Select ranks wg under profile and returns the first topN tasks ordered by
// (score desc, task id asc) plus every task they transitively depend on.
//
// depends_on ids that match no task are dropped silently. A cycle among the
// dependency-only tasks never fails selection: the unresolved ids are
// appended in ascending order and a warning is recorded.
func Select(wg *models.WorkGraph, profile scoring.Profile, topN int, ctx scoring.Context) *SelectionResult {
	ranked := scoring.Rank(wg, profile, ctx)
	tasks := wg.TaskMap()

	ordered := append([]scoring.ScoreResult(nil), ranked.RankedTasks...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].TaskID < ordered[j].TaskID
	})
	if topN < 0 {
		topN = 0
	}
	if topN > len(ordered) {
		topN = len(ordered)
	}

	top := make([]string, 0, topN)
	isTop := make(map[string]bool, topN)
	for _, r := range ordered[:topN] {
		top = append(top, r.TaskID)
		isTop[r.TaskID] = true
	}

	var closureOnly []string
	for _, id := range dependencyClosure(top, tasks) {
		if !isTop[id] {
			closureOnly = append(closureOnly, id)
		}
	}

	deps, remaining := topoSort(closureOnly, tasks)
	var warnings []string
	if len(remaining) > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"dependency cycle detected involving tasks: %s; using task id order for them",
			strings.Join(remaining, ", ")))
		deps = append(deps, remaining...)
	}

	orderedIDs := make([]string, 0, len(deps)+len(top))
	orderedIDs = append(orderedIDs, deps...)
	orderedIDs = append(orderedIDs, top...)

	selected := make(map[string]*models.Task, len(orderedIDs))
	for _, id := range orderedIDs {
		selected[id] = tasks[id]
	}

	return &SelectionResult{
		TopTaskIDs:     top,
		ClosureTaskIDs: append([]string{}, deps...),
		OrderedTaskIDs: orderedIDs,
		Tasks:          selected,
		Ranked:         ranked.RankedTasks,
		Warnings:       warnings,
	}
}

// dependencyClosure walks depends_on breadth-first from seeds and returns
// every reachable known task id, seeds included, in sorted order.
func dependencyClosure(seeds []string, tasks map[string]*models.Task) []string {
	seen := make(map[string]bool)
	queue := append([]string(nil), seeds...)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		task, ok := tasks[id]
		if !ok {
			continue
		}
		seen[id] = true
		for _, dep := range task.DependsOn {
			if !seen[dep] {
				queue = append(queue, dep)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// topoSort orders ids with Kahn's algorithm over depends_on edges that stay
// inside ids. The work queue is kept sorted ascending so the result depends
// only on the graph. Ids left over by a cycle are returned sorted in
// remaining.
func topoSort(ids []string, tasks map[string]*models.Task) (ordered, remaining []string) {
	inSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		inSet[id] = true
	}

	inDegree := make(map[string]int, len(ids))
	dependents := make(map[string][]string, len(ids)) // prerequisite -> dependents
	for _, id := range ids {
		inDegree[id] = 0
		for _, dep := range uniq(tasks[id].DependsOn) {
			if !inSet[dep] {
				continue
			}
			dependents[dep] = append(dependents[dep], id)
			inDegree[id]++
		}
	}

	var queue []string
	for _, id := range ids {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	ordered = make([]string, 0, len(ids))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		ordered = append(ordered, current)

		next := append([]string(nil), dependents[current]...)
		sort.Strings(next)
		for _, id := range next {
			inDegree[id]--
			if inDegree[id] == 0 {
				queue = insertSorted(queue, id)
			}
		}
	}

	if len(ordered) == len(ids) {
		return ordered, nil
	}
	done := make(map[string]bool, len(ordered))
	for _, id := range ordered {
		done[id] = true
	}
	for _, id := range ids {
		if !done[id] {
			remaining = append(remaining, id)
		}
	}
	sort.Strings(remaining)
	return ordered, remaining
}

func insertSorted(queue []string, id string) []string {
	i := sort.SearchStrings(queue, id)
	queue = append(queue, "")
	copy(queue[i+1:], queue[i:])
	queue[i] = id
	return queue
}

func uniq(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// FormatSummary renders a short human-readable report of sel. Lists longer
// than maxIDs are truncated with a "+N more" suffix.
func FormatSummary(sel *SelectionResult, profile scoring.Profile, maxIDs int) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Top tasks selected (%s profile): %s", profile, joinIDs(sel.TopTaskIDs, maxIDs)))
	if len(sel.ClosureTaskIDs) > 0 {
		lines = append(lines, "Dependencies added: "+joinIDs(sel.ClosureTaskIDs, maxIDs))
	} else {
		lines = append(lines, "Dependencies added: (none)")
	}
	lines = append(lines, fmt.Sprintf("Materialized total: %d tasks", len(sel.OrderedTaskIDs)))

	if len(sel.Warnings) > 0 {
		lines = append(lines, "", "Warnings:")
		for _, w := range sel.Warnings {
			lines = append(lines, "  - "+w)
		}
	}
	return strings.Join(lines, "\n")
}

func joinIDs(ids []string, max int) string {
	if max <= 0 || len(ids) <= max {
		return strings.Join(ids, ", ")
	}
	return fmt.Sprintf("%s +%d more", strings.Join(ids[:max], ", "), len(ids)-max)
}
