package executor

import (
	"sort"

	"github.com/harrison/workplan/internal/models"
)

// DataFlowGraph is the execution-order graph: task B depends on task A when
// one of B's inputs is named by one of A's outputs. It is independent of the
// explicit depends_on lists used by selection.
type DataFlowGraph struct {
	tasks      []*models.Task
	producers  map[string]string   // output name -> producing task id
	deps       map[string][]string // task id -> producer task ids, sorted
	unresolved map[string][]string // task id -> inputs no task produces
}

// BuildDataFlowGraph indexes wg's tasks by the artifacts they produce.
// When several tasks produce the same output the last one in phase order
// wins. A task never depends on itself.
func BuildDataFlowGraph(wg *models.WorkGraph) *DataFlowGraph {
	g := &DataFlowGraph{
		tasks:      wg.Tasks(),
		producers:  make(map[string]string),
		deps:       make(map[string][]string),
		unresolved: make(map[string][]string),
	}

	for _, task := range g.tasks {
		for _, out := range task.Outputs {
			g.producers[out] = task.ID
		}
	}

	for _, task := range g.tasks {
		seen := make(map[string]bool)
		for _, in := range task.Inputs {
			producer, ok := g.producers[in]
			if !ok {
				g.unresolved[task.ID] = append(g.unresolved[task.ID], in)
				continue
			}
			if producer == task.ID || seen[producer] {
				continue
			}
			seen[producer] = true
			g.deps[task.ID] = append(g.deps[task.ID], producer)
		}
		sort.Strings(g.deps[task.ID])
	}

	return g
}

// Dependencies returns the ids of the tasks whose outputs taskID consumes.
func (g *DataFlowGraph) Dependencies(taskID string) []string {
	return append([]string(nil), g.deps[taskID]...)
}

// Producer returns the id of the task that produces output.
func (g *DataFlowGraph) Producer(output string) (string, bool) {
	id, ok := g.producers[output]
	return id, ok
}

// UnresolvedInputs maps task ids to inputs that no task in the graph
// produces. Such inputs are expected to exist before the run and never
// block scheduling.
func (g *DataFlowGraph) UnresolvedInputs() map[string][]string {
	out := make(map[string][]string, len(g.unresolved))
	for id, inputs := range g.unresolved {
		out[id] = append([]string(nil), inputs...)
	}
	return out
}

// Frontier returns the tasks that are not yet terminal and whose data-flow
// dependencies have all completed, sorted by task id.
func (g *DataFlowGraph) Frontier(states map[string]models.TaskState) []*models.Task {
	var frontier []*models.Task
	for _, task := range g.tasks {
		if isTerminal(states[task.ID]) {
			continue
		}
		ready := true
		for _, dep := range g.deps[task.ID] {
			if states[dep] != models.TaskCompleted {
				ready = false
				break
			}
		}
		if ready {
			frontier = append(frontier, task)
		}
	}
	sort.Slice(frontier, func(i, j int) bool {
		return frontier[i].ID < frontier[j].ID
	})
	return frontier
}

// HasCycle reports whether the data-flow graph contains a cycle. Tasks on a
// cycle can never enter the frontier.
func (g *DataFlowGraph) HasCycle() bool {
	const (
		white = 0 // not visited
		gray  = 1 // visiting
		black = 2 // visited
	)

	colors := make(map[string]int, len(g.tasks))
	var dfs func(string) bool
	dfs = func(node string) bool {
		colors[node] = gray
		for _, dep := range g.deps[node] {
			if colors[dep] == gray {
				return true
			}
			if colors[dep] == white && dfs(dep) {
				return true
			}
		}
		colors[node] = black
		return false
	}

	for _, task := range g.tasks {
		if colors[task.ID] == white && dfs(task.ID) {
			return true
		}
	}
	return false
}

func isTerminal(s models.TaskState) bool {
	switch s {
	case models.TaskCompleted, models.TaskFailed, models.TaskSkipped, models.TaskSkippedUnsafe:
		return true
	}
	return false
}
