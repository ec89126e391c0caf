package bookkeeping

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/harrison/workplan/internal/models"
	"github.com/harrison/workplan/internal/selection"
)

// MaterializeResult counts records touched by one materialization.
type MaterializeResult struct {
	TrackID string   `json:"track_id"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Items   []string `json:"items"` // "created track:X", "updated task:Y", ...
}

// Materialize upserts the track, the phases that contain selected tasks and
// the selected tasks themselves. Task priority is the position in the
// selection's ordered task list. All writes happen in one transaction.
func (s *Store) Materialize(ctx context.Context, wg *models.WorkGraph, sel *selection.SelectionResult) (*MaterializeResult, error) {
	if wg == nil || sel == nil {
		return nil, fmt.Errorf("materialize: workgraph and selection are required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res := &MaterializeResult{TrackID: trackID(wg)}
	now := s.now().UTC()

	created, err := upsert(ctx, tx, "tracks", "track_id", res.TrackID,
		`INSERT INTO tracks (track_id, name, description, workgraph_id, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		[]any{res.TrackID, trackName(wg), wg.Goal, wg.ID, wg.Domain + "," + wg.Profile, now, now},
		`UPDATE tracks SET name = ?, description = ?, workgraph_id = ?, updated_at = ? WHERE track_id = ?`,
		[]any{trackName(wg), wg.Goal, wg.ID, now, res.TrackID},
	)
	if err != nil {
		return nil, err
	}
	res.record(created, "track", res.TrackID)

	phasesDone := make(map[string]bool)
	for priority, taskID := range sel.OrderedTaskIDs {
		task, ok := sel.Tasks[taskID]
		if !ok {
			continue
		}
		phase, ok := wg.PhaseOf(taskID)
		if !ok {
			continue
		}

		if !phasesDone[phase.ID] {
			phasesDone[phase.ID] = true
			created, err := upsert(ctx, tx, "phases", "phase_id", phase.ID,
				`INSERT INTO phases (phase_id, track_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
				[]any{phase.ID, res.TrackID, phase.Name, now, now},
				`UPDATE phases SET track_id = ?, name = ?, updated_at = ? WHERE phase_id = ?`,
				[]any{res.TrackID, phase.Name, now, phase.ID},
			)
			if err != nil {
				return nil, err
			}
			res.record(created, "phase", phase.ID)
		}

		desc := describeTask(task)
		created, err := upsert(ctx, tx, "tasks", "task_id", task.ID,
			`INSERT INTO tasks (task_id, phase_id, name, description, priority, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			[]any{task.ID, phase.ID, task.Title, desc, priority, now, now},
			`UPDATE tasks SET phase_id = ?, name = ?, description = ?, priority = ?, updated_at = ? WHERE task_id = ?`,
			[]any{phase.ID, task.Title, desc, priority, now, task.ID},
		)
		if err != nil {
			return nil, err
		}
		res.record(created, "task", task.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit materialization: %w", err)
	}
	return res, nil
}

func (r *MaterializeResult) record(created bool, kind, id string) {
	if created {
		r.Created++
		r.Items = append(r.Items, fmt.Sprintf("created %s:%s", kind, id))
		return
	}
	r.Updated++
	r.Items = append(r.Items, fmt.Sprintf("updated %s:%s", kind, id))
}

// upsert inserts when no row with key exists, otherwise updates. It reports
// whether a row was created.
func upsert(ctx context.Context, tx *sql.Tx, table, keyCol, key, insertSQL string, insertArgs []any, updateSQL string, updateArgs []any) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)", table, keyCol)
	if err := tx.QueryRowContext(ctx, query, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup %s %s: %w", table, key, err)
	}

	if exists {
		if _, err := tx.ExecContext(ctx, updateSQL, updateArgs...); err != nil {
			return false, fmt.Errorf("update %s %s: %w", table, key, err)
		}
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, insertSQL, insertArgs...); err != nil {
		return false, fmt.Errorf("insert %s %s: %w", table, key, err)
	}
	return true, nil
}

func trackID(wg *models.WorkGraph) string {
	if id := wg.Track["id"]; id != "" {
		return id
	}
	return wg.ID
}

func trackName(wg *models.WorkGraph) string {
	if name := wg.Track["name"]; name != "" {
		return name
	}
	return wg.Goal
}

// describeTask renders the task's intent, checks and artifacts as markdown.
func describeTask(t *models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Intent**: %s\n\n**Definition of Done**:\n", t.Intent)
	writeChecks(&b, t.DefinitionOfDone)
	if len(t.Verification) > 0 {
		b.WriteString("\n**Verification**:\n")
		writeChecks(&b, t.Verification)
	}
	if len(t.Inputs) > 0 {
		fmt.Fprintf(&b, "\n**Inputs**: %s\n", strings.Join(t.Inputs, ", "))
	}
	if len(t.Outputs) > 0 {
		fmt.Fprintf(&b, "\n**Outputs**: %s\n", strings.Join(t.Outputs, ", "))
	}
	if level := t.RiskLevel(); level != "" {
		fmt.Fprintf(&b, "\n**Risk**: %s\n", level)
	}
	return b.String()
}

func writeChecks(b *strings.Builder, dods []models.DefinitionOfDone) {
	for _, dod := range dods {
		switch d := dod.(type) {
		case models.CommandCheck:
			fmt.Fprintf(b, "- Run: `%s` (expect: %s)\n", d.Cmd, d.Expect)
		case models.FileCheck:
			fmt.Fprintf(b, "- File: `%s` (expect: %s)\n", d.Path, d.Expect)
		}
	}
}
