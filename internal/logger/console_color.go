package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/workplan/internal/models"
)

// colorScheme defines consistent colors for summary counters.
// Green: completed, Red: failed, Yellow: skipped, Cyan: labels.
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
}

func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
	}
}

// formatCounts renders "completed: N, failed: N, skipped: N (unsafe: N)".
// Zero counts keep the label color only so non-zero values stand out.
func formatCounts(s models.RunSummary, useColor bool) string {
	scheme := newColorScheme()
	metric := func(label string, value int, c *color.Color) string {
		if !useColor {
			return fmt.Sprintf("%s: %d", label, value)
		}
		if value == 0 {
			return fmt.Sprintf("%s: %d", scheme.label.Sprint(label), value)
		}
		return fmt.Sprintf("%s: %s", c.Sprint(label), c.Sprintf("%d", value))
	}

	parts := []string{
		metric("completed", s.TasksCompleted, scheme.success),
		metric("failed", s.TasksFailed, scheme.fail),
		metric("skipped", s.TasksSkipped, scheme.warn),
	}
	out := strings.Join(parts, ", ")
	if s.TasksSkippedUnsafe > 0 {
		out += fmt.Sprintf(" (%s)", metric("unsafe", s.TasksSkippedUnsafe, scheme.warn))
	}
	return out
}
