package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWarningDisplay(t *testing.T) {
	tests := []struct {
		name    string
		warning Warning
		want    string
	}{
		{
			name:    "title only",
			warning: Warning{Title: "data-flow cycle"},
			want:    "⚠  Warning: data-flow cycle\n",
		},
		{
			name: "all fields",
			warning: Warning{
				Title:      "unresolved inputs",
				Message:    "no task produces these inputs",
				Items:      []string{"TASK-002: seed.csv", "TASK-004: creds.json"},
				Suggestion: "add a producing task or provide the files",
			},
			want: "⚠  Warning: unresolved inputs\n" +
				"    no task produces these inputs\n" +
				"      1. TASK-002: seed.csv\n" +
				"      2. TASK-004: creds.json\n" +
				"    Suggestion: add a producing task or provide the files\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.warning.Display(&buf, false)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWarningDisplay_Color(t *testing.T) {
	var buf bytes.Buffer
	Warning{Title: "colored"}.Display(&buf, true)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\x1b[33m"), "got %q", out)
	assert.Contains(t, out, "Warning: colored")
}

func TestDisplayAll(t *testing.T) {
	var buf bytes.Buffer
	DisplayAll(&buf, []Warning{{Title: "one"}, {Title: "two"}}, false)
	assert.Equal(t, "⚠  Warning: one\n⚠  Warning: two\n", buf.String())
}
