package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/harrison/workplan/internal/models"
)

// Bounds on what a TASK_RESULT event records.
const (
	MaxReasonBytes = 500
	MaxOutputBytes = 2000
)

// DefaultCommandTimeout applies when RunOptions.CommandTimeout is zero.
const DefaultCommandTimeout = 60 * time.Second

// dodResult is the outcome of one Definition-of-Done check.
type dodResult struct {
	ok     bool
	reason string
	output string
}

// dodChecker evaluates Definition-of-Done entries in execute mode.
type dodChecker struct {
	commands CommandRunner
	timeout  time.Duration
	workDir  string
}

// check evaluates a single DoD entry.
//
// Command checks treat every expect value as "exit 0". File checks only
// test existence, whatever expect says.
func (c *dodChecker) check(ctx context.Context, dod models.DefinitionOfDone) dodResult {
	switch d := dod.(type) {
	case models.CommandCheck:
		return c.checkCommand(ctx, d)
	case models.FileCheck:
		return c.checkFile(d)
	default:
		return dodResult{reason: fmt.Sprintf("unsupported definition of done kind %q", dod.Kind())}
	}
}

func (c *dodChecker) checkCommand(ctx context.Context, d models.CommandCheck) dodResult {
	timeout := c.timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := c.commands.Run(cmdCtx, d.Cmd)
	switch {
	case err != nil:
		return dodResult{reason: fmt.Sprintf("execution error: %v", err)}
	case res.TimedOut:
		return dodResult{reason: fmt.Sprintf("command timeout (%s)", timeout), output: res.Stderr}
	case res.ExitCode != 0:
		output := res.Stderr
		if output == "" {
			output = res.Stdout
		}
		return dodResult{reason: fmt.Sprintf("exit %d: %s", res.ExitCode, d.Cmd), output: output}
	default:
		return dodResult{ok: true, reason: "exit 0", output: res.Stdout}
	}
}

func (c *dodChecker) checkFile(d models.FileCheck) dodResult {
	path := d.Path
	if !filepath.IsAbs(path) && c.workDir != "" {
		path = filepath.Join(c.workDir, path)
	}
	if _, err := os.Stat(path); err != nil {
		return dodResult{reason: fmt.Sprintf("file not found: %s", d.Path)}
	}
	return dodResult{ok: true, reason: "file exists"}
}

// describeDoD renders a DoD entry for dry-run previews.
func describeDoD(dod models.DefinitionOfDone) string {
	switch d := dod.(type) {
	case models.CommandCheck:
		return fmt.Sprintf("$ %s (expect: %s)", d.Cmd, d.Expect)
	case models.FileCheck:
		return fmt.Sprintf("check file %s (expect: %s)", d.Path, d.Expect)
	default:
		return string(dod.Kind())
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.ToValidUTF8(s[:cut], "")
}
