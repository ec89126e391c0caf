// Package logger provides logging implementations for workplan runs.
//
// ConsoleLogger and FileLogger both report run progress (run start, task
// transitions, dry-run plans and the final summary) with [HH:MM:SS]
// timestamps and level filtering. Implementations are safe for concurrent use.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/workplan/internal/models"
	"github.com/mattn/go-isatty"
)

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// It supports log level filtering to control message verbosity.
// Color output is automatically enabled for terminal output.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	progress    *ProgressBar
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// SetTotal enables a progress line after each finished task.
func (cl *ConsoleLogger) SetTotal(total int) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	if total <= 0 {
		cl.progress = nil
		return
	}
	cl.progress = NewProgressBar(total, 20, cl.colorOutput)
}

// isTerminal reports whether w is a TTY that should receive ANSI colors.
// NO_COLOR (via fatih/color) disables color even on a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return allows(cl.logLevel, messageLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = cl.formatWithColor(ts, level, message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}
	cl.writer.Write([]byte(formatted))
}

// formatWithColor formats a log message with ANSI color codes.
func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var coloredLevel string

	switch strings.ToUpper(level) {
	case "TRACE":
		coloredLevel = color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		coloredLevel = color.New(color.FgCyan).Sprint(level)
	case "INFO":
		coloredLevel = color.New(color.FgBlue).Sprint(level)
	case "WARN":
		coloredLevel = color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		coloredLevel = color.New(color.FgRed).Sprint(level)
	default:
		coloredLevel = level
	}

	return fmt.Sprintf("[%s] [%s] %s\n", ts, coloredLevel, message)
}

// write emits pre-formatted lines at the given level.
func (cl *ConsoleLogger) write(level string, lines ...string) {
	if cl.writer == nil || !cl.shouldLog(level) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var b strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&b, "[%s] %s\n", ts, line)
	}
	cl.writer.Write([]byte(b.String()))
}

func (cl *ConsoleLogger) paint(c *color.Color, s string) string {
	if !cl.colorOutput {
		return s
	}
	return c.Sprint(s)
}

// LogRunStart logs the start or resumption of a run at INFO level.
// Format: "[HH:MM:SS] Starting run <id> for <workgraph> (dry-run)"
func (cl *ConsoleLogger) LogRunStart(meta *models.RunMeta, resumed bool) {
	if meta == nil {
		return
	}
	verb := "Starting"
	if resumed {
		verb = "Resuming"
	}
	mode := "execute"
	if meta.DryRun {
		mode = "dry-run"
	}
	runID := cl.paint(color.New(color.Bold), meta.RunID)
	cl.write("info", fmt.Sprintf("%s run %s for %s (%s)", verb, runID, meta.WorkGraphID, mode))
}

// LogTaskStart logs that a task entered the running state at INFO level.
func (cl *ConsoleLogger) LogTaskStart(task *models.Task) {
	cl.write("info", fmt.Sprintf("Task %s (%s): started", task.ID, task.Title))
}

// LogDryRun lists the checks a dry-run would perform for a task.
func (cl *ConsoleLogger) LogDryRun(task *models.Task, checks []string) {
	lines := make([]string, 0, len(checks))
	for _, check := range checks {
		lines = append(lines, "  would "+check)
	}
	cl.write("info", lines...)
}

// LogTaskResult logs a task's outcome at INFO level and its captured output at DEBUG.
// Format: "[HH:MM:SS] Task <id> (<title>): OK|FAILED - <reason>"
func (cl *ConsoleLogger) LogTaskResult(task *models.Task, outcome models.TaskOutcome) {
	status := cl.paint(color.New(color.FgGreen), "OK")
	level := "info"
	if !outcome.OK {
		status = cl.paint(color.New(color.FgRed), "FAILED")
		level = "error"
	}
	cl.write(level, fmt.Sprintf("Task %s (%s): %s - %s", task.ID, task.Title, status, outcome.Reason))

	if outcome.Output != "" {
		cl.write("debug", "  output: "+strings.TrimRight(outcome.Output, "\n"))
	}
	cl.advance()
}

// LogTaskSkipped logs a filtered task at INFO level and an unsafe task at WARN.
func (cl *ConsoleLogger) LogTaskSkipped(task *models.Task, reason string, unsafe bool) {
	if unsafe {
		label := cl.paint(color.New(color.FgYellow), "SKIPPED (unsafe)")
		cl.write("warn", fmt.Sprintf("Task %s (%s): %s - %s", task.ID, task.Title, label, reason))
	} else {
		cl.write("info", fmt.Sprintf("Task %s (%s): skipped - %s", task.ID, task.Title, reason))
	}
	cl.advance()
}

func (cl *ConsoleLogger) advance() {
	cl.mutex.Lock()
	pb := cl.progress
	cl.mutex.Unlock()
	if pb == nil {
		return
	}
	pb.Increment()
	cl.write("info", "Progress: "+pb.Render())
}

// LogRunSummary logs the final counts and status at INFO level.
func (cl *ConsoleLogger) LogRunSummary(summary models.RunSummary) {
	header := cl.paint(color.New(color.Bold), "=== Run Summary ===")
	lines := []string{
		header,
		fmt.Sprintf("Run: %s", summary.RunID),
		formatCounts(summary, cl.colorOutput),
		fmt.Sprintf("Status: %s", cl.paintStatus(summary.Status)),
	}
	if summary.DryRun {
		lines = append(lines, "Mode: dry-run (no commands executed)")
	}
	cl.write("info", lines...)
}

func (cl *ConsoleLogger) paintStatus(status models.RunStatus) string {
	switch status {
	case models.RunCompleted:
		return cl.paint(color.New(color.FgGreen), string(status))
	case models.RunFailed:
		return cl.paint(color.New(color.FgRed), string(status))
	case models.RunStopped:
		return cl.paint(color.New(color.FgYellow), string(status))
	default:
		return string(status)
	}
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// NoOpLogger is a Logger implementation that discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogRunStart(meta *models.RunMeta, resumed bool)               {}
func (n *NoOpLogger) LogTaskStart(task *models.Task)                               {}
func (n *NoOpLogger) LogDryRun(task *models.Task, checks []string)                 {}
func (n *NoOpLogger) LogTaskResult(task *models.Task, outcome models.TaskOutcome)  {}
func (n *NoOpLogger) LogTaskSkipped(task *models.Task, reason string, unsafe bool) {}
func (n *NoOpLogger) LogRunSummary(summary models.RunSummary)                      {}
