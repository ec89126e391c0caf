package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/workplan/internal/models"
)

// FileLogger logs run progress to files under a log directory.
// It creates timestamped per-run log files, per-task detail logs for
// executed tasks, and maintains a latest.log symlink pointing to the most
// recent run. It is thread-safe and supports log level filtering.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	tasksDir string
	logLevel string
	mu       sync.Mutex
}

// NewFileLoggerWithDirAndLevel creates a FileLogger with a custom log directory and level.
// It creates the log directory if it doesn't exist, opens a timestamped
// run log file, and creates/updates the latest.log symlink.
func NewFileLoggerWithDirAndLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	tasksDir := filepath.Join(logDir, "tasks")
	if err := os.MkdirAll(tasksDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tasks directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		tasksDir: tasksDir,
		logLevel: normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== Workplan Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// RunFile returns the path of the current run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return allows(fl.logLevel, messageLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

func (fl *FileLogger) logLine(level, message string) {
	if !fl.shouldLog(level) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] %s\n", timestamp(), message))
}

// LogRunStart records the run id, WorkGraph and mode.
func (fl *FileLogger) LogRunStart(meta *models.RunMeta, resumed bool) {
	if meta == nil {
		return
	}
	verb := "Starting"
	if resumed {
		verb = "Resuming"
	}
	fl.logLine("info", fmt.Sprintf("%s run %s for %s (dry_run=%t, max_steps=%d)",
		verb, meta.RunID, meta.WorkGraphID, meta.DryRun, meta.MaxSteps))
}

// LogTaskStart records that a task started.
func (fl *FileLogger) LogTaskStart(task *models.Task) {
	fl.logLine("info", fmt.Sprintf("Task %s (%s): started", task.ID, task.Title))
}

// LogDryRun records the checks a dry-run would have performed.
func (fl *FileLogger) LogDryRun(task *models.Task, checks []string) {
	for _, check := range checks {
		fl.logLine("info", fmt.Sprintf("Task %s: would %s", task.ID, check))
	}
}

// LogTaskResult records a task outcome in the run log and writes a detail
// log to tasks/task-<id>.log.
func (fl *FileLogger) LogTaskResult(task *models.Task, outcome models.TaskOutcome) {
	status := "OK"
	if !outcome.OK {
		status = "FAILED"
	}
	fl.logLine("info", fmt.Sprintf("Task %s (%s): %s - %s", task.ID, task.Title, status, outcome.Reason))

	if err := fl.writeTaskLog(task, status, outcome); err != nil {
		fl.LogWarn(err.Error())
	}
}

// LogTaskSkipped records a skipped task.
func (fl *FileLogger) LogTaskSkipped(task *models.Task, reason string, unsafe bool) {
	label := "skipped"
	if unsafe {
		label = "skipped (unsafe)"
	}
	fl.logLine("info", fmt.Sprintf("Task %s (%s): %s - %s", task.ID, task.Title, label, reason))
}

// LogRunSummary records the final counts.
func (fl *FileLogger) LogRunSummary(summary models.RunSummary) {
	if !fl.shouldLog("info") {
		return
	}
	ts := timestamp()
	message := fmt.Sprintf(
		"\n[%s] === RUN SUMMARY ===\n"+
			"[%s] Run:          %s\n"+
			"[%s] Completed:    %d\n"+
			"[%s] Failed:       %d\n"+
			"[%s] Skipped:      %d (unsafe: %d)\n"+
			"[%s] Status:       %s\n"+
			"[%s] Completed at: %s\n",
		ts,
		ts, summary.RunID,
		ts, summary.TasksCompleted,
		ts, summary.TasksFailed,
		ts, summary.TasksSkipped, summary.TasksSkippedUnsafe,
		ts, summary.Status,
		ts, time.Now().Format(time.RFC3339),
	)
	fl.writeRunLog(message)
}

func (fl *FileLogger) writeTaskLog(task *models.Task, status string, outcome models.TaskOutcome) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	path := filepath.Join(fl.tasksDir, fmt.Sprintf("task-%s.log", sanitizeFileName(task.ID)))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create task log file: %w", err)
	}
	defer file.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "=== Task %s: %s ===\n", task.ID, task.Title)
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintf(&b, "Reason: %s\n\n", outcome.Reason)
	if task.Intent != "" {
		fmt.Fprintf(&b, "Intent:\n%s\n\n", task.Intent)
	}
	if outcome.Output != "" {
		fmt.Fprintf(&b, "Output:\n%s\n\n", outcome.Output)
	}
	fmt.Fprintf(&b, "Completed at: %s\n", time.Now().Format(time.RFC3339))

	if _, err := file.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to write task log: %w", err)
	}
	return nil
}

// sanitizeFileName keeps task ids usable as file names.
func sanitizeFileName(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, id)
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
