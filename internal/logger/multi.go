package logger

import "github.com/harrison/workplan/internal/models"

// RunLogger is the set of run notifications shared by every logger here.
type RunLogger interface {
	LogRunStart(meta *models.RunMeta, resumed bool)
	LogTaskStart(task *models.Task)
	LogDryRun(task *models.Task, checks []string)
	LogTaskResult(task *models.Task, outcome models.TaskOutcome)
	LogTaskSkipped(task *models.Task, reason string, unsafe bool)
	LogRunSummary(summary models.RunSummary)
}

// MultiLogger fans each notification out to several loggers in order.
type MultiLogger struct {
	loggers []RunLogger
}

// NewMultiLogger drops nil entries.
func NewMultiLogger(loggers ...RunLogger) *MultiLogger {
	ml := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			ml.loggers = append(ml.loggers, l)
		}
	}
	return ml
}

func (m *MultiLogger) LogRunStart(meta *models.RunMeta, resumed bool) {
	for _, l := range m.loggers {
		l.LogRunStart(meta, resumed)
	}
}

func (m *MultiLogger) LogTaskStart(task *models.Task) {
	for _, l := range m.loggers {
		l.LogTaskStart(task)
	}
}

func (m *MultiLogger) LogDryRun(task *models.Task, checks []string) {
	for _, l := range m.loggers {
		l.LogDryRun(task, checks)
	}
}

func (m *MultiLogger) LogTaskResult(task *models.Task, outcome models.TaskOutcome) {
	for _, l := range m.loggers {
		l.LogTaskResult(task, outcome)
	}
}

func (m *MultiLogger) LogTaskSkipped(task *models.Task, reason string, unsafe bool) {
	for _, l := range m.loggers {
		l.LogTaskSkipped(task, reason, unsafe)
	}
}

func (m *MultiLogger) LogRunSummary(summary models.RunSummary) {
	for _, l := range m.loggers {
		l.LogRunSummary(summary)
	}
}
