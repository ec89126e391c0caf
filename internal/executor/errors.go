package executor

import (
	"fmt"
)

// ResumeConflictError is returned when a run is resumed against a WorkGraph
// whose canonical hash differs from the one recorded at run start.
type ResumeConflictError struct {
	WorkGraphID string
	RunID       string
	StoredHash  string
	CurrentHash string
}

// Error implements the error interface for ResumeConflictError.
func (e *ResumeConflictError) Error() string {
	return fmt.Sprintf("workgraph %s has changed since run %s started (stored hash %s, current hash %s); start a new run instead",
		e.WorkGraphID, e.RunID, shortHash(e.StoredHash), shortHash(e.CurrentHash))
}

// RunNotFoundError is returned when resuming a run id that has no record.
type RunNotFoundError struct {
	WorkGraphID string
	RunID       string
	Err         error // Underlying storage error
}

// Error implements the error interface for RunNotFoundError.
func (e *RunNotFoundError) Error() string {
	return fmt.Sprintf("run not found: %s (workgraph %s)", e.RunID, e.WorkGraphID)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *RunNotFoundError) Unwrap() error {
	return e.Err
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
