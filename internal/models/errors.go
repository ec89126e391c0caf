package models

import (
	"fmt"
	"strings"
)

// SchemaError reports a structural violation in a WorkGraph, Phase, Task or
// DefinitionOfDone. It is returned at construction time; no partially built
// value is ever returned alongside it.
type SchemaError struct {
	TaskID  string // Offending task (empty for graph or phase level errors)
	Field   string // Offending field path, e.g. "definition_of_done[1].cmd"
	Message string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	var sb strings.Builder
	sb.WriteString("schema error")
	if e.TaskID != "" {
		sb.WriteString(fmt.Sprintf(": task %s", e.TaskID))
	}
	if e.Field != "" {
		sb.WriteString(fmt.Sprintf(": field %s", e.Field))
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	return sb.String()
}

// ScopeSchemaError returns a copy of err scoped to the given task and field
// prefix. Errors that are not SchemaErrors are wrapped into one.
func ScopeSchemaError(err error, taskID, prefix string) *SchemaError {
	se, ok := err.(*SchemaError)
	if !ok {
		return &SchemaError{TaskID: taskID, Field: prefix, Message: err.Error()}
	}
	out := *se
	if out.TaskID == "" {
		out.TaskID = taskID
	}
	switch {
	case prefix != "" && out.Field != "":
		out.Field = prefix + "." + out.Field
	case prefix != "":
		out.Field = prefix
	}
	return &out
}
