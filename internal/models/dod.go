package models

import (
	"fmt"
	"strings"
)

// DoDKind identifies which variant a DefinitionOfDone is.
type DoDKind string

const (
	// DoDCommand is satisfied by running a command.
	DoDCommand DoDKind = "command"
	// DoDFile is satisfied by the existence of a file.
	DoDFile DoDKind = "file"
)

// DefaultExpect is the expectation recorded when a DoD does not state one.
const DefaultExpect = "exit 0"

// DefinitionOfDone is one machine-checkable completion condition.
// The only implementations are CommandCheck and FileCheck.
type DefinitionOfDone interface {
	Kind() DoDKind
	Expectation() string
	isDefinitionOfDone()
}

// CommandCheck is satisfied when Cmd exits with status 0.
//
// Expect is kept verbatim but is not interpreted: every value is
// evaluated as "exit 0".
type CommandCheck struct {
	Cmd    string
	Expect string
}

// FileCheck is satisfied when Path exists. Expect is not interpreted.
type FileCheck struct {
	Path   string
	Expect string
}

// Kind returns DoDCommand.
func (CommandCheck) Kind() DoDKind { return DoDCommand }

// Expectation returns the free-text expectation.
func (c CommandCheck) Expectation() string { return c.Expect }

func (CommandCheck) isDefinitionOfDone() {}

// Kind returns DoDFile.
func (FileCheck) Kind() DoDKind { return DoDFile }

// Expectation returns the free-text expectation.
func (f FileCheck) Expectation() string { return f.Expect }

func (FileCheck) isDefinitionOfDone() {}

// NewCommandCheck builds a command DoD. cmd must be non-blank.
func NewCommandCheck(cmd, expect string) (CommandCheck, error) {
	if strings.TrimSpace(cmd) == "" {
		return CommandCheck{}, &SchemaError{Field: "cmd", Message: "command DoD missing required 'cmd' field"}
	}
	if expect == "" {
		expect = DefaultExpect
	}
	return CommandCheck{Cmd: cmd, Expect: expect}, nil
}

// NewFileCheck builds a file DoD. path must be non-blank.
func NewFileCheck(path, expect string) (FileCheck, error) {
	if strings.TrimSpace(path) == "" {
		return FileCheck{}, &SchemaError{Field: "path", Message: "file DoD missing required 'path' field"}
	}
	if expect == "" {
		expect = DefaultExpect
	}
	return FileCheck{Path: path, Expect: expect}, nil
}

// NewDefinitionOfDone dispatches on kind. Fields that belong to the other
// variant are ignored.
func NewDefinitionOfDone(kind, cmd, path, expect string) (DefinitionOfDone, error) {
	switch DoDKind(kind) {
	case DoDCommand:
		return NewCommandCheck(cmd, expect)
	case DoDFile:
		return NewFileCheck(path, expect)
	default:
		return nil, &SchemaError{
			Field:   "kind",
			Message: fmt.Sprintf("DoD kind must be 'command' or 'file', got %q", kind),
		}
	}
}

// CountCommands returns how many entries in dods are command checks.
func CountCommands(dods []DefinitionOfDone) int {
	n := 0
	for _, d := range dods {
		if d.Kind() == DoDCommand {
			n++
		}
	}
	return n
}
