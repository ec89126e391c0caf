// Package display formats user-facing warnings for the terminal.
//
// A Warning is rendered as a titled block with optional message, numbered
// items and a suggestion. Color is applied through fatih/color and is
// suppressed when the caller disables it or the output is not a terminal.
//
//	display.Warning{
//	    Title: "unresolved inputs",
//	    Items: []string{"TASK-002: seed.csv"},
//	}.Display(os.Stdout, true)
package display
