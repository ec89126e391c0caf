package cmd

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/workplan/internal/display"
	"github.com/harrison/workplan/internal/executor"
	"github.com/harrison/workplan/internal/fileutil"
	"github.com/harrison/workplan/internal/models"
	"github.com/harrison/workplan/internal/parser"
	"github.com/spf13/cobra"
)

// hashWorkGraph is replaced in tests.
var hashWorkGraph = parser.Hash

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <workgraph-file-or-dir>...",
		Short: "Validate one or more WorkGraph files",
		Long: `Parse and validate WorkGraph files, checking for:
  - Schema version, goal and phase names
  - Unique task ids and non-empty Definitions-of-Done
  - Effort ranges and scoring fields within bounds

Data-flow inputs without a producer, depends_on entries naming unknown tasks
and data-flow cycles are reported as warnings.

Directories are scanned recursively for .json, .yaml and .yml files.

Exit code: 0 if every file is valid, 1 otherwise`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			canonical, _ := cmd.Flags().GetBool("canonical")
			return validateFiles(args, cmd.OutOrStdout(), canonical)
		},
	}

	cmd.Flags().Bool("canonical", false, "Print the canonical JSON form of each valid WorkGraph")
	return cmd
}

func validateFiles(args []string, out io.Writer, canonical bool) error {
	paths, err := fileutil.FindWorkGraphFiles(args)
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range paths {
		if err := validateWorkGraph(path, out, canonical); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("validation failed for %d of %d file(s)", failed, len(paths))
	}
	return nil
}

// validateWorkGraph prints a report for one file and returns the parse error, if any.
func validateWorkGraph(path string, out io.Writer, canonical bool) error {
	useColor := colorEnabled(out)
	paint := func(c color.Attribute, s string) string {
		if !useColor {
			return s
		}
		return color.New(c).Sprint(s)
	}

	wg, err := loadWorkGraph(path)
	var hash string
	if err == nil {
		// A run starts by hashing the WorkGraph, so an unhashable one is invalid.
		if hash, err = hashWorkGraph(wg); err != nil {
			err = fmt.Errorf("failed to hash workgraph %s: %w", path, err)
		}
	}
	if err != nil {
		fmt.Fprintf(out, "%s %s\n", paint(color.FgRed, "✗ Validation failed:"), path)
		var schemaErr *models.SchemaError
		if errors.As(err, &schemaErr) {
			fmt.Fprintf(out, "  %s\n", schemaErr.Error())
		} else {
			fmt.Fprintf(out, "  %v\n", err)
		}
		return err
	}

	fmt.Fprintf(out, "%s %s\n", paint(color.FgGreen, "✓ WorkGraph is valid:"), path)
	fmt.Fprintf(out, "  ID:     %s\n", wg.ID)
	fmt.Fprintf(out, "  Goal:   %s\n", wg.Goal)
	fmt.Fprintf(out, "  Phases: %d\n", len(wg.Phases))
	fmt.Fprintf(out, "  Tasks:  %d\n", wg.TaskCount())
	fmt.Fprintf(out, "  Hash:   %s\n", hash)

	if warnings := workGraphWarnings(wg); len(warnings) > 0 {
		display.DisplayAll(out, warnings, useColor)
	}

	if canonical {
		data, err := parser.SerializeIndent(wg)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", data)
	}
	return nil
}

func workGraphWarnings(wg *models.WorkGraph) []display.Warning {
	var warnings []display.Warning

	graph := executor.BuildDataFlowGraph(wg)
	unresolved := graph.UnresolvedInputs()
	if len(unresolved) > 0 {
		taskIDs := make([]string, 0, len(unresolved))
		for id := range unresolved {
			taskIDs = append(taskIDs, id)
		}
		sort.Strings(taskIDs)
		items := make([]string, 0, len(taskIDs))
		for _, id := range taskIDs {
			items = append(items, fmt.Sprintf("%s: %s", id, strings.Join(unresolved[id], ", ")))
		}
		warnings = append(warnings, display.Warning{
			Title:      "inputs with no producer",
			Items:      items,
			Suggestion: "add a task that lists them in outputs, or make sure they exist before running",
		})
	}

	if graph.HasCycle() {
		warnings = append(warnings, display.Warning{
			Title:   "data-flow cycle detected",
			Message: "tasks on the cycle will never run",
		})
	}

	known := wg.TaskMap()
	var unknown []string
	for _, t := range wg.Tasks() {
		for _, dep := range t.DependsOn {
			if _, ok := known[dep]; !ok {
				unknown = append(unknown, fmt.Sprintf("%s -> %s", t.ID, dep))
			}
		}
	}
	if len(unknown) > 0 {
		warnings = append(warnings, display.Warning{
			Title: "depends_on references unknown tasks",
			Items: unknown,
		})
	}
	return warnings
}
