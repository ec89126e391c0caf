package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/harrison/workplan/internal/runstore"
	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs subcommand
func NewRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs <workgraph-file>",
		Short: "List recorded runs of a WorkGraph",
		Args:  cobra.ExactArgs(1),
		RunE:  runRuns,
	}

	cmd.Flags().Bool("latest", false, "Show only the metadata of the most recent run")
	cmd.Flags().Bool("json", false, "Print as JSON")
	cmd.Flags().String("root", "", "WorkGraph root holding run records")

	return cmd
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	wg, err := loadWorkGraph(args[0])
	if err != nil {
		return err
	}

	store := runstore.New(cfg.WorkGraphRoot)
	out := cmd.OutOrStdout()
	asJSON, _ := cmd.Flags().GetBool("json")

	if latest, _ := cmd.Flags().GetBool("latest"); latest {
		meta, err := store.LatestRun(wg.ID)
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(meta)
		}
		fmt.Fprintf(out, "Run:         %s\n", meta.RunID)
		fmt.Fprintf(out, "Status:      %s\n", meta.Status)
		fmt.Fprintf(out, "Dry run:     %t\n", meta.DryRun)
		fmt.Fprintf(out, "Started at:  %s\n", meta.StartedAt)
		if meta.CompletedAt != "" {
			fmt.Fprintf(out, "Completed:   %s\n", meta.CompletedAt)
		}
		fmt.Fprintf(out, "Records:     %s\n", store.RunDir(wg.ID, meta.RunID))
		return nil
	}

	runs := store.ListRuns(wg.ID)
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintf(out, "No runs recorded for %s\n", wg.ID)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTATUS\tDRY RUN\tSTARTED\tCOMPLETED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", r.RunID, r.Status, r.DryRun, r.StartedAt, r.CompletedAt)
	}
	return tw.Flush()
}
