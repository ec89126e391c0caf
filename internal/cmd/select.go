package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/harrison/workplan/internal/bookkeeping"
	"github.com/harrison/workplan/internal/models"
	"github.com/harrison/workplan/internal/scoring"
	"github.com/harrison/workplan/internal/selection"
	"github.com/spf13/cobra"
)

// Materializer persists a selection in the project bookkeeping store.
type Materializer interface {
	Materialize(ctx context.Context, wg *models.WorkGraph, sel *selection.SelectionResult) (*bookkeeping.MaterializeResult, error)
}

// NewSelectCommand creates the select subcommand
func NewSelectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select <workgraph-file>",
		Short: "Pick the top-N tasks plus their dependency closure",
		Long: `Rank a WorkGraph, take the first N tasks by (score desc, id asc) and add
every task they transitively depend on through depends_on. Dependencies are
ordered topologically and precede the selected tasks.

With --materialize the selection is written to the bookkeeping database.`,
		Args: cobra.ExactArgs(1),
		RunE: runSelect,
	}

	cmd.Flags().String("profile", "", "Scoring profile: default, investor, purpose")
	cmd.Flags().Int("top-n", 0, "Number of top tasks to select (default from config)")
	cmd.Flags().String("domain", "", "Domain hint overriding the WorkGraph domain")
	cmd.Flags().Bool("json", false, "Print the selection as JSON")
	cmd.Flags().Bool("materialize", false, "Persist the selection in the bookkeeping database")
	cmd.Flags().String("db", "", "Bookkeeping database path (default from config)")

	return cmd
}

func runSelect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	profile, err := scoring.ParseProfile(cfg.Profile)
	if err != nil {
		return err
	}
	wg, err := loadWorkGraph(args[0])
	if err != nil {
		return err
	}

	domain, _ := cmd.Flags().GetString("domain")
	sel := selection.Select(wg, profile, cfg.TopN, scoring.Context{Domain: domain})

	out := cmd.OutOrStdout()
	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sel); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, selection.FormatSummary(sel, profile, 10))
	}

	if materialize, _ := cmd.Flags().GetBool("materialize"); !materialize {
		return nil
	}

	store, err := bookkeeping.NewStore(cfg.Bookkeeping.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open bookkeeping database: %w", err)
	}
	defer store.Close()

	// Keep stdout pure JSON when --json is set.
	report := out
	if asJSON {
		report = cmd.ErrOrStderr()
	}
	return materializeSelection(cmd.Context(), report, store, wg, sel)
}

func materializeSelection(ctx context.Context, out io.Writer, m Materializer, wg *models.WorkGraph, sel *selection.SelectionResult) error {
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := m.Materialize(ctx, wg, sel)
	if err != nil {
		return fmt.Errorf("failed to materialize selection: %w", err)
	}
	fmt.Fprintf(out, "Materialized into track %s: %d created, %d updated\n", res.TrackID, res.Created, res.Updated)
	return nil
}
