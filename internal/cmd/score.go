package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/harrison/workplan/internal/scoring"
	"github.com/spf13/cobra"
)

// NewScoreCommand creates the score subcommand
func NewScoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <workgraph-file>",
		Short: "Rank the tasks of a WorkGraph",
		Long: `Score every task of a WorkGraph under a profile and print the ranking.

Profiles:
  default   impact*2 + purpose - (effort + risk)
  investor  impact*3 + purpose - (effort*2 + risk*2)
  purpose   purpose*3 + impact - (effort + risk)

Missing impact, effort, risk and purpose fields are inferred from the task
text and marked in the rationale.`,
		Args: cobra.ExactArgs(1),
		RunE: runScore,
	}

	cmd.Flags().String("profile", "", "Scoring profile: default, investor, purpose")
	cmd.Flags().String("domain", "", "Domain hint overriding the WorkGraph domain")
	cmd.Flags().Bool("json", false, "Print the ranking as JSON")
	cmd.Flags().Int("limit", 0, "Show only the first N tasks (0 = all)")

	return cmd
}

func runScore(cmd *cobra.Command, args []string) error {
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
	ranked := scoring.Rank(wg, profile, scoring.Context{Domain: domain})

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ranked)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	printRanking(out, ranked, limit)
	return nil
}

func printRanking(out io.Writer, ranked *scoring.RankedWorkGraph, limit int) {
	useColor := colorEnabled(out)
	bold := func(s string) string {
		if !useColor {
			return s
		}
		return color.New(color.Bold).Sprint(s)
	}

	fmt.Fprintf(out, "%s\n", bold(fmt.Sprintf("Ranking for %s (%s profile)", ranked.WorkGraphID, ranked.Profile)))
	tasks := ranked.RankedTasks
	if limit > 0 {
		tasks = ranked.Top(limit)
	}
	for i, r := range tasks {
		fmt.Fprintf(out, "%3d. [%3d] %s  %s\n", i+1, r.Score, r.TaskID, r.TaskTitle)
		fmt.Fprintf(out, "            %s\n", r.Rationale)
	}

	s := ranked.Summary
	fmt.Fprintf(out, "\nSummary: %d tasks, top score %d, avg %.1f\n", s.TotalTasks, s.TopScore, s.AvgScore)
	fmt.Fprintf(out, "  Quick wins:   %d\n", s.QuickWins)
	fmt.Fprintf(out, "  Risky bets:   %d\n", s.RiskyBets)
	fmt.Fprintf(out, "  Purpose wins: %d\n", s.PurposeWins)
}
