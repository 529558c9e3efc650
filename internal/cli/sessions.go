package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trade-bias-analyzer/internal/counterfactual"
	"trade-bias-analyzer/internal/store"
	"trade-bias-analyzer/pkg/utils"
)

// addSessionCommands adds the stored session commands.
func addSessionCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Manage stored sessions",
		Long:    "List, inspect and delete sessions saved with --save.",
	}

	cmd.AddCommand(newSessionsListCmd(app))
	cmd.AddCommand(newSessionsShowCmd(app))
	cmd.AddCommand(newSessionsDeleteCmd(app))

	rootCmd.AddCommand(cmd)
}

func newSessionsListCmd(app *App) *cobra.Command {
	var (
		filter store.SessionFilter
		days   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := app.newContext(cmd)
			output := app.output(cmd)

			s, err := app.Store()
			if err != nil {
				return err
			}
			if days > 0 {
				filter.Since = time.Now().AddDate(0, 0, -days)
			}

			sessions, err := s.ListSessions(ctx, filter)
			if err != nil {
				return err
			}

			if output.IsStructured() {
				if sessions == nil {
					sessions = []store.SessionSummary{}
				}
				return output.Encode(sessions)
			}

			if len(sessions) == 0 {
				output.Dim("No stored sessions.")
				return nil
			}

			layout := app.Config.UI.DateFormat + " " + app.Config.UI.TimeFormat
			table := NewTable(output, "ID", "CREATED", "TRADES", "ARCHETYPE", "DOMINANT BIAS", "SOURCE")
			for _, ss := range sessions {
				table.AddRow(ss.ID[:8], ss.CreatedAt.Local().Format(layout), fmt.Sprintf("%d", ss.TradeCount), ss.Archetype, ss.DominantBias, ss.Source)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Archetype, "archetype", "", "only sessions with this archetype")
	cmd.Flags().StringVar(&filter.DominantBias, "bias", "", "only sessions with this dominant bias")
	cmd.Flags().StringVar(&filter.Source, "source", "", "only sessions whose source contains this text")
	cmd.Flags().IntVar(&days, "days", 0, "only sessions saved in the last N days")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "maximum sessions to list (0 for all)")

	return cmd
}

func newSessionsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored session and its what-if runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := app.newContext(cmd)
			output := app.output(cmd)

			s, err := app.Store()
			if err != nil {
				return err
			}
			id, err := s.ResolveID(ctx, args[0])
			if err != nil {
				return err
			}
			sess, err := s.GetSession(ctx, id)
			if err != nil {
				return err
			}
			runs, err := s.ListCounterfactuals(ctx, id)
			if err != nil {
				return err
			}

			if output.IsStructured() {
				if runs == nil {
					runs = []store.CounterfactualRun{}
				}
				return output.Encode(struct {
					store.Session `yaml:",inline"`
					Runs          []store.CounterfactualRun `json:"counterfactual_runs" yaml:"counterfactual_runs"`
				}{*sess, runs})
			}

			layout := app.Config.UI.DateFormat + " " + app.Config.UI.TimeFormat
			output.Bold("Session %s", sess.ID)
			output.Dim("%s, saved %s", sess.Source, sess.CreatedAt.Local().Format(layout))
			output.Println()
			renderAnalysis(output, app, sess.Result)

			if len(runs) > 0 {
				output.Println()
				output.Bold("What-If Runs")
				table := NewTable(output, "ID", "CONSTRAINTS", "TRADES", "P&L", "Δ DD")
				for _, run := range runs {
					table.AddRow(
						run.ID[:8],
						strings.Join(ConstraintLabels(run.Result.Params), ", "),
						fmt.Sprintf("%d/%d", run.Result.TradesSimulated, run.Result.TradesOriginal),
						utils.FormatPnL(run.Result.Simulated.TotalPnL),
						output.Improvement(run.Result.Improvement[counterfactual.MetricMaxDrawdown]),
					)
				}
				table.Render()
			}
			return nil
		},
	}
}

func newSessionsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored session with its trades and runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := app.newContext(cmd)
			output := app.output(cmd)

			s, err := app.Store()
			if err != nil {
				return err
			}
			id, err := s.ResolveID(ctx, args[0])
			if err != nil {
				return err
			}
			if err := s.DeleteSession(ctx, id); err != nil {
				return err
			}

			if output.IsStructured() {
				return output.Encode(map[string]string{"deleted": id})
			}
			output.Success("✓ Deleted session %s", id)
			return nil
		},
	}
}
