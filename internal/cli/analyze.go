package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"trade-bias-analyzer/internal/analysis"
	"trade-bias-analyzer/internal/analysis/scoring"
	"trade-bias-analyzer/internal/ingest"
	"trade-bias-analyzer/internal/logging"
	"trade-bias-analyzer/internal/models"
	"trade-bias-analyzer/pkg/utils"
)

// addAnalysisCommands adds the analyze and timeline commands.
func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newTimelineCmd(app))
}

func newAnalyzeCmd(app *App) *cobra.Command {
	var (
		noTimeline bool
		save       bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <file.csv>",
		Short: "Score a session for behavioral biases",
		Long: `Score a session for the five behavioral biases, classify the trader
archetype and summarize the session. The rolling bias timeline is included
unless --no-timeline is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := app.newContext(cmd)
			output := app.output(cmd)

			trades, err := ingest.ParseFile(args[0])
			if err != nil {
				return err
			}

			analyzer := scoring.NewAnalyzer(app.Config.Analysis,
				scoring.WithMetrics(app.Metrics),
				scoring.WithTimeline(app.Config.Analysis.TimelineEnabled && !noTimeline),
			)
			result, err := analyzer.Analyze(ctx, trades)
			if err != nil {
				return err
			}

			sessionID := ""
			if save || app.Config.Store.Enabled {
				sessionID, err = app.saveSession(ctx, args[0], trades, result)
				if err != nil {
					return err
				}
			}

			if output.IsStructured() {
				return output.Encode(result)
			}
			renderAnalysis(output, app, result)
			if sessionID != "" {
				output.Println()
				output.Success("✓ Saved session %s", sessionID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noTimeline, "no-timeline", false, "skip the rolling bias timeline")
	cmd.Flags().BoolVar(&save, "save", false, "persist the session and its analysis")

	return cmd
}

func newTimelineCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <file.csv>",
		Short: "Show how bias scores move through a session",
		Long: `Slide a window across the session and score every window that holds
enough trades. Window width and step scale with the session duration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := app.newContext(cmd)
			output := app.output(cmd)

			trades, err := ingest.ParseFile(args[0])
			if err != nil {
				return err
			}

			analyzer := scoring.NewAnalyzer(app.Config.Analysis,
				scoring.WithMetrics(app.Metrics),
				scoring.WithTimeline(true),
			)
			result, err := analyzer.Analyze(ctx, trades)
			if err != nil {
				return err
			}

			if output.IsStructured() {
				return output.Encode(result.Timeline)
			}
			renderTimeline(output, app, result.Timeline)
			return nil
		},
	}
}

func (app *App) saveSession(ctx context.Context, source string, trades []models.TradeRecord, result *models.AnalysisResult) (string, error) {
	s, err := app.Store()
	if err != nil {
		return "", err
	}
	id, err := s.SaveSession(ctx, source, trades, result)
	if err != nil {
		return "", err
	}
	logger := logging.WithSession(app.Logger, id)
	logger.Info().Str("source", source).Msg("Session saved")
	return id, nil
}

func renderAnalysis(output *Output, app *App, result *models.AnalysisResult) {
	s := result.Summary
	output.Box("Session Summary", []string{
		fmt.Sprintf("Trades:        %d over %.1f h (%.2f/h)", s.TotalTrades, s.DurationHours, s.TradesPerHour),
		fmt.Sprintf("Win rate:      %.1f%%", s.WinRate),
		fmt.Sprintf("Avg win/loss:  %s / %s", utils.FormatCurrency(s.AvgWin), utils.FormatCurrency(s.AvgLoss)),
		fmt.Sprintf("Total P&L:     %s", output.FormatPnL(s.TotalPnL)),
		fmt.Sprintf("Final balance: %s", utils.FormatCurrency(s.FinalBalance)),
		fmt.Sprintf("Max drawdown:  %.2f%%", s.MaxDrawdownPct),
		fmt.Sprintf("Sharpe:        %.2f", s.SharpeRatio),
	})
	output.Println()

	output.Bold("Bias Scores")
	table := NewTable(output, "BIAS", "SCORE", "BAND", "")
	for _, score := range result.Scores {
		table.AddRow(BiasLabel(score.Kind), output.Score(score.Score), output.Band(score.Band), output.DimText(ScoreBar(score.Score, 20)))
	}
	table.Render()

	dominant := analysis.DominantBias(result.Scores)
	output.Printf("Dominant bias: %s (mean score %.1f)\n", BiasLabel(dominant), analysis.MeanScore(result.Scores))
	output.Println()

	output.Bold("Archetype: %s", result.Archetype.Label)
	output.Dim("%s", result.Archetype.Description)

	if len(result.Timeline) > 0 {
		output.Println()
		renderTimeline(output, app, result.Timeline)
	}
}

func renderTimeline(output *Output, app *App, points []models.TimelinePoint) {
	output.Bold("Bias Timeline")
	if len(points) == 0 {
		output.Dim("No window held enough trades to score.")
		return
	}

	layout := app.Config.UI.DateFormat + " " + app.Config.UI.TimeFormat
	headers := []string{"WINDOW", "TRADES"}
	for _, kind := range models.BiasKinds {
		headers = append(headers, BiasCode(kind))
	}
	headers = append(headers, "DOMINANT")

	table := NewTable(output, headers...)
	for _, p := range points {
		row := []string{
			p.WindowStart.Format(layout) + " → " + p.WindowEnd.Format(app.Config.UI.TimeFormat),
			fmt.Sprintf("%d", p.TradeCount),
		}
		for _, kind := range models.BiasKinds {
			row = append(row, output.Score(p.Scores[kind].Score))
		}
		row = append(row, BiasLabel(p.DominantBias))
		table.AddRow(row...)
	}
	table.Render()
}
