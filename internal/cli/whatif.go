package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trade-bias-analyzer/internal/analysis/features"
	"trade-bias-analyzer/internal/counterfactual"
	"trade-bias-analyzer/internal/errors"
	"trade-bias-analyzer/internal/ingest"
	"trade-bias-analyzer/internal/models"
	"trade-bias-analyzer/pkg/utils"
)

// addCounterfactualCommands adds the whatif command.
func addCounterfactualCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newWhatIfCmd(app))
}

// constraintFlags holds the raw what-if flag values.
type constraintFlags struct {
	maxPositionPct   float64
	stopLossPct      float64
	maxDailyTrades   int
	cooldownMinutes  float64
	maxLossStreak    int
	drawdownTrigger  float64
	sweepPositionPct []float64
}

// apply overrides the configured defaults with every flag given on the
// command line. A zero value disables the constraint.
func (f *constraintFlags) apply(cmd *cobra.Command, base models.Constraints) models.Constraints {
	c := base
	changed := cmd.Flags().Changed

	if changed("max-position-pct") {
		c.MaxPositionPct = floatOrNil(f.maxPositionPct)
	}
	if changed("stop-loss-pct") {
		c.StopLossPct = floatOrNil(f.stopLossPct)
	}
	if changed("max-daily-trades") {
		c.MaxDailyTrades = intOrNil(f.maxDailyTrades)
	}
	if changed("cooldown-minutes") {
		c.CooldownMinutes = floatOrNil(f.cooldownMinutes)
	}
	if changed("max-loss-streak") {
		c.MaxLossStreak = intOrNil(f.maxLossStreak)
	}
	if changed("drawdown-trigger-pct") {
		c.MaxDrawdownTriggerPct = floatOrNil(f.drawdownTrigger)
	}
	return c
}

func floatOrNil(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

func intOrNil(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func newWhatIfCmd(app *App) *cobra.Command {
	var (
		flags     constraintFlags
		sessionID string
		chart     bool
		save      bool
	)

	cmd := &cobra.Command{
		Use:   "whatif [file.csv]",
		Short: "Replay a session under discipline rules",
		Long: `Replay a session under position, loss and frequency constraints and
compare the outcome with what actually happened.

Constraints are applied to every trade in this order: daily trade limit,
cooldown, loss-streak stop, drawdown breaker, position cap, stop loss.
Defaults come from the [counterfactual] section of config.toml; flags
override them and a zero value disables a constraint.`,
		Example: `  biasanalyzer whatif session.csv --max-position-pct 2 --stop-loss-pct 1
  biasanalyzer whatif --session 3f2a --max-daily-trades 10 --cooldown-minutes 15 --save
  biasanalyzer whatif session.csv --sweep-position-pct 1,2,5,10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := app.newContext(cmd)
			output := app.output(cmd)

			if len(args) == 0 && sessionID == "" {
				return errors.NewValidationError("source", "", "give a CSV file or --session")
			}

			trades, source, err := app.loadTrades(ctx, args, sessionID)
			if err != nil {
				return err
			}
			enriched, err := features.Build(trades)
			if err != nil {
				return err
			}

			constraints := flags.apply(cmd, app.Config.Counterfactual.Constraints())

			if len(flags.sweepPositionPct) > 0 {
				return runPositionSweep(ctx, app, output, enriched, constraints, flags.sweepPositionPct)
			}

			result, err := app.Simulator.Simulate(ctx, enriched, constraints)
			if err != nil {
				return err
			}

			runID := ""
			if save {
				runID, sessionID, err = app.saveCounterfactual(ctx, sessionID, source, trades, result)
				if err != nil {
					return err
				}
			}

			if output.IsStructured() {
				return output.Encode(result)
			}
			renderCounterfactual(output, result)
			if chart {
				output.Println()
				output.Bold("Equity Curve (· original, █ simulated)")
				output.Println(counterfactual.RenderEquityCurves(result.EquityCurveOriginal, result.EquityCurveSimulated, 72, 16))
			}
			if runID != "" {
				output.Println()
				output.Success("✓ Saved run %s for session %s", runID, sessionID)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&flags.maxPositionPct, "max-position-pct", 0, "cap each position at this percentage of balance")
	cmd.Flags().Float64Var(&flags.stopLossPct, "stop-loss-pct", 0, "cap each loss at this percentage of the running balance")
	cmd.Flags().IntVar(&flags.maxDailyTrades, "max-daily-trades", 0, "maximum trades per calendar day")
	cmd.Flags().Float64Var(&flags.cooldownMinutes, "cooldown-minutes", 0, "minimum minutes between kept trades")
	cmd.Flags().IntVar(&flags.maxLossStreak, "max-loss-streak", 0, "skip trades after this many consecutive losses")
	cmd.Flags().Float64Var(&flags.drawdownTrigger, "drawdown-trigger-pct", 0, "skip trades while drawdown exceeds this percentage")
	cmd.Flags().Float64SliceVar(&flags.sweepPositionPct, "sweep-position-pct", nil, "compare several position caps side by side")
	cmd.Flags().StringVar(&sessionID, "session", "", "replay a stored session (id or unique prefix)")
	cmd.Flags().BoolVar(&chart, "chart", false, "draw the original and simulated equity curves")
	cmd.Flags().BoolVar(&save, "save", false, "persist the replay with its session")

	return cmd
}

// loadTrades reads trades from a CSV file or a stored session. It returns
// the trades and the source name.
func (app *App) loadTrades(ctx context.Context, args []string, sessionID string) ([]models.TradeRecord, string, error) {
	if sessionID == "" {
		trades, err := ingest.ParseFile(args[0])
		return trades, args[0], err
	}

	s, err := app.Store()
	if err != nil {
		return nil, "", err
	}
	id, err := s.ResolveID(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	trades, err := s.GetTrades(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return trades, id, nil
}

// saveCounterfactual stores a replay. A session read from a file is
// analyzed and stored first. It returns the run and session ids.
func (app *App) saveCounterfactual(ctx context.Context, sessionID, source string, trades []models.TradeRecord, result *models.CounterfactualResult) (string, string, error) {
	s, err := app.Store()
	if err != nil {
		return "", "", err
	}

	if sessionID == "" {
		analysisResult, err := app.Analyzer.Analyze(ctx, trades)
		if err != nil {
			return "", "", err
		}
		if sessionID, err = app.saveSession(ctx, source, trades, analysisResult); err != nil {
			return "", "", err
		}
	} else {
		sessionID = source
	}

	runID, err := s.SaveCounterfactual(ctx, sessionID, result)
	if err != nil {
		return "", "", err
	}
	return runID, sessionID, nil
}

func runPositionSweep(ctx context.Context, app *App, output *Output, trades []models.EnrichedTrade, base models.Constraints, caps []float64) error {
	sets := make([]models.Constraints, len(caps))
	for i, v := range caps {
		sets[i] = base
		sets[i].MaxPositionPct = floatOrNil(v)
	}

	results, err := app.Simulator.Compare(ctx, trades, sets)
	if err != nil {
		return err
	}

	if output.IsStructured() {
		return output.Encode(results)
	}

	output.Bold("Position Cap Sweep")
	table := NewTable(output, "CAP", "TRADES", "TOTAL P&L", "MAX DD", "SHARPE", "Δ DD", "Δ P&L")
	for i, r := range results {
		table.AddRow(
			fmt.Sprintf("%g%%", caps[i]),
			fmt.Sprintf("%d/%d", r.TradesSimulated, r.TradesOriginal),
			output.FormatPnL(r.Simulated.TotalPnL),
			fmt.Sprintf("%.2f%%", r.Simulated.MaxDrawdownPct),
			fmt.Sprintf("%.4f", r.Simulated.SharpeRatio),
			output.Improvement(r.Improvement[counterfactual.MetricMaxDrawdown]),
			output.Improvement(r.Improvement[counterfactual.MetricTotalPnL]),
		)
	}
	table.Render()
	return nil
}

func renderCounterfactual(output *Output, r *models.CounterfactualResult) {
	output.Box("What-If Replay", []string{
		"Constraints: " + strings.Join(ConstraintLabels(r.Params), ", "),
		fmt.Sprintf("Trades kept: %d of %d", r.TradesSimulated, r.TradesOriginal),
	})
	output.Println()

	table := NewTable(output, "METRIC", "ORIGINAL", "SIMULATED", "IMPROVEMENT")
	for _, key := range counterfactual.MetricKeys {
		table.AddRow(
			metricLabel(key),
			formatMetric(key, metricValue(r.Original, key)),
			formatMetric(key, metricValue(r.Simulated, key)),
			output.Improvement(r.Improvement[key]),
		)
	}
	table.Render()

	if len(r.ExcludedBreakdown) > 0 {
		output.Println()
		output.Bold("Rule activity")
		for _, kind := range breakdownOrder {
			if n, ok := r.ExcludedBreakdown[kind]; ok {
				output.Printf("  %-20s %d\n", kind, n)
			}
		}
	}

	output.Println()
	output.Info("%s", r.Summary)
}

var breakdownOrder = []string{
	models.ExcludedDailyLimit,
	models.ExcludedCooldown,
	models.ExcludedLossStreak,
	models.ExcludedDrawdownBreaker,
	models.AdjustedPositionCap,
	models.AdjustedStopLoss,
}

func metricLabel(key string) string {
	switch key {
	case counterfactual.MetricTotalTrades:
		return "Trades"
	case counterfactual.MetricTotalPnL:
		return "Total P&L"
	case counterfactual.MetricFinalBalance:
		return "Final balance"
	case counterfactual.MetricMaxDrawdown:
		return "Max drawdown"
	case counterfactual.MetricSharpe:
		return "Sharpe ratio"
	case counterfactual.MetricVolatility:
		return "Volatility"
	case counterfactual.MetricWinRate:
		return "Win rate"
	default:
		return key
	}
}

func metricValue(m models.Metrics, key string) float64 {
	switch key {
	case counterfactual.MetricTotalTrades:
		return float64(m.TotalTrades)
	case counterfactual.MetricTotalPnL:
		return m.TotalPnL
	case counterfactual.MetricFinalBalance:
		return m.FinalBalance
	case counterfactual.MetricMaxDrawdown:
		return m.MaxDrawdownPct
	case counterfactual.MetricSharpe:
		return m.SharpeRatio
	case counterfactual.MetricVolatility:
		return m.Volatility
	case counterfactual.MetricWinRate:
		return m.WinRate
	default:
		return 0
	}
}

func formatMetric(key string, v float64) string {
	switch key {
	case counterfactual.MetricTotalTrades:
		return fmt.Sprintf("%.0f", v)
	case counterfactual.MetricTotalPnL:
		return utils.FormatPnL(v)
	case counterfactual.MetricFinalBalance, counterfactual.MetricVolatility:
		return utils.FormatCurrency(v)
	case counterfactual.MetricMaxDrawdown, counterfactual.MetricWinRate:
		return fmt.Sprintf("%.2f%%", v)
	default:
		return fmt.Sprintf("%.4f", v)
	}
}
