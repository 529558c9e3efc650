package cli

import (
	"time"

	"github.com/spf13/cobra"

	"trade-bias-analyzer/internal/errors"
	"trade-bias-analyzer/internal/ingest"
	"trade-bias-analyzer/internal/sessiongen"
)

// addGenerateCommands adds the synthetic session generator.
func addGenerateCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newGenerateCmd(app))
}

func newGenerateCmd(app *App) *cobra.Command {
	defaults := sessiongen.DefaultOptions()

	var (
		opts      = defaults
		start     string
		replicate int
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "generate <calm|revenge|overtrader>",
		Short: "Write a synthetic session with a known behavior",
		Long: `Write a deterministic synthetic session as CSV.

  calm        one trade an hour with a fixed size
  revenge     hourly trades, position size doubles after every loss
  overtrader  trades every few minutes, faster after losses

--replicate concatenates copies of the session for throughput tests.`,
		Example: `  biasanalyzer generate revenge -o revenge.csv
  biasanalyzer generate overtrader --trades 500 --replicate 20 -o big.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			profile, err := sessiongen.ParseProfile(args[0])
			if err != nil {
				return err
			}
			if start != "" {
				ts, err := time.Parse(time.RFC3339, start)
				if err != nil {
					return errors.NewValidationError("start", start, "must be an RFC3339 timestamp")
				}
				opts.Start = ts
			}
			if replicate < 1 {
				return errors.NewValidationError("replicate", replicate, "must be at least 1")
			}

			trades, err := sessiongen.Generate(profile, opts)
			if err != nil {
				return err
			}
			trades = sessiongen.Replicate(trades, replicate)

			if outPath == "" {
				return ingest.Write(cmd.OutOrStdout(), trades)
			}
			if err := ingest.WriteFile(outPath, trades); err != nil {
				return err
			}

			app.Logger.Debug().Str("profile", string(profile)).Int("trades", len(trades)).Str("path", outPath).Msg("Session generated")
			if output.IsStructured() {
				return output.Encode(map[string]interface{}{
					"profile": profile,
					"trades":  len(trades),
					"path":    outPath,
				})
			}
			output.Success("✓ Wrote %d %s trades to %s", len(trades), profile, outPath)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Trades, "trades", defaults.Trades, "trades per session copy")
	cmd.Flags().Float64Var(&opts.InitialBalance, "balance", defaults.InitialBalance, "balance before the first trade")
	cmd.Flags().StringVar(&opts.Asset, "asset", defaults.Asset, "asset symbol")
	cmd.Flags().StringVar(&start, "start", "", "first trade time, RFC3339 (default 2024-03-04T09:00:00Z)")
	cmd.Flags().IntVar(&replicate, "replicate", 1, "number of concatenated copies")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")

	return cmd
}
