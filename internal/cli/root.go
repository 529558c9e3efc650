package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trade-bias-analyzer/internal/analysis/scoring"
	"trade-bias-analyzer/internal/config"
	"trade-bias-analyzer/internal/counterfactual"
	"trade-bias-analyzer/internal/errors"
	"trade-bias-analyzer/internal/logging"
	"trade-bias-analyzer/internal/metrics"
	"trade-bias-analyzer/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	ConfigDir string
	Logger    zerolog.Logger
	Metrics   *metrics.Registry
	Analyzer  *scoring.Analyzer
	Simulator *counterfactual.Simulator

	store *store.SQLiteStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{}

	rootCmd := &cobra.Command{
		Use:   "biasanalyzer",
		Short: "Trade Bias Analyzer - behavioral analysis of trading sessions",
		Long: `Trade Bias Analyzer scores a finished trading session for five behavioral
biases (overtrading, loss aversion, revenge trading, anchoring and
overconfidence), classifies the trader archetype, tracks how the biases
move through the session and replays the session under discipline rules.

Sessions are read from CSV files with the columns timestamp, asset, side,
quantity, entry_price, exit_price, profit_loss and balance.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.finish(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trade-bias-analyzer)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("yaml", false, "output in YAML format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("metrics-out", "", "write Prometheus metrics to this file on exit")
	rootCmd.MarkFlagsMutuallyExclusive("json", "yaml")

	addCoreCommands(rootCmd, app)
	addAnalysisCommands(rootCmd, app)
	addCounterfactualCommands(rootCmd, app)
	addSessionCommands(rootCmd, app)
	addGenerateCommands(rootCmd, app)

	return rootCmd
}

func (app *App) init(cmd *cobra.Command) error {
	configDir, _ := cmd.Flags().GetString("config")
	if configDir == "" {
		configDir = config.DefaultConfigDir()
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	app.Config = cfg
	app.ConfigDir = configDir

	app.Logger = logging.NewLoggerWithConfig(cfg.Logging)
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logging.SetDebugLevel()
		app.Logger = app.Logger.Level(zerolog.DebugLevel)
	}

	app.Metrics = metrics.NewRegistry()
	app.Analyzer = scoring.NewAnalyzer(cfg.Analysis, scoring.WithMetrics(app.Metrics))
	app.Simulator = counterfactual.NewSimulator(cfg.Analysis.Workers, counterfactual.WithMetrics(app.Metrics))

	app.Logger.Debug().
		Str("config_dir", configDir).
		Int("workers", cfg.Analysis.Workers).
		Msg("Application initialized")
	return nil
}

func (app *App) finish(cmd *cobra.Command) error {
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			app.Logger.Warn().Err(err).Msg("Failed to close store")
		}
		app.store = nil
	}

	path, _ := cmd.Flags().GetString("metrics-out")
	if path == "" || app.Metrics == nil {
		return nil
	}
	if err := app.Metrics.WriteTextfile(path); err != nil {
		return errors.Wrapf(err, "writing metrics to %s", path)
	}
	app.Logger.Debug().Str("path", path).Msg("Metrics written")
	return nil
}

// newContext returns the command context carrying the application logger.
func (app *App) newContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.WithLogger(ctx, app.Logger)
}

// output returns an Output honoring the configured color preference.
func (app *App) output(cmd *cobra.Command) *Output {
	return NewOutput(cmd, app.Config.UI.ColorEnabled)
}

// Store opens the session store on first use.
func (app *App) Store() (*store.SQLiteStore, error) {
	if app.store != nil {
		return app.store, nil
	}

	path := app.Config.Store.Path
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, "creating store directory for %s", path)
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	app.store = s
	app.Logger.Debug().Str("path", path).Msg("SQLite store initialized")
	return s, nil
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd(app))
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if output.IsStructured() {
				return output.Encode(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Trade Bias Analyzer v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if output.IsStructured() {
				return output.Encode(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if output.IsStructured() {
				return output.Encode(map[string]string{"path": app.ConfigDir})
			}
			output.Println(app.ConfigDir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if err := app.Config.Validate(); err != nil {
				return err
			}
			if output.IsStructured() {
				return output.Encode(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Analysis")
	output.Printf("  Workers:           %d\n", cfg.Analysis.Workers)
	output.Printf("  Min trades/window: %d\n", cfg.Analysis.MinTradesPerWindow)
	output.Printf("  Timeline:          %v\n", cfg.Analysis.TimelineEnabled)
	output.Println()

	output.Bold("Counterfactual defaults")
	for _, label := range ConstraintLabels(cfg.Counterfactual.Constraints()) {
		output.Printf("  %s\n", label)
	}
	output.Println()

	output.Bold("Store")
	output.Printf("  Auto-save:         %v\n", cfg.Store.Enabled)
	output.Printf("  Path:              %s\n", cfg.Store.Path)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:             %s\n", cfg.Logging.Level)
	output.Printf("  File:              %v\n", cfg.Logging.File)
}
