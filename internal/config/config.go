// Package config provides configuration management for the bias analyzer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"

	"trade-bias-analyzer/internal/errors"
	"trade-bias-analyzer/internal/logging"
	"trade-bias-analyzer/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Analysis       AnalysisConfig       `mapstructure:"analysis"`
	Counterfactual CounterfactualConfig `mapstructure:"counterfactual"`
	Store          StoreConfig          `mapstructure:"store"`
	Logging        logging.LogConfig    `mapstructure:"logging"`
	UI             UIConfig             `mapstructure:"ui"`
}

// AnalysisConfig holds analysis pipeline configuration.
type AnalysisConfig struct {
	Workers            int  `mapstructure:"workers"`
	MinTradesPerWindow int  `mapstructure:"min_trades_per_window"`
	TimelineEnabled    bool `mapstructure:"timeline_enabled"`
}

// CounterfactualConfig holds default constraint values for what-if replays.
// A zero value disables the constraint.
type CounterfactualConfig struct {
	MaxPositionPct        float64 `mapstructure:"max_position_pct"`
	StopLossPct           float64 `mapstructure:"stop_loss_pct"`
	MaxDailyTrades        int     `mapstructure:"max_daily_trades"`
	CooldownMinutes       float64 `mapstructure:"cooldown_minutes"`
	MaxLossStreak         int     `mapstructure:"max_loss_streak"`
	MaxDrawdownTriggerPct float64 `mapstructure:"max_drawdown_trigger_pct"`
}

// StoreConfig holds session persistence configuration.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/trade-bias-analyzer"
	}
	return filepath.Join(home, ".config", "trade-bias-analyzer")
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Workers:            4,
			MinTradesPerWindow: 15,
			TimelineEnabled:    true,
		},
		Store: StoreConfig{
			Enabled: false,
			Path:    filepath.Join(DefaultConfigDir(), "sessions.db"),
		},
		Logging: logging.DefaultLogConfig(),
		UI: UIConfig{
			ColorEnabled: true,
			DateFormat:   "02-Jan-2006",
			TimeFormat:   "15:04:05",
		},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is replaced by the template and loading continues.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()
	// An empty path resolves against configDir below.
	cfg.Store.Path = ""

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(configDir, "sessions.db")
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplateConfig(configDir, name); err != nil {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("analysis.workers", cfg.Analysis.Workers)
	v.SetDefault("analysis.min_trades_per_window", cfg.Analysis.MinTradesPerWindow)
	v.SetDefault("analysis.timeline_enabled", cfg.Analysis.TimelineEnabled)
	v.SetDefault("store.enabled", cfg.Store.Enabled)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.console", cfg.Logging.Console)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.file_path", cfg.Logging.FilePath)
	v.SetDefault("logging.max_size", cfg.Logging.MaxSize)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age", cfg.Logging.MaxAge)
	v.SetDefault("ui.color_enabled", cfg.UI.ColorEnabled)
	v.SetDefault("ui.date_format", cfg.UI.DateFormat)
	v.SetDefault("ui.time_format", cfg.UI.TimeFormat)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BIAS_ANALYZER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BIAS_ANALYZER_STORE_PATH"); v != "" {
		cfg.Store.Path = v
		cfg.Store.Enabled = true
	}
	if v := os.Getenv("BIAS_ANALYZER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.Workers = n
		}
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("BIAS_ANALYZER_NO_COLOR") != "" {
		cfg.UI.ColorEnabled = false
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Analysis.Workers < 1 {
		return errors.NewValidationError("analysis.workers", c.Analysis.Workers, "must be at least 1")
	}
	if c.Analysis.MinTradesPerWindow < 1 {
		return errors.NewValidationError("analysis.min_trades_per_window", c.Analysis.MinTradesPerWindow, "must be at least 1")
	}

	cf := c.Counterfactual
	if cf.MaxPositionPct < 0 || cf.MaxPositionPct > 100 {
		return errors.NewValidationError("counterfactual.max_position_pct", cf.MaxPositionPct, "must be between 0 and 100")
	}
	if cf.StopLossPct < 0 || cf.StopLossPct > 100 {
		return errors.NewValidationError("counterfactual.stop_loss_pct", cf.StopLossPct, "must be between 0 and 100")
	}
	if cf.MaxDailyTrades < 0 {
		return errors.NewValidationError("counterfactual.max_daily_trades", cf.MaxDailyTrades, "must be non-negative")
	}
	if cf.CooldownMinutes < 0 {
		return errors.NewValidationError("counterfactual.cooldown_minutes", cf.CooldownMinutes, "must be non-negative")
	}
	if cf.MaxLossStreak < 0 {
		return errors.NewValidationError("counterfactual.max_loss_streak", cf.MaxLossStreak, "must be non-negative")
	}
	if cf.MaxDrawdownTriggerPct < 0 {
		return errors.NewValidationError("counterfactual.max_drawdown_trigger_pct", cf.MaxDrawdownTriggerPct, "must be non-negative")
	}

	if c.Store.Enabled && c.Store.Path == "" {
		return errors.NewValidationError("store.path", c.Store.Path, "required when the store is enabled")
	}

	return nil
}

// Constraints converts the configured defaults into replay constraints.
// Zero values stay disabled.
func (c CounterfactualConfig) Constraints() models.Constraints {
	var out models.Constraints
	if c.MaxPositionPct > 0 {
		v := c.MaxPositionPct
		out.MaxPositionPct = &v
	}
	if c.StopLossPct > 0 {
		v := c.StopLossPct
		out.StopLossPct = &v
	}
	if c.MaxDailyTrades > 0 {
		v := c.MaxDailyTrades
		out.MaxDailyTrades = &v
	}
	if c.CooldownMinutes > 0 {
		v := c.CooldownMinutes
		out.CooldownMinutes = &v
	}
	if c.MaxLossStreak > 0 {
		v := c.MaxLossStreak
		out.MaxLossStreak = &v
	}
	if c.MaxDrawdownTriggerPct > 0 {
		v := c.MaxDrawdownTriggerPct
		out.MaxDrawdownTriggerPct = &v
	}
	return out
}
