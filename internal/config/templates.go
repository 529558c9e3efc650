package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Trade Bias Analyzer Configuration

[analysis]
# Number of concurrent workers for detectors and timeline windows
workers = 4
# Windows with fewer trades than this are skipped in the timeline
min_trades_per_window = 15
# Compute the rolling bias timeline during analyze
timeline_enabled = true

[counterfactual]
# Default what-if constraints. 0 disables a constraint.
# Maximum position size as percentage of balance
max_position_pct = 0.0
# Cap each loss at this percentage of the running balance
stop_loss_pct = 0.0
# Maximum trades per calendar day
max_daily_trades = 0
# Minimum minutes between kept trades
cooldown_minutes = 0.0
# Skip trades once this many consecutive losses occurred
max_loss_streak = 0
# Skip trades while drawdown exceeds this percentage
max_drawdown_trigger_pct = 0.0

[store]
# Persist sessions, analyses and what-if runs
enabled = false
# SQLite database path (empty uses the config directory)
path = ""

[logging]
# Log level: debug, info, warn, error
level = "info"
console = true
file = false
# Rotation limits: megabytes, files, days
max_size = 50
max_backups = 5
max_age = 30

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
