package models

import "time"

// Constraints are the discipline rules applied by a counterfactual replay.
// A nil field means the constraint is disabled.
type Constraints struct {
	MaxPositionPct        *float64 `json:"max_position_pct,omitempty" yaml:"max_position_pct,omitempty" mapstructure:"max_position_pct"`
	StopLossPct           *float64 `json:"stop_loss_pct,omitempty" yaml:"stop_loss_pct,omitempty" mapstructure:"stop_loss_pct"`
	MaxDailyTrades        *int     `json:"max_daily_trades,omitempty" yaml:"max_daily_trades,omitempty" mapstructure:"max_daily_trades"`
	CooldownMinutes       *float64 `json:"cooldown_minutes,omitempty" yaml:"cooldown_minutes,omitempty" mapstructure:"cooldown_minutes"`
	MaxLossStreak         *int     `json:"max_loss_streak,omitempty" yaml:"max_loss_streak,omitempty" mapstructure:"max_loss_streak"`
	MaxDrawdownTriggerPct *float64 `json:"max_drawdown_trigger_pct,omitempty" yaml:"max_drawdown_trigger_pct,omitempty" mapstructure:"max_drawdown_trigger_pct"`
}

// IsEmpty reports whether no constraint is enabled.
func (c Constraints) IsEmpty() bool {
	return c.MaxPositionPct == nil && c.StopLossPct == nil && c.MaxDailyTrades == nil &&
		c.CooldownMinutes == nil && c.MaxLossStreak == nil && c.MaxDrawdownTriggerPct == nil
}

// Exclusion and adjustment kinds reported in a counterfactual breakdown.
const (
	ExcludedDailyLimit      = "daily_limit"
	ExcludedCooldown        = "cooldown"
	ExcludedLossStreak      = "loss_streak"
	ExcludedDrawdownBreaker = "drawdown_breaker"
	AdjustedPositionCap     = "position_cap_scaled"
	AdjustedStopLoss        = "stop_loss_capped"
)

// Metrics is the comparable metric set of a trade path.
type Metrics struct {
	TotalTrades    int     `json:"total_trades" yaml:"total_trades"`
	TotalPnL       float64 `json:"total_pnl" yaml:"total_pnl"`
	FinalBalance   float64 `json:"final_balance" yaml:"final_balance"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio" yaml:"sharpe_ratio"`
	Volatility     float64 `json:"volatility" yaml:"volatility"`
	WinRate        float64 `json:"win_rate" yaml:"win_rate"`
}

// SimulatedTrade is a trade kept by a counterfactual replay.
type SimulatedTrade struct {
	Timestamp       time.Time `json:"timestamp" yaml:"timestamp"`
	Asset           string    `json:"asset" yaml:"asset"`
	Quantity        float64   `json:"quantity" yaml:"quantity"`
	PnL             float64   `json:"profit_loss" yaml:"profit_loss"`
	PositionSizePct float64   `json:"position_size_pct" yaml:"position_size_pct"`
	Balance         float64   `json:"balance" yaml:"balance"`
	Scaled          bool      `json:"scaled" yaml:"scaled"`
	StoppedOut      bool      `json:"stopped_out" yaml:"stopped_out"`
}

// CounterfactualResult compares the original session with a constrained replay.
type CounterfactualResult struct {
	Params               Constraints        `json:"params" yaml:"params"`
	Original             Metrics            `json:"original" yaml:"original"`
	Simulated            Metrics            `json:"simulated" yaml:"simulated"`
	Improvement          map[string]float64 `json:"improvement" yaml:"improvement"`
	Summary              string             `json:"summary" yaml:"summary"`
	EquityCurveOriginal  []EquityPoint      `json:"equity_curve_original" yaml:"equity_curve_original"`
	EquityCurveSimulated []EquityPoint      `json:"equity_curve_simulated" yaml:"equity_curve_simulated"`
	TradesOriginal       int                `json:"trades_original" yaml:"trades_original"`
	TradesSimulated      int                `json:"trades_simulated" yaml:"trades_simulated"`
	ExcludedBreakdown    map[string]int     `json:"excluded_breakdown" yaml:"excluded_breakdown"`
	Trades               []SimulatedTrade   `json:"trades" yaml:"trades"`
}
