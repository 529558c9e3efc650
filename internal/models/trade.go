package models

import "time"

// TradeRecord represents one closed trade as delivered by ingestion.
type TradeRecord struct {
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
	Asset      string    `json:"asset" yaml:"asset"`
	Side       Side      `json:"side" yaml:"side"`
	Quantity   float64   `json:"quantity" yaml:"quantity"`
	EntryPrice float64   `json:"entry_price" yaml:"entry_price"`
	ExitPrice  float64   `json:"exit_price" yaml:"exit_price"`
	PnL        float64   `json:"profit_loss" yaml:"profit_loss"`
	Balance    float64   `json:"balance" yaml:"balance"`
}

// EnrichedTrade is a TradeRecord with derived per-trade signals.
type EnrichedTrade struct {
	TradeRecord

	IsWin           bool    `json:"is_win"`
	PnLPercent      float64 `json:"pnl_percent"`
	Notional        float64 `json:"notional"`
	PositionSizePct float64 `json:"position_size_pct"`
	TimeSinceLast   float64 `json:"time_since_last"`  // seconds
	HoldingDuration float64 `json:"holding_duration"` // seconds, proxy equal to TimeSinceLast
	PeakBalance     float64 `json:"peak_balance"`
	DrawdownPct     float64 `json:"drawdown_pct"`
	StreakIndex     int     `json:"streak_index"`
	TradesIn1h      int     `json:"trades_in_1h"`
	TradesIn4h      int     `json:"trades_in_4h"`
	AfterLoss       bool    `json:"after_loss"`
	AfterWin        bool    `json:"after_win"`
	SizeDelta       float64 `json:"size_delta"`
}

// HasPrevious reports whether the trade has previous-trade context.
func (t EnrichedTrade) HasPrevious() bool {
	return t.AfterLoss || t.AfterWin
}

// InitialBalance returns the balance before the first trade of a session.
func InitialBalance(trades []EnrichedTrade) float64 {
	if len(trades) == 0 {
		return 0
	}
	return trades[0].Balance - trades[0].PnL
}

// SummaryStats holds session-level summary statistics.
type SummaryStats struct {
	TotalTrades       int     `json:"total_trades" yaml:"total_trades"`
	WinRate           float64 `json:"win_rate" yaml:"win_rate"`
	AvgWin            float64 `json:"avg_win" yaml:"avg_win"`
	AvgLoss           float64 `json:"avg_loss" yaml:"avg_loss"`
	AvgHoldingWinSec  float64 `json:"avg_holding_win_sec" yaml:"avg_holding_win_sec"`
	AvgHoldingLossSec float64 `json:"avg_holding_loss_sec" yaml:"avg_holding_loss_sec"`
	TradesPerHour     float64 `json:"trades_per_hour" yaml:"trades_per_hour"`
	SharpeRatio       float64 `json:"sharpe_ratio" yaml:"sharpe_ratio"`
	MaxDrawdownPct    float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`
	FinalBalance      float64 `json:"final_balance" yaml:"final_balance"`
	TotalPnL          float64 `json:"total_pnl" yaml:"total_pnl"`
	DurationHours     float64 `json:"duration_hours" yaml:"duration_hours"`

	// Inputs for archetype classification.
	PositionSizeStd float64 `json:"position_size_std" yaml:"position_size_std"`
	HoldingTimeStd  float64 `json:"holding_time_std" yaml:"holding_time_std"`
}

// EquityPoint is one point of an equity curve.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Balance   float64   `json:"balance" yaml:"balance"`
	Drawdown  float64   `json:"drawdown" yaml:"drawdown"`
}

// FrequencyCell counts trades for one weekday/hour bucket (weekday 0 = Monday).
type FrequencyCell struct {
	Day   int `json:"day" yaml:"day"`
	Hour  int `json:"hour" yaml:"hour"`
	Count int `json:"count" yaml:"count"`
}

// HoldingComparison compares holding durations of wins and losses.
type HoldingComparison struct {
	WinMean    float64   `json:"win_mean" yaml:"win_mean"`
	WinMedian  float64   `json:"win_median" yaml:"win_median"`
	LossMean   float64   `json:"loss_mean" yaml:"loss_mean"`
	LossMedian float64   `json:"loss_median" yaml:"loss_median"`
	WinValues  []float64 `json:"win_values" yaml:"win_values"`
	LossValues []float64 `json:"loss_values" yaml:"loss_values"`
}

// ScatterPoint relates position size to outcome for one trade.
type ScatterPoint struct {
	PositionSize float64 `json:"position_size" yaml:"position_size"`
	PnL          float64 `json:"pnl" yaml:"pnl"`
	IsWin        bool    `json:"is_win" yaml:"is_win"`
	Asset        string  `json:"asset" yaml:"asset"`
}

// AnalysisResult is the complete session analysis bundle.
type AnalysisResult struct {
	TradeCount        int               `json:"trade_count" yaml:"trade_count"`
	Scores            []BiasScore       `json:"scores" yaml:"scores"`
	Archetype         Archetype         `json:"archetype" yaml:"archetype"`
	Summary           SummaryStats      `json:"feature_summary" yaml:"feature_summary"`
	Timeline          []TimelinePoint   `json:"bias_timeline" yaml:"bias_timeline"`
	EquityCurve       []EquityPoint     `json:"equity_curve" yaml:"equity_curve"`
	TradeFrequency    []FrequencyCell   `json:"trade_frequency" yaml:"trade_frequency"`
	HoldingComparison HoldingComparison `json:"holding_time_comparison" yaml:"holding_time_comparison"`
	PositionScatter   []ScatterPoint    `json:"position_scatter" yaml:"position_scatter"`

	// Enriched is kept for counterfactual replay and is not serialized.
	Enriched []EnrichedTrade `json:"-" yaml:"-"`
}

// Score returns the score for the given bias kind.
func (r *AnalysisResult) Score(kind BiasKind) (BiasScore, bool) {
	for _, s := range r.Scores {
		if s.Kind == kind {
			return s, true
		}
	}
	return BiasScore{}, false
}
