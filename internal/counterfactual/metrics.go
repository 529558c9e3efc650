package counterfactual

import (
	"math"

	"trade-bias-analyzer/internal/analysis/features"
	"trade-bias-analyzer/internal/analysis/stats"
	"trade-bias-analyzer/internal/models"
	"trade-bias-analyzer/pkg/utils"
)

// Metric keys of the improvement map.
const (
	MetricTotalTrades  = "total_trades"
	MetricTotalPnL     = "total_pnl"
	MetricFinalBalance = "final_balance"
	MetricMaxDrawdown  = "max_drawdown_pct"
	MetricSharpe       = "sharpe_ratio"
	MetricVolatility   = "volatility"
	MetricWinRate      = "win_rate"
)

// MetricKeys lists every compared metric.
var MetricKeys = []string{
	MetricTotalTrades,
	MetricTotalPnL,
	MetricFinalBalance,
	MetricMaxDrawdown,
	MetricSharpe,
	MetricVolatility,
	MetricWinRate,
}

// lowerIsBetter marks metrics whose improvement sign is flipped.
var lowerIsBetter = map[string]bool{
	MetricMaxDrawdown: true,
	MetricVolatility:  true,
}

// ComputeMetrics computes the metric set for a PnL path and the balance
// after each trade. Max drawdown is reported as a positive magnitude.
func ComputeMetrics(pnl, balances []float64) models.Metrics {
	n := len(pnl)
	if n == 0 {
		return models.Metrics{}
	}

	var wins int
	for _, p := range pnl {
		if p > 0 {
			wins++
		}
	}

	peak := math.Inf(-1)
	worst := 0.0
	for _, b := range balances {
		peak = math.Max(peak, b)
		worst = math.Min(worst, drawdownPct(b, peak))
	}

	return models.Metrics{
		TotalTrades:    n,
		TotalPnL:       utils.Round(stats.Sum(pnl), 2),
		FinalBalance:   utils.Round(balances[len(balances)-1], 2),
		MaxDrawdownPct: utils.Round(math.Abs(worst), 2),
		SharpeRatio:    utils.Round(features.Sharpe(pnl), 4),
		Volatility:     utils.Round(stats.StdDev(pnl), 2),
		WinRate:        utils.Round(float64(wins)/float64(n)*100, 2),
	}
}

func drawdownPct(balance, peak float64) float64 {
	if peak == 0 {
		return 0
	}
	return (balance - peak) / math.Abs(peak) * 100
}

func originalMetrics(trades []models.EnrichedTrade) models.Metrics {
	pnl := make([]float64, len(trades))
	balances := make([]float64, len(trades))
	for i, t := range trades {
		pnl[i] = t.PnL
		balances[i] = t.Balance
	}
	return ComputeMetrics(pnl, balances)
}

func simulatedMetrics(kept []models.SimulatedTrade) models.Metrics {
	pnl := make([]float64, len(kept))
	balances := make([]float64, len(kept))
	for i, t := range kept {
		pnl[i] = t.PnL
		balances[i] = t.Balance
	}
	return ComputeMetrics(pnl, balances)
}

// Improvement returns (simulated − original) / |original| × 100 per metric,
// sign-flipped for drawdown and volatility so that a positive value always
// means the constrained replay did better. A zero original yields 0.
func Improvement(original, simulated models.Metrics) map[string]float64 {
	o, s := metricValues(original), metricValues(simulated)
	out := make(map[string]float64, len(MetricKeys))
	for _, key := range MetricKeys {
		if o[key] == 0 {
			out[key] = 0
			continue
		}
		change := (s[key] - o[key]) / math.Abs(o[key]) * 100
		if lowerIsBetter[key] {
			change = -change
		}
		out[key] = utils.Round(change, 2)
	}
	return out
}

func zeroImprovement() map[string]float64 {
	out := make(map[string]float64, len(MetricKeys))
	for _, key := range MetricKeys {
		out[key] = 0
	}
	return out
}

func metricValues(m models.Metrics) map[string]float64 {
	return map[string]float64{
		MetricTotalTrades:  float64(m.TotalTrades),
		MetricTotalPnL:     m.TotalPnL,
		MetricFinalBalance: m.FinalBalance,
		MetricMaxDrawdown:  m.MaxDrawdownPct,
		MetricSharpe:       m.SharpeRatio,
		MetricVolatility:   m.Volatility,
		MetricWinRate:      m.WinRate,
	}
}
