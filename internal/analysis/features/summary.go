package features

import (
	"math"
	"sort"

	"trade-bias-analyzer/internal/analysis/stats"
	"trade-bias-analyzer/internal/models"
)

const (
	// SharpeAnnualization is the factor applied to the per-trade Sharpe proxy.
	SharpeAnnualization = 252

	maxHoldingValues = 500
	maxScatterPoints = 1000
)

// Sharpe returns mean/std·√252 over the given PnL values, or 0 when the
// sample standard deviation is 0 or undefined.
func Sharpe(pnl []float64) float64 {
	sd := stats.StdDev(pnl)
	if sd == 0 {
		return 0
	}
	return stats.Mean(pnl) / sd * math.Sqrt(SharpeAnnualization)
}

// SummaryStats computes the session-level summary statistics.
func SummaryStats(trades []models.EnrichedTrade) models.SummaryStats {
	n := len(trades)
	if n == 0 {
		return models.SummaryStats{}
	}

	var wins, losses, winHold, lossHold []float64
	pnl := make([]float64, n)
	sizes := make([]float64, n)
	holds := make([]float64, n)
	maxDD := 0.0
	for i, t := range trades {
		pnl[i] = t.PnL
		sizes[i] = t.PositionSizePct
		holds[i] = t.HoldingDuration
		if t.IsWin {
			wins = append(wins, t.PnL)
			winHold = append(winHold, t.HoldingDuration)
		} else {
			losses = append(losses, t.PnL)
			lossHold = append(lossHold, t.HoldingDuration)
		}
		maxDD = math.Min(maxDD, t.DrawdownPct)
	}

	duration := DurationSeconds(trades) / 3600
	tph := 0.0
	if duration > 0 {
		tph = float64(n) / duration
	}

	return models.SummaryStats{
		TotalTrades:       n,
		WinRate:           float64(len(wins)) / float64(n) * 100,
		AvgWin:            stats.Mean(wins),
		AvgLoss:           stats.Mean(losses),
		AvgHoldingWinSec:  stats.Mean(winHold),
		AvgHoldingLossSec: stats.Mean(lossHold),
		TradesPerHour:     tph,
		SharpeRatio:       Sharpe(pnl),
		MaxDrawdownPct:    maxDD,
		FinalBalance:      trades[n-1].Balance,
		TotalPnL:          stats.Sum(pnl),
		DurationHours:     duration,
		PositionSizeStd:   stats.StdDev(sizes),
		HoldingTimeStd:    stats.StdDev(holds),
	}
}

// EquityCurve returns one balance/drawdown point per trade.
func EquityCurve(trades []models.EnrichedTrade) []models.EquityPoint {
	curve := make([]models.EquityPoint, len(trades))
	for i, t := range trades {
		curve[i] = models.EquityPoint{
			Timestamp: t.Timestamp,
			Balance:   t.Balance,
			Drawdown:  t.DrawdownPct,
		}
	}
	return curve
}

// TradeFrequency counts trades per weekday (0 = Monday) and hour of day,
// sorted by day then hour. Empty buckets are not emitted.
func TradeFrequency(trades []models.EnrichedTrade) []models.FrequencyCell {
	counts := make(map[[2]int]int)
	for _, t := range trades {
		day := (int(t.Timestamp.Weekday()) + 6) % 7
		counts[[2]int{day, t.Timestamp.Hour()}]++
	}

	cells := make([]models.FrequencyCell, 0, len(counts))
	for k, c := range counts {
		cells = append(cells, models.FrequencyCell{Day: k[0], Hour: k[1], Count: c})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Day != cells[j].Day {
			return cells[i].Day < cells[j].Day
		}
		return cells[i].Hour < cells[j].Hour
	})
	return cells
}

// HoldingComparison compares holding durations of winning and losing trades.
func HoldingComparison(trades []models.EnrichedTrade) models.HoldingComparison {
	var wins, losses []float64
	for _, t := range trades {
		if t.IsWin {
			wins = append(wins, t.HoldingDuration)
		} else {
			losses = append(losses, t.HoldingDuration)
		}
	}

	return models.HoldingComparison{
		WinMean:    stats.Mean(wins),
		WinMedian:  stats.Median(wins),
		LossMean:   stats.Mean(losses),
		LossMedian: stats.Median(losses),
		WinValues:  capValues(wins, maxHoldingValues),
		LossValues: capValues(losses, maxHoldingValues),
	}
}

func capValues(values []float64, limit int) []float64 {
	if len(values) > limit {
		values = values[:limit]
	}
	out := make([]float64, len(values))
	copy(out, values)
	return out
}

// PositionScatter relates position size to outcome. Sessions larger than
// 1000 trades are down-sampled with a fixed stride.
func PositionScatter(trades []models.EnrichedTrade) []models.ScatterPoint {
	n := len(trades)
	size := n
	if size > maxScatterPoints {
		size = maxScatterPoints
	}

	points := make([]models.ScatterPoint, size)
	for i := 0; i < size; i++ {
		t := trades[i*n/size]
		points[i] = models.ScatterPoint{
			PositionSize: t.PositionSizePct,
			PnL:          t.PnL,
			IsWin:        t.IsWin,
			Asset:        t.Asset,
		}
	}
	return points
}
