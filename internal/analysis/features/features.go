// Package features derives per-trade behavioral signals from a raw trade
// sequence.
package features

import (
	"math"
	"sort"
	"time"

	"trade-bias-analyzer/internal/errors"
	"trade-bias-analyzer/internal/models"
)

const (
	window1h = time.Hour
	window4h = 4 * time.Hour
)

// Build enriches an ordered trade sequence. The output has the same length
// as the input and is sorted by timestamp (stable for equal timestamps).
// The input slice is not modified.
func Build(trades []models.TradeRecord) ([]models.EnrichedTrade, error) {
	if len(trades) == 0 {
		return nil, errors.NewInsufficientDataError("feature build", 1, 0)
	}

	records := make([]models.TradeRecord, len(trades))
	copy(records, trades)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	n := len(records)
	out := make([]models.EnrichedTrade, n)

	peak := math.Inf(-1)
	streak := 0
	for i, r := range records {
		e := models.EnrichedTrade{TradeRecord: r}
		e.IsWin = r.PnL > 0
		e.Notional = r.Quantity * r.EntryPrice

		prevBalance := r.Balance
		if i > 0 {
			prevBalance = records[i-1].Balance
		}
		if prevBalance != 0 {
			e.PnLPercent = r.PnL / prevBalance * 100
		}

		if r.Balance != 0 {
			e.PositionSizePct = e.Notional / math.Abs(r.Balance) * 100
		}

		if i > 0 {
			e.TimeSinceLast = r.Timestamp.Sub(records[i-1].Timestamp).Seconds()
		}
		e.HoldingDuration = e.TimeSinceLast

		peak = math.Max(peak, r.Balance)
		e.PeakBalance = peak
		if peak != 0 {
			e.DrawdownPct = (r.Balance - peak) / math.Abs(peak) * 100
		}

		// Signed run length, reset whenever the outcome flips.
		switch {
		case i > 0 && e.IsWin == out[i-1].IsWin && e.IsWin:
			streak++
		case i > 0 && e.IsWin == out[i-1].IsWin:
			streak--
		case e.IsWin:
			streak = 1
		default:
			streak = -1
		}
		e.StreakIndex = streak

		if i > 0 {
			prev := out[i-1]
			e.AfterWin = prev.IsWin
			e.AfterLoss = !prev.IsWin
			if prev.Notional != 0 {
				e.SizeDelta = (e.Notional - prev.Notional) / prev.Notional
			}
		}

		out[i] = e
	}

	countTrailing(out, window1h, func(e *models.EnrichedTrade, c int) { e.TradesIn1h = c })
	countTrailing(out, window4h, func(e *models.EnrichedTrade, c int) { e.TradesIn4h = c })

	return out, nil
}

// countTrailing counts, for each trade, the trades with timestamps in
// [t-window, t] using a monotonic two-pointer sweep. Trades sharing the
// timestamp t are all counted.
func countTrailing(trades []models.EnrichedTrade, window time.Duration, set func(*models.EnrichedTrade, int)) {
	lo, hi := 0, 0
	for i := range trades {
		t := trades[i].Timestamp
		for hi+1 < len(trades) && !trades[hi+1].Timestamp.After(t) {
			hi++
		}
		start := t.Add(-window)
		for trades[lo].Timestamp.Before(start) {
			lo++
		}
		set(&trades[i], hi-lo+1)
	}
}

// DurationSeconds returns the span between the first and last trade.
func DurationSeconds(trades []models.EnrichedTrade) float64 {
	if len(trades) < 2 {
		return 0
	}
	return trades[len(trades)-1].Timestamp.Sub(trades[0].Timestamp).Seconds()
}
