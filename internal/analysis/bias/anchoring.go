package bias

import (
	"math"

	"trade-bias-analyzer/internal/analysis/stats"
	"trade-bias-analyzer/internal/models"
)

const (
	anchoredExitTolerance = 0.002
	zeroPnLFraction       = 0.1
	roundNumberTolerance  = 0.001
)

var anchoring = struct {
	Anchored, ZeroCluster, RoundNumbers Signal
}{
	Anchored:     Signal{Name: "anchored_exits", Weight: 0.40, Midpoint: 0.25, Steepness: 15},
	ZeroCluster:  Signal{Name: "zero_clustering", Weight: 0.35, Midpoint: 0.2, Steepness: 15},
	RoundNumbers: Signal{Name: "round_numbers", Weight: 0.25, Midpoint: 0.3, Steepness: 12},
}

// DetectAnchoring scores exits pinned to the entry price, near-zero PnL
// clustering and exits at round price levels.
func DetectAnchoring(trades []models.EnrichedTrade) models.BiasScore {
	c := NewComposite(models.BiasAnchoring)

	n := float64(len(trades))
	if n == 0 {
		c.Omit(anchoring.Anchored, ReasonInsufficientData)
		c.Omit(anchoring.ZeroCluster, ReasonInsufficientData)
		c.Omit(anchoring.RoundNumbers, ReasonInsufficientData)
		return c.Score()
	}

	var anchored, round int
	for _, t := range trades {
		if t.EntryPrice > 0 && math.Abs(t.ExitPrice-t.EntryPrice)/t.EntryPrice <= anchoredExitTolerance {
			anchored++
		}
		if nearRoundNumber(t.ExitPrice) {
			round++
		}
	}
	c.Set("anchored_fraction", float64(anchored)/n)
	c.Add(anchoring.Anchored, float64(anchored)/n)

	mags := absPnls(trades)
	median := stats.Median(mags)
	var near int
	for _, m := range mags {
		if (median > 0 && m < zeroPnLFraction*median) || (median == 0 && m == 0) {
			near++
		}
	}
	c.Set("median_abs_pnl", median)
	c.Set("zero_cluster_fraction", float64(near)/n)
	c.Add(anchoring.ZeroCluster, float64(near)/n)

	c.Set("round_exit_fraction", float64(round)/n)
	c.Add(anchoring.RoundNumbers, float64(round)/n)

	return c.Score()
}

// nearRoundNumber reports whether price lies within 0.1% of a multiple of
// the step one decade below its magnitude (10 for prices in [100, 1000)).
func nearRoundNumber(price float64) bool {
	if price <= 0 || !stats.Finite(price) {
		return false
	}
	step := math.Pow(10, math.Floor(math.Log10(price))-1)
	nearest := math.Round(price/step) * step
	return math.Abs(price-nearest)/price <= roundNumberTolerance
}
