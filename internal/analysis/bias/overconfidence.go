package bias

import (
	"math"

	"trade-bias-analyzer/internal/analysis/stats"
	"trade-bias-analyzer/internal/models"
)

const (
	minStreakTradesConcentration = 3
	overextensionStreak          = 3
	// Drawdown, in percent, separating "near equity highs" from "in drawdown".
	riskDriftDrawdownPct = -1.0
)

var overconfidence = struct {
	SizeEscalation, Cadence, Concentration, Overextension, RiskDrift Signal
}{
	SizeEscalation: Signal{Name: "size_escalation", Weight: 0.25, Midpoint: 1.2, Steepness: 8},
	Cadence:        Signal{Name: "streak_cadence", Weight: 0.25, Midpoint: 0.3, Steepness: 6},
	Concentration:  Signal{Name: "concentration_creep", Weight: 0.15, Midpoint: 0.15, Steepness: 10},
	Overextension:  Signal{Name: "overextension", Weight: 0.20, Midpoint: 0.5, Steepness: 4},
	RiskDrift:      Signal{Name: "risk_drift", Weight: 0.15, Midpoint: 0.3, Steepness: 5},
}

// DetectOverconfidence scores sizing up after wins, faster trading and
// narrower focus during win streaks, large losses ending long streaks and
// bigger positions near equity highs.
func DetectOverconfidence(trades []models.EnrichedTrade) models.BiasScore {
	c := NewComposite(models.BiasOverconfidence)

	var growth []float64
	for i := 1; i < len(trades); i++ {
		prev := trades[i-1]
		if prev.IsWin && prev.Notional > 0 {
			growth = append(growth, trades[i].Notional/prev.Notional)
		}
	}
	if len(growth) == 0 {
		c.Omit(overconfidence.SizeEscalation, ReasonInsufficientData)
	} else {
		g := stats.Mean(growth)
		c.Set("size_growth_after_win", g)
		c.Add(overconfidence.SizeEscalation, g)
	}

	var streak, other []models.EnrichedTrade
	for _, t := range trades {
		if t.StreakIndex >= 2 {
			streak = append(streak, t)
		} else if t.HasPrevious() {
			other = append(other, t)
		}
	}
	streakGap := stats.Mean(timeSinceLast(streak))
	otherGap := stats.Mean(timeSinceLast(other))
	switch {
	case len(streak) == 0 || len(other) == 0:
		c.Omit(overconfidence.Cadence, ReasonInsufficientData)
	case otherGap <= 0:
		c.Omit(overconfidence.Cadence, ReasonZeroDenominator)
	default:
		c.Set("mean_gap_in_streak_sec", streakGap)
		c.Set("mean_gap_other_sec", otherGap)
		c.Add(overconfidence.Cadence, 1-streakGap/otherGap)
	}

	if len(streak) < minStreakTradesConcentration {
		c.Omit(overconfidence.Concentration, ReasonInsufficientData)
	} else {
		creep := herfindahl(streak) - herfindahl(trades)
		c.Set("concentration_creep", creep)
		c.Add(overconfidence.Concentration, creep)
	}

	_, losses := splitOutcome(trades)
	meanLoss := stats.Mean(absPnls(losses))
	if ratios := overextensionRatios(trades, meanLoss); len(ratios) == 0 {
		c.Omit(overconfidence.Overextension, ReasonInsufficientData)
	} else {
		r := stats.Mean(ratios)
		c.Set("overextension_ratio", r)
		c.Add(overconfidence.Overextension, r-1)
	}

	var high, low []float64
	for _, t := range trades {
		if t.DrawdownPct > riskDriftDrawdownPct {
			high = append(high, t.PositionSizePct)
		} else {
			low = append(low, t.PositionSizePct)
		}
	}
	lowMean := stats.Mean(low)
	switch {
	case len(high) == 0 || len(low) == 0:
		c.Omit(overconfidence.RiskDrift, ReasonInsufficientData)
	case lowMean <= 0:
		c.Omit(overconfidence.RiskDrift, ReasonZeroDenominator)
	default:
		drift := stats.Mean(high) / lowMean
		c.Set("risk_drift_ratio", drift)
		c.Add(overconfidence.RiskDrift, drift-1)
	}

	return c.Score()
}

// herfindahl returns the asset concentration index (sum of squared shares).
func herfindahl(trades []models.EnrichedTrade) float64 {
	if len(trades) == 0 {
		return 0
	}
	counts := make(map[string]int)
	for _, t := range trades {
		counts[t.Asset]++
	}
	var hhi float64
	for _, n := range counts {
		share := float64(n) / float64(len(trades))
		hhi += share * share
	}
	return hhi
}

// overextensionRatios returns |loss| / meanLoss for every loss that ends a
// win streak of at least three trades.
func overextensionRatios(trades []models.EnrichedTrade, meanLoss float64) []float64 {
	if meanLoss == 0 {
		return nil
	}
	var ratios []float64
	run := 0
	for _, t := range trades {
		if t.IsWin {
			run++
			continue
		}
		if run >= overextensionStreak {
			ratios = append(ratios, math.Abs(t.PnL)/meanLoss)
		}
		run = 0
	}
	return ratios
}
