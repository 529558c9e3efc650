package bias

import (
	"math"

	"trade-bias-analyzer/internal/analysis/stats"
	"trade-bias-analyzer/internal/models"
)

const (
	paradoxWinRate = 0.55
	minLossesSkew  = 3
)

var lossAversion = struct {
	Magnitude, Holding, Skew, Paradox Signal
}{
	Magnitude: Signal{Name: "magnitude_asymmetry", Weight: 0.45, Midpoint: 0.4, Steepness: 6},
	Holding:   Signal{Name: "holding_asymmetry", Weight: 0.20, Midpoint: 0.5, Steepness: 4},
	Skew:      Signal{Name: "loss_skew", Weight: 0.15, Midpoint: 0.5, Steepness: 5},
	Paradox:   Signal{Name: "win_rate_paradox", Weight: 0.20, Midpoint: 0.25, Steepness: 8},
}

// DetectLossAversion scores outsized losses relative to wins, holding losers
// longer than winners and fat-tailed losses.
func DetectLossAversion(trades []models.EnrichedTrade) models.BiasScore {
	c := NewComposite(models.BiasLossAversion)

	wins, losses := splitOutcome(trades)
	winMag := stats.Mean(absPnls(wins))
	lossMags := absPnls(losses)
	lossMag := stats.Mean(lossMags)

	magnitude, haveMagnitude := 0.0, false
	switch {
	case len(wins) == 0 || len(losses) == 0:
		c.Omit(lossAversion.Magnitude, ReasonInsufficientData)
	case winMag == 0:
		c.Omit(lossAversion.Magnitude, ReasonZeroDenominator)
	default:
		magnitude, haveMagnitude = lossMag/winMag, true
		c.Set("magnitude_ratio", magnitude)
		c.Add(lossAversion.Magnitude, math.Log(1+math.Max(magnitude-1, 0)))
	}

	ctxWins, ctxLosses := splitOutcome(withContext(trades))
	winHold := holdings(ctxWins)
	lossHold := holdings(ctxLosses)
	switch {
	case len(winHold) == 0 || len(lossHold) == 0:
		c.Omit(lossAversion.Holding, ReasonInsufficientData)
	case stats.Mean(winHold) <= 0:
		c.Omit(lossAversion.Holding, ReasonZeroDenominator)
	default:
		ratio := stats.Mean(lossHold) / stats.Mean(winHold)
		c.Set("holding_ratio", ratio)
		if tt, ok := stats.WelchTTest(lossHold, winHold); ok {
			c.Set("holding_t", tt.T)
			c.Set("holding_p", tt.PValue)
		}
		c.Add(lossAversion.Holding, ratio-1)
	}

	median := stats.Median(lossMags)
	switch {
	case len(losses) < minLossesSkew:
		c.Omit(lossAversion.Skew, ReasonInsufficientData)
	case median == 0:
		c.Omit(lossAversion.Skew, ReasonZeroDenominator)
	default:
		skew := lossMag / median
		c.Set("loss_skew_ratio", skew)
		c.Add(lossAversion.Skew, skew-1)
	}

	winRate := 0.0
	if len(trades) > 0 {
		winRate = float64(len(wins)) / float64(len(trades))
	}
	c.Set("win_rate", winRate)
	active := haveMagnitude && winRate >= paradoxWinRate && magnitude > 1
	c.Set("win_rate_paradox_active", active)
	if active {
		c.Add(lossAversion.Paradox, magnitude-1)
	} else {
		c.Omit(lossAversion.Paradox, ReasonInactive)
	}

	return c.Score()
}
