package bias

import (
	"math"

	"trade-bias-analyzer/internal/analysis/features"
	"trade-bias-analyzer/internal/analysis/stats"
	"trade-bias-analyzer/internal/models"
)

// Minimum losing trades before the streak/frequency correlation is trusted.
const minLossesForCorrelation = 10

var overtrading = struct {
	Frequency, PostLoss, Clustering, StreakCorr Signal
}{
	Frequency:  Signal{Name: "frequency", Weight: 0.40, Midpoint: 6, Steepness: 0.6},
	PostLoss:   Signal{Name: "post_loss_acceleration", Weight: 0.25, Midpoint: 0.3, Steepness: 6},
	Clustering: Signal{Name: "clustering", Weight: 0.20, Midpoint: 6, Steepness: 0.5},
	StreakCorr: Signal{Name: "streak_correlation", Weight: 0.15, Midpoint: 0.3, Steepness: 6},
}

// DetectOvertrading scores excessive trading frequency, faster re-entry
// after losses and trade clustering that grows with loss streaks.
func DetectOvertrading(trades []models.EnrichedTrade) models.BiasScore {
	c := NewComposite(models.BiasOvertrading)

	hours := features.DurationSeconds(trades) / 3600
	if hours > 0 {
		tph := float64(len(trades)) / hours
		c.Set("trades_per_hour", tph)
		c.Add(overtrading.Frequency, tph)
	} else {
		c.Omit(overtrading.Frequency, ReasonZeroDuration)
	}

	ctx := splitByContext(trades)
	switch {
	case len(ctx.afterLoss) == 0 || len(ctx.afterWin) == 0:
		c.Omit(overtrading.PostLoss, ReasonInsufficientData)
	default:
		lossGap := stats.Mean(timeSinceLast(ctx.afterLoss))
		winGap := stats.Mean(timeSinceLast(ctx.afterWin))
		if winGap <= 0 {
			c.Omit(overtrading.PostLoss, ReasonZeroDenominator)
			break
		}
		c.Set("mean_gap_after_loss_sec", lossGap)
		c.Set("mean_gap_after_win_sec", winGap)
		c.Add(overtrading.PostLoss, 1-lossGap/winGap)
	}

	if len(trades) > 0 {
		cluster := make([]float64, len(trades))
		for i, t := range trades {
			cluster[i] = float64(t.TradesIn1h)
		}
		density := stats.Mean(cluster)
		c.Set("mean_trades_in_1h", density)
		c.Add(overtrading.Clustering, density)
	} else {
		c.Omit(overtrading.Clustering, ReasonInsufficientData)
	}

	var streakLen, cluster []float64
	for _, t := range trades {
		if !t.IsWin {
			streakLen = append(streakLen, math.Abs(float64(t.StreakIndex)))
			cluster = append(cluster, float64(t.TradesIn1h))
		}
	}
	if len(streakLen) < minLossesForCorrelation {
		c.Omit(overtrading.StreakCorr, ReasonInsufficientData)
	} else if corr, ok := stats.Pearson(streakLen, cluster); !ok {
		c.Omit(overtrading.StreakCorr, ReasonZeroVariance)
	} else {
		c.Set("streak_correlation_r", corr.R)
		c.Set("streak_correlation_p", corr.PValue)
		c.Add(overtrading.StreakCorr, corr.R)
	}

	return c.Score()
}
