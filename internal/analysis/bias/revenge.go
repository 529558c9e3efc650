package bias

import (
	"math"

	"trade-bias-analyzer/internal/analysis/stats"
	"trade-bias-analyzer/internal/models"
)

const significanceLevel = 0.05

var revenge = struct {
	Deterioration, DeteriorationWeak, Expectancy, Escalation, Volatility, Aggression Signal
}{
	Deterioration:     Signal{Name: "deterioration", Weight: 0.20, Midpoint: 0.3, Steepness: 4},
	DeteriorationWeak: Signal{Name: "deterioration", Weight: 0.20, Midpoint: 0.8, Steepness: 3},
	Expectancy:        Signal{Name: "negative_expectancy", Weight: 0.20, Midpoint: 0.1, Steepness: 8},
	Escalation:        Signal{Name: "loss_escalation", Weight: 0.25, Midpoint: 0.3, Steepness: 5},
	Volatility:        Signal{Name: "volatility_spike", Weight: 0.20, Midpoint: 0.5, Steepness: 4},
	Aggression:        Signal{Name: "aggression", Weight: 0.15, Midpoint: 1.2, Steepness: 8},
}

// DetectRevengeTrading scores worse, larger and more volatile trading
// immediately after losses. Deterioration and expectancy compare per-trade
// returns (PnL per unit of notional); sizing is covered by aggression and
// escalation.
func DetectRevengeTrading(trades []models.EnrichedTrade) models.BiasScore {
	c := NewComposite(models.BiasRevengeTrading)

	ctx := splitByContext(trades)
	lossPnL := pnls(ctx.afterLoss)
	winPnL := pnls(ctx.afterWin)
	lossRet := returns(ctx.afterLoss)
	winRet := returns(ctx.afterWin)

	pooled := stats.StdDev(append(append([]float64{}, lossRet...), winRet...))
	switch {
	case len(lossRet) < 2 || len(winRet) < 2:
		c.Omit(revenge.Deterioration, ReasonInsufficientData)
	case pooled == 0:
		c.Omit(revenge.Deterioration, ReasonZeroVariance)
	default:
		gap := (stats.Mean(winRet) - stats.Mean(lossRet)) / pooled
		c.Set("deterioration_gap", gap)
		tt, ok := stats.WelchTTest(winRet, lossRet)
		significant := ok && tt.PValue < significanceLevel
		if ok {
			c.Set("deterioration_t", tt.T)
			c.Set("deterioration_p", tt.PValue)
		}
		c.Set("deterioration_significant", significant)
		if significant {
			c.Add(revenge.Deterioration, gap)
		} else {
			c.Add(revenge.DeteriorationWeak, gap)
		}
	}

	meanAbs := stats.Mean(absValues(returns(trades)))
	switch {
	case len(lossRet) == 0:
		c.Omit(revenge.Expectancy, ReasonInsufficientData)
	case meanAbs == 0:
		c.Omit(revenge.Expectancy, ReasonZeroDenominator)
	default:
		expectancy := stats.Mean(lossRet)
		c.Set("expectancy_after_loss", expectancy)
		c.Set("mean_pnl_after_loss", stats.Mean(lossPnL))
		c.Add(revenge.Expectancy, -expectancy/meanAbs)
	}

	if ratios := escalationRatios(trades); len(ratios) == 0 {
		c.Omit(revenge.Escalation, ReasonInsufficientData)
	} else {
		r := stats.Mean(ratios)
		c.Set("escalation_ratio", r)
		c.Set("loss_streaks", len(ratios))
		c.Add(revenge.Escalation, r-1)
	}

	winStd := stats.StdDev(winPnL)
	switch {
	case len(lossPnL) < 2 || len(winPnL) < 2:
		c.Omit(revenge.Volatility, ReasonInsufficientData)
	case winStd == 0:
		c.Omit(revenge.Volatility, ReasonZeroDenominator)
	default:
		v := stats.StdDev(lossPnL) / winStd
		c.Set("volatility_ratio", v)
		c.Add(revenge.Volatility, v-1)
	}

	winNotional := stats.Mean(notionals(ctx.afterWin))
	switch {
	case len(ctx.afterLoss) == 0 || len(ctx.afterWin) == 0:
		c.Omit(revenge.Aggression, ReasonInsufficientData)
	case winNotional == 0:
		c.Omit(revenge.Aggression, ReasonZeroDenominator)
	default:
		a := stats.Mean(notionals(ctx.afterLoss)) / winNotional
		c.Set("aggression_index", a)
		c.Add(revenge.Aggression, a)
	}

	return c.Score()
}

// escalationRatios returns |second loss| / |first loss| for every run of at
// least two consecutive losses in the subset.
func escalationRatios(trades []models.EnrichedTrade) []float64 {
	var ratios []float64
	for i := 0; i < len(trades); {
		if trades[i].IsWin {
			i++
			continue
		}
		j := i
		for j < len(trades) && !trades[j].IsWin {
			j++
		}
		if j-i >= 2 {
			first := math.Abs(trades[i].PnL)
			if first > 0 {
				ratios = append(ratios, math.Abs(trades[i+1].PnL)/first)
			}
		}
		i = j
	}
	return ratios
}
