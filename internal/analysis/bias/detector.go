package bias

import (
	"math"

	"trade-bias-analyzer/internal/analysis"
	"trade-bias-analyzer/internal/models"
)

type detectorFunc struct {
	kind models.BiasKind
	fn   func([]models.EnrichedTrade) models.BiasScore
}

func (d detectorFunc) Kind() models.BiasKind { return d.kind }

func (d detectorFunc) Detect(trades []models.EnrichedTrade) models.BiasScore {
	return d.fn(trades)
}

// Detectors returns the five bias detectors in priority order.
func Detectors() []analysis.Detector {
	return []analysis.Detector{
		detectorFunc{models.BiasOvertrading, DetectOvertrading},
		detectorFunc{models.BiasLossAversion, DetectLossAversion},
		detectorFunc{models.BiasRevengeTrading, DetectRevengeTrading},
		detectorFunc{models.BiasAnchoring, DetectAnchoring},
		detectorFunc{models.BiasOverconfidence, DetectOverconfidence},
	}
}

// DetectAllSequential runs every detector on the calling goroutine.
func DetectAllSequential(trades []models.EnrichedTrade) []models.BiasScore {
	detectors := Detectors()
	scores := make([]models.BiasScore, len(detectors))
	for i, d := range detectors {
		scores[i] = d.Detect(trades)
	}
	return scores
}

// conditional splits the trades by previous-trade context.
type conditional struct {
	afterLoss []models.EnrichedTrade
	afterWin  []models.EnrichedTrade
}

func splitByContext(trades []models.EnrichedTrade) conditional {
	var c conditional
	for _, t := range trades {
		switch {
		case t.AfterLoss:
			c.afterLoss = append(c.afterLoss, t)
		case t.AfterWin:
			c.afterWin = append(c.afterWin, t)
		}
	}
	return c
}

func pnls(trades []models.EnrichedTrade) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.PnL
	}
	return out
}

func absPnls(trades []models.EnrichedTrade) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = math.Abs(t.PnL)
	}
	return out
}

// returns gives PnL per unit of notional, skipping zero-notional trades.
func returns(trades []models.EnrichedTrade) []float64 {
	out := make([]float64, 0, len(trades))
	for _, t := range trades {
		if t.Notional > 0 {
			out = append(out, t.PnL/t.Notional)
		}
	}
	return out
}

func absValues(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Abs(v)
	}
	return out
}

func notionals(trades []models.EnrichedTrade) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.Notional
	}
	return out
}

func timeSinceLast(trades []models.EnrichedTrade) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.TimeSinceLast
	}
	return out
}

func holdings(trades []models.EnrichedTrade) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.HoldingDuration
	}
	return out
}

func splitOutcome(trades []models.EnrichedTrade) (wins, losses []models.EnrichedTrade) {
	for _, t := range trades {
		if t.IsWin {
			wins = append(wins, t)
		} else {
			losses = append(losses, t)
		}
	}
	return wins, losses
}

func withContext(trades []models.EnrichedTrade) []models.EnrichedTrade {
	var out []models.EnrichedTrade
	for _, t := range trades {
		if t.HasPrevious() {
			out = append(out, t)
		}
	}
	return out
}
