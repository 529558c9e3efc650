// Package archetype classifies a session into one of four fixed trader
// archetypes using a nearest-prototype rule.
package archetype

import (
	"math"

	"trade-bias-analyzer/internal/analysis/stats"
	"trade-bias-analyzer/internal/models"
)

// Normalization scales for the raw features.
const (
	positionStdScale = 20.0   // percent of balance
	drawdownScale    = 25.0   // percent
	frequencyScale   = 10.0   // trades per hour
	holdingStdScale  = 7200.0 // seconds
)

// Feature indices into a Vector.
const (
	PositionVariability = iota
	DrawdownTolerance
	TradingFrequency
	HoldingVariability
	EmotionalBias
	ConfidenceBias
	numFeatures
)

var featureNames = [numFeatures]string{
	"position_variability",
	"drawdown_tolerance",
	"trading_frequency",
	"holding_variability",
	"emotional_bias",
	"confidence_bias",
}

// Bias features are weighted heavily against the behavioral statistics.
var featureWeights = [numFeatures]float64{1, 1, 1, 1, 3, 3}

// Vector is a normalized feature vector with every component in [0, 1].
type Vector [numFeatures]float64

var prototypes = map[models.ArchetypeLabel]Vector{
	models.ArchetypeSystematicDisciplined:   {0.05, 0.05, 0.10, 0.10, 0.10, 0.10},
	models.ArchetypeAggressiveOpportunistic: {0.50, 0.50, 0.80, 0.30, 0.30, 0.80},
	models.ArchetypeEmotionallyReactive:     {0.60, 0.50, 0.40, 0.50, 0.80, 0.30},
	models.ArchetypeConservativeDefensive:   {0.02, 0.02, 0.02, 0.60, 0.10, 0.05},
}

// Features builds the normalized feature vector. The emotional component is
// the larger of the revenge-trading and loss-aversion scores, the confidence
// component the larger of the overtrading and overconfidence scores.
func Features(summary models.SummaryStats, scores []models.BiasScore) Vector {
	byKind := make(map[models.BiasKind]float64, len(scores))
	for _, s := range scores {
		byKind[s.Kind] = s.Score
	}

	emotional := math.Max(byKind[models.BiasRevengeTrading], byKind[models.BiasLossAversion])
	confidence := math.Max(byKind[models.BiasOvertrading], byKind[models.BiasOverconfidence])

	return Vector{
		normalize(summary.PositionSizeStd, positionStdScale),
		normalize(math.Abs(summary.MaxDrawdownPct), drawdownScale),
		normalize(summary.TradesPerHour, frequencyScale),
		normalize(summary.HoldingTimeStd, holdingStdScale),
		normalize(emotional, 100),
		normalize(confidence, 100),
	}
}

func normalize(v, scale float64) float64 {
	if !stats.Finite(v) {
		return 0
	}
	return stats.Clamp(v/scale, 0, 1)
}

// Distance is the weighted Euclidean distance between two vectors.
func Distance(a, b Vector) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += featureWeights[i] * d * d
	}
	return math.Sqrt(sum)
}

// Classify picks the archetype whose prototype is closest to the session.
// Ties go to the label listed first in models.ArchetypeLabels.
func Classify(summary models.SummaryStats, scores []models.BiasScore) models.Archetype {
	v := Features(summary, scores)

	best := models.ArchetypeLabels[0]
	bestDist := math.Inf(1)
	distances := make(map[string]float64, len(prototypes))
	for _, label := range models.ArchetypeLabels {
		d := Distance(v, prototypes[label])
		distances[string(label)] = round4(d)
		if d < bestDist {
			best, bestDist = label, d
		}
	}

	normalized := make(map[string]float64, numFeatures)
	for i, name := range featureNames {
		normalized[name] = round4(v[i])
	}

	meanBias := 0.0
	if len(scores) > 0 {
		for _, s := range scores {
			meanBias += s.Score
		}
		meanBias /= float64(len(scores))
	}

	return models.Archetype{
		Label:       best,
		Description: best.Description(),
		Details: map[string]interface{}{
			"position_size_std":    round4(summary.PositionSizeStd),
			"max_drawdown_pct":     round4(summary.MaxDrawdownPct),
			"trades_per_hour":      round4(summary.TradesPerHour),
			"holding_time_std_sec": round4(summary.HoldingTimeStd),
			"mean_bias_score":      round4(meanBias),
			"features":             normalized,
			"distances":            distances,
		},
	}
}

func round4(v float64) float64 {
	if !stats.Finite(v) {
		return 0
	}
	return math.Round(v*1e4) / 1e4
}
