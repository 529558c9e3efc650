// Package analysis provides behavioral analysis of trade sessions including
// feature derivation, bias detection, archetype classification and timelines.
package analysis

import (
	"trade-bias-analyzer/internal/models"
)

// Detector scores one behavioral bias over a trade subset. Implementations
// must be pure: the same input yields the same score and the input is never
// modified.
type Detector interface {
	Kind() models.BiasKind
	Detect(trades []models.EnrichedTrade) models.BiasScore
}

// DominantBias returns the bias with the highest score. Ties are broken by
// the fixed bias priority order.
func DominantBias(scores []models.BiasScore) models.BiasKind {
	if len(scores) == 0 {
		return models.BiasKinds[0]
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score || (s.Score == best.Score && s.Kind.Priority() < best.Kind.Priority()) {
			best = s
		}
	}
	return best.Kind
}

// MeanScore returns the mean of the given bias scores.
func MeanScore(scores []models.BiasScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	var total float64
	for _, s := range scores {
		total += s.Score
	}
	return total / float64(len(scores))
}
