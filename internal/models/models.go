// Package models provides domain models for trade session analysis.
package models

import (
	"time"
)

// Side represents the side of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// BiasKind identifies one of the five behavioral biases.
type BiasKind string

const (
	BiasOvertrading    BiasKind = "overtrading"
	BiasLossAversion   BiasKind = "loss_aversion"
	BiasRevengeTrading BiasKind = "revenge_trading"
	BiasAnchoring      BiasKind = "anchoring"
	BiasOverconfidence BiasKind = "overconfidence"
)

// BiasKinds lists every bias in priority order. The order is used to break
// ties when picking a dominant bias.
var BiasKinds = []BiasKind{
	BiasOvertrading,
	BiasLossAversion,
	BiasRevengeTrading,
	BiasAnchoring,
	BiasOverconfidence,
}

// Priority returns the tie-break rank of the bias (lower wins).
func (k BiasKind) Priority() int {
	for i, kind := range BiasKinds {
		if kind == k {
			return i
		}
	}
	return len(BiasKinds)
}

// Band is the categorical bucket of a bias score.
type Band string

const (
	BandDisciplined Band = "disciplined"
	BandElevated    Band = "elevated"
	BandHighRisk    Band = "high_risk"
)

// BandFor maps a score to its band: < 30 disciplined, < 60 elevated,
// otherwise high risk.
func BandFor(score float64) Band {
	switch {
	case score < 30:
		return BandDisciplined
	case score < 60:
		return BandElevated
	default:
		return BandHighRisk
	}
}

// BiasScore is the scored result of one bias detector.
type BiasScore struct {
	Kind    BiasKind               `json:"kind" yaml:"kind"`
	Score   float64                `json:"score" yaml:"score"`
	Band    Band                   `json:"band" yaml:"band"`
	Details map[string]interface{} `json:"details" yaml:"details"`
}

// TimelinePoint holds the bias scores for one sliding window.
type TimelinePoint struct {
	WindowStart  time.Time              `json:"window_start" yaml:"window_start"`
	WindowEnd    time.Time              `json:"window_end" yaml:"window_end"`
	Timestamp    time.Time              `json:"timestamp" yaml:"timestamp"`
	TradeCount   int                    `json:"trade_count" yaml:"trade_count"`
	Scores       map[BiasKind]BiasScore `json:"scores" yaml:"scores"`
	DominantBias BiasKind               `json:"dominant_bias" yaml:"dominant_bias"`
}

// ArchetypeLabel is one of the four fixed trader archetypes.
type ArchetypeLabel string

const (
	ArchetypeSystematicDisciplined   ArchetypeLabel = "Systematic Disciplined"
	ArchetypeAggressiveOpportunistic ArchetypeLabel = "Aggressive Opportunistic"
	ArchetypeEmotionallyReactive     ArchetypeLabel = "Emotionally Reactive"
	ArchetypeConservativeDefensive   ArchetypeLabel = "Conservative Defensive"
)

// ArchetypeLabels lists the archetypes in tie-break order.
var ArchetypeLabels = []ArchetypeLabel{
	ArchetypeSystematicDisciplined,
	ArchetypeAggressiveOpportunistic,
	ArchetypeEmotionallyReactive,
	ArchetypeConservativeDefensive,
}

// Description returns a short human description of the archetype.
func (l ArchetypeLabel) Description() string {
	switch l {
	case ArchetypeSystematicDisciplined:
		return "Consistent position sizing, controlled drawdowns, steady frequency and balanced holding times. Low emotional reactivity."
	case ArchetypeAggressiveOpportunistic:
		return "High position size variability, frequent trading, short holding times. Seeks rapid gains but accepts larger drawdowns."
	case ArchetypeEmotionallyReactive:
		return "Erratic behaviour after losses, position size spikes, inconsistent cooldown periods. High revenge-trading risk."
	case ArchetypeConservativeDefensive:
		return "Small position sizes, long holding times, low trade frequency. Prefers safety over growth."
	default:
		return ""
	}
}

// Archetype is the classified trader profile.
type Archetype struct {
	Label       ArchetypeLabel         `json:"label" yaml:"label"`
	Description string                 `json:"description" yaml:"description"`
	Details     map[string]interface{} `json:"details" yaml:"details"`
}
