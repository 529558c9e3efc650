// Package cli provides the command-line interface for the bias analyzer.
package cli

import (
	"math"
	"strconv"
	"strings"

	"trade-bias-analyzer/internal/models"
)

// BandLabel returns the display label of a score band.
func BandLabel(band models.Band) string {
	switch band {
	case models.BandDisciplined:
		return "Disciplined"
	case models.BandElevated:
		return "Elevated"
	case models.BandHighRisk:
		return "High Risk"
	default:
		return string(band)
	}
}

// BiasLabel returns the display name of a bias.
func BiasLabel(kind models.BiasKind) string {
	switch kind {
	case models.BiasOvertrading:
		return "Overtrading"
	case models.BiasLossAversion:
		return "Loss Aversion"
	case models.BiasRevengeTrading:
		return "Revenge Trading"
	case models.BiasAnchoring:
		return "Anchoring"
	case models.BiasOverconfidence:
		return "Overconfidence"
	default:
		return string(kind)
	}
}

// BiasCode returns the two-letter column code of a bias.
func BiasCode(kind models.BiasKind) string {
	switch kind {
	case models.BiasOvertrading:
		return "OT"
	case models.BiasLossAversion:
		return "LA"
	case models.BiasRevengeTrading:
		return "RT"
	case models.BiasAnchoring:
		return "AN"
	case models.BiasOverconfidence:
		return "OC"
	default:
		return strings.ToUpper(string(kind))
	}
}

// ScoreBar renders a 0-100 score as a bar of the given width.
func ScoreBar(score float64, width int) string {
	if width <= 0 {
		return ""
	}
	if math.IsNaN(score) {
		score = 0
	}
	score = math.Max(0, math.Min(100, score))
	filled := int(math.Round(score / 100 * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// ConstraintLabels describes the enabled constraints, in replay order.
func ConstraintLabels(c models.Constraints) []string {
	var labels []string
	if c.MaxDailyTrades != nil {
		labels = append(labels, "max daily trades "+formatInt(*c.MaxDailyTrades))
	}
	if c.CooldownMinutes != nil {
		labels = append(labels, "cooldown "+formatFloat(*c.CooldownMinutes)+" min")
	}
	if c.MaxLossStreak != nil {
		labels = append(labels, "max loss streak "+formatInt(*c.MaxLossStreak))
	}
	if c.MaxDrawdownTriggerPct != nil {
		labels = append(labels, "drawdown breaker "+formatFloat(*c.MaxDrawdownTriggerPct)+"%")
	}
	if c.MaxPositionPct != nil {
		labels = append(labels, "max position "+formatFloat(*c.MaxPositionPct)+"%")
	}
	if c.StopLossPct != nil {
		labels = append(labels, "stop loss "+formatFloat(*c.StopLossPct)+"%")
	}
	if len(labels) == 0 {
		labels = append(labels, "none")
	}
	return labels
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
