package counterfactual

import (
	"fmt"
	"strings"

	"trade-bias-analyzer/internal/models"
)

// Chart glyphs.
const (
	originalGlyph  = '·'
	simulatedGlyph = '█'
)

// RenderEquityCurves draws the original and simulated equity curves on one
// ASCII grid. Both curves share the vertical scale; where they overlap the
// simulated glyph wins.
func RenderEquityCurves(original, simulated []models.EquityPoint, width, height int) string {
	if len(original) == 0 && len(simulated) == 0 {
		return "No data to display"
	}
	if width < 2 {
		width = 2
	}
	if height < 2 {
		height = 2
	}

	minBal, maxBal := bounds(original, simulated)

	// Add padding
	balRange := maxBal - minBal
	if balRange == 0 {
		balRange = 1
	}
	minBal -= balRange * 0.05
	maxBal += balRange * 0.05
	balRange = maxBal - minBal

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}

	plot := func(curve []models.EquityPoint, glyph rune) {
		if len(curve) == 0 {
			return
		}
		for x := 0; x < width; x++ {
			idx := x * len(curve) / width
			if idx >= len(curve) {
				break
			}
			y := int((curve[idx].Balance - minBal) / balRange * float64(height-1))
			if y >= 0 && y < height {
				grid[height-1-y][x] = glyph
			}
		}
	}
	plot(original, originalGlyph)
	plot(simulated, simulatedGlyph)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Equity Curve (%.0f - %.0f)  %c original  %c simulated\n",
		minBal, maxBal, originalGlyph, simulatedGlyph))
	sb.WriteString(strings.Repeat("─", width+2) + "\n")
	for _, row := range grid {
		sb.WriteRune('│')
		sb.WriteString(string(row))
		sb.WriteRune('│')
		sb.WriteRune('\n')
	}
	sb.WriteString(strings.Repeat("─", width+2) + "\n")

	return sb.String()
}

func bounds(curves ...[]models.EquityPoint) (float64, float64) {
	first := true
	var lo, hi float64
	for _, curve := range curves {
		for _, p := range curve {
			if first {
				lo, hi, first = p.Balance, p.Balance, false
				continue
			}
			if p.Balance < lo {
				lo = p.Balance
			}
			if p.Balance > hi {
				hi = p.Balance
			}
		}
	}
	return lo, hi
}
