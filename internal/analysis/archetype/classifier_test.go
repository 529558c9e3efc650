package archetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-bias-analyzer/internal/analysis/bias"
	"trade-bias-analyzer/internal/analysis/features"
	"trade-bias-analyzer/internal/models"
	"trade-bias-analyzer/internal/sessiongen"
)

func scores(overtrading, lossAversion, revenge, anchoring, overconfidence float64) []models.BiasScore {
	values := []float64{overtrading, lossAversion, revenge, anchoring, overconfidence}
	out := make([]models.BiasScore, len(values))
	for i, v := range values {
		out[i] = models.BiasScore{Kind: models.BiasKinds[i], Score: v, Band: models.BandFor(v)}
	}
	return out
}

func TestClassifyPrototypes(t *testing.T) {
	tests := []struct {
		name    string
		summary models.SummaryStats
		scores  []models.BiasScore
		want    models.ArchetypeLabel
	}{
		{
			name:    "steady low bias",
			summary: models.SummaryStats{PositionSizeStd: 1, MaxDrawdownPct: -1, TradesPerHour: 1, HoldingTimeStd: 600},
			scores:  scores(10, 10, 10, 5, 10),
			want:    models.ArchetypeSystematicDisciplined,
		},
		{
			name:    "fast and confident",
			summary: models.SummaryStats{PositionSizeStd: 10, MaxDrawdownPct: -12, TradesPerHour: 9, HoldingTimeStd: 2000},
			scores:  scores(85, 20, 30, 10, 70),
			want:    models.ArchetypeAggressiveOpportunistic,
		},
		{
			name:    "reactive after losses",
			summary: models.SummaryStats{PositionSizeStd: 12, MaxDrawdownPct: -12, TradesPerHour: 4, HoldingTimeStd: 3600},
			scores:  scores(30, 60, 85, 10, 25),
			want:    models.ArchetypeEmotionallyReactive,
		},
		{
			name:    "slow and small",
			summary: models.SummaryStats{PositionSizeStd: 0.2, MaxDrawdownPct: -0.3, TradesPerHour: 0.1, HoldingTimeStd: 5000},
			scores:  scores(5, 8, 5, 5, 3),
			want:    models.ArchetypeConservativeDefensive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.summary, tt.scores)
			assert.Equal(t, tt.want, got.Label, "details: %v", got.Details)
			assert.Equal(t, tt.want.Description(), got.Description)
		})
	}
}

func TestClassifyIsDeterministicWithDetails(t *testing.T) {
	summary := models.SummaryStats{PositionSizeStd: 3, MaxDrawdownPct: -4, TradesPerHour: 2, HoldingTimeStd: 1200}
	s := scores(20, 30, 40, 10, 20)

	a := Classify(summary, s)
	b := Classify(summary, s)
	assert.Equal(t, a, b)

	require.Contains(t, a.Details, "distances")
	distances := a.Details["distances"].(map[string]float64)
	assert.Len(t, distances, len(models.ArchetypeLabels))
	assert.InDelta(t, 24.0, a.Details["mean_bias_score"], 1e-9)
}

func TestFeaturesAreClamped(t *testing.T) {
	v := Features(models.SummaryStats{PositionSizeStd: 500, MaxDrawdownPct: -90, TradesPerHour: 100, HoldingTimeStd: 1e6}, scores(100, 100, 100, 100, 100))
	for i, f := range v {
		assert.Equal(t, 1.0, f, "feature %d", i)
	}

	zero := Features(models.SummaryStats{}, nil)
	assert.Equal(t, Vector{}, zero)
}

func TestClassifyGeneratedProfiles(t *testing.T) {
	tests := []struct {
		profile sessiongen.Profile
		want    models.ArchetypeLabel
	}{
		{sessiongen.ProfileCalm, models.ArchetypeSystematicDisciplined},
		{sessiongen.ProfileRevenge, models.ArchetypeEmotionallyReactive},
		{sessiongen.ProfileOvertrader, models.ArchetypeAggressiveOpportunistic},
	}

	for _, tt := range tests {
		t.Run(string(tt.profile), func(t *testing.T) {
			trades, err := sessiongen.Generate(tt.profile, sessiongen.DefaultOptions())
			require.NoError(t, err)
			enriched, err := features.Build(trades)
			require.NoError(t, err)

			got := Classify(features.SummaryStats(enriched), bias.DetectAllSequential(enriched))
			assert.Equal(t, tt.want, got.Label, "details: %v", got.Details)
		})
	}
}
