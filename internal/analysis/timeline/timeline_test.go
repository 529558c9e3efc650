package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-bias-analyzer/internal/analysis"
	"trade-bias-analyzer/internal/analysis/features"
	"trade-bias-analyzer/internal/models"
	"trade-bias-analyzer/internal/sessiongen"
)

func generated(t testing.TB, profile sessiongen.Profile) []models.EnrichedTrade {
	t.Helper()
	trades, err := sessiongen.Generate(profile, sessiongen.DefaultOptions())
	require.NoError(t, err)
	enriched, err := features.Build(trades)
	require.NoError(t, err)
	return enriched
}

func TestWindowParams(t *testing.T) {
	tests := []struct {
		name       string
		duration   float64
		wantWindow time.Duration
		wantStep   time.Duration
	}{
		{"short session hits lower bounds", 1800, time.Hour, 15 * time.Minute},
		{"mid session scales", 57720, 11544 * time.Second, 2886 * time.Second},
		{"long session hits upper bounds", 716400, 8 * time.Hour, 2 * time.Hour},
		{"zero duration", 0, time.Hour, 15 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, s := WindowParams(tt.duration)
			assert.Equal(t, tt.wantWindow, w)
			assert.Equal(t, tt.wantStep, s)
		})
	}
}

func TestPlanCoversOvertradingSession(t *testing.T) {
	trades := generated(t, sessiongen.ProfileOvertrader)
	windows := Plan(trades)
	require.Len(t, windows, 18)

	first, last := windows[0], windows[len(windows)-1]
	assert.True(t, first.Start.Equal(trades[0].Timestamp))
	assert.True(t, last.End.After(trades[len(trades)-1].Timestamp))
	assert.Equal(t, 41, first.Count())
	assert.Equal(t, 30, last.Count())
}

func TestBuildOvertradingSession(t *testing.T) {
	trades := generated(t, sessiongen.ProfileOvertrader)
	points, err := NewBuilder(4, DefaultMinTrades).Build(context.Background(), trades)
	require.NoError(t, err)
	require.Len(t, points, 18)

	for i, p := range points {
		assert.GreaterOrEqual(t, p.TradeCount, DefaultMinTrades)
		assert.Len(t, p.Scores, len(models.BiasKinds))
		assert.Equal(t, p.WindowStart.Add(p.WindowEnd.Sub(p.WindowStart)/2), p.Timestamp)

		scores := make([]models.BiasScore, 0, len(models.BiasKinds))
		for _, kind := range models.BiasKinds {
			scores = append(scores, p.Scores[kind])
		}
		assert.Equal(t, analysis.DominantBias(scores), p.DominantBias)

		if i > 0 {
			assert.True(t, p.WindowStart.After(points[i-1].WindowStart))
		}
	}
}

func TestBuildSkipsSparseWindows(t *testing.T) {
	// One trade per hour never fills a window of at most eight hours.
	trades := generated(t, sessiongen.ProfileCalm)
	require.NotEmpty(t, Plan(trades))

	points, err := NewBuilder(2, DefaultMinTrades).Build(context.Background(), trades)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestBuildDegenerateSessions(t *testing.T) {
	builder := NewBuilder(2, DefaultMinTrades)

	short := generated(t, sessiongen.ProfileOvertrader)[:DefaultMinTrades-1]
	points, err := builder.Build(context.Background(), short)
	require.NoError(t, err)
	assert.Empty(t, points)

	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	var records []models.TradeRecord
	for i := 0; i < 20; i++ {
		records = append(records, models.TradeRecord{
			Timestamp: base, Asset: "ACME", Side: models.SideBuy,
			Quantity: 1, EntryPrice: 100, ExitPrice: 101, PnL: 1, Balance: 1000 + float64(i),
		})
	}
	sameInstant, err := features.Build(records)
	require.NoError(t, err)
	assert.Empty(t, Plan(sameInstant))

	points, err = builder.Build(context.Background(), sameInstant)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestBuildHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(2, 0).Build(ctx, generated(t, sessiongen.ProfileOvertrader))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewBuilderDefaults(t *testing.T) {
	b := NewBuilder(0, 0)
	assert.Equal(t, DefaultMinTrades, b.MinTrades())
	assert.Equal(t, 4, b.workers)
}

func BenchmarkBuild(b *testing.B) {
	trades, err := sessiongen.Generate(sessiongen.ProfileOvertrader, sessiongen.DefaultOptions())
	if err != nil {
		b.Fatal(err)
	}
	enriched, err := features.Build(sessiongen.Replicate(trades, 20))
	if err != nil {
		b.Fatal(err)
	}
	builder := NewBuilder(4, DefaultMinTrades)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := builder.Build(context.Background(), enriched); err != nil {
			b.Fatal(err)
		}
	}
}
