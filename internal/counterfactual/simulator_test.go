package counterfactual

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-bias-analyzer/internal/analysis/features"
	"trade-bias-analyzer/internal/errors"
	"trade-bias-analyzer/internal/metrics"
	"trade-bias-analyzer/internal/models"
	"trade-bias-analyzer/internal/sessiongen"
)

var base = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

// session builds an enriched session from PnL values spaced by gap,
// starting from balance.
func session(t testing.TB, balance float64, gap time.Duration, pnl ...float64) []models.EnrichedTrade {
	t.Helper()
	records := make([]models.TradeRecord, len(pnl))
	for i, p := range pnl {
		balance += p
		records[i] = models.TradeRecord{
			Timestamp:  base.Add(time.Duration(i) * gap),
			Asset:      "ACME",
			Side:       models.SideBuy,
			Quantity:   10,
			EntryPrice: 100,
			ExitPrice:  100 + p/10,
			PnL:        p,
			Balance:    balance,
		}
	}
	enriched, err := features.Build(records)
	require.NoError(t, err)
	return enriched
}

func TestScenario_StopLossTruncatesToExactFraction(t *testing.T) {
	// Running balance before the loss is 10100; the loss is 5% of it.
	trades := session(t, 10000, time.Hour, 100, -505)

	res, err := NewSimulator(1).Simulate(context.Background(), trades, models.Constraints{StopLossPct: floatPtr(2)})
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, 100.0, res.Trades[0].PnL)
	assert.Equal(t, -10100.0*2/100, res.Trades[1].PnL)
	assert.True(t, res.Trades[1].StoppedOut)
	assert.Equal(t, 10100.0-202, res.Trades[1].Balance)
	assert.Equal(t, map[string]int{models.AdjustedStopLoss: 1}, res.ExcludedBreakdown)
}

func TestScenario_AllTradesExcluded(t *testing.T) {
	trades := session(t, 10000, time.Hour, 50, -20, 30)

	res, err := NewSimulator(1).Simulate(context.Background(), trades, models.Constraints{MaxDailyTrades: intPtr(0)})
	require.NoError(t, err)

	assert.Equal(t, 0, res.TradesSimulated)
	assert.Equal(t, 3, res.TradesOriginal)
	assert.Empty(t, res.Trades)
	assert.Equal(t, models.Metrics{}, res.Simulated)
	require.Len(t, res.EquityCurveSimulated, 1)
	assert.Equal(t, 10000.0, res.EquityCurveSimulated[0].Balance)
	assert.True(t, res.EquityCurveSimulated[0].Timestamp.Equal(base))
	assert.Equal(t, map[string]int{models.ExcludedDailyLimit: 3}, res.ExcludedBreakdown)
	assert.Equal(t, "All trades were excluded by the constraints.", res.Summary)
	for _, key := range MetricKeys {
		assert.Equal(t, 0.0, res.Improvement[key], key)
	}
}

func TestNoConstraintsReproducesOriginal(t *testing.T) {
	trades := session(t, 10000, time.Hour, 50, -20, 30, -80, 10)

	res, err := NewSimulator(1).Simulate(context.Background(), trades, models.Constraints{})
	require.NoError(t, err)

	assert.Equal(t, res.Original, res.Simulated)
	assert.Empty(t, res.ExcludedBreakdown)
	assert.Equal(t, "No significant change.", res.Summary)
	require.Len(t, res.EquityCurveSimulated, len(trades))
	for i, p := range res.EquityCurveSimulated {
		assert.InDelta(t, trades[i].Balance, p.Balance, 1e-9)
	}
}

func TestDailyLimitAndCooldown(t *testing.T) {
	// Ten trades twenty minutes apart on one day.
	trades := session(t, 10000, 20*time.Minute, 10, 10, -5, 10, -5, 10, 10, -5, 10, 10)

	res, err := NewSimulator(1).Simulate(context.Background(), trades, models.Constraints{
		MaxDailyTrades:  intPtr(6),
		CooldownMinutes: floatPtr(30),
	})
	require.NoError(t, err)

	// Daily rank keeps the first six; cooldown keeps every other one of those.
	assert.Equal(t, 3, res.TradesSimulated)
	assert.Equal(t, map[string]int{
		models.ExcludedDailyLimit: 4,
		models.ExcludedCooldown:   3,
	}, res.ExcludedBreakdown)
	for i := 1; i < len(res.Trades); i++ {
		assert.GreaterOrEqual(t, res.Trades[i].Timestamp.Sub(res.Trades[i-1].Timestamp), 30*time.Minute)
	}

	// Late trades were dropped, so the simulated curve is extended flat.
	last := res.EquityCurveSimulated[len(res.EquityCurveSimulated)-1]
	prev := res.EquityCurveSimulated[len(res.EquityCurveSimulated)-2]
	assert.True(t, last.Timestamp.Equal(trades[len(trades)-1].Timestamp))
	assert.Equal(t, prev.Balance, last.Balance)
}

func TestLossStreakAndDrawdownBreaker(t *testing.T) {
	trades := session(t, 1000, time.Hour, 10, -100, -100, -100, 50, 50)
	// Streaks: +1, -1, -2, -3, +1, +2. Drawdown at trade 4 is about -29%.

	res, err := NewSimulator(1).Simulate(context.Background(), trades, models.Constraints{MaxLossStreak: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{models.ExcludedLossStreak: 2}, res.ExcludedBreakdown)
	assert.Equal(t, 4, res.TradesSimulated)

	res, err = NewSimulator(1).Simulate(context.Background(), trades, models.Constraints{MaxDrawdownTriggerPct: floatPtr(15)})
	require.NoError(t, err)
	// Trades 3 to 6 sit more than 15% below the peak of 1010.
	assert.Equal(t, map[string]int{models.ExcludedDrawdownBreaker: 4}, res.ExcludedBreakdown)
	assert.Equal(t, 2, res.TradesSimulated)
}

func TestPositionCapScalesPnLAndQuantity(t *testing.T) {
	// Notional 1000 on a 10000 balance is a 10% position.
	trades := session(t, 10000, time.Hour, -40, 60)

	res, err := NewSimulator(1).Simulate(context.Background(), trades, models.Constraints{MaxPositionPct: floatPtr(5)})
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	first := res.Trades[0]
	assert.True(t, first.Scaled)
	assert.Equal(t, 5.0, first.PositionSizePct)
	scale := 5 / trades[0].PositionSizePct
	assert.InDelta(t, -40*scale, first.PnL, 1e-9)
	assert.InDelta(t, 10*scale, first.Quantity, 1e-9)
	assert.Equal(t, 2, res.ExcludedBreakdown[models.AdjustedPositionCap])
}

func TestSimulateRejectsInvalidInput(t *testing.T) {
	sim := NewSimulator(1)
	trades := session(t, 10000, time.Hour, 10)

	_, err := sim.Simulate(context.Background(), trades, models.Constraints{StopLossPct: floatPtr(-1)})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = sim.Simulate(context.Background(), trades, models.Constraints{MaxDailyTrades: intPtr(-3)})
	var verr *errors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "max_daily_trades", verr.Field)

	_, err = sim.Simulate(context.Background(), nil, models.Constraints{})
	assert.ErrorIs(t, err, errors.ErrInsufficientData)
}

func TestImprovementSignConvention(t *testing.T) {
	original := models.Metrics{TotalTrades: 10, TotalPnL: 100, MaxDrawdownPct: 10, Volatility: 20, SharpeRatio: 0, WinRate: 50}
	simulated := models.Metrics{TotalTrades: 8, TotalPnL: 150, MaxDrawdownPct: 5, Volatility: 30, SharpeRatio: 1.2, WinRate: 50}

	got := Improvement(original, simulated)
	assert.Equal(t, -20.0, got[MetricTotalTrades])
	assert.Equal(t, 50.0, got[MetricTotalPnL])
	assert.Equal(t, 50.0, got[MetricMaxDrawdown], "lower drawdown is an improvement")
	assert.Equal(t, -50.0, got[MetricVolatility], "higher volatility is a regression")
	assert.Equal(t, 0.0, got[MetricSharpe], "zero original has no relative change")
	assert.Equal(t, 0.0, got[MetricWinRate])
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "No significant change.", Summarize(map[string]float64{}))
	assert.Equal(t,
		"With these constraints, max drawdown would improve by 40.0%, total PnL would worsen by 12.5%.",
		Summarize(map[string]float64{MetricMaxDrawdown: 40, MetricTotalPnL: -12.5}))
}

func TestComputeMetrics(t *testing.T) {
	m := ComputeMetrics([]float64{100, -50, 25}, []float64{1100, 1050, 1075})
	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 75.0, m.TotalPnL)
	assert.Equal(t, 1075.0, m.FinalBalance)
	assert.Equal(t, 4.55, m.MaxDrawdownPct)
	assert.Equal(t, 66.67, m.WinRate)
	assert.Greater(t, m.Volatility, 0.0)
	assert.Equal(t, models.Metrics{}, ComputeMetrics(nil, nil))
}

func TestCompareRunsSetsInOrder(t *testing.T) {
	trades, err := sessiongen.Generate(sessiongen.ProfileRevenge, sessiongen.DefaultOptions())
	require.NoError(t, err)
	enriched, err := features.Build(trades)
	require.NoError(t, err)

	reg := metrics.NewRegistry()
	sim := NewSimulator(3, WithMetrics(reg))
	sets := []models.Constraints{
		{},
		{MaxPositionPct: floatPtr(1)},
		{StopLossPct: floatPtr(0.5)},
		{MaxLossStreak: intPtr(2)},
	}

	results, err := sim.Compare(context.Background(), enriched, sets)
	require.NoError(t, err)
	require.Len(t, results, len(sets))
	for i, res := range results {
		assert.Equal(t, sets[i], res.Params)
		sequential, err := sim.Simulate(context.Background(), enriched, sets[i])
		require.NoError(t, err)
		assert.Equal(t, sequential.Simulated, res.Simulated)
	}

	// Capping doubled positions helps the martingale session's drawdown.
	assert.Greater(t, results[1].Improvement[MetricMaxDrawdown], 0.0)

	_, err = sim.Compare(context.Background(), enriched, []models.Constraints{{CooldownMinutes: floatPtr(-5)}})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestRenderEquityCurves(t *testing.T) {
	trades := session(t, 10000, time.Hour, 50, -20, 30, -80, 10)
	res, err := NewSimulator(1).Simulate(context.Background(), trades, models.Constraints{StopLossPct: floatPtr(0.5)})
	require.NoError(t, err)

	chart := RenderEquityCurves(res.EquityCurveOriginal, res.EquityCurveSimulated, 20, 6)
	lines := strings.Split(strings.TrimRight(chart, "\n"), "\n")
	assert.Len(t, lines, 6+3)
	assert.Contains(t, chart, string(simulatedGlyph))
	assert.True(t, strings.HasPrefix(lines[0], "Equity Curve"))

	assert.Equal(t, "No data to display", RenderEquityCurves(nil, nil, 10, 5))
}

func BenchmarkSimulate(b *testing.B) {
	trades, err := sessiongen.Generate(sessiongen.ProfileRevenge, sessiongen.DefaultOptions())
	if err != nil {
		b.Fatal(err)
	}
	enriched, err := features.Build(sessiongen.Replicate(trades, 20))
	if err != nil {
		b.Fatal(err)
	}
	sim := NewSimulator(1)
	c := models.Constraints{MaxPositionPct: floatPtr(2), StopLossPct: floatPtr(1), CooldownMinutes: floatPtr(30)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := sim.Simulate(context.Background(), enriched, c); err != nil {
			b.Fatal(err)
		}
	}
}
