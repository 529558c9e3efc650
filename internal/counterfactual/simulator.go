// Package counterfactual replays a trade session under discipline
// constraints and compares the outcome with what actually happened.
package counterfactual

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"trade-bias-analyzer/internal/analysis/features"
	"trade-bias-analyzer/internal/errors"
	"trade-bias-analyzer/internal/logging"
	"trade-bias-analyzer/internal/metrics"
	"trade-bias-analyzer/internal/models"
)

// Simulator replays enriched sessions under constraints. A single replay is
// strictly sequential; Compare runs independent replays concurrently.
type Simulator struct {
	workers int
	metrics *metrics.Registry
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithMetrics records every simulation in the given registry.
func WithMetrics(r *metrics.Registry) Option {
	return func(s *Simulator) {
		s.metrics = r
	}
}

// NewSimulator creates a simulator. workers bounds the concurrency of
// Compare.
func NewSimulator(workers int, opts ...Option) *Simulator {
	if workers <= 0 {
		workers = 4
	}
	s := &Simulator{workers: workers}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate rejects negative or non-finite constraint values.
func Validate(c models.Constraints) error {
	check := func(field string, v *float64) error {
		if v == nil {
			return nil
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
			return errors.NewValidationError(field, *v, "must be a non-negative number")
		}
		return nil
	}
	checkInt := func(field string, v *int) error {
		if v != nil && *v < 0 {
			return errors.NewValidationError(field, *v, "must be non-negative")
		}
		return nil
	}

	for _, err := range []error{
		check("max_position_pct", c.MaxPositionPct),
		check("stop_loss_pct", c.StopLossPct),
		checkInt("max_daily_trades", c.MaxDailyTrades),
		check("cooldown_minutes", c.CooldownMinutes),
		checkInt("max_loss_streak", c.MaxLossStreak),
		check("max_drawdown_trigger_pct", c.MaxDrawdownTriggerPct),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// replayState is the running state of one replay.
type replayState struct {
	balance   float64
	lastKept  time.Time
	haveKept  bool
	day       dayKey
	dayRank   int
	breakdown map[string]int
}

type dayKey struct {
	year, yday int
}

func dayOf(t time.Time) dayKey {
	return dayKey{year: t.Year(), yday: t.YearDay()}
}

// Simulate replays trades under c. Exclusions apply in a fixed order (daily
// limit, cooldown against the last kept trade, loss streak, drawdown
// breaker), then position-cap scaling, then stop-loss truncation against the
// running simulated balance.
func (s *Simulator) Simulate(ctx context.Context, trades []models.EnrichedTrade, c models.Constraints) (*models.CounterfactualResult, error) {
	if len(trades) == 0 {
		return nil, errors.NewInsufficientDataError("counterfactual", 1, 0)
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	logger := logging.WithOperation(logging.FromContext(ctx), "counterfactual")

	initial := models.InitialBalance(trades)
	state := &replayState{
		balance:   initial,
		breakdown: make(map[string]int),
	}

	kept := make([]models.SimulatedTrade, 0, len(trades))
	for i, t := range trades {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if sim, ok := state.apply(t, c); ok {
			kept = append(kept, sim)
		}
	}

	for kind, n := range state.breakdown {
		if n == 0 {
			delete(state.breakdown, kind)
		}
	}

	result := &models.CounterfactualResult{
		Params:              c,
		Original:            originalMetrics(trades),
		EquityCurveOriginal: features.EquityCurve(trades),
		TradesOriginal:      len(trades),
		TradesSimulated:     len(kept),
		ExcludedBreakdown:   state.breakdown,
		Trades:              kept,
	}

	if len(kept) == 0 {
		result.Simulated = models.Metrics{}
		result.Improvement = zeroImprovement()
		result.EquityCurveSimulated = []models.EquityPoint{{
			Timestamp: trades[0].Timestamp,
			Balance:   initial,
		}}
		result.Summary = "All trades were excluded by the constraints."
		logger.Warn().Int("trades", len(trades)).Msg("All trades excluded by constraints")
	} else {
		result.Simulated = simulatedMetrics(kept)
		result.Improvement = Improvement(result.Original, result.Simulated)
		result.EquityCurveSimulated = simulatedCurve(kept, trades[len(trades)-1].Timestamp)
		result.Summary = Summarize(result.Improvement)
	}

	logging.LogSimulation(logger, len(trades), len(kept), result.ExcludedBreakdown, time.Since(start))
	s.metrics.ObserveStage("counterfactual", time.Since(start))
	s.metrics.RecordSimulation(result.ExcludedBreakdown)

	return result, nil
}

// apply decides the fate of one trade and returns the simulated trade when
// it is kept.
func (st *replayState) apply(t models.EnrichedTrade, c models.Constraints) (models.SimulatedTrade, bool) {
	if day := dayOf(t.Timestamp); day != st.day {
		st.day, st.dayRank = day, 0
	}
	st.dayRank++

	if c.MaxDailyTrades != nil && st.dayRank > *c.MaxDailyTrades {
		st.breakdown[models.ExcludedDailyLimit]++
		return models.SimulatedTrade{}, false
	}
	if c.CooldownMinutes != nil && st.haveKept {
		if t.Timestamp.Sub(st.lastKept).Seconds() < *c.CooldownMinutes*60 {
			st.breakdown[models.ExcludedCooldown]++
			return models.SimulatedTrade{}, false
		}
	}
	if c.MaxLossStreak != nil && t.StreakIndex <= -*c.MaxLossStreak {
		st.breakdown[models.ExcludedLossStreak]++
		return models.SimulatedTrade{}, false
	}
	if c.MaxDrawdownTriggerPct != nil && t.DrawdownPct < -*c.MaxDrawdownTriggerPct {
		st.breakdown[models.ExcludedDrawdownBreaker]++
		return models.SimulatedTrade{}, false
	}

	sim := models.SimulatedTrade{
		Timestamp:       t.Timestamp,
		Asset:           t.Asset,
		Quantity:        t.Quantity,
		PnL:             t.PnL,
		PositionSizePct: t.PositionSizePct,
	}

	if c.MaxPositionPct != nil && sim.PositionSizePct > *c.MaxPositionPct {
		scale := *c.MaxPositionPct / sim.PositionSizePct
		sim.PnL *= scale
		sim.Quantity *= scale
		sim.PositionSizePct = *c.MaxPositionPct
		sim.Scaled = true
		st.breakdown[models.AdjustedPositionCap]++
	}

	if c.StopLossPct != nil && st.balance != 0 && sim.PnL < 0 {
		limit := math.Abs(st.balance) * *c.StopLossPct / 100
		if math.Abs(sim.PnL) > limit {
			sim.PnL = -limit
			sim.StoppedOut = true
			st.breakdown[models.AdjustedStopLoss]++
		}
	}

	st.balance += sim.PnL
	sim.Balance = st.balance
	st.lastKept, st.haveKept = t.Timestamp, true
	return sim, true
}

func simulatedCurve(kept []models.SimulatedTrade, originalEnd time.Time) []models.EquityPoint {
	curve := make([]models.EquityPoint, 0, len(kept)+1)
	peak := math.Inf(-1)
	for _, t := range kept {
		peak = math.Max(peak, t.Balance)
		curve = append(curve, models.EquityPoint{
			Timestamp: t.Timestamp,
			Balance:   t.Balance,
			Drawdown:  drawdownPct(t.Balance, peak),
		})
	}

	// Extend to the original end so both curves span the same period.
	last := curve[len(curve)-1]
	if last.Timestamp.Before(originalEnd) {
		last.Timestamp = originalEnd
		curve = append(curve, last)
	}
	return curve
}

// Compare runs one replay per constraint set concurrently. Results are
// returned in input order.
func (s *Simulator) Compare(ctx context.Context, trades []models.EnrichedTrade, sets []models.Constraints) ([]*models.CounterfactualResult, error) {
	results := make([]*models.CounterfactualResult, len(sets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, c := range sets {
		i, c := i, c
		g.Go(func() error {
			res, err := s.Simulate(gctx, trades, c)
			if err != nil {
				return errors.Wrapf(err, "constraint set %d", i)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Summarize renders the headline changes as one sentence.
func Summarize(improvement map[string]float64) string {
	labels := []struct {
		key  string
		name string
	}{
		{MetricMaxDrawdown, "max drawdown"},
		{MetricTotalPnL, "total PnL"},
		{MetricSharpe, "Sharpe ratio"},
	}

	var parts []string
	for _, l := range labels {
		v := improvement[l.key]
		switch {
		case v > 0:
			parts = append(parts, fmt.Sprintf("%s would improve by %.1f%%", l.name, v))
		case v < 0:
			parts = append(parts, fmt.Sprintf("%s would worsen by %.1f%%", l.name, -v))
		}
	}
	if len(parts) == 0 {
		return "No significant change."
	}
	return "With these constraints, " + strings.Join(parts, ", ") + "."
}
