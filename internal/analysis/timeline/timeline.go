// Package timeline re-scores a session over adaptive sliding windows to show
// how behavioral biases evolve during the session.
package timeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"trade-bias-analyzer/internal/analysis"
	"trade-bias-analyzer/internal/analysis/bias"
	"trade-bias-analyzer/internal/analysis/features"
	"trade-bias-analyzer/internal/analysis/stats"
	"trade-bias-analyzer/internal/logging"
	"trade-bias-analyzer/internal/models"
)

// Window sizing bounds in seconds.
const (
	MinWindowSeconds = 3600
	MaxWindowSeconds = 28800
	MinStepSeconds   = 900
	MaxStepSeconds   = 7200

	// DefaultMinTrades is the smallest window that gets scored.
	DefaultMinTrades = 15
)

// WindowParams returns the window width and step for a session lasting
// durationSeconds: W = clamp(0.20·D, 1h, 8h), S = clamp(0.05·D, 15m, 2h).
func WindowParams(durationSeconds float64) (window, step time.Duration) {
	w := stats.Clamp(0.20*durationSeconds, MinWindowSeconds, MaxWindowSeconds)
	s := stats.Clamp(0.05*durationSeconds, MinStepSeconds, MaxStepSeconds)
	return seconds(w), seconds(s)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// Window is a half-open interval [Start, End) and the index range
// trades[From:To] that falls inside it.
type Window struct {
	Start time.Time
	End   time.Time
	From  int
	To    int
}

// Count returns the number of trades inside the window.
func (w Window) Count() int {
	return w.To - w.From
}

// Plan lays out every window of a session, including windows too sparse to
// score. The first window starts at the first trade and the last one is the
// first whose end passes the last trade. Trades must be sorted by timestamp.
func Plan(trades []models.EnrichedTrade) []Window {
	if len(trades) == 0 {
		return nil
	}
	duration := features.DurationSeconds(trades)
	if duration <= 0 {
		return nil
	}

	width, step := WindowParams(duration)
	first := trades[0].Timestamp
	last := trades[len(trades)-1].Timestamp

	var windows []Window
	lo, hi := 0, 0
	for start := first; ; start = start.Add(step) {
		end := start.Add(width)
		for lo < len(trades) && trades[lo].Timestamp.Before(start) {
			lo++
		}
		if hi < lo {
			hi = lo
		}
		for hi < len(trades) && trades[hi].Timestamp.Before(end) {
			hi++
		}
		windows = append(windows, Window{Start: start, End: end, From: lo, To: hi})
		if end.After(last) {
			break
		}
	}
	return windows
}

// Builder scores each eligible window with the bias detectors.
type Builder struct {
	workers   int
	minTrades int
	detectors []analysis.Detector
}

// NewBuilder creates a timeline builder. Windows are evaluated concurrently
// by up to workers goroutines; windows with fewer than minTrades trades are
// skipped.
func NewBuilder(workers, minTrades int) *Builder {
	if workers <= 0 {
		workers = 4
	}
	if minTrades <= 0 {
		minTrades = DefaultMinTrades
	}
	return &Builder{
		workers:   workers,
		minTrades: minTrades,
		detectors: bias.Detectors(),
	}
}

// MinTrades returns the smallest window size that is scored.
func (b *Builder) MinTrades() int {
	return b.minTrades
}

// Build returns one TimelinePoint per eligible window in window start order.
// Sessions with zero duration or fewer trades than the minimum yield an
// empty timeline.
func (b *Builder) Build(ctx context.Context, trades []models.EnrichedTrade) ([]models.TimelinePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(trades) < b.minTrades {
		return []models.TimelinePoint{}, nil
	}

	start := time.Now()
	logger := logging.FromContext(ctx)

	var eligible []Window
	for _, w := range Plan(trades) {
		if w.Count() >= b.minTrades {
			eligible = append(eligible, w)
		}
	}

	points := make([]models.TimelinePoint, len(eligible))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, w := range eligible {
		i, w := i, w
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			points[i] = b.evaluate(w, trades[w.From:w.To])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Debug().
		Int("windows", len(eligible)).
		Dur("duration", time.Since(start)).
		Msg("Timeline built")

	return points, nil
}

func (b *Builder) evaluate(w Window, trades []models.EnrichedTrade) models.TimelinePoint {
	scores := make([]models.BiasScore, len(b.detectors))
	byKind := make(map[models.BiasKind]models.BiasScore, len(b.detectors))
	for i, d := range b.detectors {
		scores[i] = d.Detect(trades)
		byKind[scores[i].Kind] = scores[i]
	}

	return models.TimelinePoint{
		WindowStart:  w.Start,
		WindowEnd:    w.End,
		Timestamp:    w.Start.Add(w.End.Sub(w.Start) / 2),
		TradeCount:   len(trades),
		Scores:       byKind,
		DominantBias: analysis.DominantBias(scores),
	}
}
