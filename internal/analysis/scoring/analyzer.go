// Package scoring orchestrates a full session analysis: feature derivation,
// bias detection, archetype classification, summary statistics, the bias
// timeline and the presentation series.
package scoring

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"trade-bias-analyzer/internal/analysis"
	"trade-bias-analyzer/internal/analysis/archetype"
	"trade-bias-analyzer/internal/analysis/bias"
	"trade-bias-analyzer/internal/analysis/features"
	"trade-bias-analyzer/internal/analysis/timeline"
	"trade-bias-analyzer/internal/config"
	"trade-bias-analyzer/internal/logging"
	"trade-bias-analyzer/internal/metrics"
	"trade-bias-analyzer/internal/models"
)

// Pipeline stage names used in logs and metrics.
const (
	StageFeatures     = "features"
	StageDetect       = "detect"
	StageSummary      = "summary"
	StageArchetype    = "archetype"
	StageTimeline     = "timeline"
	StagePresentation = "presentation"
)

// Analyzer runs the analysis pipeline. It holds no per-session state and is
// safe for concurrent use.
type Analyzer struct {
	engine          *bias.Engine
	timeline        *timeline.Builder
	timelineEnabled bool
	metrics         *metrics.Registry
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMetrics records stage timings and results in the given registry.
func WithMetrics(r *metrics.Registry) Option {
	return func(a *Analyzer) {
		a.metrics = r
	}
}

// WithTimeline enables or disables the rolling bias timeline.
func WithTimeline(enabled bool) Option {
	return func(a *Analyzer) {
		a.timelineEnabled = enabled
	}
}

// NewAnalyzer creates an analyzer from the analysis configuration.
func NewAnalyzer(cfg config.AnalysisConfig, opts ...Option) *Analyzer {
	a := &Analyzer{
		engine:          bias.NewEngine(cfg.Workers),
		timeline:        timeline.NewBuilder(cfg.Workers, cfg.MinTradesPerWindow),
		timelineEnabled: cfg.TimelineEnabled,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the full pipeline over one session. The only error raised
// for well-formed input is an InsufficientDataError for an empty session;
// cancellation of ctx is also reported.
func (a *Analyzer) Analyze(ctx context.Context, trades []models.TradeRecord) (*models.AnalysisResult, error) {
	start := time.Now()
	logger := logging.WithOperation(logging.FromContext(ctx), "analyze")
	logger.Debug().
		Int("trades", len(trades)).
		Int("workers", a.engine.Workers()).
		Int("min_trades_per_window", a.timeline.MinTrades()).
		Bool("timeline", a.timelineEnabled).
		Msg("Analysis started")

	stage := func(name string, began time.Time) {
		d := time.Since(began)
		logging.LogStage(logger, name, len(trades), d)
		a.metrics.ObserveStage(name, d)
	}

	began := time.Now()
	enriched, err := features.Build(trades)
	if err != nil {
		return nil, err
	}
	stage(StageFeatures, began)

	began = time.Now()
	scores, err := a.engine.DetectAll(ctx, enriched)
	if err != nil {
		return nil, err
	}
	stage(StageDetect, began)

	began = time.Now()
	summary := features.SummaryStats(enriched)
	stage(StageSummary, began)

	began = time.Now()
	arch := archetype.Classify(summary, scores)
	stage(StageArchetype, began)

	points := []models.TimelinePoint{}
	if a.timelineEnabled {
		began = time.Now()
		points, err = a.timeline.Build(ctx, enriched)
		if err != nil {
			return nil, err
		}
		stage(StageTimeline, began)
	}

	began = time.Now()
	result := &models.AnalysisResult{
		TradeCount:        len(enriched),
		Scores:            scores,
		Archetype:         arch,
		Summary:           summary,
		Timeline:          points,
		EquityCurve:       features.EquityCurve(enriched),
		TradeFrequency:    features.TradeFrequency(enriched),
		HoldingComparison: features.HoldingComparison(enriched),
		PositionScatter:   features.PositionScatter(enriched),
		Enriched:          enriched,
	}
	stage(StagePresentation, began)

	dominant := analysis.DominantBias(scores)
	logging.LogAnalysis(logger, len(enriched), string(arch.Label), string(dominant), time.Since(start))
	logScores(logger, scores)
	a.metrics.RecordAnalysis(len(enriched), scoreValues(scores), string(arch.Label), len(points))

	return result, nil
}

func logScores(logger zerolog.Logger, scores []models.BiasScore) {
	e := logger.Debug()
	for _, s := range scores {
		e = e.Float64(string(s.Kind), s.Score)
	}
	e.Msg("Bias scores")
}

func scoreValues(scores []models.BiasScore) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for _, s := range scores {
		out[string(s.Kind)] = s.Score
	}
	return out
}
