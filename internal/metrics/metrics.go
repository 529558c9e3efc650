// Package metrics exposes Prometheus instrumentation for analysis runs and
// counterfactual simulations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all analyzer metrics on a private Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	// Stage duration metrics
	StageDuration *prometheus.HistogramVec

	// Analysis metrics
	Analyses       prometheus.Counter
	TradesAnalyzed prometheus.Counter
	BiasScore      *prometheus.HistogramVec
	Archetypes     *prometheus.CounterVec
	TimelinePoints prometheus.Counter

	// Simulation metrics
	Simulations    prometheus.Counter
	TradesExcluded *prometheus.CounterVec
}

// NewRegistry creates a registry with every analyzer metric registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bias_analyzer_stage_duration_seconds",
				Help:    "Duration of each analysis stage in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"stage"},
		),

		Analyses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bias_analyzer_analyses_total",
				Help: "Total number of completed session analyses",
			},
		),

		TradesAnalyzed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bias_analyzer_trades_analyzed_total",
				Help: "Total number of trades analyzed",
			},
		),

		BiasScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bias_analyzer_bias_score",
				Help:    "Distribution of session-level bias scores",
				Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
			[]string{"bias"},
		),

		Archetypes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bias_analyzer_archetypes_total",
				Help: "Total number of classifications by archetype",
			},
			[]string{"archetype"},
		),

		TimelinePoints: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bias_analyzer_timeline_points_total",
				Help: "Total number of timeline windows scored",
			},
		),

		Simulations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bias_analyzer_simulations_total",
				Help: "Total number of counterfactual simulations",
			},
		),

		TradesExcluded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bias_analyzer_trades_adjusted_total",
				Help: "Total number of trades excluded or adjusted by constraint kind",
			},
			[]string{"kind"},
		),
	}

	r.registry.MustRegister(
		r.StageDuration,
		r.Analyses,
		r.TradesAnalyzed,
		r.BiasScore,
		r.Archetypes,
		r.TimelinePoints,
		r.Simulations,
		r.TradesExcluded,
	)
	return r
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// ObserveStage records the duration of one pipeline stage. A nil registry
// is a no-op.
func (r *Registry) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordAnalysis records a completed analysis.
func (r *Registry) RecordAnalysis(trades int, scores map[string]float64, archetype string, timelinePoints int) {
	if r == nil {
		return
	}
	r.Analyses.Inc()
	r.TradesAnalyzed.Add(float64(trades))
	for bias, score := range scores {
		r.BiasScore.WithLabelValues(bias).Observe(score)
	}
	r.Archetypes.WithLabelValues(archetype).Inc()
	r.TimelinePoints.Add(float64(timelinePoints))
}

// RecordSimulation records a completed counterfactual simulation.
func (r *Registry) RecordSimulation(breakdown map[string]int) {
	if r == nil {
		return
	}
	r.Simulations.Inc()
	for kind, n := range breakdown {
		r.TradesExcluded.WithLabelValues(kind).Add(float64(n))
	}
}

// WriteTextfile writes the current metric values in the Prometheus text
// exposition format, suitable for the node exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
