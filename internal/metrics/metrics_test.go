package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAnalysis(t *testing.T) {
	r := NewRegistry()
	r.RecordAnalysis(200, map[string]float64{"revenge_trading": 68.7, "overtrading": 9.2}, "Emotionally Reactive", 3)
	r.RecordAnalysis(50, map[string]float64{"revenge_trading": 10}, "Systematic Disciplined", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Analyses))
	assert.Equal(t, 250.0, testutil.ToFloat64(r.TradesAnalyzed))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.TimelinePoints))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Archetypes.WithLabelValues("Emotionally Reactive")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.BiasScore))
}

func TestRecordSimulation(t *testing.T) {
	r := NewRegistry()
	r.RecordSimulation(map[string]int{"cooldown": 4, "stop_loss_capped": 1})
	r.RecordSimulation(map[string]int{"cooldown": 2})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Simulations))
	assert.Equal(t, 6.0, testutil.ToFloat64(r.TradesExcluded.WithLabelValues("cooldown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.TradesExcluded.WithLabelValues("stop_loss_capped")))
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObserveStage("features", time.Millisecond)
		r.RecordAnalysis(1, nil, "x", 0)
		r.RecordSimulation(map[string]int{"cooldown": 1})
	})
}

func TestWriteTextfile(t *testing.T) {
	r := NewRegistry()
	r.ObserveStage("features", 2*time.Millisecond)
	r.RecordSimulation(map[string]int{"daily_limit": 3})

	path := filepath.Join(t.TempDir(), "bias_analyzer.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bias_analyzer_simulations_total 1")
	assert.Contains(t, string(data), `bias_analyzer_trades_adjusted_total{kind="daily_limit"} 3`)
	assert.Contains(t, string(data), `bias_analyzer_stage_duration_seconds_count{stage="features"} 1`)
}
