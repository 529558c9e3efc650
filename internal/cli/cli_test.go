package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"trade-bias-analyzer/internal/errors"
	"trade-bias-analyzer/internal/models"
	"trade-bias-analyzer/internal/store"
)

// testEnv is a config directory with console logging turned off.
type testEnv struct {
	t   *testing.T
	dir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	content := "[logging]\nconsole = false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644))
	return &testEnv{t: t, dir: dir}
}

func (e *testEnv) run(args ...string) (string, error) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", e.dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "biasanalyzer %s", strings.Join(args, " "))
	return out
}

func (e *testEnv) generate(profile string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, profile+".csv")
	e.mustRun("generate", profile, "-o", path)
	return path
}

func TestVersionCommand(t *testing.T) {
	env := newTestEnv(t)

	assert.Contains(t, env.mustRun("version"), "Trade Bias Analyzer v"+Version)

	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("version", "--json")), &v))
	assert.Equal(t, Version, v["version"])
}

func TestGenerateWritesCSV(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("generate", "calm", "--trades", "3")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "timestamp,asset,side,quantity,entry_price,exit_price,profit_loss,balance", lines[0])

	_, err := env.run("generate", "panic")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = env.run("generate", "calm", "--replicate", "0")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestAnalyzeRevengeJSON(t *testing.T) {
	env := newTestEnv(t)
	path := env.generate("revenge")

	var result struct {
		TradeCount int `json:"trade_count"`
		Scores     []struct {
			Kind  string  `json:"kind"`
			Score float64 `json:"score"`
			Band  string  `json:"band"`
		} `json:"scores"`
		Archetype struct {
			Label string `json:"label"`
		} `json:"archetype"`
		Timeline    []json.RawMessage `json:"bias_timeline"`
		EquityCurve []json.RawMessage `json:"equity_curve"`
	}
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("analyze", path, "--json")), &result))

	assert.Equal(t, 200, result.TradeCount)
	require.Len(t, result.Scores, len(models.BiasKinds))
	assert.Equal(t, string(models.BiasRevengeTrading), result.Scores[2].Kind)
	assert.Greater(t, result.Scores[2].Score, 60.0)
	assert.Equal(t, string(models.BandHighRisk), result.Scores[2].Band)
	assert.Equal(t, string(models.ArchetypeEmotionallyReactive), result.Archetype.Label)
	assert.Empty(t, result.Timeline)
	assert.Len(t, result.EquityCurve, 200)
}

func TestAnalyzeText(t *testing.T) {
	env := newTestEnv(t)
	path := env.generate("revenge")

	out := env.mustRun("analyze", path)
	assert.Contains(t, out, "Session Summary")
	assert.Contains(t, out, "Revenge Trading")
	assert.Contains(t, out, "Dominant bias: Revenge Trading")
	assert.Contains(t, out, "Archetype: Emotionally Reactive")
	assert.NotContains(t, out, "\x1b[", "no color when not on a terminal")
}

func TestTimelineYAML(t *testing.T) {
	env := newTestEnv(t)
	path := env.generate("overtrader")

	var points []map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(env.mustRun("timeline", path, "--yaml")), &points))
	require.Len(t, points, 18)
	for _, p := range points {
		assert.GreaterOrEqual(t, p["trade_count"], 15)
		assert.Len(t, p["scores"], len(models.BiasKinds))
	}

	text := env.mustRun("timeline", path)
	assert.Contains(t, text, "Bias Timeline")
	assert.Contains(t, text, "RT")
}

func TestAnalyzeErrors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("analyze", filepath.Join(env.dir, "missing.csv"))
	var dataErr *errors.DataError
	assert.ErrorAs(t, err, &dataErr)

	empty := filepath.Join(env.dir, "header.csv")
	require.NoError(t, os.WriteFile(empty, []byte("timestamp,asset,side,quantity,entry_price,exit_price,profit_loss,balance\n"), 0644))
	_, err = env.run("analyze", empty)
	assert.Error(t, err)

	_, err = env.run("analyze")
	assert.Error(t, err)
}

func TestWhatIfPositionCap(t *testing.T) {
	env := newTestEnv(t)
	path := env.generate("revenge")

	var result models.CounterfactualResult
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("whatif", path, "--max-position-pct", "1", "--json")), &result))

	assert.Equal(t, 200, result.TradesOriginal)
	assert.Equal(t, 200, result.TradesSimulated)
	require.NotNil(t, result.Params.MaxPositionPct)
	assert.Equal(t, 1.0, *result.Params.MaxPositionPct)
	assert.Nil(t, result.Params.StopLossPct)
	assert.Greater(t, result.Improvement["max_drawdown_pct"], 0.0)
	assert.Greater(t, result.ExcludedBreakdown[models.AdjustedPositionCap], 0)

	text := env.mustRun("whatif", path, "--max-position-pct", "1", "--chart")
	assert.Contains(t, text, "max position 1%")
	assert.Contains(t, text, "Equity Curve")
	assert.Contains(t, text, "█")
}

func TestWhatIfSweep(t *testing.T) {
	env := newTestEnv(t)
	path := env.generate("revenge")

	var results []models.CounterfactualResult
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("whatif", path, "--sweep-position-pct", "1,5", "--json")), &results))
	require.Len(t, results, 2)
	assert.Equal(t, 1.0, *results[0].Params.MaxPositionPct)
	assert.Equal(t, 5.0, *results[1].Params.MaxPositionPct)

	text := env.mustRun("whatif", path, "--sweep-position-pct", "1,5")
	assert.Contains(t, text, "Position Cap Sweep")
}

func TestWhatIfValidation(t *testing.T) {
	env := newTestEnv(t)
	path := env.generate("calm")

	_, err := env.run("whatif")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = env.run("whatif", path, "--stop-loss-pct", "-1")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	path := env.generate("revenge")

	out := env.mustRun("analyze", path, "--save", "--no-timeline")
	assert.Contains(t, out, "Saved session")

	var sessions []store.SessionSummary
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("sessions", "list", "--json")), &sessions))
	require.Len(t, sessions, 1)
	id := sessions[0].ID
	assert.Equal(t, path, sessions[0].Source)
	assert.Equal(t, string(models.ArchetypeEmotionallyReactive), sessions[0].Archetype)

	var run models.CounterfactualResult
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("whatif", "--session", id[:8], "--stop-loss-pct", "1", "--save", "--json")), &run))
	assert.Equal(t, 200, run.TradesOriginal)

	var shown struct {
		ID     string `json:"id"`
		Result struct {
			TradeCount int `json:"trade_count"`
		} `json:"result"`
		Runs []store.CounterfactualRun `json:"counterfactual_runs"`
	}
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("sessions", "show", id, "--json")), &shown))
	assert.Equal(t, id, shown.ID)
	assert.Equal(t, 200, shown.Result.TradeCount)
	require.Len(t, shown.Runs, 1)
	require.NotNil(t, shown.Runs[0].Result.Params.StopLossPct)
	assert.Equal(t, 1.0, *shown.Runs[0].Result.Params.StopLossPct)

	text := env.mustRun("sessions", "show", id[:8])
	assert.Contains(t, text, "What-If Runs")
	assert.Contains(t, text, "stop loss 1%")

	assert.Contains(t, env.mustRun("sessions", "list"), id[:8])

	env.mustRun("sessions", "delete", id)
	_, err := env.run("sessions", "show", id)
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)

	assert.Contains(t, env.mustRun("sessions", "list"), "No stored sessions.")
}

func TestWhatIfSaveFromFileStoresSession(t *testing.T) {
	env := newTestEnv(t)
	path := env.generate("calm")

	out := env.mustRun("whatif", path, "--max-daily-trades", "5", "--save")
	assert.Contains(t, out, "Saved run")

	var sessions []store.SessionSummary
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("sessions", "list", "--json")), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, string(models.ArchetypeSystematicDisciplined), sessions[0].Archetype)
}

func TestMetricsOut(t *testing.T) {
	env := newTestEnv(t)
	path := env.generate("overtrader")
	metricsPath := filepath.Join(env.dir, "analyzer.prom")

	env.mustRun("analyze", path, "--json", "--metrics-out", metricsPath)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "bias_analyzer_analyses_total 1")
	assert.Contains(t, text, "bias_analyzer_trades_analyzed_total 200")
	assert.Contains(t, text, "bias_analyzer_timeline_points_total 18")
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, env.dir+"\n", env.mustRun("config", "path"))
	assert.Contains(t, env.mustRun("config", "validate"), "Configuration is valid")

	var cfg map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(env.mustRun("config", "show", "--yaml")), &cfg))
	assert.Contains(t, cfg, "analysis")

	assert.Contains(t, env.mustRun("config", "show"), "Counterfactual defaults")
}

func TestJSONAndYAMLAreExclusive(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("version", "--json", "--yaml")
	assert.Error(t, err)
}
