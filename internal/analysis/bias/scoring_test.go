package bias

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-bias-analyzer/internal/models"
)

func TestSigmoid(t *testing.T) {
	assert.InDelta(t, 50.0, Sigmoid(0.3, 0.3, 6), 1e-12)
	assert.Greater(t, Sigmoid(10, 0.3, 6), 99.9)
	assert.Less(t, Sigmoid(-10, 0.3, 6), 0.1)
	assert.InDelta(t, 100/(1+math.Exp(-0.6*(1-6))), Sigmoid(1, 6, 0.6), 1e-12)
}

func TestCompositeRenormalizesOmittedWeights(t *testing.T) {
	a := Signal{Name: "a", Weight: 0.4, Midpoint: 0, Steepness: 1}
	b := Signal{Name: "b", Weight: 0.6, Midpoint: 0, Steepness: 1}

	c := NewComposite(models.BiasOvertrading)
	c.Add(a, 0)
	c.Omit(b, ReasonInsufficientData)
	score := c.Score()

	assert.Equal(t, 50.0, score.Score, "a single included signal carries the full weight")
	assert.Equal(t, models.BandElevated, score.Band)
	assert.True(t, Included(score, "a"))
	assert.False(t, Included(score, "b"))
	reason, ok := OmissionReason(score, "b")
	assert.True(t, ok)
	assert.Equal(t, ReasonInsufficientData, reason)
}

func TestOmissionReasonAfterJSONRoundTrip(t *testing.T) {
	a := Signal{Name: "a", Weight: 0.5, Midpoint: 0, Steepness: 1}
	b := Signal{Name: "b", Weight: 0.5, Midpoint: 0, Steepness: 1}

	c := NewComposite(models.BiasLossAversion)
	c.Add(a, 1)
	c.Omit(b, ReasonZeroVariance)

	data, err := json.Marshal(c.Score())
	require.NoError(t, err)
	var stored models.BiasScore
	require.NoError(t, json.Unmarshal(data, &stored))

	reason, ok := OmissionReason(stored, "b")
	assert.True(t, ok)
	assert.Equal(t, ReasonZeroVariance, reason)
	_, ok = OmissionReason(stored, "a")
	assert.False(t, ok)
}

func TestCompositeDropsNonFiniteSignals(t *testing.T) {
	a := Signal{Name: "a", Weight: 0.5, Midpoint: 0, Steepness: 1}
	b := Signal{Name: "b", Weight: 0.5, Midpoint: 0, Steepness: 1}

	c := NewComposite(models.BiasAnchoring)
	c.Add(a, math.NaN())
	c.Add(b, math.Inf(1))
	score := c.Score()

	assert.Equal(t, 0.0, score.Score)
	assert.Equal(t, models.BandDisciplined, score.Band)
	assert.Equal(t, ReasonInsufficientData, score.Details["reason"])
	reason, _ := OmissionReason(score, "a")
	assert.Equal(t, ReasonNonFinite, reason)
}

func TestCompositeSetSkipsNonFiniteDetails(t *testing.T) {
	c := NewComposite(models.BiasAnchoring)
	c.Set("bad", math.NaN())
	c.Set("good", 1.23456789)
	c.Set("flag", true)
	score := c.Score()

	_, ok := score.Details["bad"]
	assert.False(t, ok)
	assert.Equal(t, 1.2346, score.Details["good"])
	assert.Equal(t, true, score.Details["flag"])
}
