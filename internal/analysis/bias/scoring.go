// Package bias implements the five behavioral bias detectors on top of a
// shared sigmoid-composite scoring primitive.
package bias

import (
	"math"

	"trade-bias-analyzer/internal/analysis/stats"
	"trade-bias-analyzer/internal/models"
)

// Omission reasons recorded in score details.
const (
	ReasonInsufficientData = "insufficient_data"
	ReasonNonFinite        = "non_finite"
	ReasonZeroDenominator  = "zero_denominator"
	ReasonZeroVariance     = "zero_variance"
	ReasonZeroDuration     = "zero_duration"
	ReasonInactive         = "inactive"
)

// Signal is one weighted sub-signal of a composite bias score.
type Signal struct {
	Name      string
	Weight    float64
	Midpoint  float64
	Steepness float64
}

// Sigmoid maps x into (0, 100) with the given midpoint and steepness.
func Sigmoid(x, midpoint, steepness float64) float64 {
	return 100 / (1 + math.Exp(-steepness*(x-midpoint)))
}

// Composite accumulates sub-signals into one renormalized weighted score.
// Signals that cannot be computed are omitted and their weight dropped.
type Composite struct {
	kind     models.BiasKind
	details  map[string]interface{}
	omitted  map[string]string
	weighted float64
	weights  float64
}

// NewComposite starts a composite score for the given bias.
func NewComposite(kind models.BiasKind) *Composite {
	return &Composite{
		kind:    kind,
		details: make(map[string]interface{}),
		omitted: make(map[string]string),
	}
}

// Add includes a signal evaluated at x. Non-finite inputs are omitted.
func (c *Composite) Add(sig Signal, x float64) {
	if !stats.Finite(x) {
		c.Omit(sig, ReasonNonFinite)
		return
	}
	sub := Sigmoid(x, sig.Midpoint, sig.Steepness)
	if !stats.Finite(sub) {
		c.Omit(sig, ReasonNonFinite)
		return
	}
	c.weighted += sig.Weight * sub
	c.weights += sig.Weight
	c.details[sig.Name+"_score"] = round(sub, 2)
}

// Omit records that a signal was excluded and why.
func (c *Composite) Omit(sig Signal, reason string) {
	c.omitted[sig.Name] = reason
}

// Set records an explanatory detail.
func (c *Composite) Set(key string, value interface{}) {
	if f, ok := value.(float64); ok {
		if !stats.Finite(f) {
			return
		}
		value = round(f, 4)
	}
	c.details[key] = value
}

// Score finalizes the composite. With no included signal the score is 0 and
// the details carry reason insufficient_data.
func (c *Composite) Score() models.BiasScore {
	score := 0.0
	if c.weights > 0 {
		score = stats.Clamp(c.weighted/c.weights, 0, 100)
	} else {
		c.details["reason"] = ReasonInsufficientData
	}
	score = round(score, 1)

	if len(c.omitted) > 0 {
		c.details["omitted"] = c.omitted
	}
	c.details["weight_used"] = round(c.weights, 4)

	return models.BiasScore{
		Kind:    c.kind,
		Score:   score,
		Band:    models.BandFor(score),
		Details: c.details,
	}
}

// Included reports whether the named signal contributed to the score.
func Included(score models.BiasScore, signal string) bool {
	_, ok := score.Details[signal+"_score"]
	return ok
}

// OmissionReason returns why the named signal was omitted, if it was.
// Details decoded from JSON carry the omissions as map[string]interface{}.
func OmissionReason(score models.BiasScore, signal string) (string, bool) {
	switch omitted := score.Details["omitted"].(type) {
	case map[string]string:
		reason, ok := omitted[signal]
		return reason, ok
	case map[string]interface{}:
		reason, ok := omitted[signal].(string)
		return reason, ok
	default:
		return "", false
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
