package features

import (
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"

	"trade-bias-analyzer/internal/models"
	"trade-bias-analyzer/internal/sessiongen/sessiontest"
)

// Property: building features twice from the same trades yields identical
// output, one enriched trade per input trade.
func TestProperty_BuildIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	properties.Property("Build is deterministic and length preserving", prop.ForAll(
		func(trades []models.TradeRecord) bool {
			a, err := Build(trades)
			if err != nil {
				return false
			}
			b, err := Build(trades)
			if err != nil {
				return false
			}
			return len(a) == len(trades) && reflect.DeepEqual(a, b)
		},
		sessiontest.Arbitrary(1, 120),
	))

	properties.TestingRun(t)
}

// Property: derived signals respect their structural invariants.
func TestProperty_EnrichedInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	properties.Property("Drawdown, streak, window and context invariants hold", prop.ForAll(
		func(trades []models.TradeRecord) bool {
			out, err := Build(trades)
			if err != nil {
				return false
			}
			for i, e := range out {
				if e.DrawdownPct > 0 {
					return false
				}
				if e.IsWin != (e.StreakIndex > 0) || e.StreakIndex == 0 {
					return false
				}
				if e.TradesIn1h < 1 || e.TradesIn1h > e.TradesIn4h || e.TradesIn4h > len(out) {
					return false
				}
				if i == 0 {
					if e.TimeSinceLast != 0 || e.AfterLoss || e.AfterWin {
						return false
					}
					continue
				}
				if e.AfterLoss == e.AfterWin || e.AfterWin != out[i-1].IsWin {
					return false
				}
				if e.TimeSinceLast < 0 || e.HoldingDuration != e.TimeSinceLast {
					return false
				}
				if e.PeakBalance < out[i-1].PeakBalance {
					return false
				}
			}
			return true
		},
		sessiontest.Arbitrary(1, 120),
	))

	properties.TestingRun(t)
}
