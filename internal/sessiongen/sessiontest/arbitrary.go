// Package sessiontest provides gopter generators for random sessions.
package sessiontest

import (
	"reflect"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"

	"trade-bias-analyzer/internal/models"
	"trade-bias-analyzer/internal/sessiongen"
)

var assets = []string{"ACME", "GLOBEX", "INITECH", "UMBRELLA"}

// Step is one randomly drawn trade increment.
type Step struct {
	GapSeconds int
	Win        bool
	Quantity   float64
	EntryPrice float64
	Return     float64
	AssetIndex int
}

// FromSteps turns drawn steps into an ordered session with a consistent
// balance lineage.
func FromSteps(steps []Step, opts sessiongen.Options) []models.TradeRecord {
	trades := make([]models.TradeRecord, 0, len(steps))
	balance := opts.InitialBalance
	ts := opts.Start
	for i, s := range steps {
		if i > 0 {
			ts = ts.Add(time.Duration(s.GapSeconds) * time.Second)
		}
		ret := s.Return
		if !s.Win {
			ret = -ret
		}
		exit := s.EntryPrice * (1 + ret)
		pnl := s.Quantity * (exit - s.EntryPrice)
		balance += pnl
		trades = append(trades, models.TradeRecord{
			Timestamp:  ts,
			Asset:      assets[s.AssetIndex%len(assets)],
			Side:       models.SideBuy,
			Quantity:   s.Quantity,
			EntryPrice: s.EntryPrice,
			ExitPrice:  exit,
			PnL:        pnl,
			Balance:    balance,
		})
	}
	return trades
}

func stepGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(Step{}), map[string]gopter.Gen{
		"GapSeconds": gen.IntRange(0, 7200),
		"Win":        gen.Bool(),
		"Quantity":   gen.Float64Range(1, 200),
		"EntryPrice": gen.Float64Range(5, 2000),
		"Return":     gen.Float64Range(0, 0.05),
		"AssetIndex": gen.IntRange(0, len(assets)-1),
	})
}

// Arbitrary generates random sessions of minLen to maxLen trades for
// property tests.
func Arbitrary(minLen, maxLen int) gopter.Gen {
	opts := sessiongen.DefaultOptions()
	return gen.IntRange(minLen, maxLen).FlatMap(func(v interface{}) gopter.Gen {
		return gen.SliceOfN(v.(int), stepGen())
	}, reflect.TypeOf([]Step{})).Map(func(steps []Step) []models.TradeRecord {
		return FromSteps(steps, opts)
	})
}
