// Package sessiongen generates deterministic synthetic trade sessions with a
// known behavioral profile.
package sessiongen

import (
	"math"
	"time"

	"trade-bias-analyzer/internal/errors"
	"trade-bias-analyzer/internal/models"
)

// Profile is the behavior a generated session exhibits.
type Profile string

const (
	// ProfileCalm trades once an hour with a fixed size.
	ProfileCalm Profile = "calm"
	// ProfileRevenge doubles position size after every loss and resets it
	// after a win.
	ProfileRevenge Profile = "revenge"
	// ProfileOvertrader trades every few minutes, faster after losses.
	ProfileOvertrader Profile = "overtrader"
)

// Profiles lists the supported profiles.
var Profiles = []Profile{ProfileCalm, ProfileRevenge, ProfileOvertrader}

// outcomePattern repeats with geometric win and loss run lengths, so trades
// following a loss win exactly half the time.
const outcomePattern = "WWLLLLWLLWLLLLWLWLLWWLWWWWLWWWL"

const (
	baseQuantity = 10.0
	basePrice    = 143.27
	priceStep    = 0.37
	tradeReturn  = 0.0083
)

// Options controls session generation.
type Options struct {
	Trades         int
	Start          time.Time
	InitialBalance float64
	Asset          string
}

// DefaultOptions returns a 200-trade session starting on a Monday morning.
func DefaultOptions() Options {
	return Options{
		Trades:         200,
		Start:          time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
		InitialBalance: 100000,
		Asset:          "ACME",
	}
}

// ParseProfile validates a profile name.
func ParseProfile(name string) (Profile, error) {
	for _, p := range Profiles {
		if string(p) == name {
			return p, nil
		}
	}
	return "", errors.NewValidationError("profile", name, "must be one of calm, revenge, overtrader")
}

// Generate builds a session for the given profile.
func Generate(profile Profile, opts Options) ([]models.TradeRecord, error) {
	if _, err := ParseProfile(string(profile)); err != nil {
		return nil, err
	}
	if opts.Trades <= 0 {
		return nil, errors.NewValidationError("trades", opts.Trades, "must be positive")
	}
	if opts.Asset == "" {
		opts.Asset = DefaultOptions().Asset
	}

	trades := make([]models.TradeRecord, 0, opts.Trades)
	balance := opts.InitialBalance
	quantity := baseQuantity
	ts := opts.Start

	for i := 0; i < opts.Trades; i++ {
		win := outcomePattern[i%len(outcomePattern)] == 'W'

		entry := basePrice + priceStep*float64(i%7)
		ret := tradeReturn
		if !win {
			ret = -ret
		}
		exit := math.Round(entry*(1+ret)*100) / 100

		qty := baseQuantity
		if profile == ProfileRevenge {
			qty = quantity
		}
		pnl := qty * (exit - entry)
		balance += pnl

		trades = append(trades, models.TradeRecord{
			Timestamp:  ts,
			Asset:      opts.Asset,
			Side:       models.SideBuy,
			Quantity:   qty,
			EntryPrice: entry,
			ExitPrice:  exit,
			PnL:        pnl,
			Balance:    balance,
		})

		if profile == ProfileRevenge {
			if win {
				quantity = baseQuantity
			} else {
				quantity *= 2
			}
		}

		switch {
		case profile != ProfileOvertrader:
			ts = ts.Add(time.Hour)
		case win:
			ts = ts.Add(8 * time.Minute)
		default:
			ts = ts.Add(2 * time.Minute)
		}
	}

	return trades, nil
}

// Replicate concatenates k copies of a session. Each copy is shifted past the
// previous one in time and continues its balance lineage.
func Replicate(trades []models.TradeRecord, k int) []models.TradeRecord {
	if len(trades) == 0 || k <= 1 {
		out := make([]models.TradeRecord, len(trades))
		copy(out, trades)
		return out
	}

	gap := time.Hour
	if len(trades) > 1 {
		gap = trades[1].Timestamp.Sub(trades[0].Timestamp)
	}
	span := trades[len(trades)-1].Timestamp.Sub(trades[0].Timestamp) + gap
	drift := trades[len(trades)-1].Balance - (trades[0].Balance - trades[0].PnL)

	out := make([]models.TradeRecord, 0, len(trades)*k)
	for j := 0; j < k; j++ {
		for _, t := range trades {
			t.Timestamp = t.Timestamp.Add(time.Duration(j) * span)
			t.Balance += float64(j) * drift
			out = append(out, t)
		}
	}
	return out
}
