package sessiongen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-bias-analyzer/internal/errors"
)

func TestGenerateRevengeDoublesAfterLoss(t *testing.T) {
	trades, err := Generate(ProfileRevenge, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, trades, 200)

	for i := 1; i < len(trades); i++ {
		prev := trades[i-1]
		if prev.PnL > 0 {
			assert.Equal(t, baseQuantity, trades[i].Quantity, "trade %d should reset after a win", i)
		} else {
			assert.Equal(t, prev.Quantity*2, trades[i].Quantity, "trade %d should double after a loss", i)
		}
		assert.Equal(t, 3600.0, trades[i].Timestamp.Sub(prev.Timestamp).Seconds())
		assert.InDelta(t, prev.Balance+trades[i].PnL, trades[i].Balance, 1e-6)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	a, err := Generate(ProfileOvertrader, DefaultOptions())
	require.NoError(t, err)
	b, err := Generate(ProfileOvertrader, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateRejectsBadInput(t *testing.T) {
	_, err := Generate("reckless", DefaultOptions())
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	opts := DefaultOptions()
	opts.Trades = 0
	_, err = Generate(ProfileCalm, opts)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestReplicate(t *testing.T) {
	opts := DefaultOptions()
	opts.Trades = 10
	trades, err := Generate(ProfileCalm, opts)
	require.NoError(t, err)

	out := Replicate(trades, 3)
	require.Len(t, out, 30)

	for i := 1; i < len(out); i++ {
		assert.True(t, out[i].Timestamp.After(out[i-1].Timestamp), "timestamps must stay increasing at %d", i)
		assert.InDelta(t, out[i-1].Balance+out[i].PnL, out[i].Balance, 1e-6, "balance lineage at %d", i)
	}

	single := Replicate(trades, 1)
	assert.Equal(t, trades, single)
}
