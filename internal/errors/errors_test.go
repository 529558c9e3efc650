package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsufficientDataErrorUnwrapsToSentinel(t *testing.T) {
	err := NewInsufficientDataError("feature build", 1, 0)
	wrapped := Wrap(err, "analyzing session")

	assert.True(t, Is(wrapped, ErrInsufficientData))

	var target *InsufficientDataError
	require.True(t, As(wrapped, &target))
	assert.Equal(t, 1, target.Need)
	assert.Equal(t, 0, target.Got)
	assert.Contains(t, wrapped.Error(), "need at least 1 trades, got 0")
}

func TestValidationErrorUnwrapsToInvalidInput(t *testing.T) {
	err := NewValidationError("stop_loss_pct", -2.0, "must be positive")
	assert.True(t, Is(err, ErrInvalidInput))
	assert.Equal(t, "validation error: stop_loss_pct (-2): must be positive", err.Error())
}

func TestDataErrorFormatting(t *testing.T) {
	cause := fmt.Errorf("strconv: bad number")
	err := NewDataError("trades.csv", 4, "invalid quantity", cause)
	assert.Equal(t, "data error [trades.csv row 4]: invalid quantity: strconv: bad number", err.Error())
	assert.True(t, Is(err, cause))

	noRow := NewDataError("trades.csv", 0, "missing columns", nil)
	assert.Equal(t, "data error [trades.csv]: missing columns", noRow.Error())
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "noop"))
	assert.NoError(t, Wrapf(nil, "noop %d", 1))
}
