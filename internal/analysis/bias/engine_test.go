package bias

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-bias-analyzer/internal/models"
	"trade-bias-analyzer/internal/sessiongen"
)

func TestEngineReturnsPriorityOrder(t *testing.T) {
	engine := NewEngine(8)
	scores, err := engine.DetectAll(context.Background(), generated(t, sessiongen.ProfileRevenge))
	require.NoError(t, err)
	require.Len(t, scores, len(models.BiasKinds))
	for i, s := range scores {
		assert.Equal(t, models.BiasKinds[i], s.Kind)
	}
}

func TestEngineDefaultsWorkers(t *testing.T) {
	assert.Equal(t, 4, NewEngine(0).Workers())
	assert.Equal(t, 2, NewEngine(2).Workers())
}

func TestEngineHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(2).DetectAll(ctx, generated(t, sessiongen.ProfileCalm))
	assert.ErrorIs(t, err, context.Canceled)
}

func BenchmarkDetectAll(b *testing.B) {
	trades, err := sessiongen.Generate(sessiongen.ProfileRevenge, sessiongen.DefaultOptions())
	if err != nil {
		b.Fatal(err)
	}
	enriched := enrich(b, sessiongen.Replicate(trades, 20))
	engine := NewEngine(4)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.DetectAll(context.Background(), enriched); err != nil {
			b.Fatal(err)
		}
	}
}
