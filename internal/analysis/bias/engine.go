package bias

import (
	"context"
	"sync"

	"trade-bias-analyzer/internal/analysis"
	"trade-bias-analyzer/internal/models"
)

// Engine runs bias detectors in parallel using a worker pool.
type Engine struct {
	workers   int
	detectors []analysis.Detector
}

// NewEngine creates a new detector engine with the specified number of
// workers and the five standard detectors.
func NewEngine(workers int) *Engine {
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		workers:   workers,
		detectors: Detectors(),
	}
}

// Workers returns the configured worker count.
func (e *Engine) Workers() int {
	return e.workers
}

type job struct {
	index    int
	detector analysis.Detector
}

// DetectAll runs every detector against the same trades. Scores are returned
// in bias priority order regardless of completion order.
func (e *Engine) DetectAll(ctx context.Context, trades []models.EnrichedTrade) ([]models.BiasScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := make([]models.BiasScore, len(e.detectors))
	work := make(chan job, len(e.detectors))
	var wg sync.WaitGroup

	workers := e.workers
	if workers > len(e.detectors) {
		workers = len(e.detectors)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range work {
				select {
				case <-ctx.Done():
					return
				default:
					// Each worker writes a distinct index.
					scores[j.index] = j.detector.Detect(trades)
				}
			}
		}()
	}

	for i, d := range e.detectors {
		work <- job{index: i, detector: d}
	}
	close(work)

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}
