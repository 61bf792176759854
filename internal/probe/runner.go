package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/samijaber1/aegis-watch/internal/config"
	"github.com/samijaber1/aegis-watch/internal/model"
)

// CheckFunc probes a single endpoint
type CheckFunc func(ctx context.Context, ep config.Endpoint) model.ProbeResult

// Runner fans one monitoring cycle out across all endpoints with bounded
// concurrency
type Runner struct {
	check      CheckFunc
	maxWorkers int64
	logger     *zap.Logger
}

// NewRunner creates a runner that keeps at most maxWorkers checks in flight
func NewRunner(check CheckFunc, maxWorkers int, logger *zap.Logger) *Runner {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		check:      check,
		maxWorkers: int64(maxWorkers),
		logger:     logger,
	}
}

// Run probes every endpoint once and returns one result per endpoint, in
// endpoint order. A panicking check becomes an error result.
func (r *Runner) Run(ctx context.Context, endpoints []config.Endpoint) []model.ProbeResult {
	results := make([]model.ProbeResult, len(endpoints))
	sem := semaphore.NewWeighted(r.maxWorkers)

	var wg sync.WaitGroup
	for i, ep := range endpoints {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = errorResult(ep, fmt.Sprintf("semaphore acquire: %v", err))
			continue
		}

		wg.Add(1)
		go func(i int, ep config.Endpoint) {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("probe task panicked", zap.String("endpoint", ep.Name), zap.Any("panic", rec))
					results[i] = errorResult(ep, fmt.Sprintf("unexpected error: %v", rec))
				}
			}()

			results[i] = r.check(ctx, ep)
		}(i, ep)
	}

	wg.Wait()
	return results
}

func errorResult(ep config.Endpoint, msg string) model.ProbeResult {
	return model.ProbeResult{
		Endpoint:  ep.Name,
		URL:       ep.URL,
		Method:    ep.Method,
		Timestamp: time.Now(),
		Outcome:   model.OutcomeError,
		Error:     msg,
	}
}
