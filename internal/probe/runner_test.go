package probe

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samijaber1/aegis-watch/internal/config"
	"github.com/samijaber1/aegis-watch/internal/model"
)

func endpoints(n int) []config.Endpoint {
	eps := make([]config.Endpoint, n)
	for i := range eps {
		eps[i] = config.Endpoint{Name: fmt.Sprintf("ep-%d", i), URL: "http://example.invalid"}
	}
	return eps
}

func TestRunner_BoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	check := func(ctx context.Context, ep config.Endpoint) model.ProbeResult {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return model.ProbeResult{Endpoint: ep.Name, Outcome: model.OutcomeSuccess}
	}

	results := NewRunner(check, 3, nil).Run(context.Background(), endpoints(10))

	require.Len(t, results, 10)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("ep-%d", i), r.Endpoint)
		assert.Equal(t, model.OutcomeSuccess, r.Outcome)
	}
}

func TestRunner_PanicBecomesErrorResult(t *testing.T) {
	check := func(ctx context.Context, ep config.Endpoint) model.ProbeResult {
		if ep.Name == "ep-1" {
			panic("kaboom")
		}
		return model.ProbeResult{Endpoint: ep.Name, Outcome: model.OutcomeSuccess}
	}

	results := NewRunner(check, 2, nil).Run(context.Background(), endpoints(3))

	require.Len(t, results, 3)
	assert.Equal(t, model.OutcomeSuccess, results[0].Outcome)
	assert.Equal(t, model.OutcomeError, results[1].Outcome)
	assert.Equal(t, "ep-1", results[1].Endpoint)
	assert.Contains(t, results[1].Error, "kaboom")
	assert.Equal(t, model.OutcomeSuccess, results[2].Outcome)
}

func TestRunner_SlowProbeDoesNotBlockOthers(t *testing.T) {
	check := func(ctx context.Context, ep config.Endpoint) model.ProbeResult {
		if ep.Name == "ep-0" {
			time.Sleep(100 * time.Millisecond)
			return model.ProbeResult{Endpoint: ep.Name, Outcome: model.OutcomeTimeout}
		}
		return model.ProbeResult{Endpoint: ep.Name, Outcome: model.OutcomeSuccess}
	}

	start := time.Now()
	results := NewRunner(check, 4, nil).Run(context.Background(), endpoints(8))

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, model.OutcomeTimeout, results[0].Outcome)
	for _, r := range results[1:] {
		assert.Equal(t, model.OutcomeSuccess, r.Outcome)
	}
}

func TestRunner_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := int32(0)
	check := func(ctx context.Context, ep config.Endpoint) model.ProbeResult {
		atomic.AddInt32(&called, 1)
		return model.ProbeResult{Endpoint: ep.Name, Outcome: model.OutcomeSuccess}
	}

	results := NewRunner(check, 1, nil).Run(ctx, endpoints(2))
	require.Len(t, results, 2)
	for _, r := range results {
		if r.Outcome == model.OutcomeError {
			assert.Contains(t, r.Error, "semaphore acquire")
		}
	}
}
