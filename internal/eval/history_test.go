package eval

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samijaber1/aegis-watch/internal/model"
)

func TestHistory_PruneAndWindow(t *testing.T) {
	h := NewHistory(24 * time.Hour)
	h.Append(
		result("api", -25*time.Hour, model.OutcomeSuccess, 1),
		result("api", -2*time.Hour, model.OutcomeSuccess, 2),
		result("db", -30*time.Minute, model.OutcomeFailure, -1),
		result("api", -10*time.Minute, model.OutcomeFailure, -1),
	)

	removed := h.Prune(base)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 3, h.Len())

	apiLastHour := h.Window("api", base.Add(-time.Hour), base)
	require.Len(t, apiLastHour, 1)
	assert.Equal(t, model.OutcomeFailure, apiLastHour[0].Outcome)

	all := h.Window("", base.Add(-time.Hour), base)
	assert.Len(t, all, 2)
}

func TestHistory_SnapshotIsCopy(t *testing.T) {
	h := NewHistory(time.Hour)
	h.Append(result("api", 0, model.OutcomeSuccess, 1))

	snap := h.Snapshot()
	snap[0].Endpoint = "mutated"

	assert.Equal(t, "api", h.Snapshot()[0].Endpoint)
}

func TestHistory_ConcurrentReaders(t *testing.T) {
	h := NewHistory(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Window("api", base.Add(-time.Hour), base.Add(time.Hour))
			}
		}()
	}
	for i := 0; i < 100; i++ {
		h.Append(result("api", time.Duration(i)*time.Second, model.OutcomeSuccess, float64(i)))
	}
	wg.Wait()

	assert.Equal(t, 100, h.Len())
}

func TestEvaluator_EvaluateAll(t *testing.T) {
	h := NewHistory(24 * time.Hour)
	h.Append(
		result("api", -90*time.Minute, model.OutcomeFailure, -1),
		result("api", -30*time.Minute, model.OutcomeSuccess, 120),
		result("api", 0, model.OutcomeSuccess, 80),
		result("db", -5*time.Minute, model.OutcomeFailure, -1),
	)

	metrics := NewEvaluator(h).EvaluateAll([]string{"api", "db", "idle"}, time.Hour, base)

	require.Len(t, metrics, 3)
	assert.Equal(t, 2, metrics["api"].Total, "result stamped at now is included")
	assert.InDelta(t, 100, metrics["api"].Availability, 0.0001)
	assert.InDelta(t, 100, metrics["api"].AvgLatencyMs, 0.0001)
	assert.Equal(t, base, metrics["api"].WindowEnd)
	assert.InDelta(t, 100, metrics["db"].ErrorRate, 0.0001)
	assert.Zero(t, metrics["idle"].Total)

	single := NewEvaluator(h).Evaluate("api", base.Add(-2*time.Hour), base)
	assert.Equal(t, 2, single.Total)
}
