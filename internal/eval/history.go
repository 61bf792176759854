package eval

import (
	"sync"
	"time"

	"github.com/samijaber1/aegis-watch/internal/model"
)

// History is the rolling, append-only record of probe results. It is
// written by the pipeline driver and read concurrently by dashboards.
type History struct {
	mu        sync.RWMutex
	results   []model.ProbeResult
	retention time.Duration
}

// NewHistory creates a history that keeps results for retention
func NewHistory(retention time.Duration) *History {
	return &History{retention: retention}
}

// Append adds results in order
func (h *History) Append(results ...model.ProbeResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.results = append(h.results, results...)
}

// Prune drops results older than the retention horizon and returns how many
// were removed
func (h *History) Prune(now time.Time) int {
	if h.retention <= 0 {
		return 0
	}
	cutoff := now.Add(-h.retention)

	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.results[:0]
	for _, r := range h.results {
		if !r.Timestamp.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	removed := len(h.results) - len(kept)

	// Clear the tail so pruned results can be collected
	for i := len(kept); i < len(h.results); i++ {
		h.results[i] = model.ProbeResult{}
	}
	h.results = kept
	return removed
}

// Window returns the results for endpoint with start <= timestamp < end.
// An empty endpoint matches every endpoint.
func (h *History) Window(endpoint string, start, end time.Time) []model.ProbeResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []model.ProbeResult
	for _, r := range h.results {
		if endpoint != "" && r.Endpoint != endpoint {
			continue
		}
		if r.Timestamp.Before(start) || !r.Timestamp.Before(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Snapshot returns a copy of every retained result
func (h *History) Snapshot() []model.ProbeResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]model.ProbeResult, len(h.results))
	copy(out, h.results)
	return out
}

// Len returns the number of retained results
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.results)
}
