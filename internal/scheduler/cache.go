package scheduler

import (
	"sync"
	"time"

	"github.com/samijaber1/aegis-watch/internal/model"
)

// MetricsState is the latest cycle's metrics and violations for an endpoint
type MetricsState struct {
	Metrics    model.SLAMetrics  `json:"metrics"`
	Violations []model.Violation `json:"violations"`
	UpdatedAt  time.Time         `json:"updatedAt"`
	TTL        time.Duration     `json:"-"`
}

// IsStale returns true if the cached state is older than its TTL
func (s *MetricsState) IsStale(now time.Time) bool {
	return now.Sub(s.UpdatedAt) > s.TTL
}

// StateCache is a thread-safe cache of per-endpoint cycle results
type StateCache struct {
	mu     sync.RWMutex
	states map[string]*MetricsState
}

// NewStateCache creates a new state cache
func NewStateCache() *StateCache {
	return &StateCache{
		states: make(map[string]*MetricsState),
	}
}

// Get retrieves cached state for an endpoint
func (c *StateCache) Get(endpoint string) (*MetricsState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state, exists := c.states[endpoint]
	return state, exists
}

// Set stores the state for an endpoint
func (c *StateCache) Set(endpoint string, state *MetricsState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.states[endpoint] = state
}

// GetAll returns a snapshot of all cached states
func (c *StateCache) GetAll() map[string]*MetricsState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]*MetricsState, len(c.states))
	for k, v := range c.states {
		snapshot[k] = v
	}

	return snapshot
}

// Size returns the number of cached states
func (c *StateCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.states)
}
