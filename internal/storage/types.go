package storage

import (
	"context"
	"time"

	"github.com/samijaber1/aegis-watch/internal/model"
)

// Sink persists pipeline records. Calls are fire-and-forget for the
// pipeline: errors are logged by the caller and never retried.
type Sink interface {
	// StoreResult persists one probe result
	StoreResult(ctx context.Context, r model.ProbeResult) error

	// StoreMetrics persists one windowed metrics snapshot
	StoreMetrics(ctx context.Context, m model.SLAMetrics) error

	// StoreAlert persists an alert snapshot, upserting by ID where supported
	StoreAlert(ctx context.Context, a model.Alert) error

	// StoreOutageState persists the current state of one endpoint
	StoreOutageState(ctx context.Context, s model.OutageState) error

	// StoreOutageEvent persists one status transition
	StoreOutageEvent(ctx context.Context, e model.OutageEvent) error

	// Close releases the backend
	Close() error
}

// Querier is implemented by sinks that can read probe results back
type Querier interface {
	QueryResults(ctx context.Context, filter ResultFilter) ([]model.ProbeResult, error)
}

// DefaultQueryLimit applies when a filter has no limit
const DefaultQueryLimit = 100

// ResultFilter defines filtering options for result queries
type ResultFilter struct {
	Endpoint  string
	Outcome   model.Outcome
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Match reports whether r passes the endpoint, outcome and time filters
func (f ResultFilter) Match(r model.ProbeResult) bool {
	if f.Endpoint != "" && r.Endpoint != f.Endpoint {
		return false
	}
	if f.Outcome != "" && r.Outcome != f.Outcome {
		return false
	}
	if f.StartTime != nil && r.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && r.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}

// EffectiveLimit returns the limit, or DefaultQueryLimit when unset
func (f ResultFilter) EffectiveLimit() int {
	if f.Limit > 0 {
		return f.Limit
	}
	return DefaultQueryLimit
}
