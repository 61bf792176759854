package model

import "time"

// SLAMetrics holds windowed statistics for one endpoint.
// Percentiles stay at 0 when fewer than 20 latency samples were available.
type SLAMetrics struct {
	Endpoint     string    `json:"endpoint"`
	WindowStart  time.Time `json:"windowStart"`
	WindowEnd    time.Time `json:"windowEnd"`
	Total        int       `json:"total"`
	Success      int       `json:"success"`
	Failed       int       `json:"failed"`
	Availability float64   `json:"availability"`
	ErrorRate    float64   `json:"errorRate"`

	// LatencySamples counts successful probes with a recorded latency.
	// The latency fields are 0 when it is 0.
	LatencySamples int     `json:"latencySamples"`
	AvgLatencyMs   float64 `json:"avgLatencyMs"`
	MinLatencyMs   float64 `json:"minLatencyMs"`
	MaxLatencyMs   float64 `json:"maxLatencyMs"`
	P95LatencyMs   float64 `json:"p95LatencyMs"`
	P99LatencyMs   float64 `json:"p99LatencyMs"`
}

// HasTraffic reports whether any probe fell inside the window
func (m SLAMetrics) HasTraffic() bool {
	return m.Total > 0
}

// HasLatency reports whether latency statistics were measured
func (m SLAMetrics) HasLatency() bool {
	return m.LatencySamples > 0
}

// ViolationKind names the threshold that was breached
type ViolationKind string

const (
	ViolationAvailability ViolationKind = "availability"
	ViolationResponseTime ViolationKind = "response_time"
	ViolationErrorRate    ViolationKind = "error_rate"
)

// Violation is a single threshold breach derived from one SLAMetrics snapshot
type Violation struct {
	Endpoint    string        `json:"endpoint"`
	Kind        ViolationKind `json:"kind"`
	Timestamp   time.Time     `json:"timestamp"`
	Severity    Severity      `json:"severity"`
	Current     float64       `json:"current"`
	Threshold   float64       `json:"threshold"`
	Description string        `json:"description"`
}
