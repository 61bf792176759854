package model

import "time"

// Outcome classifies a single probe
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeTimeout Outcome = "timeout"
	OutcomeError   Outcome = "error"
)

// Severity ranks violations, outage events and alerts
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ProbeResult is the immutable outcome of one HTTP check against one endpoint
type ProbeResult struct {
	Endpoint   string          `json:"endpoint"`
	URL        string          `json:"url"`
	Method     string          `json:"method"`
	Timestamp  time.Time       `json:"timestamp"`
	Outcome    Outcome         `json:"outcome"`
	StatusCode *int            `json:"statusCode,omitempty"`
	LatencyMs  *float64        `json:"latencyMs,omitempty"`
	SizeBytes  *int64          `json:"sizeBytes,omitempty"`
	Error      string          `json:"error,omitempty"`
	Checks     map[string]bool `json:"checks,omitempty"`
}

// IsSuccess reports whether the probe met every expectation
func (r ProbeResult) IsSuccess() bool {
	return r.Outcome == OutcomeSuccess
}

// Status returns the HTTP status code or 0 when no response was received
func (r ProbeResult) Status() int {
	if r.StatusCode == nil {
		return 0
	}
	return *r.StatusCode
}

// Latency returns the recorded latency and whether one was recorded
func (r ProbeResult) Latency() (float64, bool) {
	if r.LatencyMs == nil {
		return 0, false
	}
	return *r.LatencyMs, true
}
