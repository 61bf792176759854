package api

import (
	"time"

	"github.com/samijaber1/aegis-watch/internal/alert"
	"github.com/samijaber1/aegis-watch/internal/model"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse represents readiness check response
type ReadyResponse struct {
	Ready               bool     `json:"ready"`
	EndpointsConfigured int      `json:"endpointsConfigured"`
	Reasons             []string `json:"reasons,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// AlertsResponse lists alerts
type AlertsResponse struct {
	Alerts []model.Alert `json:"alerts"`
	Total  int           `json:"total"`
}

// ResolveRequest is the optional body of a manual resolution
type ResolveRequest struct {
	Reason string `json:"reason,omitempty"`
}

// TestAlertsResponse reports the connectivity test of every channel
type TestAlertsResponse struct {
	Success bool               `json:"success"`
	Results []alert.TestResult `json:"results"`
}

// SLAResponse holds per-endpoint metrics over the requested window
type SLAResponse struct {
	Window    string                      `json:"window"`
	Endpoints map[string]model.SLAMetrics `json:"endpoints"`
}

// ViolationState is the latest cycle's violations for one endpoint
type ViolationState struct {
	Violations []model.Violation `json:"violations"`
	UpdatedAt  time.Time         `json:"updatedAt"`
	IsStale    bool              `json:"isStale"`
}

// ViolationsResponse maps endpoint names to their latest violations
type ViolationsResponse struct {
	Endpoints map[string]ViolationState `json:"endpoints"`
}

// EndpointSummary describes one configured endpoint and its thresholds
type EndpointSummary struct {
	Name                   string   `json:"name"`
	URL                    string   `json:"url"`
	Method                 string   `json:"method"`
	ExpectedStatus         int      `json:"expectedStatus"`
	Timeout                string   `json:"timeout"`
	AvailabilityPercentage *float64 `json:"availabilityPercentage,omitempty"`
	MaxAvgResponseTimeMs   *float64 `json:"maxAvgResponseTimeMs,omitempty"`
	MaxErrorRatePercentage *float64 `json:"maxErrorRatePercentage,omitempty"`
}

// EndpointsResponse lists configured endpoints
type EndpointsResponse struct {
	Endpoints []EndpointSummary `json:"endpoints"`
}

// TriggerResponse reports a manually triggered cycle
type TriggerResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Total     int       `json:"total"`
	Healthy   int       `json:"healthy"`
}

// ResultsResponse lists stored probe results
type ResultsResponse struct {
	Results []model.ProbeResult `json:"results"`
	Total   int                 `json:"total"`
}
