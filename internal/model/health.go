package model

import "time"

// EndpointHealth is the recent-window view of one endpoint
type EndpointHealth struct {
	Healthy           bool         `json:"healthy"`
	Status            OutageStatus `json:"status"`
	LastCheck         *time.Time   `json:"lastCheck,omitempty"`
	LastOutcome       Outcome      `json:"lastOutcome,omitempty"`
	LastStatusCode    *int         `json:"lastStatusCode,omitempty"`
	LastLatencyMs     *float64     `json:"lastLatencyMs,omitempty"`
	Availability      float64      `json:"availability"`
	AvgResponseTimeMs float64      `json:"avgResponseTimeMs"`
	TotalChecks       int          `json:"totalChecks"`
}

// HealthStatus summarizes every endpoint over the recent window
type HealthStatus struct {
	Timestamp           time.Time                 `json:"timestamp"`
	Window              string                    `json:"window"`
	TotalEndpoints      int                       `json:"totalEndpoints"`
	HealthyEndpoints    int                       `json:"healthyEndpoints"`
	OverallAvailability float64                   `json:"overallAvailability"`
	AvgResponseTimeMs   float64                   `json:"avgResponseTimeMs"`
	ActiveAlerts        int                       `json:"activeAlerts"`
	Endpoints           map[string]EndpointHealth `json:"endpoints"`
}
