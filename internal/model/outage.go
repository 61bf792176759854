package model

import "time"

// OutageStatus is the detector state of an endpoint
type OutageStatus string

const (
	StatusHealthy  OutageStatus = "healthy"
	StatusDegraded OutageStatus = "degraded"
	StatusOutage   OutageStatus = "outage"

	// StatusUnknown is reported for endpoints with no recent probe
	StatusUnknown OutageStatus = "unknown"
)

// OutageState tracks the failure streak of one endpoint
type OutageState struct {
	Endpoint            string       `json:"endpoint"`
	Status              OutageStatus `json:"status"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	FailuresInWindow    int          `json:"failuresInWindow"`
	LastSuccess         *time.Time   `json:"lastSuccess,omitempty"`
	LastFailure         *time.Time   `json:"lastFailure,omitempty"`
	OutageStart         *time.Time   `json:"outageStart,omitempty"`
	LastError           string       `json:"lastError,omitempty"`
	LastStatusCode      *int         `json:"lastStatusCode,omitempty"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

// OutageDuration returns how long the current outage has lasted, or 0
func (s OutageState) OutageDuration(now time.Time) time.Duration {
	if s.Status != StatusOutage || s.OutageStart == nil {
		return 0
	}
	return now.Sub(*s.OutageStart)
}

// EventKind classifies a status transition
type EventKind string

const (
	EventOutageStart         EventKind = "outage_start"
	EventOutageRecovery      EventKind = "outage_recovery"
	EventDegradationStart    EventKind = "degradation_start"
	EventDegradationRecovery EventKind = "degradation_recovery"
	EventOther               EventKind = "other"
)

// IsRecovery reports whether the event marks a return towards healthy
func (k EventKind) IsRecovery() bool {
	return k == EventOutageRecovery || k == EventDegradationRecovery
}

// OutageEvent is emitted once per status transition
type OutageEvent struct {
	Endpoint            string            `json:"endpoint"`
	Kind                EventKind         `json:"kind"`
	Timestamp           time.Time         `json:"timestamp"`
	Severity            Severity          `json:"severity"`
	Reason              string            `json:"reason"`
	ConsecutiveFailures int               `json:"consecutiveFailures"`
	OldStatus           OutageStatus      `json:"oldStatus"`
	NewStatus           OutageStatus      `json:"newStatus"`
	OutageDuration      *time.Duration    `json:"outageDuration,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

// OutageSummary aggregates detector state for dashboards
type OutageSummary struct {
	Timestamp       time.Time     `json:"timestamp"`
	TotalEndpoints  int           `json:"totalEndpoints"`
	Healthy         int           `json:"healthy"`
	Degraded        int           `json:"degraded"`
	Outages         int           `json:"outages"`
	CurrentOutages  []OutageState `json:"currentOutages"`
	DegradedStates  []OutageState `json:"degradedEndpoints"`
	CriticalOutages []OutageState `json:"criticalOutages"`
	RecentEvents    []OutageEvent `json:"recentEvents"`
}
