package model

import "time"

// AlertType identifies what produced an alert
type AlertType string

const (
	AlertTypeViolation  AlertType = "slo_violation"
	AlertTypeOutage     AlertType = "outage_detection"
	AlertTypeResolution AlertType = "resolution"
)

// Alert is a notification-bearing record owned by the alert manager.
//
// Title and Description are the display text and are rewritten on repeats.
// OriginalTitle and OriginalDescription never change after creation and are
// used to build resolution notices.
type Alert struct {
	ID                  string            `json:"id"`
	Endpoint            string            `json:"endpoint"`
	Type                AlertType         `json:"type"`
	Cause               string            `json:"cause"`
	Severity            Severity          `json:"severity"`
	Timestamp           time.Time         `json:"timestamp"`
	Title               string            `json:"title"`
	Description         string            `json:"description"`
	OriginalTitle       string            `json:"originalTitle"`
	OriginalDescription string            `json:"originalDescription"`
	Violation           *Violation        `json:"violation,omitempty"`
	Event               *OutageEvent      `json:"outageEvent,omitempty"`
	FirstOccurrence     time.Time         `json:"firstOccurrence"`
	LastSent            *time.Time        `json:"lastSent,omitempty"`
	RepeatCount         int               `json:"repeatCount"`
	Resolved            bool              `json:"resolved"`
	ResolvedAt          *time.Time        `json:"resolvedAt,omitempty"`
	ResolvedBy          string            `json:"resolvedBy,omitempty"`
	ResolutionReason    string            `json:"resolutionReason,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

// Sent reports whether the alert reached at least one channel
func (a Alert) Sent() bool {
	return a.LastSent != nil
}

// Age returns the time elapsed since the first occurrence
func (a Alert) Age(now time.Time) time.Duration {
	return now.Sub(a.FirstOccurrence)
}
