package alert

import (
	"fmt"
	"strconv"
	"time"

	"github.com/samijaber1/aegis-watch/internal/model"
)

// Resolution attribution
const (
	ResolvedBySystem = "System (Auto-resolved)"
	ResolvedByUser   = "User (Manual)"
)

// Resolution reasons
const (
	ReasonManual         = "Manually resolved via dashboard"
	ReasonMaxRepeats     = "Maximum repeat count reached"
	ReasonOutageRecovery = "Service has recovered"
	ReasonDegradedClear  = "Service degradation cleared"
	ReasonStateHealthy   = "Endpoint state returned to healthy"
)

func violationTitle(v model.Violation) string {
	return fmt.Sprintf("SLO Violation: %s for %s", v.Kind, v.Endpoint)
}

func outageText(e model.OutageEvent) (title, description string) {
	switch e.Kind {
	case model.EventOutageStart:
		title = fmt.Sprintf("OUTAGE: %s is DOWN", e.Endpoint)
		description = fmt.Sprintf("Endpoint '%s' has been detected as DOWN after %d consecutive failures. Trigger reason: %s",
			e.Endpoint, e.ConsecutiveFailures, e.Reason)
	case model.EventOutageRecovery:
		minutes := 0.0
		if e.OutageDuration != nil {
			minutes = e.OutageDuration.Minutes()
		}
		title = fmt.Sprintf("RECOVERY: %s is back online", e.Endpoint)
		description = fmt.Sprintf("Endpoint '%s' has recovered from outage. Outage duration: %.1f minutes", e.Endpoint, minutes)
	case model.EventDegradationStart:
		title = fmt.Sprintf("DEGRADED: %s service degraded", e.Endpoint)
		description = fmt.Sprintf("Endpoint '%s' is experiencing degraded performance with %d consecutive failures.",
			e.Endpoint, e.ConsecutiveFailures)
	case model.EventDegradationRecovery:
		title = fmt.Sprintf("RECOVERED: %s degradation resolved", e.Endpoint)
		description = fmt.Sprintf("Endpoint '%s' has recovered from degraded state.", e.Endpoint)
	default:
		title = fmt.Sprintf("STATUS CHANGE: %s", e.Endpoint)
		description = fmt.Sprintf("Endpoint '%s' status changed: %s -> %s", e.Endpoint, e.OldStatus, e.NewStatus)
	}
	return title, description
}

func repeatTitle(original string, n int) string {
	return fmt.Sprintf("[REPEAT #%d] %s", n, original)
}

func repeatDescription(original string, active time.Duration, n int) string {
	return fmt.Sprintf("%s\n\n[ONGOING] This alert has been active for %s (repeat #%d)", original, formatElapsed(active), n)
}

// formatElapsed renders "1h 5m", or "5m" under an hour
func formatElapsed(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func ageReason(after time.Duration) string {
	return fmt.Sprintf("Alert auto-resolved after %s hours", strconv.FormatFloat(after.Hours(), 'f', -1, 64))
}

func resolutionText(a *model.Alert) (title, description string) {
	title = "RESOLVED: " + a.OriginalTitle
	description = fmt.Sprintf("Alert has been resolved.\n\nOriginal issue: %s\n\nResolution: %s", a.OriginalDescription, a.ResolutionReason)
	return title, description
}
