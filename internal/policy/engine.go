package policy

import (
	"fmt"
	"time"

	"github.com/samijaber1/aegis-watch/internal/config"
	"github.com/samijaber1/aegis-watch/internal/model"
)

// Engine evaluates SLA metrics against endpoint thresholds
type Engine struct{}

// NewEngine creates a new policy engine
func NewEngine() *Engine {
	return &Engine{}
}

// CheckViolations evaluates each configured threshold independently. Metrics
// without traffic never violate anything.
func (e *Engine) CheckViolations(ep config.Endpoint, metrics model.SLAMetrics, now time.Time) []model.Violation {
	if !metrics.HasTraffic() {
		return nil
	}

	var violations []model.Violation

	if floor := ep.SLA.AvailabilityPercentage; floor != nil && metrics.Availability < *floor {
		violations = append(violations, model.Violation{
			Endpoint:    ep.Name,
			Kind:        model.ViolationAvailability,
			Timestamp:   now,
			Severity:    availabilitySeverity(*floor - metrics.Availability),
			Current:     metrics.Availability,
			Threshold:   *floor,
			Description: fmt.Sprintf("Availability %.2f%% below SLA threshold of %v%%", metrics.Availability, *floor),
		})
	}

	if ceiling := ep.SLO.MaxAvgResponseTimeMs; ceiling != nil && metrics.AvgLatencyMs > *ceiling {
		violations = append(violations, model.Violation{
			Endpoint:    ep.Name,
			Kind:        model.ViolationResponseTime,
			Timestamp:   now,
			Severity:    ceilingSeverity(metrics.AvgLatencyMs, *ceiling),
			Current:     metrics.AvgLatencyMs,
			Threshold:   *ceiling,
			Description: fmt.Sprintf("Average response time %.2fms exceeds SLO threshold of %vms", metrics.AvgLatencyMs, *ceiling),
		})
	}

	if ceiling := ep.SLO.MaxErrorRatePercentage; ceiling != nil && metrics.ErrorRate > *ceiling {
		violations = append(violations, model.Violation{
			Endpoint:    ep.Name,
			Kind:        model.ViolationErrorRate,
			Timestamp:   now,
			Severity:    ceilingSeverity(metrics.ErrorRate, *ceiling),
			Current:     metrics.ErrorRate,
			Threshold:   *ceiling,
			Description: fmt.Sprintf("Error rate %.2f%% exceeds SLO threshold of %v%%", metrics.ErrorRate, *ceiling),
		})
	}

	return violations
}

// CheckRecovery compares current metrics against the threshold recorded in
// a past violation
func (e *Engine) CheckRecovery(v model.Violation, metrics model.SLAMetrics) Recovery {
	rec := Recovery{Kind: v.Kind, Threshold: v.Threshold}

	switch v.Kind {
	case model.ViolationAvailability:
		rec.Current = metrics.Availability
		rec.Recovered = metrics.Availability >= v.Threshold
		rec.Reason = fmt.Sprintf("Availability improved to %.2f%% (above threshold of %v%%)", metrics.Availability, v.Threshold)
	case model.ViolationResponseTime:
		rec.Current = metrics.AvgLatencyMs
		// No successful request means no latency, not a fast endpoint
		rec.Recovered = metrics.HasLatency() && metrics.AvgLatencyMs <= v.Threshold
		rec.Reason = fmt.Sprintf("Response time improved to %.1fms (below threshold of %vms)", metrics.AvgLatencyMs, v.Threshold)
	case model.ViolationErrorRate:
		rec.Current = metrics.ErrorRate
		rec.Recovered = metrics.ErrorRate <= v.Threshold
		rec.Reason = fmt.Sprintf("Error rate improved to %.2f%% (below threshold of %v%%)", metrics.ErrorRate, v.Threshold)
	}

	if !rec.Recovered {
		rec.Reason = ""
	}
	return rec
}

// availabilitySeverity tiers a shortfall in percentage points
func availabilitySeverity(deviation float64) model.Severity {
	switch {
	case deviation >= availabilityCritical:
		return model.SeverityCritical
	case deviation >= availabilityHigh:
		return model.SeverityHigh
	case deviation >= availabilityMedium:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// ceilingSeverity tiers the percent by which current exceeds threshold
func ceilingSeverity(current, threshold float64) model.Severity {
	if threshold <= 0 {
		return model.SeverityCritical
	}
	over := (current - threshold) / threshold * 100
	switch {
	case over >= overCritical:
		return model.SeverityCritical
	case over >= overHigh:
		return model.SeverityHigh
	case over >= overMedium:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}
