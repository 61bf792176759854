package outage

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/samijaber1/aegis-watch/internal/config"
	"github.com/samijaber1/aegis-watch/internal/model"
)

// eventLogSize bounds the in-memory transition log
const eventLogSize = 100

// recentEventCount is how many events a summary carries
const recentEventCount = 10

// Trigger reasons
const (
	ReasonTimeout              = "timeout"
	ReasonServerError          = "server_error"
	ReasonClientError          = "client_error"
	ReasonConnectionError      = "connection_error"
	ReasonConsecutiveSuccesses = "consecutive_successes"
	ReasonStateTransition      = "state_transition"
)

// Detector keeps one hysteresis state machine per endpoint. Update is
// called by the single pipeline writer; reads may come from any goroutine.
type Detector struct {
	cfg    config.OutageDetection
	logger *zap.Logger

	mu     sync.RWMutex
	states map[string]*model.OutageState
	recent map[string][]model.ProbeResult
	events []model.OutageEvent
}

// NewDetector creates a detector with the given thresholds
func NewDetector(cfg config.OutageDetection, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		cfg:    cfg,
		logger: logger,
		states: make(map[string]*model.OutageState),
		recent: make(map[string][]model.ProbeResult),
	}
}

// IsFailure reports whether a result counts against the endpoint
func (d *Detector) IsFailure(r model.ProbeResult) bool {
	switch r.Outcome {
	case model.OutcomeFailure, model.OutcomeError:
		return true
	case model.OutcomeTimeout:
		if d.cfg.TimeoutAsFailure {
			return true
		}
	}

	code := r.Status()
	if code >= 500 && code < 600 && d.cfg.HTTP5xxAsFailure {
		return true
	}
	if code >= 400 && code < 500 && d.cfg.HTTP4xxAsFailure {
		return true
	}
	return false
}

// Update feeds one result into the endpoint's state machine and returns the
// transition event, or nil when the status did not change
func (d *Detector) Update(r model.ProbeResult) *model.OutageEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	ts := r.Timestamp
	state, ok := d.states[r.Endpoint]
	if !ok {
		state = &model.OutageState{Endpoint: r.Endpoint, Status: model.StatusHealthy}
		d.states[r.Endpoint] = state
	}

	recent := d.pruneRecent(append(d.recent[r.Endpoint], r), ts)
	d.recent[r.Endpoint] = recent

	failure := d.IsFailure(r)
	if failure {
		state.ConsecutiveFailures++
		state.LastFailure = &ts
		state.LastError = r.Error
		if state.LastError == "" {
			state.LastError = fmt.Sprintf("HTTP %d", r.Status())
		}
		if r.StatusCode != nil {
			code := *r.StatusCode
			state.LastStatusCode = &code
		} else {
			state.LastStatusCode = nil
		}
	} else {
		state.LastSuccess = &ts
		if d.successRun(recent) >= d.cfg.RecoverySuccessThreshold {
			state.ConsecutiveFailures = 0
		}
	}

	state.FailuresInWindow = d.countFailures(recent)
	state.UpdatedAt = ts

	oldStatus := state.Status
	newStatus := d.statusFor(state.ConsecutiveFailures)
	if newStatus == oldStatus {
		return nil
	}

	if newStatus == model.StatusOutage {
		state.OutageStart = &ts
	}
	event := d.buildEvent(state, r, oldStatus, newStatus, failure)
	if oldStatus == model.StatusOutage {
		state.OutageStart = nil
	}
	state.Status = newStatus

	d.events = append(d.events, event)
	if len(d.events) > eventLogSize {
		d.events = d.events[len(d.events)-eventLogSize:]
	}

	d.logger.Info("endpoint status changed",
		zap.String("endpoint", r.Endpoint),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(newStatus)),
		zap.String("event", string(event.Kind)),
		zap.Int("consecutive_failures", state.ConsecutiveFailures),
	)

	return &event
}

func (d *Detector) statusFor(consecutiveFailures int) model.OutageStatus {
	switch {
	case consecutiveFailures >= d.cfg.ConsecutiveFailuresThreshold:
		return model.StatusOutage
	case consecutiveFailures >= d.cfg.DegradedThreshold:
		return model.StatusDegraded
	default:
		return model.StatusHealthy
	}
}

// pruneRecent drops results older than the failure window, measured back
// from now
func (d *Detector) pruneRecent(results []model.ProbeResult, now time.Time) []model.ProbeResult {
	window := d.cfg.FailureWindow.Std()
	if window <= 0 {
		return results
	}
	cutoff := now.Add(-window)

	i := 0
	for i < len(results) && results[i].Timestamp.Before(cutoff) {
		i++
	}
	return results[i:]
}

// successRun counts the non-failures at the end of results
func (d *Detector) successRun(results []model.ProbeResult) int {
	run := 0
	for i := len(results) - 1; i >= 0; i-- {
		if d.IsFailure(results[i]) {
			break
		}
		run++
	}
	return run
}

func (d *Detector) countFailures(results []model.ProbeResult) int {
	n := 0
	for _, r := range results {
		if d.IsFailure(r) {
			n++
		}
	}
	return n
}

func (d *Detector) buildEvent(state *model.OutageState, r model.ProbeResult, oldStatus, newStatus model.OutageStatus, failure bool) model.OutageEvent {
	event := model.OutageEvent{
		Endpoint:            state.Endpoint,
		Timestamp:           r.Timestamp,
		ConsecutiveFailures: state.ConsecutiveFailures,
		OldStatus:           oldStatus,
		NewStatus:           newStatus,
		Metadata: map[string]string{
			"old_status": string(oldStatus),
			"new_status": string(newStatus),
		},
	}
	if r.StatusCode != nil {
		event.Metadata["status_code"] = strconv.Itoa(*r.StatusCode)
	}
	if r.Error != "" {
		event.Metadata["error"] = r.Error
	}

	switch {
	case newStatus == model.StatusOutage:
		event.Kind = model.EventOutageStart
		event.Severity = model.SeverityCritical
	case oldStatus == model.StatusOutage:
		event.Kind = model.EventOutageRecovery
		event.Severity = model.SeverityMedium
		if state.OutageStart != nil {
			duration := r.Timestamp.Sub(*state.OutageStart)
			event.OutageDuration = &duration
		}
	case oldStatus == model.StatusHealthy && newStatus == model.StatusDegraded:
		event.Kind = model.EventDegradationStart
		event.Severity = model.SeverityHigh
	case oldStatus == model.StatusDegraded && newStatus == model.StatusHealthy:
		event.Kind = model.EventDegradationRecovery
		event.Severity = model.SeverityLow
	default:
		event.Kind = model.EventOther
		event.Severity = model.SeverityMedium
	}

	switch {
	case event.Kind.IsRecovery():
		event.Reason = ReasonConsecutiveSuccesses
	case failure:
		event.Reason = classify(r)
	default:
		event.Reason = ReasonStateTransition
	}

	return event
}

// classify names the kind of failure that triggered a transition
func classify(r model.ProbeResult) string {
	if r.Outcome == model.OutcomeTimeout {
		return ReasonTimeout
	}
	code := r.Status()
	switch {
	case code >= 500:
		return ReasonServerError
	case code >= 400:
		return ReasonClientError
	default:
		return ReasonConnectionError
	}
}

// State returns a copy of one endpoint's state
func (d *Detector) State(endpoint string) (model.OutageState, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	state, ok := d.states[endpoint]
	if !ok {
		return model.OutageState{}, false
	}
	return *state, true
}

// States returns a copy of every endpoint's state
func (d *Detector) States() map[string]model.OutageState {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]model.OutageState, len(d.states))
	for name, state := range d.states {
		out[name] = *state
	}
	return out
}

// CurrentOutages returns endpoints in outage, sorted by name
func (d *Detector) CurrentOutages() []model.OutageState {
	return d.withStatus(model.StatusOutage)
}

// Degraded returns degraded endpoints, sorted by name
func (d *Detector) Degraded() []model.OutageState {
	return d.withStatus(model.StatusDegraded)
}

// CriticalOutages returns outages that have lasted at least the critical
// outage duration
func (d *Detector) CriticalOutages(now time.Time) []model.OutageState {
	limit := d.cfg.CriticalOutageDuration.Std()
	var out []model.OutageState
	for _, state := range d.CurrentOutages() {
		if state.OutageDuration(now) >= limit {
			out = append(out, state)
		}
	}
	return out
}

func (d *Detector) withStatus(status model.OutageStatus) []model.OutageState {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []model.OutageState
	for _, state := range d.states {
		if state.Status == status {
			out = append(out, *state)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out
}

// RecentEvents returns up to limit of the newest events, oldest first
func (d *Detector) RecentEvents(limit int) []model.OutageEvent {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := 0
	if limit > 0 && len(d.events) > limit {
		start = len(d.events) - limit
	}
	out := make([]model.OutageEvent, len(d.events)-start)
	copy(out, d.events[start:])
	return out
}

// Summary aggregates the detector state for dashboards
func (d *Detector) Summary(now time.Time) model.OutageSummary {
	summary := model.OutageSummary{
		Timestamp:       now,
		CurrentOutages:  d.CurrentOutages(),
		DegradedStates:  d.Degraded(),
		CriticalOutages: d.CriticalOutages(now),
		RecentEvents:    d.RecentEvents(recentEventCount),
	}

	d.mu.RLock()
	summary.TotalEndpoints = len(d.states)
	for _, state := range d.states {
		switch state.Status {
		case model.StatusHealthy:
			summary.Healthy++
		case model.StatusDegraded:
			summary.Degraded++
		case model.StatusOutage:
			summary.Outages++
		}
	}
	d.mu.RUnlock()

	return summary
}
