package alert

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samijaber1/aegis-watch/internal/config"
	"github.com/samijaber1/aegis-watch/internal/model"
	"github.com/samijaber1/aegis-watch/internal/policy"
)

// ErrAlertNotFound is returned when no active alert has the given ID
var ErrAlertNotFound = errors.New("alert not found")

// causeKey identifies the single alert allowed per endpoint and cause
type causeKey struct {
	endpoint string
	cause    string
}

// pendingAlert is an alert no channel accepted yet, with the time of its
// last delivery attempt
type pendingAlert struct {
	alert     *model.Alert
	attempted time.Time
}

// Manager owns the alert lifecycle: creation, dedup, repeats, resolution
// and history. All methods are safe for concurrent use; the probe cycle and
// the sweep timer are serialized on one mutex.
type Manager struct {
	cfg       config.Alerting
	notifiers []Notifier
	engine    *policy.Engine
	logger    *zap.Logger

	mu      sync.Mutex
	store   Store
	active  map[string]*model.Alert
	pending map[causeKey]*pendingAlert
	history []*model.Alert
}

// NewManager creates an alert manager sending through the given notifiers
func NewManager(cfg config.Alerting, notifiers []Notifier, engine *policy.Engine, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = policy.NewEngine()
	}
	return &Manager{
		cfg:       cfg,
		notifiers: notifiers,
		engine:    engine,
		logger:    logger,
		active:    make(map[string]*model.Alert),
		pending:   make(map[causeKey]*pendingAlert),
	}
}

// SetStore sets the alert persistence backend (optional)
func (m *Manager) SetStore(store Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = store
}

// ProcessViolations opens an alert per new (endpoint, kind) pair. An
// existing active alert for the same pair only has its timestamp bumped.
func (m *Manager) ProcessViolations(ctx context.Context, violations []model.Violation, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, v := range violations {
		key := causeKey{endpoint: v.Endpoint, cause: string(v.Kind)}

		if existing := m.findActive(key); existing != nil {
			existing.Timestamp = v.Timestamp
			continue
		}

		if p, ok := m.pending[key]; ok {
			p.alert.Timestamp = v.Timestamp
			m.dispatch(ctx, p.alert, now)
			continue
		}

		violation := v
		title := violationTitle(v)
		a := &model.Alert{
			ID:                  uuid.NewString(),
			Endpoint:            v.Endpoint,
			Type:                model.AlertTypeViolation,
			Cause:               string(v.Kind),
			Severity:            v.Severity,
			Timestamp:           v.Timestamp,
			Title:               title,
			Description:         v.Description,
			OriginalTitle:       title,
			OriginalDescription: v.Description,
			Violation:           &violation,
			FirstOccurrence:     v.Timestamp,
			Metadata: map[string]string{
				"violation_type": string(v.Kind),
				"auto_generated": "true",
			},
		}
		m.dispatch(ctx, a, now)
	}
}

// ProcessOutageEvents turns detector transitions into alerts. Start events
// open repeating alerts; recovery and status-change events are sent once and
// resolve the alerts they close.
func (m *Manager) ProcessOutageEvents(ctx context.Context, events []model.OutageEvent, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range events {
		a := newOutageAlert(e)

		switch e.Kind {
		case model.EventOutageStart, model.EventDegradationStart:
			m.dispatch(ctx, a, now)

		case model.EventOutageRecovery:
			m.sendNotice(ctx, a, now)
			m.closeOutage(ctx, e.Endpoint, ReasonOutageRecovery, now,
				model.EventOutageStart, model.EventDegradationStart)

		case model.EventDegradationRecovery:
			m.sendNotice(ctx, a, now)
			m.closeOutage(ctx, e.Endpoint, ReasonDegradedClear, now, model.EventDegradationStart)

		default:
			m.sendNotice(ctx, a, now)
		}
	}
}

func newOutageAlert(e model.OutageEvent) *model.Alert {
	event := e
	title, description := outageText(e)
	return &model.Alert{
		ID:                  uuid.NewString(),
		Endpoint:            e.Endpoint,
		Type:                model.AlertTypeOutage,
		Cause:               string(e.Kind),
		Severity:            e.Severity,
		Timestamp:           e.Timestamp,
		Title:               title,
		Description:         description,
		OriginalTitle:       title,
		OriginalDescription: description,
		Event:               &event,
		FirstOccurrence:     e.Timestamp,
		Metadata: map[string]string{
			"consecutive_failures": strconv.Itoa(e.ConsecutiveFailures),
			"trigger_reason":       e.Reason,
		},
	}
}

// closeOutage resolves active start alerts of the given kinds for an
// endpoint and silently drops unsent ones
func (m *Manager) closeOutage(ctx context.Context, endpoint, reason string, now time.Time, kinds ...model.EventKind) {
	causes := make(map[string]bool, len(kinds))
	for _, kind := range kinds {
		causes[string(kind)] = true
		key := causeKey{endpoint: endpoint, cause: string(kind)}
		if _, ok := m.pending[key]; ok {
			delete(m.pending, key)
			m.logger.Debug("dropped unsent alert after recovery",
				zap.String("endpoint", endpoint), zap.String("cause", string(kind)))
		}
	}

	for _, a := range m.sortedActive() {
		if a.Type == model.AlertTypeOutage && a.Endpoint == endpoint && causes[a.Cause] {
			m.resolve(ctx, a, reason, true, now)
		}
	}
}

// AutoResolve applies the age rule, then the condition rule for violation
// alerts against current metrics, then the healthy-state rule for outage
// alerts. Pending alerts whose condition cleared are dropped.
func (m *Manager) AutoResolve(ctx context.Context, metrics map[string]model.SLAMetrics, states map[string]model.OutageState, now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	resolved := m.resolveAged(ctx, now)

	for _, a := range m.sortedActive() {
		reason, ok := m.conditionCleared(a, metrics, states)
		if !ok {
			continue
		}
		m.resolve(ctx, a, reason, true, now)
		resolved++
	}

	for key, p := range m.pending {
		if _, ok := m.conditionCleared(p.alert, metrics, states); ok || m.aged(p.alert, now) {
			delete(m.pending, key)
		}
	}

	return resolved
}

func (m *Manager) conditionCleared(a *model.Alert, metrics map[string]model.SLAMetrics, states map[string]model.OutageState) (string, bool) {
	switch a.Type {
	case model.AlertTypeViolation:
		if a.Violation == nil {
			return "", false
		}
		current, ok := metrics[a.Endpoint]
		if !ok || !current.HasTraffic() {
			return "", false
		}
		rec := m.engine.CheckRecovery(*a.Violation, current)
		return rec.Reason, rec.Recovered
	case model.AlertTypeOutage:
		state, ok := states[a.Endpoint]
		if !ok || state.Status != model.StatusHealthy {
			return "", false
		}
		return ReasonStateHealthy, true
	}
	return "", false
}

func (m *Manager) aged(a *model.Alert, now time.Time) bool {
	after := m.cfg.AutoResolveAfter.Std()
	return after > 0 && a.Age(now) >= after
}

func (m *Manager) resolveAged(ctx context.Context, now time.Time) int {
	resolved := 0
	for _, a := range m.sortedActive() {
		if m.aged(a, now) {
			m.resolve(ctx, a, ageReason(m.cfg.AutoResolveAfter.Std()), true, now)
			resolved++
		}
	}
	return resolved
}

// Sweep runs the timer-driven part of the lifecycle: age resolution, retry
// of unsent outage alerts, then repeats or max-repeat resolution. Unsent
// violation alerts are retried by the cycle, after their condition has been
// re-evaluated.
func (m *Manager) Sweep(ctx context.Context, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resolveAged(ctx, now)
	m.retryPending(ctx, now, false)

	interval := m.cfg.RepeatInterval.Std()
	if interval <= 0 {
		return
	}

	for _, a := range m.sortedActive() {
		if a.LastSent == nil || now.Sub(*a.LastSent) < interval {
			continue
		}
		if m.cfg.MaxRepeats > 0 && a.RepeatCount >= m.cfg.MaxRepeats {
			m.logger.Info("alert reached max repeats",
				zap.String("alert_id", a.ID), zap.Int("max_repeats", m.cfg.MaxRepeats))
			m.resolve(ctx, a, ReasonMaxRepeats, true, now)
			continue
		}
		m.repeat(ctx, a, now)
	}
}

// RetryPending resends alerts that no channel accepted yet. Alerts already
// attempted at now are skipped.
func (m *Manager) RetryPending(ctx context.Context, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryPending(ctx, now, true)
}

func (m *Manager) retryPending(ctx context.Context, now time.Time, violations bool) {
	if len(m.pending) == 0 {
		return
	}
	alerts := make([]*model.Alert, 0, len(m.pending))
	for _, p := range m.pending {
		if p.attempted.Equal(now) {
			continue
		}
		if !violations && p.alert.Type == model.AlertTypeViolation {
			continue
		}
		alerts = append(alerts, p.alert)
	}
	sortAlerts(alerts)
	for _, a := range alerts {
		m.dispatch(ctx, a, now)
	}
}

func (m *Manager) repeat(ctx context.Context, a *model.Alert, now time.Time) {
	n := a.RepeatCount + 1
	next := *a
	next.Title = repeatTitle(a.OriginalTitle, n)
	next.Description = repeatDescription(a.OriginalDescription, a.Age(now), n)

	if !m.send(ctx, next) {
		return
	}

	a.Title = next.Title
	a.Description = next.Description
	a.RepeatCount = n
	a.LastSent = &now
	m.persist(ctx, a)
	m.logger.Info("alert repeated", zap.String("alert_id", a.ID), zap.String("endpoint", a.Endpoint), zap.Int("repeat", n))
}

// dispatch sends a new alert. On success it becomes active and enters
// history; otherwise it waits in the pending set.
func (m *Manager) dispatch(ctx context.Context, a *model.Alert, now time.Time) bool {
	key := causeKey{endpoint: a.Endpoint, cause: a.Cause}
	if !m.send(ctx, *a) {
		m.pending[key] = &pendingAlert{alert: a, attempted: now}
		return false
	}

	delete(m.pending, key)
	a.LastSent = &now
	a.RepeatCount = 0
	m.active[a.ID] = a
	m.appendHistory(a)
	m.persist(ctx, a)
	return true
}

// sendNotice delivers a one-shot alert that never becomes active
func (m *Manager) sendNotice(ctx context.Context, a *model.Alert, now time.Time) {
	if !m.send(ctx, *a) {
		return
	}
	a.LastSent = &now
	m.appendHistory(a)
	m.persist(ctx, a)
}

// Resolve marks an active alert resolved and sends the resolution notice
func (m *Manager) Resolve(ctx context.Context, id, reason string, auto bool, now time.Time) (model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.active[id]
	if !ok {
		return model.Alert{}, ErrAlertNotFound
	}
	m.resolve(ctx, a, reason, auto, now)
	return *a, nil
}

// ResolveManual resolves an alert on behalf of an operator
func (m *Manager) ResolveManual(ctx context.Context, id, reason string, now time.Time) (model.Alert, error) {
	if reason == "" {
		reason = ReasonManual
	}
	return m.Resolve(ctx, id, reason, false, now)
}

func (m *Manager) resolve(ctx context.Context, a *model.Alert, reason string, auto bool, now time.Time) {
	resolvedAt := now
	a.Resolved = true
	a.ResolvedAt = &resolvedAt
	a.ResolutionReason = reason
	a.ResolvedBy = ResolvedByUser
	if auto {
		a.ResolvedBy = ResolvedBySystem
	}
	delete(m.active, a.ID)
	m.persist(ctx, a)

	m.logger.Info("alert resolved",
		zap.String("alert_id", a.ID),
		zap.String("endpoint", a.Endpoint),
		zap.String("resolved_by", a.ResolvedBy),
		zap.String("reason", reason),
	)

	title, description := resolutionText(a)
	resolutionType := "manual"
	if auto {
		resolutionType = "automatic"
	}
	notice := model.Alert{
		ID:                  uuid.NewString(),
		Endpoint:            a.Endpoint,
		Type:                model.AlertTypeResolution,
		Cause:               a.Cause,
		Severity:            a.Severity,
		Timestamp:           now,
		Title:               title,
		Description:         description,
		OriginalTitle:       a.OriginalTitle,
		OriginalDescription: a.OriginalDescription,
		Violation:           a.Violation,
		Event:               a.Event,
		FirstOccurrence:     a.FirstOccurrence,
		LastSent:            a.LastSent,
		RepeatCount:         a.RepeatCount,
		Resolved:            true,
		ResolvedAt:          &resolvedAt,
		ResolvedBy:          a.ResolvedBy,
		ResolutionReason:    reason,
		Metadata: map[string]string{
			"original_alert_id": a.ID,
			"auto_resolved":     strconv.FormatBool(auto),
			"resolution_type":   resolutionType,
		},
	}
	if !m.send(ctx, notice) {
		m.logger.Warn("failed to send resolution notification", zap.String("alert_id", a.ID))
	}
}

// send reports whether at least one channel accepted the alert
func (m *Manager) send(ctx context.Context, a model.Alert) bool {
	if !m.cfg.Enabled {
		return false
	}
	if len(m.notifiers) == 0 {
		m.logger.Warn("no alert channels configured", zap.String("alert_id", a.ID))
		return false
	}

	delivered := 0
	for _, n := range m.notifiers {
		if err := n.Send(ctx, a); err != nil {
			m.logger.Warn("alert channel failed",
				zap.String("channel", n.Name()),
				zap.String("alert_id", a.ID),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		m.logger.Error("failed to send alert via any channel",
			zap.String("alert_id", a.ID), zap.String("endpoint", a.Endpoint))
		return false
	}

	m.logger.Info("alert sent",
		zap.String("alert_id", a.ID),
		zap.String("endpoint", a.Endpoint),
		zap.String("title", a.Title),
		zap.Int("channels", delivered),
		zap.Int("total_channels", len(m.notifiers)),
	)
	return true
}

func (m *Manager) persist(ctx context.Context, a *model.Alert) {
	if m.store == nil {
		return
	}
	if err := m.store.StoreAlert(ctx, *a); err != nil {
		m.logger.Warn("failed to store alert",
			zap.String("alert_id", a.ID), zap.String("endpoint", a.Endpoint), zap.Error(err))
	}
}

func (m *Manager) appendHistory(a *model.Alert) {
	m.history = append(m.history, a)
	limit := m.cfg.HistoryLimit
	if limit > 0 && len(m.history) > limit {
		m.history = m.history[len(m.history)-limit:]
	}
}

func (m *Manager) findActive(key causeKey) *model.Alert {
	for _, a := range m.active {
		if a.Endpoint == key.endpoint && a.Cause == key.cause && a.Type == model.AlertTypeViolation {
			return a
		}
	}
	return nil
}

func (m *Manager) sortedActive() []*model.Alert {
	alerts := make([]*model.Alert, 0, len(m.active))
	for _, a := range m.active {
		alerts = append(alerts, a)
	}
	sortAlerts(alerts)
	return alerts
}

func sortAlerts(alerts []*model.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		if !alerts[i].FirstOccurrence.Equal(alerts[j].FirstOccurrence) {
			return alerts[i].FirstOccurrence.Before(alerts[j].FirstOccurrence)
		}
		return alerts[i].ID < alerts[j].ID
	})
}

// ActiveAlerts returns copies of the active alerts, oldest first
func (m *Manager) ActiveAlerts() []model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Alert, 0, len(m.active))
	for _, a := range m.sortedActive() {
		out = append(out, *a)
	}
	return out
}

// ActiveCount returns the number of active alerts
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// PendingCount returns the number of alerts waiting for a first delivery
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// History returns up to limit of the newest history entries, oldest first.
// A limit of 0 returns everything.
func (m *Manager) History(limit int) []model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := 0
	if limit > 0 && len(m.history) > limit {
		start = len(m.history) - limit
	}
	out := make([]model.Alert, 0, len(m.history)-start)
	for _, a := range m.history[start:] {
		out = append(out, *a)
	}
	return out
}

// TestNotifiers runs the connectivity test of every channel
func (m *Manager) TestNotifiers(ctx context.Context) []TestResult {
	results := make([]TestResult, 0, len(m.notifiers))
	for _, n := range m.notifiers {
		res := TestResult{Channel: n.Name(), OK: true}
		if err := n.Test(ctx); err != nil {
			res.OK = false
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}
