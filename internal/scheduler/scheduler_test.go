package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samijaber1/aegis-watch/internal/alert"
	"github.com/samijaber1/aegis-watch/internal/config"
	"github.com/samijaber1/aegis-watch/internal/model"
	"github.com/samijaber1/aegis-watch/internal/storage"
)

var base = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

// fakeClock only moves when advanced
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// scriptedCheck answers probes with the next queued outcome per endpoint,
// succeeding once the queue is empty
type scriptedCheck struct {
	mu     sync.Mutex
	clock  *fakeClock
	script map[string][]model.Outcome
}

func (s *scriptedCheck) queue(endpoint string, outcomes ...model.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script[endpoint] = append(s.script[endpoint], outcomes...)
}

func (s *scriptedCheck) check(_ context.Context, ep config.Endpoint) model.ProbeResult {
	s.mu.Lock()
	outcome := model.OutcomeSuccess
	if q := s.script[ep.Name]; len(q) > 0 {
		outcome, s.script[ep.Name] = q[0], q[1:]
	}
	s.mu.Unlock()

	r := model.ProbeResult{
		Endpoint:  ep.Name,
		URL:       ep.URL,
		Method:    ep.Method,
		Timestamp: s.clock.Now(),
		Outcome:   outcome,
	}
	code, latency := 200, 120.0
	switch outcome {
	case model.OutcomeFailure:
		code = 503
		r.Error = "HTTP 503"
	case model.OutcomeTimeout:
		r.Error = "request timed out"
		return r
	}
	r.StatusCode = &code
	r.LatencyMs = &latency
	return r
}

type recordNotifier struct {
	mu   sync.Mutex
	sent []model.Alert
}

func (n *recordNotifier) Name() string { return "record" }

func (n *recordNotifier) Send(_ context.Context, a model.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, a)
	return nil
}

func (n *recordNotifier) Test(context.Context) error { return nil }

type recordSink struct {
	mu      sync.Mutex
	results []model.ProbeResult
	metrics []model.SLAMetrics
	alerts  []model.Alert
	states  []model.OutageState
	events  []model.OutageEvent
	fail    bool
}

func (s *recordSink) StoreResult(_ context.Context, r model.ProbeResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("disk full")
	}
	s.results = append(s.results, r)
	return nil
}

func (s *recordSink) StoreMetrics(_ context.Context, m model.SLAMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, m)
	return nil
}

func (s *recordSink) StoreAlert(_ context.Context, a model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *recordSink) StoreOutageState(_ context.Context, st model.OutageState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, st)
	return nil
}

func (s *recordSink) StoreOutageEvent(_ context.Context, e model.OutageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordSink) Close() error { return nil }

func (s *recordSink) QueryResults(context.Context, storage.ResultFilter) ([]model.ProbeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ProbeResult(nil), s.results...), nil
}

type fixture struct {
	sched    *Scheduler
	clock    *fakeClock
	check    *scriptedCheck
	notifier *recordNotifier
	sink     *recordSink
}

func newFixture(t *testing.T, modify func(*config.Config)) *fixture {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Endpoints = []config.Endpoint{
		{Name: "api", URL: "http://api.test/health", Method: "GET", ExpectedStatus: 200},
		{Name: "web", URL: "http://web.test/", Method: "GET", ExpectedStatus: 200},
	}
	if modify != nil {
		modify(&cfg)
	}

	clock := &fakeClock{now: base}
	check := &scriptedCheck{clock: clock, script: make(map[string][]model.Outcome)}
	notifier := &recordNotifier{}
	sink := &recordSink{}

	manager := alert.NewManager(cfg.Alerting, []alert.Notifier{notifier}, nil, nil)
	manager.SetStore(sink)

	sched := New(&cfg, check.check, manager, nil, WithSink(sink), WithClock(clock.Now))
	return &fixture{sched: sched, clock: clock, check: check, notifier: notifier, sink: sink}
}

// cycle runs one cycle and moves the clock forward by the probe interval
func (f *fixture) cycle(t *testing.T) []model.ProbeResult {
	t.Helper()
	results := f.sched.RunCycle(context.Background())
	f.clock.Advance(30 * time.Second)
	return results
}

func TestRunCycle_PersistsResultsAndMetrics(t *testing.T) {
	f := newFixture(t, nil)

	results := f.cycle(t)
	require.Len(t, results, 2)
	assert.Equal(t, "api", results[0].Endpoint)
	assert.Equal(t, "web", results[1].Endpoint)

	assert.Len(t, f.sink.results, 2)
	assert.Len(t, f.sink.states, 2)
	assert.Len(t, f.sink.metrics, 2)
	assert.Empty(t, f.sink.events)

	cached := f.sched.CachedMetrics()
	require.Contains(t, cached, "api")
	assert.Equal(t, 1, cached["api"].Metrics.Total)
	assert.Equal(t, 100.0, cached["api"].Metrics.Availability)
	assert.False(t, cached["api"].IsStale(base))
}

func TestRunCycle_OutageLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	f.check.queue("api",
		model.OutcomeFailure, model.OutcomeFailure, model.OutcomeFailure,
		model.OutcomeSuccess, model.OutcomeSuccess)

	for i := 0; i < 3; i++ {
		f.cycle(t)
	}

	state, ok := f.sched.EndpointOutageState("api")
	require.True(t, ok)
	assert.Equal(t, model.StatusOutage, state.Status)
	assert.Equal(t, 3, state.ConsecutiveFailures)

	summary := f.sched.OutageSummary()
	assert.Equal(t, 2, summary.TotalEndpoints)
	assert.Equal(t, 1, summary.Outages)
	require.Len(t, summary.CurrentOutages, 1)
	assert.Equal(t, "api", summary.CurrentOutages[0].Endpoint)

	active := f.sched.ActiveAlerts()
	require.Len(t, active, 2)
	for _, a := range active {
		assert.Equal(t, model.AlertTypeOutage, a.Type)
		assert.Equal(t, "api", a.Endpoint)
	}

	require.Len(t, f.sink.events, 2)
	assert.Equal(t, model.EventDegradationStart, f.sink.events[0].Kind)
	assert.Equal(t, model.EventOutageStart, f.sink.events[1].Kind)

	f.cycle(t)
	f.cycle(t)

	state, ok = f.sched.EndpointOutageState("api")
	require.True(t, ok)
	assert.Equal(t, model.StatusHealthy, state.Status)
	assert.Empty(t, f.sched.ActiveAlerts())

	history := f.sched.AlertHistory(0)
	assert.NotEmpty(t, history)
	for _, a := range history {
		if a.Type == model.AlertTypeOutage && a.Event != nil && !a.Event.Kind.IsRecovery() {
			assert.True(t, a.Resolved, "outage alert %q should be resolved", a.Title)
		}
	}
}

func TestRunCycle_ViolationAlertAndRecovery(t *testing.T) {
	floor := 90.0
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Endpoints[0].SLA.AvailabilityPercentage = &floor
		cfg.Monitoring.SLAWindow = config.Duration(time.Minute)
	})
	f.check.queue("api", model.OutcomeFailure)

	f.cycle(t)

	cached := f.sched.CachedMetrics()
	require.Len(t, cached["api"].Violations, 1)
	assert.Equal(t, model.ViolationAvailability, cached["api"].Violations[0].Kind)

	active := f.sched.ActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, model.AlertTypeViolation, active[0].Type)

	// The failure leaves the one minute window on the fourth cycle
	f.cycle(t)
	f.cycle(t)
	f.cycle(t)

	assert.Empty(t, f.sched.ActiveAlerts())
	assert.Empty(t, f.sched.CachedMetrics()["api"].Violations)
}

func TestRunCycle_StorageFailureDoesNotAbort(t *testing.T) {
	f := newFixture(t, nil)
	f.sink.fail = true

	results := f.cycle(t)
	assert.Len(t, results, 2)
	assert.Empty(t, f.sink.results)
	assert.Len(t, f.sink.metrics, 2)
}

func TestTryRunCycle_RejectsConcurrentCycle(t *testing.T) {
	f := newFixture(t, nil)

	f.sched.cycleMu.Lock()
	_, err := f.sched.TryRunCycle(context.Background())
	f.sched.cycleMu.Unlock()
	assert.ErrorIs(t, err, ErrCycleInProgress)

	results, err := f.sched.TryRunCycle(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRunCycle_CanceledContextCompletesCycle(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Monitoring.OutageDetection.DegradedThreshold = 1
	})

	// Fail any check that sees the cancellation
	check := func(ctx context.Context, ep config.Endpoint) model.ProbeResult {
		if err := ctx.Err(); err != nil {
			return model.ProbeResult{
				Endpoint:  ep.Name,
				Timestamp: f.clock.Now(),
				Outcome:   model.OutcomeError,
				Error:     err.Error(),
			}
		}
		return f.check.check(ctx, ep)
	}
	manager := alert.NewManager(f.sched.cfg.Alerting, []alert.Notifier{f.notifier}, nil, nil)
	sched := New(f.sched.cfg, check, manager, nil, WithSink(f.sink), WithClock(f.clock.Now))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := sched.RunCycle(ctx)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, model.OutcomeSuccess, r.Outcome, r.Endpoint)
		assert.Empty(t, r.Error)
	}

	state, ok := sched.EndpointOutageState("api")
	require.True(t, ok)
	assert.Equal(t, model.StatusHealthy, state.Status)
	assert.Zero(t, state.ConsecutiveFailures)

	assert.Empty(t, f.notifier.sent)
	assert.Empty(t, f.sink.events)
	for _, r := range f.sink.results {
		assert.Equal(t, model.OutcomeSuccess, r.Outcome)
	}
}

func TestHealthStatus(t *testing.T) {
	f := newFixture(t, nil)

	health := f.sched.HealthStatus()
	assert.Equal(t, 2, health.TotalEndpoints)
	assert.Equal(t, 0, health.HealthyEndpoints)
	assert.Equal(t, model.StatusUnknown, health.Endpoints["api"].Status)
	assert.Nil(t, health.Endpoints["api"].LastCheck)

	f.check.queue("web", model.OutcomeSuccess, model.OutcomeTimeout)
	f.cycle(t)
	f.cycle(t)

	health = f.sched.HealthStatus()
	assert.Equal(t, "5m", health.Window)
	assert.Equal(t, 1, health.HealthyEndpoints)

	api := health.Endpoints["api"]
	assert.True(t, api.Healthy)
	assert.Equal(t, model.StatusHealthy, api.Status)
	assert.Equal(t, 2, api.TotalChecks)
	assert.Equal(t, 100.0, api.Availability)
	assert.Equal(t, 120.0, api.AvgResponseTimeMs)
	require.NotNil(t, api.LastCheck)
	assert.Equal(t, base.Add(30*time.Second), *api.LastCheck)

	web := health.Endpoints["web"]
	assert.False(t, web.Healthy)
	assert.Equal(t, model.OutcomeTimeout, web.LastOutcome)
	assert.Nil(t, web.LastStatusCode)
	assert.Equal(t, 50.0, web.Availability)

	assert.Equal(t, 75.0, health.OverallAvailability)
	assert.Equal(t, 120.0, health.AvgResponseTimeMs)

	// Results older than the health window are ignored
	f.clock.Advance(10 * time.Minute)
	health = f.sched.HealthStatus()
	assert.Equal(t, 0, health.Endpoints["api"].TotalChecks)
	assert.Equal(t, model.StatusHealthy, health.Endpoints["api"].Status)
}

func TestAnalyzeSLA(t *testing.T) {
	f := newFixture(t, nil)
	f.check.queue("api", model.OutcomeFailure)
	f.cycle(t)
	f.cycle(t)

	metrics := f.sched.AnalyzeSLA(time.Hour)
	require.Len(t, metrics, 2)
	assert.Equal(t, 2, metrics["api"].Total)
	assert.Equal(t, 50.0, metrics["api"].Availability)
	assert.Equal(t, 100.0, metrics["web"].Availability)
}

func TestQuerier(t *testing.T) {
	f := newFixture(t, nil)
	q, ok := f.sched.Querier()
	require.True(t, ok)
	assert.Same(t, f.sink, q)

	multi := New(f.sched.cfg, f.check.check, f.sched.alerts, nil, WithSink(storage.NewMulti(f.sink)))
	q, ok = multi.Querier()
	require.True(t, ok)
	assert.Same(t, f.sink, q)

	bare := New(f.sched.cfg, f.check.check, f.sched.alerts, nil)
	_, ok = bare.Querier()
	assert.False(t, ok)
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Monitoring.Interval = config.Duration(time.Hour)
	})

	ctx := context.Background()
	require.NoError(t, f.sched.Start(ctx))
	assert.ErrorIs(t, f.sched.Start(ctx), ErrAlreadyRunning)

	// The initial cycle runs before Start returns
	assert.Len(t, f.sink.results, 2)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, f.sched.Stop(stopCtx))
	require.NoError(t, f.sched.Stop(stopCtx))
}
