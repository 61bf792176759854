package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/samijaber1/aegis-watch/internal/alert"
	"github.com/samijaber1/aegis-watch/internal/config"
	"github.com/samijaber1/aegis-watch/internal/eval"
	"github.com/samijaber1/aegis-watch/internal/logging"
	"github.com/samijaber1/aegis-watch/internal/model"
	"github.com/samijaber1/aegis-watch/internal/outage"
	"github.com/samijaber1/aegis-watch/internal/policy"
	"github.com/samijaber1/aegis-watch/internal/probe"
	"github.com/samijaber1/aegis-watch/internal/storage"
)

// HealthWindow is the trailing window used by HealthStatus
const HealthWindow = 5 * time.Minute

var (
	// ErrCycleInProgress is returned by TryRunCycle while another cycle runs
	ErrCycleInProgress = errors.New("monitoring cycle already in progress")

	// ErrAlreadyRunning is returned by Start on a running scheduler
	ErrAlreadyRunning = errors.New("scheduler already running")
)

// Option configures a Scheduler
type Option func(*Scheduler)

// WithSink persists results, metrics and outage records to sink
func WithSink(sink storage.Sink) Option {
	return func(s *Scheduler) { s.sink = sink }
}

// WithLogger sets the scheduler logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler drives the monitoring pipeline: probe, detect, aggregate, alert
type Scheduler struct {
	cfg       *config.Config
	runner    *probe.Runner
	detector  *outage.Detector
	history   *eval.History
	evaluator *eval.Evaluator
	engine    *policy.Engine
	alerts    *alert.Manager
	cache     *StateCache
	sink      storage.Sink
	logger    *zap.Logger
	now       func() time.Time

	cycleMu sync.Mutex

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// New creates a scheduler that probes cfg.Endpoints with check and routes
// alerts through alerts
func New(cfg *config.Config, check probe.CheckFunc, alerts *alert.Manager, engine *policy.Engine, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:    cfg,
		engine: engine,
		alerts: alerts,
		cache:  NewStateCache(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.engine == nil {
		s.engine = policy.NewEngine()
	}

	s.history = eval.NewHistory(cfg.Monitoring.HistoryRetention.Std())
	s.evaluator = eval.NewEvaluator(s.history)
	s.detector = outage.NewDetector(cfg.Monitoring.OutageDetection, s.logger.Named("outage"))
	s.runner = probe.NewRunner(check, cfg.Monitoring.MaxWorkers, s.logger.Named("probe"))
	return s
}

// Start runs an initial cycle and schedules cycles, alert sweeps and SLA
// reports. Jobs keep ctx values but ignore its cancellation; call Stop to
// end them.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}

	cronLogger := logging.CronLogger{Logger: s.logger.Named("cron")}
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	jobs := []struct {
		name     string
		interval time.Duration
		run      func()
	}{
		{"cycle", s.cfg.Monitoring.Interval.Std(), func() { s.RunCycle(ctx) }},
		{"sweep", s.cfg.Alerting.SweepInterval.Std(), func() { s.alerts.Sweep(ctx, s.now()) }},
		{"report", s.cfg.Reporting.ReportInterval.Std(), func() { s.report(s.now()) }},
	}
	for _, job := range jobs {
		if job.interval <= 0 {
			continue
		}
		if _, err := c.AddFunc(fmt.Sprintf("@every %s", job.interval), job.run); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to schedule %s job: %w", job.name, err)
		}
	}

	s.cron = c
	s.running = true
	s.mu.Unlock()

	s.logger.Info("starting monitoring",
		zap.Int("endpoints", len(s.cfg.Endpoints)),
		zap.Duration("interval", s.cfg.Monitoring.Interval.Std()))

	s.RunCycle(ctx)
	c.Start()
	return nil
}

// Stop stops scheduling and waits for running jobs until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c := s.cron
	s.running = false
	s.mu.Unlock()

	s.logger.Info("stopping scheduler")
	select {
	case <-c.Stop().Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}

// TryRunCycle runs a cycle unless one is already in progress
func (s *Scheduler) TryRunCycle(ctx context.Context) ([]model.ProbeResult, error) {
	if !s.cycleMu.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer s.cycleMu.Unlock()
	return s.runCycle(ctx), nil
}

// RunCycle runs one full monitoring cycle, waiting for any cycle in
// progress to finish first
func (s *Scheduler) RunCycle(ctx context.Context) []model.ProbeResult {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	return s.runCycle(ctx)
}

// runCycle ignores cancellation of ctx and always runs to completion.
// Probe timeouts bound it.
func (s *Scheduler) runCycle(ctx context.Context) []model.ProbeResult {
	ctx = context.WithoutCancel(ctx)
	results := s.runner.Run(ctx, s.cfg.Endpoints)

	var events []model.OutageEvent
	for _, r := range results {
		if e := s.detector.Update(r); e != nil {
			events = append(events, *e)
		}
	}

	now := s.now()
	s.history.Append(results...)
	s.history.Prune(now)

	s.persistCycle(ctx, results, events)

	s.alerts.ProcessOutageEvents(ctx, events, now)

	metrics := s.evaluator.EvaluateAll(s.endpointNames(), s.cfg.Monitoring.SLAWindow.Std(), now)

	var violations []model.Violation
	for _, ep := range s.cfg.Endpoints {
		m := metrics[ep.Name]
		found := s.engine.CheckViolations(ep, m, now)
		violations = append(violations, found...)

		s.cache.Set(ep.Name, &MetricsState{
			Metrics:    m,
			Violations: found,
			UpdatedAt:  now,
			TTL:        s.cfg.Monitoring.Interval.Std(),
		})

		if s.sink != nil && m.HasTraffic() {
			if err := s.sink.StoreMetrics(ctx, m); err != nil {
				s.logger.Warn("failed to store metrics", zap.String("endpoint", ep.Name), zap.Error(err))
			}
		}
	}

	s.alerts.ProcessViolations(ctx, violations, now)

	s.alerts.RetryPending(ctx, now)
	if n := s.alerts.AutoResolve(ctx, metrics, s.detector.States(), now); n > 0 {
		s.logger.Info("auto-resolved alerts", zap.Int("count", n))
	}

	for _, st := range s.detector.CriticalOutages(now) {
		s.logger.Warn("critical outage in progress",
			zap.String("endpoint", st.Endpoint),
			zap.Duration("duration", st.OutageDuration(now)),
			zap.Int("consecutive_failures", st.ConsecutiveFailures))
	}

	healthy := 0
	for _, r := range results {
		if r.IsSuccess() {
			healthy++
		}
	}
	s.logger.Info("monitoring cycle completed",
		zap.Int("healthy", healthy),
		zap.Int("total", len(results)),
		zap.Int("outages", len(s.detector.CurrentOutages())),
		zap.Int("degraded", len(s.detector.Degraded())),
		zap.Int("violations", len(violations)),
		zap.Int("active_alerts", s.alerts.ActiveCount()))

	return results
}

// persistCycle writes results, changed states and events. Failures are
// logged and never abort the cycle.
func (s *Scheduler) persistCycle(ctx context.Context, results []model.ProbeResult, events []model.OutageEvent) {
	if s.sink == nil {
		return
	}

	for _, r := range results {
		if err := s.sink.StoreResult(ctx, r); err != nil {
			s.logger.Warn("failed to store result", zap.String("endpoint", r.Endpoint), zap.Error(err))
		}
		if st, ok := s.detector.State(r.Endpoint); ok {
			if err := s.sink.StoreOutageState(ctx, st); err != nil {
				s.logger.Warn("failed to store outage state", zap.String("endpoint", r.Endpoint), zap.Error(err))
			}
		}
	}

	for _, e := range events {
		if err := s.sink.StoreOutageEvent(ctx, e); err != nil {
			s.logger.Warn("failed to store outage event", zap.String("endpoint", e.Endpoint), zap.Error(err))
		}
	}
}

// report logs availability, error rate and latency over the report interval
func (s *Scheduler) report(now time.Time) {
	window := s.cfg.Reporting.ReportInterval.Std()
	metrics := s.evaluator.EvaluateAll(s.endpointNames(), window, now)
	for _, name := range s.endpointNames() {
		m := metrics[name]
		s.logger.Info("SLA report",
			zap.String("endpoint", name),
			zap.Duration("window", window),
			zap.Int("checks", m.Total),
			zap.Float64("availability", m.Availability),
			zap.Float64("error_rate", m.ErrorRate),
			zap.Float64("avg_response_time_ms", m.AvgLatencyMs))
	}
}

func (s *Scheduler) endpointNames() []string {
	names := make([]string, len(s.cfg.Endpoints))
	for i, ep := range s.cfg.Endpoints {
		names[i] = ep.Name
	}
	return names
}

// HealthStatus summarizes every endpoint over the last HealthWindow
func (s *Scheduler) HealthStatus() model.HealthStatus {
	now := s.now()
	start := now.Add(-HealthWindow)
	end := now.Add(time.Nanosecond)

	status := model.HealthStatus{
		Timestamp:      now,
		Window:         config.FormatDuration(HealthWindow),
		TotalEndpoints: len(s.cfg.Endpoints),
		ActiveAlerts:   s.alerts.ActiveCount(),
		Endpoints:      make(map[string]model.EndpointHealth, len(s.cfg.Endpoints)),
	}

	var success, total int
	var latencySum float64
	var latencyCount int

	for _, ep := range s.cfg.Endpoints {
		recent := s.history.Window(ep.Name, start, end)
		health := model.EndpointHealth{Status: model.StatusUnknown}

		if len(recent) > 0 {
			latest := recent[0]
			for _, r := range recent[1:] {
				if !r.Timestamp.Before(latest.Timestamp) {
					latest = r
				}
			}
			m := eval.ComputeMetrics(ep.Name, recent, start, end)

			ts := latest.Timestamp
			health.Healthy = latest.IsSuccess()
			health.Status = model.StatusHealthy
			health.LastCheck = &ts
			health.LastOutcome = latest.Outcome
			health.LastStatusCode = latest.StatusCode
			health.LastLatencyMs = latest.LatencyMs
			health.Availability = m.Availability
			health.AvgResponseTimeMs = m.AvgLatencyMs
			health.TotalChecks = m.Total

			success += m.Success
			total += m.Total
			if m.AvgLatencyMs > 0 {
				latencySum += m.AvgLatencyMs
				latencyCount++
			}
		}

		if st, ok := s.detector.State(ep.Name); ok {
			health.Status = st.Status
		}
		if health.Healthy {
			status.HealthyEndpoints++
		}
		status.Endpoints[ep.Name] = health
	}

	if total > 0 {
		status.OverallAvailability = float64(success) / float64(total) * 100
	}
	if latencyCount > 0 {
		status.AvgResponseTimeMs = latencySum / float64(latencyCount)
	}
	return status
}

// AnalyzeSLA computes metrics for every endpoint over the trailing window
func (s *Scheduler) AnalyzeSLA(window time.Duration) map[string]model.SLAMetrics {
	return s.evaluator.EvaluateAll(s.endpointNames(), window, s.now())
}

// OutageSummary returns the detector summary
func (s *Scheduler) OutageSummary() model.OutageSummary {
	return s.detector.Summary(s.now())
}

// EndpointOutageState returns the detector state of one endpoint
func (s *Scheduler) EndpointOutageState(name string) (model.OutageState, bool) {
	return s.detector.State(name)
}

// ActiveAlerts returns the alerts currently active
func (s *Scheduler) ActiveAlerts() []model.Alert {
	return s.alerts.ActiveAlerts()
}

// AlertHistory returns up to limit of the newest history entries, oldest first
func (s *Scheduler) AlertHistory(limit int) []model.Alert {
	return s.alerts.History(limit)
}

// ResolveAlert resolves an active alert on behalf of a user
func (s *Scheduler) ResolveAlert(ctx context.Context, id, reason string) (model.Alert, error) {
	return s.alerts.ResolveManual(ctx, id, reason, s.now())
}

// TestAlerts sends a test notification through every channel
func (s *Scheduler) TestAlerts(ctx context.Context) []alert.TestResult {
	return s.alerts.TestNotifiers(ctx)
}

// Endpoints returns the configured endpoints
func (s *Scheduler) Endpoints() []config.Endpoint {
	return s.cfg.Endpoints
}

// CachedMetrics returns the metrics and violations of the latest cycle
func (s *Scheduler) CachedMetrics() map[string]*MetricsState {
	return s.cache.GetAll()
}

// Querier returns a backend able to read stored probe results
func (s *Scheduler) Querier() (storage.Querier, bool) {
	switch sink := s.sink.(type) {
	case *storage.Multi:
		return sink.Querier()
	case storage.Querier:
		return sink, true
	}
	return nil, false
}

// Now returns the scheduler clock reading
func (s *Scheduler) Now() time.Time {
	return s.now()
}
