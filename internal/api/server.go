package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/samijaber1/aegis-watch/internal/alert"
	"github.com/samijaber1/aegis-watch/internal/config"
	"github.com/samijaber1/aegis-watch/internal/model"
	"github.com/samijaber1/aegis-watch/internal/notify"
	"github.com/samijaber1/aegis-watch/internal/scheduler"
	"github.com/samijaber1/aegis-watch/internal/storage"
)

const (
	defaultHistoryLimit = 100
	defaultSLAWindow    = time.Hour
)

// Option configures a Server
type Option func(*Server)

// WithHub serves the websocket alert stream at /api/events
func WithHub(hub *notify.Hub) Option {
	return func(s *Server) { s.hub = hub }
}

// WithMetricsHandler serves h at /metrics
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithCORSOrigins sets the allowed CORS origins. Empty allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithLogger sets the request and lifecycle logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// Server is the dashboard HTTP API
type Server struct {
	scheduler *scheduler.Scheduler
	hub       *notify.Hub
	metrics   http.Handler
	origins   []string
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a new API server
func NewServer(sched *scheduler.Scheduler, addr string, opts ...Option) *Server {
	s := &Server{scheduler: sched}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealthStatus)
		r.Get("/alerts", s.handleActiveAlerts)
		r.Get("/alerts/history", s.handleAlertHistory)
		r.Post("/alerts/{id}/resolve", s.handleResolveAlert)
		r.Post("/test-alerts", s.handleTestAlerts)
		r.Get("/sla", s.handleSLA)
		r.Get("/violations", s.handleViolations)
		r.Get("/outages", s.handleOutages)
		r.Get("/outages/{endpoint}", s.handleEndpointOutage)
		r.Get("/endpoints", s.handleEndpoints)
		r.Post("/trigger-monitoring", s.handleTrigger)
		r.Get("/results", s.handleResults)
		if s.hub != nil {
			r.Get("/events", s.hub.HandleConnect)
		}
	})

	return r
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting API server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleReady handles GET /readyz
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	endpoints := len(s.scheduler.Endpoints())

	ready := endpoints > 0
	reasons := []string{}
	if endpoints == 0 {
		reasons = append(reasons, "no endpoints configured")
	}
	if len(s.scheduler.CachedMetrics()) == 0 {
		reasons = append(reasons, "no monitoring cycle completed yet")
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, ReadyResponse{
		Ready:               ready,
		EndpointsConfigured: endpoints,
		Reasons:             reasons,
	})
}

// handleHealthStatus handles GET /api/health
func (s *Server) handleHealthStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.scheduler.HealthStatus())
}

// handleActiveAlerts handles GET /api/alerts
func (s *Server) handleActiveAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := s.scheduler.ActiveAlerts()
	respondJSON(w, http.StatusOK, AlertsResponse{Alerts: alerts, Total: len(alerts)})
}

// handleAlertHistory handles GET /api/alerts/history
func (s *Server) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %s", v))
			return
		}
		limit = n
	}

	alerts := s.scheduler.AlertHistory(limit)
	respondJSON(w, http.StatusOK, AlertsResponse{Alerts: alerts, Total: len(alerts)})
}

// handleResolveAlert handles POST /api/alerts/{id}/resolve
func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ResolveRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
			return
		}
	}

	resolved, err := s.scheduler.ResolveAlert(r.Context(), id, req.Reason)
	if errors.Is(err, alert.ErrAlertNotFound) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("alert not found: %s", id))
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, resolved)
}

// handleTestAlerts handles POST /api/test-alerts
func (s *Server) handleTestAlerts(w http.ResponseWriter, r *http.Request) {
	results := s.scheduler.TestAlerts(r.Context())

	success := len(results) > 0
	for _, res := range results {
		if !res.OK {
			success = false
		}
	}
	respondJSON(w, http.StatusOK, TestAlertsResponse{Success: success, Results: results})
}

// handleSLA handles GET /api/sla
func (s *Server) handleSLA(w http.ResponseWriter, r *http.Request) {
	window := defaultSLAWindow
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := config.ParseDuration(v)
		if err != nil || d <= 0 {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid window: %s", v))
			return
		}
		window = d
	}

	respondJSON(w, http.StatusOK, SLAResponse{
		Window:    config.FormatDuration(window),
		Endpoints: s.scheduler.AnalyzeSLA(window),
	})
}

// handleViolations handles GET /api/violations
func (s *Server) handleViolations(w http.ResponseWriter, r *http.Request) {
	now := s.scheduler.Now()
	cached := s.scheduler.CachedMetrics()

	resp := ViolationsResponse{Endpoints: make(map[string]ViolationState, len(cached))}
	for name, state := range cached {
		violations := state.Violations
		if violations == nil {
			violations = []model.Violation{}
		}
		resp.Endpoints[name] = ViolationState{
			Violations: violations,
			UpdatedAt:  state.UpdatedAt,
			IsStale:    state.IsStale(now),
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleOutages handles GET /api/outages
func (s *Server) handleOutages(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.scheduler.OutageSummary())
}

// handleEndpointOutage handles GET /api/outages/{endpoint}
func (s *Server) handleEndpointOutage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "endpoint")
	state, ok := s.scheduler.EndpointOutageState(name)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no outage state for endpoint: %s", name))
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// handleEndpoints handles GET /api/endpoints
func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	endpoints := s.scheduler.Endpoints()
	summaries := make([]EndpointSummary, 0, len(endpoints))
	for _, ep := range endpoints {
		summaries = append(summaries, EndpointSummary{
			Name:                   ep.Name,
			URL:                    ep.URL,
			Method:                 ep.Method,
			ExpectedStatus:         ep.ExpectedStatus,
			Timeout:                ep.Timeout.String(),
			AvailabilityPercentage: ep.SLA.AvailabilityPercentage,
			MaxAvgResponseTimeMs:   ep.SLO.MaxAvgResponseTimeMs,
			MaxErrorRatePercentage: ep.SLO.MaxErrorRatePercentage,
		})
	}
	respondJSON(w, http.StatusOK, EndpointsResponse{Endpoints: summaries})
}

// handleTrigger handles POST /api/trigger-monitoring
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	results, err := s.scheduler.TryRunCycle(r.Context())
	if errors.Is(err, scheduler.ErrCycleInProgress) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	healthy := 0
	for _, res := range results {
		if res.IsSuccess() {
			healthy++
		}
	}
	respondJSON(w, http.StatusOK, TriggerResponse{
		Status:    "completed",
		Timestamp: s.scheduler.Now(),
		Total:     len(results),
		Healthy:   healthy,
	})
}

// handleResults handles GET /api/results
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	querier, ok := s.scheduler.Querier()
	if !ok {
		respondError(w, http.StatusServiceUnavailable, "no queryable storage backend configured")
		return
	}

	filter, err := parseResultFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := querier.QueryResults(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to query results: %v", err))
		return
	}
	if results == nil {
		results = []model.ProbeResult{}
	}

	respondJSON(w, http.StatusOK, ResultsResponse{Results: results, Total: len(results)})
}

func parseResultFilter(r *http.Request) (storage.ResultFilter, error) {
	query := r.URL.Query()
	filter := storage.ResultFilter{
		Endpoint: query.Get("endpoint"),
		Outcome:  model.Outcome(query.Get("outcome")),
	}

	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := query.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return filter, fmt.Errorf("invalid %s: %s", name, v)
			}
			*dst = n
		}
	}

	for name, dst := range map[string]**time.Time{"startTime": &filter.StartTime, "endTime": &filter.EndTime} {
		if v := query.Get(name); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return filter, fmt.Errorf("invalid %s: %s", name, v)
			}
			*dst = &t
		}
	}

	return filter, nil
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
