// Package metrics exposes pipeline records as Prometheus metrics. It is a
// write-only storage backend; the registry is scraped through Handler.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samijaber1/aegis-watch/internal/model"
	"github.com/samijaber1/aegis-watch/internal/storage"
)

// Sink records pipeline output into a dedicated registry
type Sink struct {
	registry *prometheus.Registry

	responseTime       *prometheus.GaugeVec
	requests           *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	currentStatusCode  *prometheus.GaugeVec
	availability       *prometheus.GaugeVec
	errorRate          *prometheus.GaugeVec
	outageStatus       *prometheus.GaugeVec
	consecutiveFailure *prometheus.GaugeVec
	outageDuration     *prometheus.GaugeVec
	outageEvents       *prometheus.CounterVec
	alerts             *prometheus.CounterVec
	info               *prometheus.GaugeVec
}

var _ storage.Sink = (*Sink)(nil)

// NewSink registers the monitor metrics on a fresh registry
func NewSink(jobName, version string) *Sink {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	s := &Sink{
		registry: reg,
		responseTime: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "api_response_time_milliseconds",
			Help: "API response time in milliseconds",
		}, []string{"endpoint_name", "url", "status"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests by probe outcome",
		}, []string{"endpoint_name", "url", "status"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "api_http_requests_total",
			Help: "Total HTTP requests by status code class",
		}, []string{"endpoint_name", "method", "code_class"}),
		currentStatusCode: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "api_current_status_code",
			Help: "Current HTTP status code for endpoint",
		}, []string{"endpoint_name", "method"}),
		availability: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "api_availability_percentage",
			Help: "API availability percentage over the SLA window",
		}, []string{"endpoint_name"}),
		errorRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "api_error_rate_percentage",
			Help: "API error rate percentage over the SLA window",
		}, []string{"endpoint_name"}),
		outageStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "api_endpoint_outage_status",
			Help: "Endpoint outage status (0=healthy, 1=degraded, 2=outage)",
		}, []string{"endpoint_name"}),
		consecutiveFailure: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "api_consecutive_failures",
			Help: "Number of consecutive failures for endpoint",
		}, []string{"endpoint_name"}),
		outageDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "api_outage_duration_seconds",
			Help: "Current outage duration in seconds (0 if not in outage)",
		}, []string{"endpoint_name"}),
		outageEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "api_outage_events_total",
			Help: "Total outage events",
		}, []string{"endpoint_name", "event_type"}),
		alerts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "api_alerts_total",
			Help: "Total alerts raised",
		}, []string{"endpoint_name", "alert_type", "severity"}),
		info: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "api_monitoring_info",
			Help: "API monitoring system information",
		}, []string{"version", "job"}),
	}

	s.info.WithLabelValues(version, jobName).Set(1)
	return s
}

// Registry returns the underlying registry
func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

// Handler serves the registry in the Prometheus exposition format
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func (s *Sink) StoreResult(_ context.Context, r model.ProbeResult) error {
	s.requests.WithLabelValues(r.Endpoint, r.URL, string(r.Outcome)).Inc()

	if latency, ok := r.Latency(); ok {
		s.responseTime.WithLabelValues(r.Endpoint, r.URL, string(r.Outcome)).Set(latency)
	}

	if code := r.Status(); code > 0 {
		s.httpRequests.WithLabelValues(r.Endpoint, r.Method, codeClass(code)).Inc()
		s.currentStatusCode.WithLabelValues(r.Endpoint, r.Method).Set(float64(code))
	}
	return nil
}

func (s *Sink) StoreMetrics(_ context.Context, m model.SLAMetrics) error {
	if !m.HasTraffic() {
		return nil
	}
	s.availability.WithLabelValues(m.Endpoint).Set(m.Availability)
	s.errorRate.WithLabelValues(m.Endpoint).Set(m.ErrorRate)
	return nil
}

// StoreAlert counts alerts once, when they are first stored
func (s *Sink) StoreAlert(_ context.Context, a model.Alert) error {
	if a.Resolved || a.RepeatCount > 0 {
		return nil
	}
	s.alerts.WithLabelValues(a.Endpoint, string(a.Type), string(a.Severity)).Inc()
	return nil
}

func (s *Sink) StoreOutageState(_ context.Context, state model.OutageState) error {
	s.outageStatus.WithLabelValues(state.Endpoint).Set(statusValue(state.Status))
	s.consecutiveFailure.WithLabelValues(state.Endpoint).Set(float64(state.ConsecutiveFailures))
	s.outageDuration.WithLabelValues(state.Endpoint).Set(state.OutageDuration(state.UpdatedAt).Seconds())
	return nil
}

func (s *Sink) StoreOutageEvent(_ context.Context, e model.OutageEvent) error {
	s.outageEvents.WithLabelValues(e.Endpoint, string(e.Kind)).Inc()
	return nil
}

func (s *Sink) Close() error {
	return nil
}

func statusValue(status model.OutageStatus) float64 {
	switch status {
	case model.StatusDegraded:
		return 1
	case model.StatusOutage:
		return 2
	default:
		return 0
	}
}

// codeClass maps 503 to "5xx"
func codeClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
