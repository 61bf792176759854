package config

import (
	"time"
)

// Config is the complete monitor configuration document
type Config struct {
	Monitoring Monitoring `yaml:"monitoring" json:"monitoring"`
	Endpoints  []Endpoint `yaml:"endpoints" json:"endpoints"`
	Storage    Storage    `yaml:"storage" json:"storage"`
	Alerting   Alerting   `yaml:"alerting" json:"alerting"`
	Reporting  Reporting  `yaml:"reporting" json:"reporting"`
	Logging    Logging    `yaml:"logging" json:"logging"`
}

// Monitoring holds global probing parameters
type Monitoring struct {
	Interval         Duration        `yaml:"interval" json:"interval"`
	Timeout          Duration        `yaml:"timeout" json:"timeout"`
	MaxWorkers       int             `yaml:"max_workers" json:"maxWorkers"`
	VerifyTLS        bool            `yaml:"verify_ssl" json:"verifySSL"`
	HistoryRetention Duration        `yaml:"history_retention" json:"historyRetention"`
	SLAWindow        Duration        `yaml:"sla_window" json:"slaWindow"`
	OutageDetection  OutageDetection `yaml:"outage_detection" json:"outageDetection"`
}

// OutageDetection configures the per-endpoint hysteresis state machine
type OutageDetection struct {
	ConsecutiveFailuresThreshold int      `yaml:"consecutive_failures_threshold" json:"consecutiveFailuresThreshold"`
	DegradedThreshold            int      `yaml:"degraded_threshold" json:"degradedThreshold"`
	RecoverySuccessThreshold     int      `yaml:"recovery_success_threshold" json:"recoverySuccessThreshold"`
	FailureWindow                Duration `yaml:"failure_window" json:"failureWindow"`
	CriticalOutageDuration       Duration `yaml:"critical_outage_duration" json:"criticalOutageDuration"`
	TimeoutAsFailure             bool     `yaml:"timeout_as_failure" json:"timeoutAsFailure"`
	HTTP5xxAsFailure             bool     `yaml:"http_5xx_as_failure" json:"http5xxAsFailure"`
	HTTP4xxAsFailure             bool     `yaml:"http_4xx_as_failure" json:"http4xxAsFailure"`
}

// Endpoint describes one monitored HTTP endpoint. Name is the unique key.
type Endpoint struct {
	Name           string            `yaml:"name" json:"name"`
	URL            string            `yaml:"url" json:"url"`
	Method         string            `yaml:"method" json:"method"`
	ExpectedStatus int               `yaml:"expected_status" json:"expectedStatus"`
	Timeout        Duration          `yaml:"timeout" json:"timeout"`
	Headers        map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Body           map[string]any    `yaml:"body,omitempty" json:"body,omitempty"`
	SLA            SLA               `yaml:"sla" json:"sla"`
	SLO            SLO               `yaml:"slo" json:"slo"`
	Validation     Validation        `yaml:"validation" json:"validation"`
}

// SLA holds contractual thresholds
type SLA struct {
	AvailabilityPercentage *float64 `yaml:"availability_percentage,omitempty" json:"availabilityPercentage,omitempty"`
}

// SLO holds internal objectives
type SLO struct {
	MaxAvgResponseTimeMs   *float64 `yaml:"max_avg_response_time_ms,omitempty" json:"maxAvgResponseTimeMs,omitempty"`
	MaxErrorRatePercentage *float64 `yaml:"max_error_rate_percentage,omitempty" json:"maxErrorRatePercentage,omitempty"`
}

// Validation lists content checks applied to every response
type Validation struct {
	ContentChecks []ContentCheck `yaml:"content_checks,omitempty" json:"contentChecks,omitempty"`
}

// Content check types
const (
	CheckJSONKeyExists = "json_key_exists"
	CheckJSONKeyValue  = "json_key_value"
	CheckStatusCode    = "status_code"
	CheckResponseTime  = "response_time"
)

// ContentCheck is a single response predicate
type ContentCheck struct {
	Type     string  `yaml:"type" json:"type"`
	Key      string  `yaml:"key,omitempty" json:"key,omitempty"`
	Expected any     `yaml:"expected,omitempty" json:"expected,omitempty"`
	MaxMs    float64 `yaml:"max_ms,omitempty" json:"maxMs,omitempty"`
}

// Storage backend names
const (
	BackendFile       = "file"
	BackendSQLite     = "sqlite"
	BackendPrometheus = "prometheus"
)

// Storage selects and configures persistence backends
type Storage struct {
	Backends   []string          `yaml:"backends" json:"backends"`
	File       FileStorage       `yaml:"file" json:"file"`
	SQLite     SQLiteStorage     `yaml:"sqlite" json:"sqlite"`
	Prometheus PrometheusStorage `yaml:"prometheus" json:"prometheus"`
}

type FileStorage struct {
	Path string `yaml:"path" json:"path"`
}

type SQLiteStorage struct {
	Path string `yaml:"path" json:"path"`
}

type PrometheusStorage struct {
	JobName string `yaml:"job_name" json:"jobName"`
}

// Channel types
const (
	ChannelConsole   = "console"
	ChannelEmail     = "email"
	ChannelWebhook   = "webhook"
	ChannelWebsocket = "websocket"
)

// Alerting configures the alert lifecycle and its notification channels
type Alerting struct {
	Enabled          bool      `yaml:"enabled" json:"enabled"`
	RepeatInterval   Duration  `yaml:"repeat_interval" json:"repeatInterval"`
	MaxRepeats       int       `yaml:"max_repeats" json:"maxRepeats"`
	AutoResolveAfter Duration  `yaml:"auto_resolve_after" json:"autoResolveAfter"`
	SweepInterval    Duration  `yaml:"sweep_interval" json:"sweepInterval"`
	HistoryLimit     int       `yaml:"history_limit" json:"historyLimit"`
	Channels         []Channel `yaml:"channels" json:"channels"`
}

// Channel configures one notification sink. Only the fields relevant to
// Type are read.
type Channel struct {
	Type    string `yaml:"type" json:"type"`
	Enabled *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// console
	UseColors *bool `yaml:"use_colors,omitempty" json:"useColors,omitempty"`

	// email
	SMTPServer  string   `yaml:"smtp_server,omitempty" json:"smtpServer,omitempty"`
	SMTPPort    int      `yaml:"smtp_port,omitempty" json:"smtpPort,omitempty"`
	Username    string   `yaml:"username,omitempty" json:"-"`
	Password    string   `yaml:"password,omitempty" json:"-"`
	FromAddress string   `yaml:"from_address,omitempty" json:"fromAddress,omitempty"`
	ToAddresses []string `yaml:"to_addresses,omitempty" json:"toAddresses,omitempty"`
	Timezone    string   `yaml:"timezone,omitempty" json:"timezone,omitempty"`

	// webhook
	URL        string            `yaml:"url,omitempty" json:"url,omitempty"`
	Headers    map[string]string `yaml:"headers,omitempty" json:"-"`
	Timeout    Duration          `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	RetryCount int               `yaml:"retry_count,omitempty" json:"retryCount,omitempty"`
}

// IsEnabled reports whether the channel should be built. Channels are on
// unless explicitly disabled.
func (c Channel) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Reporting configures the dashboard and periodic SLA reports
type Reporting struct {
	Host           string   `yaml:"host" json:"host"`
	DashboardPort  int      `yaml:"dashboard_port" json:"dashboardPort"`
	ReportInterval Duration `yaml:"report_interval" json:"reportInterval"`
	CORSOrigins    []string `yaml:"cors_origins" json:"corsOrigins"`
}

// Logging configures the zap logger
type Logging struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Monitoring: Monitoring{
			Interval:         Duration(30 * time.Second),
			Timeout:          Duration(10 * time.Second),
			MaxWorkers:       5,
			VerifyTLS:        true,
			HistoryRetention: Duration(24 * time.Hour),
			SLAWindow:        Duration(time.Hour),
			OutageDetection: OutageDetection{
				ConsecutiveFailuresThreshold: 3,
				DegradedThreshold:            2,
				RecoverySuccessThreshold:     2,
				FailureWindow:                Duration(10 * time.Minute),
				CriticalOutageDuration:       Duration(5 * time.Minute),
				TimeoutAsFailure:             true,
				HTTP5xxAsFailure:             true,
				HTTP4xxAsFailure:             false,
			},
		},
		Storage: Storage{
			Backends:   []string{BackendFile},
			File:       FileStorage{Path: "./data"},
			SQLite:     SQLiteStorage{Path: "./data/aegis-watch.db"},
			Prometheus: PrometheusStorage{JobName: "aegis-watch"},
		},
		Alerting: Alerting{
			Enabled:          true,
			RepeatInterval:   Duration(15 * time.Minute),
			MaxRepeats:       0,
			AutoResolveAfter: Duration(24 * time.Hour),
			SweepInterval:    Duration(time.Minute),
			HistoryLimit:     1000,
		},
		Reporting: Reporting{
			Host:           "0.0.0.0",
			DashboardPort:  8080,
			ReportInterval: Duration(time.Hour),
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// applyDefaults fills per-endpoint and per-channel fields that depend on
// global settings
func (c *Config) applyDefaults() {
	for i := range c.Endpoints {
		ep := &c.Endpoints[i]
		if ep.Method == "" {
			ep.Method = "GET"
		}
		if ep.ExpectedStatus == 0 {
			ep.ExpectedStatus = 200
		}
		if ep.Timeout == 0 {
			ep.Timeout = c.Monitoring.Timeout
		}
	}

	for i := range c.Alerting.Channels {
		ch := &c.Alerting.Channels[i]
		switch ch.Type {
		case ChannelEmail:
			if ch.SMTPPort == 0 {
				ch.SMTPPort = 1025
			}
			if ch.Timezone == "" {
				ch.Timezone = "UTC"
			}
		case ChannelWebhook:
			if ch.Timeout == 0 {
				ch.Timeout = Duration(10 * time.Second)
			}
			if ch.RetryCount == 0 {
				ch.RetryCount = 3
			}
		}
	}
}

// Endpoint returns the endpoint with the given name
func (c *Config) Endpoint(name string) (Endpoint, bool) {
	for _, ep := range c.Endpoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// HasBackend reports whether a storage backend is enabled
func (c *Config) HasBackend(name string) bool {
	for _, b := range c.Storage.Backends {
		if b == name {
			return true
		}
	}
	return false
}
