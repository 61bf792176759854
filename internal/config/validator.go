package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/url"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/config_v1.json
var schemaJSON []byte

const schemaURL = "https://aegis-watch.local/schemas/config_v1.json"

// ValidationError represents a validation error for a specific file
type ValidationError struct {
	File    string
	Path    string
	Message string
}

// Error implements the error interface
func (e ValidationError) Error() string {
	if e.Path != "" {
		return e.File + ": " + e.Path + ": " + e.Message
	}
	return e.File + ": " + e.Message
}

// ValidationErrors collects every problem found in one document
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(e), strings.Join(msgs, "; "))
}

// Validator checks raw config documents against the embedded JSON schema
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded schema
func NewValidator() (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// ValidateDocument validates a YAML-decoded document against the schema
func (v *Validator) ValidateDocument(file string, doc interface{}) []ValidationError {
	err := v.schema.Validate(doc)
	if err == nil {
		return nil
	}

	if validationErr, ok := err.(*jsonschema.ValidationError); ok {
		return extractSchemaErrors(file, validationErr)
	}
	return []ValidationError{{File: file, Message: err.Error()}}
}

// extractSchemaErrors flattens nested schema errors, keeping only leaves
func extractSchemaErrors(file string, err *jsonschema.ValidationError) []ValidationError {
	if len(err.Causes) == 0 {
		path := strings.Join(err.InstanceLocation, ".")
		if path == "" {
			path = "(root)"
		}
		return []ValidationError{{
			File:    file,
			Path:    path,
			Message: err.Error(),
		}}
	}

	var errors []ValidationError
	for _, cause := range err.Causes {
		errors = append(errors, extractSchemaErrors(file, cause)...)
	}
	return errors
}

// Validate applies the rules the schema cannot express
func (c *Config) Validate() error {
	if errs := c.validateRules(""); len(errs) > 0 {
		return ValidationErrors(errs)
	}
	return nil
}

func (c *Config) validateRules(file string) []ValidationError {
	var errors []ValidationError
	add := func(path, format string, args ...interface{}) {
		errors = append(errors, ValidationError{File: file, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if len(c.Endpoints) == 0 {
		add("endpoints", "at least one endpoint is required")
	}

	// Check for duplicate names and malformed URLs
	seen := make(map[string]int)
	for i, ep := range c.Endpoints {
		path := fmt.Sprintf("endpoints[%d]", i)
		if ep.Name == "" {
			add(path+".name", "name is required")
		} else if prev, exists := seen[ep.Name]; exists {
			add(path+".name", "duplicate endpoint name %q (also endpoints[%d])", ep.Name, prev)
		} else {
			seen[ep.Name] = i
		}

		u, err := url.Parse(ep.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add(path+".url", "invalid URL %q: must be an absolute http(s) URL", ep.URL)
		}

		for j, check := range ep.Validation.ContentChecks {
			checkPath := fmt.Sprintf("%s.validation.content_checks[%d]", path, j)
			switch check.Type {
			case CheckJSONKeyExists, CheckJSONKeyValue:
				if check.Key == "" {
					add(checkPath+".key", "key is required for %s", check.Type)
				}
			case CheckStatusCode:
				if check.Expected == nil {
					add(checkPath+".expected", "expected is required for %s", check.Type)
				}
			case CheckResponseTime:
			default:
				add(checkPath+".type", "unknown content check type %q", check.Type)
			}
		}
	}

	od := c.Monitoring.OutageDetection
	if od.ConsecutiveFailuresThreshold < od.DegradedThreshold {
		add("monitoring.outage_detection.consecutive_failures_threshold",
			"outage threshold (%d) must be >= degraded threshold (%d)",
			od.ConsecutiveFailuresThreshold, od.DegradedThreshold)
	}
	if od.DegradedThreshold < 1 || od.RecoverySuccessThreshold < 1 {
		add("monitoring.outage_detection", "thresholds must be positive")
	}

	if c.Monitoring.MaxWorkers < 1 {
		add("monitoring.max_workers", "must be at least 1, got %d", c.Monitoring.MaxWorkers)
	}
	if c.Monitoring.Interval <= 0 {
		add("monitoring.interval", "must be positive")
	}
	if c.Monitoring.SLAWindow > c.Monitoring.HistoryRetention {
		add("monitoring.sla_window", "sla_window (%s) must be <= history_retention (%s)",
			c.Monitoring.SLAWindow, c.Monitoring.HistoryRetention)
	}

	for i, backend := range c.Storage.Backends {
		switch backend {
		case BackendFile, BackendSQLite, BackendPrometheus:
		default:
			add(fmt.Sprintf("storage.backends[%d]", i), "unknown storage backend %q", backend)
		}
	}

	if c.Alerting.RepeatInterval <= 0 {
		add("alerting.repeat_interval", "must be positive")
	}
	for i, ch := range c.Alerting.Channels {
		path := fmt.Sprintf("alerting.channels[%d]", i)
		switch ch.Type {
		case ChannelConsole, ChannelWebsocket:
		case ChannelEmail:
			if ch.SMTPServer == "" {
				add(path+".smtp_server", "smtp_server is required for email channels")
			}
			if ch.FromAddress == "" {
				add(path+".from_address", "from_address is required for email channels")
			}
			if len(ch.ToAddresses) == 0 {
				add(path+".to_addresses", "at least one recipient is required for email channels")
			}
		case ChannelWebhook:
			if u, err := url.Parse(ch.URL); err != nil || u.Host == "" {
				add(path+".url", "invalid webhook URL %q", ch.URL)
			}
		default:
			add(path+".type", "unknown channel type %q", ch.Type)
		}
	}

	if c.Reporting.DashboardPort <= 0 || c.Reporting.DashboardPort > 65535 {
		add("reporting.dashboard_port", "invalid port: %d", c.Reporting.DashboardPort)
	}

	return errors
}
