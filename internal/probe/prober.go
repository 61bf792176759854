package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/samijaber1/aegis-watch/internal/config"
	"github.com/samijaber1/aegis-watch/internal/model"
)

// maxBodyBytes caps how much of a response body is read for content checks
const maxBodyBytes = 10 << 20

// Prober performs single HTTP checks
type Prober struct {
	client         *http.Client
	defaultTimeout time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

// Option customizes a Prober
type Option func(*Prober)

// WithClock overrides the clock used for result timestamps and body placeholders
func WithClock(now func() time.Time) Option {
	return func(p *Prober) { p.now = now }
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(p *Prober) { p.client = client }
}

// NewProber creates a prober from the global monitoring settings
func NewProber(cfg config.Monitoring, logger *zap.Logger, opts ...Option) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	p := &Prober{
		client:         &http.Client{Transport: transport},
		defaultTimeout: cfg.Timeout.Std(),
		now:            time.Now,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe performs exactly one request against ep. It never panics and never
// returns an error: every failure mode is encoded in the result's outcome.
func (p *Prober) Probe(ctx context.Context, ep config.Endpoint) (result model.ProbeResult) {
	method := strings.ToUpper(ep.Method)
	if method == "" {
		method = http.MethodGet
	}
	expected := ep.ExpectedStatus
	if expected == 0 {
		expected = http.StatusOK
	}

	ts := p.now()
	result = model.ProbeResult{
		Endpoint:  ep.Name,
		URL:       ep.URL,
		Method:    method,
		Timestamp: ts,
	}

	defer func() {
		if r := recover(); r != nil {
			result.Outcome = model.OutcomeError
			result.Error = fmt.Sprintf("unexpected error: %v", r)
			p.logger.Error("probe panicked", zap.String("endpoint", ep.Name), zap.Any("panic", r))
		}
	}()

	timeout := ep.Timeout.Std()
	if timeout <= 0 {
		timeout = p.defaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if ep.Body != nil {
		payload, err := json.Marshal(resolvePlaceholders(ep.Body, ts))
		if err != nil {
			result.Outcome = model.OutcomeError
			result.Error = fmt.Sprintf("failed to encode request body: %v", err)
			return result
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, ep.URL, body)
	if err != nil {
		result.Outcome = model.OutcomeError
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result
	}
	for k, v := range ep.Headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		latency := elapsedMs(start)
		result.LatencyMs = &latency
		if isTimeout(err) {
			result.Outcome = model.OutcomeTimeout
			result.Error = "Request timeout"
		} else {
			result.Outcome = model.OutcomeError
			result.Error = err.Error()
		}
		return result
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	latency := elapsedMs(start)
	status := resp.StatusCode
	result.StatusCode = &status
	result.LatencyMs = &latency
	if err != nil {
		if isTimeout(err) {
			result.Outcome = model.OutcomeTimeout
			result.Error = "Request timeout"
		} else {
			result.Outcome = model.OutcomeError
			result.Error = fmt.Sprintf("failed to read response body: %v", err)
		}
		return result
	}

	size := int64(len(data))
	result.SizeBytes = &size
	result.Checks = runChecks(ep.Validation.ContentChecks, response{
		StatusCode: status,
		Body:       data,
		LatencyMs:  latency,
	})

	switch {
	case status != expected:
		result.Outcome = model.OutcomeFailure
		result.Error = fmt.Sprintf("unexpected status %d (expected %d)", status, expected)
	case !allPassed(result.Checks):
		result.Outcome = model.OutcomeFailure
		result.Error = "content validation failed: " + strings.Join(failedChecks(result.Checks), ", ")
	default:
		result.Outcome = model.OutcomeSuccess
	}

	return result
}

func failedChecks(checks map[string]bool) []string {
	var failed []string
	for name, ok := range checks {
		if !ok {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	return failed
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
