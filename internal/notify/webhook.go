package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/samijaber1/aegis-watch/internal/config"
	"github.com/samijaber1/aegis-watch/internal/model"
)

// Breaker settings for webhook delivery
const (
	breakerTripFailures = 5
	breakerOpenTimeout  = 30 * time.Second
	defaultRetryDelay   = 500 * time.Millisecond
)

// webhookPayload is the JSON document posted for every alert
type webhookPayload struct {
	AlertID      string             `json:"alert_id"`
	Timestamp    time.Time          `json:"timestamp"`
	EndpointName string             `json:"endpoint_name"`
	AlertType    model.AlertType    `json:"alert_type"`
	Severity     model.Severity     `json:"severity"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Resolved     bool               `json:"resolved"`
	Violation    *model.Violation   `json:"violation,omitempty"`
	OutageEvent  *model.OutageEvent `json:"outage_event,omitempty"`
	Metadata     map[string]string  `json:"metadata,omitempty"`
}

func newWebhookPayload(a model.Alert) webhookPayload {
	return webhookPayload{
		AlertID:      a.ID,
		Timestamp:    a.Timestamp,
		EndpointName: a.Endpoint,
		AlertType:    a.Type,
		Severity:     a.Severity,
		Title:        a.Title,
		Description:  a.Description,
		Resolved:     a.Resolved,
		Violation:    a.Violation,
		OutageEvent:  a.Event,
		Metadata:     a.Metadata,
	}
}

// Webhook posts alerts as JSON. Each Send makes up to retryCount attempts;
// deliveries run behind a circuit breaker so a dead receiver is skipped
// quickly.
type Webhook struct {
	url        string
	headers    map[string]string
	client     *http.Client
	retryCount int
	retryDelay time.Duration
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewWebhook creates a webhook channel from its configuration
func NewWebhook(ch config.Channel, verifyTLS bool, logger *zap.Logger) *Webhook {
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !verifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	retries := ch.RetryCount
	if retries < 1 {
		retries = 1
	}

	w := &Webhook{
		url:        ch.URL,
		headers:    ch.Headers,
		client:     &http.Client{Timeout: ch.Timeout.Std(), Transport: transport},
		retryCount: retries,
		retryDelay: defaultRetryDelay,
		logger:     logger,
	}
	w.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "webhook " + ch.URL,
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("webhook circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return w
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, a model.Alert) error {
	body, err := json.Marshal(newWebhookPayload(a))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	_, err = w.breaker.Execute(func() (interface{}, error) {
		return nil, w.deliver(ctx, body)
	})
	return err
}

// Test posts a small test document to the receiver
func (w *Webhook) Test(ctx context.Context) error {
	body, err := json.Marshal(map[string]any{
		"test":      true,
		"timestamp": time.Now().UTC(),
		"message":   "Webhook test from aegis-watch",
	})
	if err != nil {
		return fmt.Errorf("marshal test payload: %w", err)
	}
	return w.post(ctx, body)
}

func (w *Webhook) deliver(ctx context.Context, body []byte) error {
	var lastErr error
	for attempt := 0; attempt < w.retryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.retryDelay):
			}
		}

		lastErr = w.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		w.logger.Warn("webhook attempt failed",
			zap.String("url", w.url),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}
	return fmt.Errorf("webhook failed after %d attempts: %w", w.retryCount, lastErr)
}

func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
