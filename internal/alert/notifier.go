package alert

import (
	"context"

	"github.com/samijaber1/aegis-watch/internal/model"
)

// Notifier delivers finished alerts to one channel
type Notifier interface {
	// Name identifies the channel in logs and test reports
	Name() string
	// Send delivers one alert. A nil error means the channel accepted it.
	Send(ctx context.Context, a model.Alert) error
	// Test sends a low-severity test alert
	Test(ctx context.Context) error
}

// Store persists alert snapshots. Failures are logged, never retried.
type Store interface {
	StoreAlert(ctx context.Context, a model.Alert) error
}

// TestResult reports the outcome of a channel test
type TestResult struct {
	Channel string `json:"channel"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}
