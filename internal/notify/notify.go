// Package notify implements the alert delivery channels: console, email,
// webhook and a websocket hub for dashboard clients.
package notify

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samijaber1/aegis-watch/internal/alert"
	"github.com/samijaber1/aegis-watch/internal/config"
	"github.com/samijaber1/aegis-watch/internal/model"
)

// AlertTypeTest marks alerts produced by channel tests
const AlertTypeTest model.AlertType = "test"

// Build creates the enabled channels of cfg. The hub is nil unless a
// websocket channel is configured; the caller must run it and mount its
// handler.
func Build(cfg *config.Config, logger *zap.Logger) ([]alert.Notifier, *Hub, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var notifiers []alert.Notifier
	var hub *Hub

	for i, ch := range cfg.Alerting.Channels {
		if !ch.IsEnabled() {
			logger.Debug("alert channel disabled", zap.String("type", ch.Type))
			continue
		}

		switch ch.Type {
		case config.ChannelConsole:
			colors := ch.UseColors == nil || *ch.UseColors
			notifiers = append(notifiers, NewConsole(os.Stdout, colors))
		case config.ChannelEmail:
			email, err := NewEmail(ch)
			if err != nil {
				return nil, nil, fmt.Errorf("channel %d: %w", i, err)
			}
			notifiers = append(notifiers, email)
		case config.ChannelWebhook:
			notifiers = append(notifiers, NewWebhook(ch, cfg.Monitoring.VerifyTLS, logger))
		case config.ChannelWebsocket:
			if hub == nil {
				hub = NewHub(cfg.Reporting.CORSOrigins, logger)
				notifiers = append(notifiers, hub)
			}
		default:
			return nil, nil, fmt.Errorf("channel %d: unknown type %q", i, ch.Type)
		}
		logger.Info("initialized alert channel", zap.String("type", ch.Type))
	}

	return notifiers, hub, nil
}

// testAlert is the low-severity alert sent by channel tests
func testAlert(now time.Time) model.Alert {
	return model.Alert{
		ID:                  uuid.NewString(),
		Endpoint:            "aegis-watch",
		Type:                AlertTypeTest,
		Cause:               "test",
		Severity:            model.SeverityLow,
		Timestamp:           now,
		Title:               "Test alert",
		Description:         "This is a test alert from aegis-watch. If you can read it, the channel works.",
		OriginalTitle:       "Test alert",
		OriginalDescription: "This is a test alert from aegis-watch.",
		FirstOccurrence:     now,
		Metadata:            map[string]string{"test": "true"},
	}
}
