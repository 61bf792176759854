package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_NoSubscribers(t *testing.T) {
	h := NewHub(nil, nil)
	assert.ErrorIs(t, h.Send(context.Background(), sampleAlert()), ErrNoSubscribers)
	assert.ErrorIs(t, h.Test(context.Background()), ErrNoSubscribers)
}

func TestHub_BroadcastsAlerts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(nil, nil)
	go h.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(h.HandleConnect))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, h.Send(ctx, sampleAlert()))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var evt struct {
		Type     string          `json:"type"`
		Endpoint string          `json:"endpoint"`
		Payload  json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &evt))
	assert.Equal(t, "alert", evt.Type)
	assert.Equal(t, "payments", evt.Endpoint)
	assert.Contains(t, string(evt.Payload), "OUTAGE: payments is DOWN")
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	h := NewHub([]string{"https://dash.example.com"}, nil)

	req := httptest.NewRequest("GET", "/api/events", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, h.upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://dash.example.com")
	assert.True(t, h.upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, h.upgrader.CheckOrigin(req))
}
