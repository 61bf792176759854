package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samijaber1/aegis-watch/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path := writeConfig(t, `
endpoints:
  - name: users-api
    url: https://api.example.com/users
alerting:
  channels:
    - type: console
`)
		stdout, _, err := execute(t, "validate", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Configuration is valid (1 endpoint(s), 1 alert channel(s))")
	})

	t.Run("invalid", func(t *testing.T) {
		path := writeConfig(t, `
endpoints:
  - name: users-api
`)
		_, stderr, err := execute(t, "validate", "--config", path)
		assert.ErrorIs(t, err, errFailed)
		assert.Contains(t, stderr, "Validation failed")
		assert.Contains(t, stderr, "config.yaml")
	})

	t.Run("missing file", func(t *testing.T) {
		_, stderr, err := execute(t, "validate", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, errFailed)
		assert.Contains(t, stderr, "failed to read file")
	})
}

func TestTestAlerts(t *testing.T) {
	var received []map[string]interface{}
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		received = append(received, body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	path := writeConfig(t, `
endpoints:
  - name: users-api
    url: https://api.example.com/users
alerting:
  channels:
    - type: webhook
      url: `+hook.URL+`
`)

	stdout, _, err := execute(t, "test-alerts", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "webhook")
	assert.Contains(t, stdout, "ok")
	require.Len(t, received, 1)
	assert.Equal(t, true, received[0]["test"])
}

func TestTestAlerts_Failure(t *testing.T) {
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer hook.Close()

	path := writeConfig(t, `
endpoints:
  - name: users-api
    url: https://api.example.com/users
alerting:
  channels:
    - type: webhook
      url: `+hook.URL+`
      retry_count: 1
`)

	stdout, _, err := execute(t, "test-alerts", "--config", path)
	assert.ErrorIs(t, err, errFailed)
	assert.Contains(t, stdout, "1 of 1 channel(s) failed")
}

func TestStatus(t *testing.T) {
	code, latency := 200, 42.0
	last := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	health := model.HealthStatus{
		Timestamp:           last,
		Window:              "5m",
		TotalEndpoints:      2,
		HealthyEndpoints:    1,
		OverallAvailability: 75,
		ActiveAlerts:        1,
		Endpoints: map[string]model.EndpointHealth{
			"users-api": {
				Healthy: true, Status: model.StatusHealthy, LastCheck: &last,
				LastStatusCode: &code, LastLatencyMs: &latency, Availability: 100, TotalChecks: 4,
			},
			"orders": {Status: model.StatusOutage, Availability: 50, TotalChecks: 4},
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	}))
	defer server.Close()

	stdout, _, err := execute(t, "status", "--api", server.URL+"/")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1/2 healthy")
	assert.Contains(t, stdout, "users-api")
	assert.Contains(t, stdout, "42ms")
	assert.Contains(t, stdout, "outage")
	assert.Contains(t, stdout, "50.0%")
	assert.Less(t, bytes.Index([]byte(stdout), []byte("orders")), bytes.Index([]byte(stdout), []byte("users-api")))
}

func TestStatus_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, _, err := execute(t, "status", "--api", server.URL)
	assert.ErrorContains(t, err, "returned 500")
}
