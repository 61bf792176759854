package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samijaber1/aegis-watch/internal/config"
)

func TestRunChecks(t *testing.T) {
	body := []byte(`{"status":"ok","version":2,"ready":true,"items":[1,2]}`)

	tests := []struct {
		name  string
		check config.ContentCheck
		resp  response
		key   string
		want  bool
	}{
		{"key exists", config.ContentCheck{Type: config.CheckJSONKeyExists, Key: "status"}, response{Body: body}, "json_key_exists_status", true},
		{"key missing", config.ContentCheck{Type: config.CheckJSONKeyExists, Key: "uptime"}, response{Body: body}, "json_key_exists_uptime", false},
		{"string value", config.ContentCheck{Type: config.CheckJSONKeyValue, Key: "status", Expected: "ok"}, response{Body: body}, "json_key_value_status", true},
		{"int equals float", config.ContentCheck{Type: config.CheckJSONKeyValue, Key: "version", Expected: 2}, response{Body: body}, "json_key_value_version", true},
		{"bool value", config.ContentCheck{Type: config.CheckJSONKeyValue, Key: "ready", Expected: true}, response{Body: body}, "json_key_value_ready", true},
		{"list value", config.ContentCheck{Type: config.CheckJSONKeyValue, Key: "items", Expected: []any{1, 2}}, response{Body: body}, "json_key_value_items", true},
		{"wrong value", config.ContentCheck{Type: config.CheckJSONKeyValue, Key: "version", Expected: 3}, response{Body: body}, "json_key_value_version", false},
		{"status code match", config.ContentCheck{Type: config.CheckStatusCode, Expected: 204}, response{StatusCode: 204}, "status_code_204", true},
		{"status code mismatch", config.ContentCheck{Type: config.CheckStatusCode, Expected: 200}, response{StatusCode: 500}, "status_code_200", false},
		{"fast enough", config.ContentCheck{Type: config.CheckResponseTime, MaxMs: 250}, response{LatencyMs: 120}, "response_time_under_250ms", true},
		{"too slow default", config.ContentCheck{Type: config.CheckResponseTime}, response{LatencyMs: 5001}, "response_time_under_5000ms", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runChecks([]config.ContentCheck{tt.check}, tt.resp)
			assert.Equal(t, map[string]bool{tt.key: tt.want}, got)
		})
	}
}

func TestAllPassed(t *testing.T) {
	assert.True(t, allPassed(nil))
	assert.True(t, allPassed(map[string]bool{"a": true}))
	assert.False(t, allPassed(map[string]bool{"a": true, "b": false}))
}
