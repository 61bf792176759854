package probe

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/samijaber1/aegis-watch/internal/config"
)

const defaultMaxResponseMs = 5000

// response is what content checks see of an HTTP exchange
type response struct {
	StatusCode int
	Body       []byte
	LatencyMs  float64
}

// runChecks evaluates every content check and returns name -> passed
func runChecks(checks []config.ContentCheck, resp response) map[string]bool {
	if len(checks) == 0 {
		return nil
	}

	var (
		parsed    map[string]any
		parseDone bool
	)
	jsonBody := func() map[string]any {
		if !parseDone {
			parseDone = true
			if err := json.Unmarshal(resp.Body, &parsed); err != nil {
				parsed = nil
			}
		}
		return parsed
	}

	results := make(map[string]bool, len(checks))
	for _, check := range checks {
		switch check.Type {
		case config.CheckJSONKeyExists:
			body := jsonBody()
			_, ok := body[check.Key]
			results["json_key_exists_"+check.Key] = body != nil && ok

		case config.CheckJSONKeyValue:
			body := jsonBody()
			actual, ok := body[check.Key]
			results["json_key_value_"+check.Key] = body != nil && ok && jsonEqual(actual, check.Expected)

		case config.CheckStatusCode:
			expected, ok := toInt(check.Expected)
			name := fmt.Sprintf("status_code_%v", check.Expected)
			results[name] = ok && resp.StatusCode == expected

		case config.CheckResponseTime:
			maxMs := check.MaxMs
			if maxMs <= 0 {
				maxMs = defaultMaxResponseMs
			}
			name := "response_time_under_" + strconv.FormatFloat(maxMs, 'f', -1, 64) + "ms"
			results[name] = resp.LatencyMs <= maxMs
		}
	}

	return results
}

// allPassed reports whether every check passed; no checks means true
func allPassed(checks map[string]bool) bool {
	for _, ok := range checks {
		if !ok {
			return false
		}
	}
	return true
}

// jsonEqual compares a decoded JSON value with a YAML-configured value by
// normalizing the latter through JSON, so 1 (int) equals 1 (float64)
func jsonEqual(actual, expected any) bool {
	data, err := json.Marshal(expected)
	if err != nil {
		return false
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return false
	}
	return reflect.DeepEqual(actual, normalized)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), n == float64(int(n))
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}
