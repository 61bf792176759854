package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseDuration_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"250ms", 250 * time.Millisecond},
		{"1s", 1 * time.Second},
		{"30s", 30 * time.Second},
		{"5m", 5 * time.Minute},
		{"1h", 1 * time.Hour},
		{"24h", 24 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDuration_Invalid(t *testing.T) {
	for _, input := range []string{"", "invalid", "30", "30x", "30 s", "s30", "-5m", "1.5h"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseDuration(input)
			assert.Error(t, err)
		})
	}
}

func TestFormatDuration_RoundTrip(t *testing.T) {
	for _, s := range []string{"500ms", "45s", "15m", "6h", "2d"} {
		d, err := ParseDuration(s)
		require.NoError(t, err)
		assert.Equal(t, s, FormatDuration(d))
	}
	assert.Equal(t, "90m", FormatDuration(90*time.Minute))
}

func TestDuration_YAMLAndJSON(t *testing.T) {
	var holder struct {
		Every Duration `yaml:"every"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("every: 15m\n"), &holder))
	assert.Equal(t, 15*time.Minute, holder.Every.Std())

	err := yaml.Unmarshal([]byte("every: [1, 2]\n"), &holder)
	assert.Error(t, err)

	data, err := json.Marshal(holder.Every)
	require.NoError(t, err)
	assert.JSONEq(t, `"15m"`, string(data))

	var back Duration
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, holder.Every, back)
}
