package file

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samijaber1/aegis-watch/internal/model"
	"github.com/samijaber1/aegis-watch/internal/storage"
)

var base = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestStore_WritesEveryRecordKind(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "data"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.StoreResult(ctx, model.ProbeResult{Endpoint: "api", Timestamp: base, Outcome: model.OutcomeSuccess}))
	require.NoError(t, store.StoreMetrics(ctx, model.SLAMetrics{Endpoint: "api", Total: 1, Success: 1, Availability: 100}))
	require.NoError(t, store.StoreAlert(ctx, model.Alert{ID: "a-1", Endpoint: "api"}))
	require.NoError(t, store.StoreAlert(ctx, model.Alert{ID: "a-1", Endpoint: "api", Resolved: true}))
	require.NoError(t, store.StoreOutageState(ctx, model.OutageState{Endpoint: "api", Status: model.StatusHealthy}))
	require.NoError(t, store.StoreOutageEvent(ctx, model.OutageEvent{Endpoint: "api", Kind: model.EventOutageStart}))
	require.NoError(t, store.Close())

	tests := []struct {
		file  string
		lines int
	}{
		{ResultsFile, 1},
		{MetricsFile, 1},
		{AlertsFile, 2},
		{OutageStatesFile, 1},
		{OutageEventsFile, 1},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			lines := readLines(t, filepath.Join(dir, "data", tt.file))
			require.Len(t, lines, tt.lines)
			assert.Equal(t, "api", lines[0]["endpoint"])
		})
	}
}

func TestStore_QueryResults(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	empty, err := store.QueryResults(ctx, storage.ResultFilter{})
	require.NoError(t, err)
	assert.Empty(t, empty)

	for i := 0; i < 6; i++ {
		outcome := model.OutcomeSuccess
		if i%2 == 1 {
			outcome = model.OutcomeFailure
		}
		require.NoError(t, store.StoreResult(ctx, model.ProbeResult{
			Endpoint:  "api",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Outcome:   outcome,
		}))
	}
	require.NoError(t, store.StoreResult(ctx, model.ProbeResult{Endpoint: "web", Timestamp: base, Outcome: model.OutcomeSuccess}))

	all, err := store.QueryResults(ctx, storage.ResultFilter{Endpoint: "api"})
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.True(t, all[0].Timestamp.Equal(base.Add(5*time.Minute)))

	failures, err := store.QueryResults(ctx, storage.ResultFilter{Endpoint: "api", Outcome: model.OutcomeFailure})
	require.NoError(t, err)
	assert.Len(t, failures, 3)

	start := base.Add(time.Minute)
	end := base.Add(3 * time.Minute)
	window, err := store.QueryResults(ctx, storage.ResultFilter{Endpoint: "api", StartTime: &start, EndTime: &end})
	require.NoError(t, err)
	assert.Len(t, window, 3)

	page, err := store.QueryResults(ctx, storage.ResultFilter{Endpoint: "api", Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, page[0].Timestamp.Equal(base.Add(4*time.Minute)))

	beyond, err := store.QueryResults(ctx, storage.ResultFilter{Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}
