package scheduler

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/samijaber1/aegis-watch/internal/model"
)

func TestStateCache_Basics(t *testing.T) {
	cache := NewStateCache()

	if cache.Size() != 0 {
		t.Errorf("expected empty cache, got size %d", cache.Size())
	}

	state := &MetricsState{
		Metrics:   model.SLAMetrics{Endpoint: "api", Total: 4, Success: 4, Availability: 100},
		UpdatedAt: time.Now(),
		TTL:       30 * time.Second,
	}
	cache.Set("api", state)

	if cache.Size() != 1 {
		t.Errorf("expected size 1, got %d", cache.Size())
	}

	retrieved, ok := cache.Get("api")
	if !ok {
		t.Fatal("expected to retrieve state")
	}
	if retrieved.Metrics.Endpoint != "api" {
		t.Errorf("expected endpoint=api, got %s", retrieved.Metrics.Endpoint)
	}

	if _, ok := cache.Get("missing"); ok {
		t.Error("expected no state for unknown endpoint")
	}
}

func TestStateCache_GetAll(t *testing.T) {
	cache := NewStateCache()

	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("ep-%d", i)
		cache.Set(name, &MetricsState{Metrics: model.SLAMetrics{Endpoint: name}})
	}

	all := cache.GetAll()
	if len(all) != 3 {
		t.Errorf("expected 3 states, got %d", len(all))
	}

	delete(all, "ep-0")
	if cache.Size() != 3 {
		t.Errorf("snapshot mutation leaked into cache, size %d", cache.Size())
	}
}

func TestStateCache_IsStale(t *testing.T) {
	now := time.Now()
	state := &MetricsState{
		UpdatedAt: now.Add(-1 * time.Minute),
		TTL:       30 * time.Second,
	}

	if !state.IsStale(now) {
		t.Error("expected state to be stale")
	}

	state.UpdatedAt = now.Add(-10 * time.Second)
	if state.IsStale(now) {
		t.Error("expected state to not be stale")
	}
}

func TestStateCache_Concurrency(t *testing.T) {
	cache := NewStateCache()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			cache.Set(string(rune('a'+id%26)), &MetricsState{})
		}(i)
	}

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			cache.Get(string(rune('a' + id%26)))
		}(i)
	}

	wg.Wait()

	if cache.Size() != 26 {
		t.Errorf("expected 26 entries after concurrent writes, got %d", cache.Size())
	}
}
