package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samijaber1/aegis-watch/internal/model"
)

type countingSink struct {
	err     error
	results int
	metrics int
	alerts  int
	states  int
	events  int
	closed  bool
}

func (s *countingSink) StoreResult(context.Context, model.ProbeResult) error {
	s.results++
	return s.err
}

func (s *countingSink) StoreMetrics(context.Context, model.SLAMetrics) error {
	s.metrics++
	return s.err
}

func (s *countingSink) StoreAlert(context.Context, model.Alert) error {
	s.alerts++
	return s.err
}

func (s *countingSink) StoreOutageState(context.Context, model.OutageState) error {
	s.states++
	return s.err
}

func (s *countingSink) StoreOutageEvent(context.Context, model.OutageEvent) error {
	s.events++
	return s.err
}

func (s *countingSink) Close() error {
	s.closed = true
	return s.err
}

type queryingSink struct {
	countingSink
}

func (s *queryingSink) QueryResults(context.Context, ResultFilter) ([]model.ProbeResult, error) {
	return nil, nil
}

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	errA := errors.New("disk full")
	errB := errors.New("database locked")
	a := &countingSink{err: errA}
	b := &countingSink{err: errB}
	ok := &countingSink{}
	m := NewMulti(a, nil, b, ok)
	ctx := context.Background()

	err := m.StoreResult(ctx, model.ProbeResult{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	assert.Error(t, m.StoreMetrics(ctx, model.SLAMetrics{}))
	assert.Error(t, m.StoreAlert(ctx, model.Alert{}))
	assert.Error(t, m.StoreOutageState(ctx, model.OutageState{}))
	assert.Error(t, m.StoreOutageEvent(ctx, model.OutageEvent{}))
	assert.Error(t, m.Close())

	for _, s := range []*countingSink{a, b, ok} {
		assert.Equal(t, 1, s.results)
		assert.Equal(t, 1, s.metrics)
		assert.Equal(t, 1, s.alerts)
		assert.Equal(t, 1, s.states)
		assert.Equal(t, 1, s.events)
		assert.True(t, s.closed)
	}
	assert.Len(t, m.Sinks(), 3)
}

func TestMulti_NoErrors(t *testing.T) {
	m := NewMulti(&countingSink{})
	assert.NoError(t, m.StoreResult(context.Background(), model.ProbeResult{}))
}

func TestMulti_Querier(t *testing.T) {
	_, ok := NewMulti(&countingSink{}).Querier()
	assert.False(t, ok)

	q := &queryingSink{}
	got, ok := NewMulti(&countingSink{}, q).Querier()
	require.True(t, ok)
	assert.Same(t, q, got)
}

func TestResultFilter_Match(t *testing.T) {
	base := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	start := base.Add(-time.Minute)
	end := base.Add(time.Minute)
	r := model.ProbeResult{Endpoint: "api", Outcome: model.OutcomeSuccess, Timestamp: base}

	tests := []struct {
		name   string
		filter ResultFilter
		want   bool
	}{
		{name: "empty filter", filter: ResultFilter{}, want: true},
		{name: "endpoint match", filter: ResultFilter{Endpoint: "api"}, want: true},
		{name: "endpoint mismatch", filter: ResultFilter{Endpoint: "web"}, want: false},
		{name: "outcome mismatch", filter: ResultFilter{Outcome: model.OutcomeFailure}, want: false},
		{name: "inside range", filter: ResultFilter{StartTime: &start, EndTime: &end}, want: true},
		{name: "before start", filter: ResultFilter{StartTime: &end}, want: false},
		{name: "after end", filter: ResultFilter{EndTime: &start}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(r))
		})
	}

	assert.Equal(t, DefaultQueryLimit, ResultFilter{}.EffectiveLimit())
	assert.Equal(t, 5, ResultFilter{Limit: 5}.EffectiveLimit())
}
