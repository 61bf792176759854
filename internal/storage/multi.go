package storage

import (
	"context"
	"errors"

	"github.com/samijaber1/aegis-watch/internal/model"
)

// Multi fans every record out to all backends and joins their errors
type Multi struct {
	sinks []Sink
}

// NewMulti combines sinks. Nil sinks are skipped.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Sinks returns the combined backends
func (m *Multi) Sinks() []Sink {
	return m.sinks
}

// Querier returns the first backend able to answer result queries
func (m *Multi) Querier() (Querier, bool) {
	for _, s := range m.sinks {
		if q, ok := s.(Querier); ok {
			return q, true
		}
	}
	return nil, false
}

func (m *Multi) each(fn func(Sink) error) error {
	var errs []error
	for _, s := range m.sinks {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) StoreResult(ctx context.Context, r model.ProbeResult) error {
	return m.each(func(s Sink) error { return s.StoreResult(ctx, r) })
}

func (m *Multi) StoreMetrics(ctx context.Context, metrics model.SLAMetrics) error {
	return m.each(func(s Sink) error { return s.StoreMetrics(ctx, metrics) })
}

func (m *Multi) StoreAlert(ctx context.Context, a model.Alert) error {
	return m.each(func(s Sink) error { return s.StoreAlert(ctx, a) })
}

func (m *Multi) StoreOutageState(ctx context.Context, state model.OutageState) error {
	return m.each(func(s Sink) error { return s.StoreOutageState(ctx, state) })
}

func (m *Multi) StoreOutageEvent(ctx context.Context, e model.OutageEvent) error {
	return m.each(func(s Sink) error { return s.StoreOutageEvent(ctx, e) })
}

func (m *Multi) Close() error {
	return m.each(func(s Sink) error { return s.Close() })
}
