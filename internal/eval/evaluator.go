package eval

import (
	"time"

	"github.com/samijaber1/aegis-watch/internal/model"
)

// Evaluator computes SLA metrics over a History
type Evaluator struct {
	history *History
}

// NewEvaluator creates a new evaluator over the given history
func NewEvaluator(history *History) *Evaluator {
	return &Evaluator{history: history}
}

// Evaluate computes metrics for one endpoint over [start, end)
func (e *Evaluator) Evaluate(endpoint string, start, end time.Time) model.SLAMetrics {
	return ComputeMetrics(endpoint, e.history.Window(endpoint, start, end), start, end)
}

// EvaluateAll computes metrics for every named endpoint over the trailing
// window ending at now
func (e *Evaluator) EvaluateAll(endpoints []string, window time.Duration, now time.Time) map[string]model.SLAMetrics {
	start := now.Add(-window)
	// Results stamped exactly at now still belong to the window
	end := now.Add(time.Nanosecond)

	results := e.history.Window("", start, end)
	out := make(map[string]model.SLAMetrics, len(endpoints))
	for _, name := range endpoints {
		m := ComputeMetrics(name, results, start, end)
		m.WindowEnd = now
		out[name] = m
	}
	return out
}
