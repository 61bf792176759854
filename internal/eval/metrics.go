package eval

import (
	"sort"
	"time"

	"github.com/samijaber1/aegis-watch/internal/model"
)

// MinPercentileSamples is the smallest latency sample count for which p95
// and p99 are reported
const MinPercentileSamples = 20

// ComputeMetrics aggregates the results of one endpoint that fall inside
// [start, end). results may contain other endpoints; they are ignored.
// Only successful probes with a recorded latency feed latency statistics.
func ComputeMetrics(endpoint string, results []model.ProbeResult, start, end time.Time) model.SLAMetrics {
	metrics := model.SLAMetrics{
		Endpoint:    endpoint,
		WindowStart: start,
		WindowEnd:   end,
	}

	var latencies []float64
	for _, r := range results {
		if r.Endpoint != endpoint || r.Timestamp.Before(start) || !r.Timestamp.Before(end) {
			continue
		}
		metrics.Total++
		if !r.IsSuccess() {
			continue
		}
		metrics.Success++
		if ms, ok := r.Latency(); ok {
			latencies = append(latencies, ms)
		}
	}
	metrics.Failed = metrics.Total - metrics.Success

	metrics.Availability, metrics.ErrorRate = computeRates(metrics.Success, metrics.Total)
	metrics.LatencySamples = len(latencies)

	if len(latencies) == 0 {
		return metrics
	}

	sort.Float64s(latencies)
	var sum float64
	for _, ms := range latencies {
		sum += ms
	}
	metrics.AvgLatencyMs = sum / float64(len(latencies))
	metrics.MinLatencyMs = latencies[0]
	metrics.MaxLatencyMs = latencies[len(latencies)-1]

	if len(latencies) >= MinPercentileSamples {
		metrics.P95LatencyMs = nearestRank(latencies, 0.95)
		metrics.P99LatencyMs = nearestRank(latencies, 0.99)
	}

	return metrics
}

// computeRates returns availability and error rate in percent. Zero traffic
// yields zero for both.
func computeRates(success, total int) (availability, errorRate float64) {
	if total == 0 {
		return 0, 0
	}
	if success > total {
		success = total
	}
	availability = float64(success) / float64(total) * 100
	errorRate = float64(total-success) / float64(total) * 100
	return availability, errorRate
}

// nearestRank indexes sorted at floor(n*q)
func nearestRank(sorted []float64, q float64) float64 {
	idx := int(float64(len(sorted)) * q)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
