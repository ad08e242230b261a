// Package perfmon implements the Performance Monitor (spec §4.H): a
// per-endpoint ring of recent request samples plus count/min/max/avg/p95
// aggregation, exposed through a /metrics route.
package perfmon

import (
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const ringSize = 200

// Sample is one recorded request outcome.
type Sample struct {
	Endpoint   string
	Method     string
	DurationMs int64
	Status     int
	Timestamp  time.Time
	TraceID    string
}

type endpointRing struct {
	mu     sync.Mutex
	data   []Sample
	head   int
	filled bool
	count  int64
}

func newEndpointRing() *endpointRing {
	return &endpointRing{data: make([]Sample, ringSize)}
}

func (r *endpointRing) add(s Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[r.head] = s
	r.head = (r.head + 1) % ringSize
	if r.head == 0 {
		r.filled = true
	}
	r.count++
}

func (r *endpointRing) snapshot() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.filled {
		out := make([]Sample, r.head)
		copy(out, r.data[:r.head])
		return out
	}
	out := make([]Sample, ringSize)
	copy(out, r.data[r.head:])
	copy(out[ringSize-r.head:], r.data[:r.head])
	return out
}

// Metrics is the aggregate reported per endpoint.
type Metrics struct {
	Count  int64 `json:"count"`
	MinMs  int64 `json:"min"`
	MaxMs  int64 `json:"max"`
	AvgMs  int64 `json:"avg"`
	P95Ms  int64 `json:"p95"`
}

// Monitor is the process-wide performance-sample collector.
type Monitor struct {
	mu        sync.Mutex
	endpoints map[string]*endpointRing
}

// New constructs an empty Monitor.
func New() *Monitor {
	return &Monitor{endpoints: make(map[string]*endpointRing)}
}

func (m *Monitor) ringFor(endpoint string) *endpointRing {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.endpoints[endpoint]
	if !ok {
		r = newEndpointRing()
		m.endpoints[endpoint] = r
	}
	return r
}

// Record appends one sample for endpoint ("METHOD path") with no trace ID;
// use RecordSpan to attach the active span's trace ID.
func (m *Monitor) Record(endpoint, method string, durationMs int64, status int) {
	m.recordWithTrace(endpoint, method, durationMs, status, "")
}

func (m *Monitor) recordWithTrace(endpoint, method string, durationMs int64, status int, traceID string) {
	m.ringFor(endpoint).add(Sample{
		Endpoint:   endpoint,
		Method:     method,
		DurationMs: durationMs,
		Status:     status,
		Timestamp:  time.Now(),
		TraceID:    traceID,
	})
}

// RecordSpan attaches the trace ID from span (if valid) to the sample.
func (m *Monitor) RecordSpan(endpoint, method string, durationMs int64, status int, span trace.Span) {
	traceID := ""
	if span != nil && span.SpanContext().HasTraceID() {
		traceID = span.SpanContext().TraceID().String()
	}
	m.recordWithTrace(endpoint, method, durationMs, status, traceID)
}

// GetMetrics returns the count/min/max/avg/p95 aggregate for every endpoint
// that has at least one recorded sample.
func (m *Monitor) GetMetrics() map[string]Metrics {
	m.mu.Lock()
	endpoints := make(map[string]*endpointRing, len(m.endpoints))
	for k, v := range m.endpoints {
		endpoints[k] = v
	}
	m.mu.Unlock()

	out := make(map[string]Metrics, len(endpoints))
	for endpoint, r := range endpoints {
		samples := r.snapshot()
		if len(samples) == 0 {
			continue
		}
		out[endpoint] = aggregate(samples)
	}
	return out
}

func aggregate(samples []Sample) Metrics {
	durations := make([]int64, len(samples))
	var sum int64
	min := samples[0].DurationMs
	max := samples[0].DurationMs
	for i, s := range samples {
		durations[i] = s.DurationMs
		sum += s.DurationMs
		if s.DurationMs < min {
			min = s.DurationMs
		}
		if s.DurationMs > max {
			max = s.DurationMs
		}
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	idx := int(float64(len(durations))*0.95) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(durations) {
		idx = len(durations) - 1
	}
	return Metrics{
		Count: int64(len(samples)),
		MinMs: min,
		MaxMs: max,
		AvgMs: sum / int64(len(samples)),
		P95Ms: durations[idx],
	}
}
