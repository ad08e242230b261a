// Package remotesink implements the Remote Log Sink (spec §4.L): batched,
// per-destination HTTP forwarding of log/error entries with retry,
// jittered exponential backoff, and a circuit breaker guarding each
// destination independently.
package remotesink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Entry is one log/error record queued for remote delivery.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Destination describes one remote collector and its delivery policy.
type Destination struct {
	Name          string
	URL           string
	APIKey        string
	Headers       map[string]string
	Method        string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration

	BatchSize     int
	FlushInterval time.Duration

	// CircuitBreakerThreshold is the count of consecutive failures that
	// opens the breaker; CircuitBreakerTimeout is how long it stays open
	// before a single half-open probe is allowed through.
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration

	// Transform, when set, replaces the default {version,timestamp,count,
	// logs} payload shape.
	Transform func(entries []Entry) ([]byte, error)
}

func (d *Destination) applyDefaults() {
	if d.Method == "" {
		d.Method = http.MethodPost
	}
	if d.Timeout <= 0 {
		d.Timeout = 5 * time.Second
	}
	if d.RetryAttempts <= 0 {
		d.RetryAttempts = 3
	}
	if d.RetryDelay <= 0 {
		d.RetryDelay = 500 * time.Millisecond
	}
	if d.BatchSize <= 0 {
		d.BatchSize = 50
	}
	if d.FlushInterval <= 0 {
		d.FlushInterval = 5 * time.Second
	}
	if d.CircuitBreakerThreshold <= 0 {
		d.CircuitBreakerThreshold = 5
	}
	if d.CircuitBreakerTimeout <= 0 {
		d.CircuitBreakerTimeout = 30 * time.Second
	}
}

// Stats reports per-destination health, matching spec §4.L's "totals,
// successes, failures, avgLatency, health flag" requirement.
type Stats struct {
	Total      int64
	Successes  int64
	Failures   int64
	AvgLatency time.Duration
	Healthy    bool
}

// sink is the per-destination worker: buffer, flush timer, breaker, and
// running stats.
type sink struct {
	dest   Destination
	client *http.Client
	cb     *gobreaker.CircuitBreaker

	mu      sync.Mutex
	buf     []Entry
	total   int64
	success int64
	failure int64
	latency time.Duration
}

// Sink fans entries out to one worker per configured Destination and
// exposes per-destination Stats. It is itself a suture.Service: Serve runs
// the flush-interval ticker for every destination until ctx is cancelled.
type Sink struct {
	mu    sync.Mutex
	sinks map[string]*sink
}

// New constructs a Sink for the given destinations (spec §4.L).
func New(destinations ...Destination) *Sink {
	s := &Sink{sinks: make(map[string]*sink, len(destinations))}
	for _, d := range destinations {
		d.applyDefaults()
		s.sinks[d.Name] = &sink{
			dest:   d,
			client: &http.Client{Timeout: d.Timeout},
			cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:        d.Name,
				MaxRequests: 1,
				Interval:    0,
				Timeout:     d.CircuitBreakerTimeout,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= uint32(d.CircuitBreakerThreshold)
				},
			}),
		}
	}
	return s
}

// String satisfies fmt.Stringer so a suture.Supervisor can name this
// service in its logs, per the cartographus wrapper convention.
func (s *Sink) String() string { return "remotesink" }

// Enqueue buffers entry for every configured destination; a destination
// whose buffer reaches its BatchSize flushes immediately rather than
// waiting for the next tick.
func (s *Sink) Enqueue(e Entry) {
	s.mu.Lock()
	sinks := make([]*sink, 0, len(s.sinks))
	for _, sk := range s.sinks {
		sinks = append(sinks, sk)
	}
	s.mu.Unlock()

	for _, sk := range sinks {
		sk.mu.Lock()
		sk.buf = append(sk.buf, e)
		full := len(sk.buf) >= sk.dest.BatchSize
		sk.mu.Unlock()
		if full {
			go sk.flush(context.Background())
		}
	}
}

// Stats returns a snapshot of the named destination's health counters.
func (s *Sink) Stats(name string) (Stats, bool) {
	s.mu.Lock()
	sk, ok := s.sinks[name]
	s.mu.Unlock()
	if !ok {
		return Stats{}, false
	}
	return sk.snapshot(), true
}

// Serve runs each destination's flush-interval ticker until ctx is
// cancelled. Its signature satisfies suture.Service, but the only caller,
// cmd/httpserverd, runs it in a plain goroutine inside the HTTP server
// process; it is not part of the Kernel's supervision tree.
func (s *Sink) Serve(ctx context.Context) error {
	s.mu.Lock()
	sinks := make([]*sink, 0, len(s.sinks))
	for _, sk := range s.sinks {
		sinks = append(sinks, sk)
	}
	s.mu.Unlock()

	if len(sinks) == 0 {
		<-ctx.Done()
		return nil
	}

	var wg sync.WaitGroup
	for _, sk := range sinks {
		wg.Add(1)
		go func(sk *sink) {
			defer wg.Done()
			sk.tick(ctx)
		}(sk)
	}
	wg.Wait()
	return nil
}

func (sk *sink) tick(ctx context.Context) {
	ticker := time.NewTicker(sk.dest.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			sk.flush(context.Background())
			return
		case <-ticker.C:
			sk.flush(ctx)
		}
	}
}

func (sk *sink) drain() []Entry {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	if len(sk.buf) == 0 {
		return nil
	}
	out := sk.buf
	sk.buf = nil
	return out
}

// flush sends whatever is currently buffered, retrying with jittered
// exponential backoff, through the destination's circuit breaker.
func (sk *sink) flush(ctx context.Context) {
	entries := sk.drain()
	if len(entries) == 0 {
		return
	}

	payload, err := sk.payload(entries)
	if err != nil {
		return
	}

	_, _ = sk.cb.Execute(func() (any, error) {
		return nil, sk.sendWithRetry(ctx, payload)
	})
}

func (sk *sink) payload(entries []Entry) ([]byte, error) {
	if sk.dest.Transform != nil {
		return sk.dest.Transform(entries)
	}
	return json.Marshal(map[string]any{
		"version":   1,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"count":     len(entries),
		"logs":      entries,
	})
}

func (sk *sink) sendWithRetry(ctx context.Context, payload []byte) error {
	var lastErr error
	for attempt := 1; attempt <= sk.dest.RetryAttempts; attempt++ {
		start := time.Now()
		err := sk.send(ctx, payload)
		sk.record(err == nil, time.Since(start))
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == sk.dest.RetryAttempts {
			break
		}
		delay := backoff(sk.dest.RetryDelay, attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// backoff computes baseDelay*2^(attempt-1) plus jitter, capped at 30s, per
// spec §4.L.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base * time.Duration(1<<uint(attempt-1))
	const maxDelay = 30 * time.Second
	if d > maxDelay {
		d = maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(base) + 1))
	d += jitter
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

func (sk *sink) send(ctx context.Context, payload []byte) error {
	reqCtx, cancel := context.WithTimeout(ctx, sk.dest.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, sk.dest.Method, sk.dest.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if sk.dest.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+sk.dest.APIKey)
	}
	for k, v := range sk.dest.Headers {
		req.Header.Set(k, v)
	}

	resp, err := sk.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("remotesink: destination %q returned status %d", sk.dest.Name, resp.StatusCode)
	}
	return nil
}

func (sk *sink) record(success bool, latency time.Duration) {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	sk.total++
	if success {
		sk.success++
	} else {
		sk.failure++
	}
	if sk.total == 1 {
		sk.latency = latency
	} else {
		sk.latency = (sk.latency*time.Duration(sk.total-1) + latency) / time.Duration(sk.total)
	}
}

func (sk *sink) snapshot() Stats {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	healthy := true
	if sk.total > 0 && float64(sk.failure)/float64(sk.total) >= 0.5 {
		healthy = false
	}
	return Stats{
		Total:      sk.total,
		Successes:  sk.success,
		Failures:   sk.failure,
		AvgLatency: sk.latency,
		Healthy:    healthy,
	}
}
