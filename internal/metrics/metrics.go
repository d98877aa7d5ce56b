// Package metrics collects in-process request counters for the operator
// dashboard. It is not an external metrics pipeline; snapshots are consumed
// by the dashboard broadcaster and the admin API.
package metrics

import (
	"sync"
	"time"
)

// Collector accumulates request counts and latencies since process start.
type Collector struct {
	mu          sync.RWMutex
	started     time.Time
	total       int64
	errors      int64
	rateLimited int64
	byEndpoint  map[string]int64
	byStatus    map[int]int64
	latencySum  time.Duration
	latencyMax  time.Duration
}

// NewCollector creates a Collector with the start time set to now.
func NewCollector() *Collector {
	return &Collector{
		started:    time.Now().UTC(),
		byEndpoint: make(map[string]int64),
		byStatus:   make(map[int]int64),
	}
}

// ObserveRequest records one completed HTTP request.
func (c *Collector) ObserveRequest(endpoint string, status int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	c.byEndpoint[endpoint]++
	c.byStatus[status]++
	if status >= 500 {
		c.errors++
	}
	if status == 429 {
		c.rateLimited++
	}
	c.latencySum += duration
	if duration > c.latencyMax {
		c.latencyMax = duration
	}
}

// Snapshot is a point-in-time copy of the collector state.
type Snapshot struct {
	UptimeSeconds    float64          `json:"uptime_seconds"`
	TotalRequests    int64            `json:"total_requests"`
	ErrorCount       int64            `json:"error_count"`
	RateLimitedCount int64            `json:"rate_limited_count"`
	ByEndpoint       map[string]int64 `json:"by_endpoint"`
	ByStatus         map[int]int64    `json:"by_status"`
	AvgLatencyMillis float64          `json:"avg_latency_ms"`
	MaxLatencyMillis float64          `json:"max_latency_ms"`
}

// Snapshot returns a copy of the current counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds:    time.Since(c.started).Seconds(),
		TotalRequests:    c.total,
		ErrorCount:       c.errors,
		RateLimitedCount: c.rateLimited,
		ByEndpoint:       make(map[string]int64, len(c.byEndpoint)),
		ByStatus:         make(map[int]int64, len(c.byStatus)),
		MaxLatencyMillis: float64(c.latencyMax) / float64(time.Millisecond),
	}
	for k, v := range c.byEndpoint {
		snap.ByEndpoint[k] = v
	}
	for k, v := range c.byStatus {
		snap.ByStatus[k] = v
	}
	if c.total > 0 {
		snap.AvgLatencyMillis = float64(c.latencySum) / float64(c.total) / float64(time.Millisecond)
	}
	return snap
}
