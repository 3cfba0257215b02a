package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	intentCount  map[string]int64
	errorCount   map[string]int64
	requestCount map[string]int64
	deliveries   map[string]int64
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Intents    map[string]int64 `json:"intents"`
	Errors     map[string]int64 `json:"errors"`
	Requests   map[string]int64 `json:"requests"`
	Deliveries map[string]int64 `json:"deliveries"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		intentCount:  make(map[string]int64),
		errorCount:   make(map[string]int64),
		requestCount: make(map[string]int64),
		deliveries:   make(map[string]int64),
	}
}

// RecordIntent counts one handled intent of the given kind.
func (m *Metrics) RecordIntent(kind string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intentCount[kind]++
}

// RecordError increments error counters keyed by intent kind and error code.
func (m *Metrics) RecordError(kind, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[kind+"|"+code]++
}

// RecordRequest increments counters for HTTP requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordDelivery adds fan-out results to the delivered/failed counters.
func (m *Metrics) RecordDelivery(delivered, failed int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries["delivered"] += int64(delivered)
	m.deliveries["failed"] += int64(failed)
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Intents:    copyCounts(m.intentCount),
		Errors:     copyCounts(m.errorCount),
		Requests:   copyCounts(m.requestCount),
		Deliveries: copyCounts(m.deliveries),
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
