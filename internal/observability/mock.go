package observability

import (
	"sync"
	"time"
)

// MockMetricsRegistry records counter increments in memory so tests can
// assert on them. Latency observations are ignored.
type MockMetricsRegistry struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMockMetricsRegistry returns an empty MockMetricsRegistry.
func NewMockMetricsRegistry() *MockMetricsRegistry {
	return &MockMetricsRegistry{counts: make(map[string]int)}
}

func (m *MockMetricsRegistry) inc(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[key]++
}

// Count returns how many times the counter identified by key was incremented.
// Keys are the metric name followed by its labels joined with ":", for
// example "cache:memory:hit" or "graph:video:error".
func (m *MockMetricsRegistry) Count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string) {
	m.inc("requests:" + endpoint + ":" + method + ":" + status)
}
func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (m *MockMetricsRegistry) IncrementCacheLookup(tier, result string) {
	m.inc("cache:" + tier + ":" + result)
}
func (m *MockMetricsRegistry) IncrementCachePersistErrors() { m.inc("cache_persist_errors") }
func (m *MockMetricsRegistry) IncrementGraphRequests(call, outcome string) {
	m.inc("graph:" + call + ":" + outcome)
}
func (m *MockMetricsRegistry) RecordGraphLatency(call string, duration time.Duration) {}
func (m *MockMetricsRegistry) IncrementGraphPacingWaits(call string)                  { m.inc("pacing:" + call) }
func (m *MockMetricsRegistry) IncrementVideoResolutions(outcome string) {
	m.inc("video:" + outcome)
}
func (m *MockMetricsRegistry) IncrementMockResponses(reason string) { m.inc("mock:" + reason) }
func (m *MockMetricsRegistry) RecordCreativesPerResponse(n int)     {}
