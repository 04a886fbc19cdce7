package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics
// so components can be tested without the global Prometheus registry.
type MetricsRegistry interface {
	// HTTP Request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Response cache metrics
	IncrementCacheLookup(tier, result string)
	IncrementCachePersistErrors()

	// Graph API metrics
	IncrementGraphRequests(call, outcome string)
	RecordGraphLatency(call string, duration time.Duration)
	IncrementGraphPacingWaits(call string)

	// Creative pipeline metrics
	IncrementVideoResolutions(outcome string)
	IncrementMockResponses(reason string)
	RecordCreativesPerResponse(n int)
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementCacheLookup(tier, result string) {
	CacheLookups.WithLabelValues(tier, result).Inc()
}

func (r *PrometheusRegistry) IncrementCachePersistErrors() {
	CachePersistErrors.Inc()
}

func (r *PrometheusRegistry) IncrementGraphRequests(call, outcome string) {
	GraphRequests.WithLabelValues(call, outcome).Inc()
}

func (r *PrometheusRegistry) RecordGraphLatency(call string, duration time.Duration) {
	GraphLatency.WithLabelValues(call).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementGraphPacingWaits(call string) {
	GraphPacingWaits.WithLabelValues(call).Inc()
}

func (r *PrometheusRegistry) IncrementVideoResolutions(outcome string) {
	VideoResolutions.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRegistry) IncrementMockResponses(reason string) {
	MockResponses.WithLabelValues(reason).Inc()
}

func (r *PrometheusRegistry) RecordCreativesPerResponse(n int) {
	CreativesPerResponse.Observe(float64(n))
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementCacheLookup(tier, result string)                             {}
func (r *NoOpRegistry) IncrementCachePersistErrors()                                         {}
func (r *NoOpRegistry) IncrementGraphRequests(call, outcome string)                          {}
func (r *NoOpRegistry) RecordGraphLatency(call string, duration time.Duration)               {}
func (r *NoOpRegistry) IncrementGraphPacingWaits(call string)                                {}
func (r *NoOpRegistry) IncrementVideoResolutions(outcome string)                             {}
func (r *NoOpRegistry) IncrementMockResponses(reason string)                                 {}
func (r *NoOpRegistry) RecordCreativesPerResponse(n int)                                     {}
