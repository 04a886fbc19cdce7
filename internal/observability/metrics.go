package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcreatives_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adcreatives_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"endpoint", "method"},
	)

	// response cache lookups by tier (memory, persistent) and result (hit, miss, expired)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcreatives_cache_lookups_total",
			Help: "Response cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)

	// errors writing to the persistent cache
	CachePersistErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adcreatives_cache_persist_errors_total",
			Help: "Total persistent cache write errors",
		},
	)

	// outbound Graph API calls labelled by call shape and outcome
	GraphRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcreatives_graph_requests_total",
			Help: "Total Graph API calls",
		},
		[]string{"call", "outcome"},
	)

	// latency of Graph API calls
	GraphLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adcreatives_graph_request_duration_seconds",
			Help:    "Duration of Graph API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"call"},
	)

	// Graph API calls that blocked on the per-token rate limiter
	GraphPacingWaits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcreatives_graph_pacing_waits_total",
			Help: "Graph API calls delayed by per-token pacing",
		},
		[]string{"call"},
	)

	// video id resolutions labelled by outcome (resolved, empty, failed, cached)
	VideoResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcreatives_video_resolutions_total",
			Help: "Video source resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// responses served from the illustrative dataset, labelled by reason
	MockResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcreatives_mock_responses_total",
			Help: "Responses served from sample data",
		},
		[]string{"reason"},
	)

	// creatives produced per request
	CreativesPerResponse = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adcreatives_creatives_per_response",
			Help:    "Number of creatives returned per live fetch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		CacheLookups,
		CachePersistErrors,
		GraphRequests,
		GraphLatency,
		GraphPacingWaits,
		VideoResolutions,
		MockResponses,
		CreativesPerResponse,
	)
}
