package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRegistryCounters(t *testing.T) {
	CacheLookups.Reset()
	GraphRequests.Reset()

	r := NewPrometheusRegistry()
	r.IncrementCacheLookup("memory", "hit")
	r.IncrementCacheLookup("memory", "hit")
	r.IncrementCacheLookup("persistent", "miss")
	r.IncrementGraphRequests("video", "error")
	r.RecordGraphLatency("video", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(CacheLookups.WithLabelValues("memory", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(CacheLookups.WithLabelValues("persistent", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(GraphRequests.WithLabelValues("video", "error")))
}

func TestMockMetricsRegistry(t *testing.T) {
	m := NewMockMetricsRegistry()
	m.IncrementCacheLookup("memory", "expired")
	m.IncrementVideoResolutions("cached")
	m.IncrementVideoResolutions("cached")
	m.IncrementMockResponses("empty")

	assert.Equal(t, 1, m.Count("cache:memory:expired"))
	assert.Equal(t, 2, m.Count("video:cached"))
	assert.Equal(t, 1, m.Count("mock:empty"))
	assert.Equal(t, 0, m.Count("graph:ads:ok"))
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, "debug", getLogLevel().String())

	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, "warn", getLogLevel().String())

	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, "info", getLogLevel().String())
}
