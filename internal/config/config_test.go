package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("VIDEO_BATCH_SIZE", "")
	t.Setenv("GRAPH_BASE_URL", "")

	cfg := Load()
	assert.Equal(t, "8787", cfg.Port)
	assert.Equal(t, 5, cfg.VideoBatchSize)
	assert.Equal(t, 200*time.Millisecond, cfg.VideoBatchDelay)
	assert.Equal(t, "https://graph.facebook.com/v19.0", cfg.GraphBaseURL)
	assert.Equal(t, 1.0, cfg.DefaultCacheTTLHrs)
	assert.Equal(t, 7*24*time.Hour, cfg.CacheRetention)
}

func TestLoadTracingEndpoint(t *testing.T) {
	t.Setenv("OTLP_ENDPOINT", "")
	t.Setenv("TEMPO_ENDPOINT", "tempo.internal:4317")
	assert.Equal(t, "tempo.internal:4317", Load().TracingEndpoint)

	t.Setenv("OTLP_ENDPOINT", "otel-collector:4317")
	assert.Equal(t, "otel-collector:4317", Load().TracingEndpoint)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("VIDEO_BATCH_DELAY", "2")
	t.Setenv("GRAPH_BASE_URL", "http://localhost:9999/")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("PERSISTENT_CACHE", "Redis")
	t.Setenv("CACHE_RETENTION", "720h")

	cfg := Load()
	assert.Equal(t, 2*time.Second, cfg.VideoBatchDelay)
	assert.Equal(t, "http://localhost:9999", cfg.GraphBaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "redis", cfg.PersistentCache)
	assert.Equal(t, 30*24*time.Hour, cfg.CacheRetention)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adcreatives.yaml")
	doc := "adcreatives_test_only_port: 9191\nadcreatives_test_only_list:\n  - x\n  - y\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	t.Setenv("ADCREATIVES_TEST_ONLY_PORT", "")
	require.NoError(t, os.Unsetenv("ADCREATIVES_TEST_ONLY_PORT"))
	t.Cleanup(func() {
		_ = os.Unsetenv("ADCREATIVES_TEST_ONLY_PORT")
		_ = os.Unsetenv("ADCREATIVES_TEST_ONLY_LIST")
	})

	require.NoError(t, applyFile(path))
	assert.Equal(t, "9191", os.Getenv("ADCREATIVES_TEST_ONLY_PORT"))
	assert.Equal(t, "x,y", os.Getenv("ADCREATIVES_TEST_ONLY_LIST"))
	assert.Equal(t, []string{"x", "y"}, envList("ADCREATIVES_TEST_ONLY_LIST", nil))
}

func TestLoadConfigFileKeepsEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adcreatives.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service_name: from-file\n"), 0o600))
	t.Setenv("SERVICE_NAME", "from-env")

	require.NoError(t, applyFile(path))
	assert.Equal(t, "from-env", os.Getenv("SERVICE_NAME"))
}

func TestApplyFileMissing(t *testing.T) {
	err := applyFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
