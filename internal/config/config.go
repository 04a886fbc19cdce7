package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ServiceName  string
	// Comma separated list of dashboard origins allowed by CORS.
	AllowedOrigins []string

	// Graph API client configuration
	GraphBaseURL          string
	GraphTimeout          time.Duration
	GraphMaxPages         int
	GraphRateLimitEnabled bool
	GraphRateLimitBurst   int
	GraphRateLimitRefill  int

	// Video source resolution
	VideoBatchSize     int
	VideoBatchDelay    time.Duration
	VideoPacingDelay   time.Duration
	VideoCacheSize     int
	VideoCacheTTL      time.Duration
	VideoNegativeTTL   time.Duration
	ResponseCacheSize  int
	DefaultCacheTTLHrs float64
	PersistTimeout     time.Duration
	// CacheRetention is how long the persistent tier keeps an entry. It caps
	// the effective cacheTtlHours for persistent hits.
	CacheRetention     time.Duration

	// Persistent response cache: "postgres", "redis" or "none"
	PersistentCache string
	RedisAddr       string
	PostgresDSN     string
	// Database connection pooling configuration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	// Creative snapshot analytics
	AnalyticsEnabled bool
	ClickHouseDSN    string

	// Tracing configuration
	TracingEnabled    bool
	TracingEndpoint   string // OTLP gRPC collector
	TracingSampleRate float64
	Environment       string
}

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent. When CONFIG_FILE points at a YAML
// document its values are applied first and environment variables still win.
func Load() Config {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "config file %s ignored: %v\n", path, err)
		}
	}

	cfg := Config{}

	cfg.Port = getenv("PORT", "8787")
	cfg.ReadTimeout = envDuration("READ_TIMEOUT", 10*time.Second)
	// creatives requests fan out to many Graph calls, keep the write window wide
	cfg.WriteTimeout = envDuration("WRITE_TIMEOUT", 120*time.Second)
	cfg.ServiceName = getenv("SERVICE_NAME", "adcreatives")
	cfg.AllowedOrigins = envList("ALLOWED_ORIGINS", []string{"http://localhost:3000"})

	cfg.GraphBaseURL = strings.TrimRight(getenv("GRAPH_BASE_URL", "https://graph.facebook.com/v19.0"), "/")
	cfg.GraphTimeout = envDuration("GRAPH_TIMEOUT", 30*time.Second)
	cfg.GraphMaxPages = envInt("GRAPH_MAX_PAGES", 10)
	cfg.GraphRateLimitEnabled = envBool("GRAPH_RATE_LIMIT_ENABLED", false)
	cfg.GraphRateLimitBurst = envInt("GRAPH_RATE_LIMIT_BURST", 50)
	cfg.GraphRateLimitRefill = envInt("GRAPH_RATE_LIMIT_REFILL", 20)

	cfg.VideoBatchSize = envInt("VIDEO_BATCH_SIZE", 5)
	cfg.VideoBatchDelay = envDuration("VIDEO_BATCH_DELAY", 200*time.Millisecond)
	cfg.VideoPacingDelay = envDuration("VIDEO_PACING_DELAY", 100*time.Millisecond)
	cfg.VideoCacheSize = envInt("VIDEO_CACHE_SIZE", 10000)
	cfg.VideoCacheTTL = envDuration("VIDEO_CACHE_TTL", 6*time.Hour)
	// negative TTL < 0 keeps failed lookups for the process lifetime
	cfg.VideoNegativeTTL = envDuration("VIDEO_NEGATIVE_TTL", 10*time.Minute)
	cfg.ResponseCacheSize = envInt("RESPONSE_CACHE_SIZE", 500)
	cfg.DefaultCacheTTLHrs = envFloat("CACHE_TTL_HOURS", 1)
	cfg.PersistTimeout = envDuration("PERSIST_TIMEOUT", 5*time.Second)
	cfg.CacheRetention = envDuration("CACHE_RETENTION", 7*24*time.Hour)

	cfg.PersistentCache = strings.ToLower(getenv("PERSISTENT_CACHE", "postgres"))
	cfg.RedisAddr = getenv("REDIS_ADDR", "localhost:6379")
	cfg.PostgresDSN = getenv("POSTGRES_DSN", "postgres://postgres@127.0.0.1:5432/postgres?sslmode=disable")

	// Database connection pooling configuration
	cfg.DBMaxOpenConns = envInt("DB_MAX_OPEN_CONNS", 10)
	cfg.DBMaxIdleConns = envInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.DBConnMaxIdleTime = envDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute)

	cfg.AnalyticsEnabled = envBool("ANALYTICS_ENABLED", false)
	cfg.ClickHouseDSN = getenv("CLICKHOUSE_DSN", "clickhouse://default:@localhost:9000/default")

	// Tracing configuration
	cfg.TracingEnabled = envBool("TRACING_ENABLED", false)
	cfg.TracingEndpoint = getenv("OTLP_ENDPOINT", getenv("TEMPO_ENDPOINT", "tempo:4317"))
	cfg.TracingSampleRate = envFloat("TRACING_SAMPLE_RATE", 1.0)
	cfg.Environment = getenv("ENV", "production")

	return cfg
}

// applyFile reads a flat YAML map of ENV_NAME: value pairs and exports each
// pair that is not already present in the environment.
func applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	for k, v := range values {
		key := strings.ToUpper(k)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		var s string
		switch tv := v.(type) {
		case []any:
			parts := make([]string, 0, len(tv))
			for _, p := range tv {
				parts = append(parts, fmt.Sprint(p))
			}
			s = strings.Join(parts, ",")
		default:
			s = fmt.Sprint(tv)
		}
		if err := os.Setenv(key, s); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. Accepted values are those
// supported by strconv.ParseBool. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}

// envList splits a comma separated variable, dropping empty items.
func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
