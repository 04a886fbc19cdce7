package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/patrickwarner/adcreatives/internal/analytics"
	"github.com/patrickwarner/adcreatives/internal/api"
	"github.com/patrickwarner/adcreatives/internal/cache"
	"github.com/patrickwarner/adcreatives/internal/config"
	"github.com/patrickwarner/adcreatives/internal/creatives"
	"github.com/patrickwarner/adcreatives/internal/db"
	"github.com/patrickwarner/adcreatives/internal/graph"
	"github.com/patrickwarner/adcreatives/internal/middleware"
	"github.com/patrickwarner/adcreatives/internal/observability"
	"github.com/patrickwarner/adcreatives/internal/ratelimit"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// purgeInterval is how often stale persistent cache rows are removed.
const purgeInterval = time.Hour

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdownTracing, err := observability.InitTracing(ctx, logger, observability.TracingOptions{
			ServiceName:    cfg.ServiceName,
			ServiceVersion: version,
			Environment:    cfg.Environment,
			Endpoint:       cfg.TracingEndpoint,
			SampleRate:     cfg.TracingSampleRate,
		})
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				logger.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	store, err := db.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open persistent cache: %w", err)
	}
	var persistent creatives.PersistentStore
	if store != nil {
		defer store.Close()
		persistent = store
	}

	metricsRegistry := observability.NewPrometheusRegistry()

	var recorder creatives.Recorder
	var analyticsSvc *analytics.Analytics
	if cfg.AnalyticsEnabled {
		analyticsSvc, err = analytics.InitClickHouse(cfg.ClickHouseDSN)
		if err != nil {
			return fmt.Errorf("failed to connect clickhouse: %w", err)
		}
		defer analyticsSvc.Close()
		recorder = analyticsSvc
	}

	limiter := ratelimit.NewKeyedLimiter(ratelimit.Config{
		Capacity:   cfg.GraphRateLimitBurst,
		RefillRate: cfg.GraphRateLimitRefill,
		Enabled:    cfg.GraphRateLimitEnabled,
	})
	graphClient := graph.NewClient(cfg.GraphBaseURL, cfg.GraphTimeout, cfg.GraphMaxPages, limiter, logger, metricsRegistry)

	videoCache := cache.NewMemoryVideoCache(cache.VideoCacheConfig{
		MaxEntries:  cfg.VideoCacheSize,
		TTL:         cfg.VideoCacheTTL,
		NegativeTTL: cfg.VideoNegativeTTL,
	})
	videos := creatives.NewVideoResolver(graphClient, videoCache, creatives.VideoResolverConfig{
		BatchSize:   cfg.VideoBatchSize,
		BatchDelay:  cfg.VideoBatchDelay,
		PacingDelay: cfg.VideoPacingDelay,
	}, logger, metricsRegistry)

	svc := creatives.NewService(graphClient, videos, cache.NewMemoryResponseCache(cfg.ResponseCacheSize), persistent, recorder, creatives.Config{
		DefaultTTLHours: cfg.DefaultCacheTTLHrs,
		PersistTimeout:  cfg.PersistTimeout,
		MemoryCacheSize: cfg.ResponseCacheSize,
	}, logger, metricsRegistry)

	var clickhouseDB *sql.DB
	if analyticsSvc != nil {
		clickhouseDB = analyticsSvc.DB
	}
	srvDeps := api.NewServer(logger, svc, clickhouseDB, metricsRegistry, cfg)

	r := mux.NewRouter()
	srvDeps.Routes(r)
	// metrics endpoint (includes Graph API and cache metrics)
	r.Handle("/metrics", promhttp.Handler())

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.WithRequestID)
	r.Use(middleware.WithTraceLogger(logger))

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(r, "adcreatives"),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Creatives service running", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	if purger, ok := store.(*db.Postgres); ok && cfg.CacheRetention > 0 {
		ticker := time.NewTicker(purgeInterval)
		go func() {
			for {
				select {
				case <-ticker.C:
					n, err := purger.Purge(ctx, cfg.CacheRetention)
					if err != nil {
						logger.Error("purge persistent cache", zap.Error(err))
						continue
					}
					if n > 0 {
						logger.Info("purged persistent cache", zap.Int64("rows", n))
					}
				case <-ctx.Done():
					ticker.Stop()
					return
				}
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	// let in-flight cache writes and snapshots land before closing stores
	svc.Wait()

	return nil
}
