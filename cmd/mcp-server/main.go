package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/patrickwarner/adcreatives/internal/cache"
	"github.com/patrickwarner/adcreatives/internal/config"
	"github.com/patrickwarner/adcreatives/internal/creatives"
	"github.com/patrickwarner/adcreatives/internal/db"
	"github.com/patrickwarner/adcreatives/internal/graph"
	"github.com/patrickwarner/adcreatives/internal/models"
	"github.com/patrickwarner/adcreatives/internal/observability"
	"github.com/patrickwarner/adcreatives/internal/ratelimit"
)

// toolTimeout bounds one get_creatives call.
const toolTimeout = 2 * time.Minute

// GetCreativesInput mirrors the POST /creatives body.
type GetCreativesInput struct {
	AccessToken   string   `json:"accessToken"`
	AdAccountID   string   `json:"adAccountId"`
	DateRange     string   `json:"dateRange,omitempty"`
	CacheTTLHours *float64 `json:"cacheTtlHours,omitempty"`
	Refresh       bool     `json:"refresh,omitempty"`
}

type GetCreativesOutput struct {
	Success   bool                    `json:"success"`
	Message   string                  `json:"message"`
	Cached    bool                    `json:"cached"`
	Count     int                     `json:"count"`
	Creatives []models.CreativeRecord `json:"creatives"`
}

type fetcher interface {
	Fetch(ctx context.Context, req creatives.Request) (*models.CreativesResponse, error)
}

// CreativesServer holds our dependencies
type CreativesServer struct {
	creatives fetcher
	logger    *zap.Logger
}

// GetCreatives implements the get_creatives tool
func (s *CreativesServer) GetCreatives(ctx context.Context, req *mcp.CallToolRequest, input GetCreativesInput) (*mcp.CallToolResult, GetCreativesOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	resp, err := s.creatives.Fetch(ctx, creatives.Request{
		AccessToken:   input.AccessToken,
		AdAccountID:   input.AdAccountID,
		DateRange:     input.DateRange,
		CacheTTLHours: input.CacheTTLHours,
		Refresh:       input.Refresh,
	})
	if err != nil {
		s.logger.Warn("get_creatives failed", zap.String("ad_account_id", input.AdAccountID), zap.Error(err))
		if apiErr, ok := graph.IsAPIError(err); ok {
			return nil, GetCreativesOutput{}, fmt.Errorf("facebook rejected the ad account: %s", apiErr.Message)
		}
		return nil, GetCreativesOutput{}, fmt.Errorf("failed to fetch creatives: %w", err)
	}

	records := resp.Creatives
	if records == nil {
		records = []models.CreativeRecord{}
	}
	s.logger.Info("get_creatives served",
		zap.String("ad_account_id", input.AdAccountID),
		zap.Int("count", len(records)),
		zap.Bool("cached", resp.Cached))

	return nil, GetCreativesOutput{
		Success:   resp.Success,
		Message:   resp.Message,
		Cached:    resp.Cached,
		Count:     len(records),
		Creatives: records,
	}, nil
}

// newMCPServer registers the creatives tools on a fresh MCP server.
func newMCPServer(cs *CreativesServer) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "adcreatives",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_creatives",
		Description: "List the ad creatives of a Facebook ad account with media URLs and period performance",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"accessToken": map[string]interface{}{
					"type":        "string",
					"description": "Facebook user or system access token (\"mock\" returns sample data)",
				},
				"adAccountId": map[string]interface{}{
					"type":        "string",
					"description": "Ad account id, with or without the act_ prefix",
				},
				"dateRange": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"last_7d", "last_30d", "last_90d", "last_12m"},
					"description": "Insights window (optional, defaults to last_30d)",
				},
				"cacheTtlHours": map[string]interface{}{
					"type":        "number",
					"minimum":     0,
					"description": "Cache lifetime in hours (optional, 0 disables caching)",
				},
				"refresh": map[string]interface{}{
					"type":        "boolean",
					"description": "Skip cached results (optional)",
				},
			},
			"required": []string{"accessToken", "adAccountId"},
		},
	}, cs.GetCreatives)

	return server
}

// newService wires the creatives pipeline the same way the HTTP server does,
// minus snapshot analytics.
func newService(cfg config.Config, logger *zap.Logger) (*creatives.Service, func()) {
	metrics := observability.NewNoOpRegistry()

	cleanup := func() {}
	var persistent creatives.PersistentStore
	store, err := db.Open(cfg)
	if err != nil {
		logger.Warn("Persistent cache unavailable, using memory only", zap.Error(err))
	} else if store != nil {
		persistent = store
		cleanup = store.Close
		logger.Info("Connected to persistent cache", zap.String("backend", cfg.PersistentCache))
	}

	limiter := ratelimit.NewKeyedLimiter(ratelimit.Config{
		Capacity:   cfg.GraphRateLimitBurst,
		RefillRate: cfg.GraphRateLimitRefill,
		Enabled:    cfg.GraphRateLimitEnabled,
	})
	client := graph.NewClient(cfg.GraphBaseURL, cfg.GraphTimeout, cfg.GraphMaxPages, limiter, logger, metrics)
	videos := creatives.NewVideoResolver(client, cache.NewMemoryVideoCache(cache.VideoCacheConfig{
		MaxEntries:  cfg.VideoCacheSize,
		TTL:         cfg.VideoCacheTTL,
		NegativeTTL: cfg.VideoNegativeTTL,
	}), creatives.VideoResolverConfig{
		BatchSize:   cfg.VideoBatchSize,
		BatchDelay:  cfg.VideoBatchDelay,
		PacingDelay: cfg.VideoPacingDelay,
	}, logger, metrics)

	svc := creatives.NewService(client, videos, nil, persistent, nil, creatives.Config{
		DefaultTTLHours: cfg.DefaultCacheTTLHrs,
		PersistTimeout:  cfg.PersistTimeout,
		MemoryCacheSize: cfg.ResponseCacheSize,
	}, logger, metrics)

	return svc, func() {
		svc.Wait()
		cleanup()
	}
}

func main() {
	cfg := config.Load()

	// stdout carries the MCP protocol, so logs go to stderr
	logger, err := observability.InitStderrLogger(cfg.ServiceName + "-mcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting creatives MCP server")

	svc, cleanup := newService(cfg, logger)
	defer cleanup()

	server := newMCPServer(&CreativesServer{creatives: svc, logger: logger})

	stdioTransport := &mcp.StdioTransport{}

	var logBuffer bytes.Buffer
	loggingTransport := &mcp.LoggingTransport{
		Transport: stdioTransport,
		Writer:    &logBuffer,
	}

	logger.Info("MCP server running via stdio")

	if err := server.Run(context.Background(), loggingTransport); err != nil {
		logger.Error("Server error", zap.Error(err), zap.String("mcp_logs", logBuffer.String()))
	}
}
