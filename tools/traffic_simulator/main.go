package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/patrickwarner/adcreatives/internal/config"
	"github.com/patrickwarner/adcreatives/internal/db"
	"github.com/patrickwarner/adcreatives/internal/observability"
)

var (
	server      string
	accounts    int
	accessToken string
	rangesCSV   string
	totalReq    int
	conc        int
	duration    time.Duration
	rate        float64
	refreshRate float64
	stats       bool
	flush       bool
	redisAddr   string
	debug       bool
	label       string
	jitter      float64
)

var logger *zap.Logger

// HTTP client with proper resource limits
var httpClient *http.Client

const statsInterval = 5 * time.Second

var (
	countSent     uint64
	countSuccess  uint64
	countCached   uint64
	countRejected uint64
	countErrors   uint64
)

type creativesReq struct {
	AccessToken string `json:"accessToken"`
	AdAccountID string `json:"adAccountId"`
	DateRange   string `json:"dateRange,omitempty"`
	Refresh     bool   `json:"refresh,omitempty"`
}

type creativesResp struct {
	Success   bool              `json:"success"`
	Cached    bool              `json:"cached"`
	Creatives []json.RawMessage `json:"creatives"`
}

func main() {
	flag.StringVar(&server, "server", "http://localhost:8787", "creatives service base URL")
	flag.IntVar(&accounts, "accounts", 10, "number of distinct ad accounts")
	flag.StringVar(&accessToken, "token", "mock", "access token sent with every request")
	flag.StringVar(&rangesCSV, "ranges", "last_7d,last_30d", "comma-separated date ranges")
	flag.IntVar(&totalReq, "requests", 200, "total requests to send")
	flag.IntVar(&conc, "concurrency", 10, "concurrent requests")
	flag.DurationVar(&duration, "duration", 0, "how long to run traffic (0 to disable)")
	flag.Float64Var(&rate, "rate", 0, "requests per second (0 for unlimited)")
	flag.Float64Var(&refreshRate, "refresh-rate", 0.05, "probability a request bypasses the cache")
	flag.BoolVar(&stats, "stats", false, "print aggregated stats periodically")
	flag.BoolVar(&flush, "flush", false, "flush the redis response cache before sending traffic")
	flag.StringVar(&redisAddr, "redis", "", "redis address (defaults to REDIS_ADDR)")
	flag.BoolVar(&debug, "debug", false, "enable verbose debug logs")
	flag.StringVar(&label, "label", "", "label to identify this run")
	flag.Float64Var(&jitter, "jitter", 0.0, "random jitter factor for request spacing")
	flag.Parse()

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	var err error
	logger, err = observability.InitLoggerWithLevel(level, "traffic-simulator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	httpClient = &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			MaxConnsPerHost:     50,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	if label == "" {
		label = time.Now().Format(time.RFC3339)
	}

	if flush {
		flushResponseCache()
	}

	ranges := strings.Split(rangesCSV, ",")
	for i := range ranges {
		ranges[i] = strings.TrimSpace(ranges[i])
	}
	if accounts <= 0 {
		accounts = 1
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	var wg sync.WaitGroup
	sem := make(chan struct{}, max(conc, 1))
	done := make(chan struct{})

	var baseInterval time.Duration
	if rate > 0 {
		baseInterval = time.Duration(float64(time.Second) / rate)
	} else if duration > 0 && totalReq > 0 {
		baseInterval = duration / time.Duration(totalReq)
	}

	start := time.Now()
	next := start

	if stats {
		go func() {
			ticker := time.NewTicker(statsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					printStats()
				case <-done:
					return
				}
			}
		}()
	}

	for i := 0; ; i++ {
		if totalReq > 0 && i >= totalReq {
			break
		}
		if duration > 0 && time.Since(start) >= duration {
			break
		}
		if baseInterval > 0 {
			effective := baseInterval
			if jitter > 0 {
				jf := 1 + (r.Float64()*2-1)*jitter
				if jf < 0.1 {
					jf = 0.1
				}
				effective = time.Duration(float64(effective) * jf)
			}
			now := time.Now()
			if now.Before(next) {
				time.Sleep(next.Sub(now))
			}
			next = next.Add(effective)
		}

		body := creativesReq{
			AccessToken: accessToken,
			AdAccountID: fmt.Sprintf("act_%d", 1000+r.Intn(accounts)),
			DateRange:   ranges[r.Intn(len(ranges))],
			Refresh:     r.Float64() < refreshRate,
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			send(body)
		}()
	}
	wg.Wait()
	close(done)
	printStats()
}

func send(body creativesReq) {
	atomic.AddUint64(&countSent, 1)

	payload, err := json.Marshal(body)
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("marshal request", zap.Error(err))
		return
	}

	resp, err := httpClient.Post(server+"/creatives", "application/json", bytes.NewReader(payload))
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Debug("request failed", zap.Error(err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Debug("read body", zap.Error(err))
		return
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var out creativesResp
		if err := json.Unmarshal(data, &out); err != nil {
			atomic.AddUint64(&countErrors, 1)
			logger.Debug("decode response", zap.Error(err))
			return
		}
		atomic.AddUint64(&countSuccess, 1)
		if out.Cached {
			atomic.AddUint64(&countCached, 1)
		}
		logger.Debug("creatives",
			zap.String("account", body.AdAccountID),
			zap.String("range", body.DateRange),
			zap.Int("count", len(out.Creatives)),
			zap.Bool("cached", out.Cached))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		atomic.AddUint64(&countRejected, 1)
		logger.Debug("rejected", zap.Int("status", resp.StatusCode), zap.ByteString("body", data))
	default:
		atomic.AddUint64(&countErrors, 1)
		logger.Debug("server error", zap.Int("status", resp.StatusCode), zap.ByteString("body", data))
	}
}

// flushResponseCache removes persisted creatives responses from redis so the
// run starts cold.
func flushResponseCache() {
	cfg := config.Load()
	addr := redisAddr
	if addr == "" {
		addr = cfg.RedisAddr
	}
	store, err := db.InitRedis(addr)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	keys, err := store.Client.Keys(ctx, db.RedisKeyPrefix+"*").Result()
	if err != nil {
		logger.Error("failed to list cache keys", zap.Error(err))
		return
	}
	if len(keys) > 0 {
		if err := store.Client.Del(ctx, keys...).Err(); err != nil {
			logger.Error("failed to delete cache keys", zap.Error(err))
			return
		}
	}
	logger.Info("redis response cache flushed", zap.String("addr", addr), zap.Int("keys_deleted", len(keys)))
}

func printStats() {
	sent := atomic.LoadUint64(&countSent)
	succ := atomic.LoadUint64(&countSuccess)
	cached := atomic.LoadUint64(&countCached)
	rejected := atomic.LoadUint64(&countRejected)
	errs := atomic.LoadUint64(&countErrors)
	var hitRate float64
	if succ > 0 {
		hitRate = float64(cached) / float64(succ)
	}
	logger.Info("stats", zap.String("run", label), zap.Uint64("sent", sent), zap.Uint64("success", succ),
		zap.Uint64("cached", cached), zap.Uint64("rejected", rejected), zap.Uint64("errors", errs),
		zap.Float64("cache_hit_rate", hitRate))
}
