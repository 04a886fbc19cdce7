package creatives

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adcreatives/internal/cache"
	"github.com/patrickwarner/adcreatives/internal/graph"
	"github.com/patrickwarner/adcreatives/internal/observability"
)

// VideoGetter fetches video metadata. *graph.Client satisfies it.
type VideoGetter interface {
	GetVideo(ctx context.Context, token, videoID string) (*graph.Video, error)
}

// VideoResolverConfig controls pacing of video lookups.
type VideoResolverConfig struct {
	BatchSize   int           // ids resolved concurrently per batch
	BatchDelay  time.Duration // pause between batches, not after the last
	PacingDelay time.Duration // pause before each uncached lookup
}

// VideoResolver turns Facebook video ids into playable source URLs.
type VideoResolver struct {
	graph   VideoGetter
	cache   cache.VideoCache
	cfg     VideoResolverConfig
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

// NewVideoResolver creates a resolver backed by the given cache.
func NewVideoResolver(g VideoGetter, c cache.VideoCache, cfg VideoResolverConfig, logger *zap.Logger, metrics observability.MetricsRegistry) *VideoResolver {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &VideoResolver{graph: g, cache: c, cfg: cfg, logger: logger, metrics: metrics}
}

// ResolveVideoSource returns the playable URL for videoID or nil. It never
// fails: transport errors and Graph error objects both resolve to nil, and
// the outcome is written to the cache.
func (r *VideoResolver) ResolveVideoSource(ctx context.Context, videoID, token string) *string {
	if src, ok := r.cache.Get(videoID); ok {
		r.metrics.IncrementVideoResolutions("cached")
		return src
	}

	if err := sleep(ctx, r.cfg.PacingDelay); err != nil {
		return nil
	}

	video, err := r.graph.GetVideo(ctx, token, videoID)
	if err != nil {
		if ctx.Err() != nil {
			// the request is gone; don't poison the cache with its failure
			return nil
		}
		r.logger.Warn("video lookup failed", zap.String("video_id", videoID), zap.Error(err))
		r.metrics.IncrementVideoResolutions("error")
		r.cache.Set(videoID, nil)
		return nil
	}

	if video.Source == "" {
		r.logger.Debug("video has no playable source",
			zap.String("video_id", videoID),
			zap.String("permalink_url", video.PermalinkURL))
		r.metrics.IncrementVideoResolutions("missing")
		r.cache.Set(videoID, nil)
		return nil
	}

	r.logger.Debug("video resolved",
		zap.String("video_id", videoID),
		zap.String("permalink_url", video.PermalinkURL))
	r.metrics.IncrementVideoResolutions("resolved")
	src := video.Source
	r.cache.Set(videoID, &src)
	return &src
}

// ResolveVideoSources resolves every distinct id in ids. Cached ids are
// answered without a lookup; the rest are resolved in concurrent batches with
// a delay between batches. The result has an entry for every distinct input
// id, nil where resolution failed or the context ended first.
func (r *VideoResolver) ResolveVideoSources(ctx context.Context, ids []string, token string) map[string]*string {
	out := make(map[string]*string, len(ids))
	var pending []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, seen := out[id]; seen {
			continue
		}
		if src, ok := r.cache.Get(id); ok {
			out[id] = src
			continue
		}
		out[id] = nil
		pending = append(pending, id)
	}

	if len(pending) == 0 {
		return out
	}
	r.logger.Debug("resolving video sources",
		zap.Int("distinct", len(out)),
		zap.Int("pending", len(pending)))

	var mu sync.Mutex
	for start := 0; start < len(pending); start += r.cfg.BatchSize {
		if start > 0 {
			if err := sleep(ctx, r.cfg.BatchDelay); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		end := min(start+r.cfg.BatchSize, len(pending))
		var wg sync.WaitGroup
		for _, id := range pending[start:end] {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				src := r.ResolveVideoSource(ctx, id, token)
				mu.Lock()
				out[id] = src
				mu.Unlock()
			}(id)
		}
		wg.Wait()
	}
	return out
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
