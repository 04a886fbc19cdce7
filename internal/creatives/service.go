// Package creatives turns an ad account's ads into normalized creative
// records. It classifies each creative, extracts its images and carousel
// cards, resolves video ids to playable URLs, attaches period performance and
// caches the finished response in memory and in a persistent store.
package creatives

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/patrickwarner/adcreatives/internal/cache"
	"github.com/patrickwarner/adcreatives/internal/graph"
	"github.com/patrickwarner/adcreatives/internal/middleware"
	"github.com/patrickwarner/adcreatives/internal/models"
	"github.com/patrickwarner/adcreatives/internal/observability"
)

// ErrInvalidRequest is returned when the access token or account id is missing.
var ErrInvalidRequest = errors.New("accessToken and adAccountId are required")

// Graph is the subset of the Graph API client the service calls.
type Graph interface {
	VideoGetter
	GetAccount(ctx context.Context, token, accountID string) (*graph.Account, error)
	ListAds(ctx context.Context, token, accountID string) ([]graph.Ad, error)
	GetInsights(ctx context.Context, token, adID, since, until string) ([]graph.InsightRow, error)
	GetCreative(ctx context.Context, token, creativeID string) (*graph.Creative, error)
}

// PersistentStore is the restart-surviving response cache tier. Get returns a
// nil entry on a miss or when the stored entry is older than ttlHours.
type PersistentStore interface {
	Get(ctx context.Context, accountID, dateRange string, ttlHours float64) (*cache.ResponseEntry, error)
	Save(ctx context.Context, accountID, dateRange string, payload *models.CreativesResponse) error
}

// Recorder receives the records of every live fetch for offline analysis.
type Recorder interface {
	RecordCreatives(ctx context.Context, accountID, dateRange string, records []models.CreativeRecord) error
}

// Request is one creatives query.
type Request struct {
	AccessToken string
	AdAccountID string
	DateRange   string
	// CacheTTLHours overrides the default TTL; zero disables caching.
	CacheTTLHours *float64
	// Refresh bypasses cache reads. The fresh result is still cached.
	Refresh bool
}

// Config holds the service tunables.
type Config struct {
	DefaultTTLHours float64
	PersistTimeout  time.Duration
	MemoryCacheSize int
}

// Service runs the creatives pipeline.
type Service struct {
	graph    Graph
	videos   *VideoResolver
	memory   *cache.MemoryResponseCache
	store    PersistentStore
	recorder Recorder
	cfg      Config
	logger   *zap.Logger
	metrics  observability.MetricsRegistry
	now      func() time.Time

	background sync.WaitGroup
}

// NewService wires the pipeline. store and recorder may be nil.
func NewService(g Graph, videos *VideoResolver, memory *cache.MemoryResponseCache, store PersistentStore, recorder Recorder, cfg Config, logger *zap.Logger, metrics observability.MetricsRegistry) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	if memory == nil {
		memory = cache.NewMemoryResponseCache(cfg.MemoryCacheSize)
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	return &Service{
		graph:    g,
		videos:   videos,
		memory:   memory,
		store:    store,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for date ranges.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Wait blocks until background cache and analytics writes have finished.
func (s *Service) Wait() { s.background.Wait() }

// pendingCreative is a record built in the first pass together with the raw
// shapes the second pass needs.
type pendingCreative struct {
	record   models.CreativeRecord
	creative *graph.Creative
	spec     *graph.ObjectStorySpec
}

// Fetch returns the creatives of an ad account. The returned error is
// ErrInvalidRequest for bad input, a *graph.APIError when the account lookup
// is rejected by Facebook, and anything else for unexpected failures.
func (s *Service) Fetch(ctx context.Context, req Request) (resp *models.CreativesResponse, err error) {
	ctx, span := observability.Tracer("creatives").Start(ctx, "creatives.fetch")
	defer span.End()
	logger := middleware.LoggerFromContext(ctx, s.logger)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("creatives fetch panicked", zap.Any("panic", r), zap.Stack("stack"))
			resp, err = nil, fmt.Errorf("creatives fetch panicked: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if req.AccessToken == "" || req.AdAccountID == "" {
		return nil, ErrInvalidRequest
	}

	dateRange := NormalizeRange(req.DateRange)
	ttlHours := s.cfg.DefaultTTLHours
	if req.CacheTTLHours != nil {
		ttlHours = *req.CacheTTLHours
	}
	span.SetAttributes(
		attribute.String("ad_account_id", req.AdAccountID),
		attribute.String("date_range", dateRange),
		attribute.Float64("cache_ttl_hours", ttlHours),
		attribute.Bool("refresh", req.Refresh),
	)

	if ttlHours > 0 && !req.Refresh {
		if cached := s.lookupCache(ctx, logger, req.AdAccountID, dateRange, ttlHours); cached != nil {
			return cached, nil
		}
	}

	if req.AccessToken == MockToken || req.AdAccountID == MockToken {
		s.metrics.IncrementMockResponses("sentinel")
		return mockResponse(req.AdAccountID, MessageMock), nil
	}

	account, err := s.graph.GetAccount(ctx, req.AccessToken, req.AdAccountID)
	if err != nil {
		return nil, fmt.Errorf("fetch ad account: %w", err)
	}
	loc := LoadLocation(account.TimezoneName)
	dates := ComputeDateRange(dateRange, loc, s.now())
	logger.Debug("computed date range",
		zap.String("timezone", loc.String()),
		zap.String("since", dates.Since),
		zap.String("until", dates.Until))

	ads, err := s.graph.ListAds(ctx, req.AccessToken, req.AdAccountID)
	if err != nil {
		if apiErr, ok := graph.IsAPIError(err); ok {
			logger.Warn("ads list rejected, serving sample data", zap.Error(apiErr))
			s.metrics.IncrementMockResponses("api_error")
			return mockResponse(req.AdAccountID, fmt.Sprintf(messageAPIErrorFmt, apiErr.Message)), nil
		}
		return nil, fmt.Errorf("list ads: %w", err)
	}

	accountID := account.ID
	if accountID == "" {
		accountID = graph.AccountPath(req.AdAccountID)
	}

	// First pass: one record per distinct creative, in upstream order.
	var pending []*pendingCreative
	seen := make(map[string]bool)
	var videoIDs []string
	for i := range ads {
		ad := &ads[i]
		if ad.Creative == nil {
			continue
		}
		key := dedupKey(ad)
		if seen[key] {
			continue
		}
		p, err := s.buildRecord(ctx, logger, req.AccessToken, accountID, ad, dates)
		if err != nil {
			logger.Warn("skipping ad", zap.String("ad_id", ad.ID), zap.Error(err))
			continue
		}
		seen[key] = true
		pending = append(pending, p)
		videoIDs = append(videoIDs, CollectVideoIDs(p.creative, p.spec)...)
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("creatives fetch: %w", ctx.Err())
	}

	sources := map[string]*string{}
	if len(videoIDs) > 0 && s.videos != nil {
		sources = s.videos.ResolveVideoSources(ctx, videoIDs, req.AccessToken)
	}

	// Second pass: back-fill media and derived grades.
	records := make([]models.CreativeRecord, 0, len(pending))
	for _, p := range pending {
		s.backfill(logger, p, sources)
		p.record.Performance = ClassifyPerformance(p.record.CTR, p.record.CPC)
		p.record.FatigueLevel = ClassifyFatigue(p.record.Frequency)
		records = append(records, p.record)
	}

	if len(records) == 0 {
		logger.Info("no creatives found, serving sample data", zap.String("ad_account_id", accountID))
		s.metrics.IncrementMockResponses("empty")
		return mockResponse(req.AdAccountID, MessageEmpty), nil
	}

	resp = &models.CreativesResponse{
		Success:   true,
		Creatives: records,
		Message:   fmt.Sprintf("Fetched %d creatives for %s", len(records), dates),
	}
	s.metrics.RecordCreativesPerResponse(len(records))

	if ttlHours > 0 {
		s.memory.Set(cache.ResponseKey(req.AdAccountID, dateRange), resp)
		s.persist(ctx, logger, req.AdAccountID, dateRange, resp)
	}
	s.record(ctx, logger, accountID, dateRange, records)
	return resp, nil
}

// lookupCache consults the persistent tier and then the memory tier.
func (s *Service) lookupCache(ctx context.Context, logger *zap.Logger, accountID, dateRange string, ttlHours float64) *models.CreativesResponse {
	if s.store != nil {
		entry, err := s.store.Get(ctx, accountID, dateRange, ttlHours)
		switch {
		case err != nil:
			logger.Warn("persistent cache read failed", zap.Error(err))
			s.metrics.IncrementCacheLookup("persistent", "error")
		case entry != nil && entry.Payload != nil:
			s.metrics.IncrementCacheLookup("persistent", "hit")
			return markCached(*entry)
		default:
			s.metrics.IncrementCacheLookup("persistent", "miss")
		}
	}

	ttl := time.Duration(ttlHours * float64(time.Hour))
	entry, res := s.memory.Get(cache.ResponseKey(accountID, dateRange), ttl)
	s.metrics.IncrementCacheLookup("memory", res.String())
	if res == cache.Hit {
		return markCached(entry)
	}
	return nil
}

func markCached(entry cache.ResponseEntry) *models.CreativesResponse {
	out := *entry.Payload
	out.Cached = true
	ts := entry.Timestamp
	out.CachedAt = &ts
	return &out
}

func dedupKey(ad *graph.Ad) string {
	if ad.Creative != nil && ad.Creative.ID != "" {
		return ad.Creative.ID
	}
	return ad.ID
}

// buildRecord runs the first pass for one ad. Any failure, including a
// panic on an unexpected shape, skips the ad.
func (s *Service) buildRecord(ctx context.Context, logger *zap.Logger, token, accountID string, ad *graph.Ad, dates DateRange) (p *pendingCreative, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("panic building record: %v", r)
		}
	}()

	cr := *ad.Creative
	spec := cr.ObjectStorySpec
	if spec == nil && cr.ID != "" {
		detail, err := s.graph.GetCreative(ctx, token, cr.ID)
		if err != nil {
			logger.Warn("creative detail fetch failed",
				zap.String("creative_id", cr.ID), zap.Error(err))
		} else if detail != nil {
			spec = detail.ObjectStorySpec
		}
	}
	cr.ObjectStorySpec = spec

	rows, err := s.graph.GetInsights(ctx, token, ad.ID, dates.Since, dates.Until)
	if err != nil {
		return nil, fmt.Errorf("fetch insights: %w", err)
	}

	rec := models.CreativeRecord{
		ID:           dedupKey(ad),
		Name:         cr.Name,
		Description:  cr.Body,
		CreativeType: ClassifyCreativeType(&cr),
		ImageURL:     ExtractImageURL(&cr, spec),
		ThumbnailURL: ExtractThumbnailURL(&cr, spec),
		Status:       ad.Status,
		CreatedAt:    ad.CreatedTime,
		AdAccountID:  accountID,
	}
	if rec.Name == "" {
		rec.Name = ad.Name
	}
	if rec.Description == "" {
		if link := spec.Link(); link != nil {
			rec.Description = link.Message
		} else if video := spec.Video(); video != nil {
			rec.Description = video.Message
		}
	}
	if ad.AdSet != nil {
		rec.AdsetName = ad.AdSet.Name
		if ad.AdSet.Campaign != nil {
			rec.CampaignName = ad.AdSet.Campaign.Name
		}
	}
	applyTotals(&rec, SumInsights(rows))

	return &pendingCreative{record: rec, creative: &cr, spec: spec}, nil
}

// backfill attaches resolved media. A panic leaves the record as built.
func (s *Service) backfill(logger *zap.Logger, p *pendingCreative, sources map[string]*string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("creative back-fill failed",
				zap.String("creative_id", p.record.ID), zap.Any("panic", r))
		}
	}()

	switch p.record.CreativeType {
	case models.CreativeTypeVideo:
		if id := VideoIDFor(p.creative, p.spec); id != "" {
			p.record.VideoURL = sources[id]
		}
	case models.CreativeTypeCarousel, models.CreativeTypeDynamic:
		if assets := ExtractCarouselAssets(p.spec, sources); len(assets) > 0 {
			p.record.Assets = assets
		}
	}
}

// persist writes the response to the persistent tier without delaying the
// caller. The write outlives the request context.
func (s *Service) persist(ctx context.Context, logger *zap.Logger, accountID, dateRange string, resp *models.CreativesResponse) {
	if s.store == nil {
		return
	}
	bg := context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(bg, s.cfg.PersistTimeout)
		defer cancel()
		if err := s.store.Save(ctx, accountID, dateRange, resp); err != nil {
			logger.Warn("persistent cache write failed",
				zap.String("ad_account_id", accountID), zap.Error(err))
			s.metrics.IncrementCachePersistErrors()
		}
	}()
}

func (s *Service) record(ctx context.Context, logger *zap.Logger, accountID, dateRange string, records []models.CreativeRecord) {
	if s.recorder == nil {
		return
	}
	bg := context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(bg, s.cfg.PersistTimeout)
		defer cancel()
		if err := s.recorder.RecordCreatives(ctx, accountID, dateRange, records); err != nil {
			logger.Warn("creative snapshot failed", zap.Error(err))
		}
	}()
}
