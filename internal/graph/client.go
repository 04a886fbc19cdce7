// Package graph is a small client for the Facebook Graph API calls the
// creatives pipeline needs: account metadata, the ads list, per-ad daily
// insights, creative detail and video metadata.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/patrickwarner/adcreatives/internal/observability"
	"github.com/patrickwarner/adcreatives/internal/ratelimit"
)

// Field selections for each call shape.
const (
	AccountFields  = "id,name,timezone_name,currency,account_status"
	CreativeFields = "id,name,title,body,image_url,image_hash,video_id,thumbnail_url,object_story_spec,asset_feed_spec,call_to_action"
	AdFields       = "id,name,status,created_time,creative{" + CreativeFields + "},adset{id,name,campaign{id,name}}"
	InsightFields  = "impressions,clicks,spend,reach,frequency,ctr,cpc,cpm"
	VideoFields    = "source,permalink_url,picture,status"
)

// Call names used as metric labels.
const (
	CallAccount  = "account"
	CallAds      = "ads"
	CallInsights = "insights"
	CallCreative = "creative"
	CallVideo    = "video"
)

const adsPageSize = 100

// ErrNonJSON is returned when the Graph API answers with a body that is not JSON.
var ErrNonJSON = errors.New("graph api returned a non-json body")

// Client issues Graph API requests with access_token query-string auth.
// It never retries; callers decide how to degrade.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.KeyedLimiter
	maxPages   int
	logger     *zap.Logger
	metrics    observability.MetricsRegistry
}

// NewClient creates a Graph API client. limiter may be nil.
func NewClient(baseURL string, timeout time.Duration, maxPages int, limiter *ratelimit.KeyedLimiter, logger *zap.Logger, metrics observability.MetricsRegistry) *Client {
	if maxPages <= 0 {
		maxPages = 1
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter:  limiter,
		maxPages: maxPages,
		logger:   logger,
		metrics:  metrics,
	}
}

// AccountPath normalizes an ad account id to its act_ prefixed node name.
func AccountPath(accountID string) string {
	if strings.HasPrefix(accountID, "act_") {
		return accountID
	}
	return "act_" + accountID
}

// GetAccount fetches ad account metadata.
func (c *Client) GetAccount(ctx context.Context, token, accountID string) (*Account, error) {
	var acct Account
	params := url.Values{"fields": {AccountFields}}
	if err := c.get(ctx, CallAccount, token, c.nodeURL(AccountPath(accountID), params), &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// ListAds fetches every ad under the account with nested creative, ad set and
// campaign fields, following paging links up to the configured page cap.
func (c *Client) ListAds(ctx context.Context, token, accountID string) ([]Ad, error) {
	params := url.Values{
		"fields": {AdFields},
		"limit":  {strconv.Itoa(adsPageSize)},
	}
	next := c.nodeURL(AccountPath(accountID)+"/ads", params)

	var ads []Ad
	for page := 0; next != "" && page < c.maxPages; page++ {
		var resp struct {
			Data   []Ad   `json:"data"`
			Paging Paging `json:"paging"`
		}
		if err := c.get(ctx, CallAds, token, next, &resp); err != nil {
			return nil, err
		}
		ads = append(ads, resp.Data...)
		next = resp.Paging.Next
	}
	return ads, nil
}

// GetInsights fetches one row per day for the ad between since and until
// (inclusive, YYYY-MM-DD).
func (c *Client) GetInsights(ctx context.Context, token, adID, since, until string) ([]InsightRow, error) {
	timeRange, err := json.Marshal(map[string]string{"since": since, "until": until})
	if err != nil {
		return nil, fmt.Errorf("marshal time range: %w", err)
	}
	params := url.Values{
		"fields":         {InsightFields},
		"time_range":     {string(timeRange)},
		"time_increment": {"1"},
		"limit":          {"500"},
	}
	next := c.nodeURL(adID+"/insights", params)

	var rows []InsightRow
	for page := 0; next != "" && page < c.maxPages; page++ {
		var resp struct {
			Data   []InsightRow `json:"data"`
			Paging Paging       `json:"paging"`
		}
		if err := c.get(ctx, CallInsights, token, next, &resp); err != nil {
			return nil, err
		}
		rows = append(rows, resp.Data...)
		next = resp.Paging.Next
	}
	return rows, nil
}

// GetCreative fetches a creative by id, used when the ads list omitted its
// object_story_spec.
func (c *Client) GetCreative(ctx context.Context, token, creativeID string) (*Creative, error) {
	var cr Creative
	params := url.Values{"fields": {CreativeFields}}
	if err := c.get(ctx, CallCreative, token, c.nodeURL(creativeID, params), &cr); err != nil {
		return nil, err
	}
	return &cr, nil
}

// GetVideo fetches video metadata including the playable source URL.
func (c *Client) GetVideo(ctx context.Context, token, videoID string) (*Video, error) {
	var v Video
	params := url.Values{"fields": {VideoFields}}
	if err := c.get(ctx, CallVideo, token, c.nodeURL(videoID, params), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) nodeURL(node string, params url.Values) string {
	return c.baseURL + "/" + strings.Trim(node, "/") + "?" + params.Encode()
}

// get performs one GET, attaching the access token unless the URL (a paging
// link) already carries one, and decodes the body into out. A Graph error
// object is returned as *APIError.
func (c *Client) get(ctx context.Context, call, token, rawURL string, out any) error {
	start := time.Now()
	outcome := "ok"
	defer func() {
		c.metrics.RecordGraphLatency(call, time.Since(start))
		c.metrics.IncrementGraphRequests(call, outcome)
	}()

	waited, err := c.limiter.Wait(ctx, tokenKey(token))
	if waited {
		c.metrics.IncrementGraphPacingWaits(call)
	}
	if err != nil {
		outcome = "cancelled"
		return fmt.Errorf("wait for rate limiter: %w", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		outcome = "transport_error"
		return fmt.Errorf("parse %s url: %w", call, withoutURL(err))
	}
	q := u.Query()
	if q.Get("access_token") == "" {
		q.Set("access_token", token)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		outcome = "transport_error"
		return fmt.Errorf("create %s request: %w", call, withoutURL(err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "transport_error"
		return fmt.Errorf("http request %s: %w", call, withoutURL(err))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil && c.logger != nil {
			c.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome = "transport_error"
		return fmt.Errorf("read body: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		outcome = "transport_error"
		return fmt.Errorf("%w: http %d", ErrNonJSON, resp.StatusCode)
	}
	if env.Error != nil {
		outcome = "api_error"
		return env.Error
	}
	if err := json.Unmarshal(body, out); err != nil {
		outcome = "transport_error"
		return fmt.Errorf("decode %s response: %w", call, err)
	}
	return nil
}

// withoutURL drops the request URL from a *url.Error. The URL carries the
// access token and must not reach logs or callers.
func withoutURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

// tokenKey derives a limiter key from an access token without keeping the
// token itself around.
func tokenKey(token string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	return strconv.FormatUint(h.Sum64(), 16)
}

// IsAPIError reports whether err carries a Graph error object and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
