package models

import "time"

// CreativeType classifies a creative's format. The set is closed; every
// creative maps to exactly one value and the value decides whether the
// record carries a VideoURL or a list of Assets.
type CreativeType string

const (
	CreativeTypeImage    CreativeType = "image"
	CreativeTypeVideo    CreativeType = "video"
	CreativeTypeCarousel CreativeType = "carousel"
	// CreativeTypeDynamic is the catch-all for creatives that match no other
	// rule, typically catalog / dynamic product ads. It is "unclassified",
	// not a positive detection.
	CreativeTypeDynamic CreativeType = "dynamic"
)

// HasAssets reports whether records of this type carry an asset list.
func (t CreativeType) HasAssets() bool {
	return t == CreativeTypeCarousel || t == CreativeTypeDynamic
}

// Performance grades a creative from its CTR and CPC.
type Performance string

const (
	PerformanceExcellent Performance = "excellent"
	PerformanceGood      Performance = "good"
	PerformanceAverage   Performance = "average"
	PerformancePoor      Performance = "poor"
)

// FatigueLevel grades how often the same people have seen a creative.
type FatigueLevel string

const (
	FatigueLow    FatigueLevel = "low"
	FatigueMedium FatigueLevel = "medium"
	FatigueHigh   FatigueLevel = "high"
)

// CreativeAsset is one card of a carousel or dynamic creative.
// An asset is only kept when ImageURL or VideoURL is set.
type CreativeAsset struct {
	ImageURL     *string `json:"imageUrl"`
	VideoURL     *string `json:"videoUrl"`
	ThumbnailURL *string `json:"thumbnailUrl"`
}

// Empty reports whether the asset has neither an image nor a video.
func (a CreativeAsset) Empty() bool {
	return a.ImageURL == nil && a.VideoURL == nil
}

// CreativeRecord is the normalized view of one Facebook creative together
// with the performance of the ad that first referenced it.
type CreativeRecord struct {
	ID           string       `json:"id"`           // Facebook creative id (ad id when the creative has none).
	Name         string       `json:"name"`         // Creative name, falling back to the ad name.
	Description  string       `json:"description"`  // Creative body / message text.
	CampaignName string       `json:"campaignName"` // Name of the campaign owning the ad set.
	AdsetName    string       `json:"adsetName"`    // Name of the ad set owning the ad.
	CreativeType CreativeType `json:"creativeType"`
	ThumbnailURL *string      `json:"thumbnailUrl"`
	ImageURL     *string      `json:"imageUrl"`
	// VideoURL is the playable source, set only for video creatives once
	// video ids have been resolved.
	VideoURL *string `json:"videoUrl"`
	// Assets is set only for carousel and dynamic creatives.
	Assets []CreativeAsset `json:"assets,omitempty"`

	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
	Spend       float64 `json:"spend"`
	CTR         float64 `json:"ctr"` // Percent, clicks / impressions * 100.
	CPC         float64 `json:"cpc"`
	CPM         float64 `json:"cpm"`
	Reach       float64 `json:"reach"`
	Frequency   float64 `json:"frequency"`

	Status       string       `json:"status"`
	CreatedAt    string       `json:"createdAt"`
	Performance  Performance  `json:"performance"`
	FatigueLevel FatigueLevel `json:"fatigueLevel"`
	AdAccountID  string       `json:"adAccountId"`
}

// CreativesResponse is the body of a successful POST /creatives and the
// payload stored in both response cache tiers.
type CreativesResponse struct {
	Success   bool             `json:"success"`
	Creatives []CreativeRecord `json:"creatives"`
	Message   string           `json:"message"`
	// Cached and CachedAt are only set when the payload was served from a cache tier.
	Cached   bool       `json:"cached,omitempty"`
	CachedAt *time.Time `json:"cachedAt,omitempty"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
