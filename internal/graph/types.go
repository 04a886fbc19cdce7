package graph

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// APIError is the error object the Graph API embeds in a JSON body.
// Errors are signalled through this object rather than the HTTP status.
type APIError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode,omitempty"`
	FBTraceID    string `json:"fbtrace_id,omitempty"`
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("graph api error %d (%s): %s", e.Code, e.Type, e.Message)
	}
	return fmt.Sprintf("graph api error %d: %s", e.Code, e.Message)
}

// envelope is decoded first from every response so the error object can be
// detected before the payload.
type envelope struct {
	Error *APIError `json:"error"`
}

// Account is the subset of an ad account used by the creatives pipeline.
type Account struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	TimezoneName  string `json:"timezone_name"`
	Currency      string `json:"currency"`
	AccountStatus int    `json:"account_status"`
}

// Paging holds cursor links for list endpoints.
type Paging struct {
	Next string `json:"next"`
}

// Campaign is the campaign embedded in an ad set.
type Campaign struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AdSet is the ad set embedded in an ad.
type AdSet struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Campaign *Campaign `json:"campaign,omitempty"`
}

// Ad is one element of the account ads list.
type Ad struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	CreatedTime string    `json:"created_time"`
	Creative    *Creative `json:"creative,omitempty"`
	AdSet       *AdSet    `json:"adset,omitempty"`
}

// CallToAction is the creative's call to action button.
type CallToAction struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Creative is an ad creative. Its shape varies by ad format, so every field
// is optional.
type Creative struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Title           string           `json:"title"`
	Body            string           `json:"body"`
	ImageURL        string           `json:"image_url"`
	ImageHash       string           `json:"image_hash"`
	VideoID         string           `json:"video_id"`
	ThumbnailURL    string           `json:"thumbnail_url"`
	ObjectStorySpec *ObjectStorySpec `json:"object_story_spec,omitempty"`
	AssetFeedSpec   json.RawMessage  `json:"asset_feed_spec,omitempty"`
	CallToAction    *CallToAction    `json:"call_to_action,omitempty"`
}

// ObjectStorySpec describes the page post behind a creative. Normally one
// branch is populated but any combination may appear.
type ObjectStorySpec struct {
	PageID    string     `json:"page_id,omitempty"`
	LinkData  *LinkData  `json:"link_data,omitempty"`
	VideoData *VideoData `json:"video_data,omitempty"`
	PhotoData *PhotoData `json:"photo_data,omitempty"`
}

// StoryVariant names which branches of an ObjectStorySpec are populated.
type StoryVariant int

const (
	StoryNone StoryVariant = iota
	StoryLink
	StoryVideo
	StoryPhoto
	// StoryMixed means more than one branch is populated.
	StoryMixed
)

func (v StoryVariant) String() string {
	switch v {
	case StoryLink:
		return "link"
	case StoryVideo:
		return "video"
	case StoryPhoto:
		return "photo"
	case StoryMixed:
		return "mixed"
	default:
		return "none"
	}
}

// Variant reports which branches are populated. A nil spec is StoryNone.
func (s *ObjectStorySpec) Variant() StoryVariant {
	if s == nil {
		return StoryNone
	}
	n := 0
	v := StoryNone
	if s.LinkData != nil {
		n++
		v = StoryLink
	}
	if s.VideoData != nil {
		n++
		v = StoryVideo
	}
	if s.PhotoData != nil {
		n++
		v = StoryPhoto
	}
	if n > 1 {
		return StoryMixed
	}
	return v
}

// Link returns the link branch or nil. Safe on a nil spec.
func (s *ObjectStorySpec) Link() *LinkData {
	if s == nil {
		return nil
	}
	return s.LinkData
}

// Video returns the video branch or nil. Safe on a nil spec.
func (s *ObjectStorySpec) Video() *VideoData {
	if s == nil {
		return nil
	}
	return s.VideoData
}

// LinkData is the link-post branch, which also carries carousel cards.
type LinkData struct {
	Link              string            `json:"link,omitempty"`
	Message           string            `json:"message,omitempty"`
	Name              string            `json:"name,omitempty"`
	ImageURL          string            `json:"image_url,omitempty"`
	Picture           string            `json:"picture,omitempty"`
	ChildAttachments  []ChildAttachment `json:"child_attachments,omitempty"`
	MultiShareEndCard *EndCard          `json:"-"`
}

// UnmarshalJSON decodes multi_share_end_card, which the API sends either as
// an object or as a boolean flag.
func (l *LinkData) UnmarshalJSON(data []byte) error {
	type plain LinkData
	aux := struct {
		*plain
		EndCard json.RawMessage `json:"multi_share_end_card"`
	}{plain: (*plain)(l)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	l.MultiShareEndCard = nil
	if len(aux.EndCard) > 0 && aux.EndCard[0] == '{' {
		var card EndCard
		if err := json.Unmarshal(aux.EndCard, &card); err != nil {
			return fmt.Errorf("multi_share_end_card: %w", err)
		}
		l.MultiShareEndCard = &card
	}
	return nil
}

// MarshalJSON mirrors UnmarshalJSON so cached specs round-trip.
func (l LinkData) MarshalJSON() ([]byte, error) {
	type plain LinkData
	return json.Marshal(struct {
		plain
		EndCard *EndCard `json:"multi_share_end_card,omitempty"`
	}{plain: plain(l), EndCard: l.MultiShareEndCard})
}

// EndCard is the trailing card of a multi-share (carousel) link post.
type EndCard struct {
	ImageURL string `json:"image_url,omitempty"`
	Picture  string `json:"picture,omitempty"`
	VideoID  string `json:"video_id,omitempty"`
}

// VideoData is the video-post branch.
type VideoData struct {
	VideoID          string            `json:"video_id,omitempty"`
	ImageURL         string            `json:"image_url,omitempty"`
	Title            string            `json:"title,omitempty"`
	Message          string            `json:"message,omitempty"`
	ChildAttachments []ChildAttachment `json:"child_attachments,omitempty"`
}

// PhotoData is the photo-post branch.
type PhotoData struct {
	URL string `json:"url,omitempty"`
}

// Media is the nested media object of a child attachment.
type Media struct {
	ImageURL string `json:"image_url,omitempty"`
}

// ChildAttachment is one carousel card.
type ChildAttachment struct {
	Name         string `json:"name,omitempty"`
	Link         string `json:"link,omitempty"`
	Description  string `json:"description,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	Picture      string `json:"picture,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	VideoID      string `json:"video_id,omitempty"`
	Media        *Media `json:"media,omitempty"`
}

// MediaImageURL returns media.image_url or "" when media is absent.
func (a ChildAttachment) MediaImageURL() string {
	if a.Media == nil {
		return ""
	}
	return a.Media.ImageURL
}

// InsightRow is one day of ad insights. Numbers arrive as JSON strings.
type InsightRow struct {
	DateStart   string `json:"date_start"`
	DateStop    string `json:"date_stop"`
	Impressions Number `json:"impressions"`
	Clicks      Number `json:"clicks"`
	Spend       Number `json:"spend"`
	Reach       Number `json:"reach"`
	Frequency   Number `json:"frequency"`
	CTR         Number `json:"ctr"`
	CPC         Number `json:"cpc"`
	CPM         Number `json:"cpm"`
}

// Number decodes a Graph numeric field sent as a string or a JSON number.
// Unparseable values decode to zero.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// Float returns the value as float64.
func (n Number) Float() float64 { return float64(n) }

// Video is the video metadata object.
type Video struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	PermalinkURL string `json:"permalink_url"`
	Picture      string `json:"picture"`
	Status       *struct {
		VideoStatus string `json:"video_status"`
	} `json:"status,omitempty"`
}
