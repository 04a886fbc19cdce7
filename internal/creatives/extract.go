package creatives

import (
	"github.com/patrickwarner/adcreatives/internal/graph"
	"github.com/patrickwarner/adcreatives/internal/models"
)

// firstNonEmpty returns a pointer to the first non-empty value, or nil.
func firstNonEmpty(values ...string) *string {
	for _, v := range values {
		if v != "" {
			return models.StringPtr(v)
		}
	}
	return nil
}

// ExtractImageURL picks the creative's primary image. Candidates are checked
// in a fixed order: the creative image, the link picture, the link image, the
// video poster image and finally the thumbnail.
func ExtractImageURL(cr *graph.Creative, spec *graph.ObjectStorySpec) *string {
	if cr == nil {
		return nil
	}
	var linkPicture, linkImage, videoImage string
	if link := spec.Link(); link != nil {
		linkPicture = link.Picture
		linkImage = link.ImageURL
	}
	if video := spec.Video(); video != nil {
		videoImage = video.ImageURL
	}
	return firstNonEmpty(cr.ImageURL, linkPicture, linkImage, videoImage, cr.ThumbnailURL)
}

// ExtractThumbnailURL returns the creative thumbnail, falling back to the
// primary image.
func ExtractThumbnailURL(cr *graph.Creative, spec *graph.ObjectStorySpec) *string {
	if cr != nil && cr.ThumbnailURL != "" {
		return models.StringPtr(cr.ThumbnailURL)
	}
	return ExtractImageURL(cr, spec)
}

// ClassifyCreativeType assigns exactly one type. A video id wins over an
// image, an image wins over carousel cards, and anything else is dynamic.
// The carousel rule fires whenever the child attachment list is present,
// even when it is empty.
func ClassifyCreativeType(cr *graph.Creative) models.CreativeType {
	if cr == nil {
		return models.CreativeTypeDynamic
	}
	switch {
	case cr.VideoID != "":
		return models.CreativeTypeVideo
	case cr.ImageURL != "":
		return models.CreativeTypeImage
	}
	if link := cr.ObjectStorySpec.Link(); link != nil && link.ChildAttachments != nil {
		return models.CreativeTypeCarousel
	}
	return models.CreativeTypeDynamic
}

// VideoIDFor returns the id used to back-fill a video record's URL.
func VideoIDFor(cr *graph.Creative, spec *graph.ObjectStorySpec) string {
	if cr != nil && cr.VideoID != "" {
		return cr.VideoID
	}
	if video := spec.Video(); video != nil {
		return video.VideoID
	}
	return ""
}

// CollectVideoIDs lists every video id a creative references, in discovery
// order and possibly with duplicates. The batch fetcher dedups.
func CollectVideoIDs(cr *graph.Creative, spec *graph.ObjectStorySpec) []string {
	var ids []string
	add := func(id string) {
		if id != "" {
			ids = append(ids, id)
		}
	}
	if cr != nil {
		add(cr.VideoID)
	}
	if link := spec.Link(); link != nil {
		for _, child := range link.ChildAttachments {
			add(child.VideoID)
		}
		if link.MultiShareEndCard != nil {
			add(link.MultiShareEndCard.VideoID)
		}
	}
	if video := spec.Video(); video != nil {
		add(video.VideoID)
		for _, child := range video.ChildAttachments {
			add(child.VideoID)
		}
	}
	return ids
}

// ExtractCarouselAssets builds the card list of a carousel or dynamic
// creative. Sources are visited in order: link child attachments, the
// multi-share end card, video child attachments and the legacy link images.
// Cards with neither an image nor a video are dropped.
func ExtractCarouselAssets(spec *graph.ObjectStorySpec, videoSources map[string]*string) []models.CreativeAsset {
	var assets []models.CreativeAsset
	keep := func(a models.CreativeAsset) {
		if !a.Empty() {
			assets = append(assets, a)
		}
	}
	lookup := func(videoID string) *string {
		if videoID == "" {
			return nil
		}
		return videoSources[videoID]
	}

	if link := spec.Link(); link != nil {
		for _, child := range link.ChildAttachments {
			keep(models.CreativeAsset{
				ImageURL:     firstNonEmpty(child.ImageURL, child.Picture, child.MediaImageURL()),
				VideoURL:     lookup(child.VideoID),
				ThumbnailURL: models.StringPtr(child.ThumbnailURL),
			})
		}
		if card := link.MultiShareEndCard; card != nil {
			keep(models.CreativeAsset{
				ImageURL: firstNonEmpty(card.ImageURL, card.Picture),
				VideoURL: lookup(card.VideoID),
			})
		}
	}

	if video := spec.Video(); video != nil {
		for _, child := range video.ChildAttachments {
			keep(models.CreativeAsset{
				ImageURL:     firstNonEmpty(child.ImageURL, child.Picture, child.MediaImageURL(), child.ThumbnailURL),
				VideoURL:     lookup(child.VideoID),
				ThumbnailURL: models.StringPtr(child.ThumbnailURL),
			})
		}
	}

	for _, a := range legacyLinkImageAssets(spec) {
		keep(a)
	}
	return assets
}

// legacyLinkImageAssets appends the link post's own image and picture as
// standalone cards. Dashboards built against older responses expect them even
// when the same URL already appeared as a carousel card, so no dedup is done.
func legacyLinkImageAssets(spec *graph.ObjectStorySpec) []models.CreativeAsset {
	link := spec.Link()
	if link == nil {
		return nil
	}
	var assets []models.CreativeAsset
	if link.ImageURL != "" {
		assets = append(assets, models.CreativeAsset{ImageURL: models.StringPtr(link.ImageURL)})
	}
	if link.Picture != "" {
		assets = append(assets, models.CreativeAsset{ImageURL: models.StringPtr(link.Picture)})
	}
	return assets
}
