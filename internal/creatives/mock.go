package creatives

import "github.com/patrickwarner/adcreatives/internal/models"

// Messages attached to illustrative responses.
const (
	MessageMock        = "Mock creatives data"
	MessageEmpty       = "No creatives found for this ad account. Showing sample data."
	messageAPIErrorFmt = "Facebook API error: %s. Showing sample data."
)

// MockToken is the sentinel access token or account id that returns sample
// data without contacting Facebook.
const MockToken = "mock"

// MockCreatives returns a fixed sample covering every creative type.
func MockCreatives(accountID string) []models.CreativeRecord {
	p := models.StringPtr
	records := []models.CreativeRecord{
		{
			ID:           "mock_creative_1",
			Name:         "Summer Sale - Hero Image",
			Description:  "Up to 50% off everything. Ends Sunday.",
			CampaignName: "Summer Sale 2024",
			AdsetName:    "Broad - 25-44",
			CreativeType: models.CreativeTypeImage,
			ThumbnailURL: p("https://picsum.photos/seed/creative1/200/200"),
			ImageURL:     p("https://picsum.photos/seed/creative1/1080/1080"),
			Clicks:       1250,
			Impressions:  35000,
			Spend:        1500,
			Reach:        21000,
			Status:       "ACTIVE",
			CreatedAt:    "2024-06-01T10:00:00+0000",
		},
		{
			ID:           "mock_creative_2",
			Name:         "Product Demo Video",
			Description:  "See how it works in 30 seconds.",
			CampaignName: "Product Launch",
			AdsetName:    "Lookalike 1%",
			CreativeType: models.CreativeTypeVideo,
			ThumbnailURL: p("https://picsum.photos/seed/creative2/200/200"),
			ImageURL:     p("https://picsum.photos/seed/creative2/1280/720"),
			VideoURL:     p("https://interactive-examples.mdn.mozilla.net/media/cc0-videos/flower.mp4"),
			Clicks:       980,
			Impressions:  42000,
			Spend:        2100,
			Reach:        12000,
			Status:       "ACTIVE",
			CreatedAt:    "2024-05-20T14:30:00+0000",
		},
		{
			ID:           "mock_creative_3",
			Name:         "Bestsellers Carousel",
			Description:  "Our top picks this season.",
			CampaignName: "Summer Sale 2024",
			AdsetName:    "Retargeting - 30d visitors",
			CreativeType: models.CreativeTypeCarousel,
			ThumbnailURL: p("https://picsum.photos/seed/creative3/200/200"),
			ImageURL:     p("https://picsum.photos/seed/creative3/1080/1080"),
			Assets: []models.CreativeAsset{
				{ImageURL: p("https://picsum.photos/seed/card1/1080/1080")},
				{ImageURL: p("https://picsum.photos/seed/card2/1080/1080")},
				{ImageURL: p("https://picsum.photos/seed/card3/1080/1080")},
			},
			Clicks:      410,
			Impressions: 38000,
			Spend:       1650,
			Reach:       6500,
			Status:      "PAUSED",
			CreatedAt:   "2024-04-11T09:15:00+0000",
		},
		{
			ID:           "mock_creative_4",
			Name:         "Catalog - Dynamic Product Ad",
			Description:  "Products you viewed are waiting for you.",
			CampaignName: "Catalog Sales",
			AdsetName:    "DPA - Cart abandoners",
			CreativeType: models.CreativeTypeDynamic,
			ThumbnailURL: p("https://picsum.photos/seed/creative4/200/200"),
			Assets: []models.CreativeAsset{
				{ImageURL: p("https://picsum.photos/seed/dpa1/600/600")},
				{ImageURL: p("https://picsum.photos/seed/dpa2/600/600")},
			},
			Clicks:      620,
			Impressions: 18000,
			Spend:       540,
			Reach:       9000,
			Status:      "ACTIVE",
			CreatedAt:   "2024-03-02T08:00:00+0000",
		},
	}

	for i := range records {
		r := &records[i]
		applyTotals(r, Totals{
			Impressions: r.Impressions,
			Clicks:      r.Clicks,
			Spend:       r.Spend,
			Reach:       r.Reach,
			CTR:         ratio(r.Clicks, r.Impressions) * 100,
			CPC:         ratio(r.Spend, r.Clicks),
			CPM:         ratio(r.Spend, r.Impressions) * 1000,
			Frequency:   ratio(r.Impressions, r.Reach),
		})
		r.Performance = ClassifyPerformance(r.CTR, r.CPC)
		r.FatigueLevel = ClassifyFatigue(r.Frequency)
		r.AdAccountID = accountID
	}
	return records
}

func mockResponse(accountID, message string) *models.CreativesResponse {
	return &models.CreativesResponse{
		Success:   true,
		Creatives: MockCreatives(accountID),
		Message:   message,
	}
}
