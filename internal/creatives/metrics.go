package creatives

import (
	"github.com/patrickwarner/adcreatives/internal/graph"
	"github.com/patrickwarner/adcreatives/internal/models"
)

// Totals are an ad's insights summed over the requested period.
type Totals struct {
	Impressions float64
	Clicks      float64
	Spend       float64
	Reach       float64
	CTR         float64
	CPC         float64
	CPM         float64
	Frequency   float64
}

// SumInsights adds up the daily rows and derives the ratio metrics from the
// totals rather than averaging the daily ratios. A zero denominator yields 0.
func SumInsights(rows []graph.InsightRow) Totals {
	var t Totals
	for _, row := range rows {
		t.Impressions += row.Impressions.Float()
		t.Clicks += row.Clicks.Float()
		t.Spend += row.Spend.Float()
		t.Reach += row.Reach.Float()
	}
	t.CPC = ratio(t.Spend, t.Clicks)
	t.CPM = ratio(t.Spend, t.Impressions) * 1000
	t.CTR = ratio(t.Clicks, t.Impressions) * 100
	t.Frequency = ratio(t.Impressions, t.Reach)
	return t
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// ClassifyPerformance grades a creative; the first matching tier wins.
func ClassifyPerformance(ctr, cpc float64) models.Performance {
	switch {
	case ctr >= 3.0 && cpc <= 1.5:
		return models.PerformanceExcellent
	case ctr >= 2.0 && cpc <= 2.5:
		return models.PerformanceGood
	case ctr >= 1.0 && cpc <= 3.5:
		return models.PerformanceAverage
	default:
		return models.PerformancePoor
	}
}

// ClassifyFatigue grades audience fatigue from frequency alone.
func ClassifyFatigue(frequency float64) models.FatigueLevel {
	switch {
	case frequency <= 2.0:
		return models.FatigueLow
	case frequency <= 5.0:
		return models.FatigueMedium
	default:
		return models.FatigueHigh
	}
}

func applyTotals(rec *models.CreativeRecord, t Totals) {
	rec.Impressions = t.Impressions
	rec.Clicks = t.Clicks
	rec.Spend = t.Spend
	rec.Reach = t.Reach
	rec.CTR = t.CTR
	rec.CPC = t.CPC
	rec.CPM = t.CPM
	rec.Frequency = t.Frequency
}
