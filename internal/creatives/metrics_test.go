package creatives

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickwarner/adcreatives/internal/graph"
	"github.com/patrickwarner/adcreatives/internal/models"
)

func TestSumInsightsRecomputesRatios(t *testing.T) {
	var rows []graph.InsightRow
	require.NoError(t, json.Unmarshal([]byte(`[
		{"impressions":"1000","clicks":"10","spend":"5","reach":"500","ctr":"1.0"},
		{"impressions":"3000","clicks":"50","spend":"15","reach":"1500","ctr":"1.67"}
	]`), &rows))

	got := SumInsights(rows)
	assert.Equal(t, 4000.0, got.Impressions)
	assert.Equal(t, 60.0, got.Clicks)
	assert.Equal(t, 20.0, got.Spend)
	assert.Equal(t, 2000.0, got.Reach)
	assert.InDelta(t, 1.5, got.CTR, 1e-9)
	assert.InDelta(t, 20.0/60.0, got.CPC, 1e-9)
	assert.InDelta(t, 5.0, got.CPM, 1e-9)
	assert.InDelta(t, 2.0, got.Frequency, 1e-9)
}

func TestSumInsightsZeroDenominators(t *testing.T) {
	got := SumInsights([]graph.InsightRow{{Spend: 3}})
	assert.Equal(t, 0.0, got.CPC)
	assert.Equal(t, 0.0, got.CPM)
	assert.Equal(t, 0.0, got.CTR)
	assert.Equal(t, 0.0, got.Frequency)
	assert.Equal(t, Totals{}, SumInsights(nil))
}

func TestClassifyPerformance(t *testing.T) {
	assert.Equal(t, models.PerformanceExcellent, ClassifyPerformance(3.0, 1.5))
	assert.Equal(t, models.PerformanceGood, ClassifyPerformance(3.5, 2.0))
	assert.Equal(t, models.PerformanceGood, ClassifyPerformance(2.0, 2.5))
	assert.Equal(t, models.PerformanceAverage, ClassifyPerformance(1.0, 3.5))
	assert.Equal(t, models.PerformancePoor, ClassifyPerformance(5.0, 4.0))
	assert.Equal(t, models.PerformancePoor, ClassifyPerformance(0, 0))
}

func TestClassifyFatigue(t *testing.T) {
	assert.Equal(t, models.FatigueLow, ClassifyFatigue(0))
	assert.Equal(t, models.FatigueLow, ClassifyFatigue(2.0))
	assert.Equal(t, models.FatigueMedium, ClassifyFatigue(2.01))
	assert.Equal(t, models.FatigueMedium, ClassifyFatigue(5.0))
	assert.Equal(t, models.FatigueHigh, ClassifyFatigue(5.1))
}

func TestMockCreativesCoverEveryType(t *testing.T) {
	records := MockCreatives("act_9")
	types := map[models.CreativeType]bool{}
	for _, r := range records {
		types[r.CreativeType] = true
		assert.Equal(t, "act_9", r.AdAccountID)
		assert.NotEmpty(t, r.Performance)
		assert.NotEmpty(t, r.FatigueLevel)
		if r.CreativeType.HasAssets() {
			assert.NotEmpty(t, r.Assets)
		}
	}
	assert.Len(t, types, 4)
}
