package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringPtr(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	if p := StringPtr("x"); assert.NotNil(t, p) {
		assert.Equal(t, "x", *p)
	}
}

func TestCreativeAssetEmpty(t *testing.T) {
	assert.True(t, CreativeAsset{ThumbnailURL: StringPtr("t")}.Empty())
	assert.False(t, CreativeAsset{ImageURL: StringPtr("i")}.Empty())
	assert.False(t, CreativeAsset{VideoURL: StringPtr("v")}.Empty())
}

func TestCreativeTypeHasAssets(t *testing.T) {
	assert.True(t, CreativeTypeCarousel.HasAssets())
	assert.True(t, CreativeTypeDynamic.HasAssets())
	assert.False(t, CreativeTypeVideo.HasAssets())
	assert.False(t, CreativeTypeImage.HasAssets())
}

func TestCreativeRecordJSONShape(t *testing.T) {
	rec := CreativeRecord{ID: "c1", CreativeType: CreativeTypeVideo, ImageURL: StringPtr("i.jpg")}
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "video", out["creativeType"])
	assert.Equal(t, "i.jpg", out["imageUrl"])
	assert.Contains(t, out, "videoUrl")
	assert.Nil(t, out["videoUrl"])
	assert.NotContains(t, out, "assets")
}
