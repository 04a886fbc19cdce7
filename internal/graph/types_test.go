package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectStorySpecVariant(t *testing.T) {
	var nilSpec *ObjectStorySpec
	assert.Equal(t, StoryNone, nilSpec.Variant())
	assert.Nil(t, nilSpec.Link())
	assert.Nil(t, nilSpec.Video())

	assert.Equal(t, StoryNone, (&ObjectStorySpec{}).Variant())
	assert.Equal(t, StoryLink, (&ObjectStorySpec{LinkData: &LinkData{}}).Variant())
	assert.Equal(t, StoryVideo, (&ObjectStorySpec{VideoData: &VideoData{}}).Variant())
	assert.Equal(t, StoryPhoto, (&ObjectStorySpec{PhotoData: &PhotoData{}}).Variant())
	assert.Equal(t, StoryMixed, (&ObjectStorySpec{LinkData: &LinkData{}, VideoData: &VideoData{}}).Variant())
	assert.Equal(t, "mixed", StoryMixed.String())
}

func TestLinkDataEndCardShapes(t *testing.T) {
	var withCard LinkData
	require.NoError(t, json.Unmarshal([]byte(`{"picture":"p","multi_share_end_card":{"image_url":"end.jpg"},"child_attachments":[{"picture":"c1"}]}`), &withCard))
	require.NotNil(t, withCard.MultiShareEndCard)
	assert.Equal(t, "end.jpg", withCard.MultiShareEndCard.ImageURL)
	assert.Equal(t, "p", withCard.Picture)
	assert.Len(t, withCard.ChildAttachments, 1)

	var withFlag LinkData
	require.NoError(t, json.Unmarshal([]byte(`{"image_url":"i","multi_share_end_card":false}`), &withFlag))
	assert.Nil(t, withFlag.MultiShareEndCard)
	assert.Equal(t, "i", withFlag.ImageURL)
}

func TestLinkDataRoundTrip(t *testing.T) {
	in := LinkData{Picture: "p", MultiShareEndCard: &EndCard{Picture: "e"}}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out LinkData
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestChildAttachmentsEmptyArrayKept(t *testing.T) {
	var spec ObjectStorySpec
	require.NoError(t, json.Unmarshal([]byte(`{"link_data":{"child_attachments":[]}}`), &spec))
	require.NotNil(t, spec.LinkData)
	assert.NotNil(t, spec.LinkData.ChildAttachments)
	assert.Len(t, spec.LinkData.ChildAttachments, 0)
}

func TestNumberDecoding(t *testing.T) {
	var row InsightRow
	require.NoError(t, json.Unmarshal([]byte(`{"impressions":"12","spend":3.5,"reach":null,"clicks":"n/a"}`), &row))
	assert.Equal(t, 12.0, row.Impressions.Float())
	assert.Equal(t, 3.5, row.Spend.Float())
	assert.Equal(t, 0.0, row.Reach.Float())
	assert.Equal(t, 0.0, row.Clicks.Float())
}
