package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/bilgisen/agcofeed/internal/config"
	"github.com/bilgisen/agcofeed/internal/models"
	"github.com/bilgisen/agcofeed/internal/utils"
	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChannel() Channel {
	return Channel{
		ID:          "https://www.agco.ca/en/general/news",
		Title:       "AGCO News – Lottery and Gaming",
		Link:        "https://www.agco.ca/en/general/news",
		Description: "Filtered AGCO Ontario news (Lottery and Gaming)",
		Language:    "en",
	}
}

func testItems() []models.NewsItem {
	newItem := func(title, path string, published time.Time) models.NewsItem {
		url := testOrigin + path
		return models.NewsItem{
			ID:          utils.ItemID(title, url),
			Title:       title,
			URL:         url,
			PublishedAt: published,
			UpdatedAt:   published,
		}
	}
	return []models.NewsItem{
		newItem("Retailer fined & suspended", "/en/general/news/item-1", time.Date(2024, 3, 3, 23, 59, 0, 0, time.UTC)),
		newItem("Older notice", "/en/general/news/item-2", time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC)),
		newItem("Newest last", "/en/general/news/item-3", time.Date(2024, 5, 20, 23, 59, 0, 0, time.UTC)),
	}
}

func TestBuilderRenderRSS(t *testing.T) {
	items := testItems()
	builder := NewBuilder(testChannel(), config.FormatRSS)

	data, err := builder.Render(items)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, string(data), `<rss version="2.0"`)
	assert.Contains(t, string(data), `isPermaLink="false"`)

	parsed, err := gofeed.NewParser().ParseString(string(data))
	require.NoError(t, err)

	assert.Equal(t, "rss", parsed.FeedType)
	assert.Equal(t, "2.0", parsed.FeedVersion)
	assert.Equal(t, "AGCO News – Lottery and Gaming", parsed.Title)
	assert.Equal(t, "https://www.agco.ca/en/general/news", parsed.Link)
	assert.Equal(t, "Filtered AGCO Ontario news (Lottery and Gaming)", parsed.Description)
	assert.Equal(t, "en", parsed.Language)
	assert.Equal(t, generator, parsed.Generator)

	require.Len(t, parsed.Items, len(items))
	for i, item := range items {
		got := parsed.Items[i]
		assert.Equal(t, item.Title, got.Title)
		assert.Equal(t, item.URL, got.Link)
		assert.Equal(t, item.ID, got.GUID)
		require.NotNil(t, got.PublishedParsed)
		assert.True(t, item.PublishedAt.Equal(*got.PublishedParsed), "item %d published", i)
	}
}

func TestBuilderRenderAtom(t *testing.T) {
	items := testItems()
	builder := NewBuilder(testChannel(), config.FormatAtom)

	data, err := builder.Render(items)
	require.NoError(t, err)
	assert.Contains(t, string(data), `xml:lang="en"`)

	parsed, err := gofeed.NewParser().ParseString(string(data))
	require.NoError(t, err)

	assert.Equal(t, "atom", parsed.FeedType)
	assert.Equal(t, "AGCO News – Lottery and Gaming", parsed.Title)
	assert.Equal(t, "https://www.agco.ca/en/general/news", parsed.Link)

	require.Len(t, parsed.Items, len(items))
	for i, item := range items {
		got := parsed.Items[i]
		assert.Equal(t, item.Title, got.Title)
		assert.Equal(t, item.URL, got.Link)
		assert.Equal(t, "urn:sha256:"+item.ID, got.GUID)
		require.NotNil(t, got.PublishedParsed)
		require.NotNil(t, got.UpdatedParsed)
		assert.True(t, item.PublishedAt.Equal(*got.PublishedParsed))
		assert.True(t, got.PublishedParsed.Equal(*got.UpdatedParsed))
	}
}

func TestBuilderRenderRejectsEmptyFeed(t *testing.T) {
	_, err := NewBuilder(testChannel(), config.FormatRSS).Render(nil)
	assert.ErrorIs(t, err, ErrNoValidItems)
}

func TestBuilderContentType(t *testing.T) {
	assert.Equal(t, "application/rss+xml; charset=utf-8", NewBuilder(testChannel(), "").ContentType())
	assert.Equal(t, "application/atom+xml; charset=utf-8", NewBuilder(testChannel(), config.FormatAtom).ContentType())
}

func TestChannelFromConfig(t *testing.T) {
	ch := ChannelFromConfig(testConfig("https://www.agco.ca"))

	assert.Equal(t, "https://www.agco.ca/en/general/news", ch.ID)
	assert.Equal(t, "https://www.agco.ca/en/general/news", ch.Link)
	assert.Equal(t, "en", ch.Language)
}
