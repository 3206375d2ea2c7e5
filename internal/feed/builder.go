package feed

import (
	"fmt"
	"time"

	"github.com/bilgisen/agcofeed/internal/config"
	"github.com/bilgisen/agcofeed/internal/models"
	"github.com/gorilla/feeds"
)

const generator = "agcofeed"

// Channel is the feed-level metadata.
type Channel struct {
	ID          string
	Title       string
	Link        string
	Description string
	Language    string
}

// ChannelFromConfig describes the filtered listing as a feed channel.
func ChannelFromConfig(cfg *config.Config) Channel {
	return Channel{
		ID:          cfg.ListingURL(),
		Title:       cfg.FeedTitle,
		Link:        cfg.ListingURL(),
		Description: cfg.FeedDescription,
		Language:    "en",
	}
}

// Builder serializes a channel and its items as RSS 2.0 or Atom 1.0.
type Builder struct {
	channel Channel
	format  string
	now     func() time.Time
}

func NewBuilder(channel Channel, format string) *Builder {
	if format == "" {
		format = config.FormatRSS
	}
	return &Builder{channel: channel, format: format, now: time.Now}
}

// ContentType is the media type of the rendered document.
func (b *Builder) ContentType() string {
	if b.format == config.FormatAtom {
		return "application/atom+xml; charset=utf-8"
	}
	return "application/rss+xml; charset=utf-8"
}

// Render serializes items in the given order.
func (b *Builder) Render(items []models.NewsItem) ([]byte, error) {
	if len(items) == 0 {
		return nil, ErrNoValidItems
	}

	var doc feeds.XmlFeed
	switch b.format {
	case config.FormatRSS:
		doc = b.rss(items)
	case config.FormatAtom:
		doc = b.atom(items)
	default:
		return nil, fmt.Errorf("unknown feed format %q", b.format)
	}

	out, err := feeds.ToXML(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s feed: %w", b.format, err)
	}
	return []byte(out + "\n"), nil
}

// feed maps the channel and items onto a feeds.Feed. entryID picks the per-format item id.
func (b *Builder) feed(items []models.NewsItem, entryID func(models.NewsItem) string) *feeds.Feed {
	f := &feeds.Feed{
		Id:          b.channel.ID,
		Title:       b.channel.Title,
		Link:        &feeds.Link{Href: b.channel.Link, Rel: "alternate"},
		Description: b.channel.Description,
		Updated:     b.now().UTC(),
		Items:       make([]*feeds.Item, 0, len(items)),
	}
	for _, item := range items {
		f.Items = append(f.Items, &feeds.Item{
			Id:          entryID(item),
			IsPermaLink: "false",
			Title:       item.Title,
			Link:        &feeds.Link{Href: item.URL, Rel: "alternate"},
			Created:     item.PublishedAt.UTC(),
			Updated:     item.UpdatedAt.UTC(),
		})
	}
	return f
}

func (b *Builder) rss(items []models.NewsItem) *feeds.RssFeed {
	f := b.feed(items, func(item models.NewsItem) string { return item.ID })

	channel := (&feeds.Rss{Feed: f}).RssFeed()
	channel.Language = b.channel.Language
	channel.Generator = generator
	return channel
}

// atomDocument adds the xml:lang attribute feeds.AtomFeed has no field for.
type atomDocument struct {
	*feeds.AtomFeed
	Lang string `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
}

func (d *atomDocument) FeedXml() interface{} {
	return d
}

func (b *Builder) atom(items []models.NewsItem) *atomDocument {
	f := b.feed(items, func(item models.NewsItem) string { return "urn:sha256:" + item.ID })

	doc := (&feeds.Atom{Feed: f}).AtomFeed()
	doc.Id = b.channel.ID
	for i, entry := range doc.Entries {
		entry.Published = items[i].PublishedAt.UTC().Format(time.RFC3339)
	}
	return &atomDocument{AtomFeed: doc, Lang: b.channel.Language}
}
