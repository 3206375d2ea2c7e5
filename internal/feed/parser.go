package feed

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bilgisen/agcofeed/internal/logger"
	"github.com/bilgisen/agcofeed/internal/models"
	"github.com/bilgisen/agcofeed/internal/utils"
)

// DateLayout is the listing's human readable date, e.g. "March 3, 2024".
const DateLayout = "January 2, 2006"

var (
	ErrNoRows       = errors.New("no news rows found in markup")
	ErrNoValidItems = errors.New("news rows present but none well-formed")
)

// Selectors locate a news row and its parts. They mirror the site's current markup
// and need updating whenever the site changes it.
type Selectors struct {
	Row   string
	Title string
	Link  string // searched inside the title element
	Date  string
}

// ExtractStats summarises one extraction pass.
type ExtractStats struct {
	Rows          int `json:"rows"`
	Items         int `json:"items"`
	Skipped       int `json:"skipped"`
	DateFallbacks int `json:"date_fallbacks"`
}

// Parser turns listing markup into news items
type Parser struct {
	origin    string
	base      *url.URL
	selectors Selectors
	now       func() time.Time
}

func NewParser(origin string, selectors Selectors) *Parser {
	origin = strings.TrimRight(origin, "/")
	base, err := url.Parse(origin + "/")
	if err != nil {
		base = nil
	}
	return &Parser{
		origin:    origin,
		base:      base,
		selectors: selectors,
		now:       time.Now,
	}
}

// Extract returns the well-formed items in source order. Rows missing the title, link
// or date element are skipped. ErrNoRows and ErrNoValidItems are returned when nothing
// could be extracted.
func (p *Parser) Extract(markup string) ([]models.NewsItem, ExtractStats, error) {
	var stats ExtractStats

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, stats, fmt.Errorf("parse HTML failed: %w", err)
	}

	log := logger.Component("parser")
	rows := doc.Find(p.selectors.Row)
	stats.Rows = rows.Length()
	if stats.Rows == 0 {
		return nil, stats, fmt.Errorf("%w (selector %q)", ErrNoRows, p.selectors.Row)
	}

	items := make([]models.NewsItem, 0, stats.Rows)
	rows.Each(func(i int, row *goquery.Selection) {
		item, fallback, ok := p.extractRow(row)
		if !ok {
			stats.Skipped++
			log.Debug().Int("row", i).Msg("Skipping incomplete row")
			return
		}
		if fallback {
			stats.DateFallbacks++
			log.Warn().
				Str("title", item.Title).
				Str("date_text", strings.TrimSpace(row.Find(p.selectors.Date).First().Text())).
				Msg("Date parse issue, using current time")
		}

		log.Info().
			Str("title", item.Title).
			Str("date", item.PublishedAt.Format("2006-01-02")).
			Msg("Added item")
		items = append(items, item)
	})

	stats.Items = len(items)
	if stats.Items == 0 {
		return nil, stats, fmt.Errorf("%w (%d rows)", ErrNoValidItems, stats.Rows)
	}

	return items, stats, nil
}

func (p *Parser) extractRow(row *goquery.Selection) (item models.NewsItem, dateFallback bool, ok bool) {
	titleSel := row.Find(p.selectors.Title).First()
	if titleSel.Length() == 0 {
		return item, false, false
	}
	linkSel := titleSel.Find(p.selectors.Link).First()
	if linkSel.Length() == 0 {
		return item, false, false
	}
	dateSel := row.Find(p.selectors.Date).First()
	if dateSel.Length() == 0 {
		return item, false, false
	}

	href, exists := linkSel.Attr("href")
	href = strings.TrimSpace(href)
	title := strings.TrimSpace(linkSel.Text())
	if !exists || href == "" || title == "" {
		return item, false, false
	}

	link := p.AbsoluteURL(href)
	published, parsed := p.ParseDate(dateSel.Text())

	return models.NewsItem{
		ID:          utils.ItemID(title, link),
		Title:       title,
		URL:         link,
		PublishedAt: published,
		UpdatedAt:   published,
	}, !parsed, true
}

// AbsoluteURL resolves a scraped href against the site origin. Hrefs that are
// already absolute are returned unchanged; protocol-relative ones take the
// origin's scheme.
func (p *Parser) AbsoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if p.base != nil {
		if ref, err := url.Parse(href); err == nil {
			return p.base.ResolveReference(ref).String()
		}
	}
	return p.origin + "/" + strings.TrimLeft(href, "/")
}

// ParseDate reads a "Month D, YYYY" date as 23:59:00 UTC on that day. On failure it
// returns the current time in UTC and false.
func (p *Parser) ParseDate(text string) (time.Time, bool) {
	normalized := strings.Join(strings.Fields(text), " ")
	d, err := time.Parse(DateLayout, normalized)
	if err != nil {
		return p.now().UTC(), false
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 0, 0, time.UTC), true
}
