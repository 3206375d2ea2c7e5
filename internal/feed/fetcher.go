package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/bilgisen/agcofeed/internal/config"
	"github.com/bilgisen/agcofeed/internal/logger"
	"github.com/bilgisen/agcofeed/internal/models"
	"github.com/go-resty/resty/v2"
)

// ErrNoMarkupChunk means the AJAX response carried no insert command with element markup.
var ErrNoMarkupChunk = errors.New("no insert chunk with markup in ajax response")

// Source returns the category-filtered listing markup.
type Source interface {
	FetchMarkup(ctx context.Context) (string, error)
}

// NewSource builds the configured fetch strategy.
func NewSource(cfg *config.Config) (Source, error) {
	switch cfg.Strategy {
	case config.StrategyDirect:
		return NewAjaxFetcher(cfg), nil
	case config.StrategyBrowser:
		return NewBrowserFetcher(cfg), nil
	default:
		return nil, fmt.Errorf("unknown source strategy %q", cfg.Strategy)
	}
}

var elementMarkup = regexp.MustCompile(`<[A-Za-z][A-Za-z0-9-]*[\s/>]`)

// AjaxFetcher asks the site's views AJAX endpoint for the pre-filtered listing.
type AjaxFetcher struct {
	client   *resty.Client
	endpoint string
	params   map[string]string
}

func NewAjaxFetcher(cfg *config.Config) *AjaxFetcher {
	params := map[string]string{
		"view_name":              cfg.ViewName,
		"view_display_id":        cfg.ViewDisplayID,
		"field_line_of_business": cfg.CategoryCode,
		"_wrapper_format":        "drupal_ajax",
	}
	if cfg.SortBy != "" {
		params["sort_by"] = cfg.SortBy
	}
	if cfg.SortOrder != "" {
		params["sort_order"] = cfg.SortOrder
	}

	return &AjaxFetcher{
		client: resty.New().
			SetTimeout(cfg.FetchTimeout).
			SetHeader("User-Agent", cfg.UserAgent).
			SetHeader("Referer", cfg.ListingURL()),
		endpoint: cfg.AjaxURL(),
		params:   params,
	}
}

// FetchMarkup performs a single request; there are no retries.
func (f *AjaxFetcher) FetchMarkup(ctx context.Context) (string, error) {
	log := logger.Component("ajax_fetcher")
	log.Info().
		Str("endpoint", f.endpoint).
		Str("category", f.params["field_line_of_business"]).
		Msg("Requesting filtered listing")

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(f.params).
		SetHeader("Accept", "application/json").
		SetHeader("X-Requested-With", "XMLHttpRequest").
		Get(f.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to fetch listing from %s: %w", f.endpoint, err)
	}

	if !resp.IsSuccess() {
		return "", fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), f.endpoint)
	}

	var commands []models.AjaxCommand
	if err := json.Unmarshal(resp.Body(), &commands); err != nil {
		return "", fmt.Errorf("failed to decode ajax response: %w", err)
	}

	log.Debug().
		Int("chunks", len(commands)).
		Dur("duration", resp.Time()).
		Msg("Decoded ajax response")

	return SelectInsertChunk(commands)
}

// SelectInsertChunk returns the payload of the first insert command that contains element markup.
func SelectInsertChunk(commands []models.AjaxCommand) (string, error) {
	for _, cmd := range commands {
		if cmd.Command != "insert" {
			continue
		}
		html := cmd.HTML()
		if elementMarkup.MatchString(html) {
			return html, nil
		}
	}
	return "", fmt.Errorf("%w (%d chunks)", ErrNoMarkupChunk, len(commands))
}
