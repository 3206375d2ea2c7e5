package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bilgisen/agcofeed/internal/config"
	"github.com/bilgisen/agcofeed/internal/logger"
	"github.com/chromedp/chromedp"
)

var (
	ErrControlNotFound   = errors.New("listing control not found")
	ErrSelectionMismatch = errors.New("category selection did not take effect")
	ErrResultsTimeout    = errors.New("filtered results did not load")
)

const (
	categorySelect   = `select[name="field_line_of_business"]`
	searchButton     = `input[data-drupal-selector^="edit-submit-search-news"]`
	resultsContainer = `div.view-content`
)

// BrowserFetcher drives a headless Chrome through the listing's filter form.
type BrowserFetcher struct {
	listingURL        string
	categoryCode      string
	categoryName      string
	userAgent         string
	noSandbox         bool
	navigationTimeout time.Duration
	elementTimeout    time.Duration
	resultsTimeout    time.Duration
}

func NewBrowserFetcher(cfg *config.Config) *BrowserFetcher {
	return &BrowserFetcher{
		listingURL:        cfg.ListingURL(),
		categoryCode:      cfg.CategoryCode,
		categoryName:      cfg.CategoryName,
		userAgent:         cfg.UserAgent,
		noSandbox:         cfg.BrowserNoSandbox,
		navigationTimeout: cfg.NavigationTimeout,
		elementTimeout:    cfg.ElementTimeout,
		resultsTimeout:    cfg.ResultsTimeout,
	}
}

func (b *BrowserFetcher) FetchMarkup(ctx context.Context) (string, error) {
	log := logger.Component("browser_fetcher")

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(b.userAgent),
	)
	// Chrome refuses to start sandboxed as root, e.g. inside containers.
	if b.noSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// Start the browser on the long-lived context; step timeouts below must not close it.
	if err := chromedp.Run(browserCtx); err != nil {
		return "", fmt.Errorf("failed to start browser: %w", err)
	}

	log.Info().Str("url", b.listingURL).Msg("Navigating to news listing")
	if err := b.step(browserCtx, b.navigationTimeout, chromedp.Navigate(b.listingURL)); err != nil {
		return "", fmt.Errorf("failed to load %s: %w", b.listingURL, err)
	}

	log.Info().Msg("Waiting for line of business dropdown")
	if err := b.step(browserCtx, b.elementTimeout, chromedp.WaitReady(categorySelect, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrControlNotFound, categorySelect, err)
	}

	var selected string
	err := b.step(browserCtx, b.elementTimeout,
		chromedp.SetValue(categorySelect, b.categoryCode, chromedp.ByQuery),
		chromedp.Evaluate(dispatchChangeJS(categorySelect), nil),
		chromedp.Evaluate(selectedLabelJS(categorySelect), &selected),
	)
	if err != nil {
		return "", fmt.Errorf("failed to select category %s: %w", b.categoryCode, err)
	}
	if selected != b.categoryName {
		return "", fmt.Errorf("%w: expected %q, got %q", ErrSelectionMismatch, b.categoryName, selected)
	}
	log.Info().Str("category", selected).Msg("Selected category")

	var hasButton bool
	if err := b.step(browserCtx, b.elementTimeout, chromedp.Evaluate(existsJS(searchButton), &hasButton)); err != nil {
		return "", fmt.Errorf("failed to look up search button: %w", err)
	}
	if !hasButton {
		return "", fmt.Errorf("%w: %s", ErrControlNotFound, searchButton)
	}

	var initial string
	if err := b.step(browserCtx, b.elementTimeout, chromedp.InnerHTML(resultsContainer, &initial, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrControlNotFound, resultsContainer, err)
	}

	log.Info().Msg("Submitting search and waiting for results to change")
	var changed bool
	err = b.step(browserCtx, b.resultsTimeout,
		chromedp.Evaluate(clickJS(searchButton), nil),
		chromedp.Poll(contentChangedJS(resultsContainer, initial), &changed,
			chromedp.WithPollingInterval(250*time.Millisecond),
			chromedp.WithPollingTimeout(b.resultsTimeout),
		),
	)
	if err != nil {
		return "", fmt.Errorf("%w after %s: %v", ErrResultsTimeout, b.resultsTimeout, err)
	}

	var html string
	if err := b.step(browserCtx, b.elementTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read rendered page: %w", err)
	}

	log.Info().Int("bytes", len(html)).Msg("Filtered results loaded")
	return html, nil
}

func (b *BrowserFetcher) step(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return chromedp.Run(stepCtx, actions...)
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

func dispatchChangeJS(sel string) string {
	return fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (el) el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, jsString(sel))
}

func selectedLabelJS(sel string) string {
	return fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el || el.selectedIndex < 0) return '';
		return el.options[el.selectedIndex].textContent.trim();
	})()`, jsString(sel))
}

func existsJS(sel string) string {
	return fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(sel))
}

func clickJS(sel string) string {
	return fmt.Sprintf(`(() => {
		const btn = document.querySelector(%s);
		if (btn) btn.click();
		return btn !== null;
	})()`, jsString(sel))
}

func contentChangedJS(sel, initial string) string {
	return fmt.Sprintf(`(document.querySelector(%s)?.innerHTML ?? '') !== %s`, jsString(sel), jsString(initial))
}
