package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bilgisen/agcofeed/internal/cache"
	"github.com/bilgisen/agcofeed/internal/config"
	"github.com/bilgisen/agcofeed/internal/logger"
	"github.com/bilgisen/agcofeed/internal/storage"
)

const lockKey = "run-lock"

// ErrRunInProgress means another run holds the run lock.
var ErrRunInProgress = errors.New("another feed run is in progress")

// Publisher copies the rendered feed somewhere other than the local file.
type Publisher interface {
	Publish(ctx context.Context, data []byte, contentType string) error
	Location() string
}

// Result describes a completed run
type Result struct {
	Items         int           `json:"items"`
	Rows          int           `json:"rows"`
	Skipped       int           `json:"skipped"`
	DateFallbacks int           `json:"date_fallbacks"`
	Bytes         int           `json:"bytes"`
	OutputPath    string        `json:"output_path"`
	PublishedTo   string        `json:"published_to,omitempty"`
	Duration      time.Duration `json:"duration"`
}

type Processor struct {
	source    Source
	parser    *Parser
	builder   *Builder
	storage   *storage.Storage
	locker    cache.Locker
	publisher Publisher
	lockTTL   time.Duration
}

// NewProcessor wires the pipeline. publisher may be nil.
func NewProcessor(cfg *config.Config, source Source, store *storage.Storage, locker cache.Locker, publisher Publisher) *Processor {
	return &Processor{
		source: source,
		parser: NewParser(cfg.Origin, Selectors{
			Row:   cfg.RowSelector,
			Title: cfg.TitleSelector,
			Link:  cfg.LinkSelector,
			Date:  cfg.DateSelector,
		}),
		builder:   NewBuilder(ChannelFromConfig(cfg), cfg.FeedFormat),
		storage:   store,
		locker:    locker,
		publisher: publisher,
		lockTTL:   cfg.LockTTL,
	}
}

// Run fetches the listing, extracts items and replaces the feed file. Nothing is
// written unless at least one item was extracted, so a failed run leaves the
// previous feed in place.
func (p *Processor) Run(ctx context.Context) (*Result, error) {
	log := logger.Get()
	start := time.Now()

	token, ok, err := p.locker.Acquire(ctx, lockKey, p.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	defer func() {
		// The run context may already be done; release on a fresh one.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.locker.Release(releaseCtx, lockKey, token); err != nil {
			log.Error().Err(err).Msg("Error releasing run lock")
		}
	}()

	log.Info().Msg("Fetching filtered listing")
	markup, err := p.source.FetchMarkup(ctx)
	if err != nil {
		return nil, fmt.Errorf("error fetching listing: %w", err)
	}

	log.Info().
		Int("bytes", len(markup)).
		Dur("fetch_duration", time.Since(start)).
		Msg("Fetched listing markup")

	items, stats, err := p.parser.Extract(markup)
	if err != nil {
		log.Error().
			Int("rows", stats.Rows).
			Int("skipped", stats.Skipped).
			Msg("No news items found after filtering")
		return nil, err
	}

	log.Info().
		Int("rows", stats.Rows).
		Int("items", stats.Items).
		Int("skipped", stats.Skipped).
		Int("date_fallbacks", stats.DateFallbacks).
		Msg("Extracted news items")

	data, err := p.builder.Render(items)
	if err != nil {
		return nil, fmt.Errorf("error rendering feed: %w", err)
	}

	if err := p.storage.Save(ctx, data); err != nil {
		return nil, fmt.Errorf("error saving feed: %w", err)
	}

	log.Info().
		Str("path", p.storage.Path()).
		Int("bytes", len(data)).
		Msg("Saved feed")

	result := &Result{
		Items:         stats.Items,
		Rows:          stats.Rows,
		Skipped:       stats.Skipped,
		DateFallbacks: stats.DateFallbacks,
		Bytes:         len(data),
		OutputPath:    p.storage.Path(),
	}

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, data, p.builder.ContentType()); err != nil {
			return nil, fmt.Errorf("error publishing feed: %w", err)
		}
		result.PublishedTo = p.publisher.Location()
		log.Info().Str("location", result.PublishedTo).Msg("Published feed")
	}

	result.Duration = time.Since(start)
	log.Info().
		Int("items", result.Items).
		Dur("total_duration", result.Duration).
		Msg("Finished feed run")

	return result, nil
}
