package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bilgisen/agcofeed/internal/feed"
	"github.com/bilgisen/agcofeed/internal/logger"
	"github.com/bilgisen/agcofeed/internal/storage"
	"github.com/gofiber/fiber/v2"
)

// FeedStore reads the generated feed document.
type FeedStore interface {
	Load(ctx context.Context) ([]byte, time.Time, error)
	Exists() bool
}

// Runner executes one feed run.
type Runner interface {
	Run(ctx context.Context) (*feed.Result, error)
}

type Handlers struct {
	store       FeedStore
	runner      Runner
	contentType string
	runTimeout  time.Duration
}

func NewHandlers(store FeedStore, runner Runner, contentType string, runTimeout time.Duration) *Handlers {
	return &Handlers{
		store:       store,
		runner:      runner,
		contentType: contentType,
		runTimeout:  runTimeout,
	}
}

// HealthCheck handles GET /api/v1/health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "ok",
		"time":           time.Now().UTC().Format(time.RFC3339),
		"feed_available": h.store.Exists(),
	})
}

// GetFeed handles GET /feed.xml
func (h *Handlers) GetFeed(c *fiber.Ctx) error {
	data, modTime, err := h.store.Load(c.UserContext())
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Feed has not been generated yet",
		})
	}
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error loading feed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load feed",
		})
	}

	modTime = modTime.UTC().Truncate(time.Second)
	if since := c.Get(fiber.HeaderIfModifiedSince); since != "" {
		if t, err := http.ParseTime(since); err == nil && !modTime.After(t) {
			return c.SendStatus(fiber.StatusNotModified)
		}
	}

	c.Set(fiber.HeaderContentType, h.contentType)
	c.Set(fiber.HeaderLastModified, modTime.Format(http.TimeFormat))
	c.Set(fiber.HeaderCacheControl, "public, max-age=300")
	return c.Send(data)
}

// Refresh handles POST /api/v1/admin/refresh
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	log := logger.Get()
	log.Info().
		Str("ip", c.IP()).
		Msg("Received feed refresh request")

	ctx, cancel := context.WithTimeout(c.UserContext(), h.runTimeout)
	defer cancel()

	result, err := h.runner.Run(ctx)
	if errors.Is(err, feed.ErrRunInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		log.Error().Err(err).Msg("Feed refresh failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"result": result,
	})
}
