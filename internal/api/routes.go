package api

import (
	"github.com/bilgisen/agcofeed/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// SetupRoutes configures all the routes for the feed server
func SetupRoutes(app *fiber.App, handlers *Handlers, adminKey string) {
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	app.Get("/feed.xml", handlers.GetFeed)

	api := app.Group("/api/v1")
	api.Get("/health", handlers.HealthCheck)

	admin := api.Group("/admin", middleware.AdminOnly(adminKey))
	admin.Post("/refresh", handlers.Refresh)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
