package middleware

import (
    "crypto/subtle"
    "strings"

    "github.com/bilgisen/agcofeed/internal/logger"
    "github.com/gofiber/fiber/v2"
)

// AdminOnly rejects requests whose X-API-Key header does not match adminKey.
// An empty adminKey disables the guarded routes entirely.
func AdminOnly(adminKey string) fiber.Handler {
    return func(c *fiber.Ctx) error {
        if adminKey == "" {
            return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
                "error": "Endpoint not found",
            })
        }

        apiKey := strings.TrimPrefix(c.Get("X-API-Key"), "Bearer ")
        if apiKey == "" {
            logger.Get().Warn().
                Str("method", c.Method()).
                Str("path", c.Path()).
                Str("ip", c.IP()).
                Msg("Admin access attempt without API key")

            return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
                "error": "API key is required",
            })
        }

        if subtle.ConstantTimeCompare([]byte(apiKey), []byte(adminKey)) != 1 {
            logger.Get().Warn().
                Str("method", c.Method()).
                Str("path", c.Path()).
                Str("ip", c.IP()).
                Msg("Unauthorized admin access attempt")

            return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
                "error": "Admin access required",
            })
        }

        return c.Next()
    }
}
