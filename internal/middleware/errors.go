package middleware

import (
    "errors"
    "net/http"

    "github.com/bilgisen/agcofeed/internal/logger"
    "github.com/gofiber/fiber/v2"
)

// ErrorHandler renders errors returned by handlers as JSON
func ErrorHandler(c *fiber.Ctx, err error) error {
    code := fiber.StatusInternalServerError

    var fe *fiber.Error
    if errors.As(err, &fe) {
        code = fe.Code
    }

    logger.Get().Error().
        Err(err).
        Str("method", c.Method()).
        Str("path", c.Path()).
        Int("status", code).
        Msg("HTTP error")

    return c.Status(code).JSON(fiber.Map{
        "error": http.StatusText(code),
    })
}
