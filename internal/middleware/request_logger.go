package middleware

import (
	"log/slog"
	"time"

	"storefront/internal/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// RequestLogger puts a request-scoped logger into the user context and logs each request
// once it completes. It must run after the requestid middleware.
func RequestLogger(base *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		rid, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
		logger := base.With("request_id", rid, "method", c.Method(), "path", c.Path())
		c.SetUserContext(logging.IntoContext(c.UserContext(), logger))

		err := c.Next()
		if err != nil {
			// Let the app error handler write the response so the status below is final.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		attrs := []any{"status", status, "duration_ms", time.Since(start).Milliseconds()}
		switch {
		case status >= fiber.StatusInternalServerError:
			logger.Error("request completed", attrs...)
		case status >= fiber.StatusBadRequest:
			logger.Warn("request completed", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
		return nil
	}
}
