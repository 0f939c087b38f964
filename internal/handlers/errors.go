package handlers

import (
	"errors"

	"storefront/internal/logging"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

var statusByKind = map[services.Kind]int{
	services.KindNotFound:     fiber.StatusNotFound,
	services.KindInvalid:      fiber.StatusBadRequest,
	services.KindForbidden:    fiber.StatusForbidden,
	services.KindConflict:     fiber.StatusConflict,
	services.KindUnauthorized: fiber.StatusUnauthorized,
	services.KindUnavailable:  fiber.StatusServiceUnavailable,
}

// writeError maps a service error to a {"detail": ...} response. Unclassified errors
// are logged and reported without their internals.
func writeError(c *fiber.Ctx, err error) error {
	status, ok := statusByKind[services.KindOf(err)]
	if !ok {
		logging.FromContext(c.UserContext()).Error("request failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "An internal error occurred",
		})
	}

	body := fiber.Map{"detail": err.Error()}
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		body["errors"] = vErr.Fields
	}
	if status == fiber.StatusServiceUnavailable {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	return c.Status(status).JSON(body)
}

// parseBody decodes the JSON body into out. Malformed input yields a 400 fiber error.
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		logging.FromContext(c.UserContext()).Info("invalid request body", "error", err)
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return nil
}

// ErrorHandler is the app-wide fiber error handler: fiber errors keep their status and
// everything else goes through writeError.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"detail": fe.Message})
	}
	return writeError(c, err)
}
