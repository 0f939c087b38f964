package middleware

import (
	"strings"

	"storefront/internal/logging"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by AuthRequired.
const (
	LocalUserID   = "user_id"
	LocalUsername = "username"
	LocalIsStaff  = "is_staff"
)

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Authorization header format must be 'Bearer <token>'",
			})
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			logging.FromContext(c.UserContext()).Info("jwt validation failed", "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Invalid or expired token",
			})
		}

		userID, _ := claims["user_id"].(string)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Invalid or expired token",
			})
		}
		username, _ := claims["username"].(string)
		isStaff, _ := claims["is_staff"].(bool)

		// Store claims in Fiber context for subsequent handlers
		c.Locals(LocalUserID, userID)
		c.Locals(LocalUsername, username)
		c.Locals(LocalIsStaff, isStaff)

		logger := logging.FromContext(c.UserContext()).With("user_id", userID)
		c.SetUserContext(logging.IntoContext(c.UserContext(), logger))
		return c.Next()
	}
}

// StaffOnly rejects non-staff users. It must run after AuthRequired.
func StaffOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isStaff, _ := c.Locals(LocalIsStaff).(bool); !isStaff {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"detail": "You do not have permission to perform this action",
			})
		}
		return c.Next()
	}
}

// CurrentActor returns the authenticated user set by AuthRequired.
func CurrentActor(c *fiber.Ctx) services.Actor {
	userID, _ := c.Locals(LocalUserID).(string)
	isStaff, _ := c.Locals(LocalIsStaff).(bool)
	return services.Actor{UserID: userID, IsStaff: isStaff}
}
