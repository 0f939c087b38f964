package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication and user accounts.
type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

// RegisterRoutes registers the public /auth routes and the authenticated /users routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/password-reset", h.HandlePasswordReset)
	authRoutes.Post("/password-reset/confirm", h.HandlePasswordResetConfirm)

	userRoutes := router.Group("/users", auth)
	userRoutes.Get("/", middleware.StaffOnly(), h.HandleListUsers)
	userRoutes.Get("/profile", h.HandleGetProfile)
	userRoutes.Patch("/profile", h.HandleUpdateProfile)
	userRoutes.Post("/change-password", h.HandleChangePassword)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req services.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.authService.RegisterUser(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := services.Validate(req); err != nil {
		return writeError(c, err)
	}
	token, err := h.authService.LoginUser(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
	})
}

// HandlePasswordReset emails a reset link. The response is the same whether or not the
// address belongs to an account.
func (h *AuthHandler) HandlePasswordReset(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.authService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"detail": "Password reset email sent if the account exists"})
}

func (h *AuthHandler) HandlePasswordResetConfirm(c *fiber.Ctx) error {
	var req services.ConfirmPasswordResetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.authService.ConfirmPasswordReset(c.UserContext(), req); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"detail": "Password has been reset"})
}

func (h *AuthHandler) HandleGetProfile(c *fiber.Ctx) error {
	user, err := h.userService.GetProfile(c.UserContext(), middleware.CurrentActor(c).UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(user)
}

func (h *AuthHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var upd services.ProfileUpdate
	if err := parseBody(c, &upd); err != nil {
		return err
	}
	user, err := h.userService.UpdateProfile(c.UserContext(), middleware.CurrentActor(c).UserID, upd)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(user)
}

func (h *AuthHandler) HandleChangePassword(c *fiber.Ctx) error {
	var req services.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.authService.ChangePassword(c.UserContext(), middleware.CurrentActor(c).UserID, req); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"detail": "Password updated successfully"})
}

func (h *AuthHandler) HandleListUsers(c *fiber.Ctx) error {
	users, err := h.userService.ListUsers(c.UserContext(), middleware.CurrentActor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(users)
}
