package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

const purposePasswordReset = "password_reset"

// AuthConfig holds the token settings of AuthService.
type AuthConfig struct {
	JWTSecret        string
	TokenTTL         time.Duration
	PasswordResetTTL time.Duration
	FrontendURL      string
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo   repositories.UserRepository
	notifier   notify.Dispatcher
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
	resetDurat time.Duration
	frontend   string
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, notifier notify.Dispatcher, cfg AuthConfig) *AuthService {
	s := &AuthService{
		userRepo:   userRepo,
		notifier:   notifier,
		jwtSecret:  []byte(cfg.JWTSecret),
		tokenDurat: cfg.TokenTTL,
		resetDurat: cfg.PasswordResetTTL,
		frontend:   cfg.FrontendURL,
	}
	if s.tokenDurat <= 0 {
		s.tokenDurat = 24 * time.Hour
	}
	if s.resetDurat <= 0 {
		s.resetDurat = time.Hour
	}
	return s
}

// RegisterRequest is the body of a registration.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// RegisterUser registers a new user, hashes their password, and saves them to the database.
func (s *AuthService) RegisterUser(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	if existing, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil && existing != nil {
		return nil, &ConflictError{Reason: fmt.Sprintf("username '%s' already taken", req.Username)}
	}
	if existing, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, &ConflictError{Reason: fmt.Sprintf("email '%s' already registered", req.Email)}
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  hashed,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", writeError("user", err))
	}
	logging.FromContext(ctx).Info("user registered", "user_id", user.ID)
	return user, nil
}

// LoginUser authenticates a user and returns a JWT token if successful.
func (s *AuthService) LoginUser(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		// Do not reveal whether the username exists.
		return "", &AuthError{Reason: "invalid credentials"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", &AuthError{Reason: "invalid credentials"}
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"is_staff": user.IsStaff,
		"exp":      now.Add(s.tokenDurat).Unix(),
		"iat":      now.Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates an access token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	claims, err := parseToken(tokenString, s.jwtSecret)
	if err != nil {
		return nil, &AuthError{Reason: "invalid token: " + err.Error()}
	}
	if _, ok := claims["purpose"]; ok {
		return nil, &AuthError{Reason: "invalid token: not an access token"}
	}
	return claims, nil
}

// ChangePasswordRequest is the body of a password change.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

func (s *AuthService) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	if err := Validate(req); err != nil {
		return err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return lookupError("user", userID, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		return NewValidationError("old_password", "old password is not correct")
	}
	return s.setPassword(ctx, user, req.NewPassword)
}

// RequestPasswordReset emails a reset link to the owner of email. Unknown addresses are
// ignored so callers cannot probe for accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := Validate(struct {
		Email string `json:"email" validate:"required,email"`
	}{email}); err != nil {
		return err
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := s.resetToken(user, time.Now())
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/reset-password-confirm/?uid=%s&token=%s",
		s.frontend, url.QueryEscape(user.ID), url.QueryEscape(token))
	if err := s.notifier.Dispatch(ctx, notify.PasswordReset(user, link)); err != nil {
		logging.FromContext(ctx).Error("password reset email not sent", "user_id", user.ID, "error", err)
	}
	return nil
}

// ConfirmPasswordResetRequest is the body of a password reset confirmation.
type ConfirmPasswordResetRequest struct {
	UID         string `json:"uid" validate:"required"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ConfirmPasswordReset sets a new password when token is a valid reset token for uid.
// Tokens are signed with the current password hash, so a token stops working once used.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, req ConfirmPasswordResetRequest) error {
	if err := Validate(req); err != nil {
		return err
	}
	invalid := NewValidationError("token", "invalid or expired reset link")

	user, err := s.userRepo.GetByID(ctx, req.UID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return invalid
		}
		return err
	}
	claims, err := parseToken(req.Token, s.resetKey(user))
	if err != nil {
		return invalid
	}
	if claims["purpose"] != purposePasswordReset || claims["user_id"] != user.ID {
		return invalid
	}
	return s.setPassword(ctx, user, req.NewPassword)
}

func (s *AuthService) resetToken(user *models.User, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"purpose": purposePasswordReset,
		"exp":     now.Add(s.resetDurat).Unix(),
		"iat":     now.Unix(),
	})
	signed, err := token.SignedString(s.resetKey(user))
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) resetKey(user *models.User) []byte {
	key := make([]byte, 0, len(s.jwtSecret)+len(user.Password))
	key = append(key, s.jwtSecret...)
	return append(key, user.Password...)
}

func (s *AuthService) setPassword(ctx context.Context, user *models.User, password string) error {
	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}
	user.Password = hashed
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	logging.FromContext(ctx).Info("password changed", "user_id", user.ID)
	return nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func parseToken(tokenString string, key []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
