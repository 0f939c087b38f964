package services

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// UserService serves profile reads and edits.
type UserService struct {
	userRepo repositories.UserRepository
}

func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// ProfileUpdate carries the profile fields to change; nil fields are left alone.
type ProfileUpdate struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Email     *string `json:"email" validate:"omitempty,email"`
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, lookupError("user", userID, err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*models.User, error) {
	if err := Validate(upd); err != nil {
		return nil, err
	}
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.Email != nil && *upd.Email != user.Email {
		if other, err := s.userRepo.GetByEmail(ctx, *upd.Email); err == nil && other.ID != user.ID {
			return nil, &ConflictError{Reason: fmt.Sprintf("email '%s' already registered", *upd.Email)}
		}
		user.Email = *upd.Email
	}
	if upd.FirstName != nil {
		user.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		user.LastName = *upd.LastName
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", writeError("user", err))
	}
	return user, nil
}

// ListUsers returns every user. Staff only.
func (s *UserService) ListUsers(ctx context.Context, actor Actor) ([]models.User, error) {
	if !actor.IsStaff {
		return nil, &ForbiddenError{Reason: "only staff can list users"}
	}
	return s.userRepo.GetAll(ctx)
}
