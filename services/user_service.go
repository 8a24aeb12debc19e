package services

import (
	"context"
	"errors"
	"strings"

	"github.com/mansatask/mansatask-api/models"
	"github.com/mansatask/mansatask-api/repository"
	"github.com/mansatask/mansatask-api/utils"
)

type UpdateProfileInput struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	BusinessName *string `json:"business_name"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type UserService struct {
	users UserRepository
}

func NewUserService(users UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.FindProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NotFoundError("User not found", err)
		}
		return nil, utils.InternalError("Failed to fetch profile", err)
	}
	return user, nil
}

// UpdateProfile applies a partial update. The email conflict lookup only runs
// when the update carries an email.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, input UpdateProfileInput) (*models.User, error) {
	updates := map[string]interface{}{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if ok, msg := utils.ValidateName(name); !ok {
			return nil, utils.BadRequestError(msg, nil)
		}
		updates["name"] = name
	}

	if input.Email != nil {
		email := utils.NormalizeEmail(*input.Email)
		if ok, msg := utils.ValidateEmail(email); !ok {
			return nil, utils.BadRequestError(msg, nil)
		}
		existing, err := s.users.FindByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != userID:
			return nil, utils.ConflictError(utils.ErrEmailTaken, nil)
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return nil, utils.InternalError("Failed to check email", err)
		}
		updates["email"] = email
	}

	if input.Phone != nil {
		phone := utils.NormalizePhone(*input.Phone)
		if phone == "" {
			updates["phone"] = nil
		} else {
			if ok, msg := utils.ValidatePhone(phone); !ok {
				return nil, utils.BadRequestError(msg, nil)
			}
			updates["phone"] = phone
		}
	}

	if input.BusinessName != nil {
		business := strings.TrimSpace(*input.BusinessName)
		if ok, msg := utils.ValidateXSS(business); !ok {
			return nil, utils.BadRequestError(msg, nil)
		}
		updates["business_name"] = business
	}

	if len(updates) == 0 {
		return nil, utils.BadRequestError("No fields to update", nil)
	}

	if err := s.users.Update(ctx, userID, updates); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			// another account took the email between the check and the write
			return nil, utils.ConflictError(utils.ErrEmailTaken, err)
		case errors.Is(err, repository.ErrNotFound):
			return nil, utils.NotFoundError("User not found", err)
		}
		return nil, utils.InternalError("Failed to update profile", err)
	}

	utils.LogInfo("Profile updated for user ID: %d", userID)
	return s.GetProfile(ctx, userID)
}

func (s *UserService) ChangePassword(ctx context.Context, userID uint, input ChangePasswordInput) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.NotFoundError("User not found", err)
		}
		return utils.InternalError("Failed to fetch user", err)
	}

	if !utils.CheckPassword(input.CurrentPassword, user.Password) {
		return utils.UnauthorizedError("Current password is incorrect", nil)
	}
	if ok, msg := utils.ValidatePassword(input.NewPassword); !ok {
		return utils.BadRequestError(msg, nil)
	}
	if input.NewPassword == input.CurrentPassword {
		return utils.BadRequestError("New password must be different from the current password", nil)
	}

	hash, err := utils.HashPassword(input.NewPassword)
	if err != nil {
		return utils.InternalError("Failed to hash password", err)
	}
	if err := s.users.Update(ctx, userID, map[string]interface{}{"password": hash}); err != nil {
		return utils.InternalError("Failed to update password", err)
	}

	utils.LogInfo("Password changed for user ID: %d", userID)
	return nil
}
