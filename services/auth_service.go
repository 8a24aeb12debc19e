package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/mansatask/mansatask-api/models"
	"github.com/mansatask/mansatask-api/repository"
	"github.com/mansatask/mansatask-api/utils"
)

// PasswordResetTTL is how long a reset link stays valid
const PasswordResetTTL = time.Hour

type RegisterInput struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required"`
	Phone        string `json:"phone"`
	Password     string `json:"password" binding:"required"`
	BusinessName string `json:"business_name"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshInput struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type ForgotPasswordInput struct {
	Email string `json:"email" binding:"required"`
}

type ResetPasswordInput struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type AuthResult struct {
	User   *models.User     `json:"user"`
	Tokens *utils.TokenPair `json:"tokens"`
}

type AuthService struct {
	users       UserRepository
	tokens      TokenRepository
	jwt         *utils.TokenManager
	mailer      Mailer
	frontendURL string
	now         func() time.Time

	// unknownEmail runs when no account matches, keeping login time flat
	unknownEmail func(password string) bool
}

func NewAuthService(users UserRepository, tokens TokenRepository, jwt *utils.TokenManager, mailer Mailer, frontendURL string) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		jwt:         jwt,
		mailer:      mailer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         func() time.Time { return time.Now().UTC() },

		unknownEmail: utils.CheckDummyPassword,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	email := utils.NormalizeEmail(input.Email)

	if ok, msg := utils.ValidateName(name); !ok {
		return nil, utils.BadRequestError(msg, nil)
	}
	if ok, msg := utils.ValidateEmail(email); !ok {
		return nil, utils.BadRequestError(msg, nil)
	}
	if ok, msg := utils.ValidatePassword(input.Password); !ok {
		return nil, utils.BadRequestError(msg, nil)
	}

	var phone *string
	if p := utils.NormalizePhone(input.Phone); p != "" {
		if ok, msg := utils.ValidatePhone(p); !ok {
			return nil, utils.BadRequestError(msg, nil)
		}
		phone = &p
	}
	business := strings.TrimSpace(input.BusinessName)
	if ok, msg := utils.ValidateXSS(business); !ok {
		return nil, utils.BadRequestError(msg, nil)
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, utils.ConflictError(utils.ErrEmailTaken, nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, utils.InternalError("Failed to check email", err)
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, utils.InternalError("Failed to hash password", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		Phone:        phone,
		Password:     hash,
		Role:         models.RoleMerchant,
		BusinessName: business,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.ConflictError(utils.ErrEmailTaken, err)
		}
		return nil, utils.InternalError("Failed to create user", err)
	}
	utils.LogInfo("User registered with ID: %d", user.ID)

	return s.issue(user)
}

// Login uses one message for unknown emails and wrong passwords
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := utils.NormalizeEmail(input.Email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.unknownEmail(input.Password)
			utils.LogInfo("Login attempt for unknown email")
			return nil, utils.UnauthorizedError(utils.ErrInvalidCredentials, nil)
		}
		return nil, utils.InternalError("Failed to fetch user", err)
	}

	if !utils.CheckPassword(input.Password, user.Password) {
		utils.LogInfo("Invalid password for user ID: %d", user.ID)
		return nil, utils.UnauthorizedError(utils.ErrInvalidCredentials, nil)
	}

	now := s.now()
	if err := s.users.Update(ctx, user.ID, map[string]interface{}{"last_login_at": now}); err != nil {
		utils.LogError("Failed to record login for user ID %d: %v", user.ID, err)
	}
	user.LastLoginAt = &now

	utils.LogInfo("User logged in with ID: %d", user.ID)
	return s.issue(user)
}

// Refresh rotates the refresh token: the presented one is revoked and a new pair issued.
// When two refreshes race on one token only the first revocation succeeds.
func (s *AuthService) Refresh(ctx context.Context, input RefreshInput) (*AuthResult, error) {
	claims, err := s.jwt.ParseRefresh(input.RefreshToken)
	if err != nil {
		return nil, utils.UnauthorizedError(utils.ErrInvalidToken, err)
	}

	revoked, err := s.tokens.IsBlacklisted(ctx, input.RefreshToken)
	if err != nil {
		return nil, utils.InternalError("Failed to check token", err)
	}
	if revoked {
		return nil, utils.UnauthorizedError(utils.ErrInvalidToken, nil)
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.UnauthorizedError(utils.ErrInvalidToken, err)
		}
		return nil, utils.InternalError("Failed to fetch user", err)
	}

	if err := s.tokens.Blacklist(ctx, input.RefreshToken, claims.ExpiresAt); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.UnauthorizedError(utils.ErrInvalidToken, err)
		}
		return nil, utils.InternalError("Failed to rotate token", err)
	}

	return s.issue(user)
}

func (s *AuthService) Logout(ctx context.Context, input RefreshInput) error {
	claims, err := s.jwt.ParseRefresh(input.RefreshToken)
	if err != nil {
		return utils.UnauthorizedError(utils.ErrInvalidToken, err)
	}

	if err := s.tokens.Blacklist(ctx, input.RefreshToken, claims.ExpiresAt); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return utils.InternalError("Failed to revoke token", err)
	}
	utils.LogInfo("User logged out with ID: %d", claims.UserID)
	return nil
}

// ForgotPassword never reveals whether the email belongs to an account;
// failures are logged and the caller always sees success.
func (s *AuthService) ForgotPassword(ctx context.Context, input ForgotPasswordInput) error {
	email := utils.NormalizeEmail(input.Email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			utils.LogError("Failed to look up user for password reset: %v", err)
		}
		return nil
	}

	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		utils.LogError("Failed to generate reset token: %v", err)
		return nil
	}

	reset := &models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: utils.HashToken(token),
		ExpiresAt: s.now().Add(PasswordResetTTL),
	}
	if err := s.tokens.CreatePasswordReset(ctx, reset); err != nil {
		utils.LogError("Failed to store reset token for user ID %d: %v", user.ID, err)
		return nil
	}

	link := s.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
	if err := s.mailer.SendPasswordReset(user.Email, user.Name, link); err != nil {
		utils.LogError("Failed to send reset email to user ID %d: %v", user.ID, err)
		return nil
	}

	utils.LogInfo("Password reset email sent to user ID: %d", user.ID)
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	if ok, msg := utils.ValidatePassword(input.NewPassword); !ok {
		return utils.BadRequestError(msg, nil)
	}

	reset, err := s.tokens.FindPasswordReset(ctx, utils.HashToken(input.Token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.BadRequestError(utils.ErrInvalidToken, nil)
		}
		return utils.InternalError("Failed to verify reset token", err)
	}

	now := s.now()
	if !reset.IsUsable(now) {
		return utils.BadRequestError(utils.ErrInvalidToken, nil)
	}

	hash, err := utils.HashPassword(input.NewPassword)
	if err != nil {
		return utils.InternalError("Failed to hash password", err)
	}

	if err := s.tokens.ResetPassword(ctx, reset.ID, reset.UserID, hash, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.BadRequestError(utils.ErrInvalidToken, nil)
		}
		return utils.InternalError("Failed to reset password", err)
	}

	utils.LogInfo("Password reset for user ID: %d", reset.UserID)
	return nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	pair, err := s.jwt.IssuePair(user)
	if err != nil {
		return nil, utils.InternalError("Failed to generate tokens", err)
	}
	return &AuthResult{User: user, Tokens: pair}, nil
}
