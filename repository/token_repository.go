package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mansatask/mansatask-api/models"
)

type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Blacklist records a revoked token. A token already revoked returns ErrDuplicate,
// which lets concurrent refreshes of one token detect that only one may win.
func (r *TokenRepository) Blacklist(ctx context.Context, token string, expiresAt time.Time) error {
	entry := &models.BlacklistedToken{Token: token, ExpiresAt: expiresAt}
	return translate(r.db.WithContext(ctx).Create(entry).Error)
}

func (r *TokenRepository) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BlacklistedToken{}).Where("token = ?", token).Count(&count).Error
	return count > 0, err
}

// PurgeExpired deletes blacklist entries for tokens that expired anyway
func (r *TokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Unscoped().Where("expires_at < ?", now).Delete(&models.BlacklistedToken{})
	return result.RowsAffected, result.Error
}

func (r *TokenRepository) CreatePasswordReset(ctx context.Context, token *models.PasswordResetToken) error {
	return translate(r.db.WithContext(ctx).Create(token).Error)
}

func (r *TokenRepository) FindPasswordReset(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&token).Error; err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

// ResetPassword marks the token used and stores the new hash in one transaction.
// A token consumed concurrently returns ErrNotFound.
func (r *TokenRepository) ResetPassword(ctx context.Context, tokenID, userID uint, passwordHash string, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PasswordResetToken{}).
			Where("id = ? AND used_at IS NULL", tokenID).
			Update("used_at", now)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		result = tx.Model(&models.User{}).Where("id = ?", userID).Update("password", passwordHash)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
