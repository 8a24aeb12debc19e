package models

import (
	"time"

	"gorm.io/gorm"
)

// BlacklistedToken holds refresh tokens that were rotated or logged out
type BlacklistedToken struct {
	gorm.Model
	Token     string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// PasswordResetToken stores the sha256 of an emailed reset token
type PasswordResetToken struct {
	gorm.Model
	UserID    uint       `gorm:"not null;index"`
	TokenHash string     `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time  `gorm:"not null"`
	UsedAt    *time.Time
}

// IsUsable reports whether the token can still reset a password
func (t *PasswordResetToken) IsUsable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
