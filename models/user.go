package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole controls what a user may do in the dashboard
type UserRole string

const (
	RoleMerchant UserRole = "MERCHANT"
	RoleAdmin    UserRole = "ADMIN"
)

// User represents a merchant account
type User struct {
	gorm.Model
	Name         string     `gorm:"not null" json:"name"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	Phone        *string    `json:"phone"`
	Password     string     `gorm:"not null" json:"-"`
	Role         UserRole   `gorm:"type:varchar(20);not null;default:'MERCHANT'" json:"role"`
	BusinessName string     `json:"business_name"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// DisplayName is the name shown to customers on public pages and receipts
func (u *User) DisplayName() string {
	if u.BusinessName != "" {
		return u.BusinessName
	}
	return u.Name
}
