package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LinkStatus is the display status derived from a link's state
type LinkStatus string

const (
	LinkStatusActive    LinkStatus = "ACTIVE"
	LinkStatusInactive  LinkStatus = "INACTIVE"
	LinkStatusExpired   LinkStatus = "EXPIRED"
	LinkStatusExhausted LinkStatus = "EXHAUSTED"
)

// PaymentLink is a merchant-created, slug-addressed page for a fixed-price item
type PaymentLink struct {
	gorm.Model
	UserID           uint            `gorm:"not null;index" json:"user_id"`
	User             *User           `gorm:"foreignKey:UserID" json:"-"`
	ProductID        *uint           `gorm:"index" json:"product_id"`
	Product          *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Title            string          `gorm:"not null" json:"title"`
	Description      string          `json:"description"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency         string          `gorm:"type:varchar(3);not null;default:'XOF'" json:"currency"`
	Slug             string          `gorm:"uniqueIndex;not null" json:"slug"`
	IsActive         bool            `gorm:"not null" json:"is_active"`
	ExpiresAt        *time.Time      `json:"expires_at"`
	ExpiresAfterDays *int            `json:"expires_after_days"`
	MaxUses          *int            `json:"max_uses"`
	CurrentUses      int             `gorm:"not null;default:0" json:"current_uses"`
}

// IsExpired reports whether the link's expiry has passed
func (l *PaymentLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// IsExhausted reports whether the link reached its use cap
func (l *PaymentLink) IsExhausted() bool {
	return l.MaxUses != nil && l.CurrentUses >= *l.MaxUses
}

// IsUsable reports whether a customer can pay through the link right now
func (l *PaymentLink) IsUsable(now time.Time) bool {
	return l.IsActive && !l.IsExpired(now) && !l.IsExhausted()
}

// Status returns the display status. Exhaustion wins over everything else,
// expiry wins over the active flag.
func (l *PaymentLink) Status(now time.Time) LinkStatus {
	switch {
	case l.IsExhausted():
		return LinkStatusExhausted
	case l.IsExpired(now):
		return LinkStatusExpired
	case !l.IsActive:
		return LinkStatusInactive
	default:
		return LinkStatusActive
	}
}

// RemainingUses returns nil for uncapped links
func (l *PaymentLink) RemainingUses() *int {
	if l.MaxUses == nil {
		return nil
	}
	remaining := *l.MaxUses - l.CurrentUses
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// IsValidLinkStatus reports whether s names a known display status
func IsValidLinkStatus(s string) bool {
	switch LinkStatus(s) {
	case LinkStatusActive, LinkStatusInactive, LinkStatusExpired, LinkStatusExhausted:
		return true
	}
	return false
}
