package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UnlimitedQuantity marks a product whose stock is not tracked
const UnlimitedQuantity = 999999

// Product represents an item a merchant sells through payment links
type Product struct {
	gorm.Model
	UserID       uint            `gorm:"not null;index" json:"user_id"`
	Name         string          `gorm:"not null" json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Currency     string          `gorm:"type:varchar(3);not null;default:'XOF'" json:"currency"`
	ImageURL     string          `json:"image_url"`
	ImageKey     string          `json:"image_key"`
	ThumbnailURL string          `json:"thumbnail_url"`
	Quantity     int             `gorm:"not null" json:"quantity"`
}

// IsUnlimited reports whether the product uses the unlimited stock sentinel
func (p *Product) IsUnlimited() bool {
	return p.Quantity >= UnlimitedQuantity
}
