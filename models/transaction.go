package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TransactionStatus tracks a payment attempt through the provider
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "PENDING"
	StatusProcessing TransactionStatus = "PROCESSING"
	StatusSuccess    TransactionStatus = "SUCCESS"
	StatusFailed     TransactionStatus = "FAILED"
	StatusCancelled  TransactionStatus = "CANCELLED"
)

// PaymentProvider identifies the mobile-money operator or gateway
type PaymentProvider string

const (
	ProviderMTNMoMo     PaymentProvider = "MTN_MOMO"
	ProviderOrangeMoney PaymentProvider = "ORANGE_MONEY"
	ProviderMoovMoney   PaymentProvider = "MOOV_MONEY"
	ProviderWave        PaymentProvider = "WAVE"
	ProviderRazorpay    PaymentProvider = "RAZORPAY"
)

// Providers lists every supported provider
var Providers = []PaymentProvider{
	ProviderMTNMoMo,
	ProviderOrangeMoney,
	ProviderMoovMoney,
	ProviderWave,
	ProviderRazorpay,
}

// ParseProvider validates a provider name
func ParseProvider(s string) (PaymentProvider, bool) {
	for _, p := range Providers {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// ParseStatus validates a status name
func ParseStatus(s string) (TransactionStatus, bool) {
	switch st := TransactionStatus(s); st {
	case StatusPending, StatusProcessing, StatusSuccess, StatusFailed, StatusCancelled:
		return st, true
	}
	return "", false
}

// IsTerminal reports whether no further transition is allowed
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCancelled
}

// CanTransitionTo reports whether moving from s to next follows the
// one-directional lifecycle PENDING -> PROCESSING -> terminal.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next.IsTerminal()
	case StatusProcessing:
		return next.IsTerminal()
	}
	return false
}

// ReleasesUse reports whether reaching s gives the reserved link use back
func (s TransactionStatus) ReleasesUse() bool {
	return s == StatusFailed || s == StatusCancelled
}

// Transaction is one customer payment attempt against a payment link
type Transaction struct {
	gorm.Model
	UserID                uint              `gorm:"not null;index" json:"user_id"`
	PaymentLinkID         uint              `gorm:"not null;index" json:"payment_link_id"`
	PaymentLink           *PaymentLink      `gorm:"foreignKey:PaymentLinkID" json:"payment_link,omitempty"`
	ExternalReference     string            `gorm:"uniqueIndex;not null" json:"external_reference"`
	IdempotencyKey        *string           `gorm:"uniqueIndex" json:"-"`
	ProviderTransactionID string            `gorm:"index" json:"provider_transaction_id"`
	Status                TransactionStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Provider              PaymentProvider   `gorm:"type:varchar(20);not null;index" json:"provider"`
	CustomerName          string            `gorm:"not null" json:"customer_name"`
	CustomerPhone         string            `gorm:"not null" json:"customer_phone"`
	CustomerEmail         string            `json:"customer_email"`
	Amount                decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency              string            `gorm:"type:varchar(3);not null" json:"currency"`
	FailureReason         string            `json:"failure_reason,omitempty"`
	Metadata              datatypes.JSON    `json:"metadata,omitempty"`
	CompletedAt           *time.Time        `json:"completed_at"`
	LastCheckedAt         *time.Time        `json:"-"`
	Receipt               *Receipt          `gorm:"foreignKey:TransactionID" json:"receipt,omitempty"`
}
