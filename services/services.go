package services

import (
	"context"
	"time"

	"github.com/mansatask/mansatask-api/models"
	"github.com/mansatask/mansatask-api/repository"
)

// UserRepository is the user storage the services need
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindProfile(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) error
}

type TokenRepository interface {
	Blacklist(ctx context.Context, token string, expiresAt time.Time) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	CreatePasswordReset(ctx context.Context, token *models.PasswordResetToken) error
	FindPasswordReset(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	ResetPassword(ctx context.Context, tokenID, userID uint, passwordHash string, now time.Time) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, userID, id uint) (*models.Product, error)
	List(ctx context.Context, userID uint, search string, page repository.Page) ([]models.Product, int64, error)
	Update(ctx context.Context, product *models.Product, updates map[string]interface{}) error
	Delete(ctx context.Context, userID, id uint) error
}

type PaymentLinkRepository interface {
	Create(ctx context.Context, link *models.PaymentLink) error
	FindByID(ctx context.Context, userID, id uint) (*models.PaymentLink, error)
	FindBySlug(ctx context.Context, slug string) (*models.PaymentLink, error)
	List(ctx context.Context, userID uint, status models.LinkStatus, now time.Time, page repository.Page) ([]models.PaymentLink, int64, error)
	Update(ctx context.Context, link *models.PaymentLink, updates map[string]interface{}) error
	Delete(ctx context.Context, userID, id uint) error
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type TransactionRepository interface {
	CreateWithReservation(ctx context.Context, txn *models.Transaction, now time.Time) error
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error)
	FindByExternalReference(ctx context.Context, ref string) (*models.Transaction, error)
	FindByProviderTransactionID(ctx context.Context, provider models.PaymentProvider, providerTxnID string) (*models.Transaction, error)
	FindByID(ctx context.Context, userID, id uint) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, id uint, from models.TransactionStatus, updates map[string]interface{}, releaseUse bool) error
	Update(ctx context.Context, id uint, updates map[string]interface{}) error
	List(ctx context.Context, userID uint, filter repository.TransactionFilter, page repository.Page) ([]models.Transaction, int64, error)
	Stats(ctx context.Context, userID uint) (*repository.TransactionStats, error)
}

type ReceiptRepository interface {
	Create(ctx context.Context, receipt *models.Receipt) error
	FindByTransactionID(ctx context.Context, transactionID uint) (*models.Receipt, error)
}

type WebhookRepository interface {
	Create(ctx context.Context, event *models.WebhookEvent) error
	FindByProviderEvent(ctx context.Context, provider, eventID string) (*models.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, processingError string, now time.Time) error
}

// Mailer sends the transactional emails
type Mailer interface {
	SendPasswordReset(to, name, resetLink string) error
	SendPaymentReceipt(to, name, merchant, receiptNumber string, pdf []byte) error
}
