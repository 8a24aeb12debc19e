package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mansatask/mansatask-api/gateways"
	"github.com/mansatask/mansatask-api/models"
	"github.com/mansatask/mansatask-api/repository"
)

var errMockDB = errors.New("database unavailable")

type mockUserRepository struct {
	CreateFunc      func(ctx context.Context, user *models.User) error
	FindByIDFunc    func(ctx context.Context, id uint) (*models.User, error)
	FindProfileFunc func(ctx context.Context, id uint) (*models.User, error)
	FindByEmailFunc func(ctx context.Context, email string) (*models.User, error)
	UpdateFunc      func(ctx context.Context, id uint, updates map[string]interface{}) error
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) FindProfile(ctx context.Context, id uint) (*models.User, error) {
	if m.FindProfileFunc != nil {
		return m.FindProfileFunc(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, updates)
	}
	return nil
}

type mockTokenRepository struct {
	BlacklistFunc           func(ctx context.Context, token string, expiresAt time.Time) error
	IsBlacklistedFunc       func(ctx context.Context, token string) (bool, error)
	CreatePasswordResetFunc func(ctx context.Context, token *models.PasswordResetToken) error
	FindPasswordResetFunc   func(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	ResetPasswordFunc       func(ctx context.Context, tokenID, userID uint, passwordHash string, now time.Time) error
}

func (m *mockTokenRepository) Blacklist(ctx context.Context, token string, expiresAt time.Time) error {
	if m.BlacklistFunc != nil {
		return m.BlacklistFunc(ctx, token, expiresAt)
	}
	return nil
}

func (m *mockTokenRepository) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	if m.IsBlacklistedFunc != nil {
		return m.IsBlacklistedFunc(ctx, token)
	}
	return false, nil
}

func (m *mockTokenRepository) CreatePasswordReset(ctx context.Context, token *models.PasswordResetToken) error {
	if m.CreatePasswordResetFunc != nil {
		return m.CreatePasswordResetFunc(ctx, token)
	}
	return nil
}

func (m *mockTokenRepository) FindPasswordReset(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	if m.FindPasswordResetFunc != nil {
		return m.FindPasswordResetFunc(ctx, tokenHash)
	}
	return nil, repository.ErrNotFound
}

func (m *mockTokenRepository) ResetPassword(ctx context.Context, tokenID, userID uint, passwordHash string, now time.Time) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, tokenID, userID, passwordHash, now)
	}
	return nil
}

type sentEmail struct {
	Kind string
	To   string
	Link string
	PDF  []byte
}

type mockMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (m *mockMailer) SendPasswordReset(to, name, resetLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{Kind: "reset", To: to, Link: resetLink})
	return m.err
}

func (m *mockMailer) SendPaymentReceipt(to, name, merchant, receiptNumber string, pdf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{Kind: "receipt", To: to, PDF: pdf})
	return m.err
}

func (m *mockMailer) Sent() []sentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentEmail(nil), m.sent...)
}

type mockGateway struct {
	InitiateFunc    func(ctx context.Context, req gateways.InitiateRequest) (*gateways.InitiateResult, error)
	FetchStatusFunc func(ctx context.Context, providerTransactionID string) (*gateways.StatusResult, error)
	fetchCalls      int
}

func (m *mockGateway) Initiate(ctx context.Context, req gateways.InitiateRequest) (*gateways.InitiateResult, error) {
	if m.InitiateFunc != nil {
		return m.InitiateFunc(ctx, req)
	}
	return &gateways.InitiateResult{ProviderTransactionID: "MM-" + req.ExternalReference, Status: models.StatusProcessing}, nil
}

func (m *mockGateway) FetchStatus(ctx context.Context, providerTransactionID string) (*gateways.StatusResult, error) {
	m.fetchCalls++
	if m.FetchStatusFunc != nil {
		return m.FetchStatusFunc(ctx, providerTransactionID)
	}
	return &gateways.StatusResult{Known: false}, nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(data ReceiptData) ([]byte, error) {
	return []byte("%PDF-" + data.ReceiptNumber), nil
}

func newServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.New().String() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func seedMerchant(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Awa Traore", Email: email, Password: "hash", Role: models.RoleMerchant, BusinessName: "Awa Couture"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedPaymentLink(t *testing.T, db *gorm.DB, userID uint, slug string, maxUses *int) *models.PaymentLink {
	t.Helper()
	link := &models.PaymentLink{
		UserID:   userID,
		Title:    "Consultation",
		Amount:   decimal.NewFromInt(5000),
		Currency: "XOF",
		Slug:     slug,
		IsActive: true,
		MaxUses:  maxUses,
	}
	require.NoError(t, db.Create(link).Error)
	return link
}

func boolPtr(v bool) *bool { return &v }

func seedTransaction(t *testing.T, db *gorm.DB, link *models.PaymentLink, ref string, status models.TransactionStatus) *models.Transaction {
	t.Helper()
	txn := &models.Transaction{
		UserID:            link.UserID,
		PaymentLinkID:     link.ID,
		ExternalReference: ref,
		Status:            status,
		Provider:          models.ProviderMTNMoMo,
		CustomerName:      "Kofi Mensah",
		CustomerPhone:     "+233241234567",
		CustomerEmail:     "kofi@example.com",
		Amount:            link.Amount,
		Currency:          link.Currency,
	}
	require.NoError(t, db.Create(txn).Error)
	return txn
}
