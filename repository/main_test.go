package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mansatask/mansatask-api/models"
)

func newTestDB(t *testing.T) *gorm.DB {
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

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Awa Traore", Email: email, Password: "hash", Role: models.RoleMerchant}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedLink(t *testing.T, db *gorm.DB, userID uint, slug string, maxUses *int) *models.PaymentLink {
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

func newTxn(userID, linkID uint, ref string) *models.Transaction {
	return &models.Transaction{
		UserID:            userID,
		PaymentLinkID:     linkID,
		ExternalReference: ref,
		Status:            models.StatusPending,
		Provider:          models.ProviderMTNMoMo,
		CustomerName:      "Kofi Mensah",
		CustomerPhone:     "+233241234567",
		Amount:            decimal.NewFromInt(5000),
		Currency:          "XOF",
	}
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
