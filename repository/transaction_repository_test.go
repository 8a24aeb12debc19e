package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mansatask/mansatask-api/models"
)

func TestCreateWithReservationCountsUse(t *testing.T) {
	db := newTestDB(t)
	repo := NewTransactionRepository(db)
	user := seedUser(t, db, "merchant@example.com")
	link := seedLink(t, db, user.ID, "cap-000001", intPtr(1))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.CreateWithReservation(ctx, newTxn(user.ID, link.ID, "TXN-1"), now))
	assert.ErrorIs(t, repo.CreateWithReservation(ctx, newTxn(user.ID, link.ID, "TXN-2"), now), ErrLinkUnavailable)

	var reloaded models.PaymentLink
	require.NoError(t, db.First(&reloaded, link.ID).Error)
	assert.Equal(t, 1, reloaded.CurrentUses)

	_, err := repo.FindByExternalReference(ctx, "TXN-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateWithReservationRejectsInactiveAndExpired(t *testing.T) {
	db := newTestDB(t)
	repo := NewTransactionRepository(db)
	user := seedUser(t, db, "merchant@example.com")
	now := time.Now().UTC()
	ctx := context.Background()

	inactive := seedLink(t, db, user.ID, "inactive-000001", nil)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)
	assert.ErrorIs(t, repo.CreateWithReservation(ctx, newTxn(user.ID, inactive.ID, "TXN-A"), now), ErrLinkUnavailable)

	expired := seedLink(t, db, user.ID, "expired-000002", nil)
	require.NoError(t, db.Model(expired).Update("expires_at", now.Add(-time.Second)).Error)
	assert.ErrorIs(t, repo.CreateWithReservation(ctx, newTxn(user.ID, expired.ID, "TXN-B"), now), ErrLinkUnavailable)
}

func TestCreateWithReservationDuplicateIdempotencyKeyRollsBack(t *testing.T) {
	db := newTestDB(t)
	repo := NewTransactionRepository(db)
	user := seedUser(t, db, "merchant@example.com")
	link := seedLink(t, db, user.ID, "idem-000001", nil)
	ctx := context.Background()
	now := time.Now().UTC()

	first := newTxn(user.ID, link.ID, "TXN-1")
	first.IdempotencyKey = strPtr("key-1")
	require.NoError(t, repo.CreateWithReservation(ctx, first, now))

	second := newTxn(user.ID, link.ID, "TXN-2")
	second.IdempotencyKey = strPtr("key-1")
	assert.ErrorIs(t, repo.CreateWithReservation(ctx, second, now), ErrDuplicate)

	var reloaded models.PaymentLink
	require.NoError(t, db.First(&reloaded, link.ID).Error)
	assert.Equal(t, 1, reloaded.CurrentUses)

	found, err := repo.FindByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "TXN-1", found.ExternalReference)
}

func TestCreateWithReservationConcurrent(t *testing.T) {
	db := newTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// sqlite allows a single writer
	sqlDB.SetMaxOpenConns(1)

	repo := NewTransactionRepository(db)
	user := seedUser(t, db, "merchant@example.com")
	link := seedLink(t, db, user.ID, "race-000001", intPtr(3))
	now := time.Now().UTC()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.CreateWithReservation(context.Background(), newTxn(user.ID, link.ID, "TXN-R"+string(rune('A'+i))), now)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	var reloaded models.PaymentLink
	require.NoError(t, db.First(&reloaded, link.ID).Error)
	assert.Equal(t, 3, reloaded.CurrentUses)
}

func TestUpdateStatusCompareAndSwap(t *testing.T) {
	db := newTestDB(t)
	repo := NewTransactionRepository(db)
	user := seedUser(t, db, "merchant@example.com")
	link := seedLink(t, db, user.ID, "cas-000001", intPtr(5))
	ctx := context.Background()

	txn := newTxn(user.ID, link.ID, "TXN-CAS")
	require.NoError(t, repo.CreateWithReservation(ctx, txn, time.Now().UTC()))

	err := repo.UpdateStatus(ctx, txn.ID, models.StatusPending, map[string]interface{}{
		"status":         models.StatusFailed,
		"failure_reason": "declined",
	}, true)
	require.NoError(t, err)

	var reloadedLink models.PaymentLink
	require.NoError(t, db.First(&reloadedLink, link.ID).Error)
	assert.Equal(t, 0, reloadedLink.CurrentUses)

	// the transaction is no longer PENDING
	err = repo.UpdateStatus(ctx, txn.ID, models.StatusPending, map[string]interface{}{"status": models.StatusSuccess}, false)
	assert.ErrorIs(t, err, ErrStaleStatus)

	found, err := repo.FindByExternalReference(ctx, "TXN-CAS")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, found.Status)
	assert.Equal(t, "declined", found.FailureReason)
}

func TestTransactionListFiltersAndStats(t *testing.T) {
	db := newTestDB(t)
	repo := NewTransactionRepository(db)
	user := seedUser(t, db, "merchant@example.com")
	other := seedUser(t, db, "other@example.com")
	link := seedLink(t, db, user.ID, "list-000001", nil)
	otherLink := seedLink(t, db, other.ID, "list-000002", nil)
	ctx := context.Background()

	ok := newTxn(user.ID, link.ID, "TXN-OK")
	ok.Status = models.StatusSuccess
	ok.Amount = decimal.RequireFromString("1500.50")
	require.NoError(t, db.Create(ok).Error)

	failed := newTxn(user.ID, link.ID, "TXN-FAIL")
	failed.Status = models.StatusFailed
	failed.Provider = models.ProviderWave
	failed.CustomerName = "Ama Owusu"
	require.NoError(t, db.Create(failed).Error)

	old := newTxn(user.ID, link.ID, "TXN-OLD")
	old.Status = models.StatusSuccess
	old.Amount = decimal.NewFromInt(500)
	require.NoError(t, db.Create(old).Error)
	require.NoError(t, db.Model(old).Update("created_at", time.Now().UTC().AddDate(0, 0, -10)).Error)

	require.NoError(t, db.Create(newTxn(other.ID, otherLink.ID, "TXN-OTHER")).Error)

	txns, total, err := repo.List(ctx, user.ID, TransactionFilter{}, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, txns, 3)
	require.NotNil(t, txns[0].PaymentLink)
	assert.Equal(t, "Consultation", txns[0].PaymentLink.Title)

	txns, total, err = repo.List(ctx, user.ID, TransactionFilter{Status: models.StatusFailed}, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "TXN-FAIL", txns[0].ExternalReference)

	_, total, err = repo.List(ctx, user.ID, TransactionFilter{Provider: models.ProviderWave}, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	txns, total, err = repo.List(ctx, user.ID, TransactionFilter{Search: "ama"}, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "TXN-FAIL", txns[0].ExternalReference)

	from := time.Now().UTC().AddDate(0, 0, -1)
	_, total, err = repo.List(ctx, user.ID, TransactionFilter{From: &from}, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	stats, err := repo.Stats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.ByStatus[models.StatusSuccess])
	assert.Equal(t, int64(1), stats.ByStatus[models.StatusFailed])
	assert.Equal(t, int64(0), stats.ByStatus[models.StatusPending])
	assert.True(t, decimal.RequireFromString("2000.50").Equal(stats.SuccessAmount), stats.SuccessAmount.String())
}

func TestTransactionFindByIDKeepsDeletedLink(t *testing.T) {
	db := newTestDB(t)
	repo := NewTransactionRepository(db)
	links := NewPaymentLinkRepository(db)
	user := seedUser(t, db, "merchant@example.com")
	link := seedLink(t, db, user.ID, "gone-000001", nil)
	ctx := context.Background()

	txn := newTxn(user.ID, link.ID, "TXN-GONE")
	require.NoError(t, db.Create(txn).Error)
	require.NoError(t, links.Delete(ctx, user.ID, link.ID))

	found, err := repo.FindByID(ctx, user.ID, txn.ID)
	require.NoError(t, err)
	require.NotNil(t, found.PaymentLink)
	assert.Equal(t, "Consultation", found.PaymentLink.Title)

	_, err = repo.FindByID(ctx, user.ID+100, txn.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
