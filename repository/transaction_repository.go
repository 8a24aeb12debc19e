package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mansatask/mansatask-api/models"
)

// TransactionFilter narrows a merchant's transaction listing
type TransactionFilter struct {
	Status        models.TransactionStatus
	Provider      models.PaymentProvider
	From          *time.Time
	To            *time.Time
	PaymentLinkID uint
	Search        string
}

// TransactionStats summarises a merchant's transactions
type TransactionStats struct {
	Total         int64                              `json:"total"`
	ByStatus      map[models.TransactionStatus]int64 `json:"by_status"`
	SuccessAmount decimal.Decimal                    `json:"success_amount"`
}

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// CreateWithReservation reserves one use on the link and inserts the
// transaction in a single database transaction. The reservation is a
// conditional update, so concurrent payments cannot push a link past its cap.
func (r *TransactionRepository) CreateWithReservation(ctx context.Context, txn *models.Transaction, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PaymentLink{}).
			Where("id = ? AND is_active = ?", txn.PaymentLinkID, true).
			Where("(expires_at IS NULL OR expires_at > ?)", now.UTC()).
			Where("(max_uses IS NULL OR current_uses < max_uses)").
			UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrLinkUnavailable
		}

		if err := tx.Omit("PaymentLink", "Receipt").Create(txn).Error; err != nil {
			return translate(err)
		}
		return nil
	})
}

func (r *TransactionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	return r.findOne(ctx, "idempotency_key = ?", key)
}

func (r *TransactionRepository) FindByExternalReference(ctx context.Context, ref string) (*models.Transaction, error) {
	return r.findOne(ctx, "external_reference = ?", ref)
}

func (r *TransactionRepository) FindByProviderTransactionID(ctx context.Context, provider models.PaymentProvider, providerTxnID string) (*models.Transaction, error) {
	return r.findOne(ctx, "provider = ? AND provider_transaction_id = ?", provider, providerTxnID)
}

// FindByID loads a merchant's transaction with its link title and receipt
func (r *TransactionRepository) FindByID(ctx context.Context, userID, id uint) (*models.Transaction, error) {
	return r.findOne(ctx, "id = ? AND user_id = ?", id, userID)
}

func (r *TransactionRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Preload("PaymentLink", withDeleted).
		Preload("Receipt").
		Where(query, args...).
		First(&txn).Error
	if err != nil {
		return nil, translate(err)
	}
	return &txn, nil
}

// UpdateStatus moves the transaction from one status to the next only if it
// still holds the expected status. releaseUse gives the reserved use back to
// the link in the same database transaction.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id uint, from models.TransactionStatus, updates map[string]interface{}, releaseUse bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txn models.Transaction
		if err := tx.Select("id", "payment_link_id").First(&txn, id).Error; err != nil {
			return translate(err)
		}

		result := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", id, from).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleStatus
		}

		if releaseUse {
			err := tx.Unscoped().Model(&models.PaymentLink{}).
				Where("id = ? AND current_uses > 0", txn.PaymentLinkID).
				UpdateColumn("current_uses", gorm.Expr("current_uses - 1")).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Update stores fields that do not take part in the status machine
func (r *TransactionRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	return translate(r.db.WithContext(ctx).Model(&models.Transaction{}).Where("id = ?", id).Updates(updates).Error)
}

// List returns a merchant's transactions newest first
func (r *TransactionRepository) List(ctx context.Context, userID uint, filter TransactionFilter, page Page) ([]models.Transaction, int64, error) {
	query := r.filtered(ctx, userID, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txns []models.Transaction
	err := page.apply(query.
		Preload("PaymentLink", withDeleted).
		Preload("Receipt").
		Order("created_at DESC, id DESC")).
		Find(&txns).Error
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func (r *TransactionRepository) filtered(ctx context.Context, userID uint, filter TransactionFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Provider != "" {
		query = query.Where("provider = ?", filter.Provider)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", filter.To.UTC())
	}
	if filter.PaymentLinkID != 0 {
		query = query.Where("payment_link_id = ?", filter.PaymentLinkID)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where(
			"(LOWER(external_reference) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(customer_phone) LIKE ? OR LOWER(customer_email) LIKE ?)",
			pattern, pattern, pattern, pattern,
		)
	}
	return query
}

func (r *TransactionRepository) Stats(ctx context.Context, userID uint) (*TransactionStats, error) {
	var rows []struct {
		Status models.TransactionStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &TransactionStats{ByStatus: map[models.TransactionStatus]int64{}}
	for _, s := range []models.TransactionStatus{
		models.StatusPending, models.StatusProcessing, models.StatusSuccess, models.StatusFailed, models.StatusCancelled,
	} {
		stats.ByStatus[s] = 0
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.Total += row.Count
	}

	var sum struct {
		Total decimal.NullDecimal
	}
	err = r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("SUM(amount) AS total").
		Where("user_id = ? AND status = ?", userID, models.StatusSuccess).
		Scan(&sum).Error
	if err != nil {
		return nil, err
	}
	stats.SuccessAmount = decimal.Zero
	if sum.Total.Valid {
		stats.SuccessAmount = sum.Total.Decimal
	}
	return stats, nil
}
