package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mansatask/mansatask-api/models"
)

type ReceiptRepository struct {
	db *gorm.DB
}

func NewReceiptRepository(db *gorm.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// Create stores the receipt; a second receipt for one transaction returns ErrDuplicate
func (r *ReceiptRepository) Create(ctx context.Context, receipt *models.Receipt) error {
	return translate(r.db.WithContext(ctx).Create(receipt).Error)
}

func (r *ReceiptRepository) FindByTransactionID(ctx context.Context, transactionID uint) (*models.Receipt, error) {
	var receipt models.Receipt
	if err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&receipt).Error; err != nil {
		return nil, translate(err)
	}
	return &receipt, nil
}
