package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mansatask/mansatask-api/models"
)

const (
	exhaustedCond = "(max_uses IS NOT NULL AND current_uses >= max_uses)"
	expiredCond   = "(expires_at IS NOT NULL AND expires_at <= ?)"
)

type PaymentLinkRepository struct {
	db *gorm.DB
}

func NewPaymentLinkRepository(db *gorm.DB) *PaymentLinkRepository {
	return &PaymentLinkRepository{db: db}
}

// Create inserts the link; a slug collision returns ErrDuplicate
func (r *PaymentLinkRepository) Create(ctx context.Context, link *models.PaymentLink) error {
	return translate(r.db.WithContext(ctx).Omit("User", "Product").Create(link).Error)
}

// FindByID loads a link owned by userID together with its product
func (r *PaymentLinkRepository) FindByID(ctx context.Context, userID, id uint) (*models.PaymentLink, error) {
	var link models.PaymentLink
	err := r.db.WithContext(ctx).
		Preload("Product", withDeleted).
		Where("id = ? AND user_id = ?", id, userID).
		First(&link).Error
	if err != nil {
		return nil, translate(err)
	}
	return &link, nil
}

// FindBySlug loads a live link with its product and merchant for the public page
func (r *PaymentLinkRepository) FindBySlug(ctx context.Context, slug string) (*models.PaymentLink, error) {
	var link models.PaymentLink
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select(profileColumns)
		}).
		Where("slug = ?", slug).
		First(&link).Error
	if err != nil {
		return nil, translate(err)
	}
	return &link, nil
}

// List returns the user's links newest first. status filters on the derived
// display status evaluated at now.
func (r *PaymentLinkRepository) List(ctx context.Context, userID uint, status models.LinkStatus, now time.Time, page Page) ([]models.PaymentLink, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentLink{}).Where("user_id = ?", userID)
	query = filterByLinkStatus(query, status, now.UTC())

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var links []models.PaymentLink
	err := page.apply(query.Preload("Product", withDeleted).Order("created_at DESC, id DESC")).Find(&links).Error
	if err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

func filterByLinkStatus(query *gorm.DB, status models.LinkStatus, now time.Time) *gorm.DB {
	switch status {
	case models.LinkStatusExhausted:
		return query.Where(exhaustedCond)
	case models.LinkStatusExpired:
		return query.Where("NOT "+exhaustedCond).Where(expiredCond, now)
	case models.LinkStatusInactive:
		return query.Where("NOT "+exhaustedCond).Where("NOT "+expiredCond, now).Where("is_active = ?", false)
	case models.LinkStatusActive:
		return query.Where("NOT "+exhaustedCond).Where("NOT "+expiredCond, now).Where("is_active = ?", true)
	}
	return query
}

func (r *PaymentLinkRepository) Update(ctx context.Context, link *models.PaymentLink, updates map[string]interface{}) error {
	if err := r.db.WithContext(ctx).Model(link).Omit("User", "Product").Updates(updates).Error; err != nil {
		return translate(err)
	}
	return nil
}

// Delete soft-deletes the link; transactions keep referencing it
func (r *PaymentLinkRepository) Delete(ctx context.Context, userID, id uint) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.PaymentLink{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivateExpired switches off active links whose expiry has passed
func (r *PaymentLinkRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.PaymentLink{}).
		Where("is_active = ?", true).
		Where(expiredCond, now.UTC()).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

func withDeleted(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}
