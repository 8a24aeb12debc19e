package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mansatask/mansatask-api/models"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	return translate(r.db.WithContext(ctx).Create(product).Error)
}

// FindByID loads a product owned by userID
func (r *ProductRepository) FindByID(ctx context.Context, userID, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&product).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// List returns the user's products newest first, optionally filtered by name
func (r *ProductRepository) List(ctx context.Context, userID uint, search string, page Page) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("user_id = ?", userID)
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(search))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	if err := page.apply(query.Order("created_at DESC, id DESC")).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductRepository) Update(ctx context.Context, product *models.Product, updates map[string]interface{}) error {
	if err := r.db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
		return translate(err)
	}
	return nil
}

// Delete soft-deletes the product
func (r *ProductRepository) Delete(ctx context.Context, userID, id uint) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
