package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mansatask/mansatask-api/models"
)

type WebhookRepository struct {
	db *gorm.DB
}

func NewWebhookRepository(db *gorm.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

// Create records a provider event. A replayed (provider, event id) pair returns ErrDuplicate.
func (r *WebhookRepository) Create(ctx context.Context, event *models.WebhookEvent) error {
	return translate(r.db.WithContext(ctx).Create(event).Error)
}

func (r *WebhookRepository) FindByProviderEvent(ctx context.Context, provider, eventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.WithContext(ctx).Where("provider = ? AND provider_event_id = ?", provider, eventID).First(&event).Error
	if err != nil {
		return nil, translate(err)
	}
	return &event, nil
}

func (r *WebhookRepository) MarkProcessed(ctx context.Context, id uint, processingError string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processed_at":     now,
		"processing_error": processingError,
	}).Error
}
