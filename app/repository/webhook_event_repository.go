package repository

import (
	"context"
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/MemberGate/app/models"
)

// webhookEventRepository implements the WebhookEventRepository interface
type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository instance
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// Create appends an event to the log
func (r *webhookEventRepository) Create(ctx context.Context, event *models.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListRecent returns up to limit events, newest first
func (r *webhookEventRepository) ListRecent(ctx context.Context, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// ListForReplay returns the matching events oldest first, so replaying them
// leaves the newest state in place. With a limit, the newest events are kept.
func (r *webhookEventRepository) ListForReplay(ctx context.Context, filter ReplayFilter) ([]models.WebhookEvent, error) {
	query := r.db.WithContext(ctx).Model(&models.WebhookEvent{})
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var events []models.WebhookEvent
	if err := query.Order("created_at DESC").Find(&events).Error; err != nil {
		return nil, err
	}
	slices.Reverse(events)
	return events, nil
}

// ListSince returns every event created at or after since, oldest first
func (r *webhookEventRepository) ListSince(ctx context.Context, since time.Time) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}
