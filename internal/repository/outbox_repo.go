package repository

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"taskhub/internal/domain"
)

type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Append records a committed domain event for the dispatcher.
func (r *OutboxRepository) Append(ctx context.Context, e *domain.OutboxEvent) error {
	return translate(r.db.WithContext(ctx).Create(e).Error)
}

func (r *OutboxRepository) ListUnprocessed(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	var events []domain.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Order("id").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *OutboxRepository) MarkProcessed(ctx context.Context, id int64, now time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.OutboxEvent{}).
		Where("id = ?", id).
		Update("processed_at", sql.NullTime{Time: now, Valid: true}).Error
}

// BumpAttempts leaves the event unprocessed for a later pass.
func (r *OutboxRepository) BumpAttempts(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&domain.OutboxEvent{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
}
