package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"taskhub/internal/domain"
)

type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) Create(ctx context.Context, a *domain.Attachment) error {
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

func (r *AttachmentRepository) GetByID(ctx context.Context, id int64) (*domain.Attachment, error) {
	var a domain.Attachment
	err := r.db.WithContext(ctx).First(&a, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *AttachmentRepository) Delete(ctx context.Context, id int64) error {
	return translate(r.db.WithContext(ctx).Delete(&domain.Attachment{}, id).Error)
}

func (r *AttachmentRepository) UpdateFileName(ctx context.Context, id int64, name string) error {
	return translate(r.db.WithContext(ctx).Model(&domain.Attachment{}).
		Where("id = ?", id).
		Update("file_name", name).Error)
}

// UpdateFileSize is called by the post-processing job after a re-encode
// changed the stored blob.
func (r *AttachmentRepository) UpdateFileSize(ctx context.Context, id int64, size int64) error {
	return translate(r.db.WithContext(ctx).Model(&domain.Attachment{}).
		Where("id = ?", id).
		Update("file_size", size).Error)
}

func (r *AttachmentRepository) ListForTarget(ctx context.Context, ref domain.TargetRef) ([]domain.Attachment, error) {
	var attachments []domain.Attachment
	err := r.db.WithContext(ctx).
		Where("attachable_kind = ? AND attachable_id = ?", ref.Kind, ref.ID).
		Order("created_at DESC").
		Find(&attachments).Error
	return attachments, err
}

func (r *AttachmentRepository) LatestForTarget(ctx context.Context, ref domain.TargetRef) (*domain.Attachment, error) {
	var a domain.Attachment
	err := r.db.WithContext(ctx).
		Where("attachable_kind = ? AND attachable_id = ?", ref.Kind, ref.ID).
		Order("created_at DESC").
		First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// ListStaleUnowned returns attachments whose owner reference was never
// finalized and that are older than the cutoff. Fed to the cleanup sweep.
func (r *AttachmentRepository) ListStaleUnowned(ctx context.Context, cutoff time.Time) ([]domain.Attachment, error) {
	var attachments []domain.Attachment
	err := r.db.WithContext(ctx).
		Where("attachable_id = 0 OR attachable_id IS NULL").
		Where("created_at < ?", cutoff).
		Find(&attachments).Error
	return attachments, err
}
