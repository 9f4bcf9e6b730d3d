package repository

import (
	"context"

	"gorm.io/gorm"

	"taskhub/internal/domain"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, c *domain.Comment) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r *CommentRepository) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	var c domain.Comment
	err := r.db.WithContext(ctx).Preload("User").First(&c, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *CommentRepository) Update(ctx context.Context, c *domain.Comment) error {
	return translate(r.db.WithContext(ctx).Save(c).Error)
}

func (r *CommentRepository) Delete(ctx context.Context, id int64) error {
	return translate(r.db.WithContext(ctx).Delete(&domain.Comment{}, id).Error)
}

// ListForTarget returns comments on one polymorphic target, newest first.
func (r *CommentRepository) ListForTarget(ctx context.Context, ref domain.TargetRef, limit, offset int) ([]domain.Comment, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Comment{}).
		Where("commentable_kind = ? AND commentable_id = ?", ref.Kind, ref.ID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var comments []domain.Comment
	err := q.Preload("User").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&comments).Error
	return comments, total, err
}

func (r *CommentRepository) CountForTarget(ctx context.Context, ref domain.TargetRef) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Comment{}).
		Where("commentable_kind = ? AND commentable_id = ?", ref.Kind, ref.ID).
		Count(&count).Error
	return count, err
}
