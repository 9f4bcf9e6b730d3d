package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskhub/internal/domain"
)

// TargetResolver loads the entity behind a polymorphic (kind, id) pair.
// Backs both the permission engine's attachment delegation and the
// existence checks done before attaching comments or files.
type TargetResolver struct {
	db *gorm.DB
}

func NewTargetResolver(db *gorm.DB) *TargetResolver {
	return &TargetResolver{db: db}
}

func (r *TargetResolver) ResolveTarget(ctx context.Context, ref domain.TargetRef) (any, error) {
	switch ref.Kind {
	case domain.KindTask:
		var t domain.Task
		if err := r.db.WithContext(ctx).First(&t, ref.ID).Error; err != nil {
			return nil, translate(err)
		}
		return &t, nil
	case domain.KindProject:
		var p domain.Project
		if err := r.db.WithContext(ctx).First(&p, ref.ID).Error; err != nil {
			return nil, translate(err)
		}
		return &p, nil
	case domain.KindComment:
		var c domain.Comment
		if err := r.db.WithContext(ctx).First(&c, ref.ID).Error; err != nil {
			return nil, translate(err)
		}
		return &c, nil
	default:
		return nil, fmt.Errorf("unsupported target kind %q", ref.Kind)
	}
}
