package repository

import (
	"context"

	"gorm.io/gorm"

	"taskhub/internal/domain"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts the project and its creator membership atomically.
func (r *ProjectRepository) Create(ctx context.Context, p *domain.Project) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return tx.Model(p).Association("Members").Append(&domain.User{ID: p.CreatedBy})
	}))
}

func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	var p domain.Project
	err := r.db.WithContext(ctx).
		Preload("Team").
		Preload("Creator").
		Preload("Members").
		Preload("Tasks").
		First(&p, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *ProjectRepository) List(ctx context.Context) ([]domain.Project, error) {
	var projects []domain.Project
	err := r.db.WithContext(ctx).
		Select("id", "name", "description", "status", "due_date", "team_id", "created_by", "created_at", "updated_at").
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *ProjectRepository) Update(ctx context.Context, p *domain.Project) error {
	return translate(r.db.WithContext(ctx).Save(p).Error)
}

func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	return translate(r.db.WithContext(ctx).Delete(&domain.Project{}, id).Error)
}

func (r *ProjectRepository) AddMember(ctx context.Context, projectID, userID int64) error {
	return r.db.WithContext(ctx).
		Model(&domain.Project{ID: projectID}).
		Association("Members").
		Append(&domain.User{ID: userID})
}

func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID int64) error {
	return r.db.WithContext(ctx).
		Model(&domain.Project{ID: projectID}).
		Association("Members").
		Delete(&domain.User{ID: userID})
}
