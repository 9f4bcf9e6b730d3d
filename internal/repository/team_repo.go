package repository

import (
	"context"

	"gorm.io/gorm"

	"taskhub/internal/domain"
)

type TeamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) Create(ctx context.Context, t *domain.Team) error {
	return translate(r.db.WithContext(ctx).Create(t).Error)
}

func (r *TeamRepository) GetByID(ctx context.Context, id int64) (*domain.Team, error) {
	var t domain.Team
	err := r.db.WithContext(ctx).Preload("Owner").Preload("Members").First(&t, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *TeamRepository) List(ctx context.Context) ([]domain.Team, error) {
	var teams []domain.Team
	err := r.db.WithContext(ctx).Preload("Owner").Order("created_at DESC").Find(&teams).Error
	return teams, err
}

func (r *TeamRepository) Update(ctx context.Context, t *domain.Team) error {
	return translate(r.db.WithContext(ctx).Save(t).Error)
}

func (r *TeamRepository) Delete(ctx context.Context, id int64) error {
	return translate(r.db.WithContext(ctx).Delete(&domain.Team{}, id).Error)
}

func (r *TeamRepository) AddMember(ctx context.Context, teamID, userID int64) error {
	return r.db.WithContext(ctx).
		Model(&domain.Team{ID: teamID}).
		Association("Members").
		Append(&domain.User{ID: userID})
}

func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, userID int64) error {
	return r.db.WithContext(ctx).
		Model(&domain.Team{ID: teamID}).
		Association("Members").
		Delete(&domain.User{ID: userID})
}
