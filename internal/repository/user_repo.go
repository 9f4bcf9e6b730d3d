package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"taskhub/internal/domain"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	return translate(r.db.WithContext(ctx).Create(u).Error)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Preload("Roles").First(&u, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	email = strings.TrimSpace(strings.ToLower(email))
	err := r.db.WithContext(ctx).Preload("Roles").Where("email = ?", email).First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).Preload("Roles").Order("id").Find(&users).Error
	return users, err
}

func (r *UserRepository) AssignRole(ctx context.Context, userID int64, role *domain.Role) error {
	return r.db.WithContext(ctx).
		Model(&domain.User{ID: userID}).
		Association("Roles").
		Append(role)
}

// TeamIDs returns the ids of every team the user is a member of.
func (r *UserRepository) TeamIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Table("team_members").
		Where("user_id = ?", userID).
		Pluck("team_id", &ids).Error
	return ids, err
}

// ListExcept returns every user except the given one. Used for the
// admin branch of the assignable-user set.
func (r *UserRepository) ListExcept(ctx context.Context, userID int64) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Preload("Roles").
		Where("id != ?", userID).
		Order("id").
		Find(&users).Error
	return users, err
}

// ListTeammatesExcludingRoles returns users sharing at least one of the
// given teams whose role set contains none of the excluded roles.
func (r *UserRepository) ListTeammatesExcludingRoles(ctx context.Context, teamIDs []int64, excluded []string) ([]domain.User, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}

	holders := r.db.Table("user_roles").
		Select("user_roles.user_id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name IN ?", excluded)

	var users []domain.User
	err := r.db.WithContext(ctx).
		Distinct("users.*").
		Joins("JOIN team_members tm ON tm.user_id = users.id").
		Where("tm.team_id IN ?", teamIDs).
		Where("users.id NOT IN (?)", holders).
		Preload("Roles").
		Find(&users).Error
	return users, err
}

// ListTeammatesWithOnlyRole returns users sharing at least one of the
// given teams who hold the named role and nothing else.
func (r *UserRepository) ListTeammatesWithOnlyRole(ctx context.Context, teamIDs []int64, role string) ([]domain.User, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}

	otherRoles := r.db.Table("user_roles").
		Select("user_roles.user_id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name != ?", role)

	var users []domain.User
	err := r.db.WithContext(ctx).
		Distinct("users.*").
		Joins("JOIN team_members tm ON tm.user_id = users.id").
		Joins("JOIN user_roles ur ON ur.user_id = users.id").
		Joins("JOIN roles ON roles.id = ur.role_id AND roles.name = ?", role).
		Where("tm.team_id IN ?", teamIDs).
		Where("users.id NOT IN (?)", otherRoles).
		Preload("Roles").
		Find(&users).Error
	return users, err
}
