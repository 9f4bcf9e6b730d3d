package repository

import (
	"context"

	"gorm.io/gorm"

	"taskhub/internal/domain"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	err := r.db.WithContext(ctx).Preload("Permissions").Where("name = ?", name).First(&role).Error
	if err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

// LoadGrants returns the role -> permission-name grant table for the
// permission engine. Loaded once at startup; role grants only change
// through reseeding.
func (r *RoleRepository) LoadGrants(ctx context.Context) (map[string]map[string]bool, error) {
	var roles []domain.Role
	if err := r.db.WithContext(ctx).Preload("Permissions").Find(&roles).Error; err != nil {
		return nil, err
	}

	grants := make(map[string]map[string]bool, len(roles))
	for _, role := range roles {
		set := make(map[string]bool, len(role.Permissions))
		for _, p := range role.Permissions {
			set[p.Name] = true
		}
		grants[role.Name] = set
	}
	return grants, nil
}
