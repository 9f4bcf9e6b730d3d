package auth

import (
	"context"

	"taskhub/internal/domain"
)

type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	AssignRole(ctx context.Context, userID int64, role *domain.Role) error
}

type RoleRepositoryInterface interface {
	GetByName(ctx context.Context, name string) (*domain.Role, error)
}
