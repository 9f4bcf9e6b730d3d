package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/domain"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
)

type jwtService interface {
	GenerateToken(userID int64, roles []string) (string, error)
}

type authorizer interface {
	Authorize(ctx context.Context, sub policy.Subject, action policy.Action, resource any) policy.Decision
}

// Service handles registration, login and the user directory.
type Service struct {
	users UserRepositoryInterface
	roles RoleRepositoryInterface
	jwt   jwtService
	authz authorizer
}

func NewService(users UserRepositoryInterface, roles RoleRepositoryInterface, jwt jwtService, authz authorizer) *Service {
	return &Service{users: users, roles: roles, jwt: jwt, authz: authz}
}

// Register creates a user with the default member role and returns a
// signed token for the new account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Name:         req.Name,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	member, err := s.roles.GetByName(ctx, domain.RoleMember)
	if err == nil {
		if err := s.users.AssignRole(ctx, user.ID, member); err != nil {
			return nil, err
		}
		user.Roles = append(user.Roles, *member)
	}

	token, err := s.jwt.GenerateToken(user.ID, user.RoleNames())
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &AuthResponse{User: user, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID, user.RoleNames())
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &AuthResponse{User: user, Token: token}, nil
}

func (s *Service) GetCurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// ListUsers returns the user directory for subjects granted view-users.
func (s *Service) ListUsers(ctx context.Context, sub policy.Subject) ([]domain.User, error) {
	if d := s.authz.Authorize(ctx, sub, policy.ActionViewUsers, nil); !d.Allowed {
		return nil, ErrForbidden
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

// AssignRole grants a role to a user. Admin only; role assignment is
// how the whole permission model pivots, so it never rides on a grant.
func (s *Service) AssignRole(ctx context.Context, sub policy.Subject, userID int64, roleName string) error {
	if !sub.HasRole(domain.RoleAdmin) {
		return ErrForbidden
	}
	role, err := s.roles.GetByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnknownRole
		}
		return err
	}
	return s.users.AssignRole(ctx, userID, role)
}
