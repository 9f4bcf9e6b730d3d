package teams

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskhub/internal/cache"
	"taskhub/internal/domain"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
)

const listCacheKey = "teams:list"

type TeamRepositoryInterface interface {
	Create(ctx context.Context, t *domain.Team) error
	GetByID(ctx context.Context, id int64) (*domain.Team, error)
	List(ctx context.Context) ([]domain.Team, error)
	Update(ctx context.Context, t *domain.Team) error
	Delete(ctx context.Context, id int64) error
	AddMember(ctx context.Context, teamID, userID int64) error
	RemoveMember(ctx context.Context, teamID, userID int64) error
}

type authorizer interface {
	Authorize(ctx context.Context, sub policy.Subject, action policy.Action, resource any) policy.Decision
}

type Service struct {
	teams TeamRepositoryInterface
	authz authorizer
	cache *cache.Cache
}

func NewService(teams TeamRepositoryInterface, authz authorizer, c *cache.Cache) *Service {
	return &Service{teams: teams, authz: authz, cache: c}
}

func (s *Service) Create(ctx context.Context, sub policy.Subject, req CreateTeamRequest) (*domain.Team, error) {
	if d := s.authz.Authorize(ctx, sub, policy.ActionCreateTeam, nil); !d.Allowed {
		return nil, ErrForbidden
	}

	team := &domain.Team{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     sub.ID,
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, err
	}
	s.cache.Forget(listCacheKey)

	// Owner is also a member; team scoping queries rely on that.
	if err := s.teams.AddMember(ctx, team.ID, sub.ID); err != nil {
		return nil, err
	}
	return team, nil
}

func (s *Service) Get(ctx context.Context, sub policy.Subject, id int64) (*domain.Team, error) {
	if d := s.authz.Authorize(ctx, sub, policy.ActionViewTeam, nil); !d.Allowed {
		return nil, ErrForbidden
	}
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return team, nil
}

func (s *Service) List(ctx context.Context, sub policy.Subject) ([]domain.Team, error) {
	if d := s.authz.Authorize(ctx, sub, policy.ActionViewTeam, nil); !d.Allowed {
		return nil, ErrForbidden
	}
	v, err := s.cache.Remember(listCacheKey, time.Minute, func() (any, error) {
		return s.teams.List(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Team), nil
}

func (s *Service) Update(ctx context.Context, sub policy.Subject, id int64, req UpdateTeamRequest) (*domain.Team, error) {
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if d := s.authz.Authorize(ctx, sub, policy.ActionUpdateTeam, team); !d.Allowed {
		return nil, ErrForbidden
	}

	if req.Name != "" {
		team.Name = req.Name
	}
	if req.Description != nil {
		team.Description = *req.Description
	}
	if err := s.teams.Update(ctx, team); err != nil {
		return nil, err
	}
	s.cache.Forget(listCacheKey, s.teamCacheKey(id))
	return team, nil
}

func (s *Service) Delete(ctx context.Context, sub policy.Subject, id int64) error {
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if d := s.authz.Authorize(ctx, sub, policy.ActionDeleteTeam, team); !d.Allowed {
		return ErrForbidden
	}

	if err := s.teams.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Forget(listCacheKey, s.teamCacheKey(id))
	return nil
}

func (s *Service) AddMember(ctx context.Context, sub policy.Subject, teamID, userID int64) error {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if d := s.authz.Authorize(ctx, sub, policy.ActionManageTeamMember, team); !d.Allowed {
		return ErrForbidden
	}
	return s.teams.AddMember(ctx, teamID, userID)
}

func (s *Service) RemoveMember(ctx context.Context, sub policy.Subject, teamID, userID int64) error {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if d := s.authz.Authorize(ctx, sub, policy.ActionManageTeamMember, team); !d.Allowed {
		return ErrForbidden
	}
	return s.teams.RemoveMember(ctx, teamID, userID)
}

func (s *Service) teamCacheKey(id int64) string {
	return fmt.Sprintf("teams:%d", id)
}
