package projects

import (
	"context"
	"errors"
	"log"
	"time"

	"taskhub/internal/cache"
	"taskhub/internal/domain"
	"taskhub/internal/events"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
)

const listCacheKey = "projects:list"

type ProjectRepositoryInterface interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id int64) (*domain.Project, error)
	List(ctx context.Context) ([]domain.Project, error)
	Update(ctx context.Context, p *domain.Project) error
	Delete(ctx context.Context, id int64) error
	AddMember(ctx context.Context, projectID, userID int64) error
	RemoveMember(ctx context.Context, projectID, userID int64) error
}

type authorizer interface {
	Authorize(ctx context.Context, sub policy.Subject, action policy.Action, resource any) policy.Decision
}

type emitter interface {
	Emit(ctx context.Context, t events.Type, payload any) error
}

type Service struct {
	projects ProjectRepositoryInterface
	authz    authorizer
	emitter  emitter
	cache    *cache.Cache
}

func NewService(projects ProjectRepositoryInterface, authz authorizer, em emitter, c *cache.Cache) *Service {
	return &Service{projects: projects, authz: authz, emitter: em, cache: c}
}

func (s *Service) Create(ctx context.Context, sub policy.Subject, req CreateProjectRequest) (*domain.Project, error) {
	if d := s.authz.Authorize(ctx, sub, policy.ActionCreateProject, nil); !d.Allowed {
		return nil, ErrForbidden
	}

	status := domain.ProjectStatus(req.Status)
	if status == "" {
		status = domain.ProjectPending
	}

	project := &domain.Project{
		Name:        req.Name,
		Description: req.Description,
		Status:      status,
		DueDate:     req.DueDate,
		TeamID:      req.TeamID,
		CreatedBy:   sub.ID,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}
	s.cache.Forget(listCacheKey)

	// The insert has committed; a lost event only costs downstream work.
	if err := s.emitter.Emit(ctx, events.TypeProjectCreated, events.ProjectCreated{
		ProjectID: project.ID,
		CreatedBy: sub.ID,
	}); err != nil {
		log.Printf("emit project.created for id=%d failed: %v", project.ID, err)
	}
	return project, nil
}

func (s *Service) Get(ctx context.Context, sub policy.Subject, id int64) (*domain.Project, error) {
	if d := s.authz.Authorize(ctx, sub, policy.ActionViewProject, nil); !d.Allowed {
		return nil, ErrForbidden
	}
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return project, nil
}

func (s *Service) List(ctx context.Context, sub policy.Subject) ([]domain.Project, error) {
	if d := s.authz.Authorize(ctx, sub, policy.ActionViewProject, nil); !d.Allowed {
		return nil, ErrForbidden
	}
	v, err := s.cache.Remember(listCacheKey, time.Minute, func() (any, error) {
		return s.projects.List(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Project), nil
}

func (s *Service) Update(ctx context.Context, sub policy.Subject, id int64, req UpdateProjectRequest) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if d := s.authz.Authorize(ctx, sub, policy.ActionUpdateProject, project); !d.Allowed {
		return nil, ErrForbidden
	}

	changes := map[string]any{}
	if req.Name != "" && req.Name != project.Name {
		project.Name = req.Name
		changes["name"] = req.Name
	}
	if req.Description != nil && *req.Description != project.Description {
		project.Description = *req.Description
		changes["description"] = *req.Description
	}
	if req.Status != "" && domain.ProjectStatus(req.Status) != project.Status {
		project.Status = domain.ProjectStatus(req.Status)
		changes["status"] = req.Status
	}
	if req.DueDate != nil {
		project.DueDate = req.DueDate
		changes["due_date"] = req.DueDate
	}
	if len(changes) == 0 {
		return project, nil
	}

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, err
	}
	s.cache.Forget(listCacheKey)

	if err := s.emitter.Emit(ctx, events.TypeProjectUpdated, events.ProjectUpdated{
		ProjectID: project.ID,
		UpdatedBy: sub.ID,
		Changes:   changes,
	}); err != nil {
		log.Printf("emit project.updated for id=%d failed: %v", project.ID, err)
	}
	return project, nil
}

func (s *Service) Delete(ctx context.Context, sub policy.Subject, id int64) error {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if d := s.authz.Authorize(ctx, sub, policy.ActionDeleteProject, project); !d.Allowed {
		return ErrForbidden
	}

	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Forget(listCacheKey)
	return nil
}

func (s *Service) AddMember(ctx context.Context, sub policy.Subject, projectID, userID int64) error {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if d := s.authz.Authorize(ctx, sub, policy.ActionManageProjectMember, project); !d.Allowed {
		return ErrForbidden
	}
	return s.projects.AddMember(ctx, projectID, userID)
}

func (s *Service) RemoveMember(ctx context.Context, sub policy.Subject, projectID, userID int64) error {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if d := s.authz.Authorize(ctx, sub, policy.ActionManageProjectMember, project); !d.Allowed {
		return ErrForbidden
	}
	return s.projects.RemoveMember(ctx, projectID, userID)
}
