package tasks

import (
	"context"
	"errors"
	"log"
	"time"

	"taskhub/internal/domain"
	"taskhub/internal/events"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
)

type TaskRepositoryInterface interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	List(ctx context.Context, f repository.TaskFilters, limit, offset int) ([]domain.Task, int64, error)
	MutateInTx(ctx context.Context, id int64, mutate func(*domain.Task) error) (*domain.Task, error)
	Delete(ctx context.Context, id int64) error
	ListCompleted(ctx context.Context) ([]domain.Task, error)
	ListHighPriority(ctx context.Context) ([]domain.Task, error)
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Task, error)
}

type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ListExcept(ctx context.Context, userID int64) ([]domain.User, error)
	TeamIDs(ctx context.Context, userID int64) ([]int64, error)
	ListTeammatesExcludingRoles(ctx context.Context, teamIDs []int64, excluded []string) ([]domain.User, error)
	ListTeammatesWithOnlyRole(ctx context.Context, teamIDs []int64, role string) ([]domain.User, error)
}

type authorizer interface {
	Authorize(ctx context.Context, sub policy.Subject, action policy.Action, resource any) policy.Decision
}

type emitter interface {
	Emit(ctx context.Context, t events.Type, payload any) error
}

type Service struct {
	tasks   TaskRepositoryInterface
	users   UserRepositoryInterface
	authz   authorizer
	emitter emitter
}

func NewService(tasks TaskRepositoryInterface, users UserRepositoryInterface, authz authorizer, em emitter) *Service {
	return &Service{tasks: tasks, users: users, authz: authz, emitter: em}
}

func (s *Service) Create(ctx context.Context, sub policy.Subject, req CreateTaskRequest) (*domain.Task, error) {
	if d := s.authz.Authorize(ctx, sub, policy.ActionCreateTask, nil); !d.Allowed {
		return nil, ErrForbidden
	}
	if req.AssignedTo != nil {
		if err := s.checkAssignee(ctx, sub, *req.AssignedTo); err != nil {
			return nil, err
		}
	}

	status := domain.TaskStatus(req.Status)
	if status == "" {
		status = domain.TaskPending
	}
	priority := domain.TaskPriority(req.Priority)
	if priority == "" {
		priority = domain.PriorityMedium
	}

	task := &domain.Task{
		Name:        req.Name,
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     req.DueDate,
		ProjectID:   req.ProjectID,
		AssignedTo:  req.AssignedTo,
		CreatedBy:   sub.ID,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	if task.AssignedTo != nil {
		s.emit(ctx, events.TypeTaskAssigned, events.TaskAssigned{
			TaskID:     task.ID,
			ProjectID:  task.ProjectID,
			AssignedTo: *task.AssignedTo,
		})
	}
	return task, nil
}

func (s *Service) Get(ctx context.Context, sub policy.Subject, id int64) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if d := s.authz.Authorize(ctx, sub, policy.ActionViewTask, task); !d.Allowed {
		return nil, ErrForbidden
	}
	return task, nil
}

func (s *Service) List(ctx context.Context, sub policy.Subject, q ListTasksQuery) ([]domain.Task, int64, error) {
	if d := s.authz.Authorize(ctx, sub, policy.ActionViewTask, nil); !d.Allowed {
		return nil, 0, ErrForbidden
	}

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	filters := repository.TaskFilters{
		Status:     domain.TaskStatus(q.Status),
		Priority:   domain.TaskPriority(q.Priority),
		ProjectID:  q.ProjectID,
		AssignedTo: q.AssignedTo,
	}
	return s.tasks.List(ctx, filters, limit, q.Offset)
}

// Update mutates the task under a row lock and emits lifecycle events
// once per actual change. The creator is immutable; requests cannot
// touch it. Saving an unchanged status emits nothing.
func (s *Service) Update(ctx context.Context, sub policy.Subject, id int64, req UpdateTaskRequest) (*domain.Task, error) {
	current, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if d := s.authz.Authorize(ctx, sub, policy.ActionUpdateTask, current); !d.Allowed {
		return nil, ErrForbidden
	}
	if req.AssignedTo != nil && (current.AssignedTo == nil || *current.AssignedTo != *req.AssignedTo) {
		if err := s.checkAssignee(ctx, sub, *req.AssignedTo); err != nil {
			return nil, err
		}
	}

	var (
		oldStatus, newStatus domain.TaskStatus
		assigneeChanged      bool
	)
	task, err := s.tasks.MutateInTx(ctx, id, func(t *domain.Task) error {
		oldStatus = t.Status

		if req.Name != "" {
			t.Name = req.Name
		}
		if req.Description != nil {
			t.Description = *req.Description
		}
		if req.Status != "" {
			t.Status = domain.TaskStatus(req.Status)
		}
		if req.Priority != "" {
			t.Priority = domain.TaskPriority(req.Priority)
		}
		if req.DueDate != nil {
			t.DueDate = req.DueDate
		}
		if req.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *req.AssignedTo) {
			t.AssignedTo = req.AssignedTo
			assigneeChanged = true
		}

		newStatus = t.Status
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if newStatus != oldStatus {
		s.emit(ctx, events.TypeTaskStatusUpdated, events.TaskStatusUpdated{
			TaskID:    task.ID,
			OldStatus: oldStatus,
			NewStatus: newStatus,
			UpdatedBy: sub.ID,
		})
		if newStatus == domain.TaskCompleted {
			s.emit(ctx, events.TypeTaskCompleted, events.TaskCompleted{TaskID: task.ID})
		}
	}
	if assigneeChanged && task.AssignedTo != nil {
		s.emit(ctx, events.TypeTaskAssigned, events.TaskAssigned{
			TaskID:     task.ID,
			ProjectID:  task.ProjectID,
			AssignedTo: *task.AssignedTo,
		})
	}
	return task, nil
}

func (s *Service) Delete(ctx context.Context, sub policy.Subject, id int64) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if d := s.authz.Authorize(ctx, sub, policy.ActionDeleteTask, task); !d.Allowed {
		return ErrForbidden
	}
	return s.tasks.Delete(ctx, id)
}

// AssignableUsers returns who the subject may assign tasks to. Admins
// see everyone but themselves; team owners see teammates below them;
// project managers see plain members of their teams. Users holding no
// role and belonging to no team get an empty list instead of a denial.
func (s *Service) AssignableUsers(ctx context.Context, sub policy.Subject) ([]domain.User, error) {
	user, err := s.users.GetByID(ctx, sub.ID)
	if err != nil {
		return nil, err
	}

	switch {
	case user.HasRole(domain.RoleAdmin):
		return s.users.ListExcept(ctx, sub.ID)

	case user.HasRole(domain.RoleTeamOwner):
		teamIDs, err := s.users.TeamIDs(ctx, sub.ID)
		if err != nil {
			return nil, err
		}
		return s.users.ListTeammatesExcludingRoles(ctx, teamIDs, []string{domain.RoleAdmin, domain.RoleTeamOwner})

	case user.HasRole(domain.RoleProjectManager):
		teamIDs, err := s.users.TeamIDs(ctx, sub.ID)
		if err != nil {
			return nil, err
		}
		return s.users.ListTeammatesWithOnlyRole(ctx, teamIDs, domain.RoleMember)
	}

	if len(user.Roles) == 0 {
		teamIDs, err := s.users.TeamIDs(ctx, sub.ID)
		if err != nil {
			return nil, err
		}
		if len(teamIDs) == 0 {
			return []domain.User{}, nil
		}
	}
	return nil, ErrForbidden
}

// checkAssignee rejects a candidate who is not in the subject's
// assignable-user set. Runs before any write touches the task, so a
// bad assignee never persists.
func (s *Service) checkAssignee(ctx context.Context, sub policy.Subject, assigneeID int64) error {
	candidates, err := s.AssignableUsers(ctx, sub)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			return ErrAssigneeNotAllowed
		}
		return err
	}
	for _, u := range candidates {
		if u.ID == assigneeID {
			return nil
		}
	}
	return ErrAssigneeNotAllowed
}

func (s *Service) Completed(ctx context.Context, sub policy.Subject) ([]domain.Task, error) {
	if d := s.authz.Authorize(ctx, sub, policy.ActionViewTask, nil); !d.Allowed {
		return nil, ErrForbidden
	}
	return s.tasks.ListCompleted(ctx)
}

func (s *Service) HighPriority(ctx context.Context, sub policy.Subject) ([]domain.Task, error) {
	if d := s.authz.Authorize(ctx, sub, policy.ActionViewTask, nil); !d.Allowed {
		return nil, ErrForbidden
	}
	return s.tasks.ListHighPriority(ctx)
}

func (s *Service) Overdue(ctx context.Context, sub policy.Subject) ([]domain.Task, error) {
	if d := s.authz.Authorize(ctx, sub, policy.ActionViewTask, nil); !d.Allowed {
		return nil, ErrForbidden
	}
	return s.tasks.ListOverdue(ctx, time.Now())
}

func (s *Service) emit(ctx context.Context, t events.Type, payload any) {
	if err := s.emitter.Emit(ctx, t, payload); err != nil {
		log.Printf("emit %s failed: %v", t, err)
	}
}
