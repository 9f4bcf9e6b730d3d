package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskhub/internal/domain"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// TaskFilters narrows List results. Zero values mean "no filter".
type TaskFilters struct {
	Status     domain.TaskStatus
	Priority   domain.TaskPriority
	ProjectID  int64
	AssignedTo int64
}

func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	return translate(r.db.WithContext(ctx).Create(t).Error)
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	var t domain.Task
	err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("Assignee").
		Preload("Creator").
		First(&t, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *TaskRepository) List(ctx context.Context, f TaskFilters, limit, offset int) ([]domain.Task, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Task{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.ProjectID != 0 {
		q = q.Where("project_id = ?", f.ProjectID)
	}
	if f.AssignedTo != 0 {
		q = q.Where("assigned_to = ?", f.AssignedTo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []domain.Task
	err := q.Preload("Project").Preload("Assignee").Preload("Creator").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&tasks).Error
	return tasks, total, err
}

// MutateInTx loads the task under a row lock, applies the mutation and
// saves it, all inside one transaction. The dirty-check done inside the
// mutate callback therefore observes a consistent snapshot.
func (r *TaskRepository) MutateInTx(ctx context.Context, id int64, mutate func(*domain.Task) error) (*domain.Task, error) {
	var task domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, id).Error; err != nil {
			return err
		}
		if err := mutate(&task); err != nil {
			return err
		}
		return tx.Save(&task).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	return translate(r.db.WithContext(ctx).Delete(&domain.Task{}, id).Error)
}

func (r *TaskRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Where("status != ?", domain.TaskCompleted).
		Where("due_date IS NOT NULL AND due_date < ?", now).
		Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) ListCompleted(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Preload("Project").Preload("Assignee").
		Where("status = ?", domain.TaskCompleted).
		Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) ListHighPriority(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Preload("Project").Preload("Assignee").
		Where("priority = ?", domain.PriorityHigh).
		Find(&tasks).Error
	return tasks, err
}

// SweepOverdue recomputes the stored is_overdue flag for every task.
// Idempotent; safe to run concurrently with normal mutation
// (last-write-wins on the derived flag).
func (r *TaskRepository) SweepOverdue(ctx context.Context, now time.Time) (marked, cleared int64, err error) {
	res := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("due_date IS NOT NULL AND due_date < ?", now).
		Where("status != ?", domain.TaskCompleted).
		Where("is_overdue = ?", false).
		Update("is_overdue", true)
	if res.Error != nil {
		return 0, 0, res.Error
	}
	marked = res.RowsAffected

	res = r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("due_date IS NULL OR due_date >= ? OR status = ?", now, domain.TaskCompleted).
		Where("is_overdue = ?", true).
		Update("is_overdue", false)
	if res.Error != nil {
		return marked, 0, res.Error
	}
	return marked, res.RowsAffected, nil
}
