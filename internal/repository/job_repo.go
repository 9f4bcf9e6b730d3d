package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"taskhub/internal/domain"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Enqueue(ctx context.Context, j *domain.Job) error {
	return translate(r.db.WithContext(ctx).Create(j).Error)
}

// ClaimDue marks due jobs on one queue as running and returns them.
// The status guard in the update makes the claim safe against a second
// runner polling the same queue.
func (r *JobRepository) ClaimDue(ctx context.Context, queue string, now time.Time, limit int) ([]domain.Job, error) {
	var due []domain.Job
	err := r.db.WithContext(ctx).
		Where("queue = ? AND status = ? AND run_at <= ?", queue, domain.JobPending, now).
		Order("run_at").
		Limit(limit).
		Find(&due).Error
	if err != nil {
		return nil, err
	}

	claimed := make([]domain.Job, 0, len(due))
	for _, j := range due {
		res := r.db.WithContext(ctx).Model(&domain.Job{}).
			Where("id = ? AND status = ?", j.ID, domain.JobPending).
			Update("status", domain.JobRunning)
		if res.Error != nil {
			return claimed, res.Error
		}
		if res.RowsAffected == 1 {
			j.Status = domain.JobRunning
			claimed = append(claimed, j)
		}
	}
	return claimed, nil
}

func (r *JobRepository) Complete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&domain.Job{}).
		Where("id = ?", id).
		Update("status", domain.JobDone).Error
}

// Retry reschedules a failed attempt.
func (r *JobRepository) Retry(ctx context.Context, id int64, attempts int, runAt time.Time, lastError string) error {
	return r.db.WithContext(ctx).Model(&domain.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     domain.JobPending,
			"attempts":   attempts,
			"run_at":     runAt,
			"last_error": lastError,
		}).Error
}

// Fail marks a job terminally failed after retries are exhausted.
func (r *JobRepository) Fail(ctx context.Context, id int64, attempts int, lastError string) error {
	return r.db.WithContext(ctx).Model(&domain.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     domain.JobFailed,
			"attempts":   attempts,
			"last_error": lastError,
		}).Error
}
