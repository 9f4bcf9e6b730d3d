package jobs

import (
	"context"
	"encoding/json"
	"time"

	"taskhub/internal/domain"
)

// JobStore persists queued jobs.
type JobStore interface {
	Enqueue(ctx context.Context, j *domain.Job) error
}

// Queue accepts background work. Delivery is at-least-once: a job row
// survives process restarts and is retried per its kind's policy.
type Queue struct {
	store JobStore
}

func NewQueue(store JobStore) *Queue {
	return &Queue{store: store}
}

func (q *Queue) Enqueue(ctx context.Context, kind string, payload json.RawMessage, queue string) error {
	if queue == "" {
		queue = domain.QueueDefault
	}
	return q.store.Enqueue(ctx, &domain.Job{
		Kind:    kind,
		Queue:   queue,
		Payload: payload,
		Status:  domain.JobPending,
		RunAt:   time.Now(),
	})
}
