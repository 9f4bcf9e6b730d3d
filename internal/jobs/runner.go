package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"taskhub/internal/domain"
)

// RunnerStore is the runner's view of the job table.
type RunnerStore interface {
	ClaimDue(ctx context.Context, queue string, now time.Time, limit int) ([]domain.Job, error)
	Complete(ctx context.Context, id int64) error
	Retry(ctx context.Context, id int64, attempts int, runAt time.Time, lastError string) error
	Fail(ctx context.Context, id int64, attempts int, lastError string) error
}

// Runner executes queued jobs. One worker goroutine per named queue, so
// slow file processing cannot delay emails or notifications. Failures
// never propagate anywhere near the request that caused the work: the
// triggering mutation committed long ago.
type Runner struct {
	store    RunnerStore
	registry *Registry
	queues   []string
	poll     time.Duration
	timeout  time.Duration // fallback when a kind has no Timeout
	batch    int
}

func NewRunner(store RunnerStore, registry *Registry, queues []string, poll, timeout time.Duration) *Runner {
	return &Runner{
		store:    store,
		registry: registry,
		queues:   queues,
		poll:     poll,
		timeout:  timeout,
		batch:    10,
	}
}

// Run blocks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, queue := range r.queues {
		wg.Add(1)
		go func(queue string) {
			defer wg.Done()
			r.workQueue(ctx, queue)
		}(queue)
	}
	wg.Wait()
}

func (r *Runner) workQueue(ctx context.Context, queue string) {
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RunDue(ctx, queue); err != nil {
				log.Printf("queue %s: claim pass failed: %v", queue, err)
			}
		}
	}
}

// RunDue claims and executes every currently due job on one queue.
func (r *Runner) RunDue(ctx context.Context, queue string) error {
	claimed, err := r.store.ClaimDue(ctx, queue, time.Now(), r.batch)
	if err != nil {
		return err
	}
	for _, job := range claimed {
		r.execute(ctx, &job)
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, job *domain.Job) {
	reg, ok := r.registry.Get(job.Kind)
	if !ok {
		log.Printf("job id=%d kind=%s has no registered handler", job.ID, job.Kind)
		if err := r.store.Fail(ctx, job.ID, job.Attempts+1, "no registered handler"); err != nil {
			log.Printf("job id=%d: mark failed: %v", job.ID, err)
		}
		return
	}

	timeout := reg.Policy.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	err := runHandler(jobCtx, reg.Handler, job)
	cancel()

	attempts := job.Attempts + 1
	if err == nil {
		if err := r.store.Complete(ctx, job.ID); err != nil {
			log.Printf("job id=%d: mark done: %v", job.ID, err)
		}
		return
	}

	if attempts >= reg.Policy.MaxAttempts {
		log.Printf("job id=%d kind=%s failed permanently after %d attempts: %v (payload=%s)",
			job.ID, job.Kind, attempts, err, job.Payload)
		if err := r.store.Fail(ctx, job.ID, attempts, err.Error()); err != nil {
			log.Printf("job id=%d: mark failed: %v", job.ID, err)
		}
		return
	}

	delay := reg.Policy.Delay(attempts)
	log.Printf("job id=%d kind=%s attempt %d/%d failed, retrying in %s: %v",
		job.ID, job.Kind, attempts, reg.Policy.MaxAttempts, delay, err)
	if err := r.store.Retry(ctx, job.ID, attempts, time.Now().Add(delay), err.Error()); err != nil {
		log.Printf("job id=%d: reschedule: %v", job.ID, err)
	}
}

// runHandler converts a handler panic into an ordinary job failure so
// one bad payload cannot take a worker down.
func runHandler(ctx context.Context, h HandlerFunc, job *domain.Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return h(ctx, job.Payload)
}
