package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"taskhub/internal/domain"
	"taskhub/internal/jobs"
)

// OutboxSource is the dispatcher's view of the outbox.
type OutboxSource interface {
	ListUnprocessed(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id int64, now time.Time) error
	BumpAttempts(ctx context.Context, id int64) error
}

// JobQueue enqueues background jobs onto a named queue.
type JobQueue interface {
	Enqueue(ctx context.Context, kind string, payload json.RawMessage, queue string) error
}

type route struct {
	kind  string
	queue string
}

// Dispatcher fans committed events out to background jobs. One event
// may enqueue several independent jobs; one job failing to enqueue
// leaves the event unprocessed for the next pass, so delivery is
// at-least-once and a retried event may re-enqueue jobs that already
// ran.
type Dispatcher struct {
	outbox   OutboxSource
	queue    JobQueue
	routes   map[Type][]route
	interval time.Duration
	batch    int
}

func NewDispatcher(outbox OutboxSource, queue JobQueue, interval time.Duration) *Dispatcher {
	return &Dispatcher{
		outbox:   outbox,
		queue:    queue,
		interval: interval,
		batch:    50,
		routes: map[Type][]route{
			TypeTaskAssigned: {
				{kind: jobs.KindAssignmentEmail, queue: domain.QueueEmails},
				{kind: jobs.KindAssignmentNotification, queue: domain.QueueDefault},
			},
			TypeTaskStatusUpdated: {
				{kind: jobs.KindStatusChangeEmail, queue: domain.QueueEmails},
			},
			// Reserved extension hook: completion currently enqueues nothing.
			TypeTaskCompleted: {},
			TypeCommentCreated: {
				{kind: jobs.KindCommentNotification, queue: domain.QueueDefault},
			},
			TypeAttachmentUploaded: {
				{kind: jobs.KindProcessAttachment, queue: domain.QueueFileProcessing},
			},
			TypeProjectCreated: {},
			TypeProjectUpdated: {},
		},
	}
}

// Run polls the outbox until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Drain(ctx); err != nil {
				log.Printf("outbox dispatch pass failed: %v", err)
			}
		}
	}
}

// Drain processes every currently unprocessed event once.
func (d *Dispatcher) Drain(ctx context.Context) error {
	pending, err := d.outbox.ListUnprocessed(ctx, d.batch)
	if err != nil {
		return err
	}

	for _, evt := range pending {
		if err := d.dispatch(ctx, &evt); err != nil {
			log.Printf("dispatch event id=%d type=%s failed: %v", evt.ID, evt.EventType, err)
			if err := d.outbox.BumpAttempts(ctx, evt.ID); err != nil {
				log.Printf("bump attempts for event id=%d failed: %v", evt.ID, err)
			}
			continue
		}
		if err := d.outbox.MarkProcessed(ctx, evt.ID, time.Now()); err != nil {
			log.Printf("mark processed for event id=%d failed: %v", evt.ID, err)
		}
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, evt *domain.OutboxEvent) error {
	routes, known := d.routes[Type(evt.EventType)]
	if !known {
		// Unknown types are logged and marked processed rather than
		// retried forever: they cannot become routable later.
		log.Printf("outbox event id=%d has unknown type %q", evt.ID, evt.EventType)
		return nil
	}

	if len(routes) == 0 {
		log.Printf("event type=%s id=%d consumed, no jobs routed", evt.EventType, evt.ID)
		return nil
	}

	for _, r := range routes {
		if err := d.queue.Enqueue(ctx, r.kind, evt.Payload, r.queue); err != nil {
			return err
		}
	}
	return nil
}
