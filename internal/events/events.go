package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskhub/internal/domain"
)

// Type identifies a domain event in the outbox.
type Type string

const (
	TypeTaskAssigned       Type = "task.assigned"
	TypeTaskStatusUpdated  Type = "task.status_updated"
	TypeTaskCompleted      Type = "task.completed"
	TypeCommentCreated     Type = "comment.created"
	TypeAttachmentUploaded Type = "attachment.uploaded"
	TypeProjectCreated     Type = "project.created"
	TypeProjectUpdated     Type = "project.updated"
)

// Event payloads are immutable value records. They carry identifiers,
// not state: consumers re-fetch fresh entities before acting, because
// the world may have moved on between emission and execution.

type TaskAssigned struct {
	TaskID     int64 `json:"task_id"`
	ProjectID  int64 `json:"project_id"`
	AssignedTo int64 `json:"assigned_to"`
}

type TaskStatusUpdated struct {
	TaskID    int64             `json:"task_id"`
	OldStatus domain.TaskStatus `json:"old_status"`
	NewStatus domain.TaskStatus `json:"new_status"`
	UpdatedBy int64             `json:"updated_by"`
}

type TaskCompleted struct {
	TaskID int64 `json:"task_id"`
}

type CommentCreated struct {
	CommentID int64 `json:"comment_id"`
	TaskID    int64 `json:"task_id"`
}

type AttachmentUploaded struct {
	AttachmentID int64    `json:"attachment_id"`
	Operations   []string `json:"operations"`
}

type ProjectCreated struct {
	ProjectID int64 `json:"project_id"`
	CreatedBy int64 `json:"created_by"`
}

type ProjectUpdated struct {
	ProjectID int64          `json:"project_id"`
	UpdatedBy int64          `json:"updated_by"`
	Changes   map[string]any `json:"changes"`
}

// OutboxAppender persists an event record.
type OutboxAppender interface {
	Append(ctx context.Context, e *domain.OutboxEvent) error
}

// Emitter appends typed events to the outbox. Callers emit only after
// the triggering write has committed, so the dispatcher never sees an
// event for state that does not exist.
type Emitter struct {
	outbox OutboxAppender
}

func NewEmitter(outbox OutboxAppender) *Emitter {
	return &Emitter{outbox: outbox}
}

func (e *Emitter) Emit(ctx context.Context, t Type, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return e.outbox.Append(ctx, &domain.OutboxEvent{
		EventType: string(t),
		Payload:   raw,
		CreatedAt: time.Now(),
	})
}
