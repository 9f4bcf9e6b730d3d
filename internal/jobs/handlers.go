package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"taskhub/internal/domain"
	"taskhub/internal/storage"
)

// Handlers decode payloads, re-fetch the entities they reference and do
// the work. Payloads carry identifiers only; the rows are the truth at
// execution time, not at emission time.

type TaskSource interface {
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
}

type UserSource interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type CommentSource interface {
	GetByID(ctx context.Context, id int64) (*domain.Comment, error)
}

type AttachmentStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Attachment, error)
	UpdateFileSize(ctx context.Context, id int64, size int64) error
}

// Notifier creates an in-app notification row.
type Notifier interface {
	Notify(ctx context.Context, userID int64, t domain.NotificationType, data map[string]any) error
}

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Handlers struct {
	tasks       TaskSource
	users       UserSource
	comments    CommentSource
	attachments AttachmentStore
	notifier    Notifier
	mailer      Mailer
	store       *storage.Store
}

func NewHandlers(tasks TaskSource, users UserSource, comments CommentSource, attachments AttachmentStore, notifier Notifier, mailer Mailer, store *storage.Store) *Handlers {
	return &Handlers{
		tasks:       tasks,
		users:       users,
		comments:    comments,
		attachments: attachments,
		notifier:    notifier,
		mailer:      mailer,
		store:       store,
	}
}

// RegisterAll wires every job kind to its handler and retry policy.
func (h *Handlers) RegisterAll(reg *Registry) {
	emailPolicy := RetryPolicy{
		MaxAttempts: 3,
		Backoff:     []time.Duration{time.Minute, 2 * time.Minute, 5 * time.Minute},
		Timeout:     2 * time.Minute,
	}
	notifyPolicy := RetryPolicy{
		MaxAttempts: 3,
		Backoff:     []time.Duration{time.Minute, 2 * time.Minute, 5 * time.Minute},
		Timeout:     time.Minute,
	}
	filePolicy := RetryPolicy{
		MaxAttempts: 3,
		Backoff:     []time.Duration{2 * time.Minute, 5 * time.Minute, 10 * time.Minute},
		Timeout:     5 * time.Minute,
	}

	reg.Register(KindAssignmentEmail, Registration{Queue: domain.QueueEmails, Policy: emailPolicy, Handler: h.SendAssignmentEmail})
	reg.Register(KindStatusChangeEmail, Registration{Queue: domain.QueueEmails, Policy: emailPolicy, Handler: h.SendStatusChangeEmail})
	reg.Register(KindAssignmentNotification, Registration{Queue: domain.QueueDefault, Policy: notifyPolicy, Handler: h.CreateAssignmentNotification})
	reg.Register(KindCommentNotification, Registration{Queue: domain.QueueDefault, Policy: notifyPolicy, Handler: h.CreateCommentNotification})
	reg.Register(KindProcessAttachment, Registration{Queue: domain.QueueFileProcessing, Policy: filePolicy, Handler: h.ProcessAttachment})
}

func (h *Handlers) SendAssignmentEmail(ctx context.Context, payload json.RawMessage) error {
	var p struct {
		TaskID int64 `json:"task_id"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode assignment email payload: %w", err)
	}

	task, err := h.tasks.GetByID(ctx, p.TaskID)
	if err != nil {
		return fmt.Errorf("load task %d: %w", p.TaskID, err)
	}
	if task.AssignedTo == nil {
		log.Printf("assignment email for task id=%d skipped: no assignee", task.ID)
		return nil
	}
	user, err := h.users.GetByID(ctx, *task.AssignedTo)
	if err != nil {
		return fmt.Errorf("load user %d: %w", *task.AssignedTo, err)
	}

	subject := "You have been assigned a new task"
	body := fmt.Sprintf("Hello %s,\n\nYou have been assigned a new task: %s\nPriority: %s\n%s\nPlease log in to view the details.\n",
		user.Name, task.Name, task.Priority.Display(), formatDueDate(task.DueDate))
	return h.mailer.Send(ctx, user.Email, subject, body)
}

func (h *Handlers) SendStatusChangeEmail(ctx context.Context, payload json.RawMessage) error {
	var p struct {
		TaskID    int64  `json:"task_id"`
		OldStatus string `json:"old_status"`
		NewStatus string `json:"new_status"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode status email payload: %w", err)
	}

	task, err := h.tasks.GetByID(ctx, p.TaskID)
	if err != nil {
		return fmt.Errorf("load task %d: %w", p.TaskID, err)
	}
	if task.AssignedTo == nil {
		log.Printf("status change email for task id=%d skipped: no assignee", task.ID)
		return nil
	}
	user, err := h.users.GetByID(ctx, *task.AssignedTo)
	if err != nil {
		return fmt.Errorf("load user %d: %w", *task.AssignedTo, err)
	}

	subject := fmt.Sprintf("Task status updated: %s", task.Name)
	body := fmt.Sprintf("Hello %s,\n\nThe status of task %q changed from %s to %s.\nCurrent status: %s.\n",
		user.Name, task.Name,
		domain.TaskStatus(p.OldStatus).Display(), domain.TaskStatus(p.NewStatus).Display(),
		task.Status.Display())
	return h.mailer.Send(ctx, user.Email, subject, body)
}

func (h *Handlers) CreateAssignmentNotification(ctx context.Context, payload json.RawMessage) error {
	var p struct {
		TaskID int64 `json:"task_id"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode assignment notification payload: %w", err)
	}

	task, err := h.tasks.GetByID(ctx, p.TaskID)
	if err != nil {
		return fmt.Errorf("load task %d: %w", p.TaskID, err)
	}
	if task.AssignedTo == nil {
		log.Printf("assignment notification for task id=%d skipped: no assignee", task.ID)
		return nil
	}

	return h.notifier.Notify(ctx, *task.AssignedTo, domain.NotifTaskAssigned, map[string]any{
		"message":    fmt.Sprintf("You have been assigned a new task: %s", task.Name),
		"task_id":    task.ID,
		"project_id": task.ProjectID,
	})
}

func (h *Handlers) CreateCommentNotification(ctx context.Context, payload json.RawMessage) error {
	var p struct {
		CommentID int64 `json:"comment_id"`
		TaskID    int64 `json:"task_id"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode comment notification payload: %w", err)
	}

	comment, err := h.comments.GetByID(ctx, p.CommentID)
	if err != nil {
		return fmt.Errorf("load comment %d: %w", p.CommentID, err)
	}
	if comment.Target.Kind != domain.KindTask {
		return nil
	}
	task, err := h.tasks.GetByID(ctx, comment.Target.ID)
	if err != nil {
		return fmt.Errorf("load task %d: %w", comment.Target.ID, err)
	}
	if task.AssignedTo == nil {
		log.Printf("comment notification for task id=%d skipped: no assignee", task.ID)
		return nil
	}

	return h.notifier.Notify(ctx, *task.AssignedTo, domain.NotifTaskComment, map[string]any{
		"message":    fmt.Sprintf("New comment on task: %s", task.Name),
		"task_id":    task.ID,
		"comment_id": comment.ID,
	})
}

func formatDueDate(due *time.Time) string {
	if due == nil {
		return "No due date set."
	}
	return fmt.Sprintf("Due: %s\n", due.Format("Jan 2, 2006"))
}
