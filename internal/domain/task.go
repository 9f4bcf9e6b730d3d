package domain

import (
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// Display renders the status for humans ("in_progress" -> "In progress").
func (s TaskStatus) Display() string {
	text := strings.ReplaceAll(string(s), "_", " ")
	if text == "" {
		return text
	}
	return strings.ToUpper(text[:1]) + text[1:]
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Display capitalizes the priority. Stored lowercase, shown capitalized.
func (p TaskPriority) Display() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p)[:1]) + string(p)[1:]
}

type Task struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name" validate:"required,min=2,max=150"`
	Description string       `json:"description,omitempty" gorm:"type:text"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	ProjectID   int64        `json:"project_id"`
	Project     *Project     `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	AssignedTo  *int64       `json:"assigned_to,omitempty"`
	Assignee    *User        `json:"assignee,omitempty" gorm:"foreignKey:AssignedTo"`
	CreatedBy   int64        `json:"created_by"`
	Creator     *User        `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`

	// IsOverdue is a query-performance cache maintained by the periodic
	// sweep. Overdue() is the source of truth; the stored flag may lag
	// behind it by up to one sweep interval.
	IsOverdue bool `json:"is_overdue"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Overdue recomputes the overdue state from due date and status.
func (t *Task) Overdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	return t.DueDate.Before(now) && t.Status != TaskCompleted
}
