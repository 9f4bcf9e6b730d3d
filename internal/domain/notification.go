package domain

import (
	"database/sql"
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotifTaskAssigned NotificationType = "task_assigned"
	NotifTaskComment  NotificationType = "task_comment"
)

// Notification is an immutable fact created by job handlers, never by
// direct user action. Only ReadAt ever changes after insert.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id" gorm:"index:idx_notifications_user"`
	Type      NotificationType `json:"type"`
	Data      json.RawMessage  `json:"data,omitempty" gorm:"type:jsonb"`
	ReadAt    sql.NullTime     `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func (n *Notification) IsRead() bool {
	return n.ReadAt.Valid
}

// MarkRead stamps the read time once; re-reading is a no-op.
func (n *Notification) MarkRead(now time.Time) {
	if !n.ReadAt.Valid {
		n.ReadAt = sql.NullTime{Time: now, Valid: true}
	}
}
