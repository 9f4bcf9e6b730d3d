package domain

import (
	"database/sql"
	"encoding/json"
	"time"
)

// OutboxEvent is a committed domain event waiting for the dispatcher.
// Rows are appended after the triggering write commits, so a consumer
// never observes an event for state that does not exist.
type OutboxEvent struct {
	ID          int64           `json:"id"`
	EventType   string          `json:"event_type" gorm:"index:idx_outbox_unprocessed"`
	Payload     json.RawMessage `json:"payload" gorm:"type:jsonb"`
	Attempts    int             `json:"attempts"`
	ProcessedAt sql.NullTime    `json:"processed_at,omitempty" gorm:"index:idx_outbox_unprocessed"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }
