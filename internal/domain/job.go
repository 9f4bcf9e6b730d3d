package domain

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Named queues. Slow file work runs in its own lane so it cannot starve
// emails and notifications.
const (
	QueueDefault        = "default"
	QueueEmails         = "emails"
	QueueFileProcessing = "file-processing"
)

// Job is one unit of background work with at-least-once execution.
// RunAt pushes retries into the future per the job kind's backoff
// schedule; Attempts counts executions so far.
type Job struct {
	ID        int64           `json:"id"`
	Kind      string          `json:"kind"`
	Queue     string          `json:"queue" gorm:"index:idx_jobs_due"`
	Payload   json.RawMessage `json:"payload" gorm:"type:jsonb"`
	Status    JobStatus       `json:"status" gorm:"index:idx_jobs_due"`
	Attempts  int             `json:"attempts"`
	RunAt     time.Time       `json:"run_at" gorm:"index:idx_jobs_due"`
	LastError string          `json:"last_error,omitempty" gorm:"type:text"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
