package jobs

import (
	"context"
	"encoding/json"
	"time"
)

// Job kinds. The dispatcher routes events to these; the runner looks up
// the registered handler by kind.
const (
	KindAssignmentEmail        = "send-assignment-email"
	KindStatusChangeEmail      = "send-status-change-email"
	KindAssignmentNotification = "create-assignment-notification"
	KindCommentNotification    = "create-comment-notification"
	KindProcessAttachment      = "process-attachment"
)

type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// RetryPolicy bounds how often and how soon a failed job runs again.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     []time.Duration
	Timeout     time.Duration
}

// Delay returns the wait before the next run after the given number of
// failed attempts. The last backoff step repeats if attempts exceed it.
func (p RetryPolicy) Delay(attempts int) time.Duration {
	if len(p.Backoff) == 0 {
		return time.Minute
	}
	idx := attempts - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.Backoff) {
		idx = len(p.Backoff) - 1
	}
	return p.Backoff[idx]
}

type Registration struct {
	Queue   string
	Policy  RetryPolicy
	Handler HandlerFunc
}

// Registry maps job kinds to their handler and retry policy.
type Registry struct {
	regs map[string]Registration
}

func NewRegistry() *Registry {
	return &Registry{regs: make(map[string]Registration)}
}

func (r *Registry) Register(kind string, reg Registration) {
	r.regs[kind] = reg
}

func (r *Registry) Get(kind string) (Registration, bool) {
	reg, ok := r.regs[kind]
	return reg, ok
}
