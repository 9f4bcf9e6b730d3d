package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, (&Task{Status: TaskPending}).Overdue(now), "no due date")
	assert.True(t, (&Task{Status: TaskPending, DueDate: &past}).Overdue(now))
	assert.False(t, (&Task{Status: TaskCompleted, DueDate: &past}).Overdue(now), "completed tasks are never overdue")
	assert.False(t, (&Task{Status: TaskPending, DueDate: &future}).Overdue(now))
}

func TestStatusDisplay(t *testing.T) {
	assert.Equal(t, "In progress", TaskInProgress.Display())
	assert.Equal(t, "Pending", TaskPending.Display())
	assert.Equal(t, "High", PriorityHigh.Display())
}
