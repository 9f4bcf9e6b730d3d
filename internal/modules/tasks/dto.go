package tasks

import "time"

type CreateTaskRequest struct {
	Name        string     `json:"name" binding:"required,min=2,max=150"`
	Description string     `json:"description" binding:"max=2000"`
	Status      string     `json:"status" binding:"omitempty,oneof=pending in_progress completed"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"due_date"`
	ProjectID   int64      `json:"project_id" binding:"required,gt=0"`
	AssignedTo  *int64     `json:"assigned_to" binding:"omitempty,gt=0"`
}

type UpdateTaskRequest struct {
	Name        string     `json:"name" binding:"omitempty,min=2,max=150"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
	Status      string     `json:"status" binding:"omitempty,oneof=pending in_progress completed"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  *int64     `json:"assigned_to" binding:"omitempty,gt=0"`
}

type ListTasksQuery struct {
	Status     string `form:"status" binding:"omitempty,oneof=pending in_progress completed"`
	Priority   string `form:"priority" binding:"omitempty,oneof=low medium high"`
	ProjectID  int64  `form:"project_id"`
	AssignedTo int64  `form:"assigned_to"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}
