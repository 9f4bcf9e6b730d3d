package projects

import "time"

type CreateProjectRequest struct {
	Name        string     `json:"name" binding:"required,min=2,max=150"`
	Description string     `json:"description" binding:"max=2000"`
	Status      string     `json:"status" binding:"omitempty,oneof=pending active completed archived"`
	DueDate     *time.Time `json:"due_date"`
	TeamID      int64      `json:"team_id" binding:"required,gt=0"`
}

type UpdateProjectRequest struct {
	Name        string     `json:"name" binding:"omitempty,min=2,max=150"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
	Status      string     `json:"status" binding:"omitempty,oneof=pending active completed archived"`
	DueDate     *time.Time `json:"due_date"`
}

type MemberRequest struct {
	UserID int64 `json:"user_id" binding:"required,gt=0"`
}
