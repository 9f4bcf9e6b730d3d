package domain

import "time"

type ProjectStatus string

const (
	ProjectPending   ProjectStatus = "pending"
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

type Project struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name" validate:"required,min=2,max=150"`
	Description string        `json:"description,omitempty" gorm:"type:text"`
	Status      ProjectStatus `json:"status"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	TeamID      int64         `json:"team_id"`
	Team        *Team         `json:"team,omitempty" gorm:"foreignKey:TeamID"`
	CreatedBy   int64         `json:"created_by"`
	Creator     *User         `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`
	Members     []User        `json:"members,omitempty" gorm:"many2many:project_members"`
	Tasks       []Task        `json:"tasks,omitempty" gorm:"foreignKey:ProjectID"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
