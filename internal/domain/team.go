package domain

import "time"

type Team struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name" validate:"required,min=2,max=100"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	OwnerID     int64     `json:"owner_id"`
	Owner       *User     `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Members     []User    `json:"members,omitempty" gorm:"many2many:team_members"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
