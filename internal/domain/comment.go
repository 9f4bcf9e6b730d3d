package domain

import "time"

// Comment attaches to a task or a project through its polymorphic target.
type Comment struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content" gorm:"type:text" validate:"required,min=3,max=1000"`
	UserID    int64     `json:"user_id"`
	User      *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Target    TargetRef `json:"target" gorm:"embedded;embeddedPrefix:commentable_"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentableKinds is the closed set of kinds a comment may attach to.
var CommentableKinds = map[TargetKind]bool{
	KindTask:    true,
	KindProject: true,
}

// IsEdited reports whether the content was ever changed after creation.
func (c *Comment) IsEdited() bool {
	return !c.UpdatedAt.Equal(c.CreatedAt)
}
