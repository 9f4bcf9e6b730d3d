package comments

import (
	"time"

	"taskhub/internal/domain"
)

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required,min=3,max=1000"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required,min=3,max=1000"`
}

// CommentResponse adds the derived edited flag to the stored row.
type CommentResponse struct {
	ID        int64        `json:"id"`
	Content   string       `json:"content"`
	UserID    int64        `json:"user_id"`
	User      *domain.User `json:"user,omitempty"`
	IsEdited  bool         `json:"is_edited"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func toResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		Content:   c.Content,
		UserID:    c.UserID,
		User:      c.User,
		IsEdited:  c.IsEdited(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
