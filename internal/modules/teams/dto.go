package teams

type CreateTeamRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Description string `json:"description" binding:"max=1000"`
}

type UpdateTeamRequest struct {
	Name        string `json:"name" binding:"omitempty,min=2,max=100"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
}

type MemberRequest struct {
	UserID int64 `json:"user_id" binding:"required,gt=0"`
}
