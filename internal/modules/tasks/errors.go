package tasks

import "errors"

var (
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrAssigneeNotAllowed = errors.New("assignee_not_allowed")
)
