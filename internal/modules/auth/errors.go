package auth

import "errors"

var (
	ErrEmailAlreadyExists = errors.New("email_already_exists")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUnknownRole        = errors.New("unknown_role")
	ErrForbidden          = errors.New("forbidden")
)
