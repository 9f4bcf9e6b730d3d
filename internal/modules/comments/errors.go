package comments

import "errors"

var (
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not_found")
	ErrInvalidTarget = errors.New("invalid_target")
	ErrSpam          = errors.New("spam_detected")
	ErrTooShort      = errors.New("content_too_short")
)
