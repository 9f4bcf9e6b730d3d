package attachments

import "errors"

var (
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidTarget  = errors.New("invalid_target")
	ErrInvalidDisk    = errors.New("invalid_disk")
	ErrStorageFailure = errors.New("storage_failure")
)
