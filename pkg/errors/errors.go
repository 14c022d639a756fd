package buddysurf_errors

import "errors"

// Common errors
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidContent     = errors.New("empty message content")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrSubscriptionFailed = errors.New("subscription failed")
)
