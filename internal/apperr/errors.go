package apperr

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotInitialized     = errors.New("not initialized")
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRateLimited        = errors.New("too many attempts")
)
