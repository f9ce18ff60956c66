package service

import "errors"

var (
	ErrPostNotFound         = errors.New("post not found")
	ErrAlreadyPublished     = errors.New("post is already published")
	ErrAlreadyClaimed       = errors.New("post is already being published")
	ErrNotSchedulable       = errors.New("post is not in a schedulable state")
	ErrAccountNotFound      = errors.New("social account not found")
	ErrAccountAlreadyLinked = errors.New("social account is already linked")
)

// ValidationError is a post-shape problem found before any platform call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
