package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRunning is returned by operations that need a started scheduler.
	ErrNotRunning = errors.New("scheduler is not running")
	// ErrInvalidInterval is returned when a timer would fire with a non-positive period.
	ErrInvalidInterval = errors.New("interval must be positive")
)

// Error represents a general error in the scheduler library.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new general Error.
func NewError(message string) error {
	return &Error{Message: message}
}

// WrapError wraps an existing error with a message.
func WrapError(err error, message string) error {
	return &Error{Message: message, Err: err}
}
