// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound = errors.New("not found")

	// Run termination errors.
	ErrErrorLimit = errors.New("too many consecutive errors")
	ErrStuckLimit = errors.New("stuck on the same item too many times")
	ErrNoPending  = errors.New("no items to review")

	// Recovery errors.
	ErrRecoveryFailed = errors.New("session recovery failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidRules  = errors.New("invalid rule set")
)

// UserError represents an error that should be shown to the operator.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new operator-facing error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsFatal reports whether err ends a run rather than a single step.
func IsFatal(err error) bool {
	return errors.Is(err, ErrErrorLimit) ||
		errors.Is(err, ErrStuckLimit) ||
		errors.Is(err, context.Canceled)
}
