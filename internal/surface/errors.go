package surface

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure classes a Surface reports.
type Kind int

const (
	// KindUnavailable covers any failure that is not one of the other kinds.
	KindUnavailable Kind = iota
	// KindTransient means the session reloaded or detached mid-action. A
	// fresh handle usually fixes it.
	KindTransient
	// KindNotFound means an element or search result the action needed was absent.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not found"
	default:
		return "unavailable"
	}
}

// Error is the error type every Surface operation returns.
type Error struct {
	Err  error
	Op   string
	Kind Kind
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("surface %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("surface %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient wraps err as a session reload or detachment.
func Transient(op string, err error) *Error {
	return &Error{Op: op, Kind: KindTransient, Err: err}
}

// NotFound wraps err as a missing element or search result.
func NotFound(op string, err error) *Error {
	return &Error{Op: op, Kind: KindNotFound, Err: err}
}

// Unavailable wraps err as a general failure.
func Unavailable(op string, err error) *Error {
	return &Error{Op: op, Kind: KindUnavailable, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain. Errors that are
// not surface errors report KindUnavailable.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnavailable
}

// IsTransient reports whether err is a session reload or detachment.
func IsTransient(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindTransient
}

// IsNotFound reports whether err is a missing element or search result.
func IsNotFound(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindNotFound
}
