package dispatch

import (
	"errors"
	"fmt"
)

// Errors returned by the engine and projector. Callers map them to transport
// codes with errors.Is.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrNoResponderAvailable = errors.New("no responder available")
	ErrNotAuthorized        = errors.New("not authorized")
	ErrRequestNotPending    = errors.New("request is no longer pending")
	ErrNotFound             = errors.New("not found")
)

// Errors returned by Store implementations
var (
	// ErrConflict means the stored status did not match the expected one
	ErrConflict = errors.New("status conflict")
	// ErrDuplicate means a request with the same id already exists
	ErrDuplicate = errors.New("duplicate request id")
)

// UnavailableError wraps an infrastructure failure of a collaborator. The
// operation may be retried.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: service unavailable: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Retryable is always true for an UnavailableError
func (e *UnavailableError) Retryable() bool { return true }

// IsUnavailable reports whether err carries an UnavailableError
func IsUnavailable(err error) bool {
	var u *UnavailableError
	return errors.As(err, &u)
}

func unavailable(op string, err error) error {
	if IsUnavailable(err) {
		return err
	}
	return &UnavailableError{Op: op, Err: err}
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
