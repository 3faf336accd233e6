package domain

import (
	"errors"
	"fmt"
)

// ErrThreadNotFound is returned when a thread id has no stored checkpoint.
var ErrThreadNotFound = errors.New("thread not found")

// ErrThreadBusy is returned when another turn holds the thread's lock.
var ErrThreadBusy = errors.New("thread busy")

// ErrNoPendingPrompt is returned when a resume arrives for a thread that is
// not suspended.
var ErrNoPendingPrompt = errors.New("no pending prompt to resume")

// ValidationError flags a malformed user-supplied value. It is recovered
// locally by re-issuing the same prompt and never counts against retry
// budgets unless the budget is explicitly attempt-based.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// NotFoundError flags an unknown customer, track or invoice. It surfaces as
// a user-facing message, never a crash.
type NotFoundError struct {
	Kind string
	ID   any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Kind, e.ID)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ExternalServiceError flags a failure in a collaborator (gateway,
// verification, lookup).
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// PartialFailureError flags the one outcome that must never collapse into
// plain success or plain failure: the charge went through but the follow-up
// commit (invoice) did not.
type PartialFailureError struct {
	TransactionID string
	Err           error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("charge %s succeeded but commit failed: %v", e.TransactionID, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }
