package longops

import (
	"errors"
	"fmt"

	"github.com/jpalmerr/longops/transport"
)

// ErrNoContinuationToken is returned when a polling method does not
// support continuation token extraction.
var ErrNoContinuationToken = errors.New("longops: polling method does not support continuation tokens")

// ErrTokenMismatch is returned when a continuation token was issued by a
// different polling method kind than the one resuming it.
var ErrTokenMismatch = errors.New("longops: continuation token was issued by a different polling method")

// ErrNotFinished is returned when a resource is requested before the
// operation reached a terminal state.
var ErrNotFinished = errors.New("longops: operation has not finished")

// OperationError reports that the remote operation itself reached a
// terminal failure state. It is not a transport failure: the status check
// succeeded and the service said the work failed.
//
// The error carries the last-known continuation token so a caller can
// inspect or hand off the failed operation, and the final response for
// diagnostics.
type OperationError struct {
	// State is the terminal state the service reported, [StateFailed] or
	// [StateCancelled].
	State State

	// Token is the continuation token captured when the failure was
	// observed. Empty if the method could not produce one.
	Token string

	// Response is the status response that reported the failure.
	Response *transport.Response
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	return fmt.Sprintf("longops: operation %s", e.State)
}

// ContinuationToken returns the token captured when the failure was
// observed, so the operation can be inspected or resumed elsewhere.
func (e *OperationError) ContinuationToken() string {
	return e.Token
}

// ResumableError wraps a transport-layer failure with the continuation
// token that was current when the step failed. The operation may still be
// running remotely; the token lets a caller resume tracking it after the
// transport problem clears.
type ResumableError struct {
	// Token is the continuation token captured before the failed step.
	Token string

	// Err is the underlying transport error.
	Err error
}

// Error implements the error interface.
func (e *ResumableError) Error() string {
	return fmt.Sprintf("longops: poll step failed: %v", e.Err)
}

// Unwrap returns the underlying transport error.
func (e *ResumableError) Unwrap() error {
	return e.Err
}

// ContinuationToken returns the token captured before the failed step.
func (e *ResumableError) ContinuationToken() string {
	return e.Token
}
