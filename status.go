package longops

import "strings"

// State represents the lifecycle state of a long-running operation.
//
// State is a string type that can hold one of five canonical values:
// [StateNotStarted], [StateRunning], [StateSucceeded], [StateFailed], or
// [StateCancelled]. Using a string type allows easy JSON serialization and
// human-readable logging while maintaining type safety through the defined
// constants.
//
// [StateUnknown] is an extractor-level value meaning "this response did not
// determine a state"; a poller never reports it.
type State string

const (
	// StateNotStarted indicates the operation has not begun executing.
	StateNotStarted State = "notStarted"

	// StateRunning indicates the operation is still in progress.
	StateRunning State = "running"

	// StateSucceeded indicates the operation completed successfully.
	StateSucceeded State = "succeeded"

	// StateFailed indicates the operation reached a terminal failure.
	StateFailed State = "failed"

	// StateCancelled indicates the operation was cancelled before completion.
	StateCancelled State = "cancelled"

	// StateUnknown indicates a state could not be determined from a
	// response. Used by extractors for fallback composition; see [FirstMatch].
	StateUnknown State = "unknown"
)

// String returns the string representation of the state.
// This implements the fmt.Stringer interface.
func (s State) String() string {
	return string(s)
}

// Terminal reports whether the state is final. Once an operation reaches a
// terminal state it never transitions again.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	}
	return false
}

// normalizeState maps the status vocabulary found in the wild onto the
// canonical [State] values. Services disagree on spelling ("InProgress",
// "Canceled", "inProgress") and many report provisioning verbs while work
// is ongoing.
func normalizeState(s string) State {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "notstarted", "not started":
		return StateNotStarted
	case "running", "inprogress", "in progress", "pending", "accepted",
		"creating", "updating", "deleting", "provisioning", "started":
		return StateRunning
	case "succeeded", "success", "successful", "completed", "complete", "ok":
		return StateSucceeded
	case "failed", "error", "invalid", "validationfailed":
		return StateFailed
	case "cancelled", "canceled", "cancelling", "canceling":
		return StateCancelled
	default:
		return StateUnknown
	}
}
