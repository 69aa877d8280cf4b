package longops

import (
	"context"
	"time"

	"github.com/jpalmerr/longops/transport"
)

// DeserializeFunc maps a raw status response to the caller's result type.
//
// The function is invoked exactly once, after the polling method reports
// the operation finished, with the final response. An error returned here
// propagates out of [Poller.Result] unmodified.
type DeserializeFunc[T any] func(*transport.Response) (T, error)

// Deserializer is the value form of a deserialization callback, for result
// types that carry their own decoding logic.
//
// Use [UseDeserializer] to adapt a Deserializer into a [DeserializeFunc].
type Deserializer[T any] interface {
	Deserialize(*transport.Response) (T, error)
}

// UseDeserializer adapts a [Deserializer] into a [DeserializeFunc].
func UseDeserializer[T any](d Deserializer[T]) DeserializeFunc[T] {
	return d.Deserialize
}

// Method is the pluggable algorithm governing how and when a poller checks
// remote status.
//
// A Method owns the operation's state machine; the [Poller] owns the run
// loop that drives it. One Method instance belongs to exactly one poller
// for its lifetime.
//
// Two implementations are provided: [NoPolling], for operations already
// complete when the initiating call returns, and [StatusPolling], which
// repeatedly fetches a status URL. New strategies (for example, polling a
// Location header until a redirect resolves) are added by implementing
// this interface, not by wrapping a concrete poller.
type Method[T any] interface {
	// Initialize binds the method to its collaborators: the transport
	// client, the response captured when the operation was initiated, and
	// the deserialization callback. It performs no I/O.
	Initialize(client *transport.Client, initial *transport.Response, deserialize DeserializeFunc[T]) error

	// Poll performs exactly one status check. The poller's run loop calls
	// Poll again after the configured interval while the operation remains
	// unfinished. A service-reported failure is returned as an error from
	// Poll; the poller surfaces it from Result without modification.
	Poll(ctx context.Context) error

	// Status returns the operation's current state.
	Status() State

	// Finished reports whether the operation reached a state where the
	// resource can be produced. Never blocks.
	Finished() bool

	// Resource produces the final result by applying the deserialization
	// callback to the final response. Only valid once Finished is true.
	Resource() (T, error)

	// ContinuationToken serializes enough state to reconstruct an
	// equivalent method elsewhere. Methods that cannot be resumed return
	// [ErrNoContinuationToken].
	ContinuationToken() (string, error)

	// Restore initializes the method from a continuation token instead of
	// an initial response. The client and deserialization callback cannot
	// be serialized, so the resuming caller supplies them. Returns
	// [ErrTokenMismatch] if the token was issued by a different method kind.
	Restore(tok string, client *transport.Client, deserialize DeserializeFunc[T]) error
}

// DelayHinter is an optional interface a [Method] can implement to adjust
// the delay before its next poll, typically from a Retry-After response
// header. The hint applies to the next step only; without a hint the
// poller uses its configured interval.
type DelayHinter interface {
	NextDelay() (time.Duration, bool)
}
