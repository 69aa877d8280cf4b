package longops

import (
	"context"
	"errors"
	"sync"

	"github.com/jpalmerr/longops/internal/token"
	"github.com/jpalmerr/longops/transport"
)

// noPollingTokenKind identifies NoPolling continuation tokens.
const noPollingTokenKind = "noPolling"

// NoPolling is a [Method] for operations that are already complete by the
// time the initiating call returns — the "201 Created, nothing to poll"
// case.
//
// Its single step performs no I/O, its status is always
// [StateSucceeded], and its resource is the deserialized initial
// response. The continuation token is the captured initial response
// itself, which is sufficient to reconstruct the method elsewhere.
type NoPolling[T any] struct {
	mu          sync.Mutex
	initial     *transport.Response
	deserialize DeserializeFunc[T]
	ran         bool
}

// NewNoPolling creates a [NoPolling] method. It must be initialized by
// [NewPoller] or [Resume] before use.
func NewNoPolling[T any]() *NoPolling[T] {
	return &NoPolling[T]{}
}

// Initialize stores the initial response and the deserialization
// callback. The client is unused; NoPolling performs no requests.
func (n *NoPolling[T]) Initialize(_ *transport.Client, initial *transport.Response, deserialize DeserializeFunc[T]) error {
	if initial == nil {
		return errors.New("initial response cannot be nil")
	}
	if deserialize == nil {
		return errors.New("deserialization callback cannot be nil")
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.initial = initial
	n.deserialize = deserialize
	return nil
}

// Poll is the method's single no-op step. It checks for cancellation so
// an already-cancelled context is still honored, then marks the method
// finished without performing any I/O.
func (n *NoPolling[T]) Poll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.ran = true
	return nil
}

// Status always reports [StateSucceeded]: the operation completed before
// the poller existed.
func (n *NoPolling[T]) Status() State {
	return StateSucceeded
}

// Finished reports true once [NoPolling.Poll] has run.
func (n *NoPolling[T]) Finished() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ran
}

// Resource returns the deserialized initial response.
func (n *NoPolling[T]) Resource() (T, error) {
	n.mu.Lock()
	initial, deserialize := n.initial, n.deserialize
	n.mu.Unlock()

	if initial == nil {
		var zero T
		return zero, errors.New("polling method not initialized")
	}
	return deserialize(initial)
}

// ContinuationToken serializes the captured initial response.
func (n *NoPolling[T]) ContinuationToken() (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.initial == nil {
		return "", errors.New("polling method not initialized")
	}
	return token.Encode(noPollingTokenKind, n.initial)
}

// Restore initializes the method from a continuation token produced by
// [NoPolling.ContinuationToken]. The deserialization callback is supplied
// by the resuming caller; the client is accepted for interface symmetry
// and unused.
func (n *NoPolling[T]) Restore(tok string, client *transport.Client, deserialize DeserializeFunc[T]) error {
	env, err := token.Decode(tok)
	if err != nil {
		return err
	}
	if env.Kind != noPollingTokenKind {
		return ErrTokenMismatch
	}

	var initial transport.Response
	if err := env.Unpack(&initial); err != nil {
		return err
	}

	return n.Initialize(client, &initial, deserialize)
}
