package longops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/longops/transport"
)

// DoneFunc is a callback invoked exactly once after a poller resolves.
// The poller itself is passed so the callback can read the final status
// and result.
type DoneFunc[T any] func(*Poller[T])

// CallbackHandle identifies a registered done callback for removal.
// Returned by [Poller.AddDoneCallback].
type CallbackHandle int

// registeredCallback pairs a callback with its handle so removal by
// handle preserves registration order for the rest.
type registeredCallback[T any] struct {
	handle CallbackHandle
	fn     DoneFunc[T]
}

// Poller tracks a single long-running operation to completion.
//
// A Poller owns one [Method] instance for its lifetime and presents a
// uniform interface regardless of which polling strategy is behind it.
// Create one with [NewPoller] when initiating an operation, or with
// [Resume] from a continuation token.
//
// The typical lifecycle is:
//
//	p, err := longops.NewPoller(client, initial, deserialize, method)
//	if err != nil {
//	    return err
//	}
//	result, err := p.Result(ctx) // blocks until the operation finishes
//
// Result drives the polling loop on first call; concurrent callers share
// a single run loop and observe the same resolved value or error. For an
// asynchronous shape, call Result from a goroutine or register a callback
// with [Poller.AddDoneCallback].
//
// All methods are safe for concurrent use.
type Poller[T any] struct {
	method   Method[T]
	interval time.Duration
	sleeper  Sleeper
	logger   *slog.Logger

	mu         sync.Mutex
	started    bool
	resolved   bool
	result     T
	err        error
	callbacks  []registeredCallback[T]
	nextHandle CallbackHandle
	done       chan struct{}
}

// NewPoller creates a [Poller] over a freshly initiated operation.
//
// The initial response is the one captured when the operation was started;
// the deserialization callback maps the final response to the caller's
// result type; the method supplies the polling strategy. NewPoller binds
// the three collaborators via [Method.Initialize] and performs no I/O.
//
// The client may be nil for methods that perform no further requests,
// such as [NoPolling].
//
// Example:
//
//	method, _ := longops.NewStatusPolling[Widget]()
//	p, err := longops.NewPoller(client, initial, widgetFromResponse, method,
//	    longops.WithPollingInterval(2 * time.Second),
//	)
func NewPoller[T any](client *transport.Client, initial *transport.Response, deserialize DeserializeFunc[T], method Method[T], opts ...Option) (*Poller[T], error) {
	p, err := newPoller(method, opts)
	if err != nil {
		return nil, err
	}

	if initial == nil {
		return nil, errors.New("initial response cannot be nil")
	}
	if deserialize == nil {
		return nil, errors.New("deserialization callback cannot be nil")
	}
	if err := method.Initialize(client, initial, deserialize); err != nil {
		return nil, fmt.Errorf("failed to initialize polling method: %w", err)
	}

	return p, nil
}

// Resume reconstructs a [Poller] from a continuation token.
//
// The method parses the token back into the state it serialized; the
// client and deserialization callback cannot be encoded in a token, so
// the resuming caller supplies them. The resulting poller is equivalent
// to the one that produced the token:
//
//	tok, _ := p.ContinuationToken()
//	method, _ := longops.NewStatusPolling[Widget]()
//	p2, err := longops.Resume(tok, method, client, widgetFromResponse)
//	// p2.Result(ctx) tracks the same operation as p.Result(ctx)
func Resume[T any](tok string, method Method[T], client *transport.Client, deserialize DeserializeFunc[T], opts ...Option) (*Poller[T], error) {
	p, err := newPoller(method, opts)
	if err != nil {
		return nil, err
	}

	if deserialize == nil {
		return nil, errors.New("deserialization callback cannot be nil")
	}
	if err := method.Restore(tok, client, deserialize); err != nil {
		return nil, err
	}

	return p, nil
}

// newPoller applies options and builds the poller shell shared by
// NewPoller and Resume.
func newPoller[T any](method Method[T], opts []Option) (*Poller[T], error) {
	if method == nil {
		return nil, errors.New("polling method cannot be nil")
	}

	cfg := &pollerConfig{
		interval: defaultPollingInterval,
		sleeper:  timerSleeper{},
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller[T]{
		method:   method,
		interval: cfg.interval,
		sleeper:  cfg.sleeper,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Result blocks until the operation reaches a terminal state and returns
// the deserialized result.
//
// The first call starts the run loop; concurrent and subsequent callers
// never trigger additional polls (single-flight) and observe the same
// resolved value or error. Any error raised by a poll step or by the
// deserialization callback is returned unmodified.
//
// Cancelling the context of the call that started the loop stops polling
// between steps and resolves the poller with the context error; the
// remote operation itself is not cancelled. Cancelling any other caller's
// context only abandons that caller's wait.
func (p *Poller[T]) Result(ctx context.Context) (T, error) {
	p.mu.Lock()
	if p.resolved {
		result, err := p.result, p.err
		p.mu.Unlock()
		return result, err
	}
	if !p.started {
		p.started = true
		go p.run(ctx)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.result, p.err
	case <-ctx.Done():
		// when both cases are ready the select picks at random; a
		// resolved outcome wins over the waiter's context error
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.resolved {
			return p.result, p.err
		}
		var zero T
		return zero, ctx.Err()
	}
}

// run drives the polling loop to completion and resolves the poller.
// It executes on its own goroutine, exactly once per poller.
func (p *Poller[T]) run(ctx context.Context) {
	var result T

	err := p.pollUntilDone(ctx)
	if err == nil {
		result, err = p.method.Resource()
	}

	p.resolve(result, err)
}

// pollUntilDone performs steps strictly sequentially until the method
// reports finished, a step fails, or the context is cancelled.
func (p *Poller[T]) pollUntilDone(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.method.Poll(ctx); err != nil {
			return err
		}
		if p.method.Finished() {
			return nil
		}

		delay := p.interval
		if hinter, ok := p.method.(DelayHinter); ok {
			if d, ok := hinter.NextDelay(); ok {
				delay = d
			}
		}
		p.logger.Debug("operation still running",
			"status", p.method.Status().String(),
			"next_poll_in", delay.String(),
		)

		if err := p.sleeper.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// resolve caches the outcome, fires callbacks in registration order, and
// then releases waiters by closing the done channel. Runs at most once.
//
// Callbacks fire before the done channel closes so that a caller returning
// from [Poller.Result] can rely on every registered callback having run.
// A callback that itself calls Result does not deadlock: the resolved
// fast path never waits on the channel.
func (p *Poller[T]) resolve(result T, err error) {
	p.mu.Lock()
	p.resolved = true
	p.result = result
	p.err = err
	callbacks := make([]registeredCallback[T], len(p.callbacks))
	copy(callbacks, p.callbacks)
	p.callbacks = nil
	p.mu.Unlock()

	if err != nil {
		p.logger.Info("operation resolved", "status", p.Status().String(), "error", err.Error())
	} else {
		p.logger.Info("operation resolved", "status", p.Status().String())
	}

	for _, cb := range callbacks {
		p.invokeCallbackSafe(cb.fn)
	}

	close(p.done)
}

// invokeCallbackSafe calls a done callback with panic recovery.
// Panics are logged but do not propagate.
func (p *Poller[T]) invokeCallbackSafe(fn DoneFunc[T]) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("done callback panicked", "panic", r)
		}
	}()
	fn(p)
}

// Status returns the operation's current state.
//
// Before resolution this delegates to the polling method. After
// resolution it reflects the outcome: [StateSucceeded] on success, the
// service-reported terminal state for an [OperationError],
// [StateCancelled] when the run loop was cancelled, and [StateFailed]
// otherwise.
func (p *Poller[T]) Status() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.resolved {
		return p.method.Status()
	}
	if p.err == nil {
		return StateSucceeded
	}

	var opErr *OperationError
	if errors.As(p.err, &opErr) {
		return opErr.State
	}
	if errors.Is(p.err, context.Canceled) || errors.Is(p.err, context.DeadlineExceeded) {
		return StateCancelled
	}
	return StateFailed
}

// Done reports whether the operation reached a terminal state.
// Purely advisory; never blocks and never triggers a poll.
func (p *Poller[T]) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.resolved || p.method.Finished()
}

// AddDoneCallback registers a callback invoked exactly once after the
// poller resolves, in registration order.
//
// If the poller has already resolved, the callback is invoked immediately
// on the calling goroutine, so a late registration is never missed.
//
// The returned [CallbackHandle] can be passed to
// [Poller.RemoveDoneCallback] to unregister before resolution.
func (p *Poller[T]) AddDoneCallback(fn DoneFunc[T]) CallbackHandle {
	p.mu.Lock()
	handle := p.nextHandle
	p.nextHandle++

	if p.resolved {
		p.mu.Unlock()
		p.invokeCallbackSafe(fn)
		return handle
	}

	p.callbacks = append(p.callbacks, registeredCallback[T]{handle: handle, fn: fn})
	p.mu.Unlock()
	return handle
}

// RemoveDoneCallback unregisters a callback by its handle.
//
// Safe to call with a handle that was already removed or already fired;
// such calls are no-ops.
func (p *Poller[T]) RemoveDoneCallback(handle CallbackHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, cb := range p.callbacks {
		if cb.handle == handle {
			p.callbacks = append(p.callbacks[:i], p.callbacks[i+1:]...)
			return
		}
	}
}

// ContinuationToken returns an opaque token from which an equivalent
// poller can be reconstructed with [Resume].
//
// Returns [ErrNoContinuationToken] immediately if the polling method does
// not support token extraction, regardless of whether polling started.
func (p *Poller[T]) ContinuationToken() (string, error) {
	return p.method.ContinuationToken()
}

// Method returns the bound polling method. Introspection only; driving
// the method directly while the poller runs is not supported.
func (p *Poller[T]) Method() Method[T] {
	return p.method
}
