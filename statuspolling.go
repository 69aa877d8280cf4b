package longops

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jpalmerr/longops/internal/token"
	"github.com/jpalmerr/longops/transport"
)

// statusPollingTokenKind identifies StatusPolling continuation tokens.
const statusPollingTokenKind = "statusPolling"

// statusConfig holds mutable state during StatusPolling construction.
type statusConfig struct {
	statusURL string
	headers   map[string]string
	timeout   time.Duration
	extractor StateExtractor
}

// StatusOption is a function that configures a [StatusPolling] method
// during construction.
//
// Built-in options: [WithStatusURL], [WithStatusHeaders],
// [WithStatusTimeout], [WithStatusExtractor].
type StatusOption func(*statusConfig) error

// WithStatusURL pins the URL polled for operation status.
//
// If not set, the URL is discovered from the initial response: the
// Operation-Location header, then the Location header, then the URL the
// initial response came from.
func WithStatusURL(url string) StatusOption {
	return func(cfg *statusConfig) error {
		if url == "" {
			return errors.New("status URL cannot be empty")
		}
		cfg.statusURL = url
		return nil
	}
}

// WithStatusHeaders sets custom HTTP headers sent with every status
// check, e.g. authorization.
func WithStatusHeaders(headers map[string]string) StatusOption {
	return func(cfg *statusConfig) error {
		cfg.headers = headers
		return nil
	}
}

// WithStatusTimeout sets the per-request timeout for each status check.
// Zero (the default) means no per-request limit beyond the polling
// context.
//
// Returns an error if the duration is negative.
func WithStatusTimeout(d time.Duration) StatusOption {
	return func(cfg *statusConfig) error {
		if d < 0 {
			return errors.New("status timeout cannot be negative")
		}
		cfg.timeout = d
		return nil
	}
}

// WithStatusExtractor sets the [StateExtractor] used to interpret each
// status response. Defaults to [DefaultExtractor].
func WithStatusExtractor(e StateExtractor) StatusOption {
	return func(cfg *statusConfig) error {
		if e == nil {
			return errors.New("extractor cannot be nil")
		}
		cfg.extractor = e
		return nil
	}
}

// statusPollingToken is the serialized form of a StatusPolling method.
type statusPollingToken struct {
	StatusURL string              `json:"status_url"`
	Headers   map[string]string   `json:"headers,omitempty"`
	Timeout   time.Duration       `json:"timeout,omitempty"`
	Response  *transport.Response `json:"response"`
}

// StatusPolling is the generic multi-step [Method]: it fetches a status
// URL repeatedly until the extracted state is terminal.
//
// Each [StatusPolling.Poll] performs exactly one status check; the
// poller's run loop supplies the delay between checks. When a response
// carries a Retry-After header, that hint overrides the configured
// interval for the next step only (via [DelayHinter]).
//
// Transient transport errors within a step are retried by the
// [transport.Client]'s own retry policy; if retries exhaust, the step
// fails with a [ResumableError] carrying a continuation token. A
// service-reported failure is terminal: the step returns an
// [OperationError] and no further polls occur.
type StatusPolling[T any] struct {
	mu          sync.Mutex
	client      *transport.Client
	deserialize DeserializeFunc[T]
	statusURL   string
	headers     map[string]string
	timeout     time.Duration
	extractor   StateExtractor
	state       State
	last        *transport.Response
	nextDelay   time.Duration
	hasDelay    bool
}

// NewStatusPolling creates a [StatusPolling] method. It must be
// initialized by [NewPoller] or [Resume] before use.
//
// Example:
//
//	method, err := longops.NewStatusPolling[Widget](
//	    longops.WithStatusExtractor(longops.JSONFieldExtractor("properties.provisioningState")),
//	)
//	if err != nil {
//	    return err
//	}
//	p, err := longops.NewPoller(client, initial, widgetFromResponse, method)
func NewStatusPolling[T any](opts ...StatusOption) (*StatusPolling[T], error) {
	cfg := &statusConfig{
		extractor: DefaultExtractor,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	return &StatusPolling[T]{
		statusURL: cfg.statusURL,
		headers:   cfg.headers,
		timeout:   cfg.timeout,
		extractor: cfg.extractor,
	}, nil
}

// Initialize binds the method to the transport client, the initial
// response, and the deserialization callback.
//
// The status URL is resolved here if it was not pinned with
// [WithStatusURL]: Operation-Location, then Location, then the initial
// response's own URL. The initial response body is also inspected so an
// operation that was already terminal at initiation is observed without
// a poll, and an initial Retry-After hint is captured for the first step.
func (sp *StatusPolling[T]) Initialize(client *transport.Client, initial *transport.Response, deserialize DeserializeFunc[T]) error {
	if client == nil {
		return errors.New("transport client cannot be nil")
	}
	if initial == nil {
		return errors.New("initial response cannot be nil")
	}
	if deserialize == nil {
		return errors.New("deserialization callback cannot be nil")
	}

	sp.mu.Lock()
	defer sp.mu.Unlock()

	sp.client = client
	sp.deserialize = deserialize

	if sp.statusURL == "" {
		sp.statusURL = statusURLFrom(initial)
	}
	if sp.statusURL == "" {
		return errors.New("cannot determine status URL from initial response")
	}

	sp.last = initial
	if sp.statusURL == initial.URL {
		// the initial response is itself a status document
		sp.observeLocked(initial)
	} else {
		// initiation ack pointing at a separate status endpoint; only the
		// Retry-After hint is meaningful
		sp.state = StateRunning
		if d, ok := initial.RetryAfter(); ok {
			sp.nextDelay, sp.hasDelay = d, true
		}
	}
	return nil
}

// statusURLFrom discovers the status endpoint advertised by an initial
// response.
func statusURLFrom(initial *transport.Response) string {
	if initial.Header != nil {
		if loc := initial.Header.Get("Operation-Location"); loc != "" {
			return loc
		}
		if loc := initial.Header.Get("Location"); loc != "" {
			return loc
		}
	}
	return initial.URL
}

// observeLocked updates state and the next-delay hint from a response.
// Caller holds sp.mu.
func (sp *StatusPolling[T]) observeLocked(resp *transport.Response) {
	if d, ok := resp.RetryAfter(); ok {
		sp.nextDelay, sp.hasDelay = d, true
	} else {
		sp.hasDelay = false
	}

	state := sp.extractor(resp.Body, resp.StatusCode)
	if state == StateUnknown {
		state = StateRunning
	}
	sp.state = state
}

// Poll performs one status check against the status URL.
func (sp *StatusPolling[T]) Poll(ctx context.Context) error {
	sp.mu.Lock()
	if sp.client == nil {
		sp.mu.Unlock()
		return errors.New("polling method not initialized")
	}
	if sp.state.Terminal() {
		sp.mu.Unlock()
		return nil
	}
	client, url, headers, timeout := sp.client, sp.statusURL, sp.headers, sp.timeout
	sp.mu.Unlock()

	resp, err := client.Get(ctx, url, headers, timeout)
	if err != nil {
		tok, tokErr := sp.ContinuationToken()
		if tokErr != nil {
			tok = ""
		}
		return &ResumableError{Token: tok, Err: err}
	}

	sp.mu.Lock()
	sp.last = resp
	sp.observeLocked(resp)
	state := sp.state
	sp.mu.Unlock()

	if state == StateFailed || state == StateCancelled {
		tok, tokErr := sp.ContinuationToken()
		if tokErr != nil {
			tok = ""
		}
		return &OperationError{State: state, Token: tok, Response: resp}
	}
	return nil
}

// Status returns the most recently observed state.
func (sp *StatusPolling[T]) Status() State {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if sp.state == "" {
		return StateNotStarted
	}
	return sp.state
}

// Finished reports whether the last observed state was terminal.
func (sp *StatusPolling[T]) Finished() bool {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.state.Terminal()
}

// Resource deserializes the final status response.
// Returns [ErrNotFinished] if the operation has not reached a terminal
// state.
func (sp *StatusPolling[T]) Resource() (T, error) {
	sp.mu.Lock()
	finished := sp.state.Terminal()
	last, deserialize := sp.last, sp.deserialize
	sp.mu.Unlock()

	if !finished {
		var zero T
		return zero, ErrNotFinished
	}
	return deserialize(last)
}

// ContinuationToken serializes the status URL, request configuration, and
// the latest observed response.
func (sp *StatusPolling[T]) ContinuationToken() (string, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if sp.last == nil {
		return "", errors.New("polling method not initialized")
	}
	return token.Encode(statusPollingTokenKind, statusPollingToken{
		StatusURL: sp.statusURL,
		Headers:   sp.headers,
		Timeout:   sp.timeout,
		Response:  sp.last,
	})
}

// Restore initializes the method from a continuation token produced by
// [StatusPolling.ContinuationToken].
func (sp *StatusPolling[T]) Restore(tok string, client *transport.Client, deserialize DeserializeFunc[T]) error {
	env, err := token.Decode(tok)
	if err != nil {
		return err
	}
	if env.Kind != statusPollingTokenKind {
		return ErrTokenMismatch
	}

	var payload statusPollingToken
	if err := env.Unpack(&payload); err != nil {
		return err
	}
	if payload.Response == nil {
		return errors.New("malformed continuation token: missing response")
	}

	sp.mu.Lock()
	sp.statusURL = payload.StatusURL
	sp.headers = payload.Headers
	sp.timeout = payload.Timeout
	sp.mu.Unlock()

	return sp.Initialize(client, payload.Response, deserialize)
}

// NextDelay implements [DelayHinter], surfacing a Retry-After hint from
// the most recent response. The hint applies to the next step only; it is
// cleared when the next response is observed.
func (sp *StatusPolling[T]) NextDelay() (time.Duration, bool) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.nextDelay, sp.hasDelay
}
