package longops

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/jpalmerr/longops/transport"
)

// Operation describes a remote long-running operation by its status
// endpoint.
//
// Operation is immutable after creation via [NewOperation]. All fields
// are private with getter methods that return copies of mutable data
// (maps), ensuring the operation cannot be modified after construction.
//
// Operations are configured using the functional options pattern with
// [OperationOption] functions such as [WithHeaders], [WithTimeout],
// [WithStateExtractor], and [WithInterval].
type Operation struct {
	name      string
	url       string
	headers   map[string]string
	timeout   time.Duration
	extractor StateExtractor
	interval  time.Duration
}

// Name returns the operation's display name.
// The name is used for identification in logs and CLI output.
func (o Operation) Name() string {
	return o.name
}

// URL returns the operation's status endpoint URL.
func (o Operation) URL() string {
	return o.url
}

// Headers returns a copy of the operation's custom HTTP headers.
// These headers are sent with every status check.
// Returns nil if no custom headers are set.
func (o Operation) Headers() map[string]string {
	return copyMap(o.headers)
}

// Timeout returns the per-request timeout for status checks.
// Defaults to 10 seconds if not explicitly set via [WithTimeout].
func (o Operation) Timeout() time.Duration {
	return o.timeout
}

// Extractor returns the operation's [StateExtractor] function.
// Returns nil if no custom extractor was specified. When nil, the polling
// layer applies [DefaultExtractor].
func (o Operation) Extractor() StateExtractor {
	return o.extractor
}

// Interval returns the operation's custom polling interval.
// Returns 0 if no custom interval was specified, meaning the poller's
// default applies.
func (o Operation) Interval() time.Duration {
	return o.interval
}

// NewOperation creates an [Operation] with the given name, status URL,
// and options.
//
// The name parameter is a human-readable identifier used in logs and CLI
// output. The rawURL parameter must be a valid URL with an http or https
// scheme.
//
// Options are applied in order using the functional options pattern.
// See [WithHeaders], [WithTimeout], [WithStateExtractor], [WithInterval].
//
// Returns an error if the name is empty or the URL is invalid.
//
// Example:
//
//	op, err := longops.NewOperation("restore-db", "https://svc.example.com/operations/42",
//	    longops.WithHeaders("Authorization", "Bearer token123"),
//	    longops.WithInterval(2 * time.Second),
//	)
func NewOperation(name, rawURL string, opts ...OperationOption) (Operation, error) {
	if name == "" {
		return Operation{}, errors.New("operation name cannot be empty")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Operation{}, errors.New("invalid URL: " + err.Error())
	}
	if parsedURL.Scheme == "" {
		return Operation{}, errors.New("URL must have a scheme (http:// or https://)")
	}

	cfg := &operationConfig{
		headers: make(map[string]string),
		timeout: defaultOperationTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Operation{}, err
		}
	}

	return Operation{
		name:      name,
		url:       rawURL,
		headers:   cfg.headers,
		timeout:   cfg.timeout,
		extractor: cfg.extractor,
		interval:  cfg.interval,
	}, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Track fetches an operation's status endpoint once and returns a running
// [Poller] over the raw status document.
//
// Track is the config/CLI entry point: the initial fetch stands in for
// the initiating call, and the returned poller uses a [StatusPolling]
// method configured from the operation. The result type is the final
// status document as raw JSON; callers wanting typed results use
// [NewPoller] with their own [DeserializeFunc].
func Track(ctx context.Context, client *transport.Client, op Operation, opts ...Option) (*Poller[json.RawMessage], error) {
	if client == nil {
		return nil, errors.New("transport client cannot be nil")
	}

	initial, err := client.Get(ctx, op.url, op.headers, op.timeout)
	if err != nil {
		return nil, err
	}

	statusOpts := []StatusOption{
		WithStatusURL(op.url),
		WithStatusHeaders(copyMap(op.headers)),
		WithStatusTimeout(op.timeout),
	}
	if op.extractor != nil {
		statusOpts = append(statusOpts, WithStatusExtractor(op.extractor))
	}
	method, err := NewStatusPolling[json.RawMessage](statusOpts...)
	if err != nil {
		return nil, err
	}

	if op.interval > 0 {
		opts = append(opts, WithPollingInterval(op.interval))
	}

	return NewPoller(client, initial, rawDocument, method, opts...)
}

// rawDocument is the [DeserializeFunc] used by [Track]: it copies the
// final response body out as raw JSON.
func rawDocument(resp *transport.Response) (json.RawMessage, error) {
	return append(json.RawMessage(nil), resp.Body...), nil
}
