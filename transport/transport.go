// Package transport provides the HTTP layer used by longops polling
// strategies to fetch operation status.
//
// The [Client] wraps net/http with connection pooling limits, per-request
// timeouts, a response body cap, and automatic retries for transient
// failures (network errors, 408, 429, and 5xx responses). Retries use
// exponential backoff via github.com/cenkalti/backoff; the retry policy is
// part of this layer by design so that polling strategies never retry
// themselves.
//
// [Response] is the raw result handed to deserialization callbacks and
// state extractors. It is JSON-serializable so continuation tokens can
// embed a captured response.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits to prevent resource exhaustion when many
// pollers share one client
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// defaultMaxRetries is the number of retry attempts after the initial
// request for transient failures.
const defaultMaxRetries = 3

// requestIDHeader carries a per-request correlation ID so operation
// services can tie retries together in their logs.
const requestIDHeader = "X-Request-Id"

// Response holds the raw result of a status request.
//
// Response captures everything a polling strategy or deserialization
// callback may need: the body (limited to 1MB), status code, headers, and
// the request that produced it. All fields are exported and JSON-tagged so
// a Response can be embedded in a continuation token.
type Response struct {
	// StatusCode is the HTTP status code (e.g., 200, 202, 500).
	StatusCode int `json:"status_code"`

	// Body contains the HTTP response body, limited to 1MB.
	Body []byte `json:"body,omitempty"`

	// Header contains the response headers.
	Header http.Header `json:"header,omitempty"`

	// URL is the URL the request was sent to.
	URL string `json:"url"`

	// Latency is the total time taken for the request, including retries.
	// Not serialized into continuation tokens.
	Latency time.Duration `json:"-"`
}

// RetryAfter returns the Retry-After hint from the response headers, if
// present and expressed in seconds.
//
// Operation services use Retry-After to tell clients when the next status
// check is worthwhile. A polling strategy applies the hint to its next
// step only.
func (r *Response) RetryAfter() (time.Duration, bool) {
	if r == nil || r.Header == nil {
		return 0, false
	}
	v := r.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// Client is an HTTP client for polling operation status endpoints.
//
// Client uses per-request timeouts via context rather than a global
// timeout, allowing different operations to have different timeout
// configurations. Transient failures are retried with exponential backoff
// before an error is returned.
//
// A single Client is safe for concurrent use by multiple pollers.
type Client struct {
	httpClient *http.Client
	maxRetries uint64
}

// ClientOption configures a [Client] during construction.
type ClientOption func(*Client) error

// WithHTTPClient replaces the underlying *http.Client.
//
// This is primarily useful in tests, where a client with a scripted
// http.RoundTripper stands in for a real operation service.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		c.httpClient = hc
		return nil
	}
}

// WithMaxRetries sets how many times a transient failure is retried
// before giving up. Zero disables retries. Defaults to 3.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) error {
		if n < 0 {
			return fmt.Errorf("max retries cannot be negative")
		}
		c.maxRetries = uint64(n)
		return nil
	}
}

// NewClient creates a polling [Client].
//
// The client is configured with connection pooling limits suitable for
// many concurrent pollers:
//   - MaxIdleConns: 100 total idle connections
//   - MaxIdleConnsPerHost: 10 idle connections per host
//   - MaxConnsPerHost: 10 concurrent connections per host
//   - IdleConnTimeout: 60 seconds before closing idle connections
//
// Timeouts are applied per-request via the context parameter in
// [Client.Get], not as a global client timeout.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{
			// no default timeout - per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		maxRetries: defaultMaxRetries,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Get fetches a status URL and returns a structured [Response].
//
// The timeout applies to each individual attempt; retries for transient
// failures (network errors, 408, 429, 5xx) each get a fresh timeout. A
// timeout of zero means no per-attempt limit beyond the caller's context.
//
// Non-transient HTTP responses (including 4xx) are returned as a Response
// with a nil error; interpreting them is the caller's concern. An error is
// returned only when no usable response could be obtained.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string, timeout time.Duration) (*Response, error) {
	start := time.Now()
	requestID := uuid.NewString()

	attempt := func() (*Response, error) {
		resp, err := c.do(ctx, url, headers, timeout, requestID)
		if err != nil {
			// network-level failures are worth retrying
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if retryable(resp.StatusCode) {
			return nil, fmt.Errorf("transient status %d from %s", resp.StatusCode, url)
		}
		return resp, nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries),
		ctx,
	)

	resp, err := backoff.RetryWithData(attempt, policy)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	resp.Latency = time.Since(start)
	return resp, nil
}

// do performs a single request attempt.
func (c *Client) do(ctx context.Context, url string, headers map[string]string, timeout time.Duration, requestID string) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	req.Header.Set(requestIDHeader, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	// read body with size limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header.Clone(),
		URL:        url,
	}, nil
}

// retryable reports whether an HTTP status code indicates a transient
// condition worth retrying.
func retryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return code >= 500
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
