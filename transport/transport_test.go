package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler serves a scripted sequence of status codes and records
// every request it sees.
type recordingHandler struct {
	mu         sync.Mutex
	codes      []int
	body       string
	requests   []*http.Request
	requestIDs []string
}

func (h *recordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	idx := len(h.requests)
	h.requests = append(h.requests, r.Clone(context.Background()))
	h.requestIDs = append(h.requestIDs, r.Header.Get("X-Request-Id"))
	h.mu.Unlock()

	code := http.StatusOK
	if idx < len(h.codes) {
		code = h.codes[idx]
	}
	w.WriteHeader(code)
	_, _ = w.Write([]byte(h.body))
}

func (h *recordingHandler) requestCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.requests)
}

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "running"}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient()
	require.NoError(t, err)
	t.Cleanup(client.Close)

	resp, err := client.Get(context.Background(), server.URL, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"status": "running"}`, string(resp.Body))
	assert.Equal(t, server.URL, resp.URL)
	assert.Equal(t, "3", resp.Header.Get("Retry-After"))
	assert.GreaterOrEqual(t, resp.Latency, time.Duration(0))
}

func TestClient_GetSendsHeadersAndRequestID(t *testing.T) {
	handler := &recordingHandler{}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient()
	require.NoError(t, err)
	t.Cleanup(client.Close)

	_, err = client.Get(context.Background(), server.URL, map[string]string{
		"Authorization": "Bearer token123",
	}, 0)
	require.NoError(t, err)

	require.Equal(t, 1, handler.requestCount())
	assert.Equal(t, "Bearer token123", handler.requests[0].Header.Get("Authorization"))
	assert.NotEmpty(t, handler.requestIDs[0])
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	handler := &recordingHandler{codes: []int{http.StatusInternalServerError}, body: "ok eventually"}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(WithMaxRetries(2))
	require.NoError(t, err)
	t.Cleanup(client.Close)

	resp, err := client.Get(context.Background(), server.URL, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok eventually", string(resp.Body))
	assert.Equal(t, 2, handler.requestCount(), "one failing attempt plus one retry")

	// retries reuse the original correlation ID
	assert.Equal(t, handler.requestIDs[0], handler.requestIDs[1])
}

func TestClient_RetriesExhausted(t *testing.T) {
	handler := &recordingHandler{codes: []int{
		http.StatusServiceUnavailable,
		http.StatusServiceUnavailable,
	}}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(WithMaxRetries(1))
	require.NoError(t, err)
	t.Cleanup(client.Close)

	_, err = client.Get(context.Background(), server.URL, nil, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transient status 503")
	assert.Equal(t, 2, handler.requestCount())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	handler := &recordingHandler{codes: []int{http.StatusNotFound}, body: "no such operation"}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(WithMaxRetries(3))
	require.NoError(t, err)
	t.Cleanup(client.Close)

	// 4xx is a real answer, not a transient condition
	resp, err := client.Get(context.Background(), server.URL, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "no such operation", string(resp.Body))
	assert.Equal(t, 1, handler.requestCount())
}

func TestClient_PerAttemptTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(WithMaxRetries(0))
	require.NoError(t, err)
	t.Cleanup(client.Close)

	_, err = client.Get(context.Background(), server.URL, nil, 20*time.Millisecond)
	require.Error(t, err)
}

func TestClient_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient()
	require.NoError(t, err)
	t.Cleanup(client.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Get(ctx, server.URL, nil, 0)
	require.Error(t, err)
}

func TestClient_BodySizeLimit(t *testing.T) {
	big := strings.Repeat("x", maxResponseBodySize+1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(big))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient()
	require.NoError(t, err)
	t.Cleanup(client.Close)

	resp, err := client.Get(context.Background(), server.URL, nil, 0)
	require.NoError(t, err)
	assert.Len(t, resp.Body, maxResponseBodySize)
}

func TestNewClient_OptionValidation(t *testing.T) {
	_, err := NewClient(WithHTTPClient(nil))
	assert.Error(t, err)

	_, err = NewClient(WithMaxRetries(-1))
	assert.Error(t, err)
}

func TestResponse_RetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
		ok     bool
	}{
		{"integer seconds", "5", 5 * time.Second, true},
		{"zero seconds", "0", 0, true},
		{"missing header", "", 0, false},
		{"negative", "-1", 0, false},
		{"http date unsupported", "Wed, 21 Oct 2026 07:28:00 GMT", 0, false},
		{"garbage", "soon", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.header != "" {
				header.Set("Retry-After", tt.header)
			}
			resp := &Response{Header: header}

			got, ok := resp.RetryAfter()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResponse_RetryAfterNilReceiver(t *testing.T) {
	var resp *Response
	_, ok := resp.RetryAfter()
	assert.False(t, ok)
}
