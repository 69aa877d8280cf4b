// Package longops tracks long-running operations (LROs) to completion by
// polling a remote status endpoint.
//
// A long-running operation is server-side work a client follows through
// repeated status checks rather than a single request/response. longops
// is designed as an SDK-first library: a [Poller] wraps one in-flight
// operation, a pluggable [Method] decides how status is checked, and
// functional options configure both. It follows functional programming
// principles with immutable types, pure extractor functions, and
// composable configuration.
//
// # Quick Start
//
// Create a poller over an initiated operation and block for its result:
//
//	client, _ := transport.NewClient()
//	method, _ := longops.NewStatusPolling[Widget]()
//	p, _ := longops.NewPoller(client, initial, widgetFromResponse, method)
//
//	widget, err := p.Result(ctx) // blocks until the operation finishes
//
// Result is single-flight: concurrent callers share one polling loop and
// observe the same resolved value or error. For asynchronous use, call
// Result from a goroutine or register a completion callback:
//
//	p.AddDoneCallback(func(p *longops.Poller[Widget]) {
//	    slog.Info("operation finished", "status", p.Status().String())
//	})
//
// # Polling Methods
//
// Two [Method] implementations are built in:
//
//   - [NoPolling]: the operation was already complete when the initiating
//     call returned; the initial response is the final one.
//   - [StatusPolling]: repeatedly fetches a status URL (pinned, or
//     discovered from Operation-Location/Location headers), honoring
//     Retry-After hints for the next step only.
//
// New strategies are added by implementing [Method].
//
// # Continuation Tokens
//
// A poller's progress can be serialized and resumed in another process:
//
//	tok, _ := p.ContinuationToken()
//	// elsewhere:
//	method, _ := longops.NewStatusPolling[Widget]()
//	p2, _ := longops.Resume(tok, method, client, widgetFromResponse)
//
// # State Extractors
//
// Extractors determine how status responses are interpreted as [State]
// values. Built-ins: [JSONFieldExtractor], [HTTPStatusExtractor],
// [ContainsExtractor], and [FirstMatch] for composition; see
// [DefaultExtractor] for the default behavior.
//
// # Architecture
//
// Supporting packages:
//
//   - transport: HTTP client with pooling limits and transient-error
//     retries; the poller never retries at its own layer
//   - config: YAML configuration for the standalone CLI
//   - internal/token: continuation token wire format
//   - internal/opserver: in-memory operation service used by tests and
//     the example
//
// The internal packages are not part of the public API and may change
// without notice.
package longops
