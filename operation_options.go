package longops

import (
	"errors"
	"time"
)

const defaultOperationTimeout = 10 * time.Second

// operationConfig holds mutable state during operation construction.
type operationConfig struct {
	headers   map[string]string
	timeout   time.Duration
	extractor StateExtractor
	interval  time.Duration
}

// OperationOption is a function that configures an [Operation] during
// construction.
//
// OperationOption implements the functional options pattern, allowing
// optional configuration to be passed to [NewOperation] in a type-safe,
// extensible way. Options return an error if validation fails.
//
// Built-in options: [WithHeaders], [WithTimeout], [WithStateExtractor],
// [WithInterval].
type OperationOption func(*operationConfig) error

// WithHeaders adds custom HTTP headers to status checks for this
// operation.
//
// Use this for status endpoints that require authentication or custom
// headers. Headers are sent with every status check.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	op, err := longops.NewOperation("restore-db", url,
//	    longops.WithHeaders("Authorization", "Bearer token123"),
//	)
//
// Returns an error if an odd number of arguments is provided.
func WithHeaders(keyValues ...string) OperationOption {
	return func(cfg *operationConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout sets the per-request timeout for this operation's status
// checks.
//
// If a status check does not complete within this duration, the attempt
// fails and the transport's retry policy applies. Defaults to 10 seconds
// if not specified.
//
// Example:
//
//	op, err := longops.NewOperation("slow-restore", url,
//	    longops.WithTimeout(30 * time.Second),
//	)
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) OperationOption {
	return func(cfg *operationConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithStateExtractor sets a custom [StateExtractor] for this operation.
//
// The extractor determines how each status response is interpreted as a
// [State]. If not specified, [DefaultExtractor] is used, which tries a
// JSON "status" field and falls back to the HTTP status code.
//
// Example:
//
//	op, err := longops.NewOperation("deploy", url,
//	    longops.WithStateExtractor(longops.JSONFieldExtractor("properties.provisioningState")),
//	)
func WithStateExtractor(e StateExtractor) OperationOption {
	return func(cfg *operationConfig) error {
		cfg.extractor = e
		return nil
	}
}

// WithInterval sets a custom polling interval for this operation.
//
// When set, the poller created by [Track] checks this operation at the
// specified interval instead of the default. A Retry-After hint from the
// service still overrides the interval for the next step.
//
// The interval must be at least 1 second and at most 1 hour.
// Returns an error if the interval is outside these bounds.
//
// Example:
//
//	critical, _ := longops.NewOperation("failover", url,
//	    longops.WithInterval(1 * time.Second),
//	)
func WithInterval(d time.Duration) OperationOption {
	return func(cfg *operationConfig) error {
		if d < time.Second {
			return errors.New("interval must be at least 1 second")
		}
		if d > time.Hour {
			return errors.New("interval must not exceed 1 hour")
		}
		cfg.interval = d
		return nil
	}
}
