package longops

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// defaultPollingInterval is the delay between status checks when neither
// the caller nor the service (via Retry-After) specifies one.
const defaultPollingInterval = 5 * time.Second

// pollerConfig holds mutable state during poller construction.
type pollerConfig struct {
	interval time.Duration
	logger   *slog.Logger
	sleeper  Sleeper
}

// Option is a function that configures a [Poller] during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [NewPoller] or [Resume] in a type-safe,
// extensible way. Options return an error if validation fails.
//
// Built-in options: [WithPollingInterval], [WithLogger], [WithSleeper].
type Option func(*pollerConfig) error

// WithPollingInterval sets the delay between status checks.
//
// The interval is a default: a polling method may shorten or lengthen the
// delay for its next step when the service supplies a Retry-After hint
// (see [DelayHinter]). Defaults to 5 seconds if not specified.
//
// Example:
//
//	p, err := longops.NewPoller(client, initial, deserialize, method,
//	    longops.WithPollingInterval(30 * time.Second),
//	)
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *pollerConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.interval = d
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the poller.
//
// The poller logs each step at debug level and resolution at info level.
// If not specified, [slog.Default] is used.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	p, err := longops.NewPoller(client, initial, deserialize, method,
//	    longops.WithLogger(logger),
//	)
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *pollerConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// Sleeper is the wait primitive the poller's run loop uses between steps.
//
// The default implementation waits on a timer and honors context
// cancellation. Tests substitute a fake that records requested delays and
// returns immediately, keeping timing assertions deterministic.
type Sleeper interface {
	// Sleep waits for the given duration or until the context is
	// cancelled, returning the context error in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// WithSleeper replaces the poller's wait primitive.
//
// Returns an error if the sleeper is nil.
func WithSleeper(s Sleeper) Option {
	return func(cfg *pollerConfig) error {
		if s == nil {
			return errors.New("sleeper cannot be nil")
		}
		cfg.sleeper = s
		return nil
	}
}

// timerSleeper is the default [Sleeper], backed by a real timer.
type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
