package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/longops"
	"github.com/jpalmerr/longops/config"
	"github.com/jpalmerr/longops/transport"
)

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// watchCmd tracks all configured operations until they finish.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Track configured operations to completion",
	Long: `Track all operations in the config file until each reaches a
terminal state.

Operations are polled concurrently. For each operation the final status
is logged; if any operation fails, the command exits non-zero after all
operations have resolved. On interrupt (Ctrl+C or SIGTERM) polling stops
and a continuation token is logged for every unfinished operation so
tracking can be resumed later with 'longops resume'.

Example:
  longops watch -c config.yaml
  longops watch --config /etc/longops/config.yaml`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = watchCmd.MarkFlagRequired("config")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	operations, err := config.BuildOperations(cfg)
	if err != nil {
		return fmt.Errorf("failed to build operations: %w", err)
	}

	logger.Info("config loaded",
		"operations", len(operations),
		"poll_interval", cfg.PollInterval.Duration().String(),
	)

	client, err := transport.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create transport client: %w", err)
	}
	defer client.Close()

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	for _, op := range operations {
		op := op
		g.Go(func() error {
			return watchOne(ctx, client, op, cfg.PollInterval.Duration(), logger)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	logger.Info("all operations resolved")
	return nil
}

// watchOne tracks a single operation and logs its outcome.
func watchOne(ctx context.Context, client *transport.Client, op longops.Operation, interval time.Duration, logger *slog.Logger) error {
	opLogger := logger.With("operation", op.Name())

	pollerOpts := []longops.Option{
		longops.WithLogger(opLogger),
		longops.WithPollingInterval(interval),
	}

	p, err := longops.Track(ctx, client, op, pollerOpts...)
	if err != nil {
		return fmt.Errorf("%s: %w", op.Name(), err)
	}

	doc, err := p.Result(ctx)
	if err != nil {
		logResumeToken(opLogger, p, err)
		return fmt.Errorf("%s: %w", op.Name(), err)
	}

	opLogger.Info("operation succeeded", "document", string(doc))
	return nil
}

// logResumeToken surfaces a continuation token from a failed or
// interrupted poll. The error's own token is preferred; otherwise the
// poller's current token is used (e.g. after an interrupt).
func logResumeToken(logger *slog.Logger, p *longops.Poller[json.RawMessage], err error) {
	type tokenCarrier interface {
		ContinuationToken() string
	}

	var carrier tokenCarrier
	if errors.As(err, &carrier) && carrier.ContinuationToken() != "" {
		logger.Warn("operation unfinished; resume with 'longops resume'",
			"token", carrier.ContinuationToken(),
		)
		return
	}

	if tok, tokErr := p.ContinuationToken(); tokErr == nil {
		logger.Warn("operation unfinished; resume with 'longops resume'", "token", tok)
	}
}
