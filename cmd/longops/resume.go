package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/longops"
	"github.com/jpalmerr/longops/transport"
)

// resumeCmd rebuilds a poller from a continuation token and tracks the
// operation to completion.
var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume tracking an operation from a continuation token",
	Long: `Resume tracking a long-running operation from a continuation token.

Tokens are printed by 'longops watch' when polling is interrupted or an
operation fails transiently. The token carries the status URL, headers,
and the last observed status document, so no config file is needed.

Example:
  longops resume -t eyJ2IjoxLCJraW5kIjo...`,
	RunE: runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)

	resumeCmd.Flags().StringP("token", "t", "", "continuation token (required)")
	_ = resumeCmd.MarkFlagRequired("token")
}

func runResume(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	token, _ := cmd.Flags().GetString("token")

	client, err := transport.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create transport client: %w", err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	method, err := longops.NewStatusPolling[json.RawMessage]()
	if err != nil {
		return fmt.Errorf("failed to create polling method: %w", err)
	}

	deserialize := func(resp *transport.Response) (json.RawMessage, error) {
		return append(json.RawMessage(nil), resp.Body...), nil
	}

	p, err := longops.Resume(token, method, client, deserialize,
		longops.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to resume from token: %w", err)
	}

	doc, err := p.Result(ctx)
	if err != nil {
		logResumeToken(logger, p, err)
		return fmt.Errorf("resume failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(doc))
	logger.Info("operation succeeded", "state", p.Status().String())
	return nil
}
