// Demo of the longops SDK against a local operation server.
//
// It starts the in-memory simulator, kicks off two long-running
// operations, and tracks them with the library: the first with a poller
// built directly from the initiating response, the second resumed from a
// continuation token as a separate poller.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/longops"
	"github.com/jpalmerr/longops/internal/opserver"
	"github.com/jpalmerr/longops/transport"
)

const serverAddr = "localhost:9999"

// statusDoc is the simulator's status document shape.
type statusDoc struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Polls  int    `json:"polls"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// start the operation simulator (see internal/opserver); listen first
	// so the port is bound before any operation is created
	listener, err := net.Listen("tcp", serverAddr)
	if err != nil {
		logger.Error("failed to bind simulator address", "error", err)
		os.Exit(1)
	}
	srv := &http.Server{Handler: opserver.NewServer(logger)}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("simulator error", "error", err)
			os.Exit(1)
		}
	}()

	fmt.Println()
	fmt.Println("  longops demo")
	fmt.Println("  simulator running on http://" + serverAddr)
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := transport.NewClient()
	if err != nil {
		logger.Error("failed to create client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	if err := trackFromInitiation(ctx, client, logger); err != nil {
		logger.Error("track demo failed", "error", err)
		os.Exit(1)
	}

	if err := resumeFromToken(ctx, client, logger); err != nil {
		logger.Error("resume demo failed", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// trackFromInitiation creates an operation and polls it to completion,
// building the poller straight from the 202 initiation response.
func trackFromInitiation(ctx context.Context, client *transport.Client, logger *slog.Logger) error {
	initial, err := createOperation(ctx, 3, 1)
	if err != nil {
		return err
	}

	method, err := longops.NewStatusPolling[statusDoc]()
	if err != nil {
		return err
	}

	p, err := longops.NewPoller(client, initial, deserializeStatus, method,
		longops.WithPollingInterval(time.Second),
		longops.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	// callbacks fire once, in registration order, when the result resolves
	_ = p.AddDoneCallback(func(p *longops.Poller[statusDoc]) {
		fmt.Printf("  callback: operation finished with state %s\n", p.Status())
	})

	doc, err := p.Result(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  tracked %s: status=%s after %d polls\n\n", doc.ID, doc.Status, doc.Polls)
	return nil
}

// resumeFromToken abandons a poller mid-flight and rebuilds it from its
// continuation token, the way a restarted process would.
func resumeFromToken(ctx context.Context, client *transport.Client, logger *slog.Logger) error {
	initial, err := createOperation(ctx, 2, 1)
	if err != nil {
		return err
	}

	method, err := longops.NewStatusPolling[statusDoc]()
	if err != nil {
		return err
	}
	original, err := longops.NewPoller(client, initial, deserializeStatus, method)
	if err != nil {
		return err
	}

	token, err := original.ContinuationToken()
	if err != nil {
		return err
	}
	fmt.Printf("  continuation token: %.40s...\n", token)

	// the original poller is dropped; a fresh one picks up from the token
	restored, err := longops.NewStatusPolling[statusDoc]()
	if err != nil {
		return err
	}
	p, err := longops.Resume(token, restored, client, deserializeStatus,
		longops.WithPollingInterval(time.Second),
		longops.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	doc, err := p.Result(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  resumed %s: status=%s after %d polls\n\n", doc.ID, doc.Status, doc.Polls)
	return nil
}

// createOperation POSTs to the simulator and returns the initiation
// response in transport form.
func createOperation(ctx context.Context, pollsUntilDone, retryAfterSeconds int) (*transport.Response, error) {
	body, _ := json.Marshal(map[string]int{
		"polls_until_done":    pollsUntilDone,
		"retry_after_seconds": retryAfterSeconds,
	})

	url := "http://" + serverAddr + "/operations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &transport.Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Header:     resp.Header,
		URL:        url,
	}, nil
}

// deserializeStatus converts a final status response into a statusDoc.
func deserializeStatus(resp *transport.Response) (statusDoc, error) {
	var doc statusDoc
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return statusDoc{}, err
	}
	return doc, nil
}
