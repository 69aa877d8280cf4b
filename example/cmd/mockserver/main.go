// Standalone operation simulator for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	curl -s -X POST localhost:9999/operations -d '{"polls_until_done": 3}'
//	go run ./cmd/longops watch -c example/config.yaml
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jpalmerr/longops/internal/opserver"
)

func main() {
	fmt.Println("Operation simulator starting on :9999")
	fmt.Println("  POST /operations        create an operation")
	fmt.Println("  GET  /operations        list operations")
	fmt.Println("  GET  /operations/{id}   check status (advances the operation)")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	srv := opserver.NewServer(logger)

	if err := http.ListenAndServe(":9999", srv); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
