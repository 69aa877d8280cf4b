// Package main is the entry point for the longops CLI.
//
// longops can be used either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary
// approach.
//
// Usage:
//
//	longops watch -c config.yaml      # Track all configured operations
//	longops resume -t <token>         # Resume a poller from a token
//	longops validate -c config.yaml   # Validate configuration
//	longops version                   # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "longops",
	Short: "Track long-running operations to completion",
	Long: `longops polls the status endpoints of long-running operations
until they reach a terminal state, with resumable continuation tokens.

Quick start:
  1. Create a config file (longops.yaml)
  2. Run: longops watch -c longops.yaml

Example config:
  poll_interval: 5s
  operations:
    - name: restore-db
      url: https://svc.example.com/operations/42
      extractor: json:status`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this longops binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("longops %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
