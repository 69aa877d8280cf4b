package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/longops/config"
)

// validateCmd validates a config file without tracking anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a longops configuration file without tracking any operations.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  longops validate -c config.yaml
  longops validate --config /etc/longops/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Count operations with custom intervals and extractors
	customIntervals := 0
	customExtractors := 0
	for _, op := range cfg.Operations {
		if op.Interval != 0 {
			customIntervals++
		}
		if op.Extractor.Type != "" && op.Extractor.Type != "default" {
			customExtractors++
		}
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Poll interval: %s\n", cfg.PollInterval.Duration())
	fmt.Printf("  Operations:    %d (%d with custom interval, %d with custom extractor)\n",
		len(cfg.Operations), customIntervals, customExtractors)

	return nil
}
