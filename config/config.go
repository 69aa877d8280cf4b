// Package config provides YAML configuration parsing for the longops CLI.
//
// This package enables tracking operations with a standalone binary and a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	poll_interval: 5s
//
//	operations:
//	  - name: restore-db
//	    url: https://svc.example.com/operations/42
//	    timeout: 5s
//	    extractor: json:status
//	    headers:
//	      Authorization: Bearer ${SVC_TOKEN}
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// minPollInterval is the minimum allowed polling interval.
// This prevents accidental DoS of status endpoints with overly aggressive
// polling.
const minPollInterval = 1 * time.Second

// Config is the root configuration structure for the longops CLI.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// PollInterval is the default delay between status checks.
	// Accepts duration strings like "10s", "1m", "500ms".
	// Defaults to 5s.
	PollInterval Duration `yaml:"poll_interval"`

	// Operations defines the operations to track.
	Operations []OperationConfig `yaml:"operations"`
}

// OperationConfig defines a single operation to track.
type OperationConfig struct {
	// Name is the display name used in logs and CLI output.
	Name string `yaml:"name"`

	// URL is the operation's status endpoint.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Timeout is the per-request timeout for status checks. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`

	// Headers are custom HTTP headers sent with each status check.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Extractor determines how to interpret status responses.
	// Can be shorthand ("json:status", "contains:done") or structured.
	Extractor ExtractorConfig `yaml:"extractor"`

	// Interval is the custom polling interval for this operation.
	// If not specified, uses the global poll_interval.
	// Must be between 1s and 1h.
	Interval Duration `yaml:"interval"`
}

// ExtractorConfig specifies how to determine operation state from a
// status response.
//
// It supports two formats in YAML:
//
// Shorthand string:
//
//	extractor: json:status
//	extractor: json:properties.provisioningState
//	extractor: contains:done
//	extractor: default
//
// Structured object:
//
//	extractor:
//	  type: json
//	  path: properties.provisioningState
type ExtractorConfig struct {
	// Type is the extractor type: "default", "json", "contains", "http".
	Type string

	// Path is the JSON field path (for type: json).
	Path string

	// Text is the substring to search for (for type: contains).
	Text string
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for ExtractorConfig.
func (e *ExtractorConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		return e.parseShorthand(s)
	}

	if node.Kind == yaml.MappingNode {
		// temporary struct to avoid infinite recursion
		var raw struct {
			Type string `yaml:"type"`
			Path string `yaml:"path"`
			Text string `yaml:"text"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		e.Type = raw.Type
		e.Path = raw.Path
		e.Text = raw.Text
		return nil
	}

	return fmt.Errorf("extractor must be a string or object, got %v", node.Kind)
}

// parseShorthand parses extractor shorthand syntax.
//
// Supported formats:
//   - "default" → use default extractor
//   - "http" → use HTTP status code only
//   - "json:path" → extract from JSON field
//   - "contains:text" → body contains text means succeeded
func (e *ExtractorConfig) parseShorthand(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if idx := strings.Index(s, ":"); idx != -1 {
		e.Type = s[:idx]
		value := s[idx+1:]

		switch e.Type {
		case "json":
			e.Path = value
		case "contains":
			e.Text = value
		default:
			return fmt.Errorf("unknown extractor type %q", e.Type)
		}
		return nil
	}

	switch s {
	case "default", "http":
		e.Type = s
	default:
		return fmt.Errorf("unknown extractor %q (expected 'default', 'http', 'json:path', or 'contains:text')", s)
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in URL and header values. A default
// is applied for PollInterval (5s).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(5 * time.Second)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}

	if len(c.Operations) == 0 {
		return errors.New("at least one operation must be defined")
	}

	seen := make(map[string]bool, len(c.Operations))
	for i := range c.Operations {
		op := &c.Operations[i]

		if op.Name == "" {
			return fmt.Errorf("operations[%d]: name is required", i)
		}
		if seen[op.Name] {
			return fmt.Errorf("operations[%d]: duplicate operation name %q", i, op.Name)
		}
		seen[op.Name] = true

		if op.URL == "" {
			return fmt.Errorf("operations[%d] (%s): url is required", i, op.Name)
		}
		expanded, err := expandEnvVars(op.URL)
		if err != nil {
			return fmt.Errorf("operations[%d] (%s): url: %w", i, op.Name, err)
		}
		op.URL = expanded

		parsedURL, err := url.Parse(op.URL)
		if err != nil {
			return fmt.Errorf("operations[%d] (%s): invalid url: %w", i, op.Name, err)
		}
		if parsedURL.Scheme == "" {
			return fmt.Errorf("operations[%d] (%s): url must have a scheme (http:// or https://)", i, op.Name)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("operations[%d] (%s): url scheme must be http or https, got %q", i, op.Name, parsedURL.Scheme)
		}

		for k, v := range op.Headers {
			expanded, err := expandEnvVars(v)
			if err != nil {
				return fmt.Errorf("operations[%d] (%s): headers[%s]: %w", i, op.Name, k, err)
			}
			op.Headers[k] = expanded
		}

		if op.Timeout != 0 {
			if op.Timeout.Duration() < 0 {
				return fmt.Errorf("operations[%d] (%s): timeout cannot be negative, got %s",
					i, op.Name, op.Timeout.Duration())
			}
			if op.Timeout.Duration() < time.Second {
				return fmt.Errorf("operations[%d] (%s): timeout must be at least 1s if specified, got %s",
					i, op.Name, op.Timeout.Duration())
			}
		}

		if op.Interval != 0 {
			if op.Interval.Duration() < time.Second {
				return fmt.Errorf("operations[%d] (%s): interval must be at least 1s, got %s",
					i, op.Name, op.Interval.Duration())
			}
			if op.Interval.Duration() > time.Hour {
				return fmt.Errorf("operations[%d] (%s): interval must not exceed 1h, got %s",
					i, op.Name, op.Interval.Duration())
			}
		}

		if err := validateExtractor(&op.Extractor, fmt.Sprintf("operations[%d] (%s)", i, op.Name)); err != nil {
			return err
		}
	}

	return nil
}

// validateExtractor validates an extractor configuration.
func validateExtractor(e *ExtractorConfig, context string) error {
	if e.Type == "" {
		return nil // empty means default, which is valid
	}

	switch e.Type {
	case "default", "http":
		// no additional validation needed
	case "json":
		if e.Path == "" {
			return fmt.Errorf("%s: extractor type 'json' requires a path", context)
		}
	case "contains":
		if e.Text == "" {
			return fmt.Errorf("%s: extractor type 'contains' requires text", context)
		}
	default:
		return fmt.Errorf("%s: unknown extractor type %q", context, e.Type)
	}

	return nil
}
