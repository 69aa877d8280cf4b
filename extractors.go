package longops

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StateExtractor is a function type that determines the [State] of an
// operation from a status response.
//
// StateExtractor follows functional programming principles: it is a pure
// function where the same inputs always produce the same output. This
// makes extractors easy to test, compose, and reason about.
//
// Parameters:
//   - body: The status response body as bytes
//   - statusCode: The HTTP status code (e.g., 200, 202, 500)
//
// Returns the determined [State] value, or [StateUnknown] if the response
// does not determine one.
//
// Built-in extractors: [JSONFieldExtractor], [HTTPStatusExtractor],
// [ContainsExtractor], and [FirstMatch] for composition.
type StateExtractor func(body []byte, statusCode int) State

// HTTPStatusExtractor is a [StateExtractor] that determines state from the
// HTTP status code alone, ignoring the response body.
//
// State mapping:
//   - 202 Accepted: [StateRunning]
//   - Other 2xx (200, 201, 204): [StateSucceeded]
//   - Everything else: [StateFailed]
//
// This suits services that signal progress purely through status codes,
// answering 202 while work continues and 200 once the resource exists.
var HTTPStatusExtractor StateExtractor = func(body []byte, statusCode int) State {
	switch {
	case statusCode == 202:
		return StateRunning
	case statusCode >= 200 && statusCode < 300:
		return StateSucceeded
	default:
		return StateFailed
	}
}

// JSONFieldExtractor returns a [StateExtractor] that extracts the
// operation state from a JSON field using dot notation to navigate nested
// objects.
//
// The path parameter specifies the field to extract using dot notation.
// For example, "properties.provisioningState" navigates to
// {"properties": {"provisioningState": "Succeeded"}}.
//
// The extracted value is normalized across the vocabulary operation
// services use in the wild: "InProgress", "Accepted", and provisioning
// verbs map to [StateRunning]; "Canceled" and "Cancelling" map to
// [StateCancelled]; and so on. Returns [StateUnknown] if JSON parsing
// fails, the field doesn't exist, or the value is not recognized.
//
// Example:
//
//	// For response: {"status": "InProgress"}
//	extractor := longops.JSONFieldExtractor("status")
func JSONFieldExtractor(path string) StateExtractor {
	parts := strings.Split(path, ".")

	return func(body []byte, statusCode int) State {
		var data interface{}
		if err := json.Unmarshal(body, &data); err != nil {
			return StateUnknown
		}

		value := extractJSONPath(data, parts)
		if value == "" {
			return StateUnknown
		}

		return normalizeState(value)
	}
}

// extractJSONPath walks a JSON structure using dot notation parts.
func extractJSONPath(data interface{}, parts []string) string {
	current := data

	for _, part := range parts {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current, ok = obj[part]
		if !ok {
			return ""
		}
	}

	switch v := current.(type) {
	case string:
		return v
	case bool:
		if v {
			return "succeeded"
		}
		return "running"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// ContainsExtractor returns a [StateExtractor] that checks if the response
// body contains the specified text (case-insensitive).
//
// State mapping:
//   - body contains the text: [StateSucceeded]
//   - body does not contain the text: [StateRunning]
//
// This is useful for plain-text status endpoints that eventually print a
// completion marker like "DONE".
//
// Example:
//
//	extractor := longops.ContainsExtractor("done")
func ContainsExtractor(text string) StateExtractor {
	lower := strings.ToLower(text)
	return func(body []byte, statusCode int) State {
		if strings.Contains(strings.ToLower(string(body)), lower) {
			return StateSucceeded
		}
		return StateRunning
	}
}

// FirstMatch returns a [StateExtractor] that tries multiple extractors in
// order, returning the first result that is not [StateUnknown].
//
// This is useful for composing extractors with fallback behavior. Each
// extractor is tried in sequence until one returns a definitive state.
//
// If all extractors return [StateUnknown], FirstMatch returns [StateUnknown].
//
// Example:
//
//	// Try the JSON status field first, fall back to the HTTP status code
//	extractor := longops.FirstMatch(
//	    longops.JSONFieldExtractor("status"),
//	    longops.HTTPStatusExtractor,
//	)
func FirstMatch(extractors ...StateExtractor) StateExtractor {
	return func(body []byte, statusCode int) State {
		for _, extractor := range extractors {
			state := extractor(body, statusCode)
			if state != StateUnknown {
				return state
			}
		}
		return StateUnknown
	}
}

// DefaultExtractor is the [StateExtractor] used when no extractor is
// configured on a [StatusPolling] method or an [Operation].
//
// DefaultExtractor uses [FirstMatch] to try:
//  1. [JSONFieldExtractor] with path "status" (the common status document shape)
//  2. [HTTPStatusExtractor] (falls back to the HTTP status code)
var DefaultExtractor = FirstMatch(
	JSONFieldExtractor("status"),
	HTTPStatusExtractor,
)
