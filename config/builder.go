package config

import (
	"sort"

	"github.com/jpalmerr/longops"
)

// BuildOperations converts parsed configuration into SDK [longops.Operation]
// values.
func BuildOperations(cfg *Config) ([]longops.Operation, error) {
	var operations []longops.Operation

	for _, oc := range cfg.Operations {
		op, err := buildOperation(oc)
		if err != nil {
			return nil, err
		}
		operations = append(operations, op)
	}

	return operations, nil
}

// buildOperation converts a single OperationConfig to an SDK Operation.
func buildOperation(oc OperationConfig) (longops.Operation, error) {
	var opts []longops.OperationOption

	if oc.Timeout != 0 {
		opts = append(opts, longops.WithTimeout(oc.Timeout.Duration()))
	}

	if len(oc.Headers) > 0 {
		opts = append(opts, longops.WithHeaders(mapToKeyValuePairs(oc.Headers)...))
	}

	extractor := buildExtractor(oc.Extractor)
	if extractor != nil {
		opts = append(opts, longops.WithStateExtractor(extractor))
	}

	if oc.Interval != 0 {
		opts = append(opts, longops.WithInterval(oc.Interval.Duration()))
	}

	return longops.NewOperation(oc.Name, oc.URL, opts...)
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}

// buildExtractor converts ExtractorConfig to a StateExtractor function.
// Returns nil for default/empty extractors (SDK uses DefaultExtractor).
func buildExtractor(ec ExtractorConfig) longops.StateExtractor {
	switch ec.Type {
	case "", "default":
		// nil signals SDK to use DefaultExtractor
		return nil
	case "http":
		return longops.HTTPStatusExtractor
	case "json":
		return longops.JSONFieldExtractor(ec.Path)
	case "contains":
		return longops.ContainsExtractor(ec.Text)
	default:
		// validation should catch this, but return nil as fallback
		return nil
	}
}
