package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_MinimalConfig(t *testing.T) {
	yaml := `
operations:
  - name: test
    url: https://example.com/op
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.PollInterval.Duration() != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", cfg.PollInterval.Duration())
	}
	if len(cfg.Operations) != 1 {
		t.Errorf("len(Operations) = %d, want 1", len(cfg.Operations))
	}
}

func TestParse_FullOperationConfig(t *testing.T) {
	yaml := `
poll_interval: 30s

operations:
  - name: full-test
    url: https://api.example.com/operations/42
    timeout: 5s
    interval: 10s
    headers:
      Authorization: Bearer token123
      X-Custom: value
    extractor: json:properties.provisioningState
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.PollInterval.Duration() != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", cfg.PollInterval.Duration())
	}

	op := cfg.Operations[0]
	if op.Name != "full-test" {
		t.Errorf("Name = %q, want %q", op.Name, "full-test")
	}
	if op.URL != "https://api.example.com/operations/42" {
		t.Errorf("URL = %q, want %q", op.URL, "https://api.example.com/operations/42")
	}
	if op.Timeout.Duration() != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", op.Timeout.Duration())
	}
	if op.Interval.Duration() != 10*time.Second {
		t.Errorf("Interval = %v, want 10s", op.Interval.Duration())
	}
	if op.Headers["Authorization"] != "Bearer token123" {
		t.Errorf("Headers[Authorization] = %q, want %q", op.Headers["Authorization"], "Bearer token123")
	}
	if op.Extractor.Type != "json" {
		t.Errorf("Extractor.Type = %q, want %q", op.Extractor.Type, "json")
	}
	if op.Extractor.Path != "properties.provisioningState" {
		t.Errorf("Extractor.Path = %q, want %q", op.Extractor.Path, "properties.provisioningState")
	}
}

func TestParse_StructuredExtractor(t *testing.T) {
	yaml := `
operations:
  - name: structured
    url: https://example.com/op
    extractor:
      type: contains
      text: done
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	ex := cfg.Operations[0].Extractor
	if ex.Type != "contains" {
		t.Errorf("Extractor.Type = %q, want %q", ex.Type, "contains")
	}
	if ex.Text != "done" {
		t.Errorf("Extractor.Text = %q, want %q", ex.Text, "done")
	}
}

func TestParse_ExtractorShorthand(t *testing.T) {
	tests := []struct {
		name      string
		shorthand string
		wantType  string
		wantPath  string
		wantText  string
		wantErr   bool
	}{
		{"default", "default", "default", "", "", false},
		{"http", "http", "http", "", "", false},
		{"json with path", "json:status", "json", "status", "", false},
		{"json nested path", "json:a.b.c", "json", "a.b.c", "", false},
		{"contains", "contains:done", "contains", "", "done", false},
		{"unknown type", "xml:status", "", "", "", true},
		{"unknown bare word", "bogus", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e ExtractorConfig
			err := e.parseShorthand(tt.shorthand)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseShorthand(%q) error = %v, wantErr %v", tt.shorthand, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if e.Type != tt.wantType || e.Path != tt.wantPath || e.Text != tt.wantText {
				t.Errorf("parseShorthand(%q) = {%q %q %q}, want {%q %q %q}",
					tt.shorthand, e.Type, e.Path, e.Text, tt.wantType, tt.wantPath, tt.wantText)
			}
		})
	}
}

func TestParse_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_OP_HOST", "svc.example.com")
	t.Setenv("TEST_OP_TOKEN", "secret123")

	yaml := `
operations:
  - name: env-test
    url: https://${TEST_OP_HOST}/operations/1
    headers:
      Authorization: Bearer ${TEST_OP_TOKEN}
      X-Fallback: ${TEST_OP_MISSING:-fallback}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	op := cfg.Operations[0]
	if op.URL != "https://svc.example.com/operations/1" {
		t.Errorf("URL = %q, env var not expanded", op.URL)
	}
	if op.Headers["Authorization"] != "Bearer secret123" {
		t.Errorf("Headers[Authorization] = %q, env var not expanded", op.Headers["Authorization"])
	}
	if op.Headers["X-Fallback"] != "fallback" {
		t.Errorf("Headers[X-Fallback] = %q, want default value %q", op.Headers["X-Fallback"], "fallback")
	}
}

func TestParse_MissingEnvVar(t *testing.T) {
	yaml := `
operations:
  - name: env-test
    url: https://${DEFINITELY_NOT_SET_12345}/op
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() error = nil for missing env var, want error")
	}
	if !strings.Contains(err.Error(), "DEFINITELY_NOT_SET_12345") {
		t.Errorf("error should name the missing variable, got: %v", err)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{
			name:    "no operations",
			yaml:    `poll_interval: 10s`,
			wantMsg: "at least one operation",
		},
		{
			name: "missing name",
			yaml: `
operations:
  - url: https://example.com
`,
			wantMsg: "name is required",
		},
		{
			name: "duplicate names",
			yaml: `
operations:
  - name: dup
    url: https://example.com/a
  - name: dup
    url: https://example.com/b
`,
			wantMsg: "duplicate operation name",
		},
		{
			name: "missing url",
			yaml: `
operations:
  - name: no-url
`,
			wantMsg: "url is required",
		},
		{
			name: "url without scheme",
			yaml: `
operations:
  - name: bad-url
    url: example.com/op
`,
			wantMsg: "scheme",
		},
		{
			name: "unsupported scheme",
			yaml: `
operations:
  - name: ftp-url
    url: ftp://example.com/op
`,
			wantMsg: "http or https",
		},
		{
			name: "poll interval too small",
			yaml: `
poll_interval: 100ms
operations:
  - name: fast
    url: https://example.com/op
`,
			wantMsg: "poll_interval",
		},
		{
			name: "timeout too small",
			yaml: `
operations:
  - name: tiny-timeout
    url: https://example.com/op
    timeout: 100ms
`,
			wantMsg: "timeout",
		},
		{
			name: "interval too small",
			yaml: `
operations:
  - name: tiny-interval
    url: https://example.com/op
    interval: 100ms
`,
			wantMsg: "interval",
		},
		{
			name: "interval too large",
			yaml: `
operations:
  - name: huge-interval
    url: https://example.com/op
    interval: 2h
`,
			wantMsg: "interval",
		},
		{
			name: "json extractor without path",
			yaml: `
operations:
  - name: bad-extractor
    url: https://example.com/op
    extractor:
      type: json
`,
			wantMsg: "requires a path",
		},
		{
			name: "contains extractor without text",
			yaml: `
operations:
  - name: bad-extractor
    url: https://example.com/op
    extractor:
      type: contains
`,
			wantMsg: "requires text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want message containing %q", err, tt.wantMsg)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("operations: [unclosed"))
	if err == nil {
		t.Fatal("Parse() error = nil for invalid YAML, want error")
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	yaml := `
poll_interval: banana
operations:
  - name: test
    url: https://example.com/op
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() error = nil for invalid duration, want error")
	}
	if !strings.Contains(err.Error(), "banana") {
		t.Errorf("error should include the bad value, got: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	content := `
operations:
  - name: from-file
    url: https://example.com/op
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Operations[0].Name != "from-file" {
		t.Errorf("Name = %q, want %q", cfg.Operations[0].Name, "from-file")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("Load() error = nil for missing file, want error")
	}
	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error = %v, want message containing %q", err, "failed to read")
	}
}
