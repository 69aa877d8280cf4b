package longops

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jpalmerr/longops/transport"
)

// widget is a typed result with its own decoding logic.
type widget struct {
	Name string `json:"name"`
}

type widgetCodec struct{}

func (widgetCodec) Deserialize(resp *transport.Response) (widget, error) {
	var w widget
	if err := json.Unmarshal(resp.Body, &w); err != nil {
		return widget{}, err
	}
	return w, nil
}

func TestUseDeserializer(t *testing.T) {
	initial := &transport.Response{
		StatusCode: 201,
		Body:       []byte(`{"name": "w-1"}`),
		URL:        "https://svc.example.com/widgets/w-1",
	}

	p, err := NewPoller(nil, initial, UseDeserializer[widget](widgetCodec{}), NewNoPolling[widget]())
	if err != nil {
		t.Fatalf("NewPoller() error = %v", err)
	}

	got, err := p.Result(context.Background())
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if got.Name != "w-1" {
		t.Errorf("Result().Name = %q, want %q", got.Name, "w-1")
	}
}
