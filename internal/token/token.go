// Package token implements the continuation token wire format.
//
// A continuation token is a versioned envelope serialized as JSON and
// encoded with unpadded base64url, making it safe to pass on command lines
// or store in text fields. The envelope records which polling method kind
// issued the token so a resume attempt with the wrong method fails cleanly
// instead of misinterpreting the payload.
package token

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Version is the current envelope format version.
const Version = 1

// Envelope is the decoded form of a continuation token.
type Envelope struct {
	// Version is the envelope format version.
	Version int `json:"v"`

	// Kind identifies the polling method that issued the token.
	Kind string `json:"kind"`

	// Payload is the method-specific state, left encoded until the
	// owning method unpacks it.
	Payload json.RawMessage `json:"payload"`
}

// Encode packs a method kind and its payload into a token string.
func Encode(kind string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode token payload: %w", err)
	}

	env := Envelope{
		Version: Version,
		Kind:    kind,
		Payload: raw,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to encode token envelope: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses a token string back into an [Envelope].
//
// Returns an error if the string is not valid base64url, the envelope is
// not valid JSON, or the version is unsupported.
func Decode(s string) (*Envelope, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("malformed continuation token: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed continuation token: %w", err)
	}

	if env.Version != Version {
		return nil, fmt.Errorf("unsupported continuation token version %d", env.Version)
	}

	return &env, nil
}

// Unpack decodes the envelope payload into dst.
func (e *Envelope) Unpack(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("malformed continuation token payload: %w", err)
	}
	return nil
}
