package httputil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/R3E-Network/greeter/internal/errors"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the uniform wrapper of every API response.
type Envelope struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// NewSuccess builds a success envelope around data.
func NewSuccess(message string, data any) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope data: %w", err)
	}
	return &Envelope{
		Status:    StatusSuccess,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// NewError builds an error envelope.
func NewError(code errors.ErrorCode, message string) *Envelope {
	return &Envelope{
		Status:    StatusError,
		Error:     string(code),
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// IsSuccess reports whether the envelope has status "success".
func (e *Envelope) IsSuccess() bool {
	return e != nil && e.Status == StatusSuccess
}

// HasData reports whether a non-null payload is present.
func (e *Envelope) HasData() bool {
	if e == nil {
		return false
	}
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Decode unmarshals the payload into v.
func (e *Envelope) Decode(v any) error {
	if !e.HasData() {
		return fmt.Errorf("envelope has no data")
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode envelope data: %w", err)
	}
	return nil
}
