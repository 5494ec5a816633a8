package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/greeter/internal/errors"
)

func TestEnvelope_HasData(t *testing.T) {
	assert.False(t, (*Envelope)(nil).HasData())
	assert.False(t, (&Envelope{}).HasData())
	assert.False(t, (&Envelope{Data: json.RawMessage("null")}).HasData())
	assert.True(t, (&Envelope{Data: json.RawMessage("[]")}).HasData())
	assert.True(t, (&Envelope{Data: json.RawMessage(`{"id":1}`)}).HasData())
}

func TestEnvelope_WireShape(t *testing.T) {
	env, err := NewSuccess("Messages retrieved successfully", []string{"a"})
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "success", decoded["status"])
	assert.Equal(t, "Messages retrieved successfully", decoded["message"])
	assert.Contains(t, decoded, "timestamp")
	assert.Contains(t, decoded, "data")
	assert.NotContains(t, decoded, "error")

	ts, err := time.Parse(time.RFC3339Nano, decoded["timestamp"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestEnvelope_ErrorWireShape(t *testing.T) {
	raw, err := json.Marshal(NewError(errors.CodeValidation, "Name is required"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "error", decoded["status"])
	assert.Equal(t, "validation_error", decoded["error"])
	assert.NotContains(t, decoded, "data")
}

func TestEnvelope_Decode(t *testing.T) {
	env := &Envelope{Data: json.RawMessage(`{"id":3}`)}
	var out struct{ ID int }
	require.NoError(t, env.Decode(&out))
	assert.Equal(t, 3, out.ID)

	assert.Error(t, (&Envelope{}).Decode(&out))
}

func TestWriteServiceError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteServiceError(rr, errors.NotFound("Message 4 not found"))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, StatusError, env.Status)
	assert.Equal(t, "not_found", env.Error)
	assert.Equal(t, "Message 4 not found", env.Message)
}

func TestWriteServiceError_PlainError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteServiceError(rr, assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ann"}`))
	var body struct{ Name string }
	require.NoError(t, DecodeJSON(req, &body))
	assert.Equal(t, "Ann", body.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	assert.Error(t, DecodeJSON(req, &body))
}

func TestReadAllWithLimit(t *testing.T) {
	data, truncated, err := ReadAllWithLimit(strings.NewReader("abcdef"), 3)
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Equal(t, "abc", string(data))

	_, err = ReadAllStrict(strings.NewReader("abcdef"), 3)
	assert.Error(t, err)
}
