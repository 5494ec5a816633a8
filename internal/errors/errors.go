// Package errors defines the tagged error type shared by the transport,
// the message service and the HTTP handlers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies a ServiceError.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindNetwork
	KindTimeout
	KindService
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindService:
		return "service"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// ErrorCode is the machine-readable code carried in error envelopes.
type ErrorCode string

const (
	CodeValidation     ErrorCode = "validation_error"
	CodeNotFound       ErrorCode = "not_found"
	CodeAuthentication ErrorCode = "authentication_error"
	CodeNetwork        ErrorCode = "network_error"
	CodeTimeout        ErrorCode = "timeout_error"
	CodeInternal       ErrorCode = "internal_error"
	CodeService        ErrorCode = "service_error"
	CodeRateLimit      ErrorCode = "rate_limit_exceeded"
)

// ServiceError is the single error shape surfaced above the transport.
// Envelope holds the raw error envelope when the server sent one; it is
// passed through untouched by the service layer.
type ServiceError struct {
	Kind       Kind
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]any
	Envelope   []byte
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails attaches a key/value pair to the error.
func (e *ServiceError) WithDetails(key string, value any) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// FromServer reports whether the error was built from an envelope the server returned.
func (e *ServiceError) FromServer() bool {
	return len(e.Envelope) > 0
}

// GetServiceError extracts a *ServiceError from err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// KindOf returns the kind of err, KindInternal when err is not a ServiceError.
func KindOf(err error) Kind {
	if se := GetServiceError(err); se != nil {
		return se.Kind
	}
	return KindInternal
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsNetwork(err error) bool    { return KindOf(err) == KindNetwork }
func IsTimeout(err error) bool    { return KindOf(err) == KindTimeout }

// =============================================================================
// Constructors
// =============================================================================

func Validation(message string) *ServiceError {
	return &ServiceError{Kind: KindValidation, Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

func NotFound(message string) *ServiceError {
	return &ServiceError{Kind: KindNotFound, Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

func Unauthorized(message string) *ServiceError {
	return &ServiceError{Kind: KindUnauthorized, Code: CodeAuthentication, Message: message, HTTPStatus: http.StatusUnauthorized}
}

func Internal(message string, err error) *ServiceError {
	return &ServiceError{Kind: KindInternal, Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// Network reports that a request was sent but no response was received.
func Network(err error) *ServiceError {
	return &ServiceError{Kind: KindNetwork, Code: CodeNetwork, Message: "Network error - no response received", Err: err}
}

func Timeout(err error) *ServiceError {
	return &ServiceError{Kind: KindTimeout, Code: CodeTimeout, Message: "Request timed out", Err: err}
}

// Service wraps a failure of the named operation that carried no server envelope.
func Service(operation string, err error) *ServiceError {
	return &ServiceError{Kind: KindService, Code: CodeService, Message: "Failed to " + operation, Err: err}
}

// RateLimitExceeded reports a rejected request. limit is requests per window
// and may be fractional.
func RateLimitExceeded(limit float64, window string) *ServiceError {
	return (&ServiceError{
		Kind:       KindRateLimited,
		Code:       CodeRateLimit,
		Message:    "Rate limit exceeded",
		HTTPStatus: http.StatusTooManyRequests,
	}).WithDetails("limit", limit).WithDetails("window", window)
}

// FromStatus builds an error for a response with the given status when the
// body carried no usable envelope.
func FromStatus(status int, message string) *ServiceError {
	var e *ServiceError
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		e = Validation(message)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e = Unauthorized(message)
	case status == http.StatusNotFound:
		e = NotFound(message)
	case status == http.StatusTooManyRequests:
		e = RateLimitExceeded(0, "")
		e.Message = message
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		e = Timeout(nil)
		e.Message = message
	default:
		e = Internal(message, nil)
	}
	e.HTTPStatus = status
	return e
}

// KindForCode maps an envelope error code back to a Kind.
func KindForCode(code ErrorCode, status int) Kind {
	switch code {
	case CodeValidation:
		return KindValidation
	case CodeNotFound, "not_found_error":
		return KindNotFound
	case CodeAuthentication, "authorization_error":
		return KindUnauthorized
	case CodeNetwork:
		return KindNetwork
	case CodeTimeout:
		return KindTimeout
	case CodeService:
		return KindService
	case CodeRateLimit:
		return KindRateLimited
	case CodeInternal:
		return KindInternal
	}
	return FromStatus(status, "").Kind
}
