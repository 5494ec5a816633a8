// Package httputil provides the API transport, the response envelope and
// JSON response helpers.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/R3E-Network/greeter/internal/errors"
	"github.com/R3E-Network/greeter/internal/logging"
	"github.com/R3E-Network/greeter/internal/metrics"
)

const (
	// TraceIDHeader carries the caller's trace ID.
	TraceIDHeader = "X-Trace-ID"

	maxResponseBody = 8 << 20
	maxErrorBody    = 64 << 10
)

// =============================================================================
// Client
// =============================================================================

// Client is the HTTP transport used by the message service. It knows nothing
// about messages: it injects the auth token, decodes response envelopes and
// classifies failures into *errors.ServiceError.
type Client struct {
	httpClient *http.Client
	baseURL    string
	retry      RetryConfig
	logger     *logging.Logger
	metrics    *metrics.Metrics

	tokenMu sync.RWMutex
	token   string
}

// ClientConfig configures the client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	// MaxRetries applies to idempotent requests only. Negative disables retries.
	MaxRetries int
	// Retry overrides the retry policy entirely when non-nil.
	Retry *RetryConfig
	// Transport replaces the default round tripper (mock mode, tests).
	Transport http.RoundTripper
	Logger    *logging.Logger
	Metrics   *metrics.Metrics
}

// NewClient creates a new transport client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	retry := DefaultRetryConfig()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	} else if cfg.MaxRetries != 0 {
		retry.MaxRetries = cfg.MaxRetries
	}
	if retry.MaxRetries < 0 {
		retry.MaxRetries = 0
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewFromEnv("transport")
	}

	httpClient := &http.Client{Timeout: timeout}
	if cfg.Transport != nil {
		httpClient.Transport = cfg.Transport
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		retry:      retry,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AuthToken returns the bearer token attached to requests.
func (c *Client) AuthToken() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

// SetAuthToken sets the bearer token; an empty token removes it.
func (c *Client) SetAuthToken(token string) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	c.token = token
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Envelope, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put performs a PUT request with JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Envelope, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// Do executes a request and decodes the response envelope. Any failure is a
// *errors.ServiceError.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Envelope, error) {
	start := time.Now()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, errors.Internal("Request configuration error", fmt.Errorf("marshal request body: %w", err))
		}
	}

	maxAttempts := 1
	if c.retry.allowsMethod(method) {
		maxAttempts += c.retry.MaxRetries
	}

	var (
		env *Envelope
		err error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			c.metrics.RecordClientRetry(method)
			if werr := wait(ctx, c.retry.backoff(attempt-1)); werr != nil {
				err = classifyTransportError(werr)
				break
			}
		}

		var retryable bool
		env, retryable, err = c.attempt(ctx, method, path, payload)
		if err == nil || !retryable {
			break
		}
		c.logger.WithContext(ctx).WithFields(logrus.Fields{
			"method":  method,
			"path":    path,
			"attempt": attempt,
		}).WithError(err).Debug("API request failed, retrying")
	}

	c.metrics.RecordClientRequest(method, outcome(err), time.Since(start))
	return env, err
}

// attempt performs a single round trip. The bool reports whether a failure may be retried.
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte) (*Envelope, bool, error) {
	log := c.logger.WithContext(ctx)

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		log.WithError(err).Error("Request configuration error")
		return nil, false, errors.Internal("Request configuration error", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.AuthToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if traceID := logging.GetTraceID(ctx); traceID != "" {
		req.Header.Set(TraceIDHeader, traceID)
	}

	log.WithFields(logrus.Fields{"method": method, "url": req.URL.String()}).Debug("API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Error("Network error - no response received")
		return nil, c.retry.isRetryableError(err), classifyTransportError(err)
	}
	defer resp.Body.Close()

	log.WithFields(logrus.Fields{"status": resp.StatusCode, "path": path}).Debug("API response")

	if resp.StatusCode >= http.StatusBadRequest {
		raw, truncated, rerr := ReadAllWithLimit(resp.Body, maxErrorBody)
		if rerr != nil {
			return nil, true, errors.Network(fmt.Errorf("read error response body: %w", rerr))
		}
		se := c.classifyResponse(ctx, resp.StatusCode, raw, truncated)
		return nil, c.retry.isRetryableStatus(resp.StatusCode), se
	}

	raw, err := ReadAllStrict(resp.Body, maxResponseBody)
	if err != nil {
		return nil, false, errors.Network(fmt.Errorf("read response body: %w", err))
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &Envelope{}, false, nil
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false, errors.Internal("Invalid response body", fmt.Errorf("failed to decode response: %w", err))
	}
	if env.Status == StatusError {
		log.WithField("message", env.Message).Warn("API returned error status")
	}
	return &env, false, nil
}

// classifyResponse turns a >= 400 response into a ServiceError. A structured
// error envelope is preserved verbatim.
func (c *Client) classifyResponse(ctx context.Context, status int, raw []byte, truncated bool) *errors.ServiceError {
	log := c.logger.WithContext(ctx).WithField("status", status)

	var se *errors.ServiceError
	if !truncated && gjson.ValidBytes(raw) &&
		gjson.GetBytes(raw, "status").String() == StatusError &&
		gjson.GetBytes(raw, "error").String() != "" {
		code := errors.ErrorCode(gjson.GetBytes(raw, "error").String())
		message := gjson.GetBytes(raw, "message").String()
		if message == "" {
			message = http.StatusText(status)
		}
		se = &errors.ServiceError{
			Kind:       errors.KindForCode(code, status),
			Code:       code,
			Message:    message,
			HTTPStatus: status,
			Envelope:   append([]byte(nil), raw...),
		}
	} else {
		msg := strings.TrimSpace(string(raw))
		if truncated {
			msg += "...(truncated)"
		}
		se = errors.FromStatus(status, fmt.Sprintf("request failed with status %d", status))
		if msg != "" {
			se.WithDetails("body", msg)
		}
	}

	log = log.WithField("message", se.Message)
	switch status {
	case http.StatusUnauthorized:
		c.SetAuthToken("")
		log.Warn("API Error: unauthorized, auth token cleared")
	case http.StatusNotFound:
		log.Warn("Resource not found")
	case http.StatusInternalServerError:
		log.Error("Internal server error")
	default:
		log.Error("Unexpected API error")
	}
	return se
}

// classifyTransportError maps a failed round trip (no response) to a ServiceError.
func classifyTransportError(err error) *errors.ServiceError {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Timeout(err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.Timeout(err)
	}
	return errors.Network(err)
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return errors.KindOf(err).String()
}
