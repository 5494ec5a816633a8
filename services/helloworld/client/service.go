// Package helloworldclient maps hello-world message operations onto API
// transport calls. It validates input before anything reaches the network and
// normalizes every failure into an *errors.ServiceError.
package helloworldclient

import (
	"context"
	"fmt"
	"time"

	"github.com/R3E-Network/greeter/internal/domain/message"
	"github.com/R3E-Network/greeter/internal/errors"
	"github.com/R3E-Network/greeter/internal/httputil"
	"github.com/R3E-Network/greeter/internal/logging"
)

// API paths relative to the transport base URL.
const (
	PathHelloWorld = "/hello-world"
	PathHealth     = "/health"
	PathFeed       = "/ws/hello-world"
)

// Transport is the subset of *httputil.Client the service needs.
type Transport interface {
	Get(ctx context.Context, path string) (*httputil.Envelope, error)
	Post(ctx context.Context, path string, body any) (*httputil.Envelope, error)
	Put(ctx context.Context, path string, body any) (*httputil.Envelope, error)
	Delete(ctx context.Context, path string) (*httputil.Envelope, error)
}

var _ Transport = (*httputil.Client)(nil)

// HealthStatus is the payload of GET /health.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Service is the message service. It makes exactly one transport call per
// operation; retries, if any, belong to the transport.
type Service struct {
	transport Transport
	logger    *logging.Logger
}

// New creates a message service over the given transport.
func New(transport Transport, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewFromEnv("helloworld-service")
	}
	return &Service{transport: transport, logger: logger}
}

// ListAll fetches every message.
func (s *Service) ListAll(ctx context.Context) (*httputil.Envelope, error) {
	env, err := s.transport.Get(ctx, PathHelloWorld)
	if err != nil {
		return nil, s.fail(ctx, "get all messages", err)
	}
	return env, nil
}

// GetByID fetches one message. id must be a positive integer.
func (s *Service) GetByID(ctx context.Context, id string) (*httputil.Envelope, error) {
	n, err := message.ParseID(id)
	if err != nil {
		return nil, err
	}
	env, err := s.transport.Get(ctx, messagePath(n))
	if err != nil {
		return nil, s.fail(ctx, "get message by ID", err)
	}
	return env, nil
}

// Create validates input and creates a message.
func (s *Service) Create(ctx context.Context, input message.CreateInput) (*httputil.Envelope, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	env, err := s.transport.Post(ctx, PathHelloWorld, input)
	if err != nil {
		return nil, s.fail(ctx, "create message", err)
	}
	return env, nil
}

// Update validates input and replaces the name of a message.
func (s *Service) Update(ctx context.Context, id string, input message.CreateInput) (*httputil.Envelope, error) {
	n, err := message.ParseID(id)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	env, err := s.transport.Put(ctx, messagePath(n), input)
	if err != nil {
		return nil, s.fail(ctx, "update message", err)
	}
	return env, nil
}

// Delete removes a message.
func (s *Service) Delete(ctx context.Context, id string) (*httputil.Envelope, error) {
	n, err := message.ParseID(id)
	if err != nil {
		return nil, err
	}
	env, err := s.transport.Delete(ctx, messagePath(n))
	if err != nil {
		return nil, s.fail(ctx, "delete message", err)
	}
	return env, nil
}

// Health queries the backend health endpoint.
func (s *Service) Health(ctx context.Context) (*HealthStatus, error) {
	env, err := s.transport.Get(ctx, PathHealth)
	if err != nil {
		return nil, s.fail(ctx, "check health", err)
	}
	var status HealthStatus
	if err := env.Decode(&status); err != nil {
		return nil, errors.Service("check health", err)
	}
	return &status, nil
}

// fail passes a server error envelope through unchanged and wraps anything
// else as a service_error naming the operation.
func (s *Service) fail(ctx context.Context, operation string, err error) error {
	s.logger.WithContext(ctx).WithError(err).Errorf("HelloWorld service %s error", operation)

	if se := errors.GetServiceError(err); se != nil && se.FromServer() {
		return se
	}
	return errors.Service(operation, err)
}

func messagePath(id int) string {
	return fmt.Sprintf("%s/%d", PathHelloWorld, id)
}
