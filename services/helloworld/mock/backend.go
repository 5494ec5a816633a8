// Package helloworldmock is an in-memory fake of the hello-world API. It is
// used by tests and by development runs without a real backend.
package helloworldmock

import (
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/R3E-Network/greeter/internal/domain/message"
	"github.com/R3E-Network/greeter/internal/logging"
)

const (
	// DefaultPrefix is the path prefix the backend intercepts.
	DefaultPrefix = "/api"
	// Version is reported by the health endpoint.
	Version = "1.0.0"
)

// Seed returns the two messages a fresh or reset backend holds.
func Seed() []message.Message {
	first := time.Date(2025, time.January, 20, 10, 0, 0, 0, time.UTC)
	second := time.Date(2025, time.January, 20, 11, 0, 0, 0, time.UTC)
	return []message.Message{
		{ID: 1, Name: "John Doe", Message: message.Greeting("John Doe"), CreatedAt: first, UpdatedAt: first},
		{ID: 2, Name: "Jane Smith", Message: message.Greeting("Jane Smith"), CreatedAt: second, UpdatedAt: second},
	}
}

// Config configures a Backend.
type Config struct {
	// Prefix defaults to DefaultPrefix.
	Prefix string
	Logger *logging.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Backend owns its own message list, independent of any client-side store.
type Backend struct {
	mu       sync.RWMutex
	messages []message.Message

	prefix   string
	clock    func() time.Time
	logger   *logging.Logger
	router   *mux.Router
	feed     feed
	upgrader websocket.Upgrader
}

// New creates a backend holding the seed messages.
func New(cfg Config) *Backend {
	prefix := strings.TrimSuffix(cfg.Prefix, "/")
	if cfg.Prefix == "" {
		prefix = DefaultPrefix
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewFromEnv("helloworld-mock")
	}

	b := &Backend{
		messages: Seed(),
		prefix:   prefix,
		clock:    clock,
		logger:   logger,
		feed:     feed{subs: make(map[chan message.Change]struct{})},
		upgrader: websocket.Upgrader{HandshakeTimeout: 10 * time.Second},
	}
	b.router = b.routes()
	return b
}

// Reset restores the seed messages.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = Seed()
}

// Messages returns a copy of the current list, in insertion order.
func (b *Backend) Messages() []message.Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.messages)
}

// Prefix returns the intercepted path prefix.
func (b *Backend) Prefix() string {
	return b.prefix
}

// Handles reports whether path falls under the backend prefix.
func (b *Backend) Handles(path string) bool {
	if b.prefix == "" {
		return true
	}
	return path == b.prefix || strings.HasPrefix(path, b.prefix+"/")
}

// Router exposes the backend routes, e.g. to attach middleware.
func (b *Backend) Router() *mux.Router {
	return b.router
}

// Handler serves requests under the prefix and hands every other request to
// next unchanged. A nil next answers those with a plain 404.
func (b *Backend) Handler(next http.Handler) http.Handler {
	if next == nil {
		next = http.NotFoundHandler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !b.Handles(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		b.router.ServeHTTP(w, r)
	})
}

// ServeHTTP implements http.Handler with no pass-through target.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.Handler(nil).ServeHTTP(w, r)
}
