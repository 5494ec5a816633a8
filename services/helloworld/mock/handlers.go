package helloworldmock

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/R3E-Network/greeter/internal/domain/message"
	"github.com/R3E-Network/greeter/internal/errors"
	"github.com/R3E-Network/greeter/internal/httputil"
)

// =============================================================================
// Routes
// =============================================================================

func (b *Backend) routes() *mux.Router {
	root := mux.NewRouter()
	api := root
	if b.prefix != "" {
		api = root.PathPrefix(b.prefix).Subrouter()
	}

	api.HandleFunc("/hello-world", b.handleList).Methods(http.MethodGet)
	api.HandleFunc("/hello-world", b.handleCreate).Methods(http.MethodPost)
	api.HandleFunc("/hello-world/{id}", b.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/hello-world/{id}", b.handleDelete).Methods(http.MethodDelete)
	api.HandleFunc("/health", b.handleHealth).Methods(http.MethodGet)
	api.HandleFunc(FeedPath, b.handleFeed).Methods(http.MethodGet)

	fallback := http.HandlerFunc(b.handleUnmatched)
	for _, r := range []*mux.Router{root, api} {
		r.NotFoundHandler = fallback
		r.MethodNotAllowedHandler = fallback
	}
	return root
}

// =============================================================================
// HTTP Handlers
// =============================================================================

func (b *Backend) handleList(w http.ResponseWriter, r *http.Request) {
	b.logIntercepted(r)
	httputil.WriteSuccess(w, http.StatusOK, "Messages retrieved successfully", b.Messages())
}

func (b *Backend) handleGet(w http.ResponseWriter, r *http.Request) {
	b.logIntercepted(r)

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	b.mu.RLock()
	msg, found := lo.Find(b.messages, func(m message.Message) bool { return m.ID == id })
	b.mu.RUnlock()

	if !found {
		httputil.NotFound(w, fmt.Sprintf("Message %d not found", id))
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Message retrieved successfully", msg)
}

func (b *Backend) handleCreate(w http.ResponseWriter, r *http.Request) {
	b.logIntercepted(r)

	var input message.CreateInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		b.logger.WithError(err).Error("mock backend: create failed")
		httputil.InternalError(w, "Failed to create message")
		return
	}
	if err := input.Validate(); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	created := b.create(input.Name)
	b.publish(message.ChangeCreated, created)
	httputil.WriteSuccess(w, http.StatusCreated, "Message created successfully", created)
}

func (b *Backend) handleDelete(w http.ResponseWriter, r *http.Request) {
	b.logIntercepted(r)

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	deleted, found := b.remove(id)
	if !found {
		httputil.NotFound(w, fmt.Sprintf("Message %d not found", id))
		return
	}
	b.publish(message.ChangeDeleted, deleted)
	httputil.WriteSuccess(w, http.StatusOK, fmt.Sprintf("Message %d deleted successfully", id), deleted)
}

func (b *Backend) handleHealth(w http.ResponseWriter, r *http.Request) {
	b.logIntercepted(r)
	httputil.WriteSuccess(w, http.StatusOK, "API is healthy", map[string]any{
		"status":    "healthy",
		"timestamp": b.clock().UTC(),
		"version":   Version,
	})
}

func (b *Backend) handleUnmatched(w http.ResponseWriter, r *http.Request) {
	b.logIntercepted(r)
	httputil.NotFound(w, "No handler found for this request")
}

// =============================================================================
// State
// =============================================================================

func (b *Backend) create(name string) message.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	trimmed := strings.TrimSpace(name)
	now := b.clock().UTC()
	maxID := lo.Max(lo.Map(b.messages, func(m message.Message, _ int) int { return m.ID }))

	created := message.Message{
		ID:        maxID + 1,
		Name:      trimmed,
		Message:   message.Greeting(trimmed),
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.messages = append(b.messages, created)
	return created
}

func (b *Backend) remove(id int) (message.Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	msg, idx, found := lo.FindIndexOf(b.messages, func(m message.Message) bool { return m.ID == id })
	if !found {
		return message.Message{}, false
	}
	b.messages = append(b.messages[:idx:idx], b.messages[idx+1:]...)
	return msg, true
}

// parseID reads the {id} route variable; a non-numeric id is answered with 400.
func parseID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteServiceError(w, errors.Validation("Invalid ID format"))
		return 0, false
	}
	return id, true
}

func (b *Backend) logIntercepted(r *http.Request) {
	b.logger.WithContext(r.Context()).WithFields(logrus.Fields{
		"method": r.Method,
		"url":    r.URL.String(),
	}).Debug("mock backend intercepted request")
}
