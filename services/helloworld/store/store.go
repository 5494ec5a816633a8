// Package helloworldstore holds the client-side copy of the message list and
// the loading/error flags a UI renders from.
//
// Every action follows the same shape: set loading and clear the error, call
// the service once, commit the result or record the failure, and reset
// loading on every exit path. Failures are both stored as a display string
// and returned to the caller.
//
// Concurrent actions are not deduplicated. Two actions running at once race
// on Loading and Error and the last writer wins; the mutex only keeps the
// fields memory-safe and is never held across a service call.
package helloworldstore

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/R3E-Network/greeter/internal/domain/message"
	"github.com/R3E-Network/greeter/internal/errors"
	"github.com/R3E-Network/greeter/internal/httputil"
	"github.com/R3E-Network/greeter/internal/logging"
)

// DefaultErrorMessage is stored when a failure carries no usable text.
const DefaultErrorMessage = "An unexpected error occurred"

// State is a point-in-time copy of the store.
type State struct {
	Messages       []message.Message
	CurrentMessage *message.Message
	Loading        bool
	// Error is nil when the last action succeeded or the error was cleared.
	Error *string
}

// Store is the stateful orchestrator over a MessageService.
type Store struct {
	service MessageService
	logger  *logging.Logger

	mu       sync.RWMutex
	state    State
	listener func(State)
}

// New creates an empty store.
func New(service MessageService, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewFromEnv("helloworld-store")
	}
	return &Store{service: service, logger: logger}
}

// OnChange registers fn to receive a snapshot after every state change.
// It replaces any earlier listener; nil removes it. fn runs without the
// store lock held and may call back into the store.
func (s *Store) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = fn
}

// =============================================================================
// Actions
// =============================================================================

// FetchMessages replaces the list with the backend's. A payload that is not
// a list becomes an empty list; a success envelope without data, or a list
// whose entries are not messages, is a failure.
func (s *Store) FetchMessages(ctx context.Context) error {
	s.begin()
	defer s.end()

	env, err := s.service.ListAll(ctx)
	if err != nil {
		return s.fail(ctx, "Fetch messages", err)
	}
	if !env.IsSuccess() || !env.HasData() {
		return s.fail(ctx, "Fetch messages", unexpected(env, "fetch messages"))
	}

	list := []message.Message{}
	if gjson.ParseBytes(env.Data).IsArray() {
		if err := env.Decode(&list); err != nil {
			return s.fail(ctx, "Fetch messages", errors.Internal("Invalid message payload", err))
		}
	}
	s.update(func(st *State) { st.Messages = list })
	return nil
}

// FetchMessage loads one message into CurrentMessage and returns it.
func (s *Store) FetchMessage(ctx context.Context, id int) (*message.Message, error) {
	s.begin()
	defer s.end()

	env, err := s.service.GetByID(ctx, strconv.Itoa(id))
	if err != nil {
		return nil, s.fail(ctx, "Fetch message", err)
	}
	if !env.IsSuccess() || !env.HasData() {
		return nil, s.fail(ctx, "Fetch message", unexpected(env, "fetch message"))
	}

	var msg message.Message
	if err := env.Decode(&msg); err != nil {
		return nil, s.fail(ctx, "Fetch message", errors.Internal("Invalid message payload", err))
	}
	s.update(func(st *State) { st.CurrentMessage = &msg })

	out := msg
	return &out, nil
}

// CreateMessage creates a message and appends it to the list.
func (s *Store) CreateMessage(ctx context.Context, name string) (*message.Message, error) {
	s.begin()
	defer s.end()

	env, err := s.service.Create(ctx, message.CreateInput{Name: name})
	if err != nil {
		return nil, s.fail(ctx, "Create message", err)
	}
	if !env.IsSuccess() || !env.HasData() {
		return nil, s.fail(ctx, "Create message", unexpected(env, "create message"))
	}

	var created message.Message
	if err := env.Decode(&created); err != nil {
		return nil, s.fail(ctx, "Create message", errors.Internal("Invalid message payload", err))
	}
	s.update(func(st *State) {
		if st.Messages == nil {
			st.Messages = []message.Message{}
		}
		st.Messages = append(st.Messages, created)
	})
	return &created, nil
}

// DeleteMessage deletes a message and drops it from the list. An id missing
// from the local list is not an error.
func (s *Store) DeleteMessage(ctx context.Context, id int) error {
	s.begin()
	defer s.end()

	env, err := s.service.Delete(ctx, strconv.Itoa(id))
	if err != nil {
		return s.fail(ctx, "Delete message", err)
	}
	if !env.IsSuccess() {
		return s.fail(ctx, "Delete message", unexpected(env, "delete message"))
	}

	s.update(func(st *State) {
		st.Messages = lo.Filter(st.Messages, func(m message.Message, _ int) bool { return m.ID != id })
	})
	return nil
}

// ApplyChange folds a change pushed by the backend into the list without a
// round trip. A create for an id already present and a delete for an id
// that is absent leave the list alone. Loading and Error are untouched.
func (s *Store) ApplyChange(change message.Change) {
	s.update(func(st *State) {
		present := lo.ContainsBy(st.Messages, func(m message.Message) bool { return m.ID == change.Message.ID })
		switch change.Type {
		case message.ChangeCreated:
			if !present {
				st.Messages = append(st.Messages, change.Message)
			}
		case message.ChangeDeleted:
			if present {
				st.Messages = lo.Filter(st.Messages, func(m message.Message, _ int) bool { return m.ID != change.Message.ID })
			}
		}
	})
}

// ClearError drops the stored error and touches nothing else.
func (s *Store) ClearError() {
	s.update(func(st *State) { st.Error = nil })
}

// =============================================================================
// Accessors
// =============================================================================

// Messages returns a copy of the list in insertion order.
func (s *Store) Messages() []message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Messages)
}

// SortedMessages returns the list newest first by CreatedAt.
func (s *Store) SortedMessages() []message.Message {
	sorted := s.Messages()
	slices.SortStableFunc(sorted, func(a, b message.Message) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return sorted
}

// CurrentMessage returns the last fetched single message, or nil.
func (s *Store) CurrentMessage() *message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.CurrentMessage == nil {
		return nil
	}
	msg := *s.state.CurrentMessage
	return &msg
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Loading
}

// LastError returns the stored error text, empty when there is none.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Error == nil {
		return ""
	}
	return *s.state.Error
}

func (s *Store) HasError() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Error != nil
}

func (s *Store) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.Messages)
}

func (s *Store) HasMessages() bool {
	return s.MessageCount() > 0
}

// Snapshot returns a copy of the whole state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// =============================================================================
// Internals
// =============================================================================

func (s *Store) begin() {
	s.update(func(st *State) {
		st.Loading = true
		st.Error = nil
	})
}

func (s *Store) end() {
	s.update(func(st *State) { st.Loading = false })
}

// fail records err for display and returns it unchanged.
func (s *Store) fail(ctx context.Context, action string, err error) error {
	text := ErrorMessage(err)
	s.logger.WithContext(ctx).WithError(err).Errorf("%s error", action)
	s.update(func(st *State) { st.Error = &text })
	return err
}

func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	listener := s.listener
	var snap State
	if listener != nil {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	if listener != nil {
		listener(snap)
	}
}

func (s *Store) snapshotLocked() State {
	snap := State{
		Messages: slices.Clone(s.state.Messages),
		Loading:  s.state.Loading,
	}
	if s.state.CurrentMessage != nil {
		msg := *s.state.CurrentMessage
		snap.CurrentMessage = &msg
	}
	if s.state.Error != nil {
		text := *s.state.Error
		snap.Error = &text
	}
	return snap
}

// ErrorMessage turns err into the text shown to users: the ServiceError
// message when there is one, else the error text, else DefaultErrorMessage.
func ErrorMessage(err error) string {
	if se := errors.GetServiceError(err); se != nil && se.Message != "" {
		return se.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return DefaultErrorMessage
}

// unexpected reports a response that arrived without error but cannot be
// committed, using the envelope message when the server sent one.
func unexpected(env *httputil.Envelope, operation string) error {
	se := errors.Service(operation, nil)
	if env != nil && env.Message != "" {
		se.Message = env.Message
	}
	return se
}
