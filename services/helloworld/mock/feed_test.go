package helloworldmock

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/greeter/internal/domain/message"
)

func TestSubscribe_ReceivesCreateAndDelete(t *testing.T) {
	b := newTestBackend(t)
	changes, cancel := b.Subscribe()
	defer cancel()

	rr, _ := serve(t, b, http.MethodPost, "/api/hello-world", `{"name":"Test User"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr, _ = serve(t, b, http.MethodDelete, "/api/hello-world/1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	created := <-changes
	assert.Equal(t, message.ChangeCreated, created.Type)
	assert.Equal(t, 3, created.Message.ID)
	assert.Equal(t, "Hello, Test User!", created.Message.Message)
	assert.Equal(t, fixedNow, created.Timestamp)

	deleted := <-changes
	assert.Equal(t, message.ChangeDeleted, deleted.Type)
	assert.Equal(t, "John Doe", deleted.Message.Name)
}

func TestSubscribe_FailuresPublishNothing(t *testing.T) {
	b := newTestBackend(t)
	changes, cancel := b.Subscribe()
	defer cancel()

	serve(t, b, http.MethodPost, "/api/hello-world", `{"name":"  "}`)
	serve(t, b, http.MethodDelete, "/api/hello-world/99", "")

	select {
	case c := <-changes:
		t.Fatalf("unexpected change %+v", c)
	default:
	}
}

func TestSubscribe_CancelIsIdempotent(t *testing.T) {
	b := newTestBackend(t)
	changes, cancel := b.Subscribe()
	assert.Equal(t, 1, b.Subscribers())

	cancel()
	cancel()
	assert.Equal(t, 0, b.Subscribers())
	_, open := <-changes
	assert.False(t, open)

	// publishing with no subscribers is a no-op
	rr, _ := serve(t, b, http.MethodPost, "/api/hello-world", `{"name":"Nobody"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestSubscribe_SlowSubscriberDropsChanges(t *testing.T) {
	b := newTestBackend(t)
	changes, cancel := b.Subscribe()
	defer cancel()

	for i := 0; i < feedBuffer+5; i++ {
		serve(t, b, http.MethodPost, "/api/hello-world", `{"name":"Flood"}`)
	}
	assert.Len(t, changes, feedBuffer)
	assert.Len(t, b.Messages(), 2+feedBuffer+5)
}

func TestFeed_StreamsChangesOverWebsocket(t *testing.T) {
	b := newTestBackend(t)
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + DefaultPrefix + FeedPath
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.Eventually(t, func() bool { return b.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	post, err := http.Post(srv.URL+"/api/hello-world", "application/json", strings.NewReader(`{"name":"Socket"}`))
	require.NoError(t, err)
	post.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var change message.Change
	require.NoError(t, conn.ReadJSON(&change))
	assert.Equal(t, message.ChangeCreated, change.Type)
	assert.Equal(t, "Hello, Socket!", change.Message.Message)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool { return b.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestFeed_PlainRequestIsRejected(t *testing.T) {
	b := newTestBackend(t)

	rr, _ := serve(t, b, http.MethodGet, "/api"+FeedPath, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 0, b.Subscribers())
}
