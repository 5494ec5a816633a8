package helloworldclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/greeter/internal/domain/message"
	"github.com/R3E-Network/greeter/internal/errors"
	"github.com/R3E-Network/greeter/internal/logging"
	helloworldmock "github.com/R3E-Network/greeter/services/helloworld/mock"
)

func TestNewFeed_URL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8080/api", "ws://localhost:8080/api/ws/hello-world"},
		{"https://example.com/api/", "wss://example.com/api/ws/hello-world"},
		{"ws://10.0.0.1/v1", "ws://10.0.0.1/v1/ws/hello-world"},
	}
	for _, tt := range tests {
		feed, err := NewFeed(tt.base, logging.Discard())
		require.NoError(t, err)
		assert.Equal(t, tt.want, feed.URL())
	}

	_, err := NewFeed("ftp://example.com", logging.Discard())
	assert.ErrorContains(t, err, `unsupported base url scheme "ftp"`)
}

func TestFeed_Watch(t *testing.T) {
	backend := helloworldmock.New(helloworldmock.Config{Logger: logging.Discard()})
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	feed, err := NewFeed(srv.URL+helloworldmock.DefaultPrefix, logging.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan message.Change, 4)
	done := make(chan error, 1)
	go func() {
		done <- feed.Watch(ctx, func(c message.Change) { got <- c })
	}()
	require.Eventually(t, func() bool { return backend.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/hello-world", "application/json", strings.NewReader(`{"name":"Watcher"}`))
	require.NoError(t, err)
	resp.Body.Close()

	select {
	case c := <-got:
		assert.Equal(t, message.ChangeCreated, c.Type)
		assert.Equal(t, 3, c.Message.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no change received")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestFeed_WatchDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	feed, err := NewFeed(srv.URL, logging.Discard())
	require.NoError(t, err)
	srv.Close()

	err = feed.Watch(context.Background(), func(message.Change) {})
	require.Error(t, err)
	assert.True(t, errors.IsNetwork(err))
}
