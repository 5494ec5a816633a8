package helloworldclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/R3E-Network/greeter/internal/domain/message"
	"github.com/R3E-Network/greeter/internal/errors"
	"github.com/R3E-Network/greeter/internal/logging"
)

// Feed follows the backend change feed over a websocket.
type Feed struct {
	url    string
	dialer websocket.Dialer
	logger *logging.Logger
}

// NewFeed derives the feed URL from the API base URL, so
// http://host:8080/api becomes ws://host:8080/api/ws/hello-world.
func NewFeed(baseURL string, logger *logging.Logger) (*Feed, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	u.Path += PathFeed

	if logger == nil {
		logger = logging.NewFromEnv("helloworld-feed")
	}
	return &Feed{
		url:    u.String(),
		dialer: websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logger,
	}, nil
}

// URL returns the websocket URL the feed dials.
func (f *Feed) URL() string {
	return f.url
}

// Watch dials the feed and calls fn for each change, in order, until ctx
// ends or the server closes the stream. Both of those return nil.
func (f *Feed) Watch(ctx context.Context, fn func(message.Change)) error {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.Network(fmt.Errorf("websocket dial: %w", err))
	}
	defer conn.Close()
	f.logger.WithContext(ctx).WithField("url", f.url).Info("change feed connected")

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	for {
		var change message.Change
		if err := conn.ReadJSON(&change); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return errors.Network(fmt.Errorf("read change: %w", err))
		}
		fn(change)
	}
}
