package helloworldmock

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/R3E-Network/greeter/internal/domain/message"
)

const (
	// FeedPath is the websocket change feed, relative to the prefix.
	FeedPath = "/ws/hello-world"

	feedBuffer     = 16
	feedWriteWait  = 10 * time.Second
	feedPingPeriod = 30 * time.Second
)

// feed fans backend changes out to subscribers. A subscriber whose buffer
// is full misses the change.
type feed struct {
	mu   sync.Mutex
	subs map[chan message.Change]struct{}
}

// Subscribe returns a channel that receives every later create and delete,
// and a cancel func that closes it. cancel is safe to call more than once.
func (b *Backend) Subscribe() (<-chan message.Change, func()) {
	ch := make(chan message.Change, feedBuffer)

	b.feed.mu.Lock()
	b.feed.subs[ch] = struct{}{}
	b.feed.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.feed.mu.Lock()
			defer b.feed.mu.Unlock()
			delete(b.feed.subs, ch)
			close(ch)
		})
	}
}

// Subscribers returns the number of open subscriptions.
func (b *Backend) Subscribers() int {
	b.feed.mu.Lock()
	defer b.feed.mu.Unlock()
	return len(b.feed.subs)
}

func (b *Backend) publish(changeType string, msg message.Message) {
	change := message.Change{Type: changeType, Message: msg, Timestamp: b.clock().UTC()}

	b.feed.mu.Lock()
	defer b.feed.mu.Unlock()
	for ch := range b.feed.subs {
		select {
		case ch <- change:
		default:
			b.logger.WithField("type", changeType).Warn("mock backend: feed subscriber is behind, change dropped")
		}
	}
}

// handleFeed upgrades to a websocket and streams changes as JSON text
// frames until the peer goes away. Inbound frames are discarded.
func (b *Backend) handleFeed(w http.ResponseWriter, r *http.Request) {
	b.logIntercepted(r)

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		b.logger.WithError(err).Debug("mock backend: feed upgrade failed")
		return
	}
	defer conn.Close()

	changes, cancel := b.Subscribe()
	defer cancel()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return
		case change := <-changes:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(change); err != nil {
				b.logger.WithError(err).Debug("mock backend: feed write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return
			}
		}
	}
}
