package source

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/medley/internal/errors"
)

// Wire frame labels. A frame is a JSON array whose first element is the label:
//
//	client → relay: ["REQ", subID, filter...]  ["CLOSE", subID]
//	relay → client: ["EVENT", subID, event]    ["EOSE", subID]    ["NOTICE", text]
const (
	frameReq    = "REQ"
	frameClose  = "CLOSE"
	frameEvent  = "EVENT"
	frameEOSE   = "EOSE"
	frameNotice = "NOTICE"
)

// subscriptionBuffer is the per-subscription channel capacity. The read pump
// never blocks on a slow consumer; overflow events are dropped and the next
// refresh re-queries them.
const subscriptionBuffer = 256

// Relay is a websocket connection to a single event relay.
type Relay struct {
	URL    string
	logger *log.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu     sync.Mutex
	subs   map[string]chan Event
	closed bool
	done   chan struct{}
}

// Dial connects to a relay and starts its read pump.
func Dial(ctx context.Context, url string, logger *log.Logger) (*Relay, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.NewSourceUnavailable(url, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	r := &Relay{
		URL:    url,
		logger: logger.With("relay", url),
		conn:   conn,
		subs:   make(map[string]chan Event),
		done:   make(chan struct{}),
	}
	go r.readPump()
	return r, nil
}

// Closed reports whether the connection has been lost or closed.
func (r *Relay) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Close tears down the connection and all live subscriptions.
func (r *Relay) Close() error {
	r.shutdown()
	return nil
}

// Subscribe issues a REQ for the given filters and returns the event channel.
// The subscription is closed when ctx is cancelled or the connection drops.
func (r *Relay) Subscribe(ctx context.Context, filters []Filter) (<-chan Event, error) {
	if len(filters) == 0 {
		return nil, errors.NewInvalidRequest("at least one filter is required")
	}

	subID := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	ch := make(chan Event, subscriptionBuffer)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, errors.NewSourceUnavailable(r.URL, fmt.Errorf("connection closed"))
	}
	r.subs[subID] = ch
	r.mu.Unlock()

	frame := make([]any, 0, 2+len(filters))
	frame = append(frame, frameReq, subID)
	for _, f := range filters {
		frame = append(frame, f)
	}
	if err := r.writeJSON(frame); err != nil {
		r.dropSubscription(subID)
		return nil, errors.NewSourceUnavailable(r.URL, err)
	}

	go func() {
		select {
		case <-ctx.Done():
			// Best effort: the relay may already be gone.
			_ = r.writeJSON([]any{frameClose, subID})
			r.dropSubscription(subID)
		case <-r.done:
		}
	}()

	return ch, nil
}

// writeJSON serializes concurrent writers onto the single connection.
func (r *Relay) writeJSON(v any) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.conn.WriteJSON(v)
}

// readPump dispatches incoming frames to their subscriptions until the
// connection fails.
func (r *Relay) readPump() {
	defer r.shutdown()

	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			r.logger.Warn("connection lost", "error", err)
			return
		}

		var frame []json.RawMessage
		if err := json.Unmarshal(data, &frame); err != nil || len(frame) == 0 {
			r.logger.Debug("discarding malformed frame")
			continue
		}

		var label string
		if err := json.Unmarshal(frame[0], &label); err != nil {
			continue
		}

		switch label {
		case frameEvent:
			if len(frame) < 3 {
				continue
			}
			var subID string
			if err := json.Unmarshal(frame[1], &subID); err != nil {
				continue
			}
			var ev Event
			if err := json.Unmarshal(frame[2], &ev); err != nil {
				r.logger.Debug("discarding malformed event", "sub", subID)
				continue
			}
			r.deliver(subID, ev)

		case frameEOSE:
			// End of stored events; the subscription stays live for new ones.

		case frameNotice:
			var text string
			if len(frame) > 1 {
				_ = json.Unmarshal(frame[1], &text)
			}
			r.logger.Info("relay notice", "text", text)
		}
	}
}

// deliver hands an event to a subscription without ever blocking the pump.
// The send happens under r.mu so a concurrent dropSubscription cannot close
// the channel mid-send; the select keeps the critical section non-blocking.
func (r *Relay) deliver(subID string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.subs[subID]
	if !ok {
		return
	}

	select {
	case ch <- ev:
	default:
		r.logger.Warn("subscription buffer full, dropping event", "sub", subID, "event", ev.ID)
	}
}

// dropSubscription removes and closes a single subscription. The close
// happens under r.mu, after which deliver can no longer see the channel.
func (r *Relay) dropSubscription(subID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.subs[subID]; ok {
		delete(r.subs, subID)
		close(ch)
	}
}

// shutdown closes the connection and every live subscription exactly once.
func (r *Relay) shutdown() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, ch := range r.subs {
		close(ch)
	}
	r.subs = make(map[string]chan Event)
	close(r.done)
	r.mu.Unlock()

	_ = r.conn.Close()
}
