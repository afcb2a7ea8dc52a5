// Package hub fans engine events out to connected subscribers: WebSocket
// clients, the daemon's internal logger, and tests.
package hub

import (
	"github.com/rs/zerolog/log"

	"github.com/declview/hotview/internal/domain/events"
	"github.com/declview/hotview/internal/domain/ports"
	"github.com/declview/hotview/internal/sync"
)

// Hub is the central event dispatcher fanning events out to all
// subscribers. Subscribers may be added before Start; events published
// before Start sit in the broadcast buffer until the loop begins. A hub
// is single-use: once stopped it stays stopped.
type Hub struct {
	broadcast chan events.Event

	mu          sync.RWMutex
	subscribers map[string]ports.Subscriber
	done        chan struct{}
	running     bool
	stopped     bool
}

// New creates a hub.
func New() *Hub {
	return &Hub{
		subscribers: make(map[string]ports.Subscriber),
		broadcast:   make(chan events.Event, 256),
		done:        make(chan struct{}),
	}
}

// Start begins the hub's event loop. Starting a running hub is a no-op.
func (h *Hub) Start() error {
	h.mu.Lock()
	if h.running || h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.running = true
	h.mu.Unlock()

	log.Debug().Msg("event hub started")

	go h.run()
	return nil
}

// Stop terminates the event loop and closes every subscriber.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	h.stopped = true

	subs := h.subscribers
	h.subscribers = make(map[string]ports.Subscriber)
	h.mu.Unlock()

	close(h.done)
	for _, sub := range subs {
		_ = sub.Close()
	}

	log.Debug().Msg("event hub stopped")
	return nil
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return

		case event := <-h.broadcast:
			h.mu.RLock()
			var failed []string
			for id, sub := range h.subscribers {
				if err := sub.Send(event); err != nil {
					log.Warn().
						Str("subscriber_id", id).
						Err(err).
						Msg("dropping subscriber, send failed")
					failed = append(failed, id)
				}
			}
			h.mu.RUnlock()

			for _, id := range failed {
				h.remove(id)
			}
		}
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()

	if ok {
		_ = sub.Close()
		log.Debug().Str("subscriber_id", id).Msg("subscriber unregistered")
	}
}

// Publish queues an event for broadcast. It never blocks; when the
// broadcast buffer is full the event is dropped with a warning.
func (h *Hub) Publish(event events.Event) {
	select {
	case h.broadcast <- event:
		log.Trace().
			Str("event_type", string(event.Type())).
			Msg("event published")
	default:
		log.Warn().
			Str("event_type", string(event.Type())).
			Msg("event dropped: broadcast channel full")
	}
}

// Subscribe adds a subscriber. Subscribing to a stopped hub is a no-op.
func (h *Hub) Subscribe(sub ports.Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return
	}
	h.subscribers[sub.ID()] = sub
	log.Debug().Str("subscriber_id", sub.ID()).Msg("subscriber registered")
}

// Unsubscribe removes and closes a subscriber by ID.
func (h *Hub) Unsubscribe(id string) {
	h.remove(id)
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// IsRunning returns true if the hub is running.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// Ensure Hub implements ports.EventHub.
var _ ports.EventHub = (*Hub)(nil)
