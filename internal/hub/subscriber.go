package hub

import (
	"github.com/declview/hotview/internal/domain"
	"github.com/declview/hotview/internal/domain/events"
	"github.com/declview/hotview/internal/domain/ports"
	"github.com/declview/hotview/internal/sync"
)

// ChannelSubscriber delivers events over a buffered channel. The WebSocket
// bridge drains it from each client's write pump.
type ChannelSubscriber struct {
	id string

	mu     sync.Mutex
	send   chan events.Event
	done   chan struct{}
	closed bool
}

// NewChannelSubscriber creates a channel-backed subscriber.
func NewChannelSubscriber(id string, bufferSize int) *ChannelSubscriber {
	return &ChannelSubscriber{
		id:   id,
		send: make(chan events.Event, bufferSize),
		done: make(chan struct{}),
	}
}

// ID returns the subscriber's unique identifier.
func (s *ChannelSubscriber) ID() string {
	return s.id
}

// Send queues an event for the consumer. A full buffer means the consumer
// stopped draining; it is reported the same way as a closed subscriber so
// the hub drops it.
func (s *ChannelSubscriber) Send(event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSubscriberClosed
	}
	select {
	case s.send <- event:
		return nil
	default:
		return domain.ErrSubscriberClosed
	}
}

// Close closes the subscriber. Safe to call more than once.
func (s *ChannelSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	close(s.send)
	return nil
}

// Done returns a channel closed when the subscriber is closed.
func (s *ChannelSubscriber) Done() <-chan struct{} {
	return s.done
}

// Events returns the channel to receive events from.
func (s *ChannelSubscriber) Events() <-chan events.Event {
	return s.send
}

// LogSubscriber invokes a function per event. The CLI reload feed uses it
// to render events for humans.
type LogSubscriber struct {
	id string

	mu     sync.Mutex
	done   chan struct{}
	closed bool
	fn     func(event events.Event)
}

// NewLogSubscriber creates a function-backed subscriber.
func NewLogSubscriber(id string, fn func(event events.Event)) *LogSubscriber {
	return &LogSubscriber{
		id:   id,
		done: make(chan struct{}),
		fn:   fn,
	}
}

// ID returns the subscriber's unique identifier.
func (s *LogSubscriber) ID() string {
	return s.id
}

// Send passes the event to the subscriber's function.
func (s *LogSubscriber) Send(event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSubscriberClosed
	}
	if s.fn != nil {
		s.fn(event)
	}
	return nil
}

// Close closes the subscriber. Safe to call more than once.
func (s *LogSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return nil
}

// Done returns a channel closed when the subscriber is closed.
func (s *LogSubscriber) Done() <-chan struct{} {
	return s.done
}

var (
	_ ports.Subscriber = (*ChannelSubscriber)(nil)
	_ ports.Subscriber = (*LogSubscriber)(nil)
)
