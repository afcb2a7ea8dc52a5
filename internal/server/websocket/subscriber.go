package websocket

import (
	"github.com/declview/hotview/internal/domain"
	"github.com/declview/hotview/internal/domain/events"
)

// ClientSubscriber adapts a Client to the event hub's subscriber port.
// Events are serialized once per client and queued on the send channel.
type ClientSubscriber struct {
	client *Client
}

// NewClientSubscriber wraps a client as a hub subscriber.
func NewClientSubscriber(client *Client) *ClientSubscriber {
	return &ClientSubscriber{client: client}
}

// ID returns the underlying client's identifier.
func (s *ClientSubscriber) ID() string {
	return s.client.ID()
}

// Send serializes the event and queues it for delivery.
func (s *ClientSubscriber) Send(event events.Event) error {
	if s.client.IsClosed() {
		return domain.ErrSubscriberClosed
	}

	data, err := event.ToJSON()
	if err != nil {
		return err
	}

	s.client.Send(data)
	return nil
}

// Close closes the underlying client.
func (s *ClientSubscriber) Close() error {
	s.client.Close()
	return nil
}

// Done returns a channel closed when the client shuts down.
func (s *ClientSubscriber) Done() <-chan struct{} {
	return s.client.done
}
