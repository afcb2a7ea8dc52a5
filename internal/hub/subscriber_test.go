package hub

import (
	"errors"
	"testing"

	"github.com/declview/hotview/internal/domain"
	"github.com/declview/hotview/internal/domain/events"
)

func TestChannelSubscriber_Send(t *testing.T) {
	sub := NewChannelSubscriber("ch-1", 4)

	if sub.ID() != "ch-1" {
		t.Errorf("ID() = %s, want ch-1", sub.ID())
	}

	event := events.NewViewReloadedEvent("app/Main.view", nil, 1, 2, events.TriggerViewChange)
	if err := sub.Send(event); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case got := <-sub.Events():
		if got.Type() != events.EventTypeViewReloaded {
			t.Errorf("received type = %s, want view_reloaded", got.Type())
		}
	default:
		t.Fatal("event not delivered to channel")
	}
}

func TestChannelSubscriber_FullBuffer(t *testing.T) {
	sub := NewChannelSubscriber("ch-1", 1)

	if err := sub.Send(events.NewEvent(events.EventTypeHeartbeat, nil)); err != nil {
		t.Fatalf("first Send() error = %v", err)
	}
	err := sub.Send(events.NewEvent(events.EventTypeHeartbeat, nil))
	if !errors.Is(err, domain.ErrSubscriberClosed) {
		t.Errorf("Send() on full buffer = %v, want ErrSubscriberClosed", err)
	}
}

func TestChannelSubscriber_Close(t *testing.T) {
	sub := NewChannelSubscriber("ch-1", 4)

	if err := sub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if err := sub.Send(events.NewEvent(events.EventTypeHeartbeat, nil)); !errors.Is(err, domain.ErrSubscriberClosed) {
		t.Errorf("Send() after Close = %v, want ErrSubscriberClosed", err)
	}

	select {
	case <-sub.Done():
	default:
		t.Error("Done() should be closed after Close()")
	}

	// The events channel is closed, so range loops over it terminate.
	if _, open := <-sub.Events(); open {
		t.Error("events channel should be closed")
	}
}

func TestLogSubscriber_Send(t *testing.T) {
	var received []events.Event
	sub := NewLogSubscriber("log-1", func(e events.Event) {
		received = append(received, e)
	})

	if err := sub.Send(events.NewEvent(events.EventTypeWatchStarted, nil)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("received %d events, want 1", len(received))
	}
	if received[0].Type() != events.EventTypeWatchStarted {
		t.Errorf("type = %s, want watch_started", received[0].Type())
	}
}

func TestLogSubscriber_SendAfterClose(t *testing.T) {
	called := false
	sub := NewLogSubscriber("log-1", func(events.Event) { called = true })

	_ = sub.Close()

	if err := sub.Send(events.NewEvent(events.EventTypeHeartbeat, nil)); !errors.Is(err, domain.ErrSubscriberClosed) {
		t.Errorf("Send() after Close = %v, want ErrSubscriberClosed", err)
	}
	if called {
		t.Error("function should not run after Close")
	}
}

func TestLogSubscriber_NilFunc(t *testing.T) {
	sub := NewLogSubscriber("log-1", nil)
	if err := sub.Send(events.NewEvent(events.EventTypeHeartbeat, nil)); err != nil {
		t.Errorf("Send() with nil func error = %v", err)
	}
}
