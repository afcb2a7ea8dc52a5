// Package testutil provides shared test utilities and mocks for hotview tests.
package testutil

import (
	"sync"

	"github.com/declview/hotview/internal/domain/events"
	"github.com/declview/hotview/internal/domain/ports"
)

// MockSubscriber implements ports.Subscriber for testing.
type MockSubscriber struct {
	id       string
	events   []events.Event
	mu       sync.Mutex
	closed   bool
	sendErr  error
	sendFunc func(events.Event) error
	done     chan struct{}
}

// NewMockSubscriber creates a new mock subscriber.
func NewMockSubscriber(id string) *MockSubscriber {
	return &MockSubscriber{
		id:     id,
		events: make([]events.Event, 0),
		done:   make(chan struct{}),
	}
}

// ID returns the subscriber ID.
func (m *MockSubscriber) ID() string {
	return m.id
}

// Send records the event and returns any configured error.
func (m *MockSubscriber) Send(e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendFunc != nil {
		return m.sendFunc(e)
	}

	if m.sendErr != nil {
		return m.sendErr
	}

	m.events = append(m.events, e)
	return nil
}

// Close marks the subscriber as closed.
func (m *MockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (m *MockSubscriber) Done() <-chan struct{} {
	return m.done
}

// Events returns all received events.
func (m *MockSubscriber) Events() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]events.Event, len(m.events))
	copy(result, m.events)
	return result
}

// EventCount returns the number of received events.
func (m *MockSubscriber) EventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// IsClosed returns whether the subscriber was closed.
func (m *MockSubscriber) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SetSendError configures an error to return on Send.
func (m *MockSubscriber) SetSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// SetSendFunc sets a custom function for Send behavior.
func (m *MockSubscriber) SetSendFunc(fn func(events.Event) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendFunc = fn
}

// ClearEvents removes all recorded events.
func (m *MockSubscriber) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = m.events[:0]
}

// Ensure MockSubscriber implements ports.Subscriber.
var _ ports.Subscriber = (*MockSubscriber)(nil)

// MockEventHub implements ports.EventHub for testing.
type MockEventHub struct {
	events      []events.Event
	subscribers []ports.Subscriber
	mu          sync.Mutex
	started     bool
	stopped     bool
}

// NewMockEventHub creates a new mock event hub.
func NewMockEventHub() *MockEventHub {
	return &MockEventHub{
		events:      make([]events.Event, 0),
		subscribers: make([]ports.Subscriber, 0),
	}
}

// Start marks the hub as started.
func (m *MockEventHub) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	return nil
}

// Stop marks the hub as stopped.
func (m *MockEventHub) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

// Publish records the event.
func (m *MockEventHub) Publish(e events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// Subscribe records the subscriber.
func (m *MockEventHub) Subscribe(sub ports.Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, sub)
}

// Unsubscribe removes a subscriber by ID.
func (m *MockEventHub) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, sub := range m.subscribers {
		if sub.ID() == id {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			return
		}
	}
}

// SubscriberCount returns the number of subscribers.
func (m *MockEventHub) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

// IsRunning returns true if the hub was started and not stopped.
func (m *MockEventHub) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started && !m.stopped
}

// PublishedEvents returns all published events.
func (m *MockEventHub) PublishedEvents() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]events.Event, len(m.events))
	copy(result, m.events)
	return result
}

// EventsOfType returns the published events matching the given type.
func (m *MockEventHub) EventsOfType(t events.EventType) []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []events.Event
	for _, e := range m.events {
		if e.Type() == t {
			result = append(result, e)
		}
	}
	return result
}

// Ensure MockEventHub implements ports.EventHub.
var _ ports.EventHub = (*MockEventHub)(nil)

// MockComponent implements ports.Reloadable for testing.
type MockComponent struct {
	mu        sync.Mutex
	resource  string
	location  string
	reloads   int
	reloadErr error
	reloadFn  func() error
}

// NewMockComponent creates a mock component for the given resource and
// runtime location.
func NewMockComponent(resource, location string) *MockComponent {
	return &MockComponent{resource: resource, location: location}
}

// ResourcePath returns the component's resource path.
func (m *MockComponent) ResourcePath() string {
	return m.resource
}

// Location returns the component's runtime location.
func (m *MockComponent) Location() string {
	return m.location
}

// Reload records the invocation and returns any configured error.
func (m *MockComponent) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads++
	if m.reloadFn != nil {
		return m.reloadFn()
	}
	return m.reloadErr
}

// ReloadCount returns the number of Reload invocations.
func (m *MockComponent) ReloadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reloads
}

// SetReloadError configures an error to return on Reload.
func (m *MockComponent) SetReloadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloadErr = err
}

// SetReloadFunc sets a custom function for Reload behavior.
func (m *MockComponent) SetReloadFunc(fn func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloadFn = fn
}

// Ensure MockComponent implements ports.Reloadable.
var _ ports.Reloadable = (*MockComponent)(nil)

// MockStyledComponent is a MockComponent with the style refresh capability.
type MockStyledComponent struct {
	MockComponent
	refreshes  int
	refreshErr error
}

// NewMockStyledComponent creates a mock component that supports style
// refresh.
func NewMockStyledComponent(resource, location string) *MockStyledComponent {
	return &MockStyledComponent{
		MockComponent: MockComponent{resource: resource, location: location},
	}
}

// RefreshStyles records the invocation and returns any configured error.
func (m *MockStyledComponent) RefreshStyles() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
	return m.refreshErr
}

// RefreshCount returns the number of RefreshStyles invocations.
func (m *MockStyledComponent) RefreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}

// SetRefreshError configures an error to return on RefreshStyles.
func (m *MockStyledComponent) SetRefreshError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshErr = err
}

// Ensure MockStyledComponent implements both contracts.
var (
	_ ports.Reloadable     = (*MockStyledComponent)(nil)
	_ ports.StyleRefresher = (*MockStyledComponent)(nil)
)

// ImmediateExecutor runs posted functions synchronously on the calling
// goroutine, standing in for the UI context in tests.
type ImmediateExecutor struct {
	mu     sync.Mutex
	posted int
}

// Post runs fn immediately.
func (e *ImmediateExecutor) Post(fn func()) {
	e.mu.Lock()
	e.posted++
	e.mu.Unlock()
	fn()
}

// Posted returns the number of posted functions.
func (e *ImmediateExecutor) Posted() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.posted
}

// QueueExecutor collects posted functions for explicit draining, letting
// tests observe what runs before and after the UI context turns over.
type QueueExecutor struct {
	mu  sync.Mutex
	fns []func()
}

// Post queues fn.
func (e *QueueExecutor) Post(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fns = append(e.fns, fn)
}

// Pending returns the number of queued functions.
func (e *QueueExecutor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.fns)
}

// Drain runs every queued function in order and returns how many ran.
func (e *QueueExecutor) Drain() int {
	e.mu.Lock()
	fns := e.fns
	e.fns = nil
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Ensure the executors implement ports.Executor.
var (
	_ ports.Executor = (*ImmediateExecutor)(nil)
	_ ports.Executor = (*QueueExecutor)(nil)
)
