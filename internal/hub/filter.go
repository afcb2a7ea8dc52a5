package hub

import (
	"sort"
	"strings"

	"github.com/declview/hotview/internal/domain/events"
	"github.com/declview/hotview/internal/domain/ports"
	"github.com/declview/hotview/internal/sync"
)

// FilteredSubscriber wraps a subscriber and filters events by resource
// path prefix, so a preview shell showing one view subtree is not woken by
// unrelated reloads. Events without a resource (watch lifecycle, errors,
// heartbeats) always pass. An empty filter forwards everything.
type FilteredSubscriber struct {
	inner ports.Subscriber

	mu       sync.RWMutex
	prefixes map[string]struct{}
}

// NewFilteredSubscriber wraps inner with an initially empty filter.
func NewFilteredSubscriber(inner ports.Subscriber) *FilteredSubscriber {
	return &FilteredSubscriber{
		inner:    inner,
		prefixes: make(map[string]struct{}),
	}
}

// ID returns the wrapped subscriber's identifier.
func (f *FilteredSubscriber) ID() string {
	return f.inner.ID()
}

// Send forwards the event if it passes the filter.
func (f *FilteredSubscriber) Send(event events.Event) error {
	if !f.shouldForward(event) {
		return nil
	}
	return f.inner.Send(event)
}

// Close closes the wrapped subscriber.
func (f *FilteredSubscriber) Close() error {
	return f.inner.Close()
}

// Done returns the wrapped subscriber's done channel.
func (f *FilteredSubscriber) Done() <-chan struct{} {
	return f.inner.Done()
}

// SubscribeResource adds a resource prefix to the filter. Prefixes are
// compared textually: "app/" matches everything under app, "app/Main"
// matches app/Main.view and app/Main.style.
func (f *FilteredSubscriber) SubscribeResource(prefix string) {
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes[prefix] = struct{}{}
}

// UnsubscribeResource removes a resource prefix from the filter.
func (f *FilteredSubscriber) UnsubscribeResource(prefix string) {
	prefix = strings.TrimPrefix(prefix, "/")
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.prefixes, prefix)
}

// SubscribeAll clears the filter, forwarding all events again.
func (f *FilteredSubscriber) SubscribeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes = make(map[string]struct{})
}

// Resources returns the sorted resource prefixes in the filter.
func (f *FilteredSubscriber) Resources() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, 0, len(f.prefixes))
	for p := range f.prefixes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// IsFiltering returns true if any resource prefix is set.
func (f *FilteredSubscriber) IsFiltering() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.prefixes) > 0
}

func (f *FilteredSubscriber) shouldForward(event events.Event) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.prefixes) == 0 {
		return true
	}
	resource := event.GetResource()
	if resource == "" {
		return true
	}
	for p := range f.prefixes {
		if strings.HasPrefix(resource, p) {
			return true
		}
	}
	return false
}

var _ ports.Subscriber = (*FilteredSubscriber)(nil)
