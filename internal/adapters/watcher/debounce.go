package watcher

import (
	"time"

	"github.com/declview/hotview/internal/sync"
)

// Debouncer coalesces rapid triggers per path. Each trigger cancels and
// reschedules the path's timer, so the callback fires exactly once per
// burst, one quiet window after the last trigger.
type Debouncer struct {
	window   time.Duration
	callback func(path string)

	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiet window and callback.
func NewDebouncer(window time.Duration, callback func(path string)) *Debouncer {
	return &Debouncer{
		window:   window,
		callback: callback,
		pending:  make(map[string]*time.Timer),
	}
}

// Trigger queues or extends the pending callback for path.
func (d *Debouncer) Trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if existing, ok := d.pending[path]; ok {
		existing.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(d.window, func() {
		d.fire(path, timer)
	})
	d.pending[path] = timer
}

// fire runs the callback for path unless the trigger was superseded. A
// stopped timer can still fire if the Stop raced its expiry; the identity
// check drops such stale firings.
func (d *Debouncer) fire(path string, timer *time.Timer) {
	d.mu.Lock()
	current, ok := d.pending[path]
	if !ok || current != timer || d.stopped {
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	d.mu.Unlock()

	if d.callback != nil {
		d.callback(path)
	}
}

// PendingCount returns the number of paths awaiting their quiet window.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels all pending timers. A stopped debouncer ignores further
// triggers; the watcher creates a fresh one on each Start.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for _, timer := range d.pending {
		timer.Stop()
	}
	d.pending = make(map[string]*time.Timer)
}
