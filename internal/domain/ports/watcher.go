package ports

import "context"

// ChangeCallback is invoked once per settled change of a watched file,
// after the debounce window has elapsed. It runs on a watcher-owned
// goroutine; callers that need a specific context must redispatch.
type ChangeCallback func(path string)

// FileWatcher defines the contract for per-file change monitoring.
type FileWatcher interface {
	// Watch registers interest in a single file. The file does not need to
	// exist yet. Multiple callbacks may be registered for the same path, and
	// Watch may be called before or after Start.
	Watch(path string, cb ChangeCallback) error

	// Unwatch removes all callbacks registered for a path.
	Unwatch(path string)

	// Start begins delivering change notifications.
	Start(ctx context.Context) error

	// Stop terminates file watching and cancels pending notifications.
	Stop() error

	// IsRunning returns true if the watcher is active.
	IsRunning() bool

	// WatchedCount returns the number of watched file paths.
	WatchedCount() int
}
