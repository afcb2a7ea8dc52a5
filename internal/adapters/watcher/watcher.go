// Package watcher implements per-file change monitoring on fsnotify with
// per-path debouncing.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/declview/hotview/internal/domain"
	"github.com/declview/hotview/internal/domain/ports"
	"github.com/declview/hotview/internal/sync"
)

// watchEntry is the registration state of one watched file.
type watchEntry struct {
	callbacks []ports.ChangeCallback
	dir       string // fsnotify directory currently serving this file
}

// Watcher implements the FileWatcher port. It registers parent directories
// with fsnotify rather than the files themselves: editors replace files on
// save, and a directory watch survives the replacement.
type Watcher struct {
	window time.Duration

	mu      sync.RWMutex
	files   map[string]*watchEntry
	dirRefs map[string]int
	fs      *fsnotify.Watcher
	running bool
	cancel  context.CancelFunc

	debouncer *Debouncer
}

// NewWatcher creates a watcher with the given debounce window.
func NewWatcher(window time.Duration) *Watcher {
	if window <= 0 {
		window = 200 * time.Millisecond
	}
	return &Watcher{
		window:  window,
		files:   make(map[string]*watchEntry),
		dirRefs: make(map[string]int),
	}
}

// Watch registers cb for settled changes of the file at path. The file
// does not need to exist yet; the nearest existing ancestor directory is
// monitored until it does.
func (w *Watcher) Watch(path string, cb ports.ChangeCallback) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	entry := w.files[abs]
	if entry == nil {
		entry = &watchEntry{}
		w.files[abs] = entry
		if w.running {
			w.serveLocked(abs, entry)
		}
		log.Debug().Str("path", abs).Msg("file watch added")
	}
	entry.callbacks = append(entry.callbacks, cb)
	return nil
}

// Unwatch removes every callback registered for path. A debounce timer
// already pending for the path fires into an empty callback set.
func (w *Watcher) Unwatch(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	abs = filepath.Clean(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	entry := w.files[abs]
	if entry == nil {
		return
	}
	delete(w.files, abs)
	w.releaseDirLocked(entry.dir)
	log.Debug().Str("path", abs).Msg("file watch removed")
}

// Start registers the parent directories of all watched files and begins
// the event loop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return domain.ErrWatcherAlreadyRunning
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fs = fs
	w.dirRefs = make(map[string]int)

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.debouncer = NewDebouncer(w.window, w.dispatch)
	w.running = true

	for path, entry := range w.files {
		entry.dir = ""
		w.serveLocked(path, entry)
	}
	count := len(w.files)
	w.mu.Unlock()

	go w.eventLoop(watchCtx, fs)

	log.Info().
		Int("files", count).
		Dur("debounce", w.window).
		Msg("file watcher started")
	return nil
}

// Stop terminates the event loop and cancels pending debounce timers.
// Watch registrations survive, so Start may be called again.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return domain.ErrWatcherNotRunning
	}
	w.running = false

	w.cancel()
	w.debouncer.Stop()

	err := w.fs.Close()
	w.fs = nil
	log.Info().Msg("file watcher stopped")
	return err
}

// IsRunning returns true if the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// WatchedCount returns the number of watched file paths.
func (w *Watcher) WatchedCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.files)
}

// serveLocked points entry at the nearest existing ancestor directory of
// path and registers that directory with fsnotify.
func (w *Watcher) serveLocked(path string, entry *watchEntry) {
	dir := nearestExistingDir(path)
	if dir == entry.dir {
		return
	}
	w.releaseDirLocked(entry.dir)
	w.acquireDirLocked(dir)
	entry.dir = dir
}

func (w *Watcher) acquireDirLocked(dir string) {
	w.dirRefs[dir]++
	if w.dirRefs[dir] > 1 || w.fs == nil {
		return
	}
	if err := w.fs.Add(dir); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("failed to add watch")
	}
}

func (w *Watcher) releaseDirLocked(dir string) {
	if dir == "" {
		return
	}
	w.dirRefs[dir]--
	if w.dirRefs[dir] > 0 {
		return
	}
	delete(w.dirRefs, dir)
	if w.fs != nil {
		_ = w.fs.Remove(dir)
	}
}

// eventLoop drains fsnotify until the context is cancelled or the watcher
// is closed. fs is passed in so Stop can nil the field without racing the
// loop.
func (w *Watcher) eventLoop(ctx context.Context, fs *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-fs.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// handleEvent processes a single fsnotify event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	path := filepath.Clean(event.Name)

	// A directory born under a watched ancestor may be the parent a
	// pending file is waiting for.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.adoptDir(path)
			return
		}
	}

	w.mu.RLock()
	_, watched := w.files[path]
	w.mu.RUnlock()
	if !watched {
		return
	}

	w.debouncer.Trigger(path)
}

// adoptDir re-serves the files waiting below a freshly created directory.
// Files that already exist on disk by the time the directory watch lands
// are treated as changed, since their creation events were never seen.
func (w *Watcher) adoptDir(dir string) {
	prefix := dir + string(filepath.Separator)

	w.mu.Lock()
	var born []string
	for path, entry := range w.files {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		prev := entry.dir
		w.serveLocked(path, entry)
		if entry.dir == prev {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			born = append(born, path)
		}
	}
	w.mu.Unlock()

	for _, path := range born {
		w.debouncer.Trigger(path)
	}
}

// dispatch runs on a debounce timer goroutine once a path's quiet window
// has elapsed.
func (w *Watcher) dispatch(path string) {
	w.mu.RLock()
	entry := w.files[path]
	var cbs []ports.ChangeCallback
	if entry != nil {
		cbs = append(cbs, entry.callbacks...)
	}
	w.mu.RUnlock()

	if len(cbs) == 0 {
		return
	}

	log.Debug().Str("path", path).Msg("file changed")
	for _, cb := range cbs {
		cb(path)
	}
}

// nearestExistingDir walks up from path's parent to the first directory
// that exists. Watching it catches the creation of the missing chain.
func nearestExistingDir(path string) string {
	dir := filepath.Dir(path)
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

// Ensure Watcher implements ports.FileWatcher.
var _ ports.FileWatcher = (*Watcher)(nil)
