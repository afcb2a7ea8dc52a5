package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/declview/hotview/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func waitForChange(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("callback path = %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for change of %s", want)
	}
}

func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		if w.IsRunning() {
			_ = w.Stop()
		}
	})
}

func TestWatcher_WriteTriggersCallback(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Main.view")
	writeFile(t, file, "<view/>")

	w := NewWatcher(20 * time.Millisecond)
	ch := make(chan string, 8)
	if err := w.Watch(file, func(path string) { ch <- path }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	startWatcher(t, w)

	writeFile(t, file, "<view><button/></view>")

	waitForChange(t, ch, file)
}

func TestWatcher_BurstCollapses(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Main.view")
	writeFile(t, file, "a")

	w := NewWatcher(150 * time.Millisecond)
	var count atomic.Int32
	if err := w.Watch(file, func(string) { count.Add(1) }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	startWatcher(t, w)

	for i := 0; i < 5; i++ {
		writeFile(t, file, "content")
	}

	time.Sleep(600 * time.Millisecond)
	if got := count.Load(); got != 1 {
		t.Errorf("callback fired %d times for one burst, want 1", got)
	}
}

func TestWatcher_WatchBeforeStart(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Settings.view")
	writeFile(t, file, "<view/>")

	w := NewWatcher(20 * time.Millisecond)
	ch := make(chan string, 8)
	if err := w.Watch(file, func(path string) { ch <- path }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if got := w.WatchedCount(); got != 1 {
		t.Fatalf("WatchedCount() = %d before Start, want 1", got)
	}
	startWatcher(t, w)

	writeFile(t, file, "changed")

	waitForChange(t, ch, file)
}

func TestWatcher_FileCreatedLater(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "New.view")

	w := NewWatcher(20 * time.Millisecond)
	ch := make(chan string, 8)
	if err := w.Watch(file, func(path string) { ch <- path }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	startWatcher(t, w)

	writeFile(t, file, "<view/>")

	waitForChange(t, ch, file)
}

func TestWatcher_FileInFreshSubdirectory(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "app")
	file := filepath.Join(sub, "Main.view")

	w := NewWatcher(20 * time.Millisecond)
	ch := make(chan string, 8)
	if err := w.Watch(file, func(path string) { ch <- path }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	startWatcher(t, w)

	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// Give the watcher a moment to adopt the new directory.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, file, "<view/>")

	waitForChange(t, ch, file)
}

func TestWatcher_AtomicReplace(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Main.view")
	writeFile(t, file, "old")

	w := NewWatcher(20 * time.Millisecond)
	ch := make(chan string, 8)
	if err := w.Watch(file, func(path string) { ch <- path }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	startWatcher(t, w)

	// Editors save by writing a temp file and renaming it over the target.
	tmp := filepath.Join(dir, ".Main.view.tmp")
	writeFile(t, tmp, "new")
	if err := os.Rename(tmp, file); err != nil {
		t.Fatalf("rename: %v", err)
	}

	waitForChange(t, ch, file)
}

func TestWatcher_Unwatch(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Main.view")
	writeFile(t, file, "a")

	w := NewWatcher(20 * time.Millisecond)
	var count atomic.Int32
	if err := w.Watch(file, func(string) { count.Add(1) }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	startWatcher(t, w)

	w.Unwatch(file)
	if got := w.WatchedCount(); got != 0 {
		t.Fatalf("WatchedCount() = %d after Unwatch, want 0", got)
	}

	writeFile(t, file, "b")
	time.Sleep(300 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("callback fired %d times after Unwatch, want 0", got)
	}
}

func TestWatcher_MultipleCallbacksPerPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Main.view")
	writeFile(t, file, "a")

	w := NewWatcher(20 * time.Millisecond)
	first := make(chan string, 8)
	second := make(chan string, 8)
	if err := w.Watch(file, func(path string) { first <- path }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := w.Watch(file, func(path string) { second <- path }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if got := w.WatchedCount(); got != 1 {
		t.Fatalf("WatchedCount() = %d, want 1", got)
	}
	startWatcher(t, w)

	writeFile(t, file, "b")

	waitForChange(t, first, file)
	waitForChange(t, second, file)
}

func TestWatcher_StartStop(t *testing.T) {
	w := NewWatcher(20 * time.Millisecond)

	if w.IsRunning() {
		t.Fatal("watcher should not be running before Start")
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !w.IsRunning() {
		t.Error("watcher should be running after Start")
	}
	if err := w.Start(context.Background()); !errors.Is(err, domain.ErrWatcherAlreadyRunning) {
		t.Errorf("second Start error = %v, want ErrWatcherAlreadyRunning", err)
	}

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if w.IsRunning() {
		t.Error("watcher should not be running after Stop")
	}
	if err := w.Stop(); !errors.Is(err, domain.ErrWatcherNotRunning) {
		t.Errorf("second Stop error = %v, want ErrWatcherNotRunning", err)
	}
}

func TestWatcher_RestartKeepsRegistrations(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Main.view")
	writeFile(t, file, "a")

	w := NewWatcher(20 * time.Millisecond)
	ch := make(chan string, 8)
	if err := w.Watch(file, func(path string) { ch <- path }); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	startWatcher(t, w)

	writeFile(t, file, "b")

	waitForChange(t, ch, file)
}

func TestNearestExistingDir(t *testing.T) {
	root := t.TempDir()

	if got := nearestExistingDir(filepath.Join(root, "file.view")); got != root {
		t.Errorf("nearestExistingDir = %q, want %q", got, root)
	}
	if got := nearestExistingDir(filepath.Join(root, "a", "b", "file.view")); got != root {
		t.Errorf("nearestExistingDir = %q, want %q", got, root)
	}
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var count atomic.Int32
	d := NewDebouncer(50*time.Millisecond, func(string) { count.Add(1) })
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Trigger("a.view")
	}
	if got := d.PendingCount(); got != 1 {
		t.Fatalf("PendingCount() = %d, want 1", got)
	}

	time.Sleep(250 * time.Millisecond)
	if got := count.Load(); got != 1 {
		t.Errorf("callback fired %d times, want 1", got)
	}
	if got := d.PendingCount(); got != 0 {
		t.Errorf("PendingCount() = %d after fire, want 0", got)
	}
}

func TestDebouncer_SeparatePaths(t *testing.T) {
	ch := make(chan string, 8)
	d := NewDebouncer(20*time.Millisecond, func(path string) { ch <- path })
	defer d.Stop()

	d.Trigger("a.view")
	d.Trigger("b.view")

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case p := <-ch:
			got[p] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for callbacks")
		}
	}
	if !got["a.view"] || !got["b.view"] {
		t.Errorf("fired paths = %v, want both a.view and b.view", got)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	var count atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func(string) { count.Add(1) })

	d.Trigger("a.view")
	d.Stop()
	d.Trigger("b.view")

	time.Sleep(150 * time.Millisecond)
	if got := count.Load(); got != 0 {
		t.Errorf("callback fired %d times after Stop, want 0", got)
	}
}
