package hotview

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/declview/hotview/internal/domain"
	"github.com/declview/hotview/internal/domain/events"
	"github.com/declview/hotview/internal/testutil"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// viewProject lays out a minimal project: a root view including a header,
// plus the root's conventional stylesheet.
func viewProject(t *testing.T) (dir, mainPath string) {
	t.Helper()
	dir = t.TempDir()
	mainPath = filepath.Join(dir, "app", "Main.view")
	writeFile(t, mainPath, `<pane>
    <include source="Header.view"/>
    <label text="hello"/>
</pane>`)
	writeFile(t, filepath.Join(dir, "app", "Header.view"), `<pane><label text="header"/></pane>`)
	writeFile(t, filepath.Join(dir, "app", "Main.style"), `label { color: #333; }`)
	return dir, mainPath
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestEngine_StartStop(t *testing.T) {
	engine := New(WithDebounce(30 * time.Millisecond))

	if engine.IsRunning() {
		t.Error("new engine should not be running")
	}
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !engine.IsRunning() {
		t.Error("engine should be running after Start")
	}
	if err := engine.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}

	if err := engine.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if engine.IsRunning() {
		t.Error("engine should not be running after Stop")
	}
	if err := engine.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if err := engine.Start(context.Background()); err == nil {
		t.Error("Start after Stop should fail")
	}
}

func TestEngine_RegisterWatchesDependencies(t *testing.T) {
	_, mainPath := viewProject(t)

	engine := New(WithDebounce(30 * time.Millisecond))
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer engine.Stop()

	comp := testutil.NewMockComponent("app/Main.view", mainPath)
	reg, err := engine.Register(comp)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	defer reg.Release()

	// Markup, included header, conventional stylesheet.
	if got := engine.WatchedFiles(); got != 3 {
		t.Errorf("WatchedFiles() = %d, want 3", got)
	}

	stats := engine.Stats()
	if stats.Resources != 1 {
		t.Errorf("Stats.Resources = %d, want 1", stats.Resources)
	}
	if stats.Live != 1 {
		t.Errorf("Stats.Live = %d, want 1", stats.Live)
	}
	if stats.Edges != 1 {
		t.Errorf("Stats.Edges = %d, want 1", stats.Edges)
	}

	resources := engine.Resources()
	if len(resources) != 1 || resources[0] != "app/Main.view" {
		t.Errorf("Resources() = %v, want [app/Main.view]", resources)
	}
	if got := engine.Graph().Children("app/Main.view"); len(got) != 1 || got[0] != "app/Header.view" {
		t.Errorf("Children(app/Main.view) = %v, want [app/Header.view]", got)
	}
}

func TestEngine_ReloadOnIncludeChange(t *testing.T) {
	dir, mainPath := viewProject(t)

	engine := New(WithDebounce(30 * time.Millisecond))
	sub := NewChannelSubscriber("observer", 16)
	engine.Hub().Subscribe(sub)

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer engine.Stop()

	comp := testutil.NewMockComponent("app/Main.view", mainPath)
	reg, err := engine.Register(comp)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	defer reg.Release()

	writeFile(t, filepath.Join(dir, "app", "Header.view"), `<pane><label text="edited"/></pane>`)

	if !waitFor(t, 2*time.Second, func() bool { return comp.ReloadCount() > 0 }) {
		t.Fatal("component was not reloaded after include change")
	}
	if got := comp.ReloadCount(); got != 1 {
		t.Errorf("ReloadCount() = %d, want 1", got)
	}

	// The reload is observable on the hub.
	deadline := time.After(time.Second)
	for {
		select {
		case event := <-sub.Events():
			if event.Type() == events.EventTypeViewReloaded {
				return
			}
		case <-deadline:
			t.Fatal("no view_reloaded event observed")
		}
	}
}

func TestEngine_StyleChangeRefreshesInPlace(t *testing.T) {
	dir, mainPath := viewProject(t)

	engine := New(WithDebounce(30 * time.Millisecond))
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer engine.Stop()

	comp := testutil.NewMockStyledComponent("app/Main.view", mainPath)
	reg, err := engine.Register(comp)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	defer reg.Release()

	writeFile(t, filepath.Join(dir, "app", "Main.style"), `label { color: #000; }`)

	if !waitFor(t, 2*time.Second, func() bool { return comp.RefreshCount() > 0 }) {
		t.Fatal("styles were not refreshed after stylesheet change")
	}
	if got := comp.ReloadCount(); got != 0 {
		t.Errorf("ReloadCount() = %d, want 0 for a style-capable component", got)
	}
}

func TestEngine_ManualReload(t *testing.T) {
	_, mainPath := viewProject(t)

	// A synchronous executor makes the reload observable without waiting.
	engine := New(WithExecutor(&testutil.ImmediateExecutor{}))

	comp := testutil.NewMockComponent("app/Main.view", mainPath)
	reg, err := engine.Register(comp)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	defer reg.Release()

	if err := engine.Reload("app/Main.view"); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := comp.ReloadCount(); got != 1 {
		t.Errorf("ReloadCount() = %d, want 1", got)
	}

	if err := engine.Reload("missing/View.view"); !errors.Is(err, domain.ErrNotRegistered) {
		t.Errorf("Reload(unknown) error = %v, want ErrNotRegistered", err)
	}
	if err := engine.Reload("../escape"); !errors.Is(err, domain.ErrInvalidResourcePath) {
		t.Errorf("Reload(invalid) error = %v, want ErrInvalidResourcePath", err)
	}
}

func TestEngine_ResolveWithCustomProfile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ui", "src", "app", "A.view")
	out := filepath.Join(dir, "out", "res", "app", "A.view")
	writeFile(t, src, `<pane/>`)
	writeFile(t, out, `<pane/>`)

	engine := New(WithProfiles(Profile{
		Name:         "custom",
		OutputMarker: "out/res",
		SourceDir:    "ui/src",
		OutputDir:    "out/res",
	}))

	got, ok := engine.ResolveSource(out)
	if !ok {
		t.Fatalf("ResolveSource(%s) ok = false", out)
	}
	if got != src {
		t.Errorf("ResolveSource() = %s, want %s", got, src)
	}

	back, ok := engine.ResolveOutput(src)
	if !ok {
		t.Fatalf("ResolveOutput(%s) ok = false", src)
	}
	if back != out {
		t.Errorf("ResolveOutput() = %s, want %s", back, out)
	}
}

func TestEngine_Reset(t *testing.T) {
	_, mainPath := viewProject(t)

	engine := New(WithExecutor(&testutil.ImmediateExecutor{}))

	comp := testutil.NewMockComponent("app/Main.view", mainPath)
	if _, err := engine.Register(comp); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	engine.Reset()

	stats := engine.Stats()
	if stats.Resources != 0 || stats.Registrations != 0 || stats.Edges != 0 {
		t.Errorf("Stats after Reset = %+v, want zeros", stats)
	}
	if got := engine.WatchedFiles(); got != 0 {
		t.Errorf("WatchedFiles() = %d, want 0", got)
	}
}
