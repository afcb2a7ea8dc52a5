package hotview

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/declview/hotview/internal/adapters/watcher"
	"github.com/declview/hotview/internal/buildpath"
	"github.com/declview/hotview/internal/dispatch"
	"github.com/declview/hotview/internal/domain/events"
	"github.com/declview/hotview/internal/domain/ports"
	"github.com/declview/hotview/internal/hub"
	"github.com/declview/hotview/internal/include"
	"github.com/declview/hotview/internal/registry"
	"github.com/declview/hotview/internal/sync"
)

// Aliases re-exporting the types embedders interact with. The internal
// packages carry the implementations; these are the supported surface.
type (
	// Reloadable is a live component backed by a view markup file.
	Reloadable = ports.Reloadable
	// StyleRefresher is the optional in-place stylesheet refresh capability.
	StyleRefresher = ports.StyleRefresher
	// Executor marshals reload work onto the application's UI context.
	Executor = ports.Executor
	// FileWatcher is the file change monitoring contract.
	FileWatcher = ports.FileWatcher
	// EventHub broadcasts engine lifecycle events to subscribers.
	EventHub = ports.EventHub
	// Subscriber receives events from the hub.
	Subscriber = ports.Subscriber
	// Event is a single engine lifecycle event.
	Event = events.Event
	// Registration is the ownership handle returned by Register.
	Registration = registry.Registration
	// Graph is the directed include graph over resource paths.
	Graph = registry.Graph
	// Stats is a point-in-time engine summary.
	Stats = dispatch.Stats
	// Profile describes one build layout for runtime-to-source mapping.
	Profile = buildpath.Profile
)

// DefaultDebounce is the quiet window applied to file change bursts when
// WithDebounce is not given.
const DefaultDebounce = 200 * time.Millisecond

// NewChannelSubscriber returns a hub subscriber delivering events on a
// buffered channel, for embedders that want to observe reload activity.
func NewChannelSubscriber(id string, buffer int) *hub.ChannelSubscriber {
	return hub.NewChannelSubscriber(id, buffer)
}

// DefaultProfiles returns the built-in build layout table.
func DefaultProfiles() []Profile {
	return buildpath.DefaultProfiles()
}

type options struct {
	debounce     time.Duration
	styleExts    []string
	resolverOpts []buildpath.Option
	executor     ports.Executor
	hub          ports.EventHub
	watcher      ports.FileWatcher
}

// Option configures an Engine.
type Option func(*options)

// WithDebounce sets the quiet window a file must stay unchanged before its
// change callback fires.
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// WithStyleExtensions sets the stylesheet extensions mapped to registered
// views by basename convention. Defaults to ".style".
func WithStyleExtensions(exts ...string) Option {
	return func(o *options) { o.styleExts = exts }
}

// WithProfiles registers custom build layouts tried before the built-ins.
func WithProfiles(profiles ...Profile) Option {
	return func(o *options) {
		o.resolverOpts = append(o.resolverOpts, buildpath.WithProfiles(profiles...))
	}
}

// WithConverter registers a custom output-to-source converter tried before
// all profile-derived ones. The converter is pure; the engine performs the
// existence check on its candidate.
func WithConverter(name string, fn func(outputPath string) (sourcePath string, ok bool)) Option {
	return func(o *options) {
		o.resolverOpts = append(o.resolverOpts, buildpath.WithConverter(name, fn))
	}
}

// WithExecutor replaces the engine-owned run loop with the application's
// UI executor. Reload callbacks are then invoked through exec.
func WithExecutor(exec Executor) Option {
	return func(o *options) { o.executor = exec }
}

// WithEventHub replaces the engine-owned event hub.
func WithEventHub(h EventHub) Option {
	return func(o *options) { o.hub = h }
}

// WithWatcher replaces the fsnotify-backed file watcher.
func WithWatcher(w FileWatcher) Option {
	return func(o *options) { o.watcher = w }
}

// Engine watches the markup and stylesheet files behind registered
// components and reloads them when those files change. An Engine is safe
// for concurrent use. A stopped engine cannot be restarted; create a new
// one instead.
type Engine struct {
	dispatcher *dispatch.Dispatcher
	resolver   *buildpath.Resolver
	watcher    ports.FileWatcher
	hub        ports.EventHub
	runLoop    *dispatch.RunLoop

	mu      sync.Mutex
	running bool
	stopped bool
}

// New creates an engine. Without options it owns all of its collaborators:
// an fsnotify watcher with the default debounce, a broadcast event hub, and
// a single-goroutine run loop for reload execution.
func New(opts ...Option) *Engine {
	o := options{debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}

	resolver := buildpath.NewResolver(o.resolverOpts...)

	w := o.watcher
	if w == nil {
		w = watcher.NewWatcher(o.debounce)
	}

	var runLoop *dispatch.RunLoop
	exec := o.executor
	if exec == nil {
		runLoop = dispatch.NewRunLoop()
		exec = runLoop
	}

	h := o.hub
	if h == nil {
		h = hub.New()
	}

	d := dispatch.New(dispatch.Deps{
		Registry:        registry.NewRegistry(),
		Analyzer:        include.NewAnalyzer(),
		Resolver:        resolver,
		Watcher:         w,
		Executor:        exec,
		Hub:             h,
		StyleExtensions: o.styleExts,
	})

	return &Engine{
		dispatcher: d,
		resolver:   resolver,
		watcher:    w,
		hub:        h,
		runLoop:    runLoop,
	}
}

// Start brings up the run loop, the event hub, and the file watcher. The
// context bounds the watcher's event loop; cancelling it is equivalent to
// calling Stop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return fmt.Errorf("engine already running")
	}
	if e.stopped {
		return fmt.Errorf("engine already stopped")
	}

	if e.runLoop != nil {
		e.runLoop.Start()
	}
	if err := e.hub.Start(); err != nil {
		return fmt.Errorf("starting event hub: %w", err)
	}
	if err := e.watcher.Start(ctx); err != nil {
		_ = e.hub.Stop()
		if e.runLoop != nil {
			e.runLoop.Stop()
		}
		return fmt.Errorf("starting watcher: %w", err)
	}

	e.running = true
	log.Debug().Msg("engine started")
	return nil
}

// Stop tears the engine down: the watcher stops producing changes, the run
// loop drains pending reloads, and the hub closes its subscribers. Safe to
// call more than once.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return nil
	}
	e.running = false
	e.stopped = true

	err := e.watcher.Stop()
	if e.runLoop != nil {
		e.runLoop.Stop()
	}
	if herr := e.hub.Stop(); herr != nil && err == nil {
		err = herr
	}

	log.Debug().Msg("engine stopped")
	return err
}

// IsRunning reports whether the engine has been started and not stopped.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Register adds a live component. The engine resolves the component's
// runtime location to its source file, analyzes its includes, and watches
// the markup, every included file, and the conventional stylesheets. The
// caller releases the returned handle when the component is disposed.
func (e *Engine) Register(component Reloadable) (*Registration, error) {
	return e.dispatcher.Register(component)
}

// Reload forces a full reload cycle for a registered resource, as if its
// file had changed on disk.
func (e *Engine) Reload(resource string) error {
	return e.dispatcher.Reload(resource)
}

// Reset drops every registration, watch, and graph edge.
func (e *Engine) Reset() {
	e.dispatcher.Reset()
}

// Stats summarizes the engine's current state.
func (e *Engine) Stats() Stats {
	return e.dispatcher.Stats()
}

// Graph returns the live include graph. The graph is shared, not a copy;
// use its export methods rather than mutating it.
func (e *Engine) Graph() *Graph {
	return e.dispatcher.Registry().Graph()
}

// Resources lists the registered root resource paths, sorted.
func (e *Engine) Resources() []string {
	return e.dispatcher.Registry().Resources()
}

// ResolveSource maps a runtime location to the source file it was built
// from. ok is false when no known layout produces an existing file.
func (e *Engine) ResolveSource(location string) (string, bool) {
	return e.resolver.ToSourcePath(location)
}

// ResolveOutput maps a source file to its build output location.
func (e *Engine) ResolveOutput(sourcePath string) (string, bool) {
	return e.resolver.ToOutputPath(sourcePath)
}

// WatchedFiles returns the number of files currently watched.
func (e *Engine) WatchedFiles() int {
	return e.watcher.WatchedCount()
}

// WatcherRunning reports whether the file watcher is active.
func (e *Engine) WatcherRunning() bool {
	return e.watcher.IsRunning()
}

// Hub returns the engine's event hub. Subscribe to observe reload
// lifecycle events; the hub accepts subscribers before Start.
func (e *Engine) Hub() EventHub {
	return e.hub
}
