// Package dispatch coordinates the reload pipeline: it wires watches for
// registered views, reacts to settled file changes, expands the affected
// set through the include graph, and marshals reload work onto the UI
// executor.
package dispatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/declview/hotview/internal/buildpath"
	"github.com/declview/hotview/internal/domain"
	"github.com/declview/hotview/internal/domain/events"
	"github.com/declview/hotview/internal/domain/ports"
	"github.com/declview/hotview/internal/include"
	"github.com/declview/hotview/internal/pathutil"
	"github.com/declview/hotview/internal/registry"
	"github.com/declview/hotview/internal/sync"
)

// Deps are the collaborators a Dispatcher coordinates. Registry, Analyzer,
// Resolver, Watcher and Executor are required; Hub is optional and receives
// reload lifecycle events when set.
type Deps struct {
	Registry *registry.Registry
	Analyzer *include.Analyzer
	Resolver *buildpath.Resolver
	Watcher  ports.FileWatcher
	Executor ports.Executor
	Hub      ports.EventHub

	// StyleExtensions are the stylesheet extensions mapped to registered
	// views by basename convention. Defaults to [".style"].
	StyleExtensions []string
}

// Dispatcher owns the change pipeline for registered components.
type Dispatcher struct {
	reg       *registry.Registry
	analyzer  *include.Analyzer
	resolver  *buildpath.Resolver
	watcher   ports.FileWatcher
	executor  ports.Executor
	hub       ports.EventHub
	styleExts []string

	mu      sync.Mutex
	watched map[string]string // watched file path -> resource it reports as
}

// New creates a dispatcher from its collaborators.
func New(deps Deps) *Dispatcher {
	styleExts := deps.StyleExtensions
	if len(styleExts) == 0 {
		styleExts = []string{".style"}
	}
	return &Dispatcher{
		reg:       deps.Registry,
		analyzer:  deps.Analyzer,
		resolver:  deps.Resolver,
		watcher:   deps.Watcher,
		executor:  deps.Executor,
		hub:       deps.Hub,
		styleExts: styleExts,
		watched:   make(map[string]string),
	}
}

// Registry returns the dispatcher's component registry.
func (d *Dispatcher) Registry() *registry.Registry {
	return d.reg
}

// Register stores component and, on the first registration of its resource,
// analyzes its includes and wires watches for the markup file, every
// include, and the conventional stylesheets. Registration never fails on
// analysis problems; a view without a resolvable source file simply gets
// no watches.
func (d *Dispatcher) Register(component ports.Reloadable) (*registry.Registration, error) {
	resource := pathutil.CleanResource(component.ResourcePath())
	if resource == "" {
		return nil, domain.ErrInvalidResourcePath
	}

	reg := d.reg.Register(resource, component)
	if d.reg.NeedsAnalysis(resource) {
		d.analyzeRoot(resource, component.Location())
	}
	return reg, nil
}

// Reload forces a reload of resource and everything that includes it, as
// if its file had changed on disk.
func (d *Dispatcher) Reload(resource string) error {
	resource = pathutil.CleanResource(resource)
	if resource == "" {
		return domain.ErrInvalidResourcePath
	}

	affected := d.reg.Graph().FindAffected(resource)
	comps := d.reg.CollectLive(affected)
	if len(comps) == 0 {
		return domain.ErrNotRegistered
	}

	d.publish(events.NewReloadQueuedEvent(resource, events.TriggerManual))
	d.executor.Post(func() {
		d.runReloads(resource, affected, comps, events.TriggerManual)
	})
	return nil
}

// Reset drops all registrations, graph edges, stylesheet mappings and
// watches.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	paths := make([]string, 0, len(d.watched))
	for path := range d.watched {
		paths = append(paths, path)
	}
	d.watched = make(map[string]string)
	d.mu.Unlock()

	for _, path := range paths {
		d.watcher.Unwatch(path)
	}
	d.reg.Reset()
}

// Stats is a point-in-time summary for status surfaces.
type Stats struct {
	Resources     int `json:"resources"`
	Registrations int `json:"registrations"`
	Live          int `json:"live"`
	Edges         int `json:"edges"`
	WatchedFiles  int `json:"watched_files"`
	Stylesheets   int `json:"stylesheets"`
}

// Stats summarizes the dispatcher's current state.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Resources:     len(d.reg.Resources()),
		Registrations: d.reg.Count(),
		Live:          d.reg.LiveCount(),
		Edges:         d.reg.Graph().EdgeCount(),
		WatchedFiles:  d.watcher.WatchedCount(),
		Stylesheets:   len(d.reg.StyleMappings()),
	}
}

// analyzeRoot locates the source file behind a registered resource and
// analyzes it. Resources without a resolvable source are marked analyzed
// so the lookup does not repeat per registration.
func (d *Dispatcher) analyzeRoot(resource, location string) {
	watchPath, archive, ok := d.locateSource(resource, location)
	if !ok {
		log.Debug().
			Str("resource", resource).
			Str("location", location).
			Msg("no source file for resource, reload disabled")
		d.reg.MarkAnalyzed(resource, "")
		return
	}

	if archive {
		// The entry cannot be read from disk, so the archive file itself
		// is watched: a rebuilt archive reloads the root without include
		// expansion.
		d.reg.Graph().SetEdges(resource, nil)
		d.watchView(watchPath, resource)
		d.reg.MarkAnalyzed(resource, watchPath)
		log.Debug().
			Str("resource", resource).
			Str("archive", watchPath).
			Msg("resource served from archive, watching archive file")
		return
	}

	d.analyzeFile(resource, watchPath)
}

// analyzeFile scans watchPath's includes, replaces the resource's edge set,
// and wires watches for the root, its includes, and its conventional
// stylesheets.
func (d *Dispatcher) analyzeFile(resource, watchPath string) {
	baseDir := resourceBaseDir(watchPath, resource)
	files, err := d.analyzer.FindAllIncluded(watchPath, baseDir)
	if err != nil {
		log.Warn().
			Err(err).
			Str("resource", resource).
			Msg("include analysis incomplete")
	}

	var children []string
	for _, file := range files {
		res := d.resourceFor(file, baseDir)
		if res == "" || res == resource {
			continue
		}
		children = append(children, res)
		d.watchView(file, res)
	}

	d.reg.Graph().SetEdges(resource, children)
	d.watchView(watchPath, resource)
	d.mapStylesheets(resource, watchPath)
	d.reg.MarkAnalyzed(resource, watchPath)
	d.pruneWatches()

	d.publish(events.NewGraphUpdatedEvent(resource, len(children), len(d.styleExts)))
	log.Debug().
		Str("resource", resource).
		Int("includes", len(children)).
		Msg("includes analyzed")
}

// locateSource maps a runtime location to the file to watch. archive is
// true when the location points inside an archive and the archive file
// itself is the watch target.
func (d *Dispatcher) locateSource(resource, location string) (path string, archive, ok bool) {
	if location == "" {
		return "", false, false
	}

	if src, found := d.resolver.ToSourcePath(location); found {
		return src, false, true
	}

	normalized := pathutil.NormalizeLocation(location)
	if archivePath, _, isArchive := pathutil.SplitArchive(normalized); isArchive {
		archivePath = filepath.FromSlash(archivePath)
		if fileExists(archivePath) {
			return archivePath, true, true
		}
		return "", false, false
	}

	plain := filepath.FromSlash(normalized)
	if fileExists(plain) {
		return plain, false, true
	}
	return "", false, false
}

// onViewChanged runs on a debounce timer goroutine after a view file's
// change settled. If the changed resource is a registered root its includes
// are re-analyzed before the affected set is computed, so edge additions
// and removals take effect for this very reload.
func (d *Dispatcher) onViewChanged(resource, path string) {
	if d.reg.IsRegisteredRoot(resource) {
		d.reg.Invalidate(resource)
		d.analyzeFile(resource, path)
	}

	affected := d.reg.Graph().FindAffected(resource)
	comps := d.reg.CollectLive(affected)
	if len(comps) == 0 {
		log.Debug().Str("resource", resource).Msg("change affects no live components")
		return
	}

	d.publish(events.NewReloadQueuedEvent(resource, events.TriggerViewChange))
	d.executor.Post(func() {
		d.runReloads(resource, affected, comps, events.TriggerViewChange)
	})
}

// onStyleChanged runs on a debounce timer goroutine after a stylesheet
// change settled.
func (d *Dispatcher) onStyleChanged(stylesheet, path string) {
	views := d.reg.ViewsForStylesheet(stylesheet)
	if len(views) == 0 {
		return
	}
	comps := d.reg.CollectLive(views)
	if len(comps) == 0 {
		log.Debug().Str("stylesheet", stylesheet).Msg("stylesheet has no live views")
		return
	}

	d.publish(events.NewReloadQueuedEvent(stylesheet, events.TriggerStyleChange))
	d.executor.Post(func() {
		d.runStyleRefresh(stylesheet, views, comps)
	})
}

// runReloads executes a reload batch on the executor context. Failures are
// isolated per component and never abort the batch.
func (d *Dispatcher) runReloads(resource string, affected []string, comps []ports.Reloadable, trigger events.ReloadTrigger) {
	start := time.Now()
	succeeded := 0
	for _, comp := range comps {
		if err := reloadComponent(comp); err != nil {
			d.reportFailure(resource, comp, err)
			continue
		}
		succeeded++
	}
	elapsed := time.Since(start).Milliseconds()

	log.Info().
		Str("resource", resource).
		Int("components", succeeded).
		Int("affected", len(affected)).
		Int64("duration_ms", elapsed).
		Msg("views reloaded")
	d.publish(events.NewViewReloadedEvent(resource, affected, succeeded, elapsed, trigger))
}

// runStyleRefresh executes a stylesheet batch on the executor context.
// Components with the StyleRefresher capability keep their state; the rest
// fall back to a full reload.
func (d *Dispatcher) runStyleRefresh(stylesheet string, views []string, comps []ports.Reloadable) {
	start := time.Now()
	refreshed := 0
	for _, comp := range comps {
		var err error
		if refresher, ok := comp.(ports.StyleRefresher); ok {
			err = refreshStyles(refresher)
		} else {
			err = reloadComponent(comp)
		}
		if err != nil {
			d.reportFailure(stylesheet, comp, err)
			continue
		}
		refreshed++
	}
	elapsed := time.Since(start).Milliseconds()

	log.Info().
		Str("stylesheet", stylesheet).
		Int("components", refreshed).
		Int64("duration_ms", elapsed).
		Msg("styles refreshed")
	d.publish(events.NewStyleRefreshedEvent(stylesheet, views, refreshed, elapsed))
}

// watchView registers path with the watcher, reporting changes as resource.
// Repeated calls for the same path are no-ops.
func (d *Dispatcher) watchView(path, resource string) {
	path = filepath.Clean(path)

	d.mu.Lock()
	if _, ok := d.watched[path]; ok {
		d.mu.Unlock()
		return
	}
	d.watched[path] = resource
	d.mu.Unlock()

	if err := d.watcher.Watch(path, func(p string) { d.onViewChanged(resource, p) }); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to watch view file")
	}
}

// watchStyle registers a stylesheet path, reporting changes as stylesheet.
func (d *Dispatcher) watchStyle(path, stylesheet string) {
	path = filepath.Clean(path)

	d.mu.Lock()
	if _, ok := d.watched[path]; ok {
		d.mu.Unlock()
		return
	}
	d.watched[path] = stylesheet
	d.mu.Unlock()

	if err := d.watcher.Watch(path, func(p string) { d.onStyleChanged(stylesheet, p) }); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to watch stylesheet")
	}
}

// mapStylesheets derives the conventional stylesheet resources for a root
// and watches the sibling files next to its source.
func (d *Dispatcher) mapStylesheets(resource, watchPath string) {
	for _, ext := range d.styleExts {
		styleRes := pathutil.SwapExtension(resource, ext)
		if styleRes == resource {
			continue
		}
		d.reg.AddStylesheet(styleRes, resource)
		d.watchStyle(pathutil.SwapExtension(watchPath, ext), styleRes)
	}
}

// pruneWatches drops watches for include files no longer claimed by any
// root. Roots and stylesheets keep their watches.
func (d *Dispatcher) pruneWatches() {
	graph := d.reg.Graph()

	d.mu.Lock()
	var drop []string
	for path, res := range d.watched {
		if d.reg.IsRegisteredRoot(res) || len(graph.Parents(res)) > 0 || d.reg.IsStylesheet(res) {
			continue
		}
		drop = append(drop, path)
		delete(d.watched, path)
	}
	d.mu.Unlock()

	for _, path := range drop {
		d.watcher.Unwatch(path)
	}
}

// resourceFor maps an include file path back to its resource path, first
// relative to the root's base directory, then by build-layout markers.
func (d *Dispatcher) resourceFor(path, baseDir string) string {
	slash := filepath.ToSlash(path)
	base := strings.TrimSuffix(filepath.ToSlash(baseDir), "/") + "/"
	if baseDir != "" && strings.HasPrefix(slash, base) {
		return pathutil.CleanResource(strings.TrimPrefix(slash, base))
	}
	if res, ok := d.resolver.ExtractResourcePath(path); ok {
		return res
	}
	return ""
}

func (d *Dispatcher) reportFailure(resource string, comp ports.Reloadable, err error) {
	ident := fmt.Sprintf("%T", comp)
	log.Error().
		Err(err).
		Str("component", ident).
		Str("resource", resource).
		Msg("component reload failed")
	d.publish(events.NewReloadFailedEvent(resource, ident, err))
}

func (d *Dispatcher) publish(e events.Event) {
	if d.hub != nil {
		d.hub.Publish(e)
	}
}

// reloadComponent isolates one component's reload, converting panics to
// errors so a broken component cannot take down the batch.
func reloadComponent(comp ports.Reloadable) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reload panicked: %v", r)
		}
	}()
	return comp.Reload()
}

// refreshStyles isolates one component's style refresh.
func refreshStyles(comp ports.StyleRefresher) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("style refresh panicked: %v", r)
		}
	}()
	return comp.RefreshStyles()
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// resourceBaseDir derives the directory resource paths resolve against:
// the watch path minus the resource suffix when they agree, otherwise the
// watch path's directory.
func resourceBaseDir(watchPath, resource string) string {
	slash := filepath.ToSlash(watchPath)
	if strings.HasSuffix(slash, "/"+resource) {
		return filepath.FromSlash(strings.TrimSuffix(slash, "/"+resource))
	}
	return filepath.Dir(watchPath)
}
