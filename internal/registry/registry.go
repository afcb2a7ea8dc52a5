package registry

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/declview/hotview/internal/domain/ports"
	"github.com/declview/hotview/internal/sync"
)

// Registration is the ownership handle returned by Register. The registry
// holds components non-owningly: the owner calls Release when the component
// is disposed, and released entries are skipped silently at collect time.
type Registration struct {
	resource  string
	component ports.Reloadable
	released  atomic.Bool
}

// Resource returns the resource path the registration was made under.
func (r *Registration) Resource() string {
	return r.resource
}

// Release marks the registration stale. Safe to call more than once.
func (r *Registration) Release() {
	r.released.Store(true)
}

// Released reports whether the registration has been released.
func (r *Registration) Released() bool {
	return r.released.Load()
}

// Registry maps resource paths to live component registrations and owns the
// include graph and the stylesheet conventions derived during analysis.
// Registrations are appended from arbitrary goroutines and read from the
// dispatch path; released entries are never pruned in place (Reset clears
// everything).
type Registry struct {
	mu            sync.RWMutex
	registrations map[string][]*Registration
	analyzed      map[string]bool
	rootFiles     map[string]string
	styles        map[string]map[string]struct{}
	graph         *Graph
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		registrations: make(map[string][]*Registration),
		analyzed:      make(map[string]bool),
		rootFiles:     make(map[string]string),
		styles:        make(map[string]map[string]struct{}),
		graph:         NewGraph(),
	}
}

// Graph returns the registry's include graph.
func (r *Registry) Graph() *Graph {
	return r.graph
}

// Register stores a registration of component under resource. Multiple
// registrations may share a resource path.
func (r *Registry) Register(resource string, component ports.Reloadable) *Registration {
	reg := &Registration{resource: resource, component: component}

	r.mu.Lock()
	r.registrations[resource] = append(r.registrations[resource], reg)
	r.mu.Unlock()

	log.Debug().
		Str("resource", resource).
		Msg("component registered")
	return reg
}

// NeedsAnalysis reports whether resource requires include analysis, true
// exactly once per resource until Invalidate is called for it.
func (r *Registry) NeedsAnalysis(resource string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.analyzed[resource]
}

// MarkAnalyzed records that resource's includes were analyzed from the file
// at watchPath.
func (r *Registry) MarkAnalyzed(resource, watchPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyzed[resource] = true
	r.rootFiles[resource] = watchPath
}

// Invalidate forces re-analysis of resource on its next dispatch, used when
// the root file itself changed and its include list may differ.
func (r *Registry) Invalidate(resource string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.analyzed, resource)
}

// WatchFile returns the file path resource was last analyzed from.
func (r *Registry) WatchFile(resource string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.rootFiles[resource]
	return p, ok
}

// IsRegisteredRoot reports whether resource has at least one registration.
func (r *Registry) IsRegisteredRoot(resource string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.registrations[resource]) > 0
}

// Resources returns the sorted resource paths with registrations.
func (r *Registry) Resources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.registrations)
}

// CollectLive resolves the registrations of the given resources to live
// components, skipping released entries silently and deduplicating
// components registered more than once.
func (r *Registry) CollectLive(resources []string) []ports.Reloadable {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[ports.Reloadable]struct{})
	var out []ports.Reloadable
	for _, res := range resources {
		for _, reg := range r.registrations[res] {
			if reg.Released() {
				continue
			}
			if _, dup := seen[reg.component]; dup {
				continue
			}
			seen[reg.component] = struct{}{}
			out = append(out, reg.component)
		}
	}
	return out
}

// Count returns the total number of registrations, released included.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, regs := range r.registrations {
		n += len(regs)
	}
	return n
}

// LiveCount returns the number of unreleased registrations.
func (r *Registry) LiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, regs := range r.registrations {
		for _, reg := range regs {
			if !reg.Released() {
				n++
			}
		}
	}
	return n
}

// AddStylesheet records that view conventionally uses the stylesheet at
// style. Entries are append-only; Reset clears them.
func (r *Registry) AddStylesheet(style, view string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	views := r.styles[style]
	if views == nil {
		views = make(map[string]struct{})
		r.styles[style] = views
	}
	views[view] = struct{}{}
}

// ViewsForStylesheet returns the sorted views conventionally using style.
func (r *Registry) ViewsForStylesheet(style string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.styles[style])
}

// IsStylesheet reports whether style has any mapped views.
func (r *Registry) IsStylesheet(style string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.styles[style]) > 0
}

// StyleMappings returns a copy of the stylesheet map with sorted views.
func (r *Registry) StyleMappings() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]string, len(r.styles))
	for style, views := range r.styles {
		out[style] = sortedKeys(views)
	}
	return out
}

// Reset drops every registration, analysis record, stylesheet mapping and
// graph edge. State is rebuilt from scratch by subsequent registrations.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations = make(map[string][]*Registration)
	r.analyzed = make(map[string]bool)
	r.rootFiles = make(map[string]string)
	r.styles = make(map[string]map[string]struct{})
	r.graph.Clear()
	log.Debug().Msg("registry reset")
}
