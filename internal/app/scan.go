package app

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/declview/hotview"
	"github.com/declview/hotview/internal/include"
)

// skipDirs are directory names the project scan never descends into: VCS
// metadata, dependency trees, and build output. Output copies of view
// files would otherwise register as duplicate roots.
var skipDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	".idea":        true,
	".vscode":      true,
	"node_modules": true,
	"vendor":       true,
	"build":        true,
	"out":          true,
	"target":       true,
	"dist":         true,
}

// Discovery describes the view files found in a project tree.
type Discovery struct {
	// Views holds every view file found, as absolute paths.
	Views []string
	// Roots holds the views no other view includes.
	Roots []DiscoveredRoot
}

// DiscoveredRoot is a root view and the includes it expands.
type DiscoveredRoot struct {
	Resource string
	Path     string
	Includes []string
}

// Discover walks the project tree for view files and splits them into
// roots and included fragments. A partial result is returned alongside
// any walk error, so callers can proceed with what was readable.
func Discover(projectRoot string, viewExtensions []string) (*Discovery, error) {
	exts := make(map[string]bool, len(viewExtensions))
	for _, ext := range viewExtensions {
		exts[strings.ToLower(ext)] = true
	}

	var files []string
	walkErr := filepath.WalkDir(projectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("scan skipping unreadable entry")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != projectRoot && (skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return fs.SkipDir
			}
			return nil
		}
		if exts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})

	// Every file reachable through an include is not a root of its own.
	included := make(map[string]bool)
	children := make(map[string][]string)
	analyzer := include.NewAnalyzer()
	for _, file := range files {
		deps, err := analyzer.FindAllIncluded(file, projectRoot)
		if err != nil {
			log.Debug().Err(err).Str("path", file).Msg("include analysis failed during scan")
		}
		self := filepath.Clean(file)
		for _, dep := range deps {
			clean := filepath.Clean(dep)
			if clean == self {
				continue
			}
			included[clean] = true
			if res := resourceRel(projectRoot, clean); res != "" {
				children[self] = append(children[self], res)
			}
		}
	}

	disc := &Discovery{Views: files}
	for _, file := range files {
		clean := filepath.Clean(file)
		if included[clean] {
			continue
		}
		resource := resourceRel(projectRoot, clean)
		if resource == "" {
			continue
		}
		disc.Roots = append(disc.Roots, DiscoveredRoot{
			Resource: resource,
			Path:     file,
			Includes: children[clean],
		})
	}
	return disc, walkErr
}

// resourceRel converts an absolute path inside root to a slash-separated
// resource path, or "" when the path lies outside root.
func resourceRel(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(rel)
}

// scanProject discovers the project's root view files and registers a
// broadcast component for each. Included files are watched through their
// roots.
func (a *App) scanProject() (int, error) {
	disc, walkErr := Discover(a.cfg.Project.Path, a.cfg.Watcher.ViewExtensions)

	roots := 0
	for _, root := range disc.Roots {
		reg, err := a.engine.Register(newBroadcastComponent(root.Resource, root.Path))
		if err != nil {
			log.Warn().Err(err).Str("resource", root.Resource).Msg("failed to register root view")
			continue
		}
		a.registrations = append(a.registrations, reg)
		roots++
		log.Debug().Str("resource", root.Resource).Msg("registered root view")
	}

	if roots == 0 && len(disc.Views) > 0 {
		log.Warn().Int("views", len(disc.Views)).Msg("no root views found, check for include cycles")
	}
	log.Info().Int("views", len(disc.Views)).Int("roots", roots).Msg("project scan complete")

	return roots, walkErr
}

// broadcastComponent stands in for a live UI component on the daemon side.
// The engine's hub events carry the change to connected preview shells, so
// reload and refresh have nothing local to rebuild.
type broadcastComponent struct {
	resource string
	location string
}

func newBroadcastComponent(resource, location string) *broadcastComponent {
	return &broadcastComponent{resource: resource, location: location}
}

func (c *broadcastComponent) ResourcePath() string { return c.resource }
func (c *broadcastComponent) Location() string     { return c.location }
func (c *broadcastComponent) Reload() error        { return nil }
func (c *broadcastComponent) RefreshStyles() error { return nil }

var (
	_ hotview.Reloadable     = (*broadcastComponent)(nil)
	_ hotview.StyleRefresher = (*broadcastComponent)(nil)
)
