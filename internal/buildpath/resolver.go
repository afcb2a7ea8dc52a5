package buildpath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/declview/hotview/internal/pathutil"
)

type namedConverter struct {
	name string
	fn   Converter
}

type markerSpec struct {
	segs []string
	skip int
}

// Resolver converts between runtime resource locations and source files.
// Conversion order is fixed: user converters first, then user profiles,
// then the built-in profile table.
type Resolver struct {
	profiles      []Profile
	toSourceChain []namedConverter
	toOutputChain []namedConverter
	markers       []markerSpec

	exists func(string) bool
}

// Option configures a Resolver.
type Option func(*resolverOptions)

type resolverOptions struct {
	converters []namedConverter
	profiles   []Profile
}

// WithConverter registers a custom output-to-source converter ahead of all
// profiles. name appears in resolution logs.
func WithConverter(name string, fn Converter) Option {
	return func(o *resolverOptions) {
		o.converters = append(o.converters, namedConverter{name: name, fn: fn})
	}
}

// WithProfiles registers custom profiles ahead of the built-ins.
func WithProfiles(profiles ...Profile) Option {
	return func(o *resolverOptions) {
		o.profiles = append(o.profiles, profiles...)
	}
}

// NewResolver creates a Resolver with the built-in profiles plus any
// options.
func NewResolver(opts ...Option) *Resolver {
	var o resolverOptions
	for _, opt := range opts {
		opt(&o)
	}

	profiles := make([]Profile, 0, len(o.profiles)+len(builtinProfiles))
	profiles = append(profiles, o.profiles...)
	profiles = append(profiles, builtinProfiles...)

	r := &Resolver{
		profiles: profiles,
		exists:   fileExists,
	}
	r.toSourceChain = append(r.toSourceChain, o.converters...)
	for _, p := range profiles {
		r.toSourceChain = append(r.toSourceChain, namedConverter{name: p.Name, fn: p.toSource()})
		r.toOutputChain = append(r.toOutputChain, namedConverter{name: p.Name, fn: p.toOutput()})
		r.addMarker(p.OutputMarker, p.SkipSegments)
		r.addMarker(p.SourceDir, 0)
	}
	return r
}

func (r *Resolver) addMarker(marker string, skip int) {
	if marker == "" {
		return
	}
	segs := strings.Split(marker, "/")
	for _, m := range r.markers {
		if equalSegs(m.segs, segs) {
			return
		}
	}
	r.markers = append(r.markers, markerSpec{segs: segs, skip: skip})
}

func equalSegs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Profiles returns the resolver's profile list, user profiles first.
func (r *Resolver) Profiles() []Profile {
	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// ToSourcePath maps a runtime location to the source file it was built
// from. ok is false when no converter applies or no candidate exists on
// disk. Archive entries carry no on-disk source of their own, so archive
// locations resolve only when the entry path itself contains a marker.
func (r *Resolver) ToSourcePath(location string) (string, bool) {
	norm := pathutil.NormalizeLocation(location)
	if _, entry, isArchive := pathutil.SplitArchive(norm); isArchive {
		norm = entry
	}
	if norm == "" {
		return "", false
	}

	for _, nc := range r.toSourceChain {
		candidate, ok := nc.fn(norm)
		if !ok {
			continue
		}
		if r.exists(candidate) {
			log.Debug().
				Str("location", location).
				Str("source", candidate).
				Str("profile", nc.name).
				Msg("resolved runtime location")
			return filepath.FromSlash(candidate), true
		}
	}
	return "", false
}

// ToOutputPath maps a source file to the build output location resources
// are copied to. ok is false when no profile applies or the output does
// not exist on disk.
func (r *Resolver) ToOutputPath(sourcePath string) (string, bool) {
	norm := pathutil.NormalizeLocation(sourcePath)
	if norm == "" {
		return "", false
	}
	for _, nc := range r.toOutputChain {
		candidate, ok := nc.fn(norm)
		if !ok {
			continue
		}
		if r.exists(candidate) {
			return filepath.FromSlash(candidate), true
		}
	}
	return "", false
}

// ExtractResourcePath derives the toolkit resource path from a full file
// location by stripping everything up to and including a known output or
// source marker.
func (r *Resolver) ExtractResourcePath(fullPath string) (string, bool) {
	norm := pathutil.NormalizeLocation(fullPath)
	if _, entry, isArchive := pathutil.SplitArchive(norm); isArchive {
		// Archive entries are stored by resource path already.
		if res, ok := r.extract(entry); ok {
			return res, true
		}
		res := pathutil.CleanResource(entry)
		return res, res != ""
	}
	return r.extract(norm)
}

func (r *Resolver) extract(p string) (string, bool) {
	segs := strings.Split(p, "/")
	for _, m := range r.markers {
		idx, ok := lastMarkerMatch(segs, m.segs)
		if !ok {
			continue
		}
		rest := segs[idx+len(m.segs):]
		if len(rest) <= m.skip {
			continue
		}
		rest = rest[m.skip:]
		return pathutil.CleanResource(strings.Join(rest, "/")), true
	}
	return "", false
}

func fileExists(p string) bool {
	info, err := os.Stat(filepath.FromSlash(p))
	return err == nil && !info.IsDir()
}
