// Package buildpath maps runtime resource locations back to their source
// files across common build tool and IDE output layouts.
package buildpath

import (
	"path"
	"strings"
)

// Profile describes one build layout: the output marker identifying compiled
// resources and the source directory those resources are copied from, both
// relative to the project root.
type Profile struct {
	Name         string // short identifier, e.g. "maven"
	OutputMarker string // marker path inside build output, e.g. "target/classes"; segments may contain globs
	SourceDir    string // source path replacing the marker, e.g. "src/main/resources"
	OutputDir    string // output path replacing SourceDir in the inverse direction
	SkipSegments int    // layout segments after the marker that are not part of the resource path
	Test         bool   // true when the profile covers test resources
}

// builtinProfiles are tried in order; the first candidate that exists on
// disk wins. Profiles sharing a marker express layouts where a resource may
// live in more than one source tree (Maven resources next to sources).
var builtinProfiles = []Profile{
	{Name: "maven", OutputMarker: "target/classes", SourceDir: "src/main/resources", OutputDir: "target/classes"},
	{Name: "maven-colocated", OutputMarker: "target/classes", SourceDir: "src/main/java", OutputDir: "target/classes"},
	{Name: "maven-test", OutputMarker: "target/test-classes", SourceDir: "src/test/resources", OutputDir: "target/test-classes", Test: true},
	{Name: "maven-test-colocated", OutputMarker: "target/test-classes", SourceDir: "src/test/java", OutputDir: "target/test-classes", Test: true},
	{Name: "gradle", OutputMarker: "build/resources/main", SourceDir: "src/main/resources", OutputDir: "build/resources/main"},
	{Name: "gradle-test", OutputMarker: "build/resources/test", SourceDir: "src/test/resources", OutputDir: "build/resources/test", Test: true},
	{Name: "sbt", OutputMarker: "target/scala-*/classes", SourceDir: "src/main/resources"},
	{Name: "sbt-test", OutputMarker: "target/scala-*/test-classes", SourceDir: "src/test/resources", Test: true},
	{Name: "intellij", OutputMarker: "out/production", SourceDir: "src", SkipSegments: 1},
	{Name: "intellij-test", OutputMarker: "out/test", SourceDir: "test", SkipSegments: 1, Test: true},
	{Name: "eclipse", OutputMarker: "bin", SourceDir: "src", OutputDir: "bin"},
}

// DefaultProfiles returns a copy of the built-in profile table.
func DefaultProfiles() []Profile {
	out := make([]Profile, len(builtinProfiles))
	copy(out, builtinProfiles)
	return out
}

// Converter maps a forward-slash output path to a candidate source path.
// Converters are pure; the resolver performs the existence check. ok is
// false when the converter does not apply.
type Converter func(outputPath string) (sourcePath string, ok bool)

// toSource builds the output-to-source converter for the profile.
func (p Profile) toSource() Converter {
	marker := strings.Split(p.OutputMarker, "/")
	source := strings.Split(p.SourceDir, "/")
	skip := p.SkipSegments
	return func(out string) (string, bool) {
		return substitute(out, marker, source, skip)
	}
}

// toOutput builds the inverse source-to-output converter. Profiles with
// skipped segments cannot be inverted (the skipped segment is unknown).
func (p Profile) toOutput() Converter {
	if p.SkipSegments > 0 || p.OutputDir == "" {
		return func(string) (string, bool) { return "", false }
	}
	source := strings.Split(p.SourceDir, "/")
	output := strings.Split(p.OutputDir, "/")
	return func(src string) (string, bool) {
		return substitute(src, source, output, 0)
	}
}

// substitute rewrites the deepest occurrence of marker inside p with repl,
// dropping skip layout segments after the marker.
func substitute(p string, marker, repl []string, skip int) (string, bool) {
	segs := strings.Split(p, "/")
	idx, ok := lastMarkerMatch(segs, marker)
	if !ok {
		return "", false
	}
	rest := segs[idx+len(marker):]
	if len(rest) <= skip {
		return "", false
	}
	rest = rest[skip:]

	out := make([]string, 0, idx+len(repl)+len(rest))
	out = append(out, segs[:idx]...)
	out = append(out, repl...)
	out = append(out, rest...)
	return strings.Join(out, "/"), true
}

// lastMarkerMatch finds the deepest occurrence of the marker segment
// sequence. The deepest match isolates the innermost module of nested
// project layouts.
func lastMarkerMatch(segs, marker []string) (int, bool) {
	for i := len(segs) - len(marker); i >= 0; i-- {
		if markerMatchesAt(segs, i, marker) {
			return i, true
		}
	}
	return 0, false
}

func markerMatchesAt(segs []string, at int, marker []string) bool {
	for j, m := range marker {
		seg := segs[at+j]
		if strings.ContainsAny(m, "*?[") {
			ok, err := path.Match(m, seg)
			if err != nil || !ok {
				return false
			}
			continue
		}
		if seg != m {
			return false
		}
	}
	return true
}
