// Package pathutil provides location normalization helpers shared by the
// path resolver and the include analyzer.
package pathutil

import (
	"path"
	"strings"
	"unicode"
)

// archiveSeparator delimits an archive file from an entry inside it,
// as in jar:file:/app/lib.jar!/views/Main.view.
const archiveSeparator = "!/"

// StripQuery removes a query suffix appended by some class loaders,
// for example views/Main.view?v=3.
func StripQuery(location string) string {
	if i := strings.IndexByte(location, '?'); i >= 0 {
		return location[:i]
	}
	return location
}

// SplitArchive splits an archive-style location into the archive file and
// the entry inside it. ok is false when location has no archive separator.
func SplitArchive(location string) (archive, entry string, ok bool) {
	i := strings.Index(location, archiveSeparator)
	if i < 0 {
		return location, "", false
	}
	return location[:i], location[i+len(archiveSeparator):], true
}

// StripScheme removes URL scheme prefixes (file:, jar:, vfs: and friends)
// from a location, leaving a plain path. Single-letter prefixes are kept
// so Windows drive letters survive.
func StripScheme(location string) string {
	for {
		i := strings.IndexByte(location, ':')
		if i < 2 {
			return location
		}
		if !isScheme(location[:i]) {
			return location
		}
		location = location[i+1:]
		location = strings.TrimPrefix(location, "//")
	}
}

func isScheme(s string) bool {
	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '-' && r != '.' {
			return false
		}
	}
	return true
}

// NormalizeLocation reduces a runtime location to a plain forward-slash
// path: query stripped, scheme stripped, separators unified.
func NormalizeLocation(location string) string {
	location = StripQuery(location)
	location = StripScheme(location)
	return strings.ReplaceAll(location, "\\", "/")
}

// CleanResource canonicalizes a resource path: forward slashes, no leading
// slash, no dot segments. Resource paths are the map keys of the dependency
// graph, so equal resources must produce byte-equal strings.
func CleanResource(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// MatchesExtension reports whether p ends in one of exts. Extensions are
// compared case-insensitively and include the leading dot.
func MatchesExtension(p string, exts []string) bool {
	ext := path.Ext(strings.ReplaceAll(p, "\\", "/"))
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// SwapExtension replaces the extension of p with newExt, which must include
// the leading dot. A path without an extension gets newExt appended.
func SwapExtension(p, newExt string) string {
	ext := path.Ext(strings.ReplaceAll(p, "\\", "/"))
	return p[:len(p)-len(ext)] + newExt
}
