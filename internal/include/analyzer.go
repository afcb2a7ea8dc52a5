// Package include discovers the include references of declarative view
// files without loading the full markup engine.
package include

import (
	"encoding/xml"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/declview/hotview/internal/pathutil"
)

// Namespace URIs recognized on include elements. Older projects still carry
// the historical URI, and hand-written files frequently omit the namespace
// entirely, so a bare include tag is accepted as a fallback.
const (
	NamespaceCurrent    = "https://declview.dev/xml/view"
	NamespaceHistorical = "http://declview.io/xmlns/view/1.0"
)

const (
	includeTag = "include"
	sourceAttr = "source"
)

// Analyzer scans view markup for include elements.
type Analyzer struct{}

// NewAnalyzer creates an include analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// FindAllIncluded returns the transitive set of files included by the view
// at rootPath, rootPath itself first, in discovery order. baseDir anchors
// absolute include references; with an empty baseDir such references are
// skipped. Files that cannot be read or parsed contribute no includes of
// their own but remain in the result, and a cycle is logged and
// short-circuited rather than looping. The returned error reports a parse
// failure of the root itself; the partial result is still valid.
func (a *Analyzer) FindAllIncluded(rootPath, baseDir string) ([]string, error) {
	root := filepath.Clean(rootPath)
	visited := map[string]bool{root: true}
	onStack := make(map[string]bool)
	order := []string{root}

	var rootErr error
	var walk func(path string)
	walk = func(path string) {
		onStack[path] = true
		defer delete(onStack, path)

		sources, err := a.ScanIncludes(path)
		if err != nil {
			if path == root {
				rootErr = err
			}
			if errors.Is(err, fs.ErrNotExist) {
				log.Debug().Str("file", path).Msg("included file does not exist yet")
			} else {
				log.Warn().Err(err).Str("file", path).Msg("include scan failed")
			}
			return
		}

		for _, src := range sources {
			resolved, ok := resolveInclude(src, filepath.Dir(path), baseDir)
			if !ok {
				log.Debug().
					Str("source", src).
					Str("file", path).
					Msg("include reference not resolvable")
				continue
			}
			if onStack[resolved] {
				log.Warn().
					Str("file", path).
					Str("include", resolved).
					Msg("include cycle detected")
				continue
			}
			if visited[resolved] {
				continue
			}
			visited[resolved] = true
			order = append(order, resolved)
			walk(resolved)
		}
	}
	walk(root)

	return order, rootErr
}

// ScanIncludes returns the source references of the direct include elements
// of the file at path, in document order.
func (a *Analyzer) ScanIncludes(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return a.scan(f)
}

// scan tokenizes markup looking for include elements. The decoder resolves
// no external entities and loads no DTDs, so hostile markup cannot reach
// the file system or the network; an undefined entity fails the parse.
func (a *Analyzer) scan(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var sources []string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return sources, nil
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || !isIncludeElement(se.Name) {
			continue
		}
		for _, attr := range se.Attr {
			if attr.Name.Local == sourceAttr {
				sources = append(sources, attr.Value)
				break
			}
		}
	}
}

func isIncludeElement(name xml.Name) bool {
	if name.Local != includeTag {
		return false
	}
	switch name.Space {
	case "", NamespaceCurrent, NamespaceHistorical:
		return true
	}
	return false
}

// resolveInclude turns an include reference into an absolute file path.
// Relative references resolve against the including file's directory,
// absolute ones against baseDir.
func resolveInclude(src, dir, baseDir string) (string, bool) {
	src = pathutil.StripQuery(strings.TrimSpace(src))
	if src == "" {
		return "", false
	}
	if strings.HasPrefix(src, "/") {
		if baseDir == "" {
			return "", false
		}
		return filepath.Join(baseDir, filepath.FromSlash(src)), true
	}
	return filepath.Join(dir, filepath.FromSlash(src)), true
}
