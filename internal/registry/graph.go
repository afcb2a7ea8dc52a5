// Package registry tracks live components, the reverse include graph, and
// stylesheet conventions for registered views.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/declview/hotview/internal/sync"
)

// Graph is the reverse include graph: child resource → set of parent root
// resources. Analysis flattens each root's transitive includes onto the
// root, so expansion never depends on unregistered intermediates.
type Graph struct {
	mu         sync.RWMutex
	parents    map[string]map[string]struct{}
	childrenOf map[string]map[string]struct{}
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		parents:    make(map[string]map[string]struct{}),
		childrenOf: make(map[string]map[string]struct{}),
	}
}

// SetEdges replaces the edge set claimed by root. Includes dropped since
// the previous analysis stop propagating to the root, added ones start.
func (g *Graph) SetEdges(root string, children []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for child := range g.childrenOf[root] {
		if ps := g.parents[child]; ps != nil {
			delete(ps, root)
			if len(ps) == 0 {
				delete(g.parents, child)
			}
		}
	}

	set := make(map[string]struct{}, len(children))
	for _, child := range children {
		if child == "" || child == root {
			continue
		}
		set[child] = struct{}{}
		ps := g.parents[child]
		if ps == nil {
			ps = make(map[string]struct{})
			g.parents[child] = ps
		}
		ps[root] = struct{}{}
	}
	g.childrenOf[root] = set
}

// FindAffected returns every resource reachable from changed by following
// child→parent edges, the changed resource itself first. A visited set
// guarantees termination on cyclic input.
func (g *Graph) FindAffected(changed string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]bool{changed: true}
	queue := []string{changed}
	order := []string{changed}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for parent := range g.parents[cur] {
			if visited[parent] {
				continue
			}
			visited[parent] = true
			order = append(order, parent)
			queue = append(queue, parent)
		}
	}
	return order
}

// Parents returns the sorted parent set of child.
func (g *Graph) Parents(child string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.parents[child])
}

// Children returns the sorted include set claimed by root.
func (g *Graph) Children(root string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.childrenOf[root])
}

// Roots returns the sorted resources that claim edges.
func (g *Graph) Roots() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.childrenOf)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, children := range g.childrenOf {
		n += len(children)
	}
	return n
}

// Clear removes all edges.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.parents = make(map[string]map[string]struct{})
	g.childrenOf = make(map[string]map[string]struct{})
}

// Subgraph returns a copy holding only the edges reachable from root by
// following include edges downward. Unknown roots yield an empty graph.
func (g *Graph) Subgraph(root string) *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	sub := NewGraph()
	visited := map[string]bool{root: true}
	queue := []string{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		set, known := g.childrenOf[cur]
		if !known {
			continue
		}
		children := sortedKeys(set)
		sub.SetEdges(cur, children)
		for _, child := range children {
			if !visited[child] {
				visited[child] = true
				queue = append(queue, child)
			}
		}
	}
	return sub
}

// Text renders the include tree one root per block, children indented.
func (g *Graph) Text() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var b strings.Builder
	for _, root := range sortedKeys(g.childrenOf) {
		b.WriteString(root)
		b.WriteByte('\n')
		for _, child := range sortedKeys(g.childrenOf[root]) {
			b.WriteString("  ")
			b.WriteString(child)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// DOT renders the include graph in Graphviz DOT format, edges pointing
// from including root to included child.
func (g *Graph) DOT() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var b strings.Builder
	b.WriteString("digraph includes {\n")
	b.WriteString("  rankdir=LR;\n")
	for _, root := range sortedKeys(g.childrenOf) {
		children := sortedKeys(g.childrenOf[root])
		if len(children) == 0 {
			fmt.Fprintf(&b, "  %q;\n", root)
			continue
		}
		for _, child := range children {
			fmt.Fprintf(&b, "  %q -> %q;\n", root, child)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// Mermaid renders the include graph as a Mermaid flowchart.
func (g *Graph) Mermaid() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var b strings.Builder
	b.WriteString("graph TD\n")
	ids := make(map[string]string)
	id := func(node string) string {
		if v, ok := ids[node]; ok {
			return v
		}
		v := fmt.Sprintf("n%d", len(ids))
		ids[node] = v
		return v
	}
	for _, root := range sortedKeys(g.childrenOf) {
		children := sortedKeys(g.childrenOf[root])
		if len(children) == 0 {
			fmt.Fprintf(&b, "  %s[\"%s\"]\n", id(root), root)
			continue
		}
		for _, child := range children {
			fmt.Fprintf(&b, "  %s[\"%s\"] --> %s[\"%s\"]\n", id(root), root, id(child), child)
		}
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
