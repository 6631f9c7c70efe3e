// Package graph implements the Dependency Graph: nodes hold
// indices rather than pointers, cycle detection is Tarjan's SCC algorithm, and
// topological order uses Kahn's algorithm with a deterministic secondary
// key.
package graph

import (
	"sort"

	"github.com/agpkg/resolve/internal/resolveerr"
)

// Node identifies a resolved dependency.
type Node struct {
	ResourceType string
	Name         string
	Source       string
}

// Graph is a directed graph of Nodes, addressed by index rather than
// pointer so ownership is acyclic even though the graph itself may (until
// validated) contain cycles.
type Graph struct {
	nodes   []Node
	index   map[Node]int
	edges   map[int][]int // parent -> children
}

func New() *Graph {
	return &Graph{index: map[Node]int{}, edges: map[int][]int{}}
}

func (g *Graph) nodeIndex(n Node) int {
	if i, ok := g.index[n]; ok {
		return i
	}
	i := len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.index[n] = i
	return i
}

// AddDependency inserts from and to (creating them if new) and an edge
// from -> to.
func (g *Graph) AddDependency(from, to Node) {
	fi := g.nodeIndex(from)
	ti := g.nodeIndex(to)
	g.edges[fi] = append(g.edges[fi], ti)
}

// AddNode ensures a node with no outgoing edges yet exists (e.g. a leaf
// with no transitive dependencies).
func (g *Graph) AddNode(n Node) {
	g.nodeIndex(n)
}

// DetectCycles fails with CycleError if any strongly connected component
// of size > 1 exists, using Tarjan's algorithm.
func (g *Graph) DetectCycles() error {
	t := &tarjan{
		g:       g,
		index:   make([]int, len(g.nodes)),
		low:     make([]int, len(g.nodes)),
		onStack: make([]bool, len(g.nodes)),
	}
	for i := range t.index {
		t.index[i] = -1
	}
	for v := 0; v < len(g.nodes); v++ {
		if t.index[v] == -1 {
			t.strongConnect(v)
		}
	}
	for _, scc := range t.sccs {
		if len(scc) > 1 {
			names := make([]string, len(scc))
			for i, idx := range scc {
				names[i] = g.nodes[idx].Name
			}
			return &resolveerr.CycleError{Component: resolveerr.ComponentGraph, Nodes: names}
		}
		// A single-node SCC that has a self-edge is also a cycle.
		if len(scc) == 1 {
			v := scc[0]
			for _, c := range g.edges[v] {
				if c == v {
					return &resolveerr.CycleError{Component: resolveerr.ComponentGraph, Nodes: []string{g.nodes[v].Name}}
				}
			}
		}
	}
	return nil
}

type tarjan struct {
	g       *Graph
	index   []int
	low     []int
	onStack []bool
	stack   []int
	counter int
	sccs    [][]int
}

func (t *tarjan) strongConnect(v int) {
	t.index[v] = t.counter
	t.low[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.g.edges[v] {
		if t.index[w] == -1 {
			t.strongConnect(w)
			if t.low[w] < t.low[v] {
				t.low[v] = t.low[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.low[v] {
				t.low[v] = t.index[w]
			}
		}
	}

	if t.low[v] == t.index[v] {
		var scc []int
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.sccs = append(t.sccs, scc)
	}
}

// TopologicalOrder returns nodes in dependency order (parents before the
// nodes they point to is NOT required here — children, i.e. dependencies,
// come before the parents that need them) using Kahn's algorithm, with a
// deterministic secondary key of (resource_type, name, source) among
// ties.
func (g *Graph) TopologicalOrder() []Node {
	inDegree := make([]int, len(g.nodes))
	for _, children := range g.edges {
		for _, c := range children {
			inDegree[c]++
		}
	}

	// Kahn's processes nodes with in-degree 0 first; since edges point
	// parent->child, a child's in-degree counts how many parents still
	// need to be emitted. We want children (dependencies) before parents,
	// so we run Kahn's over the *reversed* graph: a node is ready once all
	// of its dependencies (its out-edges in the original graph) have been
	// emitted.
	remaining := make([]int, len(g.nodes))
	for i, children := range g.edgesOrEmpty() {
		remaining[i] = len(children)
	}

	var ready []int
	for i, r := range remaining {
		if r == 0 {
			ready = append(ready, i)
		}
	}

	parentsOf := make(map[int][]int)
	for p, children := range g.edges {
		for _, c := range children {
			parentsOf[c] = append(parentsOf[c], p)
		}
	}

	var order []Node
	emitted := make([]bool, len(g.nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return nodeLess(g.nodes[ready[i]], g.nodes[ready[j]]) })
		v := ready[0]
		ready = ready[1:]
		if emitted[v] {
			continue
		}
		emitted[v] = true
		order = append(order, g.nodes[v])
		for _, p := range parentsOf[v] {
			remaining[p]--
			if remaining[p] == 0 {
				ready = append(ready, p)
			}
		}
	}
	return order
}

func (g *Graph) edgesOrEmpty() [][]int {
	out := make([][]int, len(g.nodes))
	for i, children := range g.edges {
		out[i] = children
	}
	return out
}

func nodeLess(a, b Node) bool {
	if a.ResourceType != b.ResourceType {
		return a.ResourceType < b.ResourceType
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Source < b.Source
}
