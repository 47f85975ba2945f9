// Package graph is a small directed graph over topic codes with typed edges.
package graph

import (
	"sort"

	"kgbuilder/internal/types/kg"
)

// Edge is one directed, typed edge.
type Edge struct {
	From string      `json:"from"`
	To   string      `json:"to"`
	Kind kg.EdgeKind `json:"kind"`
}

// Graph keeps out- and in-adjacency keyed by code. Node and edge order is
// insertion order so walks are deterministic.
type Graph struct {
	nodes []string
	index map[string]int
	out   map[string][]string
	in    map[string][]string
	kinds map[[2]string]kg.EdgeKind
}

func New() *Graph {
	return &Graph{
		index: map[string]int{},
		out:   map[string][]string{},
		in:    map[string][]string{},
		kinds: map[[2]string]kg.EdgeKind{},
	}
}

// AddNode registers code; it is a no-op for known codes.
func (g *Graph) AddNode(code string) {
	if _, ok := g.index[code]; ok {
		return
	}
	g.index[code] = len(g.nodes)
	g.nodes = append(g.nodes, code)
}

func (g *Graph) HasNode(code string) bool {
	_, ok := g.index[code]
	return ok
}

// AddEdge inserts from->to with kind unless that ordered pair already has an
// edge, in which case the first kind wins. Endpoints are added as needed.
// It reports whether an edge was inserted.
func (g *Graph) AddEdge(from, to string, kind kg.EdgeKind) bool {
	if g.HasEdge(from, to) {
		return false
	}
	g.AddNode(from)
	g.AddNode(to)
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
	g.kinds[[2]string{from, to}] = kind
	return true
}

func (g *Graph) HasEdge(from, to string) bool {
	_, ok := g.kinds[[2]string{from, to}]
	return ok
}

// Kind returns the type of from->to.
func (g *Graph) Kind(from, to string) (kg.EdgeKind, bool) {
	k, ok := g.kinds[[2]string{from, to}]
	return k, ok
}

// RemoveEdge deletes from->to and reports whether it existed.
func (g *Graph) RemoveEdge(from, to string) bool {
	key := [2]string{from, to}
	if _, ok := g.kinds[key]; !ok {
		return false
	}
	delete(g.kinds, key)
	g.out[from] = without(g.out[from], to)
	g.in[to] = without(g.in[to], from)
	return true
}

// Out returns the successors of code in insertion order.
func (g *Graph) Out(code string) []string { return append([]string(nil), g.out[code]...) }

// In returns the predecessors of code in insertion order.
func (g *Graph) In(code string) []string { return append([]string(nil), g.in[code]...) }

// OutOfKind returns the successors reached through edges of kind.
func (g *Graph) OutOfKind(code string, kind kg.EdgeKind) []string {
	var res []string
	for _, to := range g.out[code] {
		if g.kinds[[2]string{code, to}] == kind {
			res = append(res, to)
		}
	}
	return res
}

// InOfKind returns the predecessors linked through edges of kind.
func (g *Graph) InOfKind(code string, kind kg.EdgeKind) []string {
	var res []string
	for _, from := range g.in[code] {
		if g.kinds[[2]string{from, code}] == kind {
			res = append(res, from)
		}
	}
	return res
}

// Nodes returns all codes in insertion order.
func (g *Graph) Nodes() []string { return append([]string(nil), g.nodes...) }

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.kinds) }

// Edges returns every edge sorted by (from, to).
func (g *Graph) Edges() []Edge {
	res := make([]Edge, 0, len(g.kinds))
	for k, kind := range g.kinds {
		res = append(res, Edge{From: k[0], To: k[1], Kind: kind})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].From != res[j].From {
			return res[i].From < res[j].From
		}
		return res[i].To < res[j].To
	})
	return res
}

// IsAcyclic runs Kahn's algorithm.
func (g *Graph) IsAcyclic() bool {
	indeg := make(map[string]int, len(g.nodes))
	for _, n := range g.nodes {
		indeg[n] = len(g.in[n])
	}
	queue := make([]string, 0, len(g.nodes))
	for _, n := range g.nodes {
		if indeg[n] == 0 {
			queue = append(queue, n)
		}
	}
	seen := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		seen++
		for _, m := range g.out[n] {
			indeg[m]--
			if indeg[m] == 0 {
				queue = append(queue, m)
			}
		}
	}
	return seen == len(g.nodes)
}

func without(list []string, v string) []string {
	for i, s := range list {
		if s == v {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
