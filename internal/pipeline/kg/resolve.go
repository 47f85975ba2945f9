package kg

import (
	"fmt"

	"kgbuilder/internal/graph"
)

// IntegrityWarning reports cycles left in the graph after resolution.
type IntegrityWarning struct {
	Cycles [][]string
}

func (w *IntegrityWarning) Error() string {
	return fmt.Sprintf("graph integrity: %d cycle(s) remain after resolution", len(w.Cycles))
}

// ResolveCycles breaks every cycle of g by dropping its closing edge
// (last node -> first node) and returns the removed edges in removal order.
// Enumeration is capped at maxCycles per round; while cycles remain the graph
// is re-enumerated. Every round removes at least one edge, so the number of
// rounds is bounded by the edge count. Anything still cyclic afterwards
// comes back as an IntegrityWarning.
func ResolveCycles(g *graph.Graph, maxCycles int) ([]graph.Edge, *IntegrityWarning) {
	var removed []graph.Edge
	rounds := g.EdgeCount() + 1
	for round := 0; round < rounds; round++ {
		if g.IsAcyclic() {
			return removed, nil
		}
		cycles, _ := g.SimpleCycles(maxCycles)
		progress := false
		for _, c := range cycles {
			from, to := c[len(c)-1], c[0]
			kind, ok := g.Kind(from, to)
			if !ok {
				// already broken by an earlier removal
				continue
			}
			g.RemoveEdge(from, to)
			removed = append(removed, graph.Edge{From: from, To: to, Kind: kind})
			progress = true
		}
		if !progress {
			break
		}
	}
	if g.IsAcyclic() {
		return removed, nil
	}
	left, _ := g.SimpleCycles(maxCycles)
	return removed, &IntegrityWarning{Cycles: left}
}
