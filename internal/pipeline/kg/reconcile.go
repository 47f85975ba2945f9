package kg

import (
	"kgbuilder/internal/graph"
	t "kgbuilder/internal/types/kg"
)

// Reconcile rewrites the per-node lists from g and returns the finalized
// nodes in order: next_topics becomes the sorted leads_to successors,
// prerequisites the sorted union of the existing list and the
// prerequisite_for predecessors. Expanded nodes move to EdgeWired.
func Reconcile(nodes map[string]*t.TopicNode, order []string, g *graph.Graph) []t.TopicNode {
	out := make([]t.TopicNode, 0, len(order))
	for _, code := range order {
		n, ok := nodes[code]
		if !ok {
			continue
		}
		n.NextTopics = t.SortedUnion(g.OutOfKind(code, t.EdgeLeadsTo))
		n.Prerequisites = t.SortedUnion(n.Prerequisites, g.InOfKind(code, t.EdgePrerequisiteFor))
		if n.Objectives == nil {
			n.Objectives = []string{}
		}
		if n.Keywords == nil {
			n.Keywords = []string{}
		}
		if n.Status == t.StatusExpanded {
			n.Status = t.StatusEdgeWired
		}
		out = append(out, *n.Clone())
	}
	return out
}
