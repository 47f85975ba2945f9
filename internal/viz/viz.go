// Package viz renders a finalized topic graph for people: an interactive
// vis-network page and a Graphviz DOT file. It holds no graph logic.
package viz

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"kgbuilder/internal/graph"
	"kgbuilder/internal/types/kg"
)

var difficultyColors = map[kg.Difficulty]string{
	kg.DifficultyBase:   "#9ecae1",
	kg.DifficultyLevel1: "#6baed6",
	kg.DifficultyLevel2: "#4292c6",
	kg.DifficultyLevel3: "#2171b5",
	kg.DifficultyLevel4: "#084594",
}

var edgeColors = map[kg.EdgeKind]string{
	kg.EdgeLeadsTo:         "#636363",
	kg.EdgePrerequisiteFor: "#e6550d",
}

type visNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Title string `json:"title"`
	Group string `json:"group"`
	Color string `json:"color"`
}

type visEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Arrows string `json:"arrows"`
	Color  string `json:"color"`
	Title  string `json:"title"`
	Dashes bool   `json:"dashes"`
}

// Options tweak the rendered page.
type Options struct {
	Title  string
	Height string
	// ScriptURL points at the vis-network standalone bundle.
	ScriptURL string
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Title) == "" {
		o.Title = "Topic knowledge graph"
	}
	if strings.TrimSpace(o.Height) == "" {
		o.Height = "900px"
	}
	if strings.TrimSpace(o.ScriptURL) == "" {
		o.ScriptURL = "https://unpkg.com/vis-network/standalone/umd/vis-network.min.js"
	}
	return o
}

var page = template.Must(template.New("kg_vis").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="{{.ScriptURL}}"></script>
<style>
body { margin: 0; font-family: sans-serif; }
#kg { width: 100%; height: {{.Height}}; border: 1px solid #ddd; }
#legend { padding: 8px; font-size: 13px; }
</style>
</head>
<body>
<div id="legend">{{.Title}}: {{.NodeCount}} topics, {{.EdgeCount}} edges. Solid grey = leads_to, dashed orange = prerequisite_for.</div>
<div id="kg"></div>
<script>
const nodes = new vis.DataSet({{.Nodes}});
const edges = new vis.DataSet({{.Edges}});
new vis.Network(document.getElementById("kg"), { nodes, edges }, {
  layout: { improvedLayout: true },
  physics: { stabilization: true },
  edges: { smooth: { type: "dynamic" } }
});
</script>
</body>
</html>
`))

// HTML renders nodes and edges as a standalone page. Nodes are labelled by
// code and edges are directed.
func HTML(nodes []kg.TopicNode, edges []graph.Edge, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	vn := make([]visNode, 0, len(nodes))
	for _, n := range nodes {
		vn = append(vn, visNode{
			ID:    n.Code,
			Label: n.Code,
			Title: fmt.Sprintf("%s (%s, %s)", n.Title, n.Subject, n.DifficultyLevel),
			Group: n.Subject,
			Color: difficultyColors[n.DifficultyLevel],
		})
	}
	ve := make([]visEdge, 0, len(edges))
	for _, e := range edges {
		ve = append(ve, visEdge{
			From:   e.From,
			To:     e.To,
			Arrows: "to",
			Color:  edgeColors[e.Kind],
			Title:  string(e.Kind),
			Dashes: e.Kind == kg.EdgePrerequisiteFor,
		})
	}
	var buf bytes.Buffer
	err := page.Execute(&buf, map[string]any{
		"Title":     opts.Title,
		"Height":    template.CSS(opts.Height),
		"ScriptURL": opts.ScriptURL,
		"NodeCount": len(vn),
		"EdgeCount": len(ve),
		// marshalled to JSON by html/template inside the script block
		"Nodes": vn,
		"Edges": ve,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DOT renders the graph in Graphviz syntax, nodes and edges sorted by code.
func DOT(nodes []kg.TopicNode, edges []graph.Edge) []byte {
	sorted := append([]kg.TopicNode(nil), nodes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })
	es := append([]graph.Edge(nil), edges...)
	sort.Slice(es, func(i, j int) bool {
		if es[i].From != es[j].From {
			return es[i].From < es[j].From
		}
		return es[i].To < es[j].To
	})

	var b strings.Builder
	b.WriteString("digraph kg {\n  rankdir=LR;\n  node [shape=box, style=rounded];\n")
	for _, n := range sorted {
		fmt.Fprintf(&b, "  %s [label=%s, tooltip=%s];\n", dotID(n.Code), dotID(n.Code), dotID(n.Title))
	}
	for _, e := range es {
		style := "solid"
		if e.Kind == kg.EdgePrerequisiteFor {
			style = "dashed"
		}
		fmt.Fprintf(&b, "  %s -> %s [label=%s, style=%s];\n", dotID(e.From), dotID(e.To), dotID(string(e.Kind)), style)
	}
	b.WriteString("}\n")
	return []byte(b.String())
}

func dotID(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s) + `"`
}
