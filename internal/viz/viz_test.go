package viz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgbuilder/internal/graph"
	"kgbuilder/internal/types/kg"
)

func fixture() ([]kg.TopicNode, []graph.Edge) {
	nodes := []kg.TopicNode{
		{Code: "PHY_MECHANICS", Subject: "Physics", Title: "Mechanics", DifficultyLevel: kg.DifficultyBase},
		{Code: "PHY_KINEMATICS", Subject: "Physics", Title: "Kinematics </script>", DifficultyLevel: kg.DifficultyLevel1},
		{Code: "PHY_VECTORS", Subject: "Physics", Title: "Vectors", DifficultyLevel: kg.DifficultyBase},
	}
	edges := []graph.Edge{
		{From: "PHY_MECHANICS", To: "PHY_KINEMATICS", Kind: kg.EdgeLeadsTo},
		{From: "PHY_VECTORS", To: "PHY_MECHANICS", Kind: kg.EdgePrerequisiteFor},
	}
	return nodes, edges
}

func TestHTML(t *testing.T) {
	nodes, edges := fixture()
	out, err := HTML(nodes, edges, Options{Title: "Physics"})
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, "vis-network")
	assert.Contains(t, page, "3 topics, 2 edges")
	assert.Contains(t, page, `"label":"PHY_KINEMATICS"`)
	assert.Contains(t, page, `"arrows":"to"`)
	assert.Contains(t, page, `"dashes":true`)
	assert.Equal(t, 1, strings.Count(page, "</script>\n</body>"))
	assert.NotContains(t, page, "Kinematics </script>")
}

func TestDOT(t *testing.T) {
	nodes, edges := fixture()
	out := string(DOT(nodes, edges))
	assert.True(t, strings.HasPrefix(out, "digraph kg {"))
	assert.Contains(t, out, `"PHY_MECHANICS" -> "PHY_KINEMATICS" [label="leads_to", style=solid];`)
	assert.Contains(t, out, `"PHY_VECTORS" -> "PHY_MECHANICS" [label="prerequisite_for", style=dashed];`)
	assert.Less(t, strings.Index(out, `"PHY_KINEMATICS" [`), strings.Index(out, `"PHY_MECHANICS" [`))
}

func TestDotIDEscapes(t *testing.T) {
	assert.Equal(t, `"say \"hi\""`, dotID(`say "hi"`))
}
