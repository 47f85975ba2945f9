package kgquery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kgbuilder/internal/types/kg"
)

func codes(nodes []kg.TopicNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Code)
	}
	return out
}

func fixture() *Index {
	return New([]kg.TopicNode{
		{Code: "PHY_MECHANICS", Subject: "Physics", DifficultyLevel: kg.DifficultyBase,
			Prerequisites: []string{"PHY_VECTORS", "MAT_ALGEBRA"}, NextTopics: []string{"PHY_KINEMATICS", "PHY_DYNAMICS"},
			Keywords: []string{"Motion", "force"}},
		{Code: "PHY_VECTORS", Subject: "Physics", DifficultyLevel: kg.DifficultyBase,
			Prerequisites: []string{"MAT_ALGEBRA"}, Keywords: []string{"vector"}},
		{Code: "MAT_ALGEBRA", Subject: "Mathematics", DifficultyLevel: kg.DifficultyBase,
			Prerequisites: []string{"PHY_MECHANICS", "MISSING"}},
		{Code: "PHY_KINEMATICS", Subject: "Physics", DifficultyLevel: kg.DifficultyLevel1,
			NextTopics: []string{"PHY_PROJECTILES"}, Keywords: []string{"velocity", "MOTION graphs"}},
		{Code: "PHY_DYNAMICS", Subject: "Physics", DifficultyLevel: kg.DifficultyLevel1},
		{Code: "PHY_PROJECTILES", Subject: "Physics", DifficultyLevel: kg.DifficultyLevel2,
			NextTopics: []string{"PHY_ORBITS"}},
		{Code: "PHY_ORBITS", Subject: "Physics", DifficultyLevel: kg.DifficultyLevel3},
	})
}

func TestBySubject(t *testing.T) {
	x := fixture()
	assert.Len(t, x.BySubject("Physics", ""), 6)
	assert.Equal(t, []string{"PHY_MECHANICS", "PHY_VECTORS"}, codes(x.BySubject("Physics", kg.DifficultyBase)))
	assert.Empty(t, x.BySubject("Biology", ""))
}

func TestNeighbours(t *testing.T) {
	x := fixture()
	assert.Equal(t, []string{"PHY_VECTORS", "MAT_ALGEBRA"}, codes(x.Prerequisites("PHY_MECHANICS")))
	assert.Equal(t, []string{"PHY_MECHANICS"}, codes(x.Prerequisites("MAT_ALGEBRA")))
	assert.Equal(t, []string{"PHY_KINEMATICS", "PHY_DYNAMICS"}, codes(x.NextTopics("PHY_MECHANICS")))
	assert.Empty(t, x.NextTopics("NOPE"))
}

func TestPrerequisiteChain(t *testing.T) {
	x := fixture()
	// MAT_ALGEBRA lists PHY_MECHANICS back, which must not loop.
	assert.Equal(t, []string{"MAT_ALGEBRA", "PHY_VECTORS", "PHY_MECHANICS"}, x.PrerequisiteChain("PHY_MECHANICS"))
	assert.Equal(t, []string{"PHY_DYNAMICS"}, x.PrerequisiteChain("PHY_DYNAMICS"))
	assert.Empty(t, x.PrerequisiteChain("NOPE"))
}

func TestSubtopics(t *testing.T) {
	x := fixture()
	assert.Equal(t, []string{"PHY_MECHANICS", "PHY_KINEMATICS", "PHY_DYNAMICS", "PHY_PROJECTILES"},
		codes(x.Subtopics("Physics", "PHY_MECHANICS", 2)))
	assert.Equal(t, []string{"PHY_MECHANICS"}, codes(x.Subtopics("", "PHY_MECHANICS", 0)))
	assert.Empty(t, x.Subtopics("Mathematics", "PHY_MECHANICS", 2))
}

func TestSearch(t *testing.T) {
	x := fixture()
	assert.Equal(t, []string{"PHY_MECHANICS", "PHY_KINEMATICS"}, codes(x.Search("motion")))
	assert.Equal(t, []string{"PHY_VECTORS"}, codes(x.Search(" VECT ")))
	assert.Empty(t, x.Search(""))
}
