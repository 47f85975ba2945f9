package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicCode_Examples(t *testing.T) {
	cases := []struct {
		subject, title, want string
	}{
		{"Physics", "Mechanics", "PHY_MECHANICS"},
		{"Physics", "Newton's Laws of Motion", "PHY_NEWTONS_LAWS_OF_MOTION"},
		{"Chemistry", "Acid-Base Reactions", "CHE_ACID_BASE_REACTIONS"},
		{"Biology", "Cell (Structure) & Function", "BIO_CELL_STRUCTURE__FUNCTION"},
		{"Math", "pre_calculus 101", "MAT_PRE_CALCULUS_101"},
		{"Ph", "Optics", "PH_OPTICS"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TopicCode(tc.subject, tc.title), "%s / %s", tc.subject, tc.title)
	}
}

func TestTopicCode_TruncatesTitle(t *testing.T) {
	code := TopicCode("Physics", "Electromagnetic Induction and Alternating Current Circuits")
	require.Equal(t, "PHY_", code[:4])
	assert.Len(t, []rune(code[4:]), 40)
	assert.Equal(t, "PHY_ELECTROMAGNETIC_INDUCTION_AND_ALTERNATIN", code)
}

func TestTopicCode_Deterministic(t *testing.T) {
	first := TopicCode("Physics", "Thermodynamics")
	for i := 0; i < 100; i++ {
		require.Equal(t, first, TopicCode("Physics", "Thermodynamics"))
	}
}

func TestTopicCode_DistinctPairsDoNotCollide(t *testing.T) {
	pairs := [][2]string{
		{"Physics", "Mechanics"},
		{"Physics", "Optics"},
		{"Physics", "Thermodynamics"},
		{"Chemistry", "Mechanics"},
		{"Chemistry", "Stoichiometry"},
		{"Biology", "Genetics"},
		{"Biology", "Evolution"},
		{"Mathematics", "Vectors"},
	}
	seen := map[string][2]string{}
	for _, p := range pairs {
		code := TopicCode(p[0], p[1])
		if prev, ok := seen[code]; ok {
			t.Fatalf("collision: %v and %v both map to %q", prev, p, code)
		}
		seen[code] = p
	}
}

func TestTopicCode_KeepsNumberRunes(t *testing.T) {
	assert.Equal(t, "PHY_EMC²", TopicCode("Physics", "E=mc²"))
	assert.Equal(t, "HIS_LOUIS_Ⅻ", TopicCode("History", "Louis Ⅻ"))
	assert.NotEqual(t, TopicCode("Physics", "E=mc²"), TopicCode("Physics", "E=mc³"))
}
