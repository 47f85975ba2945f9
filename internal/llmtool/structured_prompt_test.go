package llmtool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Sections(t *testing.T) {
	spec := StructuredPromptSpec{
		Purpose:      "Break a topic down.",
		Background:   "Grade 9-12 science.",
		OutputFormat: "JSON only.",
		Language:     "English",
		OutputFields: []PromptField{
			{Name: "subtopics", Type: "[]string", Required: true, Description: "4-8 items."},
			{Name: "notes", Type: "string"},
		},
		Constraints: []string{"No markdown."},
		Rules:       []string{"Be concise."},
		Assumptions: []string{"If unsure, return empty lists."},
		Examples:    []PromptExample{{InputJSON: `{"title":"x"}`, OutputJSON: `{"subtopics":[]}`}},
	}
	out, err := spec.Render(map[string]any{"title": "Optics"})
	require.NoError(t, err)
	for _, sec := range []string{"[PURPOSE]", "[BACKGROUND]", "[INPUT]", "[OUTPUT]", "[CONSTRAINTS]",
		"[RULES]", "[ASSUMPTIONS]", "[OUTPUT_FORMAT]", "[LANGUAGE]", "[EXAMPLES]"} {
		assert.Contains(t, out, sec)
	}
	assert.Contains(t, out, "- subtopics ([]string, required): 4-8 items.")
	assert.Contains(t, out, "- notes (string, optional)")
	assert.Contains(t, out, `"title": "Optics"`)
}

func TestRender_NilInputOmitsBlock(t *testing.T) {
	spec := StructuredPromptSpec{Purpose: "x", OutputFields: []PromptField{{Name: "a", Type: "string"}}}
	out, err := spec.Render(nil)
	require.NoError(t, err)
	assert.False(t, strings.Contains(out, "[INPUT]"))
}

func TestRender_RequiresPurposeAndFields(t *testing.T) {
	_, err := StructuredPromptSpec{OutputFields: []PromptField{{Name: "a"}}}.Render(nil)
	assert.ErrorContains(t, err, "purpose")
	_, err = StructuredPromptSpec{Purpose: "x"}.Render(nil)
	assert.ErrorContains(t, err, "output fields")
}

func TestApplyPresets_PrependConstraintsAndRules(t *testing.T) {
	spec := StructuredPromptSpec{Constraints: []string{"own"}, Rules: []string{"own-rule"}}
	applied := ApplyPresets(spec, PresetStrictJSON(), PresetCurriculum())
	require.Greater(t, len(applied.Constraints), 1)
	assert.Equal(t, "Return strict JSON only.", applied.Constraints[0])
	assert.Equal(t, "own", applied.Constraints[len(applied.Constraints)-1])
	assert.Equal(t, "own-rule", applied.Rules[len(applied.Rules)-1])
}

func TestFieldsFromStruct(t *testing.T) {
	type out struct {
		Subtopics []string `json:"subtopics" prompt_desc:"children"`
		Hours     float64  `json:"estimated_hours" prompt:"optional"`
		Internal  string   `json:"-"`
		Skip      string   `prompt:"-"`
	}
	fields := MustFieldsFromStruct(out{})
	require.Len(t, fields, 2)
	assert.Equal(t, PromptField{Name: "subtopics", Type: "[]string", Required: true, Description: "children"}, fields[0])
	assert.Equal(t, PromptField{Name: "estimated_hours", Type: "number", Required: false}, fields[1])
}
