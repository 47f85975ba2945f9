package oracle

import (
	"sync"

	"kgbuilder/internal/llmtool"
	"kgbuilder/internal/types/kg"
)

// expansionSchema documents the reply shape for the prompt only; replies are
// decoded through wireExpansion.
type expansionSchema struct {
	Subtopics       []string `json:"subtopics" prompt_desc:"4-8 essential subtopics that together cover the whole topic"`
	Prerequisites   []string `json:"prerequisites" prompt_desc:"2-5 prerequisite topics from the same subject"`
	Objectives      []string `json:"objectives" prompt_desc:"3-6 specific, measurable learning objectives"`
	DifficultyLevel string   `json:"difficulty_level" prompt_type:"base|level_1|level_2|level_3|level_4" prompt_desc:"level of this topic"`
	Keywords        []string `json:"keywords" prompt_desc:"5-10 relevant keywords"`
	EstimatedHours  float64  `json:"estimated_hours" prompt_desc:"realistic study time between 1 and 6 hours"`
}

var expansionPrompt = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose: "Break the topic given in INPUT JSON down for a Grades 9-12 science curriculum. " +
		"Act as an educational curriculum designer.",
	Background: "The answer grows a knowledge graph: subtopics become children of the topic, " +
		"prerequisites become topics that must be learned first. depth is how far the topic sits " +
		"below the subject root; at depth 1 the subtopics must span the full scope of the subject " +
		"(for physics: mechanics, thermodynamics, electromagnetism, optics and modern physics).",
	OutputFields: llmtool.MustFieldsFromStruct(expansionSchema{}),
	Rules: []string{
		"difficulty_level: base = foundational, introductory (Grade 9).",
		"difficulty_level: level_1 = basic applications and understanding (Grades 9-10).",
		"difficulty_level: level_2 = intermediate concepts with problem-solving (Grades 10-11).",
		"difficulty_level: level_3 = advanced topics requiring deep understanding (Grades 11-12).",
		"difficulty_level: level_4 = specialised or competitive-exam topics.",
		"Mix subtopics: 40-50 percent base, 30-40 percent level_1, 20-30 percent level_2 or above.",
		"Do not consider cross-subject prerequisites.",
	},
	OutputFormat: "A single JSON object with exactly the OUTPUT keys.",
	Language:     "English",
}, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent(), llmtool.PresetCurriculum())

var (
	promptOnce sync.Once
	promptText string
	promptErr  error
)

// Prompt returns the rendered instruction block. The per-topic values travel
// as the call input.
func Prompt() (string, error) {
	promptOnce.Do(func() {
		promptText, promptErr = expansionPrompt.Render(nil)
	})
	return promptText, promptErr
}

// wireRequest is the per-call input sent next to Prompt().
type wireRequest struct {
	Title           string        `json:"title"`
	Subject         string        `json:"subject"`
	DifficultyLevel kg.Difficulty `json:"difficulty_level"`
	Depth           int           `json:"depth"`
}
