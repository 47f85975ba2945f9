package llmtool

// PromptPreset holds reusable constraints and rules for structured prompts.
type PromptPreset struct {
	Constraints []string
	Rules       []string
}

// ApplyPresets prepends preset constraints/rules to a structured prompt spec.
func ApplyPresets(spec StructuredPromptSpec, presets ...PromptPreset) StructuredPromptSpec {
	if len(presets) == 0 {
		return spec
	}
	var merged PromptPreset
	for _, p := range presets {
		merged.Constraints = append(merged.Constraints, p.Constraints...)
		merged.Rules = append(merged.Rules, p.Rules...)
	}
	spec.Constraints = append(merged.Constraints, spec.Constraints...)
	spec.Rules = append(merged.Rules, spec.Rules...)
	return spec
}

// PresetStrictJSON enforces strict JSON-only output.
func PresetStrictJSON() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Return strict JSON only.",
			"Match the schema exactly; no extra fields.",
			"No markdown, comments, or trailing commas.",
		},
	}
}

// PresetNoInvent keeps the model inside the requested subject.
func PresetNoInvent() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Stay within the given subject; do not list topics from other subjects.",
			"Use short, conventional topic titles a teacher would recognise.",
		},
	}
}

// PresetCurriculum carries the grade band and the difficulty ladder.
func PresetCurriculum() PromptPreset {
	return PromptPreset{
		Rules: []string{
			"Target Grades 9-12.",
			"Order ideas from fundamentals to advanced applications.",
		},
	}
}
