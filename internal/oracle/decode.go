package oracle

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"kgbuilder/internal/types/kg"
)

// stringList accepts ["a","b"], a bare "a", or objects carrying a
// title/name field, which is what models produce when they ignore the schema.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*l = stringList{one}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	out := make(stringList, 0, len(items))
	for _, it := range items {
		var s string
		if err := json.Unmarshal(it, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(it, &obj); err == nil {
			for _, k := range []string{"title", "name", "topic"} {
				if v, ok := obj[k].(string); ok {
					out = append(out, v)
					break
				}
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(it, &n); err == nil {
			out = append(out, n.String())
		}
	}
	*l = out
	return nil
}

// flexHours accepts a number or a numeric string; anything else reads as 0.
type flexHours float64

func (h *flexHours) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*h = flexHours(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*h = flexHours(f)
		}
	}
	return nil
}

type wireExpansion struct {
	Subtopics       *stringList `json:"subtopics"`
	Prerequisites   stringList  `json:"prerequisites"`
	Objectives      stringList  `json:"objectives"`
	Keywords        stringList  `json:"keywords"`
	EstimatedHours  flexHours   `json:"estimated_hours"`
	DifficultyLevel any         `json:"difficulty_level"`
}

// decode parses raw into an expansion normalized against current.
// EstimatedHours stays 0 when the reply did not carry a usable value.
func decode(raw json.RawMessage, current kg.Difficulty) (kg.Expansion, error) {
	var w wireExpansion
	if err := json.Unmarshal(raw, &w); err != nil {
		return kg.Expansion{}, &ParseError{Reason: "schema mismatch", Err: err}
	}
	if w.Subtopics == nil {
		return kg.Expansion{}, &ParseError{Reason: "missing subtopics"}
	}
	level, _ := w.DifficultyLevel.(string)
	exp := kg.Expansion{
		Subtopics:       clean(*w.Subtopics, kg.MaxSubtopics),
		Prerequisites:   clean(w.Prerequisites, kg.MaxPrerequisites),
		Objectives:      clean(w.Objectives, kg.MaxObjectives),
		Keywords:        clean(w.Keywords, kg.MaxKeywords),
		DifficultyLevel: kg.ParseDifficulty(level, current),
	}
	if h := float64(w.EstimatedHours); h > 0 && !math.IsNaN(h) && !math.IsInf(h, 0) {
		exp.EstimatedHours = clampHours(h)
	}
	return exp, nil
}

// validate is the schema check run inside the retry loop.
func validate(raw json.RawMessage) error {
	_, err := decode(raw, kg.DifficultyBase)
	return err
}

func clean(in []string, max int) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.Join(strings.Fields(s), " ")
		if s == "" {
			continue
		}
		k := strings.ToLower(s)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
		if len(out) == max {
			break
		}
	}
	return out
}

func clampHours(h float64) float64 {
	return math.Min(kg.MaxHours, math.Max(kg.MinHours, h))
}
