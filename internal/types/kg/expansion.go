package kg

// Expansion is a validated oracle answer for one topic.
type Expansion struct {
	Subtopics       []string   `json:"subtopics"`
	Prerequisites   []string   `json:"prerequisites"`
	Objectives      []string   `json:"objectives"`
	Keywords        []string   `json:"keywords"`
	EstimatedHours  float64    `json:"estimated_hours"`
	DifficultyLevel Difficulty `json:"difficulty_level"`
}

// Caps on the list sizes kept from an oracle answer. Longer lists are
// truncated; shorter lists are accepted as-is.
const (
	MaxSubtopics     = 8
	MaxPrerequisites = 5
	MaxObjectives    = 6
	MaxKeywords      = 10
	MinHours         = 1.0
	MaxHours         = 6.0
)

// CacheKey is the memoization key for one oracle request.
func CacheKey(subject, title string, current Difficulty) string {
	return subject + "::" + title + "::" + string(current)
}

// Clone returns a deep copy of e.
func (e Expansion) Clone() Expansion {
	e.Subtopics = cloneStrings(e.Subtopics)
	e.Prerequisites = cloneStrings(e.Prerequisites)
	e.Objectives = cloneStrings(e.Objectives)
	e.Keywords = cloneStrings(e.Keywords)
	return e
}
