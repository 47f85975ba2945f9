package kg

import "strings"

// Difficulty is the ordered five-level ladder used for every topic.
type Difficulty string

const (
	DifficultyBase   Difficulty = "base"
	DifficultyLevel1 Difficulty = "level_1"
	DifficultyLevel2 Difficulty = "level_2"
	DifficultyLevel3 Difficulty = "level_3"
	DifficultyLevel4 Difficulty = "level_4"
)

// DifficultyLevels lists the ladder from easiest to hardest.
var DifficultyLevels = []Difficulty{
	DifficultyBase,
	DifficultyLevel1,
	DifficultyLevel2,
	DifficultyLevel3,
	DifficultyLevel4,
}

// Index returns the position of d on the ladder, or -1 when d is not a level.
func (d Difficulty) Index() int {
	for i, lvl := range DifficultyLevels {
		if lvl == d {
			return i
		}
	}
	return -1
}

func (d Difficulty) Valid() bool { return d.Index() >= 0 }

// Easier returns the level directly below d. The bottom of the ladder and
// unknown values both map to base.
func (d Difficulty) Easier() Difficulty {
	i := d.Index()
	if i <= 0 {
		return DifficultyBase
	}
	return DifficultyLevels[i-1]
}

// ParseDifficulty returns s as a Difficulty when it names a level and
// fallback otherwise. Matching is exact after trimming whitespace.
func ParseDifficulty(s string, fallback Difficulty) Difficulty {
	d := Difficulty(strings.TrimSpace(s))
	if d.Valid() {
		return d
	}
	return fallback
}
