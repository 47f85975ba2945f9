package kg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"kgbuilder/internal/utils"
)

// Seed is one initial topic supplied before expansion starts.
type Seed struct {
	Subject         string   `json:"subject" yaml:"subject"`
	Title           string   `json:"title" yaml:"title"`
	Code            string   `json:"code,omitempty" yaml:"code,omitempty"`
	DifficultyLevel string   `json:"difficulty_level,omitempty" yaml:"difficulty_level,omitempty"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	Objectives      []string `json:"objectives,omitempty" yaml:"objectives,omitempty"`
	Prerequisites   []string `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`
	Keywords        []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	EstimatedHours  *float64 `json:"estimated_hours,omitempty" yaml:"estimated_hours,omitempty"`
}

func (s Seed) Validate() error {
	if strings.TrimSpace(s.Subject) == "" {
		return fmt.Errorf("seed %q: subject is required", s.Title)
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("seed in %q: title is required", s.Subject)
	}
	return nil
}

// FromSeed turns a seed record into a node. An explicit code wins over the
// derived one; missing difficulty and hours fall back to base and 3h.
func FromSeed(s Seed, now time.Time) TopicNode {
	code := strings.TrimSpace(s.Code)
	if code == "" {
		code = utils.TopicCode(s.Subject, s.Title)
	}
	hours := DefaultEstimatedHours
	if s.EstimatedHours != nil {
		hours = *s.EstimatedHours
	}
	return TopicNode{
		Code:            code,
		Subject:         s.Subject,
		Title:           s.Title,
		Description:     s.Description,
		DifficultyLevel: ParseDifficulty(s.DifficultyLevel, DifficultyBase),
		Objectives:      nonNil(s.Objectives),
		Prerequisites:   nonNil(s.Prerequisites),
		NextTopics:      []string{},
		Keywords:        nonNil(s.Keywords),
		EstimatedHours:  hours,
		Status:          StatusSeed,
		CreatedAt:       now,
	}
}

// FromMap adapts a loosely typed record (an older kg_final.json entry or a
// document pulled from another store) into a TopicNode. Unknown keys are
// ignored. "createdAt" is accepted as an alias of "created_at".
func FromMap(m map[string]any, now time.Time) (TopicNode, error) {
	n := TopicNode{
		Code:            str(m["code"]),
		Subject:         str(m["subject"]),
		Title:           str(m["title"]),
		Description:     str(m["description"]),
		DifficultyLevel: ParseDifficulty(str(m["difficulty_level"]), DifficultyBase),
		Prerequisites:   strList(m["prerequisites"]),
		NextTopics:      strList(m["next_topics"]),
		ContentRefs:     strList(m["content_refs"]),
		Keywords:        strList(m["keywords"]),
		Objectives:      strList(m["objectives"]),
		EstimatedHours:  num(m["estimated_hours"]),
		Status:          Status(str(m["status"])),
		LastError:       str(m["last_error"]),
		CreatedAt:       now,
	}
	if n.Code == "" {
		if n.Subject == "" || n.Title == "" {
			return TopicNode{}, fmt.Errorf("node without code, subject or title")
		}
		n.Code = utils.TopicCode(n.Subject, n.Title)
	}
	ts := str(m["created_at"])
	if ts == "" {
		ts = str(m["createdAt"])
	}
	if ts != "" {
		if t, err := parseTime(ts); err == nil {
			n.CreatedAt = t
		}
	}
	return n, nil
}

// LoadSeeds reads a seed list from a .json, .yaml or .yml file.
func LoadSeeds(path string) ([]Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seeds []Seed
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &seeds)
	default:
		err = json.Unmarshal(raw, &seeds)
	}
	if err != nil {
		return nil, fmt.Errorf("parse seeds %s: %w", path, err)
	}
	for _, s := range seeds {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return seeds, nil
}

// LoadNodes reads a finalized node list through FromMap so that files written
// by older tools are accepted too.
func LoadNodes(path string) ([]TopicNode, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse nodes %s: %w", path, err)
	}
	now := time.Now().UTC()
	out := make([]TopicNode, 0, len(items))
	for i, it := range items {
		n, err := FromMap(it, now)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// SeedsFromNodes turns a finalized list back into seeds so a later run can
// pick up where a previous one stopped.
func SeedsFromNodes(nodes []TopicNode) []Seed {
	out := make([]Seed, 0, len(nodes))
	for _, n := range nodes {
		hours := n.EstimatedHours
		out = append(out, Seed{
			Subject:         n.Subject,
			Title:           n.Title,
			Code:            n.Code,
			DifficultyLevel: string(n.DifficultyLevel),
			Description:     n.Description,
			Objectives:      n.Objectives,
			Prerequisites:   n.Prerequisites,
			Keywords:        n.Keywords,
			EstimatedHours:  &hours,
		})
	}
	return out
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "Z")
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Parse(time.RFC3339Nano, s+"Z")
}

func str(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func strList(v any) []string {
	out := []string{}
	switch x := v.(type) {
	case []string:
		for _, s := range x {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, it := range x {
			if s := str(it); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func num(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		f, _ := x.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f
	default:
		return 0
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string(nil), in...)
}
