package kg

import (
	"sort"
	"time"
)

// Status tracks where a node is in the expansion lifecycle.
type Status string

const (
	StatusSeed       Status = "seed"
	StatusDiscovered Status = "discovered"
	StatusQueued     Status = "queued"
	StatusExpanding  Status = "expanding"
	StatusExpanded   Status = "expanded"
	StatusEdgeWired  Status = "edge_wired"
	StatusFailed     Status = "failed"
)

// EdgeKind is the relationship carried by a graph edge.
type EdgeKind string

const (
	// EdgeLeadsTo points from a parent topic to one of its subtopics.
	EdgeLeadsTo EdgeKind = "leads_to"
	// EdgePrerequisiteFor points from a prerequisite to the topic that needs it.
	EdgePrerequisiteFor EdgeKind = "prerequisite_for"
)

const DefaultEstimatedHours = 3.0

// TopicNode is the single record type shared by the builder, the sinks and
// the query helpers.
type TopicNode struct {
	Code            string     `json:"code"`
	Subject         string     `json:"subject"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	DifficultyLevel Difficulty `json:"difficulty_level"`
	Prerequisites   []string   `json:"prerequisites"`
	NextTopics      []string   `json:"next_topics"`
	ContentRefs     []string   `json:"content_refs,omitempty"`
	Keywords        []string   `json:"keywords"`
	Objectives      []string   `json:"objectives"`
	EstimatedHours  float64    `json:"estimated_hours"`
	Status          Status     `json:"status,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Clone returns a deep copy so callers can hand nodes out without sharing slices.
func (n *TopicNode) Clone() *TopicNode {
	if n == nil {
		return nil
	}
	out := *n
	out.Prerequisites = cloneStrings(n.Prerequisites)
	out.NextTopics = cloneStrings(n.NextTopics)
	out.ContentRefs = cloneStrings(n.ContentRefs)
	out.Keywords = cloneStrings(n.Keywords)
	out.Objectives = cloneStrings(n.Objectives)
	return &out
}

// SortedUnion merges the given lists into one sorted, de-duplicated list.
// Empty strings are dropped.
func SortedUnion(lists ...[]string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, l := range lists {
		for _, s := range l {
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// cloneStrings keeps nil as nil and an empty list as an empty list.
func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}
