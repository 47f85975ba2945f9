// Package kgquery answers read-only questions over a finalized node list:
// listing by subject, neighbours, prerequisite chains, subtopic walks and
// keyword search.
package kgquery

import (
	"strings"

	"kgbuilder/internal/types/kg"
)

// Index is an immutable lookup over a node list. Order follows the input.
type Index struct {
	order  []string
	byCode map[string]kg.TopicNode
}

func New(nodes []kg.TopicNode) *Index {
	idx := &Index{byCode: make(map[string]kg.TopicNode, len(nodes))}
	for _, n := range nodes {
		if n.Code == "" {
			continue
		}
		if _, dup := idx.byCode[n.Code]; !dup {
			idx.order = append(idx.order, n.Code)
		}
		idx.byCode[n.Code] = n
	}
	return idx
}

func (x *Index) Len() int { return len(x.order) }

func (x *Index) Get(code string) (kg.TopicNode, bool) {
	n, ok := x.byCode[code]
	return n, ok
}

// BySubject lists the topics of a subject, optionally restricted to one
// difficulty level (empty means any).
func (x *Index) BySubject(subject string, difficulty kg.Difficulty) []kg.TopicNode {
	out := []kg.TopicNode{}
	for _, code := range x.order {
		n := x.byCode[code]
		if n.Subject != subject {
			continue
		}
		if difficulty != "" && n.DifficultyLevel != difficulty {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Prerequisites returns the known nodes listed in code's prerequisites.
func (x *Index) Prerequisites(code string) []kg.TopicNode {
	n, ok := x.byCode[code]
	if !ok {
		return []kg.TopicNode{}
	}
	return x.resolve(n.Prerequisites)
}

// NextTopics returns the known nodes listed in code's next_topics.
func (x *Index) NextTopics(code string) []kg.TopicNode {
	n, ok := x.byCode[code]
	if !ok {
		return []kg.TopicNode{}
	}
	return x.resolve(n.NextTopics)
}

func (x *Index) resolve(codes []string) []kg.TopicNode {
	out := make([]kg.TopicNode, 0, len(codes))
	for _, c := range codes {
		if n, ok := x.byCode[c]; ok {
			out = append(out, n)
		}
	}
	return out
}

// PrerequisiteChain walks prerequisites depth-first and returns codes in
// post-order, so the most basic topic comes first and code comes last.
// Unknown codes are left out. Cycles in the stored lists are tolerated.
func (x *Index) PrerequisiteChain(code string) []string {
	type frame struct {
		code string
		next int
	}
	chain := []string{}
	if _, ok := x.byCode[code]; !ok {
		return chain
	}
	visited := map[string]bool{code: true}
	stack := []frame{{code: code}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		pres := x.byCode[top.code].Prerequisites
		if top.next < len(pres) {
			pre := pres[top.next]
			top.next++
			if visited[pre] {
				continue
			}
			visited[pre] = true
			if _, ok := x.byCode[pre]; ok {
				stack = append(stack, frame{code: pre})
			}
			continue
		}
		chain = append(chain, top.code)
		stack = stack[:len(stack)-1]
	}
	return chain
}

// Subtopics walks next_topics breadth-first from start, returning every
// reachable node no deeper than depthLimit. A non-empty subject restricts the
// walk to that subject.
func (x *Index) Subtopics(subject, start string, depthLimit int) []kg.TopicNode {
	type item struct {
		code  string
		depth int
	}
	out := []kg.TopicNode{}
	visited := map[string]bool{}
	queue := []item{{code: start}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth > depthLimit || visited[cur.code] {
			continue
		}
		visited[cur.code] = true
		n, ok := x.byCode[cur.code]
		if !ok || (subject != "" && n.Subject != subject) {
			continue
		}
		out = append(out, n)
		for _, next := range n.NextTopics {
			queue = append(queue, item{code: next, depth: cur.depth + 1})
		}
	}
	return out
}

// Search returns topics with a keyword containing the query, ignoring case.
func (x *Index) Search(keyword string) []kg.TopicNode {
	q := strings.ToLower(strings.TrimSpace(keyword))
	out := []kg.TopicNode{}
	if q == "" {
		return out
	}
	for _, code := range x.order {
		n := x.byCode[code]
		for _, k := range n.Keywords {
			if strings.Contains(strings.ToLower(k), q) {
				out = append(out, n)
				break
			}
		}
	}
	return out
}
