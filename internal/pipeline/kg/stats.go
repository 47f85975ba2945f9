package kg

import (
	"sort"
	"time"

	"kgbuilder/internal/graph"
	"kgbuilder/internal/oracle"
	t "kgbuilder/internal/types/kg"
)

// Stats summarizes one run.
type Stats struct {
	Nodes           int                  `json:"nodes"`
	Edges           int                  `json:"edges"`
	LeadsTo         int                  `json:"leads_to"`
	PrerequisiteFor int                  `json:"prerequisite_for"`
	Subjects        map[string]int       `json:"subjects"`
	Difficulty      map[t.Difficulty]int `json:"difficulty"`
	Expanded        int                  `json:"expanded"`
	Failed          int                  `json:"failed"`
	OracleCalls     int                  `json:"oracle_calls"`
	OracleFailures  int                  `json:"oracle_failures"`
	CacheHits       int                  `json:"cache_hits"`
	CacheMisses     int                  `json:"cache_misses"`
	RemovedEdges    int                  `json:"removed_edges"`
	Duration        time.Duration        `json:"duration"`
}

func (s *Stats) fill(nodes []t.TopicNode, g *graph.Graph) {
	s.Nodes = len(nodes)
	s.Edges = g.EdgeCount()
	s.Subjects = map[string]int{}
	s.Difficulty = map[t.Difficulty]int{}
	for _, n := range nodes {
		s.Subjects[n.Subject]++
		s.Difficulty[n.DifficultyLevel]++
		switch n.Status {
		case t.StatusEdgeWired:
			s.Expanded++
		case t.StatusFailed:
			s.Failed++
		}
	}
	for _, e := range g.Edges() {
		switch e.Kind {
		case t.EdgeLeadsTo:
			s.LeadsTo++
		case t.EdgePrerequisiteFor:
			s.PrerequisiteFor++
		}
	}
}

// addOracle records the oracle traffic between two snapshots. Every cache
// miss is one call to the model.
func (s *Stats) addOracle(before, after oracle.Stats) {
	s.CacheHits += after.CacheHits - before.CacheHits
	s.CacheMisses += after.CacheMisses - before.CacheMisses
	s.OracleCalls += after.CacheMisses - before.CacheMisses
	s.OracleFailures += after.Failures - before.Failures
}

// KeyValues flattens s for structured logging.
func (s Stats) KeyValues() []any {
	kv := []any{
		"nodes", s.Nodes,
		"edges", s.Edges,
		"leads_to", s.LeadsTo,
		"prerequisite_for", s.PrerequisiteFor,
		"expanded", s.Expanded,
		"failed", s.Failed,
		"oracle_calls", s.OracleCalls,
		"oracle_failures", s.OracleFailures,
		"cache_hits", s.CacheHits,
		"cache_misses", s.CacheMisses,
		"removed_edges", s.RemovedEdges,
		"duration", s.Duration,
	}
	for _, lvl := range t.DifficultyLevels {
		kv = append(kv, "difficulty_"+string(lvl), s.Difficulty[lvl])
	}
	subjects := make([]string, 0, len(s.Subjects))
	for sub := range s.Subjects {
		subjects = append(subjects, sub)
	}
	sort.Strings(subjects)
	kv = append(kv, "subjects", subjects)
	return kv
}
