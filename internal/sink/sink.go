// Package sink persists a finalized topic graph: a local JSON file plus any
// of Postgres, Neo4j and S3.
package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"kgbuilder/internal/graph"
	"kgbuilder/internal/platform/logger"
	"kgbuilder/internal/types/kg"
)

// Batch is everything one run hands to the sinks.
type Batch struct {
	RunID string
	Nodes []kg.TopicNode
	Edges []graph.Edge
	// Files are rendered artifacts keyed by file name (kg_final.json, kg_vis.html).
	Files map[string][]byte
}

type Sink interface {
	Name() string
	Write(ctx context.Context, b Batch) error
	Close() error
}

// PersistenceError wraps a failure of one sink.
type PersistenceError struct {
	Sink string
	Err  error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("sink %s: %v", e.Sink, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// WriteAll runs every sink concurrently and joins their failures. One failing
// sink does not stop the others.
func WriteAll(ctx context.Context, sinks []Sink, b Batch, log *logger.Logger) error {
	log = logger.OrNop(log)
	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	for _, s := range sinks {
		s := s
		g.Go(func() error {
			start := time.Now()
			if err := s.Write(ctx, b); err != nil {
				pe := &PersistenceError{Sink: s.Name(), Err: err}
				log.Error("sink write failed", "sink", s.Name(), "error", err)
				mu.Lock()
				errs = append(errs, pe)
				mu.Unlock()
				return nil
			}
			log.Info("sink write done", "sink", s.Name(), "nodes", len(b.Nodes), "elapsed", time.Since(start))
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// CloseAll closes every sink and joins the errors.
func CloseAll(sinks []Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, &PersistenceError{Sink: s.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

// NormalizeForUpsert prepares nodes for an upsert keyed by code: nodes
// without a code are dropped, unknown difficulty becomes base, a missing
// created_at becomes now and nil lists become empty ones.
func NormalizeForUpsert(nodes []kg.TopicNode, now time.Time) []kg.TopicNode {
	out := make([]kg.TopicNode, 0, len(nodes))
	for _, n := range nodes {
		n.Code = strings.TrimSpace(n.Code)
		if n.Code == "" {
			continue
		}
		c := n.Clone()
		c.DifficultyLevel = kg.ParseDifficulty(string(c.DifficultyLevel), kg.DifficultyBase)
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.CreatedAt = c.CreatedAt.UTC()
		if c.EstimatedHours < 0 {
			c.EstimatedHours = 0
		}
		c.Prerequisites = nonNil(c.Prerequisites)
		c.NextTopics = nonNil(c.NextTopics)
		c.ContentRefs = nonNil(c.ContentRefs)
		c.Keywords = nonNil(c.Keywords)
		c.Objectives = nonNil(c.Objectives)
		out = append(out, *c)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
