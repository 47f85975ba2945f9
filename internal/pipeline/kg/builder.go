// Package kg grows a topic graph breadth-first from seed topics, then makes
// it acyclic and reconciles the per-node lists with the edges.
package kg

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"kgbuilder/internal/graph"
	"kgbuilder/internal/oracle"
	"kgbuilder/internal/platform/logger"
	t "kgbuilder/internal/types/kg"
	"kgbuilder/internal/utils"
)

// Expander answers one expansion request. *oracle.Client implements it.
type Expander interface {
	Expand(ctx context.Context, req oracle.Request) (oracle.Response, error)
}

// statsReporter is implemented by expanders that count their own traffic.
// The run summary takes its cache and call counts from it.
type statsReporter interface {
	Stats() oracle.Stats
}

type Config struct {
	// MaxNodes caps the node count, seeds included.
	MaxNodes int
	// RecursiveDepth is the remaining depth seeds start with.
	RecursiveDepth int
	// PaceDelay is slept after every oracle call that was not a cache hit.
	PaceDelay time.Duration
	// MaxCycles bounds one round of cycle enumeration.
	MaxCycles int
}

func DefaultConfig() Config {
	return Config{MaxNodes: 500, RecursiveDepth: 2, PaceDelay: 1200 * time.Millisecond, MaxCycles: 10000}
}

// Result is a finalized graph.
type Result struct {
	RunID        string
	Nodes        []t.TopicNode
	Graph        *graph.Graph
	Stats        Stats
	RemovedEdges []graph.Edge
	// Residual is set when cycles survived resolution.
	Residual *IntegrityWarning
}

type Builder struct {
	oracle Expander
	cfg    Config
	log    *logger.Logger
	now    func() time.Time
}

func NewBuilder(o Expander, cfg Config, log *logger.Logger) *Builder {
	def := DefaultConfig()
	if cfg.MaxNodes <= 0 {
		cfg.MaxNodes = def.MaxNodes
	}
	if cfg.RecursiveDepth < 0 {
		cfg.RecursiveDepth = 0
	}
	if cfg.MaxCycles <= 0 {
		cfg.MaxCycles = def.MaxCycles
	}
	return &Builder{
		oracle: o,
		cfg:    cfg,
		log:    logger.OrNop(log).With("component", "kg.builder"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type queueItem struct {
	code      string
	remaining int
	depth     int
}

// run holds the state of one Build call.
type run struct {
	*Builder
	nodes     map[string]*t.TopicNode
	order     []string
	g         *graph.Graph
	processed map[string]bool
	queue     []queueItem
	stats     Stats
}

// Build expands seeds and returns the finalized graph. When ctx ends early
// the partial graph is still resolved and returned together with ctx.Err().
func (b *Builder) Build(ctx context.Context, seeds []t.Seed) (*Result, error) {
	runID := uuid.NewString()
	ctx, span := otel.Tracer("kgbuilder/internal/pipeline/kg").Start(ctx, "kg.Build")
	defer span.End()
	span.SetAttributes(attribute.String("kg.run_id", runID), attribute.Int("kg.seeds", len(seeds)))

	start := time.Now()
	r := &run{
		Builder:   b,
		nodes:     map[string]*t.TopicNode{},
		g:         graph.New(),
		processed: map[string]bool{},
	}
	log := b.log.With("run_id", runID)
	log.Info("building knowledge graph", "seeds", len(seeds), "max_nodes", b.cfg.MaxNodes, "recursive_depth", b.cfg.RecursiveDepth)

	for _, s := range seeds {
		if err := s.Validate(); err != nil {
			log.Warn("skipping seed", "error", err)
			continue
		}
		if r.full() {
			log.Warn("node budget reached while seeding; dropping remaining seeds", "max_nodes", b.cfg.MaxNodes)
			break
		}
		n := t.FromSeed(s, b.now())
		if _, dup := r.nodes[n.Code]; dup {
			log.Warn("duplicate seed code; keeping the first", "code", n.Code)
			continue
		}
		r.add(&n)
		r.enqueue(n.Code, b.cfg.RecursiveDepth, 0)
	}

	sr, counted := b.oracle.(statsReporter)
	var before oracle.Stats
	if counted {
		before = sr.Stats()
	}
	runErr := r.drain(ctx, log)
	if counted {
		r.stats.addOracle(before, sr.Stats())
	}

	removed, residual := ResolveCycles(r.g, b.cfg.MaxCycles)
	for _, e := range removed {
		log.Debug("removed cycle edge", "from", e.From, "to", e.To, "kind", e.Kind)
	}
	if residual != nil {
		log.Warn("graph still has cycles after resolution", "error", residual)
	}
	nodes := Reconcile(r.nodes, r.order, r.g)

	r.stats.RemovedEdges = len(removed)
	r.stats.Duration = time.Since(start)
	r.stats.fill(nodes, r.g)
	span.SetAttributes(attribute.Int("kg.nodes", len(nodes)), attribute.Int("kg.edges", r.g.EdgeCount()))
	log.Info("knowledge graph built", r.stats.KeyValues()...)

	return &Result{
		RunID:        runID,
		Nodes:        nodes,
		Graph:        r.g,
		Stats:        r.stats,
		RemovedEdges: removed,
		Residual:     residual,
	}, runErr
}

func (r *run) add(n *t.TopicNode) {
	r.nodes[n.Code] = n
	r.order = append(r.order, n.Code)
	r.g.AddNode(n.Code)
}

func (r *run) full() bool { return len(r.nodes) >= r.cfg.MaxNodes }

func (r *run) enqueue(code string, remaining, depth int) {
	if remaining > 0 {
		r.nodes[code].Status = queuedStatus(r.nodes[code].Status)
	}
	r.queue = append(r.queue, queueItem{code: code, remaining: remaining, depth: depth})
}

// queuedStatus keeps Seed visible on seeds.
func queuedStatus(s t.Status) t.Status {
	if s == t.StatusSeed {
		return s
	}
	return t.StatusQueued
}

func (r *run) drain(ctx context.Context, log *logger.Logger) error {
	for len(r.queue) > 0 {
		if err := ctx.Err(); err != nil {
			log.Warn("run interrupted; finalizing partial graph", "queued", len(r.queue), "error", err)
			return err
		}
		it := r.queue[0]
		r.queue = r.queue[1:]
		if r.processed[it.code] || it.remaining <= 0 {
			continue
		}
		r.processed[it.code] = true
		node := r.nodes[it.code]
		prev := node.Status
		node.Status = t.StatusExpanding

		resp, err := r.oracle.Expand(ctx, oracle.Request{
			Title:        node.Title,
			Subject:      node.Subject,
			Difficulty:   node.DifficultyLevel,
			Depth:        it.depth + 1,
			CurrentHours: node.EstimatedHours,
		})
		if err != nil {
			if ctx.Err() != nil {
				node.Status = prev
				log.Warn("run interrupted; finalizing partial graph", "queued", len(r.queue), "error", ctx.Err())
				return ctx.Err()
			}
			node.Status = t.StatusFailed
			node.LastError = err.Error()
			var ex *oracle.ExhaustedError
			if errors.As(err, &ex) {
				log.Error("expansion failed", "code", node.Code, "attempts", ex.Attempts, "error", ex.Err)
			} else {
				log.Error("expansion failed", "code", node.Code, "error", err)
			}
			if err := r.pace(ctx); err != nil {
				return err
			}
			continue
		}
		r.apply(node, resp.Expansion, it)
		log.Debug("expanded topic", "code", node.Code, "cached", resp.Cached, "nodes", len(r.nodes), "queued", len(r.queue))
		if !resp.Cached {
			if err := r.pace(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) apply(node *t.TopicNode, exp t.Expansion, it queueItem) {
	node.Objectives = exp.Objectives
	node.Keywords = exp.Keywords
	node.EstimatedHours = exp.EstimatedHours
	node.Status = t.StatusExpanded
	child := exp.DifficultyLevel

	for _, title := range exp.Subtopics {
		code := utils.TopicCode(node.Subject, title)
		if code == node.Code {
			continue
		}
		if _, ok := r.nodes[code]; !ok {
			if r.full() {
				continue
			}
			r.add(&t.TopicNode{
				Code:            code,
				Subject:         node.Subject,
				Title:           title,
				Description:     "Subtopic of " + node.Title,
				DifficultyLevel: child,
				Prerequisites:   []string{node.Code},
				NextTopics:      []string{},
				Keywords:        []string{},
				Objectives:      []string{},
				EstimatedHours:  math.Max(1, exp.EstimatedHours*0.7),
				Status:          t.StatusDiscovered,
				CreatedAt:       r.now(),
			})
			r.enqueue(code, it.remaining-1, it.depth+1)
		}
		r.g.AddEdge(node.Code, code, t.EdgeLeadsTo)
	}

	for _, title := range exp.Prerequisites {
		code := utils.TopicCode(node.Subject, title)
		if code == node.Code {
			continue
		}
		if _, ok := r.nodes[code]; !ok {
			if r.full() {
				continue
			}
			r.add(&t.TopicNode{
				Code:            code,
				Subject:         node.Subject,
				Title:           title,
				Description:     "Prerequisite for " + node.Title,
				DifficultyLevel: child.Easier(),
				Prerequisites:   []string{},
				NextTopics:      []string{node.Code},
				Keywords:        []string{},
				Objectives:      []string{},
				EstimatedHours:  1.5,
				Status:          t.StatusDiscovered,
				CreatedAt:       r.now(),
			})
			r.enqueue(code, it.remaining-1, it.depth+1)
		}
		r.g.AddEdge(code, node.Code, t.EdgePrerequisiteFor)
	}
}

func (r *run) pace(ctx context.Context) error {
	if r.cfg.PaceDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(r.cfg.PaceDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
