package sink

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"kgbuilder/internal/graph"
	"kgbuilder/internal/types/kg"
)

const defaultFingerprintCacheSize = 4096

// Postgres upserts topics by code into kg_topics and replaces each written
// topic's outgoing rows in kg_edges.
type Postgres struct {
	db *sql.DB

	// code -> fingerprint of the last row written by this process
	seen *lru.Cache[string, string]

	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newPostgres(db)
}

func newPostgres(db *sql.DB) (*Postgres, error) {
	seen, err := lru.New[string, string](defaultFingerprintCacheSize)
	if err != nil {
		return nil, err
	}
	return &Postgres{db: db, seen: seen}, nil
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	p.schemaOnce.Do(func() {
		_, p.schemaErr = p.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS kg_topics (
  code TEXT PRIMARY KEY,
  subject TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  difficulty_level TEXT NOT NULL DEFAULT 'base',
  prerequisites JSONB NOT NULL DEFAULT '[]'::jsonb,
  next_topics JSONB NOT NULL DEFAULT '[]'::jsonb,
  content_refs JSONB NOT NULL DEFAULT '[]'::jsonb,
  keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
  objectives JSONB NOT NULL DEFAULT '[]'::jsonb,
  estimated_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
  run_id TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_kg_topics_subject ON kg_topics (subject);

CREATE TABLE IF NOT EXISTS kg_edges (
  from_code TEXT NOT NULL,
  to_code TEXT NOT NULL,
  kind TEXT NOT NULL,
  PRIMARY KEY (from_code, to_code)
);
CREATE INDEX IF NOT EXISTS idx_kg_edges_to_code ON kg_edges (to_code);
`)
	})
	return p.schemaErr
}

func (p *Postgres) Write(ctx context.Context, b Batch) error {
	if err := p.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	nodes := NormalizeForUpsert(b.Nodes, time.Now().UTC())
	out := outgoing(b.Edges)

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	written := map[string]string{}
	for _, n := range nodes {
		fp, err := Fingerprint(n, out[n.Code])
		if err != nil {
			return err
		}
		if prev, ok := p.seen.Get(n.Code); ok && prev == fp {
			continue
		}
		if err := upsertTopic(ctx, tx, b.RunID, n); err != nil {
			return fmt.Errorf("upsert %s: %w", n.Code, err)
		}
		if err := replaceEdges(ctx, tx, n.Code, out[n.Code]); err != nil {
			return fmt.Errorf("edges %s: %w", n.Code, err)
		}
		written[n.Code] = fp
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	for code, fp := range written {
		p.seen.Add(code, fp)
	}
	return nil
}

func upsertTopic(ctx context.Context, tx *sql.Tx, runID string, n kg.TopicNode) error {
	lists := make([]string, 0, 5)
	for _, l := range [][]string{n.Prerequisites, n.NextTopics, n.ContentRefs, n.Keywords, n.Objectives} {
		raw, err := json.Marshal(l)
		if err != nil {
			return err
		}
		lists = append(lists, string(raw))
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO kg_topics (
  code, subject, title, description, difficulty_level,
  prerequisites, next_topics, content_refs, keywords, objectives,
  estimated_hours, run_id, created_at
)
VALUES ($1,$2,$3,$4,$5,$6::jsonb,$7::jsonb,$8::jsonb,$9::jsonb,$10::jsonb,$11,$12,$13)
ON CONFLICT (code)
DO UPDATE SET subject=EXCLUDED.subject,
  title=EXCLUDED.title,
  description=EXCLUDED.description,
  difficulty_level=EXCLUDED.difficulty_level,
  prerequisites=EXCLUDED.prerequisites,
  next_topics=EXCLUDED.next_topics,
  content_refs=EXCLUDED.content_refs,
  keywords=EXCLUDED.keywords,
  objectives=EXCLUDED.objectives,
  estimated_hours=EXCLUDED.estimated_hours,
  run_id=EXCLUDED.run_id`,
		n.Code, n.Subject, n.Title, n.Description, string(n.DifficultyLevel),
		lists[0], lists[1], lists[2], lists[3], lists[4],
		n.EstimatedHours, runID, n.CreatedAt)
	return err
}

func replaceEdges(ctx context.Context, tx *sql.Tx, code string, edges []graph.Edge) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM kg_edges WHERE from_code = $1`, code); err != nil {
		return err
	}
	for _, e := range edges {
		_, err := tx.ExecContext(ctx, `
INSERT INTO kg_edges (from_code, to_code, kind) VALUES ($1,$2,$3)
ON CONFLICT (from_code, to_code) DO UPDATE SET kind=EXCLUDED.kind`,
			e.From, e.To, string(e.Kind))
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadNodes reads every stored topic back, ordered by code.
func (p *Postgres) LoadNodes(ctx context.Context) ([]kg.TopicNode, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	rows, err := p.db.QueryContext(ctx, `SELECT code, subject, title, description, difficulty_level,
  prerequisites, next_topics, content_refs, keywords, objectives, estimated_hours, created_at
FROM kg_topics ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]kg.TopicNode, 0, 64)
	for rows.Next() {
		var (
			n          kg.TopicNode
			difficulty string
			lists      [5][]byte
			created    sql.NullTime
		)
		if err := rows.Scan(&n.Code, &n.Subject, &n.Title, &n.Description, &difficulty,
			&lists[0], &lists[1], &lists[2], &lists[3], &lists[4], &n.EstimatedHours, &created); err != nil {
			return nil, err
		}
		n.DifficultyLevel = kg.ParseDifficulty(difficulty, kg.DifficultyBase)
		targets := []*[]string{&n.Prerequisites, &n.NextTopics, &n.ContentRefs, &n.Keywords, &n.Objectives}
		for i, raw := range lists {
			if err := json.Unmarshal(raw, targets[i]); err != nil {
				return nil, fmt.Errorf("decode %s: %w", n.Code, err)
			}
		}
		if created.Valid {
			n.CreatedAt = created.Time.UTC()
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Fingerprint hashes the persisted fields of a node and its outgoing edges.
// created_at is excluded so a rebuilt but otherwise identical node is not
// rewritten.
func Fingerprint(n kg.TopicNode, edges []graph.Edge) (string, error) {
	n.CreatedAt = time.Time{}
	n.Status = ""
	n.LastError = ""
	raw, err := json.Marshal(struct {
		Node  kg.TopicNode `json:"node"`
		Edges []graph.Edge `json:"edges"`
	}{n, edges})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func outgoing(edges []graph.Edge) map[string][]graph.Edge {
	out := map[string][]graph.Edge{}
	for _, e := range edges {
		out[e.From] = append(out[e.From], e)
	}
	return out
}
