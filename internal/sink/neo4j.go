package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"kgbuilder/internal/platform/logger"
	"kgbuilder/internal/types/kg"
)

type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// Neo4j mirrors the graph as (:Topic) nodes joined by LEADS_TO and
// PREREQUISITE_FOR relationships.
type Neo4j struct {
	driver   neo4j.DriverWithContext
	database string
	log      *logger.Logger
}

func NewNeo4j(ctx context.Context, cfg Neo4jConfig, log *logger.Logger) (*Neo4j, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, fmt.Errorf("neo4j uri is required")
	}
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("init neo4j driver: %w", err)
	}
	vctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	n := &Neo4j{driver: driver, database: strings.TrimSpace(cfg.Database), log: logger.OrNop(log)}
	n.ensureConstraints(ctx)
	return n, nil
}

func (n *Neo4j) Name() string { return "neo4j" }

func (n *Neo4j) Close() error {
	if n == nil || n.driver == nil {
		return nil
	}
	return n.driver.Close(context.Background())
}

// ensureConstraints is best effort; older servers reject IF NOT EXISTS.
func (n *Neo4j) ensureConstraints(ctx context.Context) {
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: n.database})
	defer session.Close(ctx)
	res, err := session.Run(ctx, `CREATE CONSTRAINT kg_topic_code IF NOT EXISTS FOR (t:Topic) REQUIRE t.code IS UNIQUE`, nil)
	if err == nil {
		_, err = res.Consume(ctx)
	}
	if err != nil {
		n.log.Warn("neo4j constraint not created", "error", err)
	}
}

func (n *Neo4j) Write(ctx context.Context, b Batch) error {
	nodes := NormalizeForUpsert(b.Nodes, time.Now().UTC())
	topics := make([]map[string]any, 0, len(nodes))
	codes := make([]string, 0, len(nodes))
	for _, t := range nodes {
		codes = append(codes, t.Code)
		topics = append(topics, topicProps(b.RunID, t))
	}
	rels := map[kg.EdgeKind][]map[string]any{}
	for _, e := range b.Edges {
		rels[e.Kind] = append(rels[e.Kind], map[string]any{"from": e.From, "to": e.To})
	}

	session := n.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: n.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
UNWIND $topics AS t
MERGE (n:Topic {code: t.code})
SET n += t`, map[string]any{"topics": topics})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		res, err = tx.Run(ctx, `
MATCH (n:Topic)-[r:LEADS_TO|PREREQUISITE_FOR]->()
WHERE n.code IN $codes
DELETE r`, map[string]any{"codes": codes})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		for kind, list := range rels {
			res, err := tx.Run(ctx, fmt.Sprintf(`
UNWIND $rels AS r
MATCH (a:Topic {code: r.from}), (b:Topic {code: r.to})
MERGE (a)-[:%s]->(b)`, relType(kind)), map[string]any{"rels": list})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func topicProps(runID string, t kg.TopicNode) map[string]any {
	return map[string]any{
		"code":             t.Code,
		"subject":          t.Subject,
		"title":            t.Title,
		"description":      t.Description,
		"difficulty_level": string(t.DifficultyLevel),
		"prerequisites":    t.Prerequisites,
		"next_topics":      t.NextTopics,
		"keywords":         t.Keywords,
		"objectives":       t.Objectives,
		"estimated_hours":  t.EstimatedHours,
		"run_id":           runID,
		"created_at":       t.CreatedAt,
	}
}

// relType maps an edge kind onto a relationship label. Labels cannot be
// query parameters, so only known kinds are accepted.
func relType(k kg.EdgeKind) string {
	switch k {
	case kg.EdgePrerequisiteFor:
		return "PREREQUISITE_FOR"
	default:
		return "LEADS_TO"
	}
}
