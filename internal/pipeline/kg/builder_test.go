package kg

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgbuilder/internal/cache/expansion"
	llmclient "kgbuilder/internal/llmClient"
	"kgbuilder/internal/oracle"
	kgt "kgbuilder/internal/types/kg"
)

func newBuilder(tb testing.TB, fake llmclient.LLMClient, cache *expansion.Cache, cfg Config) *Builder {
	tb.Helper()
	o := oracle.New(fake, cache, oracle.Config{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}, nil)
	return NewBuilder(o, cfg, nil)
}

func mechanicsSeed() []kgt.Seed {
	return []kgt.Seed{{Subject: "Physics", Title: "Mechanics", DifficultyLevel: "base"}}
}

func byCode(nodes []kgt.TopicNode) map[string]kgt.TopicNode {
	m := make(map[string]kgt.TopicNode, len(nodes))
	for _, n := range nodes {
		m[n.Code] = n
	}
	return m
}

// assertConsistent checks the finalized lists against the graph.
func assertConsistent(tb *testing.T, res *Result) {
	tb.Helper()
	for _, n := range res.Nodes {
		assert.Equal(tb, kgt.SortedUnion(res.Graph.OutOfKind(n.Code, kgt.EdgeLeadsTo)), n.NextTopics, "next_topics of %s", n.Code)
		for _, p := range res.Graph.InOfKind(n.Code, kgt.EdgePrerequisiteFor) {
			assert.Contains(tb, n.Prerequisites, p, "prerequisites of %s", n.Code)
		}
		assert.True(tb, n.DifficultyLevel.Valid(), "difficulty of %s", n.Code)
	}
	assert.True(tb, res.Graph.IsAcyclic())
}

func TestBuild_SmallBudget(t *testing.T) {
	fake := llmclient.NewFakeClient()
	b := newBuilder(t, fake, nil, Config{MaxNodes: 3, RecursiveDepth: 1})

	res, err := b.Build(context.Background(), mechanicsSeed())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res.Nodes), 3)
	assert.Equal(t, "PHY_MECHANICS", res.Nodes[0].Code)
	assert.NotEmpty(t, res.Graph.OutOfKind("PHY_MECHANICS", kgt.EdgeLeadsTo))
	assert.Equal(t, 1, fake.Calls())
	assert.NotEmpty(t, res.RunID)
	assertConsistent(t, res)
}

func TestBuild_InvalidDifficultyFallsBack(t *testing.T) {
	fake := &llmclient.FakeClient{Respond: func(context.Context, int, string, map[string]any) (json.RawMessage, error) {
		return json.RawMessage(`{"subtopics":["Optics"],"prerequisites":["Waves"],"difficulty_level":"grade-11"}`), nil
	}}
	b := newBuilder(t, fake, nil, Config{MaxNodes: 10, RecursiveDepth: 1})
	seeds := []kgt.Seed{{Subject: "Physics", Title: "Light", DifficultyLevel: "level_2"}}

	res, err := b.Build(context.Background(), seeds)
	require.NoError(t, err)
	nodes := byCode(res.Nodes)
	assert.Equal(t, kgt.DifficultyLevel2, nodes["PHY_LIGHT"].DifficultyLevel)
	assert.Equal(t, kgt.DifficultyLevel2, nodes["PHY_OPTICS"].DifficultyLevel)
	assert.Equal(t, kgt.DifficultyLevel1, nodes["PHY_WAVES"].DifficultyLevel)
	assertConsistent(t, res)
}

func TestBuild_OneTopicFails(t *testing.T) {
	def := llmclient.NewFakeClient()
	fake := &llmclient.FakeClient{Respond: func(ctx context.Context, _ int, prompt string, in map[string]any) (json.RawMessage, error) {
		if in["title"] == "Mechanics Applications" {
			return nil, llmclient.ErrTransient
		}
		return def.GenerateJSON(ctx, prompt, in)
	}}
	b := newBuilder(t, fake, nil, Config{MaxNodes: 20, RecursiveDepth: 2})

	res, err := b.Build(context.Background(), mechanicsSeed())
	require.NoError(t, err)
	require.NotEmpty(t, res.Nodes)
	nodes := byCode(res.Nodes)

	failed := nodes["PHY_MECHANICS_APPLICATIONS"]
	assert.Equal(t, kgt.StatusFailed, failed.Status)
	assert.NotEmpty(t, failed.LastError)
	assert.Equal(t, "Subtopic of Mechanics", failed.Description)
	for _, code := range []string{"PHY_MECHANICS", "PHY_MECHANICS_FUNDAMENTALS", "PHY_MECHANICS_PROBLEM_SOLVING", "PHY_MECHANICS_REVIEW"} {
		assert.Equal(t, kgt.StatusEdgeWired, nodes[code].Status, code)
		assert.NotEmpty(t, nodes[code].Objectives, code)
	}
	assert.Equal(t, 1, res.Stats.Failed)
	assert.Equal(t, 1, res.Stats.OracleFailures)
	assert.Equal(t, res.Stats.CacheMisses, res.Stats.OracleCalls)
	assertConsistent(t, res)
}

func TestBuild_BudgetNeverExceeded(t *testing.T) {
	for _, max := range []int{1, 2, 5, 17, 40} {
		b := newBuilder(t, llmclient.NewFakeClient(), nil, Config{MaxNodes: max, RecursiveDepth: 3})
		seeds := append(mechanicsSeed(), kgt.Seed{Subject: "Chemistry", Title: "Acids"})
		res, err := b.Build(context.Background(), seeds)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(res.Nodes), max, "max_nodes=%d", max)
		assert.LessOrEqual(t, res.Graph.NodeCount(), max, "max_nodes=%d", max)
		assertConsistent(t, res)
	}
}

func TestBuild_AdversarialCyclesResolved(t *testing.T) {
	titles := []string{"A", "B", "C", "D"}
	fake := &llmclient.FakeClient{Respond: func(_ context.Context, _ int, _ string, in map[string]any) (json.RawMessage, error) {
		self, _ := in["title"].(string)
		var others []string
		for _, x := range titles {
			if x != self {
				others = append(others, x)
			}
		}
		return json.Marshal(map[string]any{"subtopics": others, "prerequisites": others, "difficulty_level": "level_4"})
	}}
	b := newBuilder(t, fake, nil, Config{MaxNodes: 10, RecursiveDepth: 4})

	res, err := b.Build(context.Background(), []kgt.Seed{{Subject: "Physics", Title: "A"}})
	require.NoError(t, err)
	assert.Nil(t, res.Residual)
	assert.NotEmpty(t, res.RemovedEdges)
	assert.Len(t, res.Nodes, 4)
	assertConsistent(t, res)
}

func TestBuild_WarmCacheMakesNoCalls(t *testing.T) {
	cache := expansion.New(nil)
	cfg := Config{MaxNodes: 15, RecursiveDepth: 2}

	first := llmclient.NewFakeClient()
	res1, err := newBuilder(t, first, cache, cfg).Build(context.Background(), mechanicsSeed())
	require.NoError(t, err)
	require.Positive(t, first.Calls())
	assert.Equal(t, first.Calls(), res1.Stats.OracleCalls)
	assert.Equal(t, first.Calls(), res1.Stats.CacheMisses)
	assert.Zero(t, res1.Stats.CacheHits)

	second := llmclient.NewFakeClient()
	res2, err := newBuilder(t, second, cache, cfg).Build(context.Background(), mechanicsSeed())
	require.NoError(t, err)
	assert.Zero(t, second.Calls())
	assert.Equal(t, first.Calls(), res2.Stats.CacheHits)
	assert.Zero(t, res2.Stats.CacheMisses)
	assert.Zero(t, res2.Stats.OracleCalls)

	strip := func(nodes []kgt.TopicNode) []kgt.TopicNode {
		out := make([]kgt.TopicNode, len(nodes))
		for i, n := range nodes {
			n.CreatedAt = time.Time{}
			out[i] = n
		}
		return out
	}
	assert.Equal(t, strip(res1.Nodes), strip(res2.Nodes))
}

func TestBuild_CanceledReturnsPartialGraph(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := newBuilder(t, llmclient.NewFakeClient(), nil, Config{MaxNodes: 10, RecursiveDepth: 2})

	res, err := b.Build(ctx, mechanicsSeed())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	require.Len(t, res.Nodes, 1)
	assert.Equal(t, kgt.StatusSeed, res.Nodes[0].Status)
}

func TestBuild_SeedListsAndExplicitCode(t *testing.T) {
	hours := 4.0
	seeds := []kgt.Seed{{
		Subject: "Biology", Title: "Cells", Code: "BIO_CUSTOM",
		Prerequisites: []string{"BIO_CHEMISTRY"}, EstimatedHours: &hours,
	}}
	res, err := newBuilder(t, llmclient.NewFakeClient(), nil, Config{MaxNodes: 5, RecursiveDepth: 0}).
		Build(context.Background(), seeds)
	require.NoError(t, err)
	require.Len(t, res.Nodes, 1)
	n := res.Nodes[0]
	assert.Equal(t, "BIO_CUSTOM", n.Code)
	assert.Equal(t, []string{"BIO_CHEMISTRY"}, n.Prerequisites)
	assert.Equal(t, 4.0, n.EstimatedHours)
	assert.Equal(t, []string{}, n.NextTopics)
}
