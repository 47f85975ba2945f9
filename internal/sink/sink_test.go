package sink

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgbuilder/internal/graph"
	"kgbuilder/internal/types/kg"
)

type stubSink struct {
	name  string
	err   error
	calls int
}

func (s *stubSink) Name() string { return s.name }
func (s *stubSink) Close() error { return nil }
func (s *stubSink) Write(context.Context, Batch) error {
	s.calls++
	return s.err
}

func TestNormalizeForUpsert(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	in := []kg.TopicNode{
		{Code: "", Subject: "Physics", Title: "No code"},
		{Code: " PHY_OPTICS ", Subject: "Physics", Title: "Optics", DifficultyLevel: "weird", EstimatedHours: -2},
		{Code: "PHY_WAVES", DifficultyLevel: kg.DifficultyLevel2, CreatedAt: created, Keywords: []string{"wave"}},
	}
	out := NormalizeForUpsert(in, now)
	require.Len(t, out, 2)

	assert.Equal(t, "PHY_OPTICS", out[0].Code)
	assert.Equal(t, kg.DifficultyBase, out[0].DifficultyLevel)
	assert.Equal(t, now, out[0].CreatedAt)
	assert.Equal(t, 0.0, out[0].EstimatedHours)
	assert.Equal(t, []string{}, out[0].Prerequisites)
	assert.Equal(t, []string{}, out[0].NextTopics)
	assert.Equal(t, []string{}, out[0].Objectives)

	assert.Equal(t, kg.DifficultyLevel2, out[1].DifficultyLevel)
	assert.Equal(t, created, out[1].CreatedAt)

	out[1].Keywords[0] = "changed"
	assert.Equal(t, "wave", in[2].Keywords[0])
}

func TestFingerprint_IgnoresTimestamps(t *testing.T) {
	a := kg.TopicNode{Code: "PHY_OPTICS", Title: "Optics", CreatedAt: time.Now()}
	b := a
	b.CreatedAt = a.CreatedAt.Add(time.Hour)
	b.Status = kg.StatusEdgeWired
	edges := []graph.Edge{{From: "PHY_OPTICS", To: "PHY_LENSES", Kind: kg.EdgeLeadsTo}}

	fa, err := Fingerprint(a, edges)
	require.NoError(t, err)
	fb, err := Fingerprint(b, edges)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)

	b.Title = "Geometric Optics"
	fc, err := Fingerprint(b, edges)
	require.NoError(t, err)
	assert.NotEqual(t, fa, fc)

	fd, err := Fingerprint(a, nil)
	require.NoError(t, err)
	assert.NotEqual(t, fa, fd)
}

func TestJSONFile_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "kg_final.json")
	f := NewJSONFile(path)
	err := f.Write(context.Background(), Batch{RunID: "r1", Nodes: []kg.TopicNode{
		{Code: "PHY_OPTICS", Subject: "Physics", Title: "Optics", DifficultyLevel: kg.DifficultyBase},
		{Title: "dropped"},
	}})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "PHY_OPTICS", got[0]["code"])
	assert.Equal(t, []any{}, got[0]["next_topics"])

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	nodes, err := kg.LoadNodes(path)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Optics", nodes[0].Title)
}

func TestWriteAll_IsolatesFailures(t *testing.T) {
	ok := &stubSink{name: "ok"}
	bad := &stubSink{name: "bad", err: errors.New("connection refused")}
	err := WriteAll(context.Background(), []Sink{ok, bad}, Batch{RunID: "r"}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, bad.calls)

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad", pe.Sink)
	assert.ErrorContains(t, err, "connection refused")

	assert.NoError(t, WriteAll(context.Background(), []Sink{ok}, Batch{}, nil))
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "run-1/kg_final.json", ObjectKey("", "run-1", "kg_final.json"))
	assert.Equal(t, "kg/latest/kg_vis.html", ObjectKey("kg", "latest", "/kg_vis.html"))
	assert.Equal(t, "text/html; charset=utf-8", contentType("kg_vis.html"))
	assert.Equal(t, "application/json", contentType("kg_final.json"))
}

func TestNewS3_RequiresConfig(t *testing.T) {
	_, err := NewS3(S3Config{})
	assert.ErrorContains(t, err, "endpoint")
	_, err = NewS3(S3Config{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "access key")
	_, err = NewS3(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.ErrorContains(t, err, "bucket")
	s, err := NewS3(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "kg", Prefix: "/graphs/"})
	require.NoError(t, err)
	assert.Equal(t, "graphs", s.prefix)
}
