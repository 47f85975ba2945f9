package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// Responder produces a raw reply for a call. Returning an error simulates a
// provider failure.
type Responder func(ctx context.Context, call int, prompt string, input map[string]any) (json.RawMessage, error)

// FakeClient returns deterministic expansions derived from the input title.
// It never touches the network and is used by tests and -provider=fake runs.
type FakeClient struct {
	Respond Responder
	calls   atomic.Int64
}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "Fake" }
func (f *FakeClient) Close() error { return nil }

// Calls reports how many times GenerateJSON has been invoked.
func (f *FakeClient) Calls() int { return int(f.calls.Load()) }

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	n := int(f.calls.Add(1))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in := map[string]any{}
	if input != nil {
		b, err := json.Marshal(input)
		if err != nil {
			return nil, NewPermanentError(err)
		}
		_ = json.Unmarshal(b, &in)
	}
	if f.Respond != nil {
		return f.Respond(ctx, n, prompt, in)
	}
	title, _ := in["title"].(string)
	level, _ := in["difficulty_level"].(string)
	if level == "" {
		level = "base"
	}
	out := map[string]any{
		"subtopics": []string{
			title + " Fundamentals",
			title + " Applications",
			title + " Problem Solving",
			title + " Review",
		},
		"prerequisites": []string{
			"Foundations of " + title,
			"Vocabulary of " + title,
		},
		"objectives": []string{
			fmt.Sprintf("Explain %s", title),
			fmt.Sprintf("Apply %s", title),
			fmt.Sprintf("Evaluate %s", title),
		},
		"keywords":         []string{"core", "concept", "practice", "model", "review"},
		"estimated_hours":  3,
		"difficulty_level": level,
	}
	return json.Marshal(out)
}
