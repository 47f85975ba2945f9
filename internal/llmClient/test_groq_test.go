package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groqServer(t *testing.T, status int, content string, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req groqChatReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "json_object", req.ResponseFormat["type"])
		assert.InDelta(t, 0.2, req.Temperature, 1e-6)
		w.Header().Set("x-ratelimit-remaining-requests", "9")
		w.WriteHeader(status)
		if body != "" {
			_, _ = w.Write([]byte(body))
			return
		}
		env := map[string]any{"choices": []any{map[string]any{"message": map[string]any{"content": content}}}}
		_ = json.NewEncoder(w).Encode(env)
	}))
}

func TestGroqGenerateJSONStripsFences(t *testing.T) {
	srv := groqServer(t, http.StatusOK, "```json\n{\"subtopics\":[\"A\"]}\n```", "")
	defer srv.Close()

	g, err := NewGroqClient("k", "m", WithBaseURL(srv.URL))
	require.NoError(t, err)
	raw, err := g.GenerateJSON(context.Background(), "p", map[string]string{"title": "X"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"subtopics":["A"]}`, string(raw))

	h, ok := g.LastRateLimitHeaders()
	require.True(t, ok)
	assert.Equal(t, 9, h.RemainingRequests)
}

func TestGroqServerErrorIsTransient(t *testing.T) {
	srv := groqServer(t, http.StatusInternalServerError, "", `{"error":"boom"}`)
	defer srv.Close()

	g, _ := NewGroqClient("k", "m", WithBaseURL(srv.URL))
	_, err := g.GenerateJSON(context.Background(), "p", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransient))
	assert.False(t, IsPermanent(err))
}

func TestGroqUnauthorizedIsPermanent(t *testing.T) {
	srv := groqServer(t, http.StatusUnauthorized, "", `{"error":"bad key"}`)
	defer srv.Close()

	g, _ := NewGroqClient("k", "m", WithBaseURL(srv.URL))
	_, err := g.GenerateJSON(context.Background(), "p", nil)
	assert.True(t, IsPermanent(err))
}

func TestGroqGarbageContentIsInvalidJSON(t *testing.T) {
	srv := groqServer(t, http.StatusOK, "I cannot help with that.", "")
	defer srv.Close()

	g, _ := NewGroqClient("k", "m", WithBaseURL(srv.URL))
	_, err := g.GenerateJSON(context.Background(), "p", nil)
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestFakeClientDeterministic(t *testing.T) {
	f := NewFakeClient()
	in := map[string]string{"title": "Optics", "difficulty_level": "level2"}
	a, err := f.GenerateJSON(context.Background(), "p", in)
	require.NoError(t, err)
	b, err := f.GenerateJSON(context.Background(), "p", in)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
	assert.Equal(t, 2, f.Calls())
}
