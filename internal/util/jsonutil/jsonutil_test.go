package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, StripFences(`  {"a":1}  `))
}

func TestClean_RepairsCommonMistakes(t *testing.T) {
	raw, err := Clean("```json\n{'subtopics': ['Kinematics', 'Dynamics',],}\n```")
	require.NoError(t, err)

	var out struct {
		Subtopics []string `json:"subtopics"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, []string{"Kinematics", "Dynamics"}, out.Subtopics)
}

func TestClean_Empty(t *testing.T) {
	_, err := Clean("```json\n```")
	require.ErrorIs(t, err, ErrEmpty)
}

func TestMarshalNoEscapeIndent(t *testing.T) {
	b, err := MarshalNoEscapeIndent(map[string]string{"t": "a<b"}, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"t\": \"a<b\"\n}", string(b))
}

func TestClean_RejectsProse(t *testing.T) {
	_, err := Clean("Sure! Here are the subtopics you asked for.")
	require.ErrorIs(t, err, ErrNotDocument)
}
