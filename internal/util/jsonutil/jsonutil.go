package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrEmpty is returned when there is no JSON payload left after cleanup.
var ErrEmpty = errors.New("jsonutil: empty payload")

// MarshalNoEscapeIndent encodes v as indented JSON without escaping <, >
// and & into \u003c and friends.
func MarshalNoEscapeIndent(v any, prefix, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// StripFences removes a surrounding markdown code fence (``` or ```json)
// that chat models like to wrap JSON in.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[3:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ErrNotDocument is returned when the payload is a bare scalar rather than
// an object or array.
var ErrNotDocument = errors.New("jsonutil: payload is not an object or array")

// Clean returns a syntactically valid JSON object or array for content.
// Fences are stripped first; if the rest still does not parse, jsonrepair
// gets one attempt at fixing it (single quotes, trailing commas, unquoted keys).
func Clean(content string) (json.RawMessage, error) {
	txt := StripFences(content)
	if txt == "" {
		return nil, ErrEmpty
	}
	if txt[0] != '{' && txt[0] != '[' {
		return nil, ErrNotDocument
	}
	if json.Valid([]byte(txt)) {
		return json.RawMessage(txt), nil
	}
	repaired, err := jsonrepair.JSONRepair(txt)
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(repaired)) {
		return nil, errors.New("jsonutil: repaired payload is still invalid")
	}
	return json.RawMessage(repaired), nil
}
