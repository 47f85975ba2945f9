package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVs_RedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"api_key", "sk-123", "topic", "Optics", "PG_DSN", "postgres://u:p@h/db", "dangling"})
	assert.Equal(t, []interface{}{"api_key", "[REDACTED]", "topic", "Optics", "PG_DSN", "[REDACTED]", "dangling"}, out)
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	assert.NotNil(t, l.SugaredLogger)
	l.Info("discarded", "k", "v")
}
