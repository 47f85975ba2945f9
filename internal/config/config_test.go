package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "fake")
	c, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "fake", c.LLM.Provider)
	assert.Equal(t, 500, c.Build.MaxNodes)
	assert.Equal(t, 2, c.Build.RecursiveDepth)
	assert.Equal(t, 1200*time.Millisecond, c.Build.PaceDelay)
	assert.Equal(t, 10000, c.Build.MaxCycles)
	assert.Equal(t, 2*time.Second, c.Build.RetryBaseDelay)
	assert.Equal(t, "kg_final.json", c.Files.OutFile)
	assert.Equal(t, "kg:expansions", c.Redis.Key)
	assert.False(t, c.S3.Enabled())
}

func TestLoad_EnvThenFlags(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("GROQ_API_KEY", "k")
	t.Setenv("GROQ_MODEL", "llama-3.3-70b-versatile")
	t.Setenv("KG_MAX_NODES", "40")
	t.Setenv("KG_PACE_DELAY", "0.5")
	t.Setenv("KG_RUN_TIMEOUT", "10m")
	t.Setenv("KG_S3_ENDPOINT", "minio:9000")
	t.Setenv("KG_S3_BUCKET", "kg")
	t.Setenv("KG_S3_USE_SSL", "false")

	c, err := Load([]string{"-max-nodes", "7", "-resume"})
	require.NoError(t, err)
	assert.Equal(t, "k", c.LLM.APIKey)
	assert.Equal(t, "llama-3.3-70b-versatile", c.LLM.Model)
	assert.Equal(t, 7, c.Build.MaxNodes)
	assert.Equal(t, 500*time.Millisecond, c.Build.PaceDelay)
	assert.Equal(t, 10*time.Minute, c.Build.RunTimeout)
	assert.True(t, c.Files.Resume)
	assert.True(t, c.S3.Enabled())
	assert.False(t, c.S3.UseSSL)
}

func TestLoad_Validation(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("GROQ_API_KEY", "")
	_, err := Load(nil)
	assert.ErrorContains(t, err, "api key")

	t.Setenv("LLM_PROVIDER", "fake")
	_, err = Load([]string{"-max-nodes", "0"})
	assert.ErrorContains(t, err, "max nodes")

	_, err = Load([]string{"-provider", "openai"})
	assert.ErrorContains(t, err, "unknown provider")

	_, err = Load([]string{"-no-such-flag"})
	assert.Error(t, err)
}

func TestLoad_ProviderFlagSwitchesCredentials(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	c, err := Load([]string{"-provider", "gemini"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-key", c.LLM.APIKey)
	assert.Equal(t, "gemini-2.5-pro", c.LLM.Model)
}
