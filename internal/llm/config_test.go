package llm

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_SetDefaults(t *testing.T) {
	c := &Config{APIKey: "k"}
	c.SetDefaults()
	assert.Equal(t, "https://openrouter.ai/api/v1", c.BaseURL)
	assert.Equal(t, 60*time.Second, c.Timeout)
	assert.Equal(t, 3, c.MaxRetries)

	// Explicit values are kept.
	c = &Config{APIKey: "k", BaseURL: "http://localhost:9999", MaxRetries: 5}
	c.SetDefaults()
	assert.Equal(t, "http://localhost:9999", c.BaseURL)
	assert.Equal(t, 5, c.MaxRetries)
}

func TestDefaultAgents(t *testing.T) {
	agents := DefaultAgents()
	assert.Len(t, agents.Creators, 3)
	assert.Equal(t, "LOCAL", agents.Checker.Mode)
	// B is the creative profile, C the conservative one.
	assert.Greater(t, agents.Creators["B"].Temperature, agents.Creators["A"].Temperature)
	assert.Less(t, agents.Creators["C"].Temperature, agents.Creators["A"].Temperature)
}

func TestLoadAgents_EmptyPath(t *testing.T) {
	agents, err := LoadAgents("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAgents(), agents)
}

func TestLoadAgents_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
question:
  model: anthropic/claude-sonnet-4
  temperature: 0.3
checker:
  mode: MODEL
`), 0o644))

	agents, err := LoadAgents(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-sonnet-4", agents.Question.Model)
	assert.Equal(t, "MODEL", agents.Checker.Mode)
	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultAgents().Refinement, agents.Refinement)
}

func TestLoadAgents_MissingFile(t *testing.T) {
	_, err := LoadAgents(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
