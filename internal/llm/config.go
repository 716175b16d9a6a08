package llm

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds connection settings for the OpenRouter-compatible model API.
type Config struct {
	// APIKey authenticates against the model API.
	APIKey string

	// BaseURL is the API base, default https://openrouter.ai/api/v1.
	BaseURL string

	// Timeout is the per-request HTTP timeout, default 60s.
	Timeout time.Duration

	// MaxRetries caps parse/validation retries per call, default 3.
	MaxRetries int
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("APIKey is required")
	}
	return nil
}

// SetDefaults fills optional fields.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// AgentConfig selects the model and sampling profile for one agent role.
type AgentConfig struct {
	Model           string  `yaml:"model"`
	Temperature     float64 `yaml:"temperature"`
	GenerationCount int     `yaml:"generation_count,omitempty"`
}

// CheckerConfig selects the availability-check mode.
type CheckerConfig struct {
	// Mode is "LOCAL" (direct RDAP lookups) or "MODEL" (web-search model).
	Mode string `yaml:"mode"`

	// SearchModel is the model used in MODEL mode.
	SearchModel string `yaml:"search_model"`

	// RequestTimeoutSeconds bounds each LOCAL-mode RDAP request.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

// AgentsConfig is the per-agent model/temperature table, loadable from YAML
// so models can be swapped without touching application logic.
type AgentsConfig struct {
	// Question asks the initial clarifying questions.
	Question AgentConfig `yaml:"question"`

	// Refinement asks the two follow-up questions after feedback.
	Refinement AgentConfig `yaml:"refinement"`

	// Creators are the name-generation profiles, keyed "A", "B", "C":
	// balanced, creative and conservative temperature settings.
	Creators map[string]AgentConfig `yaml:"creators"`

	// Checker selects the availability-check mode.
	Checker CheckerConfig `yaml:"checker"`
}

// DefaultAgents returns the stock agent table.
func DefaultAgents() AgentsConfig {
	return AgentsConfig{
		Question:   AgentConfig{Model: "google/gemini-2.5-flash", Temperature: 0.2},
		Refinement: AgentConfig{Model: "google/gemini-2.5-flash", Temperature: 0.4},
		Creators: map[string]AgentConfig{
			"A": {Model: "openai/gpt-4o", Temperature: 1.0, GenerationCount: 1},
			"B": {Model: "openai/gpt-4o", Temperature: 1.3, GenerationCount: 1},
			"C": {Model: "openai/gpt-4o", Temperature: 0.2, GenerationCount: 1},
		},
		Checker: CheckerConfig{
			Mode:                  "LOCAL",
			SearchModel:           "openai/o4-mini",
			RequestTimeoutSeconds: 10,
		},
	}
}

// LoadAgents reads an agent table from a YAML file, layered over the
// defaults. An empty path returns the defaults unchanged.
func LoadAgents(path string) (AgentsConfig, error) {
	cfg := DefaultAgents()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read agents config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse agents config: %w", err)
	}
	return cfg, nil
}
