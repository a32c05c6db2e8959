// Package config loads quill's configuration from a YAML file. The file
// lives at ~/.quill/config.yaml by default; a missing file yields the
// defaults, so a bare environment still works with just an API key.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/quillhq/quill/pkg/agent/quota"
)

// DefaultFileName is the config file location under the user's home.
const DefaultFileName = ".quill/config.yaml"

// LLMConfig selects and configures the model provider.
type LLMConfig struct {
	// Provider is "openai" or "cerebras".
	Provider string `yaml:"provider"`

	// Model overrides the provider's default model.
	Model string `yaml:"model"`

	// BaseURL overrides the provider endpoint, for OpenAI-compatible
	// services.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates with the provider. Empty falls back to the
	// provider's environment variable.
	APIKey string `yaml:"api_key"`
}

// AgentConfig tunes the conversation loop.
type AgentConfig struct {
	// MaxIterations bounds model calls per user prompt. Zero keeps the
	// built-in default.
	MaxIterations int `yaml:"max_iterations"`

	// SystemPrompt overrides the built-in system prompt when set.
	SystemPrompt string `yaml:"system_prompt"`

	// OutputReservation is the token allowance reserved for model output
	// during quota admission. Zero keeps the built-in default.
	OutputReservation int `yaml:"output_reservation"`
}

// Config is the full quill configuration.
type Config struct {
	LLM          LLMConfig         `yaml:"llm"`
	Quota        quota.ModelLimits `yaml:"quota"`
	AutoApproval map[string]bool   `yaml:"auto_approval"`
	Agent        AgentConfig       `yaml:"agent"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
		},
		AutoApproval: map[string]bool{},
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, DefaultFileName), nil
}

// Load reads the config file at path. A missing file is not an error; the
// defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if cfg.AutoApproval == nil {
		cfg.AutoApproval = map[string]bool{}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories as needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case "", "openai", "cerebras":
	default:
		return fmt.Errorf("unknown provider %q (expected openai or cerebras)", c.LLM.Provider)
	}

	if c.Agent.MaxIterations < 0 {
		return fmt.Errorf("agent.max_iterations cannot be negative")
	}
	if c.Agent.OutputReservation < 0 {
		return fmt.Errorf("agent.output_reservation cannot be negative")
	}
	if c.Quota.MaxContextTokens < 0 {
		return fmt.Errorf("quota.max_context_tokens cannot be negative")
	}
	return nil
}
