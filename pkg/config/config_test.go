package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhq/quill/pkg/agent/quota"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.NotNil(t, cfg.AutoApproval)
	assert.Zero(t, cfg.Agent.MaxIterations)
}

func TestLoadFullConfig(t *testing.T) {
	content := `
llm:
  provider: cerebras
  model: llama-3.3-70b
  api_key: test-key
quota:
  max_context_tokens: 65536
  requests:
    minute: 10
    day: 500
  tokens:
    hour: 200000
auto_approval:
  execute_command: true
agent:
  max_iterations: 12
  output_reservation: 2048
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "cerebras", cfg.LLM.Provider)
	assert.Equal(t, "llama-3.3-70b", cfg.LLM.Model)
	assert.Equal(t, "test-key", cfg.LLM.APIKey)

	assert.Equal(t, 65536, cfg.Quota.MaxContextTokens)
	assert.Equal(t, quota.Limits{Minute: 10, Day: 500}, cfg.Quota.Requests)
	assert.Equal(t, quota.Limits{Hour: 200000}, cfg.Quota.Tokens)

	assert.True(t, cfg.AutoApproval["execute_command"])
	assert.Equal(t, 12, cfg.Agent.MaxIterations)
	assert.Equal(t, 2048, cfg.Agent.OutputReservation)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [not a map"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: bedrock\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestLoadRejectsNegativeLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  max_iterations: -1\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "config.yaml")

	original := Default()
	original.LLM.Model = "gpt-4o-mini"
	original.Quota.Requests.Minute = 5
	original.AutoApproval["write_file"] = true
	require.NoError(t, original.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}
