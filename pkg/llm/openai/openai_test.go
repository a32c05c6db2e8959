package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhq/quill/pkg/types"
)

func sseServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
		}
	}))
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewProvider("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNewProviderDefaults(t *testing.T) {
	provider, err := NewProvider("test-key")
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", provider.GetModel())
	assert.Equal(t, DefaultBaseURL, provider.GetBaseURL())

	info := provider.GetModelInfo()
	assert.Equal(t, "openai", info.Provider)
	assert.Equal(t, DefaultMaxContextTokens, info.MaxTokens)
	assert.True(t, info.SupportsStreaming)
}

func TestWithMaxContextTokens(t *testing.T) {
	provider, err := NewProvider("test-key", WithMaxContextTokens(200000))
	require.NoError(t, err)
	assert.Equal(t, 200000, provider.GetModelInfo().MaxTokens)
}

func TestStreamCompletionAccumulatesDeltas(t *testing.T) {
	server := sseServer(t, []string{
		`data: {"choices":[{"delta":{"role":"assistant","content":"Hel"}}]}`,
		`: keep-alive comment`,
		`data: {"choices":[{"delta":{"content":"lo!"}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	})
	defer server.Close()

	provider, err := NewProvider("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	stream, err := provider.StreamCompletion(context.Background(), []*types.Message{
		types.NewUserMessage("hi"),
	})
	require.NoError(t, err)

	var content string
	var role string
	finished := false
	for chunk := range stream {
		require.NoError(t, chunk.Error)
		if chunk.Role != "" {
			role = chunk.Role
		}
		content += chunk.Content
		if chunk.Finished {
			finished = true
		}
	}

	assert.Equal(t, "Hello!", content)
	assert.Equal(t, "assistant", role)
	assert.True(t, finished)
}

func TestCompleteReturnsFullMessage(t *testing.T) {
	server := sseServer(t, []string{
		`data: {"choices":[{"delta":{"role":"assistant","content":"All "}}]}`,
		`data: {"choices":[{"delta":{"content":"done."}}]}`,
		`data: [DONE]`,
	})
	defer server.Close()

	provider, err := NewProvider("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	msg, err := provider.Complete(context.Background(), []*types.Message{
		types.NewUserMessage("hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, types.RoleAssistant, msg.Role)
	assert.Equal(t, "All done.", msg.Content)
}

func TestStreamCompletionSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider, err := NewProvider("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = provider.StreamCompletion(context.Background(), []*types.Message{
		types.NewUserMessage("hi"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestCloneWithModel(t *testing.T) {
	provider, err := NewProvider("test-key", WithModel("gpt-4o"))
	require.NoError(t, err)

	clone := provider.CloneWithModel("gpt-4o-mini")
	assert.Equal(t, "gpt-4o-mini", clone.GetModel())
	assert.Equal(t, "gpt-4o-mini", clone.GetModelInfo().Name)

	// Original is untouched.
	assert.Equal(t, "gpt-4o", provider.GetModel())
	assert.Equal(t, "gpt-4o", provider.GetModelInfo().Name)
}

func TestMalformedChunksAreSkipped(t *testing.T) {
	server := sseServer(t, []string{
		`data: not json at all`,
		`data: {"choices":[{"delta":{"role":"assistant","content":"ok"}}]}`,
		`data: [DONE]`,
	})
	defer server.Close()

	provider, err := NewProvider("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	msg, err := provider.Complete(context.Background(), []*types.Message{
		types.NewUserMessage("hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
}
