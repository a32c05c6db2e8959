// Package cerebras provides a Cerebras inference provider.
//
// Cerebras exposes an OpenAI-compatible chat completions API, so this
// package is a thin configuration layer over the openai provider: it
// pins the base URL, reads CEREBRAS_API_KEY, and defaults to a Cerebras
// hosted model.
package cerebras

import (
	"fmt"
	"os"

	"github.com/quillhq/quill/pkg/llm/openai"
)

const (
	// BaseURL is the Cerebras inference API endpoint.
	BaseURL = "https://api.cerebras.ai/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "llama-3.3-70b"
)

// NewProvider creates a provider for the Cerebras inference API.
//
// If apiKey is empty, it falls back to the CEREBRAS_API_KEY environment
// variable. Additional options are forwarded to the underlying
// OpenAI-compatible provider; a WithModel or WithMaxContextTokens option
// overrides the defaults set here.
func NewProvider(apiKey string, opts ...openai.ProviderOption) (*openai.Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("CEREBRAS_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Cerebras API key is required (provide via parameter or CEREBRAS_API_KEY environment variable)")
	}

	combined := append([]openai.ProviderOption{
		openai.WithBaseURL(BaseURL),
		openai.WithModel(DefaultModel),
	}, opts...)

	return openai.NewProvider(apiKey, combined...)
}
