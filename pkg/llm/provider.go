// Package llm provides the provider abstraction for LLM integrations.
//
// Providers handle API communication with LLM services and return simple
// StreamChunk instances. This design keeps providers focused on transport
// concerns without coupling them to the agent loop or its orchestration.
//
// The agent layer is responsible for quota admission, parsing the model's
// tool-call protocol, and managing conversation state. This separation
// allows providers to be swapped at runtime (provider/model switch) without
// the conversation history noticing.
package llm

import (
	"context"

	"github.com/quillhq/quill/pkg/types"
)

// StreamChunk is one increment of a streaming completion.
type StreamChunk struct {
	// Role is set on the first chunk of a response (e.g., "assistant").
	Role string

	// Content is the text delta carried by this chunk.
	Content string

	// Finished is true on the terminal chunk of a successful stream.
	Finished bool

	// Error is set when the stream failed; no further chunks follow.
	Error error
}

// IsError reports whether this chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c.Error != nil
}

// ModelCloner is an optional interface that providers can implement to
// support lightweight per-call model overrides without constructing a full
// second provider. The returned provider shares credentials and transport
// with the original but directs calls to the given model.
type ModelCloner interface {
	CloneWithModel(model string) Provider
}

// Provider defines the interface for LLM integrations.
type Provider interface {
	// StreamCompletion sends messages to the LLM and streams back response
	// chunks.
	//
	// The returned channel emits StreamChunk instances:
	//   - First chunk typically has Role set (e.g., "assistant")
	//   - Subsequent chunks contain Content deltas
	//   - Final chunk has Finished=true
	//   - Error chunks have Error set
	//
	// The channel is closed when streaming completes or an error occurs.
	// Callers should continue reading until the channel is closed.
	//
	// Returns an error only if streaming cannot be initiated (e.g., invalid
	// configuration, network unavailable). Stream-time errors are sent as
	// StreamChunk instances with Error set.
	StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error)

	// Complete sends messages to the LLM and returns the full response.
	//
	// This is a convenience wrapper around StreamCompletion for
	// non-streaming use cases. It accumulates all chunks and returns the
	// complete message.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModelInfo returns information about the LLM model being used.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name being used.
	GetModel() string
}
