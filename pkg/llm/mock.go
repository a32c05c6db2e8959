package llm

import (
	"context"
	"fmt"

	"github.com/quillhq/quill/pkg/types"
)

// MockProvider is a scripted Provider for tests. Each call to
// StreamCompletion or Complete consumes the next entry from Responses; when
// the script is exhausted, calls fail. Err, if set, fails every call
// before any chunk is produced.
type MockProvider struct {
	// Responses are returned in order, one per completion call.
	Responses []string

	// ChunkSize splits each response into deltas of this many bytes when
	// streaming. Zero means the whole response arrives as a single chunk.
	ChunkSize int

	// Err, when non-nil, is returned by every call.
	Err error

	// Requests records the message sequences this provider was called with.
	Requests [][]*types.Message

	calls int
}

// StreamCompletion replays the next scripted response as a chunk stream.
func (m *MockProvider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.Requests = append(m.Requests, messages)
	if m.calls >= len(m.Responses) {
		return nil, fmt.Errorf("mock provider: no scripted response for call %d", m.calls+1)
	}
	response := m.Responses[m.calls]
	m.calls++

	chunks := make(chan *StreamChunk, 4)
	go func() {
		defer close(chunks)

		size := m.ChunkSize
		if size <= 0 {
			size = len(response)
		}

		first := true
		for start := 0; start < len(response); start += size {
			end := start + size
			if end > len(response) {
				end = len(response)
			}
			chunk := &StreamChunk{Content: response[start:end]}
			if first {
				chunk.Role = string(types.RoleAssistant)
				first = false
			}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				chunks <- &StreamChunk{Error: ctx.Err()}
				return
			}
		}
		chunks <- &StreamChunk{Finished: true}
	}()
	return chunks, nil
}

// Complete replays the next scripted response as a single message.
func (m *MockProvider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	stream, err := m.StreamCompletion(ctx, messages)
	if err != nil {
		return nil, err
	}
	var content string
	for chunk := range stream {
		if chunk.IsError() {
			return nil, chunk.Error
		}
		content += chunk.Content
	}
	return types.NewAssistantMessage(content), nil
}

// GetModelInfo returns static metadata for the mock.
func (m *MockProvider) GetModelInfo() *types.ModelInfo {
	return &types.ModelInfo{
		Provider:          "mock",
		Name:              "mock-model",
		MaxTokens:         8192,
		SupportsStreaming: true,
	}
}

// GetModel returns the mock model name.
func (m *MockProvider) GetModel() string {
	return "mock-model"
}

// Calls returns how many completion calls the mock has served.
func (m *MockProvider) Calls() int {
	return m.calls
}
