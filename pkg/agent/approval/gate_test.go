package approval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhq/quill/pkg/llm/parser"
)

func TestAutoGateAutoApproval(t *testing.T) {
	gate := NewAutoGate(map[string]bool{"write_file": true}, nil)

	approved, err := gate.Approve(context.Background(), parser.ToolCall{ID: "c1", Name: "write_file"})
	require.NoError(t, err)
	assert.True(t, approved)
}

func TestAutoGateRejectsWithoutPrompt(t *testing.T) {
	gate := NewAutoGate(nil, nil)

	approved, err := gate.Approve(context.Background(), parser.ToolCall{ID: "c1", Name: "execute_command"})
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestAutoGateDefersToPrompt(t *testing.T) {
	var prompted Request
	prompt := func(ctx context.Context, req Request) (bool, error) {
		prompted = req
		return true, nil
	}
	gate := NewAutoGate(map[string]bool{"read_file": true}, prompt)

	call := parser.ToolCall{ID: "c9", Name: "execute_command", Input: map[string]interface{}{"command": "rm x"}}
	approved, err := gate.Approve(context.Background(), call)
	require.NoError(t, err)
	assert.True(t, approved)
	assert.Equal(t, "execute_command", prompted.Call.Name)
	assert.NotEmpty(t, prompted.ID)
}

func TestAutoGatePromptError(t *testing.T) {
	boom := errors.New("terminal gone")
	gate := NewAutoGate(nil, func(ctx context.Context, req Request) (bool, error) {
		return false, boom
	})

	_, err := gate.Approve(context.Background(), parser.ToolCall{Name: "write_file"})
	assert.ErrorIs(t, err, boom)
}
