package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhq/quill/pkg/llm/parser"
)

type fakeTool struct {
	name      string
	sensitive bool
	result    string
	err       error
	gotInput  map[string]interface{}
}

func (t *fakeTool) Name() string        { return t.name }
func (t *fakeTool) Description() string { return "a fake tool" }
func (t *fakeTool) Sensitive() bool     { return t.sensitive }

func (t *fakeTool) Schema() map[string]interface{} {
	return BaseSchema(map[string]interface{}{
		"path": map[string]interface{}{"type": "string"},
	}, []string{"path"})
}

func (t *fakeTool) Execute(ctx context.Context, input map[string]interface{}) (string, error) {
	t.gotInput = input
	return t.result, t.err
}

func TestRegistryRegister(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(&fakeTool{name: "read_file"}))

	err := registry.Register(&fakeTool{name: "read_file"})
	assert.ErrorContains(t, err, "already registered")

	assert.Error(t, registry.Register(nil))
	assert.Error(t, registry.Register(&fakeTool{name: ""}))
}

func TestRegistryExecute(t *testing.T) {
	registry := NewRegistry()
	tool := &fakeTool{name: "read_file", result: "file contents"}
	require.NoError(t, registry.Register(tool))

	call := parser.ToolCall{
		ID:    "c1",
		Name:  "read_file",
		Input: map[string]interface{}{"path": "main.go"},
	}

	result, err := registry.Execute(context.Background(), call)
	require.NoError(t, err)
	assert.Equal(t, "file contents", result)
	assert.Equal(t, "main.go", tool.gotInput["path"])
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Execute(context.Background(), parser.ToolCall{ID: "c1", Name: "nope"})
	assert.ErrorContains(t, err, "unknown tool: nope")
}

func TestRegistryExecuteToolFailure(t *testing.T) {
	registry := NewRegistry()
	boom := errors.New("disk on fire")
	require.NoError(t, registry.Register(&fakeTool{name: "write_file", err: boom}))

	_, err := registry.Execute(context.Background(), parser.ToolCall{Name: "write_file"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "tool write_file failed")
}

func TestRegistrySensitive(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeTool{name: "read_file"}))
	require.NoError(t, registry.Register(&fakeTool{name: "execute_command", sensitive: true}))

	assert.False(t, registry.Sensitive("read_file"))
	assert.True(t, registry.Sensitive("execute_command"))
	assert.False(t, registry.Sensitive("unknown"))
}

func TestRegistryListSorted(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"write_file", "list_files", "read_file"} {
		require.NoError(t, registry.Register(&fakeTool{name: name}))
	}

	var names []string
	for _, tool := range registry.List() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"list_files", "read_file", "write_file"}, names)
}

func TestArgHelpers(t *testing.T) {
	input := map[string]interface{}{
		"path":    "a.go",
		"line":    float64(42),
		"count":   7,
		"verbose": true,
	}

	path, ok := StringArg(input, "path")
	assert.True(t, ok)
	assert.Equal(t, "a.go", path)

	_, ok = StringArg(input, "missing")
	assert.False(t, ok)

	line, ok := IntArg(input, "line")
	assert.True(t, ok)
	assert.Equal(t, 42, line)

	count, ok := IntArg(input, "count")
	assert.True(t, ok)
	assert.Equal(t, 7, count)

	_, ok = IntArg(input, "path")
	assert.False(t, ok)

	verbose, ok := BoolArg(input, "verbose")
	assert.True(t, ok)
	assert.True(t, verbose)
}

func TestBaseSchema(t *testing.T) {
	schema := BaseSchema(map[string]interface{}{
		"path": map[string]interface{}{"type": "string"},
	}, []string{"path"})

	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema, "properties")
	assert.Equal(t, []string{"path"}, schema["required"])

	noRequired := BaseSchema(map[string]interface{}{}, nil)
	assert.NotContains(t, noRequired, "required")
}
