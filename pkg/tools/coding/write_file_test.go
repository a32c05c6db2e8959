package coding

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesFileAndParents(t *testing.T) {
	guard, root := newToolsGuard(t)

	tool := NewWriteFileTool(guard)
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":    "a/b/new.txt",
		"content": "hello\nworld\n",
	})
	require.NoError(t, err)
	assert.Contains(t, result, "a/b/new.txt")

	data, err := os.ReadFile(filepath.Join(root, "a", "b", "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", string(data))
}

func TestWriteFileOverwrites(t *testing.T) {
	guard, root := newToolsGuard(t)
	writeTestFile(t, root, "f.txt", "old content")

	tool := NewWriteFileTool(guard)
	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":    "f.txt",
		"content": "new content",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new content", string(data))
}

func TestWriteFileRejectsEscape(t *testing.T) {
	guard, _ := newToolsGuard(t)

	tool := NewWriteFileTool(guard)
	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":    "/tmp/escape.txt",
		"content": "nope",
	})
	require.Error(t, err)
}

func TestWriteFileIsSensitive(t *testing.T) {
	guard, _ := newToolsGuard(t)
	assert.True(t, NewWriteFileTool(guard).Sensitive())
	assert.False(t, NewReadFileTool(guard).Sensitive())
}
