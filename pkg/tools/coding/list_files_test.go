package coding

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFilesFlat(t *testing.T) {
	guard, root := newToolsGuard(t)
	writeTestFile(t, root, "main.go", "")
	writeTestFile(t, root, "pkg/util.go", "")

	tool := NewListFilesTool(guard)
	result, err := tool.Execute(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "main.go\npkg/", result)
}

func TestListFilesRecursive(t *testing.T) {
	guard, root := newToolsGuard(t)
	writeTestFile(t, root, "main.go", "")
	writeTestFile(t, root, "pkg/util.go", "")
	writeTestFile(t, root, "pkg/sub/deep.go", "")

	tool := NewListFilesTool(guard)
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"recursive": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "main.go\npkg/\npkg/sub/\npkg/sub/deep.go\npkg/util.go", result)
}

func TestListFilesSkipsIgnored(t *testing.T) {
	guard, root := newToolsGuard(t)
	writeTestFile(t, root, "main.go", "")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "dep"), 0o755))
	writeTestFile(t, root, "node_modules/dep/index.js", "")

	tool := NewListFilesTool(guard)
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"recursive": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "main.go", result)
}

func TestListFilesEmptyDirectory(t *testing.T) {
	guard, _ := newToolsGuard(t)

	tool := NewListFilesTool(guard)
	result, err := tool.Execute(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	assert.Contains(t, result, "is empty")
}

func TestListFilesRejectsFilePath(t *testing.T) {
	guard, root := newToolsGuard(t)
	writeTestFile(t, root, "main.go", "")

	tool := NewListFilesTool(guard)
	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"path": "main.go",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}
