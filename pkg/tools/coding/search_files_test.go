package coding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchFilesFindsMatches(t *testing.T) {
	guard, root := newToolsGuard(t)
	writeTestFile(t, root, "a.go", "package a\n\nfunc Hello() {}\n")
	writeTestFile(t, root, "b/b.go", "package b\n\nfunc Hello() {}\nfunc Goodbye() {}\n")

	tool := NewSearchFilesTool(guard)
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"pattern": `func Hello`,
	})
	require.NoError(t, err)
	assert.Contains(t, result, "a.go:3: func Hello() {}")
	assert.Contains(t, result, "b/b.go:3: func Hello() {}")
	assert.NotContains(t, result, "Goodbye")
}

func TestSearchFilesGlobFilter(t *testing.T) {
	guard, root := newToolsGuard(t)
	writeTestFile(t, root, "a.go", "needle\n")
	writeTestFile(t, root, "a.txt", "needle\n")

	tool := NewSearchFilesTool(guard)
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"pattern":   "needle",
		"file_glob": "*.go",
	})
	require.NoError(t, err)
	assert.Contains(t, result, "a.go:1")
	assert.NotContains(t, result, "a.txt")
}

func TestSearchFilesNoMatches(t *testing.T) {
	guard, root := newToolsGuard(t)
	writeTestFile(t, root, "a.go", "package a\n")

	tool := NewSearchFilesTool(guard)
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"pattern": "absent",
	})
	require.NoError(t, err)
	assert.Contains(t, result, "No matches")
}

func TestSearchFilesInvalidPattern(t *testing.T) {
	guard, _ := newToolsGuard(t)

	tool := NewSearchFilesTool(guard)
	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"pattern": "[unclosed",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestSearchFilesSkipsBinary(t *testing.T) {
	guard, root := newToolsGuard(t)
	writeTestFile(t, root, "bin.dat", "needle\x00binary")
	writeTestFile(t, root, "text.txt", "needle\n")

	tool := NewSearchFilesTool(guard)
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"pattern": "needle",
	})
	require.NoError(t, err)
	assert.Contains(t, result, "text.txt:1")
	assert.NotContains(t, result, "bin.dat")
}

func TestSearchFilesSkipsIgnoredDirs(t *testing.T) {
	guard, root := newToolsGuard(t)
	writeTestFile(t, root, "src.go", "needle\n")
	writeTestFile(t, root, "node_modules/dep.js", "needle\n")

	tool := NewSearchFilesTool(guard)
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"pattern": "needle",
	})
	require.NoError(t, err)
	assert.Contains(t, result, "src.go:1")
	assert.NotContains(t, result, "node_modules")
}
