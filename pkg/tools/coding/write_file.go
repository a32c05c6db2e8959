package coding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/quillhq/quill/pkg/agent/tools"
	"github.com/quillhq/quill/pkg/security/workspace"
)

// WriteFileTool creates or overwrites a file with the given content.
type WriteFileTool struct {
	guard *workspace.Guard
}

// NewWriteFileTool creates a new WriteFileTool with workspace security.
func NewWriteFileTool(guard *workspace.Guard) *WriteFileTool {
	return &WriteFileTool{guard: guard}
}

// Name returns the tool name.
func (t *WriteFileTool) Name() string {
	return "write_file"
}

// Description returns the tool description.
func (t *WriteFileTool) Description() string {
	return "Write content to a file, creating it (and any parent directories) if it does not exist, or replacing its contents entirely if it does."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *WriteFileTool) Schema() map[string]interface{} {
	return tools.BaseSchema(
		map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to write (relative to workspace)",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Full content of the file",
			},
		},
		[]string{"path", "content"},
	)
}

// Sensitive reports that writes require approval.
func (t *WriteFileTool) Sensitive() bool {
	return true
}

// Execute writes the file.
func (t *WriteFileTool) Execute(ctx context.Context, input map[string]interface{}) (string, error) {
	path, ok := tools.StringArg(input, "path")
	if !ok || path == "" {
		return "", fmt.Errorf("missing required parameter: path")
	}
	content, ok := tools.StringArg(input, "content")
	if !ok {
		return "", fmt.Errorf("missing required parameter: content")
	}

	if err := t.guard.Validate(path); err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	absPath, err := t.guard.Resolve(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create parent directories: %w", err)
	}
	if err := os.WriteFile(absPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	lines := strings.Count(content, "\n") + 1
	if content == "" {
		lines = 0
	}
	return fmt.Sprintf("Wrote %d bytes (%d lines) to %s", len(content), lines, path), nil
}
