package coding

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/quillhq/quill/pkg/agent/tools"
	"github.com/quillhq/quill/pkg/security/workspace"
)

// EditFileTool applies a targeted search-and-replace edit to one file.
// This exists so the model can modify part of a large file without
// re-sending its entire content through write_file.
type EditFileTool struct {
	guard *workspace.Guard
}

// NewEditFileTool creates a new EditFileTool with workspace security.
func NewEditFileTool(guard *workspace.Guard) *EditFileTool {
	return &EditFileTool{guard: guard}
}

// Name returns the tool name.
func (t *EditFileTool) Name() string {
	return "edit_file"
}

// Description returns the tool description.
func (t *EditFileTool) Description() string {
	return "Replace an exact text fragment in a file. The old_text must appear exactly once unless replace_all is set; include enough surrounding context to make it unique."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *EditFileTool) Schema() map[string]interface{} {
	return tools.BaseSchema(
		map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to edit (relative to workspace)",
			},
			"old_text": map[string]interface{}{
				"type":        "string",
				"description": "Exact text to replace, including whitespace",
			},
			"new_text": map[string]interface{}{
				"type":        "string",
				"description": "Replacement text",
			},
			"replace_all": map[string]interface{}{
				"type":        "boolean",
				"description": "Replace every occurrence instead of requiring a unique match",
			},
		},
		[]string{"path", "old_text", "new_text"},
	)
}

// Sensitive reports that edits require approval.
func (t *EditFileTool) Sensitive() bool {
	return true
}

// Execute applies the edit.
func (t *EditFileTool) Execute(ctx context.Context, input map[string]interface{}) (string, error) {
	path, ok := tools.StringArg(input, "path")
	if !ok || path == "" {
		return "", fmt.Errorf("missing required parameter: path")
	}
	oldText, ok := tools.StringArg(input, "old_text")
	if !ok || oldText == "" {
		return "", fmt.Errorf("missing required parameter: old_text")
	}
	newText, ok := tools.StringArg(input, "new_text")
	if !ok {
		return "", fmt.Errorf("missing required parameter: new_text")
	}
	replaceAll, _ := tools.BoolArg(input, "replace_all")

	if err := t.guard.Validate(path); err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	absPath, err := t.guard.Resolve(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	content := string(data)

	count := strings.Count(content, oldText)
	switch {
	case count == 0:
		return "", fmt.Errorf("old_text not found in %s", path)
	case count > 1 && !replaceAll:
		return "", fmt.Errorf("old_text appears %d times in %s; add more context or set replace_all", count, path)
	}

	limit := 1
	if replaceAll {
		limit = -1
	}
	updated := strings.Replace(content, oldText, newText, limit)
	if err := os.WriteFile(absPath, []byte(updated), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if replaceAll {
		noun := "occurrences"
		if count == 1 {
			noun = "occurrence"
		}
		return fmt.Sprintf("Replaced %d %s in %s", count, noun, path), nil
	}
	return fmt.Sprintf("Applied edit to %s", path), nil
}
