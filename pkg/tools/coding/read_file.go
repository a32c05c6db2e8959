package coding

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/quillhq/quill/pkg/agent/tools"
	"github.com/quillhq/quill/pkg/security/workspace"
)

// ReadFileTool reads file contents with optional line range support.
type ReadFileTool struct {
	guard *workspace.Guard
}

// NewReadFileTool creates a new ReadFileTool with workspace security.
func NewReadFileTool(guard *workspace.Guard) *ReadFileTool {
	return &ReadFileTool{guard: guard}
}

// Name returns the tool name.
func (t *ReadFileTool) Name() string {
	return "read_file"
}

// Description returns the tool description.
func (t *ReadFileTool) Description() string {
	return "Read the contents of a file with optional line range support. Returns line-numbered content for easy reference."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *ReadFileTool) Schema() map[string]interface{} {
	return tools.BaseSchema(
		map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to read (relative to workspace)",
			},
			"start_line": map[string]interface{}{
				"type":        "integer",
				"description": "Optional starting line number (1-based, inclusive)",
			},
			"end_line": map[string]interface{}{
				"type":        "integer",
				"description": "Optional ending line number (1-based, inclusive)",
			},
		},
		[]string{"path"},
	)
}

// Sensitive reports that reading needs no approval.
func (t *ReadFileTool) Sensitive() bool {
	return false
}

// Execute reads the file and returns its line-numbered contents.
func (t *ReadFileTool) Execute(ctx context.Context, input map[string]interface{}) (string, error) {
	path, ok := tools.StringArg(input, "path")
	if !ok || path == "" {
		return "", fmt.Errorf("missing required parameter: path")
	}
	startLine, _ := tools.IntArg(input, "start_line")
	endLine, _ := tools.IntArg(input, "end_line")

	if err := t.guard.Validate(path); err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	absPath, err := t.guard.Resolve(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if t.guard.ShouldIgnore(absPath) {
		return "", fmt.Errorf("file '%s' is ignored by .gitignore, .quillignore, or default patterns", path)
	}

	content, err := readFileWithLineNumbers(absPath, startLine, endLine)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// readFileWithLineNumbers reads a file and returns its contents with line
// numbers. If startLine and endLine are both 0, reads the entire file.
// Line numbers are 1-based and inclusive.
func readFileWithLineNumbers(path string, startLine, endLine int) (string, error) {
	readAll := startLine == 0 && endLine == 0
	if !readAll {
		if startLine < 1 {
			return "", fmt.Errorf("start_line must be >= 1, got %d", startLine)
		}
		if endLine != 0 && endLine < startLine {
			return "", fmt.Errorf("end_line (%d) must be >= start_line (%d)", endLine, startLine)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var builder strings.Builder
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		if !readAll && lineNum < startLine {
			continue
		}
		if !readAll && endLine > 0 && lineNum > endLine {
			break
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		fmt.Fprintf(&builder, "%d | %s", lineNum, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}

	if builder.Len() == 0 && !readAll && startLine > lineNum {
		return "", fmt.Errorf("start_line %d exceeds file length (%d lines)", startLine, lineNum)
	}
	return builder.String(), nil
}
