package coding

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/quillhq/quill/pkg/agent/tools"
	"github.com/quillhq/quill/pkg/security/workspace"
)

// maxListEntries caps listing output so a directory walk cannot flood the
// context window.
const maxListEntries = 500

// ListFilesTool lists workspace files and directories.
type ListFilesTool struct {
	guard *workspace.Guard
}

// NewListFilesTool creates a new ListFilesTool with workspace security.
func NewListFilesTool(guard *workspace.Guard) *ListFilesTool {
	return &ListFilesTool{guard: guard}
}

// Name returns the tool name.
func (t *ListFilesTool) Name() string {
	return "list_files"
}

// Description returns the tool description.
func (t *ListFilesTool) Description() string {
	return "List files and directories in the workspace. Directories are suffixed with '/'. Ignored paths (.gitignore, .quillignore, defaults) are skipped."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *ListFilesTool) Schema() map[string]interface{} {
	return tools.BaseSchema(
		map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to list, relative to workspace (default: workspace root)",
			},
			"recursive": map[string]interface{}{
				"type":        "boolean",
				"description": "Recurse into subdirectories (default: false)",
			},
		},
		nil,
	)
}

// Sensitive reports that listing needs no approval.
func (t *ListFilesTool) Sensitive() bool {
	return false
}

// Execute lists the directory.
func (t *ListFilesTool) Execute(ctx context.Context, input map[string]interface{}) (string, error) {
	path, _ := tools.StringArg(input, "path")
	if path == "" {
		path = "."
	}
	recursive, _ := tools.BoolArg(input, "recursive")

	if err := t.guard.Validate(path); err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	absPath, err := t.guard.Resolve(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("'%s' is not a directory", path)
	}

	var entries []string
	truncated := false
	if recursive {
		entries, truncated, err = t.walkDir(absPath)
	} else {
		entries, err = t.readDir(absPath)
	}
	if err != nil {
		return "", err
	}

	if len(entries) == 0 {
		return fmt.Sprintf("Directory '%s' is empty", path), nil
	}

	sort.Strings(entries)
	result := strings.Join(entries, "\n")
	if truncated {
		result += fmt.Sprintf("\n... listing truncated at %d entries", maxListEntries)
	}
	return result, nil
}

func (t *ListFilesTool) readDir(absPath string) ([]string, error) {
	dirEntries, err := os.ReadDir(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var entries []string
	for _, entry := range dirEntries {
		full := filepath.Join(absPath, entry.Name())
		if t.guard.ShouldIgnore(full) {
			continue
		}
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		entries = append(entries, name)
	}
	return entries, nil
}

func (t *ListFilesTool) walkDir(absPath string) ([]string, bool, error) {
	var entries []string
	truncated := false

	err := filepath.WalkDir(absPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == absPath {
			return nil
		}
		if t.guard.ShouldIgnore(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if len(entries) >= maxListEntries {
			truncated = true
			return filepath.SkipAll
		}

		rel, relErr := filepath.Rel(absPath, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			rel += "/"
		}
		entries = append(entries, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to walk directory: %w", err)
	}
	return entries, truncated, nil
}
