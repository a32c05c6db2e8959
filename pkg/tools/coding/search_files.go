package coding

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	"github.com/quillhq/quill/pkg/agent/tools"
	"github.com/quillhq/quill/pkg/security/workspace"
)

const (
	// maxSearchResults caps match output.
	maxSearchResults = 100

	// maxMatchLineLength truncates very long matching lines.
	maxMatchLineLength = 250
)

// SearchFilesTool searches file contents with a regular expression.
type SearchFilesTool struct {
	guard *workspace.Guard
}

// NewSearchFilesTool creates a new SearchFilesTool with workspace security.
func NewSearchFilesTool(guard *workspace.Guard) *SearchFilesTool {
	return &SearchFilesTool{guard: guard}
}

// Name returns the tool name.
func (t *SearchFilesTool) Name() string {
	return "search_files"
}

// Description returns the tool description.
func (t *SearchFilesTool) Description() string {
	return "Search file contents with a regular expression. Returns path:line: text matches. An optional file_glob restricts which files are searched (e.g. '*.go', 'src/**')."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *SearchFilesTool) Schema() map[string]interface{} {
	return tools.BaseSchema(
		map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Regular expression to search for (Go syntax)",
			},
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to search, relative to workspace (default: workspace root)",
			},
			"file_glob": map[string]interface{}{
				"type":        "string",
				"description": "Optional glob restricting which files are searched",
			},
		},
		[]string{"pattern"},
	)
}

// Sensitive reports that searching needs no approval.
func (t *SearchFilesTool) Sensitive() bool {
	return false
}

// Execute runs the search.
func (t *SearchFilesTool) Execute(ctx context.Context, input map[string]interface{}) (string, error) {
	pattern, ok := tools.StringArg(input, "pattern")
	if !ok || pattern == "" {
		return "", fmt.Errorf("missing required parameter: pattern")
	}
	searchPath, _ := tools.StringArg(input, "path")
	if searchPath == "" {
		searchPath = "."
	}
	fileGlob, _ := tools.StringArg(input, "file_glob")

	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	var globMatcher glob.Glob
	if fileGlob != "" {
		globMatcher, err = glob.Compile(fileGlob, '/')
		if err != nil {
			return "", fmt.Errorf("invalid file_glob: %w", err)
		}
	}

	if err := t.guard.Validate(searchPath); err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	absPath, err := t.guard.Resolve(searchPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	var matches []string
	truncated := false

	walkErr := filepath.WalkDir(absPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if t.guard.ShouldIgnore(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(absPath, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if globMatcher != nil && !globMatcher.Match(rel) && !globMatcher.Match(filepath.Base(rel)) {
			return nil
		}

		fileMatches, matchErr := searchFile(path, rel, re, maxSearchResults-len(matches))
		if matchErr != nil {
			// Unreadable files are skipped, not fatal.
			return nil
		}
		matches = append(matches, fileMatches...)
		if len(matches) >= maxSearchResults {
			truncated = true
			return filepath.SkipAll
		}
		return nil
	})
	if walkErr != nil {
		return "", fmt.Errorf("search failed: %w", walkErr)
	}

	if len(matches) == 0 {
		return fmt.Sprintf("No matches for pattern '%s'", pattern), nil
	}

	result := strings.Join(matches, "\n")
	if truncated {
		result += fmt.Sprintf("\n... results truncated at %d matches", maxSearchResults)
	}
	return result, nil
}

// searchFile scans one file for matches, skipping binary content.
func searchFile(absPath, relPath string, re *regexp.Regexp, limit int) ([]string, error) {
	file, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	head, _ := reader.Peek(512)
	if bytes.IndexByte(head, 0) >= 0 {
		return nil, nil // binary file
	}

	var matches []string
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if !re.MatchString(line) {
			continue
		}
		if len(line) > maxMatchLineLength {
			line = line[:maxMatchLineLength] + "..."
		}
		matches = append(matches, fmt.Sprintf("%s:%d: %s", relPath, lineNum, line))
		if len(matches) >= limit {
			break
		}
	}
	return matches, scanner.Err()
}
