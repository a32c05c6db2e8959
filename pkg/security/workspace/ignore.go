package workspace

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// defaultIgnorePatterns are always active, before any ignore file is read.
var defaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	"vendor/",
	".idea/",
	".vscode/",
	"*.log",
}

// ignoreFileNames are read from the workspace root in order; later files
// take precedence over earlier ones.
var ignoreFileNames = []string{".gitignore", ".quillignore"}

// ignoreRule is one compiled pattern. Rules are evaluated in order with
// last-match-wins semantics, so a later negation can re-include a path an
// earlier rule ignored.
type ignoreRule struct {
	// exact matches the path itself; subtree matches its descendants.
	// The split lets directory-only rules skip same-named files while
	// still covering everything under a matching directory.
	exact   []glob.Glob
	subtree []glob.Glob
	negated bool
	dirOnly bool
}

func (r *ignoreRule) matches(relPath string, isDir bool) bool {
	if matchAny(r.subtree, relPath) {
		return true
	}
	if r.dirOnly && !isDir {
		return false
	}
	return matchAny(r.exact, relPath)
}

func matchAny(matchers []glob.Glob, path string) bool {
	for _, m := range matchers {
		if m.Match(path) {
			return true
		}
	}
	return false
}

// IgnoreMatcher decides which workspace paths file listings and searches
// skip. Patterns follow the familiar ignore-file shape: blank lines and #
// comments are skipped, a trailing / restricts a pattern to directories, a
// leading ! negates, and patterns without a / match at any depth.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher loads patterns for the given workspace root: built-in
// defaults first, then each ignore file present in the root.
func NewIgnoreMatcher(root string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}

	for _, pattern := range defaultIgnorePatterns {
		if err := m.addPattern(pattern); err != nil {
			return nil, fmt.Errorf("invalid default pattern %q: %w", pattern, err)
		}
	}

	for _, name := range ignoreFileNames {
		if err := m.loadFile(filepath.Join(root, name)); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// loadFile reads one ignore file; a missing file is not an error.
func (m *IgnoreMatcher) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := m.addPattern(line); err != nil {
			// A malformed line disables itself, not the whole file.
			continue
		}
	}
	return scanner.Err()
}

// addPattern compiles one pattern line into a rule.
func (m *IgnoreMatcher) addPattern(pattern string) error {
	rule := ignoreRule{}

	if strings.HasPrefix(pattern, "!") {
		rule.negated = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		rule.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	anchored := strings.HasPrefix(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")
	if pattern == "" {
		return fmt.Errorf("empty pattern")
	}

	exact := []string{pattern}
	subtree := []string{pattern + "/**"}
	if !anchored && !strings.Contains(pattern, "/") {
		// Unanchored basename patterns match at any depth.
		exact = append(exact, "**/"+pattern)
		subtree = append(subtree, "**/"+pattern+"/**")
	}

	// Every variant has to compile for the rule to be installed at all.
	for _, v := range exact {
		g, err := glob.Compile(v, '/')
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		rule.exact = append(rule.exact, g)
	}
	for _, v := range subtree {
		g, err := glob.Compile(v, '/')
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		rule.subtree = append(rule.subtree, g)
	}

	m.rules = append(m.rules, rule)
	return nil
}

// ShouldIgnore reports whether the workspace-relative path is ignored.
// The last matching rule wins.
func (m *IgnoreMatcher) ShouldIgnore(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(filepath.Clean(relPath))
	if relPath == "." || relPath == "" {
		return false
	}

	ignored := false
	for _, rule := range m.rules {
		if rule.matches(relPath, isDir) {
			ignored = !rule.negated
		}
	}
	return ignored
}
