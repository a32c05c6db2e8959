// Package workspace enforces workspace boundaries on file system
// operations. Every file tool resolves its paths through a Guard, which
// rejects traversal outside the workspace root and consults ignore
// patterns for listings and searches.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Guard validates that file operations remain within the workspace
// directory. Directories outside the workspace can be allowed explicitly,
// which is used for ~/.quill state paths.
type Guard struct {
	root        string
	ignore      *IgnoreMatcher
	allowedDirs []string
}

// NewGuard creates a guard rooted at the given directory. The root is
// resolved to an absolute, symlink-evaluated path, and ignore patterns are
// loaded from defaults, .gitignore, and .quillignore.
func NewGuard(root string) (*Guard, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace directory cannot be empty")
	}

	absPath, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace directory: %w", err)
	}
	evalPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate workspace directory symlinks: %w", err)
	}

	ignore, err := NewIgnoreMatcher(evalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore patterns: %w", err)
	}

	return &Guard{
		root:   evalPath,
		ignore: ignore,
	}, nil
}

// Root returns the absolute workspace directory.
func (g *Guard) Root() string {
	return g.root
}

// Allow permits file operations inside a directory outside the workspace.
// Non-existent directories may be allowed; they resolve against their
// closest existing ancestor.
func (g *Guard) Allow(dir string) error {
	if dir == "" {
		return fmt.Errorf("allowed directory cannot be empty")
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve allowed directory: %w", err)
	}
	evalPath := resolveSymlinks(absPath)

	for _, existing := range g.allowedDirs {
		if existing == evalPath {
			return nil
		}
	}
	g.allowedDirs = append(g.allowedDirs, evalPath)
	return nil
}

// AllowedDirs returns a copy of the explicitly allowed directories.
func (g *Guard) AllowedDirs() []string {
	dirs := make([]string, len(g.allowedDirs))
	copy(dirs, g.allowedDirs)
	return dirs
}

// Validate checks that the given path resolves inside the workspace or an
// allowed directory.
func (g *Guard) Validate(path string) error {
	resolved, err := g.Resolve(path)
	if err != nil {
		return err
	}
	if !g.Within(resolved) {
		return fmt.Errorf("path '%s' is outside workspace boundaries", path)
	}
	return nil
}

// Resolve converts a path to an absolute, symlink-evaluated path within
// the workspace context. Relative paths are joined to the workspace root;
// a leading ~ expands to the user's home directory. The path does not need
// to exist: symlinks are evaluated through the closest existing ancestor,
// so a dangling symlink or planned file still resolves to its real target
// location.
func (g *Guard) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	expanded := path
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to expand ~: %w", err)
		}
		expanded = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	abs := filepath.Clean(expanded)
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(g.root, abs)
	}
	return resolveSymlinks(abs), nil
}

// Within reports whether an absolute path is the workspace root, inside
// it, or inside an explicitly allowed directory.
func (g *Guard) Within(absPath string) bool {
	evalPath := resolveSymlinks(absPath)

	if isInside(evalPath, g.root) {
		return true
	}
	for _, dir := range g.allowedDirs {
		if isInside(evalPath, dir) {
			return true
		}
	}
	return false
}

// Rel converts an absolute path to a workspace-relative path.
func (g *Guard) Rel(absPath string) (string, error) {
	if !g.Within(absPath) {
		return "", fmt.Errorf("path '%s' is not within workspace", absPath)
	}
	rel, err := filepath.Rel(g.root, resolveSymlinks(absPath))
	if err != nil {
		return "", fmt.Errorf("failed to make path relative: %w", err)
	}
	return rel, nil
}

// ShouldIgnore reports whether the path matches the workspace's ignore
// patterns. Allowed directories are never ignored.
func (g *Guard) ShouldIgnore(path string) bool {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(g.root, path)
	}
	evalPath := resolveSymlinks(abs)

	for _, dir := range g.allowedDirs {
		if isInside(evalPath, dir) {
			return false
		}
	}

	rel, err := filepath.Rel(g.root, evalPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		// Outside the workspace: the boundary check rejects it elsewhere.
		return false
	}

	isDir := false
	if info, err := os.Lstat(abs); err == nil {
		isDir = info.IsDir()
	}
	return g.ignore.ShouldIgnore(rel, isDir)
}

// isInside reports whether path equals dir or lives under it.
func isInside(path, dir string) bool {
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

// resolveSymlinks evaluates symlinks, walking up through non-existent
// components until an existing ancestor resolves.
func resolveSymlinks(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}

	var components []string
	current := path
	for {
		if resolved, err := filepath.EvalSymlinks(current); err == nil {
			result := resolved
			for i := len(components) - 1; i >= 0; i-- {
				result = filepath.Join(result, components[i])
			}
			return result
		}

		parent := filepath.Dir(current)
		if parent == current || parent == "." || parent == "/" {
			return filepath.Clean(path)
		}
		components = append(components, filepath.Base(current))
		current = parent
	}
}
