package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T) (*Guard, string) {
	t.Helper()
	root := t.TempDir()
	guard, err := NewGuard(root)
	require.NoError(t, err)
	return guard, guard.Root()
}

func TestNewGuardRejectsEmptyDir(t *testing.T) {
	_, err := NewGuard("")
	require.Error(t, err)
}

func TestValidateAcceptsWorkspacePaths(t *testing.T) {
	guard, root := newTestGuard(t)

	assert.NoError(t, guard.Validate("main.go"))
	assert.NoError(t, guard.Validate("sub/dir/file.txt"))
	assert.NoError(t, guard.Validate(filepath.Join(root, "abs.go")))
	assert.NoError(t, guard.Validate("."))
}

func TestValidateRejectsTraversal(t *testing.T) {
	guard, _ := newTestGuard(t)

	assert.Error(t, guard.Validate("../outside.txt"))
	assert.Error(t, guard.Validate("sub/../../outside.txt"))
	assert.Error(t, guard.Validate("/etc/passwd"))
}

func TestValidateRejectsSymlinkEscape(t *testing.T) {
	guard, root := newTestGuard(t)

	outside := t.TempDir()
	link := filepath.Join(root, "escape")
	require.NoError(t, os.Symlink(outside, link))

	assert.Error(t, guard.Validate("escape/secret.txt"))
}

func TestResolveJoinsRelativeToRoot(t *testing.T) {
	guard, root := newTestGuard(t)

	resolved, err := guard.Resolve("a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "b.txt"), resolved)
}

func TestResolveNonExistentPath(t *testing.T) {
	guard, root := newTestGuard(t)

	resolved, err := guard.Resolve("not/yet/created.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "not", "yet", "created.txt"), resolved)
	assert.True(t, guard.Within(resolved))
}

func TestAllowPermitsOutsideDirectory(t *testing.T) {
	guard, _ := newTestGuard(t)
	outside := t.TempDir()

	assert.Error(t, guard.Validate(filepath.Join(outside, "f.txt")))

	require.NoError(t, guard.Allow(outside))
	assert.NoError(t, guard.Validate(filepath.Join(outside, "f.txt")))

	// Duplicate registration is a no-op.
	require.NoError(t, guard.Allow(outside))
	assert.Len(t, guard.AllowedDirs(), 1)
}

func TestRelConvertsToWorkspaceRelative(t *testing.T) {
	guard, root := newTestGuard(t)

	rel, err := guard.Rel(filepath.Join(root, "pkg", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("pkg", "main.go"), rel)

	_, err = guard.Rel("/somewhere/else")
	require.Error(t, err)
}

func TestShouldIgnoreDefaults(t *testing.T) {
	guard, root := newTestGuard(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o755))

	assert.True(t, guard.ShouldIgnore(".git"))
	assert.True(t, guard.ShouldIgnore(".git/objects"))
	assert.True(t, guard.ShouldIgnore("node_modules/pkg"))
	assert.True(t, guard.ShouldIgnore("debug.log"))
	assert.False(t, guard.ShouldIgnore("main.go"))
}

func TestShouldIgnoreReadsQuillignore(t *testing.T) {
	root := t.TempDir()
	content := "# build output\ndist/\n*.tmp\n!keep.tmp\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".quillignore"), []byte(content), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dist"), 0o755))

	guard, err := NewGuard(root)
	require.NoError(t, err)

	assert.True(t, guard.ShouldIgnore("dist"))
	assert.True(t, guard.ShouldIgnore("dist/bundle.js"))
	assert.True(t, guard.ShouldIgnore("scratch.tmp"))
	assert.False(t, guard.ShouldIgnore("keep.tmp"))
	assert.False(t, guard.ShouldIgnore("src/app.js"))
}

func TestDirOnlyPatternSkipsSameNamedFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".quillignore"), []byte("build/\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "build"), []byte("a file, not a dir"), 0o644))

	guard, err := NewGuard(root)
	require.NoError(t, err)

	assert.False(t, guard.ShouldIgnore("build"))
}

func TestIgnoreMatcherNestedBasenames(t *testing.T) {
	matcher, err := NewIgnoreMatcher(t.TempDir())
	require.NoError(t, err)

	// Unanchored defaults match at any depth.
	assert.True(t, matcher.ShouldIgnore("sub/project/node_modules", true))
	assert.True(t, matcher.ShouldIgnore("sub/project/node_modules/x/y.js", false))
	assert.True(t, matcher.ShouldIgnore("deep/trace.log", false))
	assert.False(t, matcher.ShouldIgnore("deep/trace.go", false))
}
