package gitrepo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRoot(t *testing.T) {
	root := initRepo(t)

	t.Run("from root", func(t *testing.T) {
		got, err := ResolveRoot(root)
		require.NoError(t, err)
		assert.Equal(t, root, got)
	})

	t.Run("from nested directory", func(t *testing.T) {
		nested := filepath.Join(root, "a", "b")
		require.NoError(t, os.MkdirAll(nested, 0o755))

		got, err := ResolveRoot(nested)
		require.NoError(t, err)
		assert.Equal(t, root, got)
	})

	t.Run("from inside a linked worktree", func(t *testing.T) {
		wt := filepath.Join(t.TempDir(), "wt")
		mustGit(t, root, "worktree", "add", "-b", "grove/locate-test", wt, "main")

		got, err := ResolveRoot(wt)
		require.NoError(t, err)
		assert.Equal(t, root, got)

		nested := filepath.Join(wt, "sub")
		require.NoError(t, os.MkdirAll(nested, 0o755))
		got, err = ResolveRoot(nested)
		require.NoError(t, err)
		assert.Equal(t, root, got)
	})

	t.Run("not a repository", func(t *testing.T) {
		_, err := ResolveRoot(t.TempDir())
		assert.ErrorIs(t, err, ErrNotARepository)
	})
}

func TestDefaultBranch(t *testing.T) {
	t.Run("prefers main", func(t *testing.T) {
		root := initRepo(t)
		mustGit(t, root, "branch", "master")
		mustGit(t, root, "checkout", "-b", "develop")

		got, err := DefaultBranch(root)
		require.NoError(t, err)
		assert.Equal(t, "main", got)
	})

	t.Run("falls back to master", func(t *testing.T) {
		requireGit(t)
		root := t.TempDir()
		mustGit(t, root, "init", "-b", "master")
		mustGit(t, root, "config", "user.email", "test@example.com")
		mustGit(t, root, "config", "user.name", "test")
		commitFile(t, root, "f", "x", "init")

		got, err := DefaultBranch(root)
		require.NoError(t, err)
		assert.Equal(t, "master", got)
	})

	t.Run("falls back to checked-out branch", func(t *testing.T) {
		requireGit(t)
		root := t.TempDir()
		mustGit(t, root, "init", "-b", "trunk")
		mustGit(t, root, "config", "user.email", "test@example.com")
		mustGit(t, root, "config", "user.name", "test")
		commitFile(t, root, "f", "x", "init")

		got, err := DefaultBranch(root)
		require.NoError(t, err)
		assert.Equal(t, "trunk", got)
	})

	t.Run("empty repository has no default branch", func(t *testing.T) {
		requireGit(t)
		root := t.TempDir()
		mustGit(t, root, "init", "-b", "main")

		_, err := DefaultBranch(root)
		assert.ErrorIs(t, err, ErrNoDefaultBranch)
	})
}

func TestBranchExists(t *testing.T) {
	root := initRepo(t)

	exists, err := BranchExists(root, "main")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = BranchExists(root, "nope")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCurrentBranch(t *testing.T) {
	root := initRepo(t)
	mustGit(t, root, "checkout", "-b", "feature-x")

	got, err := CurrentBranch(root)
	require.NoError(t, err)
	assert.Equal(t, "feature-x", got)
}
