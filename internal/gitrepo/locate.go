package gitrepo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// worktreeGitDirMarker appears in the gitdir pointer of a linked worktree:
// <main>/.git/worktrees/<name>.
const worktreeGitDirMarker = string(filepath.Separator) + ".git" + string(filepath.Separator) + "worktrees" + string(filepath.Separator)

// ResolveRoot walks upward from cwd to the repository's working-tree root.
// When cwd is inside a linked worktree (an agent's isolated checkout), the
// returned root is the main repository, so registry and artifact paths are
// the same no matter where a command runs from.
func ResolveRoot(cwd string) (string, error) {
	dir, err := filepath.Abs(cwd)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", cwd, err)
	}

	for {
		gitPath := filepath.Join(dir, ".git")
		info, err := os.Stat(gitPath)
		if err == nil {
			if info.IsDir() {
				return dir, nil
			}
			// .git is a file in linked worktrees; follow it to the main repo.
			return mainRootFromGitFile(gitPath)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: searched from %s", ErrNotARepository, cwd)
		}
		dir = parent
	}
}

// mainRootFromGitFile reads a worktree's .git pointer file
// ("gitdir: /repo/.git/worktrees/<name>") and returns /repo.
func mainRootFromGitFile(gitFile string) (string, error) {
	data, err := os.ReadFile(gitFile)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", gitFile, err)
	}

	line := strings.TrimSpace(string(data))
	gitDir, ok := strings.CutPrefix(line, "gitdir:")
	if !ok {
		return "", fmt.Errorf("%w: malformed .git file %s", ErrNotARepository, gitFile)
	}
	gitDir = strings.TrimSpace(gitDir)
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(filepath.Dir(gitFile), gitDir)
	}

	idx := strings.Index(gitDir, worktreeGitDirMarker)
	if idx < 0 {
		return "", fmt.Errorf("%w: unexpected gitdir %s", ErrNotARepository, gitDir)
	}
	return filepath.Clean(gitDir[:idx]), nil
}

// DefaultBranch resolves the default integration branch for the repository
// at root: a locally-present "main" wins, then "master", then whatever
// branch the primary checkout has checked out. A repository with no history
// at all yields ErrNoDefaultBranch.
func DefaultBranch(root string) (string, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotARepository, root)
	}

	for _, name := range []string{"main", "master"} {
		if _, err := repo.Reference(plumbing.NewBranchReferenceName(name), true); err == nil {
			return name, nil
		}
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoDefaultBranch, err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}

	// Detached HEAD: fall back to the first local branch, if any.
	iter, err := repo.Branches()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoDefaultBranch, err)
	}
	defer iter.Close()
	ref, err := iter.Next()
	if err != nil {
		return "", fmt.Errorf("%w: no local branches", ErrNoDefaultBranch)
	}
	return ref.Name().Short(), nil
}

// BranchExists reports whether a local branch with the given name exists.
func BranchExists(root, name string) (bool, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrNotARepository, root)
	}
	_, err = repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("looking up branch %s: %w", name, err)
}

// CurrentBranch returns the branch the primary checkout has checked out.
func CurrentBranch(root string) (string, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotARepository, root)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is not on a branch")
	}
	return head.Name().Short(), nil
}
